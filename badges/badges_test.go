package badges

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"heritage/auth"
	"heritage/models"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(&models.User{}, &models.Badge{})
	return db
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	authModule := auth.NewAuthModule(db, "test-secret")
	authModule.RegisterRoutes(router)
	NewBadgeModule(db, authModule).RegisterRoutes(router)
	return router
}

func loginTestUser(t *testing.T, db *gorm.DB, router *gin.Engine, email string, isAdmin bool) []*http.Cookie {
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	db.Create(&models.User{Name: "Test User", Email: email, Password: string(hash), IsAdmin: isAdmin})

	body := `{"email":"` + email + `","password":"secret123"}`
	req, _ := http.NewRequest("POST", "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	return w.Result().Cookies()
}

func doJSON(router *gin.Engine, method, url, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListBadges_Public(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(db)
	db.Create(&models.Badge{Name: "featured"})

	w := doJSON(router, "GET", "/api/badges/", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "featured")
}

func TestCreateBadge_AdminOnly(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(db)
	cookies := loginTestUser(t, db, router, "user@example.com", false)

	w := doJSON(router, "POST", "/api/badges/", `{"name":"featured"}`, cookies)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateBadge_AsAdmin(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(db)
	cookies := loginTestUser(t, db, router, "admin@example.com", true)

	w := doJSON(router, "POST", "/api/badges/",
		`{"name":"featured","faIcon":"fa-star","iconColor":"#FFD700"}`, cookies)

	assert.Equal(t, http.StatusOK, w.Code)

	var badge models.Badge
	assert.NoError(t, db.Where("name = ?", "featured").First(&badge).Error)
	assert.Equal(t, "fa-star", badge.FaIcon)
}

func TestUpdateBadge_Missing(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(db)
	cookies := loginTestUser(t, db, router, "admin@example.com", true)

	w := doJSON(router, "PUT", "/api/badges/42", `{"name":"ghost"}`, cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteBadge(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(db)
	cookies := loginTestUser(t, db, router, "admin@example.com", true)

	badge := models.Badge{Name: "featured"}
	db.Create(&badge)

	w := doJSON(router, "DELETE", "/api/badges/1", "", cookies)
	assert.Equal(t, http.StatusNoContent, w.Code)

	var count int64
	db.Model(&models.Badge{}).Count(&count)
	assert.Zero(t, count)
}

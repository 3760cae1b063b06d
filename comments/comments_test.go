package comments

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

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

	db.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{})
	return db
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	authModule := auth.NewAuthModule(db, "test-secret")
	authModule.RegisterRoutes(router)
	NewCommentModule(db, authModule).RegisterRoutes(router)
	return router
}

func createTestUser(db *gorm.DB, email string, isAdmin bool) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	user := &models.User{
		Name:     "Test User",
		Email:    email,
		Password: string(hash),
		IsAdmin:  isAdmin,
	}
	db.Create(user)
	return user
}

func loginAs(t *testing.T, router *gin.Engine, email string) []*http.Cookie {
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

func createTestPost(db *gorm.DB, authorID string, published bool) *models.Post {
	post := &models.Post{
		Title:     "Test Post",
		Content:   "Test content",
		Published: published,
		AuthorID:  authorID,
	}
	db.Create(post)
	return post
}

func itoa(n uint) string {
	return strconv.FormatUint(uint64(n), 10)
}

func TestListThreaded_RequiresAuth(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(db)

	w := doJSON(router, "GET", "/api/comments/?postId=1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListThreaded_Shape(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(db)
	user := createTestUser(db, "reader@example.com", false)
	post := createTestPost(db, user.ID, true)

	base := time.Now()
	older := models.Comment{Content: "older", PostID: post.ID, AuthorID: user.ID, CreatedAt: base}
	newer := models.Comment{Content: "newer", PostID: post.ID, AuthorID: user.ID, CreatedAt: base.Add(time.Hour)}
	db.Create(&older)
	db.Create(&newer)

	firstReply := models.Comment{Content: "first reply", PostID: post.ID, AuthorID: user.ID,
		ParentID: &older.ID, CreatedAt: base.Add(time.Minute)}
	secondReply := models.Comment{Content: "second reply", PostID: post.ID, AuthorID: user.ID,
		ParentID: &older.ID, CreatedAt: base.Add(2 * time.Minute)}
	db.Create(&firstReply)
	db.Create(&secondReply)

	cookies := loginAs(t, router, user.Email)
	w := doJSON(router, "GET", "/api/comments/?postId="+itoa(post.ID), "", cookies)
	assert.Equal(t, http.StatusOK, w.Code)

	var threads []struct {
		Content  string `json:"content"`
		Children []struct {
			Content string `json:"content"`
		} `json:"children"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &threads))
	assert.Len(t, threads, 2)

	// top-level newest first, replies oldest first
	assert.Equal(t, "newer", threads[0].Content)
	assert.Equal(t, "older", threads[1].Content)
	assert.Len(t, threads[1].Children, 2)
	assert.Equal(t, "first reply", threads[1].Children[0].Content)
	assert.Equal(t, "second reply", threads[1].Children[1].Content)
}

func TestCreateComment_OnPublishedPost(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(db)
	user := createTestUser(db, "reader@example.com", false)
	post := createTestPost(db, user.ID, true)

	cookies := loginAs(t, router, user.Email)
	w := doJSON(router, "POST", "/api/comments/",
		`{"content":"nice post","postId":`+itoa(post.ID)+`}`, cookies)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nice post")
	assert.Contains(t, w.Body.String(), `"parent":null`)
}

func TestCreateComment_OnDraft(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(db)
	user := createTestUser(db, "reader@example.com", false)
	draft := createTestPost(db, user.ID, false)

	cookies := loginAs(t, router, user.Email)
	w := doJSON(router, "POST", "/api/comments/",
		`{"content":"sneaky","postId":`+itoa(draft.ID)+`}`, cookies)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "draft")
}

func TestCreateComment_MissingPost(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(db)
	user := createTestUser(db, "reader@example.com", false)

	cookies := loginAs(t, router, user.Email)
	w := doJSON(router, "POST", "/api/comments/", `{"content":"hello","postId":999}`, cookies)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateComment_ReplyIncludesParent(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(db)
	user := createTestUser(db, "reader@example.com", false)
	post := createTestPost(db, user.ID, true)

	parent := models.Comment{Content: "parent comment", PostID: post.ID, AuthorID: user.ID}
	db.Create(&parent)

	cookies := loginAs(t, router, user.Email)
	w := doJSON(router, "POST", "/api/comments/",
		`{"content":"a reply","postId":`+itoa(post.ID)+`,"parentId":`+itoa(parent.ID)+`}`, cookies)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "parent comment")
}

func TestCreateComment_ReplyToReply(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(db)
	user := createTestUser(db, "reader@example.com", false)
	post := createTestPost(db, user.ID, true)

	parent := models.Comment{Content: "top", PostID: post.ID, AuthorID: user.ID}
	db.Create(&parent)
	reply := models.Comment{Content: "reply", PostID: post.ID, AuthorID: user.ID, ParentID: &parent.ID}
	db.Create(&reply)

	cookies := loginAs(t, router, user.Email)
	w := doJSON(router, "POST", "/api/comments/",
		`{"content":"too deep","postId":`+itoa(post.ID)+`,"parentId":`+itoa(reply.ID)+`}`, cookies)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateComment_ParentFromOtherPost(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(db)
	user := createTestUser(db, "reader@example.com", false)
	post := createTestPost(db, user.ID, true)
	other := createTestPost(db, user.ID, true)

	parent := models.Comment{Content: "elsewhere", PostID: other.ID, AuthorID: user.ID}
	db.Create(&parent)

	cookies := loginAs(t, router, user.Email)
	w := doJSON(router, "POST", "/api/comments/",
		`{"content":"confused","postId":`+itoa(post.ID)+`,"parentId":`+itoa(parent.ID)+`}`, cookies)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateComment_NotOwner(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(db)
	owner := createTestUser(db, "owner@example.com", false)
	intruder := createTestUser(db, "intruder@example.com", false)
	post := createTestPost(db, owner.ID, true)

	comment := models.Comment{Content: "mine", PostID: post.ID, AuthorID: owner.ID}
	db.Create(&comment)

	cookies := loginAs(t, router, intruder.Email)
	w := doJSON(router, "PUT", "/api/comments/"+itoa(comment.ID), `{"content":"hijack"}`, cookies)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateComment_Missing(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(db)
	user := createTestUser(db, "reader@example.com", false)

	cookies := loginAs(t, router, user.Email)
	w := doJSON(router, "PUT", "/api/comments/999", `{"content":"ghost"}`, cookies)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteComment_CascadesReplies(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(db)
	user := createTestUser(db, "owner@example.com", false)
	post := createTestPost(db, user.ID, true)

	parent := models.Comment{Content: "top", PostID: post.ID, AuthorID: user.ID}
	db.Create(&parent)
	reply := models.Comment{Content: "reply", PostID: post.ID, AuthorID: user.ID, ParentID: &parent.ID}
	db.Create(&reply)
	unrelated := models.Comment{Content: "other thread", PostID: post.ID, AuthorID: user.ID}
	db.Create(&unrelated)

	cookies := loginAs(t, router, user.Email)
	w := doJSON(router, "DELETE", "/api/comments/"+itoa(parent.ID), "", cookies)
	assert.Equal(t, http.StatusNoContent, w.Code)

	var remaining []models.Comment
	db.Find(&remaining)
	assert.Len(t, remaining, 1)
	assert.Equal(t, "other thread", remaining[0].Content)
}

func TestDeleteComment_AdminMayModerate(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(db)
	owner := createTestUser(db, "owner@example.com", false)
	admin := createTestUser(db, "admin@example.com", true)
	post := createTestPost(db, owner.ID, true)

	comment := models.Comment{Content: "spam", PostID: post.ID, AuthorID: owner.ID}
	db.Create(&comment)

	cookies := loginAs(t, router, admin.Email)
	w := doJSON(router, "DELETE", "/api/comments/"+itoa(comment.ID), "", cookies)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

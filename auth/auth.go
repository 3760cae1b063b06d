package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"heritage/apierror"
	"heritage/models"
)

const cookieMaxAge = 86400 * 7

var nowFunc = time.Now

type AuthModule struct {
	db     *gorm.DB
	secret []byte
}

func NewAuthModule(db *gorm.DB, secret string) *AuthModule {
	return &AuthModule{db: db, secret: []byte(secret)}
}

func (a *AuthModule) RegisterRoutes(router *gin.Engine) {
	limiter := NewIPRateLimiter(1, 5)

	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/register", RateLimitMiddleware(limiter), a.register)
		authGroup.POST("/login", RateLimitMiddleware(limiter), a.login)
		authGroup.POST("/validate-token", a.RequireAuth, a.validateToken)
	}
}

// RequireAuth reads the credential cookie, verifies the signature and then
// re-checks the user row: the embedded email and tokenVersion must still
// match, so a bumped tokenVersion rejects every older token.
func (a *AuthModule) RequireAuth(c *gin.Context) {
	tokenString, err := c.Cookie(CookieName)
	if err != nil || tokenString == "" {
		apierror.Abort(c, apierror.Authentication("not logged in"))
		return
	}

	claims, err := parseToken(tokenString, a.secret)
	if err != nil {
		apierror.Abort(c, apierror.Authentication("invalid token"))
		return
	}

	var user models.User
	if err := a.db.First(&user, "id = ?", claims.UserID).Error; err != nil {
		apierror.Abort(c, apierror.Authentication("user no longer exists"))
		return
	}

	if user.Email != claims.Email || user.TokenVersion != claims.TokenVersion {
		apierror.Abort(c, apierror.Authentication("credentials have changed"))
		return
	}

	c.Set("currentUser", &user)
	c.Next()
}

// RequireAdmin must run after RequireAuth.
func (a *AuthModule) RequireAdmin(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok || !user.IsAdmin {
		apierror.Abort(c, apierror.Authorization("only admins can do that"))
		return
	}
	c.Next()
}

// CurrentUser returns the authenticated user set by RequireAuth.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get("currentUser")
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"isAdmin"`
}

func (a *AuthModule) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Abort(c, apierror.Parameter("invalid request body"))
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		apierror.Abort(c, apierror.Parameter("name, email and password must not be empty"))
		return
	}

	var existing models.User
	if err := a.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		apierror.Abort(c, apierror.Conflict("email already registered"))
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		apierror.Abort(c, apierror.Internal("failed to hash password"))
		return
	}

	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hash,
		IsAdmin:  req.IsAdmin,
	}

	if err := a.db.Create(&user).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	c.Status(http.StatusNoContent)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *AuthModule) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Abort(c, apierror.Parameter("invalid request body"))
		return
	}

	var user models.User
	if err := a.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apierror.Abort(c, apierror.NotFound("user "+req.Email+" does not exist"))
			return
		}
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	if !checkPasswordHash(req.Password, user.Password) {
		apierror.Abort(c, apierror.Authentication("wrong email or password"))
		return
	}

	token, err := signToken(&user, a.secret)
	if err != nil {
		apierror.Abort(c, apierror.Internal("failed to sign token"))
		return
	}

	c.SetCookie(CookieName, token, cookieMaxAge, "/", "", false, true)
	c.JSON(http.StatusOK, user)
}

func (a *AuthModule) validateToken(c *gin.Context) {
	// RequireAuth already re-checked email and tokenVersion against the store.
	user, ok := CurrentUser(c)
	if !ok {
		apierror.Abort(c, apierror.Authentication("not logged in"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":      user.ID,
		"name":    user.Name,
		"email":   user.Email,
		"isAdmin": user.IsAdmin,
	})
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

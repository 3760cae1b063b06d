package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"heritage/apierror"
	"heritage/auth"
	"heritage/models"
	"heritage/posts"
)

const defaultCreatedPerPage = 20

type UserModule struct {
	db   *gorm.DB
	auth *auth.AuthModule
}

func NewUserModule(db *gorm.DB, authModule *auth.AuthModule) *UserModule {
	return &UserModule{db: db, auth: authModule}
}

func (m *UserModule) RegisterRoutes(router *gin.Engine) {
	userGroup := router.Group("/api/users")
	{
		userGroup.GET("/created/posts", m.auth.RequireAuth, m.getCreatedPosts)
		userGroup.GET("/created/comments", m.auth.RequireAuth, m.getCreatedComments)
		userGroup.POST("/histories", m.auth.RequireAuth, m.createViewHistory)
		userGroup.GET("/histories", m.auth.RequireAuth, m.getViewHistories)
		userGroup.GET("/", m.auth.RequireAuth, m.auth.RequireAdmin, m.listUsers)
		userGroup.GET("/:id", m.getUser)
		userGroup.PUT("/:id", m.auth.RequireAuth, m.updateUser)
		userGroup.DELETE("/:id", m.auth.RequireAuth, m.deleteUser)
	}
}

func (m *UserModule) listUsers(c *gin.Context) {
	var found []models.User
	if err := m.db.Find(&found).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}
	c.JSON(http.StatusOK, found)
}

func (m *UserModule) getUser(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		apierror.Abort(c, apierror.Parameter("no user UUID given"))
		return
	}

	var user models.User
	if err := m.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apierror.Abort(c, apierror.NotFound("user "+id+" does not exist"))
			return
		}
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	// public profile: no admin flag, no secrets
	c.JSON(http.StatusOK, gin.H{
		"id":        user.ID,
		"name":      user.Name,
		"email":     user.Email,
		"createdAt": user.CreatedAt,
	})
}

type updateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (m *UserModule) updateUser(c *gin.Context) {
	id := c.Param("id")

	caller, ok := auth.CurrentUser(c)
	if !ok {
		apierror.Abort(c, apierror.Authentication("not logged in"))
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Abort(c, apierror.Parameter("invalid request body"))
		return
	}

	if req.Email == "" {
		apierror.Abort(c, apierror.Parameter("no user email given"))
		return
	}

	var user models.User
	if err := m.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apierror.Abort(c, apierror.NotFound("user "+id+" does not exist"))
			return
		}
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	if user.ID != caller.ID && !caller.IsAdmin {
		apierror.Abort(c, apierror.Authorization("you can only update your own profile"))
		return
	}

	user.Name = req.Name
	user.Email = req.Email

	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 14)
		if err != nil {
			apierror.Abort(c, apierror.Internal("failed to hash password"))
			return
		}
		user.Password = string(hash)
		// a password change invalidates every issued token
		user.TokenVersion++
	}

	if err := m.db.Save(&user).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	c.JSON(http.StatusOK, user)
}

func (m *UserModule) deleteUser(c *gin.Context) {
	id := c.Param("id")

	caller, ok := auth.CurrentUser(c)
	if !ok {
		apierror.Abort(c, apierror.Authentication("not logged in"))
		return
	}

	if id != caller.ID && !caller.IsAdmin {
		apierror.Abort(c, apierror.Authorization("you can only delete your own account"))
		return
	}

	err := m.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierror.NotFound("user " + id + " does not exist")
			}
			return err
		}

		if err := tx.Where("author_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}

		var owned []models.Post
		if err := tx.Where("author_id = ?", id).Find(&owned).Error; err != nil {
			return err
		}
		for _, post := range owned {
			if err := posts.DeleteWithDependents(tx, post.ID, "", true); err != nil {
				return err
			}
		}

		if err := tx.Where("user_id = ?", id).Delete(&models.ViewHistory{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.User{}, "id = ?", id).Error
	})
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

package badges

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"heritage/apierror"
	"heritage/auth"
	"heritage/models"
)

type BadgeModule struct {
	db   *gorm.DB
	auth *auth.AuthModule
}

func NewBadgeModule(db *gorm.DB, authModule *auth.AuthModule) *BadgeModule {
	return &BadgeModule{db: db, auth: authModule}
}

func (m *BadgeModule) RegisterRoutes(router *gin.Engine) {
	badgeGroup := router.Group("/api/badges")
	{
		badgeGroup.GET("/", m.listBadges)
		badgeGroup.POST("/", m.auth.RequireAuth, m.auth.RequireAdmin, m.createBadge)
		badgeGroup.PUT("/:id", m.auth.RequireAuth, m.auth.RequireAdmin, m.updateBadge)
		badgeGroup.DELETE("/:id", m.auth.RequireAuth, m.auth.RequireAdmin, m.deleteBadge)
	}
}

func (m *BadgeModule) listBadges(c *gin.Context) {
	var badges []models.Badge
	if err := m.db.Find(&badges).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}
	c.JSON(http.StatusOK, badges)
}

type badgeRequest struct {
	Name      string `json:"name"`
	FaIcon    string `json:"faIcon"`
	IconColor string `json:"iconColor"`
}

func (m *BadgeModule) createBadge(c *gin.Context) {
	var req badgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Abort(c, apierror.Parameter("invalid request body"))
		return
	}

	if req.Name == "" {
		apierror.Abort(c, apierror.Parameter("name must not be empty"))
		return
	}

	badge := models.Badge{
		Name:      req.Name,
		FaIcon:    req.FaIcon,
		IconColor: req.IconColor,
	}

	if err := m.db.Create(&badge).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	c.JSON(http.StatusOK, badge)
}

func (m *BadgeModule) updateBadge(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		apierror.Abort(c, apierror.Parameter("invalid badge ID"))
		return
	}

	var req badgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Abort(c, apierror.Parameter("invalid request body"))
		return
	}

	var badge models.Badge
	if err := m.db.First(&badge, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apierror.Abort(c, apierror.NotFound("badge does not exist"))
			return
		}
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	badge.Name = req.Name
	badge.FaIcon = req.FaIcon
	if req.IconColor != "" {
		badge.IconColor = req.IconColor
	}

	if err := m.db.Save(&badge).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	c.JSON(http.StatusOK, badge)
}

func (m *BadgeModule) deleteBadge(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		apierror.Abort(c, apierror.Parameter("invalid badge ID"))
		return
	}

	result := m.db.Delete(&models.Badge{}, id)
	if result.Error != nil {
		apierror.Abort(c, apierror.Internal(result.Error.Error()))
		return
	}
	if result.RowsAffected == 0 {
		apierror.Abort(c, apierror.NotFound("badge does not exist"))
		return
	}

	c.Status(http.StatusNoContent)
}

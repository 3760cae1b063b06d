package tags

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

type TagModule struct {
	db   *gorm.DB
	auth *auth.AuthModule
}

func NewTagModule(db *gorm.DB, authModule *auth.AuthModule) *TagModule {
	return &TagModule{db: db, auth: authModule}
}

func (m *TagModule) RegisterRoutes(router *gin.Engine) {
	tagGroup := router.Group("/api/tags")
	{
		tagGroup.GET("/", m.listTags)
		tagGroup.POST("/", m.auth.RequireAuth, m.auth.RequireAdmin, m.createTag)
		tagGroup.PUT("/:id", m.auth.RequireAuth, m.auth.RequireAdmin, m.updateTag)
		tagGroup.DELETE("/:id", m.auth.RequireAuth, m.auth.RequireAdmin, m.deleteTag)
	}
}

func (m *TagModule) listTags(c *gin.Context) {
	var tags []models.Tag
	if err := m.db.Find(&tags).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}
	c.JSON(http.StatusOK, tags)
}

type tagRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	FaIcon      string `json:"faIcon"`
	IconColor   string `json:"iconColor"`
}

func (m *TagModule) createTag(c *gin.Context) {
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Abort(c, apierror.Parameter("invalid request body"))
		return
	}

	if req.Title == "" {
		apierror.Abort(c, apierror.Parameter("title must not be empty"))
		return
	}

	tag := models.Tag{
		Title:       req.Title,
		Description: req.Description,
		FaIcon:      req.FaIcon,
		IconColor:   req.IconColor,
	}

	if err := m.db.Create(&tag).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	c.JSON(http.StatusOK, tag)
}

func (m *TagModule) updateTag(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		apierror.Abort(c, apierror.Parameter("invalid tag ID"))
		return
	}

	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Abort(c, apierror.Parameter("invalid request body"))
		return
	}

	var tag models.Tag
	if err := m.db.First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apierror.Abort(c, apierror.NotFound("tag does not exist"))
			return
		}
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	tag.Title = req.Title
	tag.FaIcon = req.FaIcon
	if req.Description != "" {
		tag.Description = req.Description
	}
	if req.IconColor != "" {
		tag.IconColor = req.IconColor
	}

	if err := m.db.Save(&tag).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	c.JSON(http.StatusOK, tag)
}

func (m *TagModule) deleteTag(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		apierror.Abort(c, apierror.Parameter("invalid tag ID"))
		return
	}

	result := m.db.Delete(&models.Tag{}, id)
	if result.Error != nil {
		apierror.Abort(c, apierror.Internal(result.Error.Error()))
		return
	}
	if result.RowsAffected == 0 {
		apierror.Abort(c, apierror.NotFound("tag does not exist"))
		return
	}

	c.Status(http.StatusNoContent)
}

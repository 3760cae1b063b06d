package users

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"heritage/apierror"
	"heritage/auth"
	"heritage/common"
	"heritage/models"
	"heritage/posts"
)

const (
	defaultHistoriesPerPage = 50

	// maxHistories caps the retained view history per user. Recording a view
	// beyond the cap evicts the oldest entries first.
	maxHistories = 500
)

type viewHistoryRequest struct {
	PostID uint `json:"postId"`
}

func (m *UserModule) createViewHistory(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		apierror.Abort(c, apierror.Authentication("not logged in"))
		return
	}

	var req viewHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PostID == 0 {
		apierror.Abort(c, apierror.Parameter("invalid post ID"))
		return
	}

	entry := models.ViewHistory{
		UserID: user.ID,
		PostID: &req.PostID,
		Time:   time.Now(),
	}

	err := m.db.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, req.PostID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierror.NotFound("post does not exist")
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.ViewHistory{}).
			Where("user_id = ?", user.ID).
			Count(&count).Error; err != nil {
			return err
		}

		if count >= maxHistories {
			// trim down to maxHistories-1 so the insert lands exactly at the cap
			var oldest []models.ViewHistory
			if err := tx.Where("user_id = ?", user.ID).
				Order("time ASC").
				Limit(int(count) - (maxHistories - 1)).
				Find(&oldest).Error; err != nil {
				return err
			}
			ids := make([]uint, 0, len(oldest))
			for _, old := range oldest {
				ids = append(ids, old.ID)
			}
			if err := tx.Delete(&models.ViewHistory{}, ids).Error; err != nil {
				return err
			}
		}

		return tx.Create(&entry).Error
	})
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

func (m *UserModule) getViewHistories(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		apierror.Abort(c, apierror.Authentication("not logged in"))
		return
	}

	params, err := common.ParsePageParams(c, defaultHistoriesPerPage)
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	var total int64
	if err := m.db.Model(&models.ViewHistory{}).
		Where("user_id = ?", user.ID).
		Count(&total).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	var entries []models.ViewHistory
	if err := m.db.Where("user_id = ?", user.ID).
		Order("time DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&entries).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	views := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		view := gin.H{
			"id":   entry.ID,
			"time": entry.Time,
			"post": nil,
		}
		// the post reference is nulled when a post is deleted; the history
		// entry itself survives
		if entry.PostID != nil {
			var post models.Post
			if err := m.db.First(&post, *entry.PostID).Error; err == nil {
				snapshot := posts.BuildView(m.db, post)
				view["post"] = gin.H{
					"id":          post.ID,
					"title":       post.Title,
					"createdAt":   post.CreatedAt,
					"publishedAt": post.PublishedAt,
					"author":      snapshot.Author,
					"tags":        snapshot.Tags,
					"badges":      snapshot.Badges,
				}
			}
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{
		"histories":      views,
		"page":           params.Page,
		"totalPages":     params.TotalPages(total),
		"totalHistories": total,
	})
}

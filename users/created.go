package users

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"heritage/apierror"
	"heritage/auth"
	"heritage/common"
	"heritage/models"
	"heritage/posts"
)

// createdScope filters the caller's own posts with the same published/tag
// semantics as the public listing.
func createdScope(authorID string, published bool, tagID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("posts.author_id = ? AND posts.published = ?", authorID, published)
		if tagID != 0 {
			db = db.Joins("INNER JOIN post_tags ON post_tags.post_id = posts.id").
				Where("post_tags.tag_id = ?", tagID)
		}
		return db
	}
}

func (m *UserModule) getCreatedPosts(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		apierror.Abort(c, apierror.Authentication("not logged in"))
		return
	}

	params, err := common.ParsePageParams(c, defaultCreatedPerPage)
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	published := c.Query("published") == "true"

	var tagID uint
	if raw := c.Query("tag"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			apierror.Abort(c, apierror.Parameter("invalid tag parameter"))
			return
		}
		tagID = uint(parsed)
	}

	scope := createdScope(user.ID, published, tagID)

	var total int64
	if err := m.db.Model(&models.Post{}).Scopes(scope).Count(&total).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	var found []models.Post
	if err := m.db.Model(&models.Post{}).Scopes(scope).
		Order("posts.created_at DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&found).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	views := make([]posts.PostView, 0, len(found))
	for _, post := range found {
		views = append(views, posts.BuildView(m.db, post))
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":      views,
		"page":       params.Page,
		"totalPages": params.TotalPages(total),
		"totalPosts": total,
	})
}

func (m *UserModule) getCreatedComments(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		apierror.Abort(c, apierror.Authentication("not logged in"))
		return
	}

	params, err := common.ParsePageParams(c, defaultCreatedPerPage)
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	var total int64
	if err := m.db.Model(&models.Comment{}).
		Where("author_id = ?", user.ID).
		Count(&total).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	var found []models.Comment
	if err := m.db.Where("author_id = ?", user.ID).
		Order("created_at DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&found).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	views := make([]posts.CommentView, 0, len(found))
	for _, comment := range found {
		views = append(views, posts.CommentView{
			Comment: comment,
			Author:  posts.LoadAuthor(m.db, comment.AuthorID),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"comments":      views,
		"page":          params.Page,
		"totalPages":    params.TotalPages(total),
		"totalComments": total,
	})
}

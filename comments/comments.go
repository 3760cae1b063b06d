package comments

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"heritage/apierror"
	"heritage/auth"
	"heritage/models"
	"heritage/posts"
)

type CommentModule struct {
	db   *gorm.DB
	auth *auth.AuthModule
}

func NewCommentModule(db *gorm.DB, authModule *auth.AuthModule) *CommentModule {
	return &CommentModule{db: db, auth: authModule}
}

func (m *CommentModule) RegisterRoutes(router *gin.Engine) {
	commentGroup := router.Group("/api/comments")
	commentGroup.Use(m.auth.RequireAuth)
	{
		commentGroup.GET("/", m.listThreaded)
		commentGroup.POST("/", m.createComment)
		commentGroup.PUT("/:id", m.updateComment)
		commentGroup.DELETE("/:id", m.deleteComment)
	}
}

// ThreadedComment is a top-level comment carrying its direct replies. Threads
// are two levels deep: replies always reference a top-level comment.
type ThreadedComment struct {
	models.Comment
	Author   posts.AuthorInfo    `json:"author"`
	Children []posts.CommentView `json:"children"`
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, apierror.Parameter("invalid comment ID")
	}
	return uint(id), nil
}

// listThreaded returns a post's top-level comments newest-first, each with
// its replies in creation order.
func (m *CommentModule) listThreaded(c *gin.Context) {
	postID, err := strconv.ParseUint(c.Query("postId"), 10, 32)
	if err != nil || postID == 0 {
		apierror.Abort(c, apierror.Parameter("invalid post ID"))
		return
	}

	var topLevel []models.Comment
	if err := m.db.Where("post_id = ? AND parent_id IS NULL", postID).
		Order("created_at DESC").
		Find(&topLevel).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	threads := make([]ThreadedComment, 0, len(topLevel))
	for _, comment := range topLevel {
		var replies []models.Comment
		if err := m.db.Where("parent_id = ?", comment.ID).
			Order("created_at ASC").
			Find(&replies).Error; err != nil {
			apierror.Abort(c, apierror.Internal(err.Error()))
			return
		}

		children := make([]posts.CommentView, 0, len(replies))
		for _, reply := range replies {
			children = append(children, posts.CommentView{
				Comment: reply,
				Author:  posts.LoadAuthor(m.db, reply.AuthorID),
			})
		}

		threads = append(threads, ThreadedComment{
			Comment:  comment,
			Author:   posts.LoadAuthor(m.db, comment.AuthorID),
			Children: children,
		})
	}

	c.JSON(http.StatusOK, threads)
}

type commentRequest struct {
	Content  string `json:"content"`
	PostID   uint   `json:"postId"`
	ParentID *uint  `json:"parentId"`
}

type parentInfo struct {
	ID      uint   `json:"id"`
	Content string `json:"content"`
}

func (m *CommentModule) createComment(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		apierror.Abort(c, apierror.Authentication("not logged in"))
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Abort(c, apierror.Parameter("invalid request body"))
		return
	}

	if req.Content == "" || req.PostID == 0 {
		apierror.Abort(c, apierror.Parameter("content and post ID must not be empty"))
		return
	}

	comment := models.Comment{
		Content:  req.Content,
		PostID:   req.PostID,
		AuthorID: user.ID,
		ParentID: req.ParentID,
	}

	var parent *parentInfo
	err := m.db.Transaction(func(tx *gorm.DB) error {
		var target models.Post
		if err := tx.First(&target, req.PostID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierror.NotFound("post does not exist")
			}
			return err
		}

		if !target.Published {
			return apierror.Conflict("you cannot comment on a draft")
		}

		if req.ParentID != nil {
			var parentComment models.Comment
			if err := tx.First(&parentComment, *req.ParentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apierror.Parameter("parent comment does not exist")
				}
				return err
			}
			if parentComment.PostID != req.PostID {
				return apierror.Parameter("parent comment belongs to another post")
			}
			if parentComment.ParentID != nil {
				return apierror.Parameter("replies to replies are not supported")
			}
			parent = &parentInfo{ID: parentComment.ID, Content: parentComment.Content}
		}

		return tx.Create(&comment).Error
	})
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        comment.ID,
		"content":   comment.Content,
		"postId":    comment.PostID,
		"authorId":  comment.AuthorID,
		"parentId":  comment.ParentID,
		"createdAt": comment.CreatedAt,
		"updatedAt": comment.UpdatedAt,
		"author":    posts.LoadAuthor(m.db, comment.AuthorID),
		"parent":    parent,
	})
}

func (m *CommentModule) updateComment(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	user, ok := auth.CurrentUser(c)
	if !ok {
		apierror.Abort(c, apierror.Authentication("not logged in"))
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Abort(c, apierror.Parameter("invalid request body"))
		return
	}

	var updated models.Comment
	err = m.db.Transaction(func(tx *gorm.DB) error {
		var target models.Comment
		if err := tx.First(&target, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierror.NotFound("comment does not exist")
			}
			return err
		}

		if target.AuthorID != user.ID && !user.IsAdmin {
			return apierror.Authorization("you can only update your own comments")
		}

		target.Content = req.Content
		if err := tx.Save(&target).Error; err != nil {
			return err
		}

		updated = target
		return nil
	})
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, posts.CommentView{Comment: updated, Author: posts.LoadAuthor(m.db, updated.AuthorID)})
}

// deleteComment removes a comment and cascades to its direct replies. The
// alternative (orphaning replies by nulling their parent) was considered and
// rejected: dangling replies never show up in the threaded listing.
func (m *CommentModule) deleteComment(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	user, ok := auth.CurrentUser(c)
	if !ok {
		apierror.Abort(c, apierror.Authentication("not logged in"))
		return
	}

	err = m.db.Transaction(func(tx *gorm.DB) error {
		var target models.Comment
		if err := tx.First(&target, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierror.NotFound("comment does not exist")
			}
			return err
		}

		if target.AuthorID != user.ID && !user.IsAdmin {
			return apierror.Authorization("you can only delete your own comments")
		}

		if err := tx.Where("parent_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Comment{}, id).Error
	})
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

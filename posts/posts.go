package posts

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"heritage/apierror"
	"heritage/auth"
	"heritage/cache"
	"heritage/common"
	"heritage/models"
)

const defaultPostsPerPage = 20
const defaultCommentsPerPage = 10

type PostModule struct {
	db   *gorm.DB
	auth *auth.AuthModule
}

func NewPostModule(db *gorm.DB, authModule *auth.AuthModule) *PostModule {
	return &PostModule{db: db, auth: authModule}
}

func (p *PostModule) RegisterRoutes(router *gin.Engine) {
	postGroup := router.Group("/api/posts")
	{
		postGroup.GET("/", p.listPosts)
		postGroup.GET("/:id", p.getPost)
		postGroup.GET("/:id/comments", p.listComments)
		postGroup.GET("/:id/tags", p.getTags)
		postGroup.GET("/:id/badges", p.getBadges)
		postGroup.GET("/:id/comment-amount", p.getCommentAmount)
		postGroup.GET("/:id/latest-comment", p.getLatestComment)
		postGroup.POST("/", p.auth.RequireAuth, p.createPost)
		postGroup.PUT("/:id", p.auth.RequireAuth, p.updatePost)
		postGroup.DELETE("/:id", p.auth.RequireAuth, p.deletePost)
	}
}

// AuthorInfo is the public slice of a user attached to posts and comments.
type AuthorInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PostView is a post with its author and flattened tag/badge id sets.
type PostView struct {
	models.Post
	Author      AuthorInfo `json:"author"`
	Tags        []uint     `json:"tags"`
	Badges      []uint     `json:"badges"`
	ContentHTML string     `json:"contentHtml,omitempty"`
}

// CommentView pairs a comment with its author's public info.
type CommentView struct {
	models.Comment
	Author AuthorInfo `json:"author"`
}

// LoadAuthor fetches the public author info for an author id.
func LoadAuthor(db *gorm.DB, authorID string) AuthorInfo {
	var user models.User
	if err := db.First(&user, "id = ?", authorID).Error; err != nil {
		return AuthorInfo{ID: authorID}
	}
	return AuthorInfo{ID: user.ID, Name: user.Name, Email: user.Email}
}

func tagIDs(db *gorm.DB, postID uint) []uint {
	var joins []models.PostTag
	db.Where("post_id = ?", postID).Find(&joins)
	ids := make([]uint, 0, len(joins))
	for _, join := range joins {
		ids = append(ids, join.TagID)
	}
	return ids
}

func badgeIDs(db *gorm.DB, postID uint) []uint {
	var joins []models.PostBadge
	db.Where("post_id = ?", postID).Find(&joins)
	ids := make([]uint, 0, len(joins))
	for _, join := range joins {
		ids = append(ids, join.BadgeID)
	}
	return ids
}

// BuildView assembles the public view of a post: author info plus the ids of
// its tags and badges.
func BuildView(db *gorm.DB, post models.Post) PostView {
	return PostView{
		Post:   post,
		Author: LoadAuthor(db, post.AuthorID),
		Tags:   tagIDs(db, post.ID),
		Badges: badgeIDs(db, post.ID),
	}
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, apierror.Parameter("invalid post ID")
	}
	return uint(id), nil
}

// listScope applies the published/tag/content filters shared by Count and Find.
func listScope(published bool, tagID uint, content string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("posts.published = ?", published)
		if content != "" {
			like := "%" + content + "%"
			db = db.Where("posts.title LIKE ? OR posts.content LIKE ?", like, like)
		}
		if tagID != 0 {
			db = db.Joins("INNER JOIN post_tags ON post_tags.post_id = posts.id").
				Where("post_tags.tag_id = ?", tagID)
		}
		return db
	}
}

func (p *PostModule) listPosts(c *gin.Context) {
	params, err := common.ParsePageParams(c, defaultPostsPerPage)
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	published := c.Query("published") == "true"
	content := c.Query("content")

	var tagID uint
	if raw := c.Query("tag"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			apierror.Abort(c, apierror.Parameter("invalid tag parameter"))
			return
		}
		tagID = uint(parsed)
	}

	scope := listScope(published, tagID, content)

	var total int64
	if err := p.db.Model(&models.Post{}).Scopes(scope).Count(&total).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	var found []models.Post
	if err := p.db.Model(&models.Post{}).Scopes(scope).
		Order("posts.created_at DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&found).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	views := make([]PostView, 0, len(found))
	for _, post := range found {
		views = append(views, BuildView(p.db, post))
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":      views,
		"page":       params.Page,
		"totalPages": params.TotalPages(total),
		"totalPosts": total,
	})
}

func (p *PostModule) getPost(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	var post models.Post
	if err := p.db.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apierror.Abort(c, apierror.NotFound("post "+c.Param("id")+" does not exist"))
			return
		}
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	view := BuildView(p.db, post)
	view.ContentHTML = renderedContent(&post)
	c.JSON(http.StatusOK, view)
}

type postRequest struct {
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Published bool       `json:"published"`
	CreatedAt *time.Time `json:"createdAt"`
	Heritages []int64    `json:"heritages"`
	Tags      []uint     `json:"tags"`
	Badges    []uint     `json:"badges"`
}

func (p *PostModule) createPost(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		apierror.Abort(c, apierror.Authentication("not logged in"))
		return
	}

	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Abort(c, apierror.Parameter("invalid request body"))
		return
	}

	if req.Title == "" {
		apierror.Abort(c, apierror.Parameter("title must not be empty"))
		return
	}

	post := models.Post{
		Title:     req.Title,
		Content:   req.Content,
		Published: req.Published,
		AuthorID:  user.ID,
		Heritages: req.Heritages,
	}
	if req.CreatedAt != nil {
		post.CreatedAt = *req.CreatedAt
	}
	if req.Published {
		now := time.Now()
		post.PublishedAt = &now
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		return replaceJoins(tx, post.ID, req.Tags, req.Badges)
	})
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, BuildView(p.db, post))
}

func (p *PostModule) updatePost(c *gin.Context) {
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

	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Abort(c, apierror.Parameter("invalid request body"))
		return
	}

	var updated models.Post
	err = p.db.Transaction(func(tx *gorm.DB) error {
		var target models.Post
		if err := tx.First(&target, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierror.NotFound("post does not exist")
			}
			return err
		}

		if target.AuthorID != user.ID && !user.IsAdmin {
			return apierror.Authorization("you can only edit your own posts")
		}

		target.Title = req.Title
		target.Content = req.Content
		target.Heritages = req.Heritages
		// publishedAt is written exactly once, at the first publish; an
		// unpublish/republish cycle keeps the original date
		if req.Published && target.PublishedAt == nil {
			now := time.Now()
			target.PublishedAt = &now
		}
		target.Published = req.Published

		if err := tx.Save(&target).Error; err != nil {
			return err
		}

		if err := replaceJoins(tx, target.ID, req.Tags, req.Badges); err != nil {
			return err
		}

		updated = target
		return nil
	})
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	if err := cache.ClearPost(updated.ID); err != nil {
		log.Printf("Error clearing render cache for post %d: %v", updated.ID, err)
	}

	c.JSON(http.StatusOK, BuildView(p.db, updated))
}

// replaceJoins swaps a post's full tag and badge sets. Existing join rows go
// first so re-assignment never duplicates.
func replaceJoins(tx *gorm.DB, postID uint, tags []uint, badges []uint) error {
	if err := tx.Where("post_id = ?", postID).Delete(&models.PostTag{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", postID).Delete(&models.PostBadge{}).Error; err != nil {
		return err
	}
	for _, tagID := range tags {
		if err := tx.Create(&models.PostTag{PostID: postID, TagID: tagID}).Error; err != nil {
			return err
		}
	}
	for _, badgeID := range badges {
		if err := tx.Create(&models.PostBadge{PostID: postID, BadgeID: badgeID}).Error; err != nil {
			return err
		}
	}
	return nil
}

func (p *PostModule) deletePost(c *gin.Context) {
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

	err = p.db.Transaction(func(tx *gorm.DB) error {
		return DeleteWithDependents(tx, id, user.ID, user.IsAdmin)
	})
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	if err := cache.ClearPost(id); err != nil {
		log.Printf("Error clearing render cache for post %d: %v", id, err)
	}

	c.Status(http.StatusNoContent)
}

// DeleteWithDependents removes a post and every dependent row inside the
// caller's transaction. View history rows are kept with their postId nulled.
// Pass ownerID "" to skip the ownership check (already-authorized cascades).
func DeleteWithDependents(tx *gorm.DB, postID uint, ownerID string, isAdmin bool) error {
	var target models.Post
	if err := tx.First(&target, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFound("post does not exist")
		}
		return err
	}

	if ownerID != "" && target.AuthorID != ownerID && !isAdmin {
		return apierror.Authorization("you can only delete your own posts")
	}

	if err := tx.Model(&models.ViewHistory{}).Where("post_id = ?", postID).
		Update("post_id", nil).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", postID).Delete(&models.PostTag{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", postID).Delete(&models.PostBadge{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Post{}, postID).Error
}

// listComments is the flat, ascending page over a post's comments. The
// threaded listing under /api/comments is a deliberately different shape.
func (p *PostModule) listComments(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	params, err := common.ParsePageParams(c, defaultCommentsPerPage)
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	var total int64
	if err := p.db.Model(&models.Comment{}).Where("post_id = ?", id).Count(&total).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	var found []models.Comment
	if err := p.db.Where("post_id = ?", id).
		Order("created_at ASC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&found).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	views := make([]CommentView, 0, len(found))
	for _, comment := range found {
		views = append(views, CommentView{Comment: comment, Author: LoadAuthor(p.db, comment.AuthorID)})
	}

	c.JSON(http.StatusOK, gin.H{
		"comments":      views,
		"page":          params.Page,
		"totalPages":    params.TotalPages(total),
		"totalComments": total,
	})
}

func (p *PostModule) getTags(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	var tags []models.Tag
	if err := p.db.Table("tags").
		Joins("INNER JOIN post_tags ON tags.id = post_tags.tag_id").
		Where("post_tags.post_id = ?", id).
		Find(&tags).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	c.JSON(http.StatusOK, tags)
}

func (p *PostModule) getBadges(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	var badges []models.Badge
	if err := p.db.Table("badges").
		Joins("INNER JOIN post_badges ON badges.id = post_badges.badge_id").
		Where("post_badges.post_id = ?", id).
		Find(&badges).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	c.JSON(http.StatusOK, badges)
}

func (p *PostModule) getCommentAmount(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	var amount int64
	if err := p.db.Model(&models.Comment{}).Where("post_id = ?", id).Count(&amount).Error; err != nil {
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	c.JSON(http.StatusOK, amount)
}

func (p *PostModule) getLatestComment(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		apierror.Abort(c, err)
		return
	}

	var latest models.Comment
	if err := p.db.Where("post_id = ?", id).Order("created_at DESC").First(&latest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, nil)
			return
		}
		apierror.Abort(c, apierror.Internal(err.Error()))
		return
	}

	c.JSON(http.StatusOK, CommentView{Comment: latest, Author: LoadAuthor(p.db, latest.AuthorID)})
}

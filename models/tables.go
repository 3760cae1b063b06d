package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           string    `gorm:"primary_key" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"unique;not null" json:"email"`
	Password     string    `gorm:"not null" json:"-"` // bcrypt hash, never serialized
	IsAdmin      bool      `gorm:"default:false" json:"isAdmin"`
	TokenVersion int       `gorm:"default:0" json:"-"` // bumping it invalidates every issued token
	CreatedAt    time.Time `json:"createdAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type Post struct {
	ID          uint       `gorm:"primary_key" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Content     string     `gorm:"type:text" json:"content"`
	Published   bool       `gorm:"default:false;index" json:"published"`
	CreatedAt   time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	PublishedAt *time.Time `json:"publishedAt"` // set once, at the first publish
	AuthorID    string     `gorm:"not null;index" json:"authorId"`
	Heritages   []int64    `gorm:"serializer:json" json:"heritages"` // opaque ids into a static client-side list
}

type Comment struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	PostID    uint      `gorm:"not null;index" json:"postId"`
	AuthorID  string    `gorm:"not null;index" json:"authorId"`
	ParentID  *uint     `gorm:"index" json:"parentId"` // nil for top-level; replies reference a top-level comment
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Tag struct {
	ID          uint   `gorm:"primary_key" json:"id"`
	Title       string `gorm:"not null;index" json:"title"`
	Description string `json:"description"`
	FaIcon      string `json:"faIcon"`
	IconColor   string `json:"iconColor"`
}

type Badge struct {
	ID        uint   `gorm:"primary_key" json:"id"`
	Name      string `gorm:"not null;index" json:"name"`
	FaIcon    string `json:"faIcon"`
	IconColor string `json:"iconColor"`
}

type PostTag struct {
	ID     uint `gorm:"primary_key" json:"id"`
	PostID uint `gorm:"not null;index" json:"post_id"`
	TagID  uint `gorm:"not null;index" json:"tag_id"`
}

type PostBadge struct {
	ID      uint `gorm:"primary_key" json:"id"`
	PostID  uint `gorm:"not null;index" json:"post_id"`
	BadgeID uint `gorm:"not null;index" json:"badge_id"`
}

// ViewHistory rows survive post deletion: PostID is nulled instead of the
// row being removed, so the history list keeps its place.
type ViewHistory struct {
	ID     uint      `gorm:"primary_key" json:"id"`
	UserID string    `gorm:"not null;index" json:"userId"`
	PostID *uint     `gorm:"index" json:"postId"`
	Time   time.Time `gorm:"index" json:"time"`
}

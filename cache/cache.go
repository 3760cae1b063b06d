// Package cache keeps rendered post HTML on disk so markdown conversion only
// happens once per revision. Keys embed the post's update time, so a newer
// revision never reads an older file.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Dir is the cache root. Tests point it at a temp directory.
var Dir = "cache"

// PostCachePath returns the cache file path for one revision of a post.
func PostCachePath(postID uint, updatedAt time.Time) string {
	hash := xxhash.Sum64String(fmt.Sprintf("%d:%d", postID, updatedAt.UnixNano()))
	name := fmt.Sprintf("%d_%016x.html", postID, hash)
	return filepath.Join(Dir, "posts", name)
}

func ensureDir() error {
	return os.MkdirAll(filepath.Join(Dir, "posts"), 0755)
}

// WritePost stores rendered HTML for a post revision.
func WritePost(postID uint, updatedAt time.Time, html string) error {
	if err := ensureDir(); err != nil {
		return err
	}
	return os.WriteFile(PostCachePath(postID, updatedAt), []byte(html), 0644)
}

// ReadPost returns the cached HTML for a post revision, if present.
func ReadPost(postID uint, updatedAt time.Time) (string, bool) {
	content, err := os.ReadFile(PostCachePath(postID, updatedAt))
	if err != nil {
		return "", false
	}
	return string(content), true
}

// ClearPost removes every cached revision of a post.
func ClearPost(postID uint) error {
	pattern := filepath.Join(Dir, "posts", fmt.Sprintf("%d_*.html", postID))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// ClearAll removes the whole cache tree.
func ClearAll() error {
	return os.RemoveAll(filepath.Join(Dir, "posts"))
}

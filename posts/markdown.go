package posts

import (
	"bytes"
	"log"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"

	"heritage/cache"
	"heritage/models"
)

// markdown renderer configured with Goldmark and useful extensions
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,     // tables, strikethrough, task lists, autolinks (GFM set)
		extension.Linkify, // linkify raw URLs
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithUnsafe(), // allow raw HTML passthrough in Markdown
	),
)

func renderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		// on failure, fall back to the raw content
		return content
	}
	return buf.String()
}

// renderedContent returns the post's HTML, reading the render cache first.
func renderedContent(post *models.Post) string {
	if html, ok := cache.ReadPost(post.ID, post.UpdatedAt); ok {
		return html
	}
	html := renderMarkdown(post.Content)
	if err := cache.WritePost(post.ID, post.UpdatedAt, html); err != nil {
		log.Printf("Error writing render cache for post %d: %v", post.ID, err)
	}
	return html
}

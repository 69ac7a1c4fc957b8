package downblog

import (
	"encoding/json"
	"strings"
	"time"
)

// Field names of a post, as used in queries and on the wire.
const (
	FieldID           = "id"
	FieldTitle        = "title"
	FieldText         = "text"
	FieldAuthor       = "author"
	FieldSlug         = "slug"
	FieldCreatedAt    = "createdAt"
	FieldLastModified = "lastModified"
)

// Post represents a single blog article
type Post struct {
	ID           string    `json:"id" bson:"id" yaml:"id" toml:"id"`                                         // ID is the unique, immutable identifier
	Title        string    `json:"title" bson:"title" yaml:"title" toml:"title"`                             // Title is the title of the post
	Text         string    `json:"text,omitempty" bson:"text,omitempty" yaml:"text" toml:"text"`             // Text is the full body. Empty in list projections.
	Author       string    `json:"author" bson:"author" yaml:"author" toml:"author"`                         // Author is the author name
	Slug         string    `json:"slug" bson:"slug" yaml:"slug" toml:"slug"`                                 // Slug is the URL-friendly version of the title
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt" yaml:"createdAt" toml:"createdAt"`             // CreatedAt is set once at creation
	LastModified time.Time `json:"lastModified" bson:"lastModified" yaml:"lastModified" toml:"lastModified"` // LastModified is set at creation and on every edit
}

// PostFields holds the user-editable fields of a post, as submitted or edited.
type PostFields struct {
	Title  string `json:"title" yaml:"title" toml:"title"`
	Text   string `json:"text" yaml:"text" toml:"text"`
	Author string `json:"author" yaml:"author" toml:"author"`
}

// PostUpdate is the full set of fields replaced by an edit.
type PostUpdate struct {
	Title        string
	Text         string
	Author       string
	Slug         string
	LastModified time.Time
}

// Validate checks that title, text and author are present, in that order, and
// returns a ValidationError naming the first field that is not.
func (f *PostFields) Validate() error {
	checks := []struct {
		field string
		value string
	}{
		{FieldTitle, f.Title},
		{FieldText, f.Text},
		{FieldAuthor, f.Author},
	}

	for _, check := range checks {
		if strings.TrimSpace(check.value) == "" {
			return NewValidationError(check.field, "input field "+check.field+" is not valid")
		}
	}

	return nil
}

// HasText returns true if the post carries its body
func (p *Post) HasText() bool {
	return p.Text != ""
}

// WithoutText returns a copy of the post with the body stripped.
func (p *Post) WithoutText() *Post {
	cp := *p
	cp.Text = ""
	return &cp
}

// Clone returns a copy of the post.
func (p *Post) Clone() *Post {
	cp := *p
	return &cp
}

// Apply returns a copy of the post with the update applied.
func (p *Post) Apply(update PostUpdate) *Post {
	cp := *p
	cp.Title = update.Title
	cp.Text = update.Text
	cp.Author = update.Author
	cp.Slug = update.Slug
	cp.LastModified = update.LastModified
	return &cp
}

// Serialize serializes the post to a byte slice
func (p *Post) Serialize() ([]byte, error) {
	return json.Marshal(p)
}

// Deserialize deserializes the byte slice to a post
func Deserialize(data []byte) (*Post, error) {
	var post Post
	err := json.Unmarshal(data, &post)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

// Package post defines the Post entity and its metadata encoding inside the
// vector index.
package post

import (
	"fmt"
	"strings"
	"time"

	recerr "github.com/expertbridge/postrec/pkg/errors"
)

// Metadata keys under which a Post's non-content fields are stored.
const (
	KeyTitle     = "title"
	KeyTags      = "tags"
	KeyLanguage  = "language"
	KeyCreatedAt = "created_at"
)

// Post is a short text document together with its display metadata.
// Content is the only field that is embedded.
type Post struct {
	UUID      string    `json:"uuid"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the fields a caller must supply before insertion.
func (p Post) Validate() error {
	if strings.TrimSpace(p.UUID) == "" {
		return recerr.New(recerr.CodeRecommendPostInvalid, "post: uuid is required")
	}
	if strings.TrimSpace(p.Content) == "" {
		return recerr.New(recerr.CodeRecommendPostInvalid, "post: content is required",
			recerr.FieldPostID(p.UUID))
	}
	return nil
}

// Metadata returns the index metadata for p. Tags are stored exactly as
// given and the creation time keeps its UTC offset.
func (p Post) Metadata() map[string]any {
	tags := append([]string{}, p.Tags...)
	return map[string]any{
		KeyTitle:     p.Title,
		KeyTags:      tags,
		KeyLanguage:  p.Language,
		KeyCreatedAt: p.CreatedAt.Format(time.RFC3339Nano),
	}
}

// FromRecord rebuilds a Post from an index record. A missing or mistyped
// metadata field is reported as a corrupt record.
func FromRecord(id, text string, metadata map[string]any) (Post, error) {
	title, err := stringField(id, metadata, KeyTitle)
	if err != nil {
		return Post{}, err
	}
	language, err := stringField(id, metadata, KeyLanguage)
	if err != nil {
		return Post{}, err
	}
	created, err := stringField(id, metadata, KeyCreatedAt)
	if err != nil {
		return Post{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Post{}, recerr.Wrap(err, recerr.CodeIndexRecordCorrupt,
			fmt.Sprintf("record %s: malformed %s", id, KeyCreatedAt), recerr.FieldPostID(id))
	}
	tags, err := tagsField(id, metadata)
	if err != nil {
		return Post{}, err
	}

	return Post{
		UUID:      id,
		Title:     title,
		Content:   text,
		Tags:      tags,
		Language:  language,
		CreatedAt: createdAt,
	}, nil
}

func stringField(id string, metadata map[string]any, key string) (string, error) {
	raw, ok := metadata[key]
	if !ok {
		return "", recerr.New(recerr.CodeIndexRecordCorrupt,
			fmt.Sprintf("record %s: missing metadata field %q", id, key), recerr.FieldPostID(id))
	}
	s, ok := raw.(string)
	if !ok {
		return "", recerr.New(recerr.CodeIndexRecordCorrupt,
			fmt.Sprintf("record %s: metadata field %q is %T, want string", id, key, raw), recerr.FieldPostID(id))
	}
	return s, nil
}

func tagsField(id string, metadata map[string]any) ([]string, error) {
	raw, ok := metadata[KeyTags]
	if !ok {
		return nil, recerr.New(recerr.CodeIndexRecordCorrupt,
			fmt.Sprintf("record %s: missing metadata field %q", id, KeyTags), recerr.FieldPostID(id))
	}

	switch v := raw.(type) {
	case []string:
		return append([]string{}, v...), nil
	case []any:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, recerr.New(recerr.CodeIndexRecordCorrupt,
					fmt.Sprintf("record %s: tag %v is %T, want string", id, item, item), recerr.FieldPostID(id))
			}
			tags = append(tags, s)
		}
		return tags, nil
	default:
		return nil, recerr.New(recerr.CodeIndexRecordCorrupt,
			fmt.Sprintf("record %s: metadata field %q is %T, want list", id, KeyTags, raw), recerr.FieldPostID(id))
	}
}

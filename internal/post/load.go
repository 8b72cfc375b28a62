// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package post

import (
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	recerr "github.com/expertbridge/postrec/pkg/errors"
)

// seedPost is the on-disk form of a post in an import file. created_at is
// kept as a string so that JSON and YAML inputs parse the same way.
type seedPost struct {
	UUID      string   `yaml:"uuid"`
	Title     string   `yaml:"title"`
	Content   string   `yaml:"content"`
	Tags      []string `yaml:"tags"`
	Language  string   `yaml:"language"`
	CreatedAt string   `yaml:"created_at"`
}

type seedFile struct {
	Posts *[]seedPost `yaml:"posts"`
}

// Decode reads posts from a YAML or JSON document. The document is either a
// list of posts or a mapping with a "posts" list. A post without created_at
// gets now; every post must pass Validate.
func Decode(r io.Reader, now time.Time) ([]Post, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, recerr.Wrapf(err, recerr.CodeCLIInputInvalid, "reading posts")
	}

	var seeds []seedPost
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		var file seedFile
		if ferr := yaml.Unmarshal(data, &file); ferr != nil {
			return nil, recerr.Wrapf(errors.Join(err, ferr), recerr.CodeCLIInputInvalid, "decoding posts")
		}
		if file.Posts == nil {
			return nil, recerr.New(recerr.CodeCLIInputInvalid, `decoding posts: mapping has no "posts" list`)
		}
		seeds = *file.Posts
	}

	posts := make([]Post, 0, len(seeds))
	for i, s := range seeds {
		p := Post{
			UUID:     strings.TrimSpace(s.UUID),
			Title:    s.Title,
			Content:  s.Content,
			Tags:     s.Tags,
			Language: s.Language,
		}
		if s.CreatedAt == "" {
			p.CreatedAt = now
		} else {
			p.CreatedAt, err = time.Parse(time.RFC3339Nano, s.CreatedAt)
			if err != nil {
				return nil, recerr.Wrapf(err, recerr.CodeCLIInputInvalid, "post %d: parsing created_at", i)
			}
		}
		if err := p.Validate(); err != nil {
			return nil, recerr.With(err, recerr.Field("index", i))
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// LoadFile decodes posts from the file at path.
func LoadFile(path string, now time.Time) ([]Post, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, recerr.Wrapf(err, recerr.CodeCLIInputInvalid, "opening %s", path)
	}
	defer func() { _ = f.Close() }()

	return Decode(f, now)
}

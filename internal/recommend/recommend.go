// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

// Package recommend ties the embedding provider and the vector index
// together: posts are embedded and indexed on the way in, and queries are
// embedded and answered with a filtered nearest-neighbor search.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/expertbridge/postrec/internal/embedding"
	"github.com/expertbridge/postrec/internal/post"
	"github.com/expertbridge/postrec/internal/store"
	recerr "github.com/expertbridge/postrec/pkg/errors"
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultLimit         = 50
	DefaultMaxLimit      = 200
	DefaultQueryTemplate = "posts about: %s"
)

// Config wires a Recommender to its collaborators.
type Config struct {
	Embedder embedding.Provider
	Index    store.VectorStore

	// QueryTemplate formats the synthetic query used when a request has
	// tags but no text. It must contain exactly one %s.
	QueryTemplate string
	DefaultLimit  int
	MaxLimit      int
}

// Recommender answers "posts like this" queries over an index of posts.
type Recommender struct {
	embedder     embedding.Provider
	index        store.VectorStore
	template     string
	defaultLimit int
	maxLimit     int
}

// Request describes a recommendation query. At least one of Query and Tags
// must be non-empty.
type Request struct {
	Query    string   `json:"query,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Language string   `json:"language,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

// Scored is a recommended post with its distance to the query.
type Scored struct {
	Post     post.Post `json:"post"`
	Distance float64   `json:"distance"`
}

// New validates cfg and returns a Recommender.
func New(cfg Config) (*Recommender, error) {
	if cfg.Embedder == nil {
		return nil, recerr.New(recerr.CodeRecommendConfigInvalid, "embedding provider is required")
	}
	if cfg.Index == nil {
		return nil, recerr.New(recerr.CodeRecommendConfigInvalid, "vector index is required")
	}
	if cfg.Embedder.Dimensions() != cfg.Index.Dimensions() {
		return nil, recerr.New(recerr.CodeIndexOpenDimensionMismatch,
			fmt.Sprintf("embedding provider %s produces %d dimensions, index expects %d",
				cfg.Embedder.Name(), cfg.Embedder.Dimensions(), cfg.Index.Dimensions()),
			recerr.FieldProvider(cfg.Embedder.Name()))
	}

	r := &Recommender{
		embedder:     cfg.Embedder,
		index:        cfg.Index,
		template:     cfg.QueryTemplate,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
	}
	if r.template == "" {
		r.template = DefaultQueryTemplate
	}
	if strings.Count(r.template, "%s") != 1 {
		return nil, recerr.Errorf(recerr.CodeRecommendConfigInvalid,
			"query template must contain exactly one %%s, got %q", r.template)
	}
	if r.maxLimit <= 0 {
		r.maxLimit = DefaultMaxLimit
	}
	if r.defaultLimit <= 0 {
		r.defaultLimit = DefaultLimit
	}
	if r.defaultLimit > r.maxLimit {
		return nil, recerr.Errorf(recerr.CodeRecommendConfigInvalid,
			"default limit %d exceeds max limit %d", r.defaultLimit, r.maxLimit)
	}
	return r, nil
}

// AddPost embeds p's content and upserts it under p.UUID. Re-adding a UUID
// replaces the stored post. Nothing is written when embedding fails.
func (r *Recommender) AddPost(ctx context.Context, p post.Post) error {
	if err := p.Validate(); err != nil {
		return err
	}

	vec, err := r.embedder.Embed(ctx, p.Content)
	if err != nil {
		return recerr.With(err, recerr.FieldPostID(p.UUID))
	}

	if err := r.index.Upsert(ctx, record(p, vec)); err != nil {
		return err
	}

	slog.Debug("post indexed", "uuid", p.UUID, "tags", len(p.Tags))
	return nil
}

// AddPosts indexes posts as one batch: contents are embedded with a single
// EmbedMany call and written in one atomic upsert.
func (r *Recommender) AddPosts(ctx context.Context, posts []post.Post) error {
	if len(posts) == 0 {
		return nil
	}

	texts := make([]string, len(posts))
	for i, p := range posts {
		if err := p.Validate(); err != nil {
			return recerr.With(err, recerr.Field("index", i))
		}
		texts[i] = p.Content
	}

	vecs, err := r.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return err
	}
	if err := embedding.CheckResult(r.embedder.Name(), texts, vecs); err != nil {
		return err
	}

	records := make([]store.Record, len(posts))
	for i, p := range posts {
		records[i] = record(p, vecs[i])
	}
	if err := r.index.Upsert(ctx, records...); err != nil {
		return err
	}

	slog.Debug("posts indexed", "count", len(posts))
	return nil
}

// Recommend returns the posts nearest to the request, closest first.
func (r *Recommender) Recommend(ctx context.Context, req Request) ([]post.Post, error) {
	scored, err := r.RecommendScored(ctx, req)
	if err != nil {
		return nil, err
	}
	posts := make([]post.Post, len(scored))
	for i, s := range scored {
		posts[i] = s.Post
	}
	return posts, nil
}

// RecommendScored is Recommend with the distance of every result.
//
// A non-blank Query is embedded verbatim. Without one, the tags are turned
// into a synthetic query through the configured template. When tags are
// given they also restrict candidates to posts sharing at least one tag.
func (r *Recommender) RecommendScored(ctx context.Context, req Request) ([]Scored, error) {
	tags := nonBlank(req.Tags)

	text := req.Query
	if strings.TrimSpace(text) == "" {
		if len(tags) == 0 {
			return nil, recerr.New(recerr.CodeRecommendQueryEmpty, "a query or at least one tag is required")
		}
		text = fmt.Sprintf(r.template, strings.Join(tags, ", "))
	}

	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	limit := r.limit(req.Limit)
	results, err := r.index.Search(ctx, vec, limit, filters(tags, req.Language))
	if err != nil {
		return nil, err
	}

	scored := make([]Scored, 0, len(results))
	for _, res := range results {
		p, err := post.FromRecord(res.ID, res.Text, res.Metadata)
		if err != nil {
			return nil, err
		}
		scored = append(scored, Scored{Post: p, Distance: res.Distance})
	}

	slog.Debug("recommendation served", "tags", len(tags), "limit", limit, "results", len(scored))
	return scored, nil
}

// Count returns the number of indexed posts.
func (r *Recommender) Count(ctx context.Context) (int, error) {
	return r.index.Count(ctx)
}

// Dimensions returns the embedding length shared by provider and index.
func (r *Recommender) Dimensions() int {
	return r.index.Dimensions()
}

func (r *Recommender) limit(requested int) int {
	switch {
	case requested <= 0:
		return r.defaultLimit
	case requested > r.maxLimit:
		return r.maxLimit
	default:
		return requested
	}
}

func filters(tags []string, language string) map[string]any {
	f := map[string]any{}
	if len(tags) > 0 {
		f[store.FieldTags] = map[string]any{store.OpIn: tags}
	}
	if lang := strings.TrimSpace(language); lang != "" {
		f[store.FieldLanguage] = map[string]any{store.OpEq: lang}
	}
	if len(f) == 0 {
		return nil
	}
	return f
}

func record(p post.Post, vec []float32) store.Record {
	return store.Record{
		ID:        p.UUID,
		Embedding: vec,
		Metadata:  p.Metadata(),
		Text:      p.Content,
	}
}

// nonBlank drops blank entries. Tags are otherwise matched exactly.
func nonBlank(tags []string) []string {
	var out []string
	for _, t := range tags {
		if strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	}
	return out
}

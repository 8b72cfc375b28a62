// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/expertbridge/postrec/internal/post"
	"github.com/expertbridge/postrec/internal/recommend"
	recerr "github.com/expertbridge/postrec/pkg/errors"
	"github.com/expertbridge/postrec/pkg/health"
)

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, s.handleHealth)

	huma.Register(s.api, huma.Operation{
		OperationID:   "add-post",
		Method:        http.MethodPost,
		Path:          "/api/v1/posts",
		Summary:       "Index a post",
		Tags:          []string{"posts"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddPost)

	huma.Register(s.api, huma.Operation{
		OperationID:   "add-posts",
		Method:        http.MethodPost,
		Path:          "/api/v1/posts/batch",
		Summary:       "Index a batch of posts",
		Tags:          []string{"posts"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddPosts)

	huma.Register(s.api, huma.Operation{
		OperationID: "recommend",
		Method:      http.MethodPost,
		Path:        "/api/v1/recommendations",
		Summary:     "Recommend posts for a query or tag set",
		Tags:        []string{"recommendations"},
	}, s.handleRecommend)
}

// --- Request/Response types for huma ---

// PostBody is the wire form of a post. A missing uuid is generated and a
// missing created_at defaults to the time the request is handled.
type PostBody struct {
	UUID      string    `json:"uuid,omitempty" doc:"Post identifier; generated when omitted"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content" doc:"Text that is embedded and searched"`
	Tags      []string  `json:"tags,omitempty"`
	Language  string    `json:"language,omitempty" example:"en"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

func (b PostBody) toPost(now time.Time) post.Post {
	p := post.Post{
		UUID:      strings.TrimSpace(b.UUID),
		Title:     b.Title,
		Content:   b.Content,
		Tags:      b.Tags,
		Language:  b.Language,
		CreatedAt: b.CreatedAt,
	}
	if p.UUID == "" {
		p.UUID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	return p
}

type healthOutput struct {
	Body struct {
		Status     string          `json:"status" example:"ok" doc:"ok, or degraded while the embedder cools down"`
		Posts      int             `json:"posts" doc:"Number of indexed posts"`
		Dimensions int             `json:"dimensions"`
		Embedder   string          `json:"embedder,omitempty"`
		Provider   *health.Metrics `json:"provider,omitempty"`
	}
}

type addPostInput struct {
	Body PostBody
}

type addPostOutput struct {
	Body struct {
		UUID string `json:"uuid"`
	}
}

type addPostsInput struct {
	Body struct {
		Posts []PostBody `json:"posts" minItems:"1" maxItems:"1000"`
	}
}

type addPostsOutput struct {
	Body struct {
		UUIDs []string `json:"uuids"`
		Count int      `json:"count"`
	}
}

type recommendInput struct {
	Body struct {
		Query    string   `json:"query,omitempty" doc:"Free text; takes precedence over tags when building the query"`
		Tags     []string `json:"tags,omitempty" doc:"Only posts carrying at least one of these tags are returned"`
		Language string   `json:"language,omitempty"`
		Limit    int      `json:"limit,omitempty" minimum:"0" doc:"Maximum results; 0 uses the server default"`
	}
}

type recommendOutput struct {
	Body struct {
		Results []recommend.Scored `json:"results"`
		Count   int                `json:"count"`
	}
}

// --- Handlers ---

func (s *Server) handleHealth(ctx context.Context, _ *struct{}) (*healthOutput, error) {
	rec := s.services.Recommender()
	count, err := rec.Count(ctx)
	if err != nil {
		return nil, toHTTPError("counting posts", err)
	}

	out := &healthOutput{}
	out.Body.Status = "ok"
	out.Body.Posts = count
	out.Body.Dimensions = rec.Dimensions()
	if e := s.services.Embedder(); e != nil {
		m := e.Health()
		out.Body.Embedder = e.Name()
		out.Body.Provider = &m
		if !m.Available {
			out.Body.Status = "degraded"
		}
	}
	return out, nil
}

func (s *Server) handleAddPost(ctx context.Context, input *addPostInput) (*addPostOutput, error) {
	p := input.Body.toPost(time.Now().UTC())
	if err := s.services.Recommender().AddPost(ctx, p); err != nil {
		return nil, toHTTPError("adding post", err)
	}
	out := &addPostOutput{}
	out.Body.UUID = p.UUID
	return out, nil
}

func (s *Server) handleAddPosts(ctx context.Context, input *addPostsInput) (*addPostsOutput, error) {
	now := time.Now().UTC()
	posts := make([]post.Post, len(input.Body.Posts))
	ids := make([]string, len(input.Body.Posts))
	for i, b := range input.Body.Posts {
		posts[i] = b.toPost(now)
		ids[i] = posts[i].UUID
	}

	if err := s.services.Recommender().AddPosts(ctx, posts); err != nil {
		return nil, toHTTPError("adding posts", err)
	}
	out := &addPostsOutput{}
	out.Body.UUIDs = ids
	out.Body.Count = len(ids)
	return out, nil
}

func (s *Server) handleRecommend(ctx context.Context, input *recommendInput) (*recommendOutput, error) {
	results, err := s.services.Recommender().RecommendScored(ctx, recommend.Request{
		Query:    input.Body.Query,
		Tags:     input.Body.Tags,
		Language: input.Body.Language,
		Limit:    input.Body.Limit,
	})
	if err != nil {
		return nil, toHTTPError("recommending posts", err)
	}
	out := &recommendOutput{}
	out.Body.Results = results
	out.Body.Count = len(results)
	return out, nil
}

// toHTTPError maps a coded error to a huma status error. Server-side
// failures are logged and answered with a generic message.
func toHTTPError(op string, err error) error {
	status := recerr.HTTPStatus(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		slog.Error("request failed", "op", op, "code", recerr.CodeOf(err), "error", err)
		return huma.NewError(status, op+": internal error")
	}
	if status == http.StatusBadGateway {
		slog.Warn("embedding provider failed", "op", op, "code", recerr.CodeOf(err), "error", err)
	}
	return huma.NewError(status, op+": "+err.Error())
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/expertbridge/postrec/internal/post"
	"github.com/expertbridge/postrec/internal/recommend"
	"github.com/expertbridge/postrec/internal/server"
	recerr "github.com/expertbridge/postrec/pkg/errors"
)

func main() {
	spec, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/spec.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

// generateSpec creates a server with all routes registered and extracts the
// OpenAPI spec that huma generates from the Go type annotations.
func generateSpec() ([]byte, error) {
	svc, err := server.NewServices(stubRecommender{}, nil)
	if err != nil {
		return nil, err
	}

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, svc)
	if err != nil {
		return nil, recerr.Errorf(recerr.CodeCLISetupFailure, "creating server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}

// stubRecommender satisfies the server during spec generation. Handlers
// are never invoked.
type stubRecommender struct{}

func (stubRecommender) AddPost(context.Context, post.Post) error     { return nil }
func (stubRecommender) AddPosts(context.Context, []post.Post) error { return nil }
func (stubRecommender) RecommendScored(context.Context, recommend.Request) ([]recommend.Scored, error) {
	return nil, nil
}
func (stubRecommender) Count(context.Context) (int, error) { return 0, nil }
func (stubRecommender) Dimensions() int                    { return 0 }

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package openai

import (
	"context"
	stderrors "errors"
	"net/http"
	"sort"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/expertbridge/postrec/internal/embedding"
	recerr "github.com/expertbridge/postrec/pkg/errors"
)

const name = "openai"

// DefaultModel supports the dimensions parameter, so any configured size works.
const DefaultModel = "text-embedding-3-small"

func init() {
	embedding.RegisterProvider(name, func(cfg embedding.Config) (embedding.Provider, error) {
		return New(Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	})
}

// Config holds OpenAI provider configuration.
type Config struct {
	APIKey     string
	BaseURL    string // optional, useful for testing against a mock server
	Model      string
	Dimensions int
	MaxRetries int
}

// Provider implements embedding.Provider using the OpenAI Embeddings API.
type Provider struct {
	client openaisdk.Client
	model  string
	dims   int
}

var _ embedding.Provider = (*Provider)(nil)

// New creates a new OpenAI provider. Returns an error if the API key is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, recerr.New(recerr.CodeEmbeddingConfigInvalid, "openai: missing api_key in config", recerr.FieldProvider(name))
	}
	if cfg.Dimensions <= 0 {
		return nil, recerr.Errorf(recerr.CodeEmbeddingConfigInvalid, "openai: dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	return &Provider{
		client: openaisdk.NewClient(opts...),
		model:  cfg.Model,
		dims:   cfg.Dimensions,
	}, nil
}

func (p *Provider) Name() string    { return name }
func (p *Provider) Dimensions() int { return p.dims }

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedding.EmbedOne(ctx, p, text)
}

// EmbedMany sends all texts in one request. The API may return items out of
// order, so results are placed by their index field.
func (p *Provider) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if err := embedding.ValidateInput(name, texts); err != nil {
		return nil, err
	}

	resp, err := p.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input:      openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:      openaisdk.EmbeddingModel(p.model),
		Dimensions: openaisdk.Int(int64(p.dims)),
	})
	if err != nil {
		return nil, classify(err)
	}

	vectors, err := convert(resp.Data, len(texts))
	if err != nil {
		return nil, err
	}
	if err := embedding.CheckResult(name, texts, vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}

func convert(data []openaisdk.Embedding, n int) ([][]float32, error) {
	sorted := make([]openaisdk.Embedding, len(data))
	copy(sorted, data)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	out := make([][]float32, 0, len(sorted))
	for i, item := range sorted {
		if int(item.Index) != i || i >= n {
			return nil, recerr.New(recerr.CodeEmbeddingUpstreamFailure, "openai: unexpected embedding index",
				recerr.FieldProvider(name), recerr.Field("index", item.Index))
		}
		vec := make([]float32, len(item.Embedding))
		for j, v := range item.Embedding {
			vec[j] = float32(v)
		}
		out = append(out, vec)
	}
	return out, nil
}

// classify maps SDK errors onto embedding codes. Client errors mean the input
// or request was rejected; everything else is treated as an upstream outage.
func classify(err error) error {
	var apiErr *openaisdk.Error
	if stderrors.As(err, &apiErr) &&
		apiErr.StatusCode >= http.StatusBadRequest &&
		apiErr.StatusCode < http.StatusInternalServerError &&
		apiErr.StatusCode != http.StatusTooManyRequests {
		return recerr.Wrap(err, recerr.CodeEmbeddingRequestInvalid, "openai: request rejected",
			recerr.FieldProvider(name), recerr.Field("status", apiErr.StatusCode))
	}
	return recerr.Wrap(err, recerr.CodeEmbeddingUpstreamFailure, "openai: creating embeddings", recerr.FieldProvider(name))
}

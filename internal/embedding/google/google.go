// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package google

import (
	"context"
	stderrors "errors"
	"net/http"

	"google.golang.org/genai"

	"github.com/expertbridge/postrec/internal/embedding"
	recerr "github.com/expertbridge/postrec/pkg/errors"
)

const name = "google"

// DefaultModel is the Gemini embedding model used when none is configured.
const DefaultModel = "gemini-embedding-001"

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

// Config holds Google provider configuration.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

// Provider implements embedding.Provider using the Gemini embedContent API.
type Provider struct {
	client *genai.Client
	model  string
	dims   int
}

var _ embedding.Provider = (*Provider)(nil)

// New creates a new Google provider. Returns an error if the API key is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, recerr.New(recerr.CodeEmbeddingConfigInvalid, "google: missing api_key in config", recerr.FieldProvider(name))
	}
	if cfg.Dimensions <= 0 {
		return nil, recerr.Errorf(recerr.CodeEmbeddingConfigInvalid, "google: dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, recerr.Wrapf(err, recerr.CodeEmbeddingConfigInvalid, "google: creating client")
	}

	return &Provider{
		client: client,
		model:  cfg.Model,
		dims:   cfg.Dimensions,
	}, nil
}

func (p *Provider) Name() string    { return name }
func (p *Provider) Dimensions() int { return p.dims }

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedding.EmbedOne(ctx, p, text)
}

func (p *Provider) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if err := embedding.ValidateInput(name, texts); err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	dims := int32(p.dims)
	resp, err := p.client.Models.EmbedContent(ctx, p.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, classify(err)
	}

	vectors := vectorsFrom(resp)
	if err := embedding.CheckResult(name, texts, vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}

func vectorsFrom(resp *genai.EmbedContentResponse) [][]float32 {
	if resp == nil {
		return nil
	}
	out := make([][]float32, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		if e == nil {
			out = append(out, nil)
			continue
		}
		out = append(out, append([]float32(nil), e.Values...))
	}
	return out
}

func classify(err error) error {
	status := 0
	var apiErr genai.APIError
	if stderrors.As(err, &apiErr) {
		status = apiErr.Code
	}

	if status >= http.StatusBadRequest && status < http.StatusInternalServerError && status != http.StatusTooManyRequests {
		return recerr.Wrap(err, recerr.CodeEmbeddingRequestInvalid, "google: request rejected",
			recerr.FieldProvider(name), recerr.Field("status", status))
	}
	return recerr.Wrap(err, recerr.CodeEmbeddingUpstreamFailure, "google: embedding content", recerr.FieldProvider(name))
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

// Package hashing provides an offline embedding provider based on signed
// feature hashing of word unigrams and bigrams. Texts that share words land
// near each other, which is enough for local use and tests without a model.
package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/expertbridge/postrec/internal/embedding"
	recerr "github.com/expertbridge/postrec/pkg/errors"
)

const name = "hashing"

const bigramWeight = 0.5

func init() {
	embedding.RegisterProvider(name, func(cfg embedding.Config) (embedding.Provider, error) {
		return New(cfg.Dimensions)
	})
}

// Provider is a deterministic, stateless embedder.
type Provider struct {
	dims int
}

var _ embedding.Provider = (*Provider)(nil)

// New creates a hashing provider producing vectors of length dims.
func New(dims int) (*Provider, error) {
	if dims <= 0 {
		return nil, recerr.Errorf(recerr.CodeEmbeddingConfigInvalid, "hashing: dimensions must be positive, got %d", dims)
	}
	return &Provider{dims: dims}, nil
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

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, recerr.Wrap(err, recerr.CodeEmbeddingUpstreamFailure, "hashing: cancelled", recerr.FieldProvider(name))
		}
		out[i] = p.vector(text)
	}
	return out, nil
}

// Tokens returns the normalized word tokens of text.
func (p *Provider) Tokens(text string) []string {
	// cases.Caser carries state and is not safe for concurrent use.
	folded := cases.Fold().String(norm.NFKC.String(text))
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func (p *Provider) vector(text string) []float32 {
	acc := make([]float64, p.dims)
	tokens := p.Tokens(text)

	for i, tok := range tokens {
		p.add(acc, tok, 1)
		if i > 0 {
			p.add(acc, tokens[i-1]+" "+tok, bigramWeight)
		}
	}

	var sum float64
	for _, v := range acc {
		sum += v * v
	}
	length := math.Sqrt(sum)

	vec := make([]float32, p.dims)
	if length == 0 {
		return vec
	}
	for i, v := range acc {
		vec[i] = float32(v / length)
	}
	return vec
}

func (p *Provider) add(acc []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(p.dims))
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[idx] += weight
}

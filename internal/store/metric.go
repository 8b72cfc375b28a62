// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package store

import (
	"math"

	recerr "github.com/expertbridge/postrec/pkg/errors"
)

// Metric is the distance function of an index. It is fixed when the index is
// created.
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricL2     Metric = "l2"
)

// ParseMetric resolves a configured metric name; empty selects cosine.
func ParseMetric(name string) (Metric, error) {
	switch Metric(name) {
	case "", MetricCosine:
		return MetricCosine, nil
	case MetricL2:
		return MetricL2, nil
	default:
		return "", recerr.Errorf(recerr.CodeIndexOpenInvalid, "unknown distance metric %q (want cosine or l2)", name)
	}
}

// Distance returns the distance between a and b, which must have equal length.
// Cosine distance against a zero vector is 1.
func (m Metric) Distance(a, b []float32) float64 {
	if m == MetricL2 {
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return math.Sqrt(sum)
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 1
	}
	return 1 - dot/denom
}

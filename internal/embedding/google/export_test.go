// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package google

import "google.golang.org/genai"

// VectorsFrom exposes vectorsFrom for white-box testing.
var VectorsFrom = func(resp *genai.EmbedContentResponse) [][]float32 {
	return vectorsFrom(resp)
}

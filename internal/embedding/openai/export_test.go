// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package openai

import openaisdk "github.com/openai/openai-go"

// Convert exposes convert for white-box testing.
var Convert = func(data []openaisdk.Embedding, n int) ([][]float32, error) {
	return convert(data, n)
}

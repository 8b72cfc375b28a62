// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeEmbeddingUpstreamFailure  Code = "embedding.provider.upstream.failure"
	CodeEmbeddingRequestInvalid   Code = "embedding.request.invalid"
	CodeEmbeddingRateLimitFailure Code = "embedding.ratelimit.failure"
	CodeEmbeddingConfigInvalid    Code = "embedding.config.invalid"

	CodeIndexUpsertDimensionMismatch Code = "index.upsert.dimension_mismatch"
	CodeIndexSearchDimensionMismatch Code = "index.search.dimension_mismatch"
	CodeIndexOpenDimensionMismatch   Code = "index.open.dimension_mismatch"
	CodeIndexOpenInvalid             Code = "index.open.invalid_input"
	CodeIndexFilterInvalid           Code = "index.search.filter.invalid"
	CodeIndexSearchInvalid           Code = "index.search.invalid_input"
	CodeIndexUpsertInvalid           Code = "index.upsert.invalid_input"
	CodeIndexRecordCorrupt           Code = "index.record.corrupt"
	CodeIndexDatabaseFailure         Code = "index.database.failure"
	CodeIndexBackendUnsupported      Code = "index.backend.unsupported"

	CodeRecommendQueryEmpty    Code = "recommend.query.empty"
	CodeRecommendPostInvalid   Code = "recommend.post.invalid_input"
	CodeRecommendConfigInvalid Code = "recommend.config.invalid"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeSecretInvalidInput   Code = "secret.input.invalid"
	CodeSecretNotFound       Code = "secret.get.not_found"
	CodeSecretStoreFailure   Code = "secret.store.failure"
	CodeSecretDeleteFailure  Code = "secret.delete.failure"
	CodeSecretListFailure    Code = "secret.list.failure"
	CodeSecretResolveFailure Code = "secret.resolve.failure"

	CodeServerRequestInvalid  Code = "server.request.invalid"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerConfigInvalid   Code = "server.config.invalid"
	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerShutdownFailure Code = "server.shutdown.failure"

	CodeCLISetupFailure Code = "cli.setup.failure"
	CodeCLIInputInvalid Code = "cli.input.invalid"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldPostID(value string) Attr {
	return Field("post_id", value)
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func FieldBackend(value string) Attr {
	return Field("backend", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain, keeping its code.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsEmbeddingFailure reports whether the embedding provider failed or rejected its input.
func IsEmbeddingFailure(err error) bool {
	code := CodeOf(err)
	return strings.HasPrefix(string(code), "embedding.") && code != CodeEmbeddingConfigInvalid
}

func IsDimensionMismatch(err error) bool {
	return reason(CodeOf(err)) == "dimension_mismatch"
}

func IsInvalidFilter(err error) bool {
	return HasCode(err, CodeIndexFilterInvalid)
}

func IsEmptyQuery(err error) bool {
	return HasCode(err, CodeRecommendQueryEmpty)
}

func IsCorruptRecord(err error) bool {
	return reason(CodeOf(err)) == "corrupt"
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format" || r == "empty"
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return strings.Contains(string(code), "upstream") && reason(code) == "failure"
}

// HTTPStatus maps an error to the status code an HTTP layer should answer with.
func HTTPStatus(err error) int {
	switch {
	case IsEmbeddingFailure(err):
		return http.StatusBadGateway
	case IsDimensionMismatch(err):
		return http.StatusUnprocessableEntity
	case IsCorruptRecord(err):
		return http.StatusInternalServerError
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsUpstreamFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Process exit codes returned by the CLI.
const (
	ExitFailure           = 1
	ExitUsage             = 2
	ExitEmbeddingFailure  = 3
	ExitDimensionMismatch = 4
	ExitCorruptRecord     = 5
)

// ExitCode maps an error to a process exit status. A nil error maps to 0.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case IsEmbeddingFailure(err):
		return ExitEmbeddingFailure
	case IsDimensionMismatch(err):
		return ExitDimensionMismatch
	case IsCorruptRecord(err):
		return ExitCorruptRecord
	case IsInvalidInput(err):
		return ExitUsage
	default:
		return ExitFailure
	}
}

func Join(errs ...error) error {
	joined := stderrors.Join(errs...)
	if joined == nil {
		return nil
	}
	return oops.Code(CodeServerInternalFailure).Wrap(joined)
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}

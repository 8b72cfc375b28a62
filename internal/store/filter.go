// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package store

import (
	"fmt"
	"slices"
	"sort"

	recerr "github.com/expertbridge/postrec/pkg/errors"
)

// Indexed metadata fields that filters may reference.
const (
	FieldTags     = "tags"
	FieldLanguage = "language"
)

// Filter operators.
const (
	OpIn = "$in"
	OpEq = "$eq"
)

// Filter is the parsed form of a filter map. Each non-empty field restricts
// candidates; fields are combined with AND.
type Filter struct {
	// Tags matches records carrying at least one of these tags.
	Tags []string
	// Languages matches records whose language is one of these.
	Languages []string
}

// TagsIn builds the filter map matching records that share a tag with tags.
func TagsIn(tags ...string) map[string]any {
	return map[string]any{FieldTags: map[string]any{OpIn: tags}}
}

// ParseFilter validates a filter map of the form
//
//	{"tags": {"$in": ["a", "b"]}, "language": {"$eq": "English"}}
//
// A nil or empty map matches every record.
func ParseFilter(filters map[string]any) (Filter, error) {
	var f Filter
	if len(filters) == 0 {
		return f, nil
	}

	fields := make([]string, 0, len(filters))
	for field := range filters {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		ops, ok := filters[field].(map[string]any)
		if !ok || len(ops) != 1 {
			return Filter{}, recerr.Errorf(recerr.CodeIndexFilterInvalid,
				"filter on %q must be an object with exactly one operator", field)
		}

		for op, raw := range ops {
			values, err := operandValues(field, op, raw)
			if err != nil {
				return Filter{}, err
			}

			switch field {
			case FieldTags:
				if op != OpIn {
					return Filter{}, recerr.Errorf(recerr.CodeIndexFilterInvalid,
						"filter on %q supports only %s, got %q", field, OpIn, op)
				}
				f.Tags = values
			case FieldLanguage:
				f.Languages = values
			default:
				return Filter{}, recerr.Errorf(recerr.CodeIndexFilterInvalid, "unknown filter field %q", field)
			}
		}
	}

	return f, nil
}

func operandValues(field, op string, raw any) ([]string, error) {
	switch op {
	case OpEq:
		s, ok := raw.(string)
		if !ok {
			return nil, recerr.Errorf(recerr.CodeIndexFilterInvalid,
				"filter %s.%s expects a string, got %T", field, op, raw)
		}
		return []string{s}, nil
	case OpIn:
		var values []string
		switch v := raw.(type) {
		case []string:
			values = append(values, v...)
		case []any:
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, recerr.Errorf(recerr.CodeIndexFilterInvalid,
						"filter %s.%s expects strings, got %T", field, op, item)
				}
				values = append(values, s)
			}
		default:
			return nil, recerr.Errorf(recerr.CodeIndexFilterInvalid,
				"filter %s.%s expects a list, got %T", field, op, raw)
		}
		if len(values) == 0 {
			return nil, recerr.Errorf(recerr.CodeIndexFilterInvalid,
				"filter %s.%s must not be empty", field, op)
		}
		return values, nil
	default:
		return nil, recerr.New(recerr.CodeIndexFilterInvalid, fmt.Sprintf("unknown filter operator %q on %q", op, field))
	}
}

// Empty reports whether f matches every record.
func (f Filter) Empty() bool {
	return len(f.Tags) == 0 && len(f.Languages) == 0
}

// Match evaluates f against record metadata.
func (f Filter) Match(metadata map[string]any) bool {
	if len(f.Tags) > 0 {
		matched := false
		for _, tag := range MetadataTags(metadata) {
			if slices.Contains(f.Tags, tag) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if len(f.Languages) > 0 {
		lang, _ := metadata[FieldLanguage].(string)
		if !slices.Contains(f.Languages, lang) {
			return false
		}
	}
	return true
}

// MetadataTags extracts the string tags of a metadata map. Non-string
// elements are skipped.
func MetadataTags(metadata map[string]any) []string {
	switch v := metadata[FieldTags].(type) {
	case []string:
		return v
	case []any:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				tags = append(tags, s)
			}
		}
		return tags
	default:
		return nil
	}
}

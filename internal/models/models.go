// Package models defines the search term, query result and error response
// exchanged with the retro domain registry.
package models

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// ErrorStringField is the JSON key the registry uses for error descriptions.
const ErrorStringField = "ErrorString"

// SearchTerm is the user-supplied string that parameterizes the lookup.
type SearchTerm string

// Validate rejects empty and whitespace-only terms.
func (t SearchTerm) Validate() error {
	if strings.TrimSpace(string(t)) == "" {
		return fmt.Errorf("search term cannot be empty")
	}
	return nil
}

// Record is one name/value pair of a successful lookup.
type Record struct {
	Name  string
	Value gjson.Result
}

// EntryFormatError reports a record that cannot be rendered on a single line.
type EntryFormatError struct {
	Name   string
	Reason string
}

func (e *EntryFormatError) Error() string {
	return fmt.Sprintf("record %q: %s", e.Name, e.Reason)
}

// Format renders the value as text: strings verbatim, numbers and literals as
// written, objects and arrays as compact JSON.
func (r Record) Format() (name, value string, err error) {
	value = valueText(r.Value)
	if reason := unprintable(r.Name); reason != "" {
		return "", "", &EntryFormatError{Name: r.Name, Reason: "name " + reason}
	}
	if reason := unprintable(value); reason != "" {
		return "", "", &EntryFormatError{Name: r.Name, Reason: "value " + reason}
	}
	return r.Name, value, nil
}

func valueText(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.JSON:
		return string(pretty.Ugly([]byte(v.Raw)))
	default:
		return v.Raw
	}
}

// singleLine replaces control characters with spaces and invalid UTF-8 with
// U+FFFD so the result prints on one line.
func singleLine(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	return strings.TrimSpace(strings.Map(func(c rune) rune {
		if unicode.IsControl(c) {
			return ' '
		}
		return c
	}, s))
}

func unprintable(s string) string {
	if !utf8.ValidString(s) {
		return "is not valid UTF-8"
	}
	for _, c := range s {
		if unicode.IsControl(c) {
			return "contains control characters"
		}
	}
	return ""
}

// QueryResult holds the records of a successful lookup in document order.
type QueryResult struct {
	Records []Record
}

// Len returns the number of records.
func (q *QueryResult) Len() int { return len(q.Records) }

// ParseQueryResult decodes a JSON object body into ordered records.
// Duplicate keys keep the position of their first occurrence and the value of
// their last.
func ParseQueryResult(body []byte) (*QueryResult, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON")
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, fmt.Errorf("expected JSON object, got %s", doc.Type)
	}

	result := &QueryResult{}
	seen := make(map[string]int)
	doc.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if i, ok := seen[name]; ok {
			result.Records[i].Value = value
			return true
		}
		seen[name] = len(result.Records)
		result.Records = append(result.Records, Record{Name: name, Value: value})
		return true
	})
	return result, nil
}

// ErrorResponse is the payload of a non-200 reply.
type ErrorResponse struct {
	// ErrorString is flattened to a single line.
	ErrorString string
	// HasErrorString is false when the body was not a JSON object or carried
	// no usable ErrorString.
	HasErrorString bool
}

// ParseErrorResponse extracts ErrorString from a non-200 body on a best-effort basis.
func ParseErrorResponse(body []byte) ErrorResponse {
	var resp ErrorResponse
	if !gjson.ValidBytes(body) {
		return resp
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return resp
	}
	field := doc.Get(ErrorStringField)
	if !field.Exists() || field.Type == gjson.Null {
		return resp
	}
	resp.ErrorString = singleLine(valueText(field))
	resp.HasErrorString = true
	return resp
}

package provider

import (
	"github.com/tidwall/gjson"
)

// completionPaths are the known non-streaming envelope shapes, in priority order:
// OpenAI-style nested choice, a flat content field, a flat text field.
var completionPaths = []string{
	"choices.0.message.content",
	"content",
	"text",
}

// deltaPaths are the known per-chunk streaming envelope shapes.
var deltaPaths = []string{
	"choices.0.delta.content",
	"choices.0.text",
	"delta.content",
	"message.content",
	"content",
}

// errorPaths locate a provider-supplied error message in a non-2xx body.
var errorPaths = []string{
	"error.message",
	"message",
	"error",
}

// ParseCompletion extracts the completion text from a response body.
// Empty fields fall through to the next shape; when none matches the result
// is ErrUnexpectedResponse.
func ParseCompletion(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", ErrUnexpectedResponse
	}
	for _, p := range completionPaths {
		r := gjson.GetBytes(body, p)
		if r.Type == gjson.String && r.Str != "" {
			return r.Str, nil
		}
	}
	return "", ErrUnexpectedResponse
}

// ExtractDelta pulls the incremental content from one streaming chunk.
// ok is false when the chunk is not valid JSON; a valid chunk without
// content (role-only or usage-only chunks) yields ("", true).
func ExtractDelta(chunk []byte) (delta string, ok bool) {
	if !gjson.ValidBytes(chunk) {
		return "", false
	}
	for _, p := range deltaPaths {
		r := gjson.GetBytes(chunk, p)
		if r.Type == gjson.String && r.Str != "" {
			return r.Str, true
		}
	}
	return "", true
}

// ParseErrorMessage returns the provider's error message from a failed
// response body, or "" when the body carries none.
func ParseErrorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return string(body)
	}
	for _, p := range errorPaths {
		r := gjson.GetBytes(body, p)
		if r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

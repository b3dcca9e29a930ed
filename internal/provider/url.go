package provider

import (
	"regexp"
	"strings"
)

const (
	// DefaultOpenAIURL is the hosted OpenAI chat-completions endpoint.
	DefaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

	chatCompletionsPath = "/chat/completions"
)

// versionSegment matches API version path segments such as v1, v2, v1beta.
var versionSegment = regexp.MustCompile(`^v\d+[a-z0-9]*$`)

// NormalizeURL canonicalizes an endpoint URL into the fully qualified
// chat-completions URL. Accepted inputs:
//
//	http://host:1234                      → http://host:1234/v1/chat/completions
//	http://host:1234/v1                   → http://host:1234/v1/chat/completions
//	http://host:1234/v1/completions       → http://host:1234/v1/chat/completions
//	http://host:1234/v1/chat              → http://host:1234/v1/chat/completions
//	http://host:1234/v1/chat/completions  → unchanged
//
// An empty URL resolves to the hosted OpenAI endpoint, except for self-hosted
// kinds where it is an error. NormalizeURL is idempotent.
func NormalizeURL(raw string, kind Kind) (string, error) {
	u := strings.TrimSpace(raw)
	if u == "" {
		if kind.SelfHosted() {
			return "", missingEndpointError(kind)
		}
		return DefaultOpenAIURL, nil
	}
	u = strings.TrimRight(u, "/")

	switch {
	case strings.Contains(u, chatCompletionsPath):
		return u, nil
	case strings.HasSuffix(u, "/chat"):
		return u + "/completions", nil
	case strings.HasSuffix(u, "/completions"):
		return strings.TrimSuffix(u, "/completions") + chatCompletionsPath, nil
	case hasVersionSegment(u):
		return u + chatCompletionsPath, nil
	default:
		return u + "/v1" + chatCompletionsPath, nil
	}
}

// BaseURL strips the chat-completions suffix from a normalized URL, giving
// the API root that SDK clients expect (e.g. https://api.openai.com/v1/).
func BaseURL(normalized string) string {
	return strings.TrimSuffix(normalized, chatCompletionsPath) + "/"
}

// hasVersionSegment reports whether any path segment after the host looks
// like an API version.
func hasVersionSegment(u string) bool {
	rest := u
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	segs := strings.Split(rest, "/")
	if len(segs) < 2 {
		return false
	}
	for _, s := range segs[1:] {
		if versionSegment.MatchString(s) {
			return true
		}
	}
	return false
}

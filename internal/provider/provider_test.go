package provider

import (
	"errors"
	"testing"
)

// --- Kind tests ---

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"openai", KindOpenAI, false},
		{" Ollama ", KindOllama, false},
		{"ANTHROPIC", KindAnthropic, false},
		{"custom", KindCustom, false},
		{"none", KindNone, false},
		{"gemini", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupportedProvider) {
				t.Errorf("ParseKind(%q) error = %v, want ErrUnsupportedProvider", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseKind(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestKind_NeedsKey(t *testing.T) {
	if KindOllama.NeedsKey() {
		t.Error("ollama should not need a key")
	}
	for _, k := range []Kind{KindOpenAI, KindAnthropic, KindCustom} {
		if !k.NeedsKey() {
			t.Errorf("%s should need a key", k)
		}
	}
}

// --- URL normalization tests ---

func TestNormalizeURL(t *testing.T) {
	const want = "http://localhost:1234/v1/chat/completions"
	inputs := []string{
		"http://localhost:1234",
		"http://localhost:1234/",
		"http://localhost:1234/v1",
		"http://localhost:1234/v1/",
		"http://localhost:1234/v1/chat",
		"http://localhost:1234/v1/completions",
		"http://localhost:1234/v1/chat/completions",
		"http://localhost:1234/v1/chat/completions/",
	}
	for _, in := range inputs {
		got, err := NormalizeURL(in, KindCustom)
		if err != nil {
			t.Fatalf("NormalizeURL(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeURL_VersionedPaths(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://api.example.com/openai/v2", "https://api.example.com/openai/v2/chat/completions"},
		{"https://gateway.example.com/v1beta", "https://gateway.example.com/v1beta/chat/completions"},
		{"https://proxy.example.com/api", "https://proxy.example.com/api/v1/chat/completions"},
	}
	for _, tt := range tests {
		got, err := NormalizeURL(tt.in, KindCustom)
		if err != nil {
			t.Fatalf("NormalizeURL(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeURL_Idempotent(t *testing.T) {
	inputs := []string{
		"http://localhost:11434",
		"http://localhost:11434/v1",
		"https://api.example.com/openai/v2/chat",
		"https://proxy.example.com/api/",
	}
	for _, in := range inputs {
		once, err := NormalizeURL(in, KindOllama)
		if err != nil {
			t.Fatalf("NormalizeURL(%q): %v", in, err)
		}
		twice, err := NormalizeURL(once, KindOllama)
		if err != nil {
			t.Fatalf("NormalizeURL(%q): %v", once, err)
		}
		if once != twice {
			t.Errorf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestNormalizeURL_Empty(t *testing.T) {
	got, err := NormalizeURL("  ", KindOpenAI)
	if err != nil || got != DefaultOpenAIURL {
		t.Errorf("openai empty URL = %q, %v; want default", got, err)
	}
	for _, k := range []Kind{KindCustom, KindOllama} {
		if _, err := NormalizeURL("", k); !errors.Is(err, ErrMissingEndpoint) {
			t.Errorf("%s empty URL error = %v, want ErrMissingEndpoint", k, err)
		}
	}
}

func TestBaseURL(t *testing.T) {
	if got := BaseURL(DefaultOpenAIURL); got != "https://api.openai.com/v1/" {
		t.Errorf("BaseURL = %q", got)
	}
}

// --- Envelope tests ---

func TestParseCompletion_Envelopes(t *testing.T) {
	bodies := []string{
		`{"choices":[{"message":{"role":"assistant","content":"Hello"}}]}`,
		`{"content":"Hello"}`,
		`{"text":"Hello"}`,
		`{"choices":[{"message":{"content":""}}],"text":"Hello"}`,
	}
	for _, body := range bodies {
		got, err := ParseCompletion([]byte(body))
		if err != nil {
			t.Errorf("ParseCompletion(%s): %v", body, err)
			continue
		}
		if got != "Hello" {
			t.Errorf("ParseCompletion(%s) = %q, want %q", body, got, "Hello")
		}
	}
}

func TestParseCompletion_Unexpected(t *testing.T) {
	bodies := []string{
		`{"result":"Hello"}`,
		`{"choices":[]}`,
		`{"content":""}`,
		`{"content":42}`,
		`not json`,
		``,
	}
	for _, body := range bodies {
		if _, err := ParseCompletion([]byte(body)); !errors.Is(err, ErrUnexpectedResponse) {
			t.Errorf("ParseCompletion(%q) error = %v, want ErrUnexpectedResponse", body, err)
		}
	}
}

func TestExtractDelta(t *testing.T) {
	tests := []struct {
		chunk  string
		want   string
		wantOK bool
	}{
		{`{"choices":[{"delta":{"content":"Hel"}}]}`, "Hel", true},
		{`{"choices":[{"text":"lo"}]}`, "lo", true},
		{`{"delta":{"content":"a"}}`, "a", true},
		{`{"message":{"content":"b"}}`, "b", true},
		{`{"content":"c"}`, "c", true},
		{`{"choices":[{"delta":{"role":"assistant"}}]}`, "", true},
		{`{"choices":[{"delta":`, "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractDelta([]byte(tt.chunk))
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ExtractDelta(%s) = %q, %v; want %q, %v", tt.chunk, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseErrorMessage(t *testing.T) {
	tests := []struct{ body, want string }{
		{`{"error":{"message":"invalid api key","type":"auth"}}`, "invalid api key"},
		{`{"message":"model not found"}`, "model not found"},
		{`{"error":"rate limited"}`, "rate limited"},
		{`<html>bad gateway</html>`, "<html>bad gateway</html>"},
		{`{"detail":"x"}`, ""},
	}
	for _, tt := range tests {
		if got := ParseErrorMessage([]byte(tt.body)); got != tt.want {
			t.Errorf("ParseErrorMessage(%s) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

// --- Error taxonomy tests ---

func TestAPIError_Message(t *testing.T) {
	err := apiError(401, []byte(`{"error":{"message":"Incorrect API key provided"}}`))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != 401 {
		t.Errorf("status = %d, want 401", apiErr.StatusCode)
	}
	if got := err.Error(); got != "API error (401): Incorrect API key provided" {
		t.Errorf("Error() = %q", got)
	}

	err = apiError(502, nil)
	if got := err.Error(); got != "API error (502): Bad Gateway" {
		t.Errorf("empty body Error() = %q", got)
	}
}

func TestConnectionError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := &ConnectionError{URL: "http://localhost:1/v1/chat/completions", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("ConnectionError should unwrap to its cause")
	}
}

// --- Factory tests ---

func TestNew_SelectsImplementation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"hosted openai", Config{Kind: KindOpenAI, APIKey: "sk-test"}, "*provider.OpenAIProvider"},
		{"openai compatible proxy", Config{Kind: KindOpenAI, APIKey: "sk-test", BaseURL: "http://localhost:8080/v1"}, "*provider.CompatProvider"},
		{"ollama", Config{Kind: KindOllama, BaseURL: "http://localhost:11434"}, "*provider.CompatProvider"},
		{"custom", Config{Kind: KindCustom, APIKey: "k", BaseURL: "http://lm.local"}, "*provider.CompatProvider"},
		{"anthropic", Config{Kind: KindAnthropic, APIKey: "sk-ant"}, "*provider.AnthropicProvider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg, Options{})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := typeName(p); got != tt.want {
				t.Errorf("New() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"openai without key", Config{Kind: KindOpenAI}, ErrMissingCredential},
		{"anthropic without key", Config{Kind: KindAnthropic}, ErrMissingCredential},
		{"custom without key", Config{Kind: KindCustom, BaseURL: "http://x"}, ErrMissingCredential},
		{"custom without url", Config{Kind: KindCustom, APIKey: "k"}, ErrMissingEndpoint},
		{"ollama without url", Config{Kind: KindOllama}, ErrMissingEndpoint},
		{"unknown kind", Config{Kind: "gemini", APIKey: "k"}, ErrUnsupportedProvider},
		{"none kind", Config{Kind: KindNone}, ErrUnsupportedProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, Options{}); !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func typeName(p Provider) string {
	switch p.(type) {
	case *OpenAIProvider:
		return "*provider.OpenAIProvider"
	case *AnthropicProvider:
		return "*provider.AnthropicProvider"
	case *CompatProvider:
		return "*provider.CompatProvider"
	case *MockProvider:
		return "*provider.MockProvider"
	}
	return "unknown"
}

// Package config loads and manages quillmate configuration.
// Configuration source priority (highest to lowest):
// 1. Command-line flags (applied by cmd)
// 2. Environment variables (QUILLMATE_API_KEY, QUILLMATE_PROVIDER, OPENAI_API_KEY, etc.)
// 3. Config file path specified via --config flag
// 4. ~/.config/quillmate/config.yaml
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quillmate/quillmate/internal/prompt"
	"github.com/quillmate/quillmate/internal/provider"
	"github.com/quillmate/quillmate/internal/session"
)

//go:embed providers_default.yaml
var defaultProvidersYAML []byte

// ProviderDefaults holds the default base URL and model for a provider.
type ProviderDefaults struct {
	BaseURL      string `yaml:"base_url"`
	DefaultModel string `yaml:"default_model"`
}

// LoadProviderDefaults parses the embedded defaults and merges any user
// overrides from ~/.config/quillmate/providers.yaml.
func LoadProviderDefaults() map[string]ProviderDefaults {
	defs := make(map[string]ProviderDefaults)
	_ = yaml.Unmarshal(defaultProvidersYAML, &defs)

	dir, err := Dir()
	if err == nil {
		if data, err := os.ReadFile(filepath.Join(dir, "providers.yaml")); err == nil {
			userDefs := make(map[string]ProviderDefaults)
			if yaml.Unmarshal(data, &userDefs) == nil {
				for name, ud := range userDefs {
					d := defs[name]
					if ud.BaseURL != "" {
						d.BaseURL = ud.BaseURL
					}
					if ud.DefaultModel != "" {
						d.DefaultModel = ud.DefaultModel
					}
					defs[name] = d
				}
			}
		}
	}
	return defs
}

// ProviderConfig holds configuration for a single provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// FallbackConfig describes the provider raced against a slow or failing primary.
type FallbackConfig struct {
	Enabled bool `yaml:"enabled"`

	// Provider: "openai" | "anthropic" | "custom" | "ollama" | "none"
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`

	// TimeoutMS is how long the primary runs alone, default 120000.
	TimeoutMS int `yaml:"timeout_ms"`
}

// CustomPromptsConfig holds user prompt templates. {text} marks where the
// note goes.
type CustomPromptsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Improve string `yaml:"improve"`
	Enhance string `yaml:"enhance"`
}

// ChatConfig holds chat transcript settings.
type ChatConfig struct {
	// MaxHistory caps the messages kept per chat, default 100.
	MaxHistory int `yaml:"max_history"`

	// ContextMessages is how many earlier messages accompany a prompt, default 10.
	ContextMessages int `yaml:"context_messages"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// File is the rotated log file; empty uses ~/.local/share/quillmate/logs/quillmate.log.
	File string `yaml:"file"`

	// Level: "debug" | "info" | "warn" | "error"
	Level string `yaml:"level"`
}

// Config is the complete configuration structure for quillmate.
type Config struct {
	// Provider is the active provider kind ("openai", "anthropic", "custom", "ollama").
	Provider string `yaml:"provider"`

	// Model overrides the provider's default model.
	Model string `yaml:"model"`

	// Providers holds per-provider configuration.
	Providers map[string]*ProviderConfig `yaml:"providers"`

	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// SpeedMode: "quality" | "balanced" | "fast"
	SpeedMode string `yaml:"speed_mode"`

	// Preset: "default" | "formal" | "informal" | "technical"
	Preset string `yaml:"preset"`

	CustomPrompts CustomPromptsConfig `yaml:"custom_prompts"`

	// TestMode answers every request with canned mock output.
	TestMode bool `yaml:"test_mode"`

	Fallback FallbackConfig `yaml:"fallback"`

	Chat ChatConfig `yaml:"chat"`

	// CacheTTL keeps identical rewrite requests in memory; 0 disables the cache.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// RequestTimeout bounds one HTTP request; 0 = no limit beyond the fallback race.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	Log LogConfig `yaml:"log"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider:    string(provider.KindOpenAI),
		Providers:   make(map[string]*ProviderConfig),
		Temperature: 0.7,
		MaxTokens:   2000,
		SpeedMode:   string(prompt.SpeedBalanced),
		Preset:      string(prompt.PresetDefault),
		Fallback: FallbackConfig{
			Provider:  string(provider.KindNone),
			TimeoutMS: int(provider.DefaultFallbackTimeout / time.Millisecond),
		},
		Chat: ChatConfig{
			MaxHistory:      session.DefaultMaxHistory,
			ContextMessages: session.DefaultContextMessages,
		},
		CacheTTL: 10 * time.Minute,
	}
}

// Dir returns ~/.config/quillmate.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "quillmate"), nil
}

// DefaultPath returns ~/.config/quillmate/config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config file and merges environment variable overrides.
// A missing file yields the defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		if p, err := DefaultPath(); err == nil {
			configPath = p
		}
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	}

	if cfg.Providers == nil {
		cfg.Providers = make(map[string]*ProviderConfig)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetProviderConfig returns the config for the named provider, or an empty config if not found.
func (c *Config) GetProviderConfig(name string) *ProviderConfig {
	if pc, ok := c.Providers[name]; ok && pc != nil {
		return pc
	}
	return &ProviderConfig{}
}

// Validate checks the closed sets and numeric ranges, and rewrites provider
// kinds into their canonical lower-case form. Credentials and endpoints are
// checked when providers are built.
func (c *Config) Validate() error {
	var errs []error

	kind, err := provider.ParseKind(c.Provider)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("provider: %w", err))
	case kind == provider.KindNone:
		errs = append(errs, fmt.Errorf("provider: %w: %q is only valid for the fallback", provider.ErrUnsupportedProvider, c.Provider))
	default:
		c.Provider = string(kind)
	}

	if fb, err := provider.ParseKind(c.Fallback.Provider); err == nil {
		c.Fallback.Provider = string(fb)
	} else if c.Fallback.Enabled {
		errs = append(errs, fmt.Errorf("fallback.provider: %w", err))
	}
	if c.Fallback.TimeoutMS < 0 {
		errs = append(errs, fmt.Errorf("fallback.timeout_ms must not be negative, got %d", c.Fallback.TimeoutMS))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be between 0 and 2, got %g", c.Temperature))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens))
	}
	if _, err := prompt.ParseSpeedMode(c.SpeedMode); err != nil {
		errs = append(errs, fmt.Errorf("speed_mode: %w", err))
	}
	if _, err := prompt.ParsePreset(c.Preset); err != nil {
		errs = append(errs, fmt.Errorf("preset: %w", err))
	}
	if c.Chat.MaxHistory < 0 || c.Chat.ContextMessages < 0 {
		errs = append(errs, errors.New("chat.max_history and chat.context_messages must not be negative"))
	}
	return errors.Join(errs...)
}

// ProviderSettings validates the config and resolves it into the immutable
// settings handed to the dispatcher.
func (c *Config) ProviderSettings() (provider.Settings, error) {
	if err := c.Validate(); err != nil {
		return provider.Settings{}, err
	}
	defs := LoadProviderDefaults()

	// Validate left c.Provider in canonical form.
	kind := provider.Kind(c.Provider)
	pc := c.GetProviderConfig(string(kind))
	primary := provider.Config{
		Kind:    kind,
		APIKey:  pc.APIKey,
		BaseURL: pc.BaseURL,
		Model:   firstNonEmpty(c.Model, pc.Model, defs[string(kind)].DefaultModel),
	}
	if primary.BaseURL == "" && kind != provider.KindOpenAI {
		primary.BaseURL = defs[string(kind)].BaseURL
	}

	s := provider.Settings{
		Primary:         primary,
		FallbackTimeout: time.Duration(c.Fallback.TimeoutMS) * time.Millisecond,
		Temperature:     c.Temperature,
		MaxTokens:       c.MaxTokens,
		TestMode:        c.TestMode,
	}
	if s.FallbackTimeout == 0 {
		s.FallbackTimeout = provider.DefaultFallbackTimeout
	}

	if fb := c.Fallback; fb.Enabled && fb.Provider != "" && fb.Provider != string(provider.KindNone) {
		kind := provider.Kind(fb.Provider)
		// Unset fallback fields inherit from the per-provider section.
		shared := c.GetProviderConfig(string(kind))
		fallback := provider.Config{
			Kind:    kind,
			APIKey:  firstNonEmpty(fb.APIKey, shared.APIKey),
			BaseURL: firstNonEmpty(fb.BaseURL, shared.BaseURL),
			Model:   firstNonEmpty(fb.Model, shared.Model, defs[string(kind)].DefaultModel),
		}
		if fallback.BaseURL == "" && kind != provider.KindOpenAI {
			fallback.BaseURL = defs[string(kind)].BaseURL
		}
		s.Fallback = &fallback
	}
	return s, nil
}

// PromptOptions returns the prompt builder settings.
func (c *Config) PromptOptions() prompt.Options {
	speed, _ := prompt.ParseSpeedMode(c.SpeedMode)
	preset, _ := prompt.ParsePreset(c.Preset)
	return prompt.Options{
		Preset:        preset,
		Speed:         speed,
		MaxTokens:     c.MaxTokens,
		UseCustom:     c.CustomPrompts.Enabled,
		CustomImprove: c.CustomPrompts.Improve,
		CustomEnhance: c.CustomPrompts.Enhance,
	}
}

// SaveProviderToFile persists a single provider's config and the active provider
// name into cfgPath, preserving all other user settings.
func SaveProviderToFile(cfgPath, providerName string, pc ProviderConfig) error {
	if cfgPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgPath = p
	}

	// Read existing file into a generic map to preserve unknown fields.
	raw := make(map[string]any)
	if data, err := os.ReadFile(cfgPath); err == nil {
		_ = yaml.Unmarshal(data, &raw) // ignore errors; start fresh if corrupt
	}

	providers, _ := raw["providers"].(map[string]any)
	if providers == nil {
		providers = make(map[string]any)
	}

	entry := map[string]any{}
	if pc.APIKey != "" {
		entry["api_key"] = pc.APIKey
	}
	if pc.BaseURL != "" {
		entry["base_url"] = pc.BaseURL
	}
	if pc.Model != "" {
		entry["model"] = pc.Model
	}
	providers[providerName] = entry
	raw["providers"] = providers

	// Set active provider and clear stale global model override.
	raw["provider"] = providerName
	delete(raw, "model")

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(cfgPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) error {
	// Provider selection first, so keys land on the right provider.
	if v := os.Getenv("QUILLMATE_PROVIDER"); v != "" {
		if k, err := provider.ParseKind(v); err == nil {
			v = string(k)
		}
		cfg.Provider = v
	}
	if v := os.Getenv("QUILLMATE_MODEL"); v != "" {
		cfg.Model = v
	}

	active := func() *ProviderConfig {
		if cfg.Providers[cfg.Provider] == nil {
			cfg.Providers[cfg.Provider] = &ProviderConfig{}
		}
		return cfg.Providers[cfg.Provider]
	}

	// Vendor-specific keys.
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		if cfg.Providers["openai"] == nil {
			cfg.Providers["openai"] = &ProviderConfig{}
		}
		cfg.Providers["openai"].APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		if cfg.Providers["anthropic"] == nil {
			cfg.Providers["anthropic"] = &ProviderConfig{}
		}
		cfg.Providers["anthropic"].APIKey = v
	}

	// Generic overrides win over vendor keys for the active provider.
	if v := os.Getenv("QUILLMATE_API_KEY"); v != "" {
		active().APIKey = v
	}
	if v := os.Getenv("QUILLMATE_BASE_URL"); v != "" {
		active().BaseURL = v
	}
	if v := os.Getenv("QUILLMATE_FALLBACK_API_KEY"); v != "" {
		cfg.Fallback.APIKey = v
	}
	if v := os.Getenv("QUILLMATE_TEST_MODE"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("QUILLMATE_TEST_MODE: %w", err)
		}
		cfg.TestMode = on
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

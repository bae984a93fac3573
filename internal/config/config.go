// Package config handles loading and persisting user configuration
// for scholar. Configuration is stored in ~/.scholar/config.json.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	dirName  = ".scholar"
	fileName = "config.json"

	DefaultGoogleModel       = "gemini-flash-lite-latest"
	DefaultLMStudioBaseURL   = "http://localhost:1234/v1"
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultGatewayBaseURL    = "http://localhost:8080/v1"
	defaultLogLevel          = "warn"
)

// Provider selects the chat backend.
type Provider string

const (
	ProviderGoogle     Provider = "google"
	ProviderLMStudio   Provider = "lmstudio"
	ProviderOpenRouter Provider = "openrouter"
	ProviderGateway    Provider = "gateway"
)

// Providers lists every supported backend in display order.
var Providers = []Provider{ProviderGoogle, ProviderLMStudio, ProviderOpenRouter, ProviderGateway}

// ParseProvider accepts a provider name (case-insensitive). "mcp" is an alias for the gateway.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "google", "gemini":
		return ProviderGoogle, nil
	case "lmstudio", "lm-studio":
		return ProviderLMStudio, nil
	case "openrouter":
		return ProviderOpenRouter, nil
	case "gateway", "mcp":
		return ProviderGateway, nil
	}
	return "", fmt.Errorf("unknown provider %q (choose google, lmstudio, openrouter or gateway)", s)
}

// Native reports whether p is the backend with its own SDK session rather than an
// OpenAI-compatible HTTP API.
func (p Provider) Native() bool { return p == ProviderGoogle }

// LM Studio connection targets.
const (
	TargetStandard = "standard"
	TargetRemote   = "remote"
)

// Config holds the user's configuration.
type Config struct {
	Provider          Provider `json:"provider"`
	GoogleAPIKey      string   `json:"google_api_key,omitempty"`
	OpenRouterAPIKey  string   `json:"openrouter_api_key,omitempty"`
	LMStudioBaseURL   string   `json:"lmstudio_base_url"`
	LMStudioRemoteURL string   `json:"lmstudio_remote_url,omitempty"`
	LMStudioTarget    string   `json:"lmstudio_target"`
	OpenRouterBaseURL string   `json:"openrouter_base_url"`
	GatewayBaseURL    string   `json:"gateway_base_url"`
	GatewayAPIKey     string   `json:"gateway_api_key,omitempty"`
	Model             string   `json:"model"`
	LogLevel          string   `json:"log_level,omitempty"`
}

// Default returns the configuration used when nothing has been saved yet.
func Default() *Config {
	return &Config{
		Provider:          ProviderGoogle,
		LMStudioBaseURL:   DefaultLMStudioBaseURL,
		LMStudioTarget:    TargetStandard,
		OpenRouterBaseURL: DefaultOpenRouterBaseURL,
		GatewayBaseURL:    DefaultGatewayBaseURL,
		Model:             DefaultGoogleModel,
		LogLevel:          defaultLogLevel,
	}
}

// Dir returns the configuration directory path.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, dirName)
}

func configPath() string {
	return filepath.Join(Dir(), fileName)
}

// Load reads the configuration from disk and environment variables.
// A missing or unreadable file is not an error; defaults are used instead.
func Load() (*Config, error) {
	cfg := readFile()
	applyEnv(cfg)
	cfg.fillDefaults()
	return cfg, nil
}

func readFile() *Config {
	cfg := Default()
	data, err := os.ReadFile(configPath())
	if err == nil {
		_ = json.Unmarshal(data, cfg)
	}
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SCHOLAR_PROVIDER"); v != "" {
		if p, err := ParseProvider(v); err == nil {
			cfg.Provider = p
		}
	}
	if v := firstEnv("GEMINI_API_KEY", "API_KEY"); v != "" && cfg.GoogleAPIKey == "" {
		cfg.GoogleAPIKey = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.OpenRouterAPIKey = v
	}
	if v := os.Getenv("LMSTUDIO_BASE_URL"); v != "" {
		cfg.LMStudioBaseURL = v
	}
	if v := os.Getenv("LMSTUDIO_REMOTE_URL"); v != "" {
		cfg.LMStudioRemoteURL = v
	}
	if v := os.Getenv("OPENROUTER_BASE_URL"); v != "" {
		cfg.OpenRouterBaseURL = v
	}
	if v := os.Getenv("SCHOLAR_GATEWAY_URL"); v != "" {
		cfg.GatewayBaseURL = v
	}
	if v := os.Getenv("SCHOLAR_GATEWAY_KEY"); v != "" {
		cfg.GatewayAPIKey = v
	}
	if v := os.Getenv("SCHOLAR_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("SCHOLAR_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func (c *Config) fillDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderGoogle
	}
	if c.LMStudioTarget == "" {
		c.LMStudioTarget = TargetStandard
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.Provider == ProviderGoogle && c.Model == "" {
		c.Model = DefaultGoogleModel
	}
}

// BaseURL returns the endpoint root for OpenAI-compatible providers.
// The native provider has no configurable base URL and returns "".
func (c *Config) BaseURL() string {
	switch c.Provider {
	case ProviderLMStudio:
		if c.LMStudioTarget == TargetRemote {
			return strings.TrimRight(c.LMStudioRemoteURL, "/")
		}
		return strings.TrimRight(c.LMStudioBaseURL, "/")
	case ProviderOpenRouter:
		return strings.TrimRight(c.OpenRouterBaseURL, "/")
	case ProviderGateway:
		return strings.TrimRight(c.GatewayBaseURL, "/")
	}
	return ""
}

// APIKey returns the bearer credential for the active provider.
// LM Studio ignores the key but expects the header, so a fixed placeholder is used.
func (c *Config) APIKey() string {
	switch c.Provider {
	case ProviderGoogle:
		return c.GoogleAPIKey
	case ProviderLMStudio:
		return "lm-studio"
	case ProviderOpenRouter:
		return c.OpenRouterAPIKey
	case ProviderGateway:
		return c.GatewayAPIKey
	}
	return ""
}

// ErrMisconfigured is wrapped by every configuration validation failure.
var ErrMisconfigured = errors.New("provider misconfigured")

// MisconfiguredError names the setting that must be filled in before a request can be made.
type MisconfiguredError struct {
	Provider Provider
	Field    string
}

func (e *MisconfiguredError) Error() string {
	return fmt.Sprintf("%s: %s is not set — run: scholar config", e.Provider, e.Field)
}

func (e *MisconfiguredError) Unwrap() error { return ErrMisconfigured }

// Validate checks that the active provider has everything it needs.
func (c *Config) Validate() error {
	missing := func(field string) error {
		return &MisconfiguredError{Provider: c.Provider, Field: field}
	}
	switch c.Provider {
	case ProviderGoogle:
		if c.GoogleAPIKey == "" {
			return missing("Google API key")
		}
		return nil
	case ProviderOpenRouter:
		if c.OpenRouterAPIKey == "" {
			return missing("OpenRouter API key")
		}
	case ProviderLMStudio:
		if c.LMStudioTarget == TargetRemote && c.LMStudioRemoteURL == "" {
			return missing("LM Studio remote URL")
		}
	case ProviderGateway:
	default:
		return fmt.Errorf("%w: invalid API provider %q", ErrMisconfigured, c.Provider)
	}
	if c.BaseURL() == "" {
		return missing("base URL")
	}
	if c.Model == "" {
		return missing("model")
	}
	return nil
}

// Masked renders a secret as its first and last four characters.
func Masked(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// save persists the config to disk.
func save(cfg *Config) error {
	if err := os.MkdirAll(Dir(), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath(), data, 0o600)
}

func update(fn func(cfg *Config) error) error {
	cfg := readFile()
	if err := fn(cfg); err != nil {
		return err
	}
	return save(cfg)
}

// SetProvider switches the active backend and resets the model to that backend's default.
func SetProvider(p Provider) error {
	return update(func(cfg *Config) error {
		if cfg.Provider != p {
			cfg.Model = ""
			if p == ProviderGoogle {
				cfg.Model = DefaultGoogleModel
			}
		}
		cfg.Provider = p
		return nil
	})
}

// SetAPIKey saves the API key for a provider.
func SetAPIKey(p Provider, key string) error {
	return update(func(cfg *Config) error {
		switch p {
		case ProviderGoogle:
			cfg.GoogleAPIKey = key
		case ProviderOpenRouter:
			cfg.OpenRouterAPIKey = key
		case ProviderGateway:
			cfg.GatewayAPIKey = key
		default:
			return fmt.Errorf("%s does not use an API key", p)
		}
		return nil
	})
}

// SetBaseURL saves the endpoint for an OpenAI-compatible provider.
func SetBaseURL(p Provider, url string) error {
	return update(func(cfg *Config) error {
		switch p {
		case ProviderLMStudio:
			cfg.LMStudioBaseURL = url
		case ProviderOpenRouter:
			cfg.OpenRouterBaseURL = url
		case ProviderGateway:
			cfg.GatewayBaseURL = url
		default:
			return fmt.Errorf("%s has no configurable base URL", p)
		}
		return nil
	})
}

// SetLMStudioTarget selects which LM Studio address is used ("standard" or "remote").
// A non-empty url replaces the remote address.
func SetLMStudioTarget(target, url string) error {
	if target != TargetStandard && target != TargetRemote {
		return fmt.Errorf("unknown connection target %q (choose standard or remote)", target)
	}
	return update(func(cfg *Config) error {
		cfg.LMStudioTarget = target
		if url != "" {
			cfg.LMStudioRemoteURL = url
		}
		return nil
	})
}

// SetModel saves the model preference to the config file.
func SetModel(model string) error {
	return update(func(cfg *Config) error {
		cfg.Model = model
		return nil
	})
}

package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/arin/scholar/internal/config"
)

// ModelInfo describes one model offered by a provider.
type ModelInfo struct {
	ID     string
	Name   string
	IsFree bool
}

// nativeModels is offered for the google provider, which has no listing endpoint here.
var nativeModels = []ModelInfo{
	{ID: config.DefaultGoogleModel, Name: "Gemini Flash Lite (latest)"},
	{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash"},
	{ID: ProModel, Name: "Gemini 2.5 Pro"},
}

// ListModels returns the models the active provider offers.
func ListModels(ctx context.Context, cfg *config.Config, opts ...Option) ([]ModelInfo, error) {
	if cfg.Provider.Native() {
		return append([]ModelInfo(nil), nativeModels...), nil
	}
	baseURL := cfg.BaseURL()
	if baseURL == "" {
		return nil, &config.MisconfiguredError{Provider: cfg.Provider, Field: "base URL"}
	}
	o := buildOptions(opts)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if key := cfg.APIKey(); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := o.requestClient().Do(req)
	if err != nil {
		return nil, &TransportError{Provider: cfg.Provider, BaseURL: baseURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: cfg.Provider, BaseURL: baseURL, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &RequestError{Provider: cfg.Provider, Status: resp.StatusCode, Body: string(body)}
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("failed to parse model list from %s", baseURL)
	}

	var models []ModelInfo
	gjson.GetBytes(body, "data").ForEach(func(_, m gjson.Result) bool {
		id := m.Get("id").String()
		if id == "" {
			return true
		}
		name := m.Get("name").String()
		if name == "" {
			name = id
		}
		models = append(models, ModelInfo{ID: id, Name: name, IsFree: isFree(m.Get("pricing"))})
		return true
	})
	return models, nil
}

// isFree is true only when pricing is present and both prompt and completion cost zero.
func isFree(pricing gjson.Result) bool {
	if !pricing.Exists() {
		return false
	}
	prompt, err1 := strconv.ParseFloat(pricing.Get("prompt").String(), 64)
	completion, err2 := strconv.ParseFloat(pricing.Get("completion").String(), 64)
	return err1 == nil && err2 == nil && prompt == 0 && completion == 0
}

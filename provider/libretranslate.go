package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mgaitan/wkp"
)

// DefaultLibreTranslateURL is the public instance used when no endpoint is
// configured.
const DefaultLibreTranslateURL = "https://libretranslate.de/translate"

// LibreTranslate talks to a LibreTranslate-compatible HTTP endpoint. Each
// text in a request is posted individually; the endpoint has no batch API.
type LibreTranslate struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// LibreTranslateConfig holds configuration for the LibreTranslate provider.
type LibreTranslateConfig struct {
	Endpoint string        // translate URL (default: DefaultLibreTranslateURL)
	APIKey   string        // optional API key
	Timeout  time.Duration // per-request timeout (default: 30s)
}

// NewLibreTranslate creates a LibreTranslate provider.
func NewLibreTranslate(cfg LibreTranslateConfig) *LibreTranslate {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultLibreTranslateURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LibreTranslate{
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText *string `json:"translatedText"`
	Error          string  `json:"error"`
}

// Translate implements TranslationProvider.
func (p *LibreTranslate) Translate(ctx context.Context, req Request) ([]string, error) {
	out := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		translated, err := p.translateOne(ctx, text, req.SourceLang, req.TargetLang)
		if err != nil {
			return nil, err
		}
		out[i] = translated
	}
	return out, nil
}

func (p *LibreTranslate) translateOne(ctx context.Context, text, source, target string) (string, error) {
	body, err := json.Marshal(libreRequest{
		Q:      text,
		Source: source,
		Target: target,
		Format: "text",
		APIKey: p.apiKey,
	})
	if err != nil {
		return "", &wkp.ProviderError{Message: "encoding request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &wkp.ProviderError{Message: "building request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", &wkp.ProviderError{Message: "LibreTranslate request failed", Cause: err, Retryable: true}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", &wkp.ProviderError{Message: "reading response", Cause: err, Retryable: true}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &wkp.ProviderError{
			Message:   fmt.Sprintf("LibreTranslate returned HTTP %d: %s", resp.StatusCode, truncate(string(data), 200)),
			Retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}

	var parsed libreResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &wkp.ProviderError{Message: "invalid JSON from LibreTranslate", Cause: err}
	}
	if parsed.TranslatedText == nil {
		msg := "response missing translatedText"
		if parsed.Error != "" {
			msg = "LibreTranslate error: " + parsed.Error
		}
		return "", &wkp.ProviderError{Message: msg}
	}
	return *parsed.TranslatedText, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Verify LibreTranslate implements TranslationProvider
var _ TranslationProvider = (*LibreTranslate)(nil)

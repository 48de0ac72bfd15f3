package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mgaitan/wkp"
	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider translates batches of wikitext prose through OpenAI's chat
// API. The prompt instructs the model to copy placeholder tokens verbatim;
// the pipeline still verifies that on reassembly.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string  // API key
	Model       string  // model to use (default: "gpt-4o-mini")
	Temperature float32 // generation temperature (default: 0.3)
	BaseURL     string  // custom base URL (optional)
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
	}
}

// Translate implements TranslationProvider.
func (p *OpenAIProvider) Translate(ctx context.Context, req Request) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	userMessage, _ := json.Marshal(req.Texts)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.buildSystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: string(userMessage)},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, &wkp.ProviderError{
			Message:   "OpenAI API call failed",
			Cause:     err,
			Retryable: isRetryableError(err),
		}
	}
	if len(resp.Choices) == 0 {
		return nil, &wkp.ProviderError{Message: "no response from OpenAI", Retryable: true}
	}

	return p.parseResponse(resp.Choices[0].Message.Content, len(req.Texts))
}

func (p *OpenAIProvider) buildSystemPrompt(req Request) string {
	target := wkp.GetLanguageName(req.TargetLang)
	source := wkp.GetLanguageName(req.SourceLang)

	var b strings.Builder
	fmt.Fprintf(&b, `# Role
You are an expert translator of encyclopedia articles from %s to %s.

# Task
Translate the provided texts into natural, encyclopedic %s. The texts are
fragments of a wiki article with markup replaced by placeholder tokens.

# Rules
- Keep an encyclopedic register: neutral, precise, no embellishment.
- Preserve meaningful whitespace exactly, including leading/trailing spaces and newlines.
- Do NOT translate proper nouns unless the target language has an established form.
`, source, target, target)

	if req.KeepPattern != "" {
		fmt.Fprintf(&b, `- Strings matching the pattern %s are placeholder tokens for protected markup.
  Copy every one of them to your output VERBATIM, exactly once, in its position
  relative to the surrounding text. Never translate, drop, duplicate, or reorder them.
`, req.KeepPattern)
	}

	b.WriteString(`
# Format
Return a valid JSON object with a single key "translations" containing an
array of strings in the exact same order as the input.
Example: { "translations": ["translated string 1", "translated string 2"] }
Do NOT wrap the JSON in Markdown code blocks.`)

	return b.String()
}

func (p *OpenAIProvider) parseResponse(content string, expectedCount int) ([]string, error) {
	// Preferred shape: {"translations": [...]}.
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(content), &obj); err == nil {
		if arr, ok := obj["translations"].([]interface{}); ok {
			return toStringSlice(arr, expectedCount)
		}
		// Fallback: first array value in the object.
		for _, v := range obj {
			if arr, ok := v.([]interface{}); ok {
				return toStringSlice(arr, expectedCount)
			}
		}
	}

	var arr []interface{}
	if err := json.Unmarshal([]byte(content), &arr); err == nil {
		return toStringSlice(arr, expectedCount)
	}

	return nil, &wkp.ProviderError{Message: "invalid response format from OpenAI"}
}

func toStringSlice(arr []interface{}, expectedCount int) ([]string, error) {
	result := make([]string, len(arr))
	for i, v := range arr {
		if s, ok := v.(string); ok {
			result[i] = s
		} else {
			result[i] = fmt.Sprintf("%v", v)
		}
	}
	if len(result) != expectedCount {
		return nil, &wkp.CountMismatchError{Expected: expectedCount, Got: len(result)}
	}
	return result, nil
}

func isRetryableError(err error) bool {
	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"rate limit", "timeout", "connection refused", "temporary", "503", "502", "429"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// Verify OpenAIProvider implements TranslationProvider
var _ TranslationProvider = (*OpenAIProvider)(nil)

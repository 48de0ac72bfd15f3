package provider

import "context"

// MockProvider is a canned-answer provider for tests.
type MockProvider struct {
	Translations map[string]string // source text -> translation
	CallCount    int               // number of Translate calls
	LastRequest  *Request          // last request received
	Err          error             // when set, every call fails with it
}

// NewMockProvider creates a mock provider with a few Spanish defaults.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Translations: map[string]string{
			"Hello":       "Hola",
			"World":       "Mundo",
			"Hello World": "Hola Mundo",
		},
	}
}

// Translate returns the canned translation for each text, or the text
// wrapped in angle quotes when unknown.
func (m *MockProvider) Translate(ctx context.Context, req Request) ([]string, error) {
	m.CallCount++
	m.LastRequest = &req
	if m.Err != nil {
		return nil, m.Err
	}

	results := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		if translation, ok := m.Translations[text]; ok {
			results[i] = translation
		} else {
			results[i] = "«" + text + "»"
		}
	}
	return results, nil
}

// Reset clears the call count and last request.
func (m *MockProvider) Reset() {
	m.CallCount = 0
	m.LastRequest = nil
}

// Verify MockProvider implements TranslationProvider
var _ TranslationProvider = (*MockProvider)(nil)

// Package provider implements translation backends: LibreTranslate and
// OpenAI, plus a mock for tests.
package provider

import "github.com/mgaitan/wkp"

// TranslationProvider is an alias to the main package interface.
type TranslationProvider = wkp.TranslationProvider

// Request is an alias to the main package type.
type Request = wkp.Request

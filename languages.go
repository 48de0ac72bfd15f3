package wkp

import "strings"

// LanguageNames maps Wikipedia language codes to English names, used for
// prompting AI providers and for CLI output. The list covers the large
// wikis; unknown codes pass through as-is.
var LanguageNames = map[string]string{
	"ar": "Arabic",
	"ca": "Catalan",
	"cs": "Czech",
	"da": "Danish",
	"de": "German",
	"el": "Greek",
	"en": "English",
	"eo": "Esperanto",
	"es": "Spanish",
	"eu": "Basque",
	"fa": "Persian",
	"fi": "Finnish",
	"fr": "French",
	"gl": "Galician",
	"he": "Hebrew",
	"hi": "Hindi",
	"hu": "Hungarian",
	"id": "Indonesian",
	"it": "Italian",
	"ja": "Japanese",
	"ko": "Korean",
	"nl": "Dutch",
	"no": "Norwegian",
	"pl": "Polish",
	"pt": "Portuguese",
	"ro": "Romanian",
	"ru": "Russian",
	"sv": "Swedish",
	"tr": "Turkish",
	"uk": "Ukrainian",
	"vi": "Vietnamese",
	"zh": "Chinese",
}

// RTLLanguages contains language codes written right to left. Preview
// documents get their dir attribute from this.
var RTLLanguages = map[string]bool{
	"ar": true, // Arabic
	"he": true, // Hebrew
	"fa": true, // Persian
	"ur": true, // Urdu
	"ps": true, // Pashto
	"sd": true, // Sindhi
	"ug": true, // Uyghur
}

// GetLanguageName returns the English name for a language code, falling
// back to the code itself.
func GetLanguageName(code string) string {
	if name, ok := LanguageNames[NormalizeLang(code)]; ok {
		return name
	}
	return code
}

// NormalizeLang lowercases a language code and strips any region suffix
// ("es-ES" and "es_ES" both become "es", the form wiki hostnames use).
func NormalizeLang(code string) string {
	code = strings.ToLower(code)
	if i := strings.IndexAny(code, "-_"); i >= 0 {
		code = code[:i]
	}
	return code
}

// GetDirection returns "rtl" for right-to-left languages, "ltr" otherwise.
func GetDirection(code string) string {
	if RTLLanguages[NormalizeLang(code)] {
		return "rtl"
	}
	return "ltr"
}

// IsRTL reports whether the language is written right to left.
func IsRTL(code string) bool {
	return GetDirection(code) == "rtl"
}

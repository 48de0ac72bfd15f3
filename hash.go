package wkp

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashText computes the SHA-256 hash of the exact text. Unit text is hashed
// as-is: whitespace and placeholder tokens are significant.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// CacheKey builds a translation-memory key from a text hash and the
// language pair. The same source text translated into another language pair
// must never share an entry.
func CacheKey(hash, sourceLang, targetLang string) string {
	return hash + ":" + sourceLang + ":" + targetLang
}

// Package cache provides translation-memory implementations: in-memory
// with TTL, Redis-backed, and JSON export/import for moving a memory
// between machines.
package cache

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	// Get retrieves a cached translation. Returns false if not found or expired.
	Get(key string) (string, bool)

	// Set stores a translation in the cache.
	Set(key string, value string) error
}

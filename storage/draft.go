// Package storage keeps local article drafts on disk. A draft is a plain
// wikitext file under <root>/<lang>/<title>.wiki with a YAML sidecar
// carrying the revision the draft was based on, which the publish guard
// consumes later.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MetaSuffix is appended to a draft path to form its sidecar path.
const MetaSuffix = ".meta.yaml"

// Meta is the sidecar record stored next to a draft.
type Meta struct {
	Title      string    `yaml:"title"`
	Lang       string    `yaml:"lang"`
	SourceLang string    `yaml:"source_lang,omitempty"`
	RevisionID string    `yaml:"revision_id"`
	FetchedAt  time.Time `yaml:"fetched_at"`
}

// Store reads and writes drafts under a root directory.
type Store struct {
	Root string
}

// NewStore creates a store rooted at dir (default "articles").
func NewStore(dir string) *Store {
	if dir == "" {
		dir = "articles"
	}
	return &Store{Root: dir}
}

// Path returns the draft path for a language and title.
func (s *Store) Path(lang, title string) string {
	return filepath.Join(s.Root, lang, SafeFilename(title)+".wiki")
}

// Save writes a draft and its sidecar, creating directories as needed.
// Returns the draft path.
func (s *Store) Save(lang, title, text string, meta *Meta) (string, error) {
	path := s.Path(lang, title)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating draft directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("writing draft: %w", err)
	}
	if meta != nil {
		if err := WriteMeta(path, meta); err != nil {
			return "", err
		}
	}
	return path, nil
}

// Load reads a draft and its sidecar. A missing sidecar is not an error:
// the returned Meta is nil and publishing will require an explicit base
// revision.
func Load(path string) (string, *Meta, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return "", nil, fmt.Errorf("reading draft: %w", err)
	}
	meta, err := ReadMeta(path)
	if err != nil {
		return "", nil, err
	}
	return string(data), meta, nil
}

// WriteMeta writes the sidecar for a draft path.
func WriteMeta(draftPath string, meta *Meta) error {
	data, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding sidecar: %w", err)
	}
	if err := os.WriteFile(draftPath+MetaSuffix, data, 0o644); err != nil {
		return fmt.Errorf("writing sidecar: %w", err)
	}
	return nil
}

// ReadMeta reads the sidecar for a draft path, or nil when there is none.
func ReadMeta(draftPath string) (*Meta, error) {
	data, err := os.ReadFile(draftPath + MetaSuffix) // #nosec G304
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading sidecar: %w", err)
	}
	var meta Meta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing sidecar: %w", err)
	}
	return &meta, nil
}

var unsafeChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// SafeFilename converts an article title into a filesystem-safe name,
// mirroring MediaWiki's space/underscore convention.
func SafeFilename(title string) string {
	safe := strings.ReplaceAll(title, " ", "_")
	return unsafeChars.ReplaceAllString(safe, "_")
}

// TitleFromPath recovers an article title from a draft path.
func TitleFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(base, "_", " ")
}

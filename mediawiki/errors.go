package mediawiki

import "fmt"

// APIError is a generic error reported by the MediaWiki API.
type APIError struct {
	Code string
	Info string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mediawiki api error %s: %s", e.Code, e.Info)
}

// PageNotFoundError indicates the requested article does not exist.
type PageNotFoundError struct {
	Title string
}

func (e *PageNotFoundError) Error() string {
	return fmt.Sprintf("page not found: %s", e.Title)
}

// EditConflictError indicates the draft's base revision is no longer the
// article's current one. No write was performed (or the server detected the
// conflict itself and refused); the caller must re-fetch and re-base.
type EditConflictError struct {
	Title           string
	BaseRevisionID  string
	CurrentRevision string // empty when only the server saw the conflict
}

func (e *EditConflictError) Error() string {
	if e.CurrentRevision == "" {
		return fmt.Sprintf("edit conflict on %q: base revision %s is stale", e.Title, e.BaseRevisionID)
	}
	return fmt.Sprintf("edit conflict on %q: draft based on revision %s but current is %s",
		e.Title, e.BaseRevisionID, e.CurrentRevision)
}

// PublishRejectedError indicates the server refused the edit (permissions,
// abuse filter, rate limit, ...). The server's reason is carried verbatim.
type PublishRejectedError struct {
	Code string
	Info string
}

func (e *PublishRejectedError) Error() string {
	return fmt.Sprintf("publish rejected (%s): %s", e.Code, e.Info)
}

// PublishUnknownError indicates the submit request failed in transit, so
// the edit may or may not have been applied. The caller must check the
// article's remote state before retrying; a blind retry risks a duplicate
// edit.
type PublishUnknownError struct {
	Cause error
}

func (e *PublishUnknownError) Error() string {
	return fmt.Sprintf("publish outcome unknown: %v", e.Cause)
}

func (e *PublishUnknownError) Unwrap() error {
	return e.Cause
}

package wkp

import "fmt"

// ProviderError indicates a translation backend failure (API error, rate
// limit, malformed reply, etc.).
type ProviderError struct {
	Message   string
	Cause     error
	Retryable bool // whether the operation can be retried
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// CacheError indicates a cache operation failure.
type CacheError struct {
	Message string
	Cause   error
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cache error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("cache error: %s", e.Message)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}

// CountMismatchError indicates the provider returned a different number of
// translations than texts it was given.
type CountMismatchError struct {
	Expected int
	Got      int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("translation count mismatch: expected %d, got %d", e.Expected, e.Got)
}

// UnitError records the failure of a single translation unit. It is
// non-fatal: the pipeline substitutes the unit's original text and keeps
// going.
type UnitError struct {
	Index int
	Cause error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %d: %v", e.Index, e.Cause)
}

func (e *UnitError) Unwrap() error {
	return e.Cause
}

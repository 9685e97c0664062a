package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRunInProgress is returned when an ingestion run is already active.
	ErrRunInProgress = errors.New("ingestion run already in progress")
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUserExists is returned when registering a taken username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// FetchError reports a transport or status failure on a listing or article fetch.
type FetchError struct {
	Page int
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("fetch page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DomainMismatchError is returned for URLs outside the configured site.
type DomainMismatchError struct {
	URL    string
	Domain string
}

func (e *DomainMismatchError) Error() string {
	return fmt.Sprintf("url %s does not belong to %s", e.URL, e.Domain)
}

// ParseError is returned when expected markup is missing from a document.
type ParseError struct {
	URL   string
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.URL, e.Field, e.Err)
	}
	return fmt.Sprintf("parse %s: %s not found", e.URL, e.Field)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ClassificationError is returned when the classifier answer is outside the vocabulary.
type ClassificationError struct {
	Answer string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("unrecognised relevance answer %q", e.Answer)
}

// SummaryError is returned when the summarizer response is empty or malformed.
type SummaryError struct {
	Answer string
	Err    error
}

func (e *SummaryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unusable summary: %v", e.Err)
	}
	return "unusable summary: empty response"
}

func (e *SummaryError) Unwrap() error { return e.Err }

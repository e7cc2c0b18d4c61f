package browser

import (
	"errors"
	"fmt"
)

// Kind classifies a browser or network failure.
type Kind int

const (
	// ElementNotFound means a selector matched nothing in the current document.
	ElementNotFound Kind = iota + 1
	// Timeout means a bounded wait expired before its condition held.
	Timeout
	// StaleReference means an element handle outlived the document it came from.
	StaleReference
	// NetworkError means a page or resource could not be fetched.
	NetworkError
)

func (k Kind) String() string {
	switch k {
	case ElementNotFound:
		return "element not found"
	case Timeout:
		return "timeout"
	case StaleReference:
		return "stale reference"
	case NetworkError:
		return "network error"
	default:
		return "unknown"
	}
}

// Error is returned by Driver and Element operations.
type Error struct {
	Kind     Kind
	Selector string
	URL      string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Selector != "" {
		msg += fmt.Sprintf(" (selector %q)", e.Selector)
	}
	if e.URL != "" {
		msg += fmt.Sprintf(" (url %s)", e.URL)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err carries a browser error of the given kind.
func IsKind(err error, kind Kind) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind == kind
	}
	return false
}

// KindOf returns the kind carried by err, or 0 when err is not a browser error.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return 0
}

func notFound(selector string) error {
	return &Error{Kind: ElementNotFound, Selector: selector}
}

func timeout(selector string, err error) error {
	return &Error{Kind: Timeout, Selector: selector, Err: err}
}

func stale(selector string) error {
	return &Error{Kind: StaleReference, Selector: selector}
}

// NewNetworkError wraps a fetch failure for url.
func NewNetworkError(url string, err error) error {
	return &Error{Kind: NetworkError, URL: url, Err: err}
}

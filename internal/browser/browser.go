// Package browser defines the page-automation capability the crawler drives
// and provides a headless Chrome implementation and a static HTML one.
package browser

import (
	"context"
	"time"
)

// Driver navigates a single browsing session and locates elements in the
// currently loaded document.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Back(ctx context.Context) error
	CurrentURL(ctx context.Context) (string, error)

	// WaitPresent blocks until selector matches at least one element or the
	// timeout expires with a Timeout error.
	WaitPresent(ctx context.Context, selector string, timeout time.Duration) error
	// WaitClickable blocks until selector matches a visible, enabled element
	// and returns it.
	WaitClickable(ctx context.Context, selector string, timeout time.Duration) (Element, error)

	Find(ctx context.Context, selector string) (Element, error)
	FindAll(ctx context.Context, selector string) ([]Element, error)
	Click(ctx context.Context, el Element) error

	Close() error
}

// Element is a handle to a node of the document it was located in. Using it
// after the driver navigates, goes back or clicks yields a StaleReference error.
type Element interface {
	Text(ctx context.Context) (string, error)
	// Attribute returns the named attribute, or "" when it is not set. Link
	// attributes (href, src) are resolved to absolute URLs.
	Attribute(ctx context.Context, name string) (string, error)
	Find(ctx context.Context, selector string) (Element, error)
	FindAll(ctx context.Context, selector string) ([]Element, error)
}

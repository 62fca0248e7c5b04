package portal

import (
	"context"
	"time"
)

// KeyEscape is the key sent to dismiss the document view.
const KeyEscape = "Escape"

// Browser is the browser session the scraper drives. There is exactly one
// page, every method acts on it.
//
// note: fault injection point
type Browser interface {
	Navigate(ctx context.Context, url string) error
	// Fill replaces the value of the input matching selector.
	Fill(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error
	// Count returns the number of elements matching selector without waiting for any.
	Count(ctx context.Context, selector string) (int, error)
	// Text returns the text content of the first element matching selector,
	// nil means the element did not show up within timeout.
	Text(ctx context.Context, selector string, timeout time.Duration) (*string, error)
	// HTML returns the outer html of the first element matching selector.
	HTML(ctx context.Context, selector string) (string, error)
	// Frames returns every content frame nested in the page, depth first.
	Frames(ctx context.Context) ([]Frame, error)
	PressKey(ctx context.Context, key string) error
	// FetchBytes fetches url from inside the page so the request carries the
	// session's cookies, it returns the raw response body.
	FetchBytes(ctx context.Context, url string) ([]byte, error)
	Wait(ctx context.Context, d time.Duration) error
	// WaitNetworkIdle returns an error if the page has requests in flight
	// for longer than timeout.
	WaitNetworkIdle(ctx context.Context, timeout time.Duration) error
}

// Frame is a content frame (iframe) of the page.
type Frame interface {
	Count(ctx context.Context, selector string) (int, error)
	// Attribute returns the attribute of the first element matching selector,
	// nil means that there is no such element or attribute.
	Attribute(ctx context.Context, selector, name string) (*string, error)
}

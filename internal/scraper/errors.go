package scraper

import "errors"

var (
	// ErrNotHTML means the response came back 200 but the body does not look
	// like an HTML document (e.g. a JSON anti-bot interstitial).
	ErrNotHTML = errors.New("response body is not an HTML document")

	// ErrBadStatus means the server answered with a non-success status.
	ErrBadStatus = errors.New("non-success HTTP status")

	// ErrFetchFailed means every retry attempt across every candidate host
	// came back empty.
	ErrFetchFailed = errors.New("all fetch attempts failed")
)

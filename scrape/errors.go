package scrape

import "errors"

var (
	// ErrInvalidURL is returned when a URL cannot be parsed or has no host.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrInvalidScheme is returned for schemes other than http and https.
	ErrInvalidScheme = errors.New("URL scheme not allowed")

	// ErrPrivateNetworkBlocked is returned when a host resolves to a
	// loopback, link-local, or private-range address.
	ErrPrivateNetworkBlocked = errors.New("private network address blocked")

	// ErrDomainNotAllowed is returned when a host falls outside the
	// configured allow-list.
	ErrDomainNotAllowed = errors.New("domain not allowed")

	// ErrFetchFailed is returned when a page cannot be retrieved.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrFetchTimeout is returned when a fetch exceeds its deadline.
	ErrFetchTimeout = errors.New("fetch timed out")
)

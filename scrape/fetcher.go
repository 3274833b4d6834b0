package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	defaultFetchTimeout = 30 * time.Second

	// maxBodySize bounds how much of a page is read (4 MiB).
	maxBodySize = 4 << 20
)

// Fetcher retrieves pages over HTTP with SSRF validation on every hop:
// the initial URL and each redirect target are checked independently.
type Fetcher struct {
	client         *http.Client
	allowedDomains []string

	// AllowPrivate disables the private-address check. Intended for
	// intranet deployments and tests against local servers only.
	AllowPrivate bool
}

// NewFetcher creates a fetcher. A zero timeout uses the default.
func NewFetcher(timeout time.Duration, allowedDomains []string) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	f := &Fetcher{allowedDomains: allowedDomains}
	f.client = &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("too many redirects")
			}
			// Redirect targets are never trusted because the original
			// URL passed.
			_, err := validateURL(req.Context(), req.URL.String(), f.allowedDomains, f.AllowPrivate)
			return err
		},
	}
	return f
}

// Fetch validates the URL and returns the page body. The final URL
// after redirects is reported alongside it.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (body string, finalURL string, err error) {
	validated, err := validateURL(ctx, rawURL, f.allowedDomains, f.AllowPrivate)
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, validated.String(), nil)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", "", fmt.Errorf("%w: %s", ErrFetchTimeout, rawURL)
		}
		// Redirect validation failures surface as *url.Error; keep the
		// sentinel visible.
		for _, sentinel := range []error{ErrInvalidScheme, ErrPrivateNetworkBlocked, ErrDomainNotAllowed, ErrInvalidURL} {
			if errors.Is(err, sentinel) {
				return "", "", err
			}
		}
		return "", "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", "", fmt.Errorf("%w: status %d for %s", ErrFetchFailed, resp.StatusCode, rawURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if isTimeout(err) {
			return "", "", fmt.Errorf("%w: %s", ErrFetchTimeout, rawURL)
		}
		return "", "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	return string(data), resp.Request.URL.String(), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return true
	}
	var timeoutErr interface{ Timeout() bool }
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}

package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestScraper(t *testing.T, opts ...Option) *Scraper {
	t.Helper()

	opts = append([]Option{
		WithPrivateNetworkAllowed(),
		WithRequestInterval(0),
		WithFetchTimeout(5 * time.Second),
	}, opts...)

	s, err := New(opts...)
	if err != nil {
		t.Fatalf("failed to create scraper: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestScrapeURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><head><title>Test</title></head><body><p>hello</p></body></html>"))
	}))
	defer server.Close()

	s := newTestScraper(t)
	page, err := s.ScrapeURL(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("failed to scrape: %v", err)
	}
	if page.Title != "Test" || page.Content != "hello" {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestScrapeURLsIsolatesFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		w.Write([]byte("<html><head><title>OK</title></head><body><p>fine</p></body></html>"))
	}))
	defer server.Close()

	s := newTestScraper(t)
	results := s.ScrapeURLs(context.Background(), []string{
		server.URL + "/good",
		server.URL + "/bad",
		server.URL + "/also-good",
	})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Err != nil || results[0].Page.Title != "OK" {
		t.Fatalf("first result should succeed: %+v", results[0])
	}
	if !errors.Is(results[1].Err, ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed for /bad, got %v", results[1].Err)
	}
	if results[2].Err != nil {
		t.Fatalf("third result should succeed: %+v", results[2])
	}
}

func TestScrapeURLRejectsPrivateByDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the server")
	}))
	defer server.Close()

	s, err := New(WithRequestInterval(0))
	if err != nil {
		t.Fatalf("failed to create scraper: %v", err)
	}
	defer s.Close()

	if _, err := s.ScrapeURL(context.Background(), server.URL); !errors.Is(err, ErrPrivateNetworkBlocked) {
		t.Fatalf("expected ErrPrivateNetworkBlocked, got %v", err)
	}
}

func TestFetchRevalidatesRedirects(t *testing.T) {
	// The first hop passes the allow-list; the redirect target falls
	// outside it and must be rejected at that hop.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://169.254.169.254/latest/meta-data", http.StatusFound)
	}))
	defer server.Close()

	f := NewFetcher(5*time.Second, []string{"127.0.0.1"})
	f.AllowPrivate = true

	if _, _, err := f.Fetch(context.Background(), server.URL); !errors.Is(err, ErrDomainNotAllowed) {
		t.Fatalf("expected ErrDomainNotAllowed on redirect target, got %v", err)
	}
}

func TestFetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	f := NewFetcher(100*time.Millisecond, nil)
	f.AllowPrivate = true

	if _, _, err := f.Fetch(context.Background(), server.URL); !errors.Is(err, ErrFetchTimeout) {
		t.Fatalf("expected ErrFetchTimeout, got %v", err)
	}
}

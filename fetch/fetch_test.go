package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/skylarkhq/gleaner/config"
)

func newTestFetcher() *Fetcher {
	return New(config.FetchConfig{
		MaxTimeout:   5 * time.Second,
		MaxBodyBytes: 1 << 20,
	})
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Chrome") {
			t.Errorf("browser-like User-Agent missing: %q", ua)
		}
		_, _ = w.Write([]byte(`<html><head><title>Target</title></head><body>ok</body></html>`))
	}))
	defer srv.Close()

	snap, err := newTestFetcher().Fetch(context.Background(), srv.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if snap.StatusCode != 200 || snap.Title != "Target" {
		t.Errorf("snapshot wrong: %+v", snap)
	}
	if !strings.Contains(snap.HTML, "<body>ok</body>") {
		t.Errorf("body not captured: %q", snap.HTML)
	}
}

func TestFetch_Forbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL, 2*time.Second)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %T: %v", err, err)
	}
	if httpErr.Status != 403 {
		t.Errorf("status = %d, want 403", httpErr.Status)
	}
}

func TestFetch_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL, 2*time.Second)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected *NetworkError, got %T: %v", err, err)
	}
}

func TestFetch_TimeoutClamp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte("late"))
	}))
	defer srv.Close()

	f := New(config.FetchConfig{MaxTimeout: 100 * time.Millisecond, MaxBodyBytes: 1 << 20})
	// Caller asks for far more than the ceiling; the clamp must apply.
	start := time.Now()
	_, err := f.Fetch(context.Background(), srv.URL, time.Minute)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 400*time.Millisecond {
		t.Errorf("ceiling not applied, took %s", time.Since(start))
	}
}

func TestFetch_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer srv.Close()

	f := New(config.FetchConfig{MaxTimeout: 2 * time.Second, MaxBodyBytes: 1024})
	snap, err := f.Fetch(context.Background(), srv.URL, time.Second)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(snap.HTML) != 1024 {
		t.Errorf("body not limited: %d bytes", len(snap.HTML))
	}
}

func TestFetch_RecordsFinalURLAfterRedirect(t *testing.T) {
	var target string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			http.Redirect(w, r, "/landed", http.StatusFound)
		default:
			_, _ = w.Write([]byte("<html><body>done</body></html>"))
		}
	}))
	defer srv.Close()
	target = srv.URL + "/start"

	snap, err := newTestFetcher().Fetch(context.Background(), target, 2*time.Second)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if snap.URL != target {
		t.Errorf("original URL lost: %q", snap.URL)
	}
	if !strings.HasSuffix(snap.FinalURL, "/landed") {
		t.Errorf("final URL not recorded: %q", snap.FinalURL)
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"simple", `<title>Hello</title>`, "Hello"},
		{"padded", `<title>  Spaced  </title>`, "Spaced"},
		{"missing", `<html><body>no title</body></html>`, ""},
		{"empty", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractTitle(tt.html); got != tt.want {
				t.Errorf("extractTitle(%q) = %q, want %q", tt.html, got, tt.want)
			}
		})
	}
}

package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"
	"golang.org/x/net/html"

	"github.com/skylarkhq/gleaner/config"
)

// Snapshot is the immutable result of one page fetch. It is owned by a
// single execution attempt and never shared across requests.
type Snapshot struct {
	URL        string
	FinalURL   string
	HTML       string
	Title      string
	StatusCode int
}

// HTTPError reports a non-2xx response from the target server.
type HTTPError struct {
	Status     int
	StatusText string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http status %d %s", e.Status, e.StatusText)
}

// NetworkError reports a transport-level failure (DNS, refused
// connection, timeout) before any response was received.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// Fetcher retrieves raw page content with a Chrome-like TLS fingerprint.
// ALPN is locked to http/1.1 because Go's http.Transport cannot speak h2
// over a utls connection.
type Fetcher struct {
	client       *http.Client
	maxTimeout   time.Duration
	maxBodyBytes int64
}

// New creates a Fetcher from config. The Chrome ClientHello spec is
// computed once and reused for every connection.
func New(cfg config.FetchConfig) *Fetcher {
	spec := chromeH1Spec()

	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if spec != nil {
				if err := tlsConn.ApplyPreset(spec); err != nil {
					conn.Close()
					return nil, fmt.Errorf("fetch: apply tls spec: %w", err)
				}
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}

	if cfg.Proxy != "" {
		if proxyURL, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	maxTimeout := cfg.MaxTimeout
	if maxTimeout <= 0 {
		maxTimeout = 30 * time.Second
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 10 << 20
	}

	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		maxTimeout:   maxTimeout,
		maxBodyBytes: maxBody,
	}
}

// chromeH1Spec builds a Chrome ClientHello with ALPN forced to http/1.1.
// Returns nil if spec generation fails (should not happen with a valid
// utls version); the connection then proceeds with HelloCustom defaults.
func chromeH1Spec() *tls.ClientHelloSpec {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return nil
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	return &spec
}

// Fetch issues a GET with browser-like headers and returns the page
// snapshot. The effective deadline is min(timeout, configured ceiling);
// a non-positive timeout means "ceiling only".
func (f *Fetcher) Fetch(ctx context.Context, pageURL string, timeout time.Duration) (*Snapshot, error) {
	if timeout <= 0 || timeout > f.maxTimeout {
		timeout = f.maxTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "identity") // no compression for simplicity

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
		}
	}

	bodyStr := string(body)
	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Snapshot{
		URL:        pageURL,
		FinalURL:   finalURL,
		HTML:       bodyStr,
		Title:      extractTitle(bodyStr),
		StatusCode: resp.StatusCode,
	}, nil
}

// extractTitle uses the Go HTML tokenizer to find the first <title> element.
func extractTitle(htmlStr string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlStr))
	inTitle := false
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(tokenizer.Text()))
			}
		case html.EndTagToken:
			if inTitle {
				return ""
			}
		}
	}
}

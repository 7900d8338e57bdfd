package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skylarkhq/gleaner/config"
	"github.com/skylarkhq/gleaner/engine"
	"github.com/skylarkhq/gleaner/fallback"
	"github.com/skylarkhq/gleaner/fetch"
	"github.com/skylarkhq/gleaner/models"
	"github.com/skylarkhq/gleaner/sandbox"
)

func testRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	eng := engine.New(cfg, fetch.New(cfg.Fetch), sandbox.NewExecutor(), fallback.NewOrchestrator(), nil)
	return NewRouter(eng, nil, cfg, time.Now())
}

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		Fetch:  config.FetchConfig{MaxTimeout: 5 * time.Second, MaxBodyBytes: 1 << 20},
		Exec: config.ExecConfig{
			DefaultTimeout:    5 * time.Second,
			MaxTimeout:        10 * time.Second,
			MaxItems:          500,
			FallbackThreshold: 5,
		},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
	}
}

func postExecute(t *testing.T, router http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/execute", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestExecute_MissingURL(t *testing.T) {
	router := testRouter(t, baseConfig())
	w := postExecute(t, router, `{"script": "return [];"}`, nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestExecute_ScriptXorConfig(t *testing.T) {
	router := testRouter(t, baseConfig())

	tests := []struct {
		name string
		body string
	}{
		{"neither", `{"url": "https://example.com"}`},
		{"both", `{"url": "https://example.com", "script": "return [];", "config": {"selectors": ["h1"]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postExecute(t, router, tt.body, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			var resp models.ExecuteResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Success || resp.Error == nil {
				t.Errorf("error envelope missing: %+v", resp)
			}
		})
	}
}

func TestExecute_SyntaxErrorMapsTo400(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>hello</p></body></html>`))
	}))
	defer page.Close()

	router := testRouter(t, baseConfig())
	w := postExecute(t, router, `{"url": "`+page.URL+`", "script": "not {{ js"}`, nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for syntax category", w.Code)
	}
}

func TestExecute_HTTPFailureMapsTo502(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusForbidden)
	}))
	defer page.Close()

	router := testRouter(t, baseConfig())
	w := postExecute(t, router, `{"url": "`+page.URL+`", "script": "return [];"}`, nil)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502 for http category", w.Code)
	}
}

func TestExecute_DiagnosticOutcomeStays200(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>` + strings.Repeat("<p>content paragraph</p>", 60) + `</body></html>`))
	}))
	defer page.Close()

	router := testRouter(t, baseConfig())
	w := postExecute(t, router, `{"url": "`+page.URL+`", "script": "return [];"}`, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for a served request that found nothing", w.Code)
	}
	var resp models.ExecuteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success || resp.Diagnostic == nil || len(resp.Diagnostic.Issues) == 0 {
		t.Errorf("diagnostic envelope wrong: %+v", resp)
	}
}

func TestAuth_RejectsMissingKey(t *testing.T) {
	cfg := baseConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, APIKeys: []string{"good-key"}}
	router := testRouter(t, cfg)

	w := postExecute(t, router, `{"url": "https://example.com", "script": "return [];"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_AcceptsHeaderStyles(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h1>ok</h1></body></html>`))
	}))
	defer page.Close()

	cfg := baseConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, APIKeys: []string{"good-key"}}
	router := testRouter(t, cfg)

	body := `{"url": "` + page.URL + `", "config": {"selectors": ["h1"]}}`

	for name, headers := range map[string]map[string]string{
		"x-api-key": {"X-API-Key": "good-key"},
		"bearer":    {"Authorization": "Bearer good-key"},
	} {
		t.Run(name, func(t *testing.T) {
			w := postExecute(t, router, body, headers)
			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", w.Code)
			}
		})
	}

	t.Run("wrong key", func(t *testing.T) {
		w := postExecute(t, router, body, map[string]string{"X-API-Key": "bad"})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})
}

func TestRateLimit_Trips(t *testing.T) {
	cfg := baseConfig()
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1}
	router := testRouter(t, cfg)

	body := `{"url": "https://example.com"}`
	first := postExecute(t, router, body, nil)
	second := postExecute(t, router, body, nil)

	if first.Code == http.StatusTooManyRequests {
		t.Fatal("first request should pass the limiter")
	}
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", second.Code)
	}
}

func TestHealth_OpenAccess(t *testing.T) {
	cfg := baseConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, APIKeys: []string{"good-key"}}
	router := testRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("health must not require auth, status = %d", w.Code)
	}
	var resp models.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "healthy" || resp.Version == "" {
		t.Errorf("health body wrong: %+v", resp)
	}
}

package store

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/skylarkhq/gleaner/config"
	"github.com/skylarkhq/gleaner/models"
)

func TestNewREST_EmptyEndpointIsNoop(t *testing.T) {
	s := NewREST(config.StoreConfig{})
	if _, ok := s.(Noop); !ok {
		t.Fatalf("expected Noop store, got %T", s)
	}
	n, err := s.InsertRows(context.Background(), "t", []models.Item{{"a": 1}})
	if err != nil || n != 0 {
		t.Errorf("Noop should accept silently: n=%d err=%v", n, err)
	}
}

func TestInsertRows_SignedDelivery(t *testing.T) {
	const secret = "test-secret"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		sig := r.Header.Get("X-Gleaner-Signature")
		if !strings.HasPrefix(sig, "sha256=") {
			t.Errorf("signature header malformed: %q", sig)
		}
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		if want := "sha256=" + hex.EncodeToString(mac.Sum(nil)); sig != want {
			t.Errorf("signature mismatch: got %q want %q", sig, want)
		}

		var req struct {
			Table string        `json:"table"`
			Rows  []models.Item `json:"rows"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("decode insert body: %v", err)
		}
		if req.Table != "products" || len(req.Rows) != 2 {
			t.Errorf("insert body wrong: %+v", req)
		}

		_ = json.NewEncoder(w).Encode(map[string]int{"inserted": 2})
	}))
	defer srv.Close()

	s := NewREST(config.StoreConfig{Endpoint: srv.URL, Secret: secret})
	n, err := s.InsertRows(context.Background(), "products", []models.Item{{"a": 1}, {"b": 2}})
	if err != nil {
		t.Fatalf("InsertRows failed: %v", err)
	}
	if n != 2 {
		t.Errorf("inserted = %d, want 2", n)
	}
}

func TestInsertRows_NoSignatureWithoutSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Gleaner-Signature") != "" {
			t.Error("signature sent without a configured secret")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewREST(config.StoreConfig{Endpoint: srv.URL})
	if _, err := s.InsertRows(context.Background(), "t", []models.Item{{"a": 1}}); err != nil {
		t.Fatalf("InsertRows failed: %v", err)
	}
}

func TestInsertRows_AssumesFullCountOn2xxWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewREST(config.StoreConfig{Endpoint: srv.URL})
	n, err := s.InsertRows(context.Background(), "t", []models.Item{{"a": 1}, {"b": 2}, {"c": 3}})
	if err != nil {
		t.Fatalf("InsertRows failed: %v", err)
	}
	if n != 3 {
		t.Errorf("inserted = %d, want full row count", n)
	}
}

func TestInsertRows_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewREST(config.StoreConfig{Endpoint: srv.URL})
	n, err := s.InsertRows(context.Background(), "t", []models.Item{{"a": 1}})
	if err == nil {
		t.Fatal("expected error on 5xx")
	}
	if n != 0 {
		t.Errorf("inserted = %d, want 0 on failure", n)
	}
}

func TestInsertRows_EmptyRowsShortCircuit(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	s := NewREST(config.StoreConfig{Endpoint: srv.URL})
	n, err := s.InsertRows(context.Background(), "t", nil)
	if err != nil || n != 0 {
		t.Errorf("empty insert should be a no-op: n=%d err=%v", n, err)
	}
	if called {
		t.Error("endpoint must not be called for zero rows")
	}
}

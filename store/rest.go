package store

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/skylarkhq/gleaner/config"
	"github.com/skylarkhq/gleaner/models"
)

// insertRequest is the body sent to the row-insert endpoint.
type insertRequest struct {
	Table     string        `json:"table"`
	Rows      []models.Item `json:"rows"`
	Timestamp int64         `json:"timestamp"`
}

type insertResponse struct {
	Inserted int `json:"inserted"`
}

// RESTStore posts rows to an HTTP endpoint. The request body is signed
// with HMAC-SHA256 when a secret is configured.
// Header: X-Gleaner-Signature: sha256=<hex>
type RESTStore struct {
	endpoint string
	secret   string
	client   *http.Client
}

// NewREST creates a RESTStore from config. Returns a Noop store when no
// endpoint is configured so callers never branch on nil.
func NewREST(cfg config.StoreConfig) Store {
	if cfg.Endpoint == "" {
		return Noop{}
	}
	return &RESTStore{
		endpoint: cfg.Endpoint,
		secret:   cfg.Secret,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// InsertRows delivers rows synchronously. When the endpoint does not
// report an inserted count, the full row count is assumed on 2xx.
func (s *RESTStore) InsertRows(ctx context.Context, table string, rows []models.Item) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	body, err := json.Marshal(insertRequest{
		Table:     table,
		Rows:      rows,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return 0, fmt.Errorf("store: marshal rows: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("store: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Gleaner-Store/1.0")

	if s.secret != "" {
		mac := hmac.New(sha256.New, []byte(s.secret))
		mac.Write(body)
		sig := hex.EncodeToString(mac.Sum(nil))
		req.Header.Set("X-Gleaner-Signature", "sha256="+sig)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("store: insert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("store: endpoint returned status %d", resp.StatusCode)
	}

	var ir insertResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err == nil && ir.Inserted > 0 {
		return ir.Inserted, nil
	}
	return len(rows), nil
}

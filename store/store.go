// Package store persists extracted rows. Persistence is a best-effort
// side channel: failures degrade to rows_saved=0 plus a log line and
// never fail the extraction itself.
package store

import (
	"context"

	"github.com/skylarkhq/gleaner/models"
)

// Store inserts extracted rows into a named table and reports how many
// were accepted.
type Store interface {
	InsertRows(ctx context.Context, table string, rows []models.Item) (int, error)
}

// Noop discards all rows. Used when no store endpoint is configured.
type Noop struct{}

func (Noop) InsertRows(ctx context.Context, table string, rows []models.Item) (int, error) {
	return 0, nil
}

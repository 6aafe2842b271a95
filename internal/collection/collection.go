// Package collection provides the persistent artwork vector collection:
// durable storage of (id, vector, metadata) rows plus nearest-neighbor queries.
package collection

import (
	"context"
	"errors"

	"github.com/nagomi-art/nagomi/internal/models"
)

// ErrIndexUnavailable reports that the collection cannot be opened or written.
var ErrIndexUnavailable = errors.New("collection: index unavailable")

// Entry is one stored artwork vector with its metadata. ID is the image path.
type Entry struct {
	ID       string
	Vector   []float32
	Metadata models.Metadata
}

// Match is a nearest-neighbor query hit. Distance is 1 - cosine similarity,
// so smaller is closer (vectors are unit-normalized).
type Match struct {
	ID       string
	Metadata models.Metadata
	Distance float64
}

// Collection stores artwork vectors and answers similarity queries.
// Upsert is idempotent on ID. Query returns matches ordered by ascending distance.
// Delete of an unknown ID is a no-op.
type Collection interface {
	Upsert(ctx context.Context, entries []Entry) error
	Get(ctx context.Context, ids []string) ([]Entry, error)
	Query(ctx context.Context, vector []float32, k int) ([]*Match, error)
	Delete(ctx context.Context, ids []string) error
	Count(ctx context.Context) (int, error)
	Close() error
}

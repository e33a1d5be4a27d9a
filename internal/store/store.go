package store

import (
	"context"
	"errors"

	"github.com/kamathanirudh/labstack/pkg/types"
)

// ErrNotFound is returned when no record exists for a lab ID.
var ErrNotFound = errors.New("lab record not found")

// RecordStore is the durable store for lab records, keyed by lab ID.
//
// MarkReady is the store's conditional-update primitive: the transition is
// applied only while the stored status is still pending. Concurrent callers
// racing the pending -> ready window compute the same URL, so a lost race is
// a harmless duplicate and returns nil. MarkTerminated is an unconditional
// forward write, idempotent from any state; the access URL is retained.
// Records are never deleted.
type RecordStore interface {
	Get(ctx context.Context, labID string) (*types.LabRecord, error)
	Put(ctx context.Context, rec *types.LabRecord) error
	MarkReady(ctx context.Context, labID, accessURL string) error
	MarkTerminated(ctx context.Context, labID string) error
	ListPending(ctx context.Context) ([]*types.LabRecord, error)
	Close() error
}

package repository

import (
	"context"
	"time"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/db/models"
)

// RoleRepository exposes persistence operations for principal role masks.
type RoleRepository interface {
	// Get returns the mask held by principal, or zero when none was granted.
	Get(ctx context.Context, principal string) (custody.Role, error)
	// Apply sets or clears role bits and appends event in the same
	// transaction. Event is left unwritten when the mask does not change.
	Apply(ctx context.Context, change RoleChange, event *models.LedgerEvent) (*RoleChangeResult, error)
	List(ctx context.Context) ([]models.RoleAssignment, error)
}

// RoleChange describes one grant or revoke.
type RoleChange struct {
	Principal string
	Role      custody.Role
	Grant     bool
	At        time.Time
}

// RoleChangeResult reports the mask before and after a change.
type RoleChangeResult struct {
	Before  custody.Role
	After   custody.Role
	Changed bool
}

// BatchRepository exposes persistence operations for custody batches.
type BatchRepository interface {
	// Create allocates the next batch id, inserts batch and appends events
	// atomically. Nothing is consumed when any step fails.
	Create(ctx context.Context, batch *models.Batch, events ...*models.LedgerEvent) error
	Get(ctx context.Context, id int64) (*models.Batch, error)
	// RecordStage fills one empty stage slot whose predecessor is set and
	// appends event atomically.
	RecordStage(ctx context.Context, write StageWrite, event *models.LedgerEvent) error
	List(ctx context.Context) ([]models.Batch, error)
	// LastID returns the most recently allocated batch id, or zero.
	LastID(ctx context.Context) (int64, error)
}

// StageWrite is a single write-once slot assignment.
type StageWrite struct {
	BatchID   int64
	Stage     custody.Stage
	ContentID string
	Writer    string
	At        time.Time
}

// EventRepository exposes read access to the ledger event log.
type EventRepository interface {
	List(ctx context.Context, filter EventFilter) ([]models.LedgerEvent, error)
	Head(ctx context.Context) (*models.LedgerEvent, error)
}

// EventFilter narrows an event listing. Zero values match everything.
type EventFilter struct {
	BatchID  *int64
	Kind     string
	AfterSeq int64
	Limit    int
}

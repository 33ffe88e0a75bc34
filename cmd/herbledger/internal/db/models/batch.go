package models

import (
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
)

// Batch is one custody record. The four stage slots are stored inline so a
// stage write is a single conditional UPDATE of one row.
type Batch struct {
	bun.BaseModel `bun:"table:batches,alias:b"`

	ID           int64     `bun:"id,pk"`
	Reference    string    `bun:"reference,notnull"`
	CreatedBy    string    `bun:"created_by,notnull"`
	Collector    StageSlot `bun:"embed:collector_"`
	Middleman    StageSlot `bun:"embed:middleman_"`
	Lab          StageSlot `bun:"embed:lab_"`
	Manufacturer StageSlot `bun:"embed:manufacturer_"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// StageSlot is a write-once content reference. A nil ContentID means unset.
type StageSlot struct {
	ContentID  *string    `bun:"cid"`
	Writer     *string    `bun:"writer"`
	RecordedAt *time.Time `bun:"recorded_at"`
}

// IsSet reports whether the slot holds a content id.
func (s StageSlot) IsSet() bool {
	return s.ContentID != nil && *s.ContentID != ""
}

// CID returns the content id or "" when unset.
func (s StageSlot) CID() string {
	if s.ContentID == nil {
		return ""
	}
	return *s.ContentID
}

// WriterOrEmpty returns the principal that recorded the slot, or "".
func (s StageSlot) WriterOrEmpty() string {
	if s.Writer == nil {
		return ""
	}
	return *s.Writer
}

// Slot returns a pointer to the slot that backs stage.
func (b *Batch) Slot(stage custody.Stage) *StageSlot {
	switch stage {
	case custody.StageCollector:
		return &b.Collector
	case custody.StageMiddleman:
		return &b.Middleman
	case custody.StageLab:
		return &b.Lab
	case custody.StageManufacturer:
		return &b.Manufacturer
	default:
		return nil
	}
}

// ValidateForCreate verifies the record is well formed before insertion.
func (b *Batch) ValidateForCreate() error {
	if b.ID <= 0 {
		return errors.New("id must be allocated before insert")
	}
	if !b.Collector.IsSet() {
		return errors.New("collector content id is required")
	}
	if b.Middleman.IsSet() || b.Lab.IsSet() || b.Manufacturer.IsSet() {
		return errors.New("new batch cannot carry later stages")
	}
	return nil
}

// LedgerCounter is a named monotonically increasing sequence.
type LedgerCounter struct {
	bun.BaseModel `bun:"table:ledger_counters,alias:lc"`

	Name  string `bun:"name,pk"`
	Value int64  `bun:"value,notnull,default:0"`
}

// Counter names.
const (
	// BatchIDCounter allocates batch ids.
	BatchIDCounter = "batch_id"
	// EventChainCounter counts appended events. Its row is updated before
	// the chain head is read, so the row lock orders appends across
	// connections and processes.
	EventChainCounter = "event_chain"
)

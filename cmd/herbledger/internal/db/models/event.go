package models

import (
	"time"

	"github.com/uptrace/bun"
)

// LedgerEvent is one committed mutation in the hash-chained event log.
type LedgerEvent struct {
	bun.BaseModel `bun:"table:ledger_events,alias:le"`

	Seq             int64     `bun:"seq,pk,autoincrement"`
	ID              string    `bun:"id,notnull,unique"`
	Kind            string    `bun:"kind,notnull"`
	BatchID         *int64    `bun:"batch_id"`
	Stage           *int      `bun:"stage"`
	Writer          string    `bun:"writer,notnull"`
	ContentID       string    `bun:"content_id,notnull,default:''"`
	Reference       string    `bun:"reference,notnull,default:''"`
	Principal       string    `bun:"principal,notnull,default:''"`
	Mask            int64     `bun:"mask,notnull,default:0"`
	RecordedAt      time.Time `bun:"recorded_at,notnull"`
	PrevFingerprint string    `bun:"prev_fingerprint,notnull,unique"`
	Fingerprint     string    `bun:"fingerprint,notnull"`
}

// ChainPayload is the subset of fields covered by the fingerprint link.
// Seq is excluded because it is assigned by the database after hashing.
func (e *LedgerEvent) ChainPayload() map[string]any {
	payload := map[string]any{
		"id":          e.ID,
		"kind":        e.Kind,
		"writer":      e.Writer,
		"content_id":  e.ContentID,
		"reference":   e.Reference,
		"principal":   e.Principal,
		"mask":        e.Mask,
		"recorded_at": e.RecordedAt.UTC().Format(time.RFC3339Nano),
	}
	if e.BatchID != nil {
		payload["batch_id"] = *e.BatchID
	}
	if e.Stage != nil {
		payload["stage"] = *e.Stage
	}
	return payload
}

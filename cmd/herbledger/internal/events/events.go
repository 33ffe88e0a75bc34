// Package events defines ledger notifications and the in-process bus that
// delivers them after each committed mutation.
package events

import (
	"time"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/db/models"
)

// Kind names a notification.
type Kind string

const (
	KindBatchCreated          Kind = "BatchCreated"
	KindCollectorDataAdded    Kind = "CollectorDataAdded"
	KindMiddlemanDataAdded    Kind = "MiddlemanDataAdded"
	KindLabDataAdded          Kind = "LabDataAdded"
	KindManufacturerDataAdded Kind = "ManufacturerDataAdded"
	KindRoleGranted           Kind = "RoleGranted"
	KindRoleRevoked           Kind = "RoleRevoked"
)

// StageKind returns the DataAdded kind for stage.
func StageKind(stage custody.Stage) Kind {
	return Kind(stage.EventKind())
}

// Event is a committed ledger notification.
type Event struct {
	ID              string       `json:"id"`
	Seq             int64        `json:"seq"`
	Kind            Kind         `json:"kind"`
	BatchID         int64        `json:"batch_id,omitempty"`
	Stage           string       `json:"stage,omitempty"`
	Writer          string       `json:"writer"`
	ContentID       string       `json:"content_id,omitempty"`
	Reference       string       `json:"reference,omitempty"`
	Principal       string       `json:"principal,omitempty"`
	Mask            custody.Role `json:"mask,omitempty"`
	RecordedAt      time.Time    `json:"recorded_at"`
	PrevFingerprint string       `json:"prev_fingerprint"`
	Fingerprint     string       `json:"fingerprint"`
}

// FromModel converts a stored event row.
func FromModel(m *models.LedgerEvent) Event {
	e := Event{
		ID:              m.ID,
		Seq:             m.Seq,
		Kind:            Kind(m.Kind),
		Writer:          m.Writer,
		ContentID:       m.ContentID,
		Reference:       m.Reference,
		Principal:       m.Principal,
		Mask:            custody.Role(m.Mask),
		RecordedAt:      m.RecordedAt,
		PrevFingerprint: m.PrevFingerprint,
		Fingerprint:     m.Fingerprint,
	}
	if m.BatchID != nil {
		e.BatchID = *m.BatchID
	}
	if m.Stage != nil {
		e.Stage = custody.Stage(*m.Stage).String()
	}
	return e
}

// FromModels converts a slice of stored rows.
func FromModels(rows []models.LedgerEvent) []Event {
	out := make([]Event, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}

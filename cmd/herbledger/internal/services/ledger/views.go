package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/db/models"
)

// Batch status values reported by records and summaries.
const (
	StatusPartial  = "partial"
	StatusComplete = "complete"
)

// FullBatch is the content-id projection of a batch. Unset slots are "".
type FullBatch struct {
	ID              int64  `json:"id"`
	Reference       string `json:"reference"`
	CollectorCID    string `json:"collector_cid"`
	MiddlemanCID    string `json:"middleman_cid"`
	LabCID          string `json:"lab_cid"`
	ManufacturerCID string `json:"manufacturer_cid"`
}

// CIDs returns the four content ids in stage order.
func (f FullBatch) CIDs() [4]string {
	return [4]string{f.CollectorCID, f.MiddlemanCID, f.LabCID, f.ManufacturerCID}
}

// BatchSummary reports which slots are set.
type BatchSummary struct {
	ID              int64  `json:"id"`
	Reference       string `json:"reference"`
	HasCollector    bool   `json:"has_collector"`
	HasMiddleman    bool   `json:"has_middleman"`
	HasLab          bool   `json:"has_lab"`
	HasManufacturer bool   `json:"has_manufacturer"`
}

// Complete reports whether every stage is recorded.
func (s BatchSummary) Complete() bool {
	return s.HasCollector && s.HasMiddleman && s.HasLab && s.HasManufacturer
}

// StageRecord is one slot with its provenance.
type StageRecord struct {
	Stage      string     `json:"stage"`
	Set        bool       `json:"set"`
	ContentID  string     `json:"content_id,omitempty"`
	Writer     string     `json:"writer,omitempty"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

// BatchRecord is the full stored view of a batch.
type BatchRecord struct {
	ID        int64         `json:"id"`
	Reference string        `json:"reference"`
	CreatedBy string        `json:"created_by"`
	CreatedAt time.Time     `json:"created_at"`
	Status    string        `json:"status"`
	Stages    []StageRecord `json:"stages"`
}

// GetFullBatch returns the reference and the four content ids.
func (s *Service) GetFullBatch(ctx context.Context, id int64) (FullBatch, error) {
	batch, err := s.batches.Get(ctx, id)
	if err != nil {
		return FullBatch{}, err
	}
	return toFullBatch(batch), nil
}

// GetBatchSummary returns the reference and whether each slot is set.
func (s *Service) GetBatchSummary(ctx context.Context, id int64) (BatchSummary, error) {
	batch, err := s.batches.Get(ctx, id)
	if err != nil {
		return BatchSummary{}, err
	}
	return toSummary(batch), nil
}

// GetBatchRecord returns every slot with writer and timestamp.
func (s *Service) GetBatchRecord(ctx context.Context, id int64) (*BatchRecord, error) {
	batch, err := s.batches.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toRecord(batch), nil
}

// LastBatchID returns the most recently allocated id, zero before any batch.
func (s *Service) LastBatchID(ctx context.Context) (int64, error) {
	id, err := s.batches.LastID(ctx)
	if err != nil {
		return 0, fmt.Errorf("last batch id: %w", err)
	}
	return id, nil
}

func toFullBatch(b *models.Batch) FullBatch {
	return FullBatch{
		ID:              b.ID,
		Reference:       b.Reference,
		CollectorCID:    b.Collector.CID(),
		MiddlemanCID:    b.Middleman.CID(),
		LabCID:          b.Lab.CID(),
		ManufacturerCID: b.Manufacturer.CID(),
	}
}

func toSummary(b *models.Batch) BatchSummary {
	return BatchSummary{
		ID:              b.ID,
		Reference:       b.Reference,
		HasCollector:    b.Collector.IsSet(),
		HasMiddleman:    b.Middleman.IsSet(),
		HasLab:          b.Lab.IsSet(),
		HasManufacturer: b.Manufacturer.IsSet(),
	}
}

func toRecord(b *models.Batch) *BatchRecord {
	rec := &BatchRecord{
		ID:        b.ID,
		Reference: b.Reference,
		CreatedBy: b.CreatedBy,
		CreatedAt: b.CreatedAt,
		Status:    StatusPartial,
		Stages:    make([]StageRecord, 0, len(custody.Stages)),
	}
	for _, stage := range custody.Stages {
		slot := b.Slot(stage)
		rec.Stages = append(rec.Stages, StageRecord{
			Stage:      stage.String(),
			Set:        slot.IsSet(),
			ContentID:  slot.CID(),
			Writer:     slot.WriterOrEmpty(),
			RecordedAt: slot.RecordedAt,
		})
	}
	if toSummary(b).Complete() {
		rec.Status = StatusComplete
	}
	return rec
}

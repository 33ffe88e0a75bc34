package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/db/models"
	"github.com/uptrace/bun"
)

// BunBatchRepository persists custody batches using Bun ORM.
type BunBatchRepository struct {
	db *bun.DB
}

// NewBunBatchRepository constructs a repository backed by Bun.
func NewBunBatchRepository(db *bun.DB) BatchRepository {
	return &BunBatchRepository{db: db}
}

// Create allocates an id from the batch counter and inserts the batch. The
// counter increment rolls back with the transaction, so ids stay gapless.
func (r *BunBatchRepository) Create(ctx context.Context, batch *models.Batch, events ...*models.LedgerEvent) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.LedgerCounter)(nil)).
			Set("value = value + 1").
			Where("name = ?", models.BatchIDCounter).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("advance batch counter: %w", err)
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return errors.New("batch counter missing; run migrations")
		}

		var next int64
		err = tx.NewSelect().
			Model((*models.LedgerCounter)(nil)).
			Column("value").
			Where("name = ?", models.BatchIDCounter).
			Scan(ctx, &next)
		if err != nil {
			return fmt.Errorf("read batch counter: %w", err)
		}

		batch.ID = next
		batch.CreatedAt = NormalizeTime(batch.CreatedAt)
		if batch.Collector.RecordedAt != nil {
			at := NormalizeTime(*batch.Collector.RecordedAt)
			batch.Collector.RecordedAt = &at
		}
		if err := batch.ValidateForCreate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		if _, err := tx.NewInsert().Model(batch).Exec(ctx); err != nil {
			if isDuplicateKeyError(err) {
				return fmt.Errorf("batch %d already exists: %w", batch.ID, err)
			}
			return fmt.Errorf("insert batch: %w", err)
		}

		for _, event := range events {
			id := batch.ID
			stage := int(custody.StageCollector)
			event.BatchID = &id
			event.Stage = &stage
			event.ContentID = batch.Collector.CID()
			event.Reference = batch.Reference
			event.RecordedAt = batch.CreatedAt
			if err := appendEvent(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get fetches a batch by id.
func (r *BunBatchRepository) Get(ctx context.Context, id int64) (*models.Batch, error) {
	return getBatch(ctx, r.db, id)
}

// RecordStage fills the slot with a conditional UPDATE so concurrent writers
// of the same slot cannot both succeed.
func (r *BunBatchRepository) RecordStage(ctx context.Context, write StageWrite, event *models.LedgerEvent) error {
	if !write.Stage.Valid() {
		return fmt.Errorf("%w: stage %d", custody.ErrInvalidInput, write.Stage)
	}
	at := NormalizeTime(write.At)
	col := write.Stage.Column()

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewUpdate().
			Model((*models.Batch)(nil)).
			Set("? = ?", bun.Ident(col+"cid"), write.ContentID).
			Set("? = ?", bun.Ident(col+"writer"), write.Writer).
			Set("? = ?", bun.Ident(col+"recorded_at"), at).
			Where("id = ?", write.BatchID).
			Where("? IS NULL", bun.Ident(col+"cid"))
		if prev, ok := write.Stage.Previous(); ok {
			q = q.Where("? IS NOT NULL", bun.Ident(prev.Column()+"cid"))
		}

		res, err := q.Exec(ctx)
		if err != nil {
			return fmt.Errorf("record %s stage: %w", write.Stage, err)
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return classifyStageConflict(ctx, tx, write)
		}

		id := write.BatchID
		stage := int(write.Stage)
		event.BatchID = &id
		event.Stage = &stage
		event.Writer = write.Writer
		event.ContentID = write.ContentID
		event.RecordedAt = at
		return appendEvent(ctx, tx, event)
	})
}

// classifyStageConflict explains why a conditional stage write matched no row.
func classifyStageConflict(ctx context.Context, tx bun.Tx, write StageWrite) error {
	batch, err := getBatch(ctx, tx, write.BatchID)
	if err != nil {
		return err
	}
	if prev, ok := write.Stage.Previous(); ok && !batch.Slot(prev).IsSet() {
		return fmt.Errorf("%w: batch %d has no %s data", custody.ErrStageOutOfOrder, write.BatchID, prev)
	}
	if batch.Slot(write.Stage).IsSet() {
		return fmt.Errorf("%w: batch %d %s", custody.ErrAlreadyRecorded, write.BatchID, write.Stage)
	}
	return fmt.Errorf("record %s stage for batch %d: no row updated", write.Stage, write.BatchID)
}

// List returns all batches ordered by id.
func (r *BunBatchRepository) List(ctx context.Context) ([]models.Batch, error) {
	var batches []models.Batch
	if err := r.db.NewSelect().Model(&batches).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	if batches == nil {
		batches = []models.Batch{}
	}
	return batches, nil
}

// LastID returns the current value of the batch counter.
func (r *BunBatchRepository) LastID(ctx context.Context) (int64, error) {
	var last int64
	err := r.db.NewSelect().
		Model((*models.LedgerCounter)(nil)).
		Column("value").
		Where("name = ?", models.BatchIDCounter).
		Scan(ctx, &last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("read batch counter: %w", err)
	}
	return last, nil
}

func getBatch(ctx context.Context, db bun.IDB, id int64) (*models.Batch, error) {
	batch := new(models.Batch)
	err := db.NewSelect().Model(batch).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: batch %d", custody.ErrBatchNotFound, id)
		}
		return nil, fmt.Errorf("query batch: %w", err)
	}
	return batch, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/db/models"
	"github.com/uptrace/bun"
)

// BunEventRepository reads the ledger event log using Bun ORM. Events are
// written only by the batch and role repositories, inside their transactions.
type BunEventRepository struct {
	db *bun.DB
}

// NewBunEventRepository constructs a repository backed by Bun.
func NewBunEventRepository(db *bun.DB) EventRepository {
	return &BunEventRepository{db: db}
}

// List returns events in commit order.
func (r *BunEventRepository) List(ctx context.Context, filter EventFilter) ([]models.LedgerEvent, error) {
	var events []models.LedgerEvent
	q := r.db.NewSelect().Model(&events).Order("seq ASC")
	if filter.BatchID != nil {
		q = q.Where("batch_id = ?", *filter.BatchID)
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.AfterSeq > 0 {
		q = q.Where("seq > ?", filter.AfterSeq)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []models.LedgerEvent{}
	}
	return events, nil
}

// Head returns the most recent event, or nil when the log is empty.
func (r *BunEventRepository) Head(ctx context.Context) (*models.LedgerEvent, error) {
	event := new(models.LedgerEvent)
	err := r.db.NewSelect().Model(event).Order("seq DESC").Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query chain head: %w", err)
	}
	return event, nil
}

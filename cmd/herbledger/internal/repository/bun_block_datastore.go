package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	"github.com/uptrace/bun"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/db/models"
)

// BunBlockDatastore implements datastore.Batching over the content_blocks
// table so the IPFS blockstore persists alongside the ledger.
type BunBlockDatastore struct {
	db *bun.DB
}

var _ datastore.Batching = (*BunBlockDatastore)(nil)

// NewBunBlockDatastore constructs a datastore backed by db.
func NewBunBlockDatastore(db *bun.DB) *BunBlockDatastore {
	return &BunBlockDatastore{db: db}
}

func (d *BunBlockDatastore) Get(ctx context.Context, key datastore.Key) ([]byte, error) {
	row := new(models.ContentBlock)
	err := d.db.NewSelect().
		Model(row).
		Column("data").
		Where("? = ?", bun.Ident("key"), key.String()).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, datastore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get block %s: %w", key, err)
	}
	return row.Data, nil
}

func (d *BunBlockDatastore) Has(ctx context.Context, key datastore.Key) (bool, error) {
	exists, err := d.db.NewSelect().
		Model((*models.ContentBlock)(nil)).
		Where("? = ?", bun.Ident("key"), key.String()).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("has block %s: %w", key, err)
	}
	return exists, nil
}

func (d *BunBlockDatastore) GetSize(ctx context.Context, key datastore.Key) (int, error) {
	var size int
	err := d.db.NewSelect().
		Model((*models.ContentBlock)(nil)).
		Column("size").
		Where("? = ?", bun.Ident("key"), key.String()).
		Scan(ctx, &size)
	if errors.Is(err, sql.ErrNoRows) {
		return -1, datastore.ErrNotFound
	}
	if err != nil {
		return -1, fmt.Errorf("get block size %s: %w", key, err)
	}
	return size, nil
}

// Query loads the rows under the query prefix and applies the remaining
// filters, orders and paging in memory.
func (d *BunBlockDatastore) Query(ctx context.Context, q query.Query) (query.Results, error) {
	var rows []models.ContentBlock
	sel := d.db.NewSelect().Model(&rows).OrderExpr("? ASC", bun.Ident("key"))
	if q.KeysOnly {
		sel = sel.Column("key", "size")
	}
	if prefix := strings.TrimSuffix(q.Prefix, "/"); prefix != "" && prefix != "/" {
		sel = sel.Where("? LIKE ?", bun.Ident("key"), prefix+"/%")
	}
	if err := sel.Scan(ctx); err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}

	entries := make([]query.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, query.Entry{
			Key:   row.Key,
			Value: row.Data,
			Size:  row.Size,
		})
	}
	return query.NaiveQueryApply(q, query.ResultsWithEntries(q, entries)), nil
}

func (d *BunBlockDatastore) Put(ctx context.Context, key datastore.Key, value []byte) error {
	row := &models.ContentBlock{
		Key:       key.String(),
		Data:      value,
		Size:      len(value),
		CreatedAt: NormalizeTime(time.Now()),
	}
	_, err := d.db.NewInsert().
		Model(row).
		On("CONFLICT (?) DO UPDATE", bun.Ident("key")).
		Set("data = EXCLUDED.data").
		Set("size = EXCLUDED.size").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("put block %s: %w", key, err)
	}
	return nil
}

func (d *BunBlockDatastore) Delete(ctx context.Context, key datastore.Key) error {
	_, err := d.db.NewDelete().
		Model((*models.ContentBlock)(nil)).
		Where("? = ?", bun.Ident("key"), key.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete block %s: %w", key, err)
	}
	return nil
}

// Sync is a no-op: every write is committed when Put returns.
func (d *BunBlockDatastore) Sync(context.Context, datastore.Key) error {
	return nil
}

// Close leaves the shared database open for its owner.
func (d *BunBlockDatastore) Close() error {
	return nil
}

func (d *BunBlockDatastore) Batch(context.Context) (datastore.Batch, error) {
	return datastore.NewBasicBatch(d), nil
}

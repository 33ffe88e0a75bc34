package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/chainhash"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/db/bunx"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/db/models"
	"github.com/uptrace/bun"
)

// NormalizeTime drops precision PostgreSQL cannot store so fingerprints
// survive a round trip through either backend.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// appendEvent links event onto the current chain head and inserts it using
// the caller's transaction. The chain counter update holds a row lock until
// commit, so a concurrent append from another process waits and then reads
// the new head instead of forking the chain.
func appendEvent(ctx context.Context, tx bun.Tx, event *models.LedgerEvent) error {
	res, err := tx.NewUpdate().
		Model((*models.LedgerCounter)(nil)).
		Set("value = value + 1").
		Where("name = ?", models.EventChainCounter).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("lock event chain: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return errors.New("event chain counter missing; run migrations")
	}

	prev := chainhash.Genesis
	err = tx.NewSelect().
		Model((*models.LedgerEvent)(nil)).
		Column("fingerprint").
		Order("seq DESC").
		Limit(1).
		Scan(ctx, &prev)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read chain head: %w", err)
	}

	if event.ID == "" {
		event.ID = bunx.NewUUIDv7()
	}
	event.RecordedAt = NormalizeTime(event.RecordedAt)
	event.PrevFingerprint = prev
	event.Fingerprint = chainhash.Link(prev, event.ChainPayload())

	if _, err := tx.NewInsert().Model(event).Exec(ctx); err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("event chain forked at %s: %w", chainhash.Short(prev), err)
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "23505")
}

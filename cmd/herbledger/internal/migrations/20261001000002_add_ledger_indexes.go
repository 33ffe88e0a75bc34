package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20261001000002, down_20261001000002)
}

// up_20261001000002 adds lookup indexes used by listing and the event feed
func up_20261001000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating ledger indexes...")

	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_batches_reference ON batches(reference)`,
		`CREATE INDEX IF NOT EXISTS idx_batches_created_by ON batches(created_by)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_events_batch ON ledger_events(batch_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_events_kind ON ledger_events(kind)`,
	}
	if IsPostgreSQL(db) {
		statements = append(statements,
			`CREATE INDEX IF NOT EXISTS idx_role_assignments_mask ON role_assignments(mask) WHERE mask <> 0`)
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	fmt.Println(" OK")
	return nil
}

// down_20261001000002 drops the ledger indexes
func down_20261001000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping ledger indexes...")

	for _, idx := range []string{
		"idx_batches_reference",
		"idx_batches_created_by",
		"idx_ledger_events_batch",
		"idx_ledger_events_kind",
		"idx_role_assignments_mask",
	} {
		if _, err := db.ExecContext(ctx, "DROP INDEX IF EXISTS "+idx); err != nil {
			return fmt.Errorf("failed to drop index %s: %w", idx, err)
		}
	}

	fmt.Println(" OK")
	return nil
}

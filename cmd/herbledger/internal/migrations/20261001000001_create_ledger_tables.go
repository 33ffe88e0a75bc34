package migrations

import (
	"context"
	"fmt"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20261001000001, down_20261001000001)
}

// up_20261001000001 creates the role, batch, counter and event tables
func up_20261001000001(ctx context.Context, db *bun.DB) error {
	tables := []struct {
		name  string
		model any
	}{
		{"role_assignments", (*models.RoleAssignment)(nil)},
		{"ledger_counters", (*models.LedgerCounter)(nil)},
		{"batches", (*models.Batch)(nil)},
		{"ledger_events", (*models.LedgerEvent)(nil)},
	}

	for _, t := range tables {
		fmt.Printf(" [up] creating %s table...", t.name)
		if _, err := db.NewCreateTable().Model(t.model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
		fmt.Println(" OK")
	}

	fmt.Print(" [up] seeding batch id counter...")
	counter := &models.LedgerCounter{Name: models.BatchIDCounter, Value: 0}
	if _, err := db.NewInsert().Model(counter).On("CONFLICT (name) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("failed to seed batch id counter: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20261001000001 drops the ledger tables
func down_20261001000001(ctx context.Context, db *bun.DB) error {
	tables := []struct {
		name  string
		model any
	}{
		{"ledger_events", (*models.LedgerEvent)(nil)},
		{"batches", (*models.Batch)(nil)},
		{"ledger_counters", (*models.LedgerCounter)(nil)},
		{"role_assignments", (*models.RoleAssignment)(nil)},
	}

	for _, t := range tables {
		fmt.Printf(" [down] dropping %s table...", t.name)
		if _, err := db.NewDropTable().Model(t.model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop %s table: %w", t.name, err)
		}
		fmt.Println(" OK")
	}
	return nil
}

package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20261001000004, down_20261001000004)
}

// up_20261001000004 seeds the counter row that serialises event appends
func up_20261001000004(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] seeding event chain counter...")
	existing, err := db.NewSelect().Model((*models.LedgerEvent)(nil)).Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count ledger events: %w", err)
	}

	counter := &models.LedgerCounter{Name: models.EventChainCounter, Value: int64(existing)}
	if _, err := db.NewInsert().Model(counter).On("CONFLICT (name) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("failed to seed event chain counter: %w", err)
	}
	fmt.Println(" OK")
	return nil
}

// down_20261001000004 removes the event chain counter
func down_20261001000004(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] removing event chain counter...")
	if _, err := db.NewDelete().
		Model((*models.LedgerCounter)(nil)).
		Where("name = ?", models.EventChainCounter).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove event chain counter: %w", err)
	}
	fmt.Println(" OK")
	return nil
}

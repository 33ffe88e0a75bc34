package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20261001000003, down_20261001000003)
}

// up_20261001000003 creates the datastore table backing the content store
func up_20261001000003(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating content_blocks table...")
	if _, err := db.NewCreateTable().
		Model((*models.ContentBlock)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create content_blocks table: %w", err)
	}
	fmt.Println(" OK")
	return nil
}

// down_20261001000003 drops the content_blocks table
func down_20261001000003(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping content_blocks table...")
	if _, err := db.NewDropTable().
		Model((*models.ContentBlock)(nil)).
		IfExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop content_blocks table: %w", err)
	}
	fmt.Println(" OK")
	return nil
}

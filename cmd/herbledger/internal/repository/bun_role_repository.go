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

// BunRoleRepository persists role masks using Bun ORM.
type BunRoleRepository struct {
	db *bun.DB
}

// NewBunRoleRepository constructs a repository backed by Bun.
func NewBunRoleRepository(db *bun.DB) RoleRepository {
	return &BunRoleRepository{db: db}
}

// Get returns the mask held by principal.
func (r *BunRoleRepository) Get(ctx context.Context, principal string) (custody.Role, error) {
	return getMask(ctx, r.db, principal)
}

// Apply grants or revokes bits for one principal.
func (r *BunRoleRepository) Apply(ctx context.Context, change RoleChange, event *models.LedgerEvent) (*RoleChangeResult, error) {
	result := &RoleChangeResult{}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		before, err := getMask(ctx, tx, change.Principal)
		if err != nil {
			return err
		}

		after := before.Without(change.Role)
		if change.Grant {
			after = before.With(change.Role)
		}
		result.Before, result.After = before, after
		if after == before {
			return nil
		}

		row := &models.RoleAssignment{
			Principal: change.Principal,
			Mask:      int64(after),
			UpdatedAt: NormalizeTime(change.At),
		}
		if err := row.ValidateForUpsert(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		_, err = tx.NewInsert().
			Model(row).
			On("CONFLICT (principal) DO UPDATE").
			Set("mask = EXCLUDED.mask").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("upsert role assignment: %w", err)
		}

		event.Principal = change.Principal
		event.Mask = int64(after)
		event.RecordedAt = change.At
		if err := appendEvent(ctx, tx, event); err != nil {
			return err
		}
		result.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// List returns every principal holding at least one role, ordered by principal.
func (r *BunRoleRepository) List(ctx context.Context) ([]models.RoleAssignment, error) {
	var rows []models.RoleAssignment
	err := r.db.NewSelect().
		Model(&rows).
		Where("mask <> 0").
		Order("principal ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list role assignments: %w", err)
	}

	if rows == nil {
		rows = []models.RoleAssignment{}
	}
	return rows, nil
}

func getMask(ctx context.Context, db bun.IDB, principal string) (custody.Role, error) {
	row := new(models.RoleAssignment)
	err := db.NewSelect().Model(row).Where("principal = ?", principal).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("query role assignment: %w", err)
	}
	return custody.Role(row.Mask), nil
}

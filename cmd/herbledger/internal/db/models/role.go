package models

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// RoleAssignment stores the role bitmask granted to a single principal.
// Principals without a row hold the empty mask.
type RoleAssignment struct {
	bun.BaseModel `bun:"table:role_assignments,alias:ra"`

	Principal string    `bun:"principal,pk"`
	Mask      int64     `bun:"mask,notnull,default:0"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// ValidateForUpsert verifies the record is well formed before it is written.
func (r *RoleAssignment) ValidateForUpsert() error {
	if r.Principal == "" {
		return errors.New("principal is required")
	}
	if r.Mask < 0 || r.Mask > 0xF {
		return errors.New("mask out of range")
	}
	return nil
}

package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ContentBlock is one datastore entry of the local content store. Keys are
// datastore paths such as "/blocks/<multihash>".
type ContentBlock struct {
	bun.BaseModel `bun:"table:content_blocks,alias:cb"`

	Key       string    `bun:"key,pk"`
	Data      []byte    `bun:"data,notnull"`
	Size      int       `bun:"size,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

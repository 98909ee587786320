package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Point is one valet location. Ticket sequence numbers are scoped to a
// point, so every point has its own 1, 2, 3...
type Point struct {
	bun.BaseModel `bun:"table:points"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,unique,notnull" json:"name"`
	Address   string    `bun:"address,nullzero" json:"address,omitempty"`
	OwnerID   string    `bun:"owner_id,notnull" json:"owner_id"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

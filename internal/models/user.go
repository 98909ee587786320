package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is any actor: owner, admin, manager or driver. Managers and drivers
// operate out of an assigned point; drivers additionally report to a
// supervisor whose point must match their own.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID           string    `bun:"id,pk" json:"id"`
	Username     string    `bun:"username,unique,notnull" json:"username"`
	FullName     string    `bun:"full_name,notnull" json:"full_name"`
	Role         string    `bun:"role,notnull" json:"role"`
	PointID      string    `bun:"point_id,nullzero" json:"point_id,omitempty"`
	SupervisorID string    `bun:"supervisor_id,nullzero" json:"supervisor_id,omitempty"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
}

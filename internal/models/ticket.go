package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	TicketStatusOpen   = "open"
	TicketStatusClosed = "closed"
)

// Ticket is one vehicle's parking record. SequenceNumber is unique within
// its point (composite unique constraint), not globally; the allocator in
// tickets/db relies on that constraint to detect allocation races.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID             string    `bun:"id,pk" json:"id"`
	SequenceNumber int64     `bun:"sequence_number,notnull,unique:tickets_point_seq" json:"sequence_number"`
	PointID        string    `bun:"point_id,notnull,unique:tickets_point_seq" json:"point_id"`
	VehicleNumber  string    `bun:"vehicle_number,notnull" json:"vehicle_number"`
	CustomerName   string    `bun:"customer_name,notnull" json:"customer_name"`
	LaneNumber     string    `bun:"lane_number,nullzero" json:"lane_number,omitempty"`
	CreatedBy      string    `bun:"created_by,notnull" json:"created_by"`
	CreatorRole    string    `bun:"creator_role,notnull" json:"creator_role"`
	SupervisorID   string    `bun:"supervisor_id,nullzero" json:"supervisor_id,omitempty"`
	Status         string    `bun:"status,notnull" json:"status"`
	QRCode         []byte    `bun:"qr_code" json:"qr_code,omitempty"`
	OpenedAt       time.Time `bun:"opened_at,notnull" json:"opened_at"`
	ClosedAt       time.Time `bun:"closed_at,nullzero" json:"closed_at,omitempty"`
}

// Open reports whether the ticket is still open (car not yet released).
func (t *Ticket) Open() bool {
	return t.Status == TicketStatusOpen
}

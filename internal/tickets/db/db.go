package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"valet-ticketing/internal/models"
	"valet-ticketing/internal/scope"
)

// DefaultRetentionWindow mirrors the legacy store's 7-day TTL on tickets.
const DefaultRetentionWindow = 7 * 24 * time.Hour

type DB struct {
	Bun *bun.DB
	// RetentionWindow bounds every read; rows older than this behave as
	// already purged even before the sweeper removes them.
	RetentionWindow time.Duration
}

func (d *DB) cutoff() time.Time {
	window := d.RetentionWindow
	if window <= 0 {
		window = DefaultRetentionWindow
	}
	return time.Now().Add(-window)
}

// CreateTicket inserts a new ticket. The composite unique constraint on
// (point_id, sequence_number) rejects concurrent allocations of the same
// number; callers check IsDuplicateSequence and retry.
func (d *DB) CreateTicket(ticket models.Ticket) error {
	_, err := d.Bun.NewInsert().Model(&ticket).Exec(context.Background())
	return err
}

func (d *DB) GetTicketByID(id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("id = ?", id).
		Where("opened_at > ?", d.cutoff()).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// CloseTicket persists the Open -> Closed transition.
func (d *DB) CloseTicket(ticket models.Ticket) error {
	_, err := d.Bun.NewUpdate().
		Model(&ticket).
		Column("status", "closed_at").
		Where("id = ?", ticket.ID).
		Exec(context.Background())
	return err
}

// ListTickets returns tickets visible within the given scope. sortKey
// "sequence" orders by sequence_number ascending for per-point operational
// views; anything else orders by opened_at descending for dashboards.
func (d *DB) ListTickets(s scope.TicketScope, pointID, sortKey string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	q := d.Bun.NewSelect().
		Model(&tickets).
		Where("opened_at > ?", d.cutoff())

	q = s.Apply(q)

	if pointID != "" {
		q = q.Where("point_id = ?", pointID)
	}

	if sortKey == "sequence" {
		q = q.Order("sequence_number ASC")
	} else {
		q = q.Order("opened_at DESC")
	}

	if err := q.Scan(context.Background()); err != nil {
		return nil, err
	}
	return tickets, nil
}

// PointOpenCount is one row of the live-status view.
type PointOpenCount struct {
	PointID   string `bun:"point_id" json:"point_id"`
	OpenCount int64  `bun:"open_count" json:"open_count"`
}

// OpenCountsByPoint returns the number of open tickets per point within
// the scope, for the live dashboard.
func (d *DB) OpenCountsByPoint(s scope.TicketScope) ([]PointOpenCount, error) {
	q := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		ColumnExpr("point_id").
		ColumnExpr("COUNT(*) AS open_count").
		Where("status = ?", models.TicketStatusOpen).
		Where("opened_at > ?", d.cutoff())

	q = s.Apply(q)

	var counts []PointOpenCount
	err := q.Group("point_id").
		Order("point_id").
		Scan(context.Background(), &counts)
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// PurgeExpired deletes tickets older than the retention window. Reads
// already exclude them; this reclaims storage and releases their sequence
// numbers for reuse.
func (d *DB) PurgeExpired() (int64, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.Ticket)(nil)).
		Where("opened_at <= ?", d.cutoff()).
		Exec(context.Background())
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// IsDuplicateSequence reports whether err is the storage layer's
// unique-constraint violation. Postgres surfaces SQLSTATE 23505; the
// sqlite test dialect reports a UNIQUE constraint message.
func IsDuplicateSequence(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

package db

import (
	"context"
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"valet-ticketing/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetPointByID(id string) (*models.Point, error) {
	var point models.Point
	err := d.Bun.NewSelect().
		Model(&point).
		Where("id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &point, nil
}

func (d *DB) CreatePoint(point models.Point) error {
	_, err := d.Bun.NewInsert().Model(&point).Exec(context.Background())
	return err
}

func (d *DB) ListPoints() ([]models.Point, error) {
	var points []models.Point
	err := d.Bun.NewSelect().
		Model(&points).
		Order("name").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return points, nil
}

// DeletePointCascade removes a point and, in the same transaction, cleans
// every actor reference to it: supervisors are cleared from drivers whose
// manager sat at the point, then the assigned point is cleared from every
// actor stationed there. A dangling reference to a deleted point must
// never remain.
func (d *DB) DeletePointCascade(id string) error {
	return d.Bun.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		var managerIDs []string
		err := tx.NewSelect().
			Model((*models.User)(nil)).
			Column("id").
			Where("point_id = ?", id).
			Scan(ctx, &managerIDs)
		if err != nil {
			return err
		}

		if len(managerIDs) > 0 {
			_, err = tx.NewUpdate().
				Model((*models.User)(nil)).
				Set("supervisor_id = NULL").
				Where("supervisor_id IN (?)", bun.In(managerIDs)).
				Exec(ctx)
			if err != nil {
				return err
			}
		}

		_, err = tx.NewUpdate().
			Model((*models.User)(nil)).
			Set("point_id = NULL").
			Where("point_id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = tx.NewDelete().
			Model((*models.Point)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		return err
	})
}

// IsDuplicateKey reports a unique-constraint violation (duplicate point
// name) from either the postgres or the sqlite test dialect.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

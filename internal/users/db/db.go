package db

import (
	"context"
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"valet-ticketing/internal/identity"
	"valet-ticketing/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetUserByID(id string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *DB) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("username = ?", username).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *DB) CreateUser(user models.User) error {
	_, err := d.Bun.NewInsert().Model(&user).Exec(context.Background())
	return err
}

func (d *DB) UpdateUser(user models.User) error {
	_, err := d.Bun.NewUpdate().
		Model(&user).
		Column("full_name", "role", "point_id", "supervisor_id").
		Where("id = ?", user.ID).
		Exec(context.Background())
	return err
}

// ListStaff returns every non-owner-equivalent actor, the directory shown
// to owners and managers for assignment dropdowns.
func (d *DB) ListStaff() ([]models.User, error) {
	var users []models.User
	err := d.Bun.NewSelect().
		Model(&users).
		Where("role NOT IN (?)", bun.In([]string{string(identity.RoleOwner), string(identity.RoleAdmin)})).
		Order("created_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteUser removes an actor. Deleting a manager orphans its drivers in
// the same transaction: their supervisor reference is cleared, the drivers
// themselves are kept.
func (d *DB) DeleteUser(user models.User) error {
	return d.Bun.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		if identity.NormalizeRole(user.Role) == identity.RoleManager {
			_, err := tx.NewUpdate().
				Model((*models.User)(nil)).
				Set("supervisor_id = NULL").
				Where("supervisor_id = ?", user.ID).
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		_, err := tx.NewDelete().
			Model((*models.User)(nil)).
			Where("id = ?", user.ID).
			Exec(ctx)
		return err
	})
}

// IsDuplicateKey reports a unique-constraint violation (duplicate
// username) from either the postgres or the sqlite test dialect.
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

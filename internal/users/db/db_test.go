package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"valet-ticketing/internal/models"
	"valet-ticketing/internal/users/db"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := bunDB.NewCreateTable().Model((*models.User)(nil)).Exec(context.Background()); err != nil {
		t.Fatalf("Failed to create user table: %v", err)
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func TestCreateAndGetUser(t *testing.T) {
	userDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	user := models.User{ID: "u1", Username: "alice", FullName: "Alice", Role: "manager", PointID: "p1", CreatedAt: time.Now()}
	assert.NoError(t, userDB.CreateUser(user))

	got, err := userDB.GetUserByID("u1")
	assert.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	got, err = userDB.GetUserByUsername("alice")
	assert.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	_, err = userDB.GetUserByID("missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDuplicateUsername(t *testing.T) {
	userDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	assert.NoError(t, userDB.CreateUser(models.User{ID: "u1", Username: "alice", FullName: "Alice", Role: "driver", CreatedAt: time.Now()}))

	err := userDB.CreateUser(models.User{ID: "u2", Username: "alice", FullName: "Other Alice", Role: "driver", CreatedAt: time.Now()})
	assert.Error(t, err)
	assert.True(t, db.IsDuplicateKey(err))
}

func TestListStaffExcludesOwners(t *testing.T) {
	userDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seed := []models.User{
		{ID: "o1", Username: "owner", FullName: "Owner", Role: "owner", CreatedAt: time.Now().Add(-3 * time.Hour)},
		{ID: "a1", Username: "admin", FullName: "Admin", Role: "admin", CreatedAt: time.Now().Add(-2 * time.Hour)},
		{ID: "m1", Username: "mgr", FullName: "Manager", Role: "manager", PointID: "p1", CreatedAt: time.Now().Add(-1 * time.Hour)},
		{ID: "d1", Username: "drv", FullName: "Driver", Role: "driver", PointID: "p1", SupervisorID: "m1", CreatedAt: time.Now()},
	}
	for _, user := range seed {
		assert.NoError(t, userDB.CreateUser(user))
	}

	staff, err := userDB.ListStaff()
	assert.NoError(t, err)
	assert.Len(t, staff, 2)
	assert.Equal(t, "d1", staff[0].ID)
	assert.Equal(t, "m1", staff[1].ID)
}

func TestDeleteManagerOrphansDrivers(t *testing.T) {
	userDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	manager := models.User{ID: "m1", Username: "mgr", FullName: "Manager", Role: "manager", PointID: "p1", CreatedAt: time.Now()}
	driver := models.User{ID: "d1", Username: "drv", FullName: "Driver", Role: "driver", PointID: "p1", SupervisorID: "m1", CreatedAt: time.Now()}
	assert.NoError(t, userDB.CreateUser(manager))
	assert.NoError(t, userDB.CreateUser(driver))

	assert.NoError(t, userDB.DeleteUser(manager))

	_, err := userDB.GetUserByID("m1")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	// The driver stays but loses its supervisor reference
	got, err := userDB.GetUserByID("d1")
	assert.NoError(t, err)
	assert.Empty(t, got.SupervisorID)
	assert.Equal(t, "p1", got.PointID)
}

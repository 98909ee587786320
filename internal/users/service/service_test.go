package users_test

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"valet-ticketing/internal/apperr"
	"valet-ticketing/internal/identity"
	"valet-ticketing/internal/models"
	users "valet-ticketing/internal/users/service"
)

type MockUserDBLayer struct {
	mock.Mock
}

func (m *MockUserDBLayer) GetUserByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserDBLayer) CreateUser(user models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserDBLayer) UpdateUser(user models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserDBLayer) DeleteUser(user models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserDBLayer) ListStaff() ([]models.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

var owner = identity.Actor{ID: "o1", Role: identity.RoleOwner}

func TestManagerCreatesDriverWithForcedAssignment(t *testing.T) {
	mockDB := new(MockUserDBLayer)
	svc := users.NewUserService(mockDB)

	manager := identity.Actor{ID: "m1", Role: identity.RoleManager, PointID: "p1"}

	mockDB.On("GetUserByID", "m1").Return(&models.User{ID: "m1", Role: "manager", PointID: "p1"}, nil)
	mockDB.On("CreateUser", mock.MatchedBy(func(u models.User) bool {
		return u.Role == "driver" && u.PointID == "p1" && u.SupervisorID == "m1"
	})).Return(nil)

	// Client-supplied point and supervisor are ignored for manager creates
	created, err := svc.CreateActor(manager, users.CreateActorRequest{
		Username:     "newdriver",
		FullName:     "New Driver",
		Role:         "driver",
		PointID:      "p9",
		SupervisorID: "m9",
	})
	assert.NoError(t, err)
	assert.Equal(t, "p1", created.PointID)
	assert.Equal(t, "m1", created.SupervisorID)
	mockDB.AssertExpectations(t)
}

func TestManagerCannotCreateManager(t *testing.T) {
	svc := users.NewUserService(new(MockUserDBLayer))
	manager := identity.Actor{ID: "m1", Role: identity.RoleManager, PointID: "p1"}

	_, err := svc.CreateActor(manager, users.CreateActorRequest{Username: "x", Role: "manager", PointID: "p1"})
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
}

func TestCreateActorValidation(t *testing.T) {
	svc := users.NewUserService(new(MockUserDBLayer))

	// Unknown role is rejected, never defaulted
	_, err := svc.CreateActor(owner, users.CreateActorRequest{Username: "x", Role: "superuser"})
	assert.Equal(t, apperr.ValidationFailed, apperr.KindOf(err))

	_, err = svc.CreateActor(owner, users.CreateActorRequest{Username: "  ", Role: "driver"})
	assert.Equal(t, apperr.ValidationFailed, apperr.KindOf(err))

	// Manager requires a point
	_, err = svc.CreateActor(owner, users.CreateActorRequest{Username: "mgr", Role: "manager"})
	assert.Equal(t, apperr.ValidationFailed, apperr.KindOf(err))

	// Driver requires a supervisor
	_, err = svc.CreateActor(owner, users.CreateActorRequest{Username: "drv", Role: "driver", PointID: "p1"})
	assert.Equal(t, apperr.ValidationFailed, apperr.KindOf(err))
}

func TestCreateDriverChecksSupervisor(t *testing.T) {
	// Supervisor must exist
	mockDB := new(MockUserDBLayer)
	mockDB.On("GetUserByID", "ghost").Return(nil, sql.ErrNoRows)
	svc := users.NewUserService(mockDB)
	_, err := svc.CreateActor(owner, users.CreateActorRequest{Username: "drv", Role: "driver", PointID: "p1", SupervisorID: "ghost"})
	assert.Equal(t, apperr.ValidationFailed, apperr.KindOf(err))

	// Supervisor must be a manager
	mockDB = new(MockUserDBLayer)
	mockDB.On("GetUserByID", "d9").Return(&models.User{ID: "d9", Role: "driver", PointID: "p1"}, nil)
	svc = users.NewUserService(mockDB)
	_, err = svc.CreateActor(owner, users.CreateActorRequest{Username: "drv", Role: "driver", PointID: "p1", SupervisorID: "d9"})
	assert.Equal(t, apperr.ValidationFailed, apperr.KindOf(err))

	// Supervisor's point must match the driver's
	mockDB = new(MockUserDBLayer)
	mockDB.On("GetUserByID", "m2").Return(&models.User{ID: "m2", Role: "manager", PointID: "p2"}, nil)
	svc = users.NewUserService(mockDB)
	_, err = svc.CreateActor(owner, users.CreateActorRequest{Username: "drv", Role: "driver", PointID: "p1", SupervisorID: "m2"})
	assert.Equal(t, apperr.ValidationFailed, apperr.KindOf(err))
}

func TestCreateActorDuplicateUsername(t *testing.T) {
	mockDB := new(MockUserDBLayer)
	mockDB.On("CreateUser", mock.Anything).Return(errors.New("UNIQUE constraint failed: users.username"))
	svc := users.NewUserService(mockDB)

	_, err := svc.CreateActor(owner, users.CreateActorRequest{Username: "taken", Role: "admin"})
	assert.Equal(t, apperr.DuplicateKey, apperr.KindOf(err))
}

func TestUpdateActorOwnerOnly(t *testing.T) {
	svc := users.NewUserService(new(MockUserDBLayer))
	manager := identity.Actor{ID: "m1", Role: identity.RoleManager, PointID: "p1"}

	_, err := svc.UpdateActor(manager, "d1", users.UpdateActorRequest{FullName: "X"})
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
}

func TestDeleteActor(t *testing.T) {
	mockDB := new(MockUserDBLayer)
	svc := users.NewUserService(mockDB)

	mockDB.On("GetUserByID", "missing").Return(nil, sql.ErrNoRows)
	err := svc.DeleteActor(owner, "missing")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	target := &models.User{ID: "m1", Role: "manager", PointID: "p1"}
	mockDB.On("GetUserByID", "m1").Return(target, nil)
	mockDB.On("DeleteUser", *target).Return(nil)
	assert.NoError(t, svc.DeleteActor(owner, "m1"))
	mockDB.AssertExpectations(t)
}

func TestListStaffDeniedForDrivers(t *testing.T) {
	svc := users.NewUserService(new(MockUserDBLayer))
	driver := identity.Actor{ID: "d1", Role: identity.RoleDriver, PointID: "p1"}

	_, err := svc.ListStaff(driver)
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
}

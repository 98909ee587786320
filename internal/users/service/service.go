package users

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"valet-ticketing/internal/apperr"
	"valet-ticketing/internal/identity"
	"valet-ticketing/internal/models"
	"valet-ticketing/internal/scope"
	"valet-ticketing/internal/users/db"
)

type UserDBLayer interface {
	GetUserByID(id string) (*models.User, error)
	CreateUser(user models.User) error
	UpdateUser(user models.User) error
	DeleteUser(user models.User) error
	ListStaff() ([]models.User, error)
}

type UserService struct {
	DB UserDBLayer
}

func NewUserService(userDB UserDBLayer) *UserService {
	return &UserService{DB: userDB}
}

type CreateActorRequest struct {
	Username     string `json:"username"`
	FullName     string `json:"full_name"`
	Role         string `json:"role"`
	PointID      string `json:"point_id"`
	SupervisorID string `json:"supervisor_id"`
}

type UpdateActorRequest struct {
	FullName     string `json:"full_name"`
	Role         string `json:"role"`
	PointID      string `json:"point_id"`
	SupervisorID string `json:"supervisor_id"`
}

// CreateActor creates a user. Owner-equivalent actors may create any role.
// A manager may only create drivers, and the driver's point and supervisor
// are forced to the manager's own; client-supplied values for those two
// fields are never trusted.
func (s *UserService) CreateActor(actor identity.Actor, req CreateActorRequest) (*models.User, error) {
	role, ok := identity.ParseRole(req.Role)
	if !ok {
		return nil, apperr.New(apperr.ValidationFailed, "unrecognized role")
	}
	if err := scope.CanCreateActor(actor, role); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, apperr.New(apperr.ValidationFailed, "username is required")
	}

	pointID := req.PointID
	supervisorID := req.SupervisorID

	if actor.Role == identity.RoleManager {
		if actor.PointID == "" {
			return nil, apperr.New(apperr.ValidationFailed, "manager is not assigned to a point")
		}
		role = identity.RoleDriver
		pointID = actor.PointID
		supervisorID = actor.ID
	}

	user := models.User{
		ID:           uuid.New().String(),
		Username:     username,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         string(role),
		PointID:      pointID,
		SupervisorID: supervisorID,
		CreatedAt:    time.Now(),
	}

	if err := s.validateAssignment(&user); err != nil {
		return nil, err
	}

	if err := s.DB.CreateUser(user); err != nil {
		if db.IsDuplicateKey(err) {
			return nil, apperr.New(apperr.DuplicateKey, "username already exists")
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to create actor", err)
	}
	return &user, nil
}

// UpdateActor applies role, point and supervisor changes. Owner-equivalent
// only.
func (s *UserService) UpdateActor(actor identity.Actor, id string, req UpdateActorRequest) (*models.User, error) {
	if err := scope.CanMutateActor(actor); err != nil {
		return nil, err
	}

	user, err := s.DB.GetUserByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "actor not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to load actor", err)
	}

	if req.FullName != "" {
		user.FullName = strings.TrimSpace(req.FullName)
	}
	if req.Role != "" {
		role, ok := identity.ParseRole(req.Role)
		if !ok {
			return nil, apperr.New(apperr.ValidationFailed, "unrecognized role")
		}
		user.Role = string(role)
	}
	user.PointID = req.PointID
	user.SupervisorID = req.SupervisorID

	if err := s.validateAssignment(user); err != nil {
		return nil, err
	}

	if err := s.DB.UpdateUser(*user); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to update actor", err)
	}
	return user, nil
}

// DeleteActor removes a user. Deleting a manager orphans its drivers
// (supervisor cleared, drivers kept), handled transactionally in the store.
func (s *UserService) DeleteActor(actor identity.Actor, id string) error {
	if err := scope.CanMutateActor(actor); err != nil {
		return err
	}

	user, err := s.DB.GetUserByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound, "actor not found")
		}
		return apperr.Wrap(apperr.Internal, "failed to load actor", err)
	}

	if err := s.DB.DeleteUser(*user); err != nil {
		return apperr.Wrap(apperr.Internal, "failed to delete actor", err)
	}
	return nil
}

// ListStaff returns the non-owner directory for owners and managers.
func (s *UserService) ListStaff(actor identity.Actor) ([]models.User, error) {
	if err := scope.CanListActors(actor); err != nil {
		return nil, err
	}

	staff, err := s.DB.ListStaff()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list actors", err)
	}
	return staff, nil
}

// validateAssignment enforces the org-graph invariants: managers and
// drivers need a point, drivers need a supervisor at the same point.
func (s *UserService) validateAssignment(user *models.User) error {
	role := identity.NormalizeRole(user.Role)

	switch role {
	case identity.RoleManager:
		if user.PointID == "" {
			return apperr.New(apperr.ValidationFailed, "manager requires an assigned point")
		}
	case identity.RoleDriver:
		if user.PointID == "" {
			return apperr.New(apperr.ValidationFailed, "driver requires an assigned point")
		}
		if user.SupervisorID == "" {
			return apperr.New(apperr.ValidationFailed, "driver requires a supervisor")
		}
		supervisor, err := s.DB.GetUserByID(user.SupervisorID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.New(apperr.ValidationFailed, "supervisor does not exist")
			}
			return apperr.Wrap(apperr.Internal, "failed to load supervisor", err)
		}
		if identity.NormalizeRole(supervisor.Role) != identity.RoleManager {
			return apperr.New(apperr.ValidationFailed, "supervisor must be a manager")
		}
		if supervisor.PointID != "" && supervisor.PointID != user.PointID {
			return apperr.New(apperr.ValidationFailed, "driver's point must match the supervisor's point")
		}
	}
	return nil
}

package points

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
	"valet-ticketing/internal/points/db"
)

type PointDBLayer interface {
	GetPointByID(id string) (*models.Point, error)
	CreatePoint(point models.Point) error
	ListPoints() ([]models.Point, error)
	DeletePointCascade(id string) error
}

type PointService struct {
	DB PointDBLayer
}

func NewPointService(pointDB PointDBLayer) *PointService {
	return &PointService{DB: pointDB}
}

type CreatePointRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// CreatePoint creates a valet location. Owner-equivalent only; names are
// unique across the deployment.
func (s *PointService) CreatePoint(actor identity.Actor, req CreatePointRequest) (*models.Point, error) {
	if err := scope.CanManagePoints(actor); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.New(apperr.ValidationFailed, "point name is required")
	}

	point := models.Point{
		ID:        uuid.New().String(),
		Name:      name,
		Address:   strings.TrimSpace(req.Address),
		OwnerID:   actor.ID,
		CreatedAt: time.Now(),
	}

	if err := s.DB.CreatePoint(point); err != nil {
		if db.IsDuplicateKey(err) {
			return nil, apperr.New(apperr.DuplicateKey, "point name already exists")
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to create point", err)
	}
	return &point, nil
}

// ListPoints returns all points for assignment views.
func (s *PointService) ListPoints(actor identity.Actor) ([]models.Point, error) {
	if err := scope.CanListActors(actor); err != nil {
		return nil, err
	}

	points, err := s.DB.ListPoints()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list points", err)
	}
	return points, nil
}

// DeletePoint removes a point and cascades the cleanup of every actor
// reference to it in one transaction.
func (s *PointService) DeletePoint(actor identity.Actor, id string) error {
	if err := scope.CanManagePoints(actor); err != nil {
		return err
	}

	if _, err := s.DB.GetPointByID(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound, "point not found")
		}
		return apperr.Wrap(apperr.Internal, "failed to load point", err)
	}

	if err := s.DB.DeletePointCascade(id); err != nil {
		return apperr.Wrap(apperr.Internal, "failed to delete point", err)
	}
	return nil
}

package tickets

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"valet-ticketing/internal/apperr"
	"valet-ticketing/internal/identity"
	"valet-ticketing/internal/logger"
	"valet-ticketing/internal/models"
	"valet-ticketing/internal/scope"
	"valet-ticketing/internal/tickets/db"
	"valet-ticketing/internal/tickets/qr"
)

// maxSequenceAttempts bounds the read-propose-write retry loop around the
// sequence allocator. Each attempt re-reads the per-point maximum, so a
// lost race converges on the next free number.
const maxSequenceAttempts = 3

type TicketDBLayer interface {
	CreateTicket(ticket models.Ticket) error
	GetTicketByID(id string) (*models.Ticket, error)
	CloseTicket(ticket models.Ticket) error
	ListTickets(s scope.TicketScope, pointID, sortKey string) ([]models.Ticket, error)
	NextSequenceNumber(pointID string) (int64, error)
	OpenCountsByPoint(s scope.TicketScope) ([]db.PointOpenCount, error)
}

type UserDBLayer interface {
	GetUserByID(id string) (*models.User, error)
}

type EventPublisher interface {
	PublishCarIn(ticket models.Ticket) error
	PublishCarOut(ticket models.Ticket) error
}

type TicketService struct {
	DB     TicketDBLayer
	Users  UserDBLayer
	Events EventPublisher
	QR     *qr.ClaimGenerator
	Logger *logger.Logger
}

func NewTicketService(ticketDB TicketDBLayer, users UserDBLayer, events EventPublisher, claims *qr.ClaimGenerator, log *logger.Logger) *TicketService {
	return &TicketService{DB: ticketDB, Users: users, Events: events, QR: claims, Logger: log}
}

// CarInRequest is the strict input for ticket creation. Unknown or
// mistyped body fields are rejected at the handler boundary; the point is
// never taken from the client.
type CarInRequest struct {
	VehicleNumber string `json:"vehicle_number"`
	CustomerName  string `json:"customer_name"`
	LaneNumber    string `json:"lane_number"`
	// DriverID lets a manager credit a supervised driver. Ignored unless
	// the requester is a manager.
	DriverID string `json:"driver_id"`
}

// CarIn records a vehicle arrival: resolves the credited actor and its
// point, allocates the next per-point sequence number under the bounded
// retry policy, and persists the open ticket.
func (s *TicketService) CarIn(actor identity.Actor, req CarInRequest) (*models.Ticket, error) {
	if !actor.Authenticated() {
		return nil, apperr.New(apperr.Unauthenticated, "no authenticated actor")
	}
	if actor.Role != identity.RoleManager && actor.Role != identity.RoleDriver {
		return nil, apperr.New(apperr.Forbidden, "only managers and drivers record arrivals")
	}

	vehicle := strings.ToUpper(strings.TrimSpace(req.VehicleNumber))
	if vehicle == "" {
		return nil, apperr.New(apperr.ValidationFailed, "vehicle number is required")
	}

	customer := strings.TrimSpace(req.CustomerName)
	if customer == "" {
		customer = "N/A"
	}

	createdBy := actor.ID
	creatorRole := string(actor.Role)
	supervisorID := actor.SupervisorID
	pointID := actor.PointID

	if req.DriverID != "" && req.DriverID != actor.ID {
		if actor.Role != identity.RoleManager {
			return nil, apperr.New(apperr.Forbidden, "only a manager may credit another driver")
		}
		credited, err := s.Users.GetUserByID(req.DriverID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, apperr.New(apperr.ValidationFailed, "credited driver does not exist")
			}
			return nil, apperr.Wrap(apperr.Internal, "failed to load credited driver", err)
		}
		if identity.NormalizeRole(credited.Role) != identity.RoleDriver {
			return nil, apperr.New(apperr.ValidationFailed, "credited actor is not a driver")
		}
		if credited.SupervisorID != actor.ID {
			return nil, apperr.New(apperr.Forbidden, "driver is not under your supervision")
		}
		createdBy = credited.ID
		creatorRole = credited.Role
		supervisorID = credited.SupervisorID
		pointID = credited.PointID
	}

	if pointID == "" {
		return nil, apperr.New(apperr.ValidationFailed, "selected driver is not assigned to a valid point")
	}

	for attempt := 1; attempt <= maxSequenceAttempts; attempt++ {
		seq, err := s.DB.NextSequenceNumber(pointID)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "failed to read ticket sequence", err)
		}

		ticket := models.Ticket{
			ID:             uuid.New().String(),
			SequenceNumber: seq,
			PointID:        pointID,
			VehicleNumber:  vehicle,
			CustomerName:   customer,
			LaneNumber:     strings.TrimSpace(req.LaneNumber),
			CreatedBy:      createdBy,
			CreatorRole:    creatorRole,
			SupervisorID:   supervisorID,
			Status:         models.TicketStatusOpen,
			OpenedAt:       time.Now(),
		}

		if s.QR != nil {
			qrBytes, err := s.QR.GenerateClaimQR(ticket)
			if err != nil {
				return nil, apperr.Wrap(apperr.Internal, "failed to generate claim slip", err)
			}
			ticket.QRCode = qrBytes
		}

		err = s.DB.CreateTicket(ticket)
		if err == nil {
			s.publishCarIn(ticket)
			return &ticket, nil
		}
		if db.IsDuplicateSequence(err) {
			s.logWarn("TICKET", fmt.Sprintf("sequence %d taken for point %s, attempt %d/%d", seq, pointID, attempt, maxSequenceAttempts))
			continue
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to create ticket", err)
	}

	return nil, apperr.New(apperr.ConflictRetryExhausted, "could not allocate a ticket number, please retry")
}

// CarOut closes an open ticket. Closing is terminal; a second close fails
// with AlreadyClosed and leaves closedAt untouched.
func (s *TicketService) CarOut(actor identity.Actor, ticketID string) (*models.Ticket, error) {
	if !actor.Authenticated() {
		return nil, apperr.New(apperr.Unauthenticated, "no authenticated actor")
	}

	ticket, err := s.DB.GetTicketByID(ticketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "ticket not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to load ticket", err)
	}

	if !scope.CanCloseTicket(actor, ticket) {
		return nil, apperr.New(apperr.Forbidden, "not allowed to close this ticket")
	}

	if !ticket.Open() {
		return nil, apperr.New(apperr.AlreadyClosed, "ticket is already closed")
	}

	ticket.Status = models.TicketStatusClosed
	ticket.ClosedAt = time.Now()

	if err := s.DB.CloseTicket(*ticket); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to close ticket", err)
	}

	s.publishCarOut(*ticket)
	return ticket, nil
}

// List returns the tickets visible to the actor. sortKey "sequence" gives
// the per-point operational order; the default is most recent first.
func (s *TicketService) List(actor identity.Actor, pointID, sortKey string) ([]models.Ticket, error) {
	ticketScope, err := scope.ForTickets(actor)
	if err != nil {
		return nil, err
	}

	tickets, err := s.DB.ListTickets(ticketScope, pointID, sortKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list tickets", err)
	}
	return tickets, nil
}

// LiveStatus returns open-ticket counts per point within the actor's scope.
func (s *TicketService) LiveStatus(actor identity.Actor) ([]db.PointOpenCount, error) {
	ticketScope, err := scope.ForTickets(actor)
	if err != nil {
		return nil, err
	}

	counts, err := s.DB.OpenCountsByPoint(ticketScope)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load live status", err)
	}
	return counts, nil
}

// Event publishing is best effort: a broker outage must not fail car-in
// or car-out.
func (s *TicketService) publishCarIn(ticket models.Ticket) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishCarIn(ticket); err != nil {
		s.logWarn("KAFKA", fmt.Sprintf("car_in publish failed for ticket %s: %v", ticket.ID, err))
	}
}

func (s *TicketService) publishCarOut(ticket models.Ticket) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishCarOut(ticket); err != nil {
		s.logWarn("KAFKA", fmt.Sprintf("car_out publish failed for ticket %s: %v", ticket.ID, err))
	}
}

func (s *TicketService) logWarn(category, message string) {
	if s.Logger != nil {
		s.Logger.Warn(category, message)
	}
}

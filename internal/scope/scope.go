// Package scope computes what an actor may see and mutate. All role
// precedence rules live here; handlers and services never compare role
// strings themselves.
package scope

import (
	"github.com/uptrace/bun"

	"valet-ticketing/internal/apperr"
	"valet-ticketing/internal/identity"
	"valet-ticketing/internal/models"
)

// TicketScope is the visibility filter for ticket reads. Exactly one of
// the three shapes is set: All, the manager pair (PointID/SupervisorID),
// or CreatorID.
type TicketScope struct {
	All bool
	// Manager scope: tickets at the manager's point OR tickets whose
	// supervisor snapshot is the manager. Both predicates are honored so
	// tickets created before a driver's point reassignment stay visible.
	PointID      string
	SupervisorID string
	// Driver scope: only the driver's own tickets.
	CreatorID string
}

// ForTickets resolves the ticket visibility scope for an actor.
// Precedence: owner-equivalent, manager, driver, deny.
func ForTickets(actor identity.Actor) (TicketScope, error) {
	if !actor.Authenticated() {
		return TicketScope{}, apperr.New(apperr.Unauthenticated, "no authenticated actor")
	}
	switch {
	case actor.Role.OwnerEquivalent():
		return TicketScope{All: true}, nil
	case actor.Role == identity.RoleManager:
		return TicketScope{PointID: actor.PointID, SupervisorID: actor.ID}, nil
	case actor.Role == identity.RoleDriver:
		return TicketScope{CreatorID: actor.ID}, nil
	}
	return TicketScope{}, apperr.New(apperr.Forbidden, "role has no ticket access")
}

// Apply composes the scope into a ticket select query.
func (s TicketScope) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	if s.All {
		return q
	}
	if s.CreatorID != "" {
		return q.Where("created_by = ?", s.CreatorID)
	}
	return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Where("point_id = ?", s.PointID).
			WhereOr("supervisor_id = ?", s.SupervisorID)
	})
}

// CanCloseTicket reports whether the actor may close the given ticket:
// owner-equivalent, the creator, the creator's supervisor, or the manager
// of the ticket's point.
func CanCloseTicket(actor identity.Actor, ticket *models.Ticket) bool {
	if !actor.Authenticated() {
		return false
	}
	if actor.Role.OwnerEquivalent() {
		return true
	}
	if ticket.CreatedBy == actor.ID {
		return true
	}
	if actor.Role == identity.RoleManager {
		if ticket.SupervisorID != "" && ticket.SupervisorID == actor.ID {
			return true
		}
		if actor.PointID != "" && ticket.PointID == actor.PointID {
			return true
		}
	}
	return false
}

// CanManagePoints gates point creation and deletion.
func CanManagePoints(actor identity.Actor) error {
	if !actor.Authenticated() {
		return apperr.New(apperr.Unauthenticated, "no authenticated actor")
	}
	if !actor.Role.OwnerEquivalent() {
		return apperr.New(apperr.Forbidden, "only an owner may manage points")
	}
	return nil
}

// CanCreateActor gates actor creation. Owner-equivalent actors create any
// role; managers create drivers only (with point and supervisor forced to
// their own, which the users service enforces).
func CanCreateActor(actor identity.Actor, targetRole identity.Role) error {
	if !actor.Authenticated() {
		return apperr.New(apperr.Unauthenticated, "no authenticated actor")
	}
	if actor.Role.OwnerEquivalent() {
		return nil
	}
	if actor.Role == identity.RoleManager && targetRole == identity.RoleDriver {
		return nil
	}
	return apperr.New(apperr.Forbidden, "role may not create this actor")
}

// CanMutateActor gates actor update and deletion.
func CanMutateActor(actor identity.Actor) error {
	if !actor.Authenticated() {
		return apperr.New(apperr.Unauthenticated, "no authenticated actor")
	}
	if !actor.Role.OwnerEquivalent() {
		return apperr.New(apperr.Forbidden, "only an owner may modify actors")
	}
	return nil
}

// CanListActors gates the actor directory (owner-equivalent and managers,
// matching the admin user list in the legacy API).
func CanListActors(actor identity.Actor) error {
	if !actor.Authenticated() {
		return apperr.New(apperr.Unauthenticated, "no authenticated actor")
	}
	if actor.Role.OwnerEquivalent() || actor.Role == identity.RoleManager {
		return nil
	}
	return apperr.New(apperr.Forbidden, "role may not list actors")
}

package identity

// Actor is the authenticated identity the credential service supplies on
// every call. The core trusts these fields as already verified; it does not
// re-check credentials.
type Actor struct {
	ID           string
	Username     string
	Role         Role
	PointID      string
	SupervisorID string
}

// Authenticated reports whether the actor carries a usable identity. An
// actor with no id or an unrecognized role is denied everything.
func (a Actor) Authenticated() bool {
	return a.ID != "" && a.Role.Valid()
}

package domain

type Role string

const (
	RoleOwner    Role = "owner"
	RoleVerifier Role = "verifier"
	RoleAdmin    Role = "admin"
)

// Actor is the caller identity passed into every mutating operation.
// Identity is supplied explicitly by the transport layer, never inferred.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// CanDecide reports whether the actor may verify/reject proofs and certify
// projects.
func (a Actor) CanDecide() bool {
	return a.Role == RoleVerifier || a.Role == RoleAdmin
}

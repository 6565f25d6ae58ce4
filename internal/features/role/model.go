package role

import "go-grc/internal/common/apperr"

// Role is the closed vocabulary of GRC roles. Authorization uses a total
// order over roles rather than exact matching: a higher-ranked role satisfies
// any lower-ranked requirement.
type Role string

const (
	RoleViewer      Role = "viewer"
	RoleContributor Role = "contributor"
	RoleAuditor     Role = "auditor"
	RoleReviewer    Role = "reviewer"
	RoleManager     Role = "manager"
	RoleAdmin       Role = "admin"
)

var roleRanks = map[Role]int{
	RoleViewer:      1,
	RoleContributor: 2,
	RoleAuditor:     3,
	RoleReviewer:    4,
	RoleManager:     5,
	RoleAdmin:       6,
}

// Parse validates a role string against the vocabulary.
func Parse(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleRanks[r]; !ok {
		return "", apperr.Validation("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether s names a known role.
func Valid(s string) bool {
	_, ok := roleRanks[Role(s)]
	return ok
}

// Rank returns the numeric rank of r, 0 for unknown roles.
func (r Role) Rank() int {
	return roleRanks[r]
}

// Satisfies reports whether an actor holding r meets a step requirement of
// required. Unknown roles never satisfy anything.
func (r Role) Satisfies(required Role) bool {
	rank, ok := roleRanks[r]
	if !ok {
		return false
	}
	reqRank, ok := roleRanks[required]
	if !ok {
		return false
	}
	return rank >= reqRank
}

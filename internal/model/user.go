package model

// RoleAdmin grants deletion rights over any program or comment.
const RoleAdmin = "admin"

// Actor is the identity performing an operation, as supplied by the identity service.
// The zero value is an anonymous caller.
type Actor struct {
	ID    string
	Roles []string
}

// Anonymous reports whether the actor carries no identity.
func (a Actor) Anonymous() bool { return a.ID == "" }

// HasRole reports whether the actor holds the given role.
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// UserSummary is the public projection of a user used when hydrating records.
type UserSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

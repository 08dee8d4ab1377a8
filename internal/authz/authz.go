// Package authz decides whether an actor may change or remove a program or comment.
// Every function here is pure; callers turn a false result into an error before writing anything.
package authz

import "programhub/internal/model"

// Kind tags the resource a Resource describes.
type Kind int

const (
	KindProgram Kind = iota + 1
	KindComment
)

func (k Kind) String() string {
	switch k {
	case KindProgram:
		return "program"
	case KindComment:
		return "comment"
	default:
		return "unknown"
	}
}

// Resource is the ownership view of a program or comment.
// For comments the author stands in for the owner.
type Resource struct {
	Kind    Kind
	ID      string
	OwnerID string
}

// ForProgram describes p for the gate.
func ForProgram(p *model.Program) Resource {
	return Resource{Kind: KindProgram, ID: p.ID, OwnerID: p.OwnerID}
}

// ForComment describes c for the gate.
func ForComment(c *model.Comment) Resource {
	return Resource{Kind: KindComment, ID: c.ID, OwnerID: c.AuthorID}
}

// CanMutate reports whether actor may edit the resource: only its owner can.
func CanMutate(actor model.Actor, res Resource) bool {
	return !actor.Anonymous() && res.OwnerID != "" && actor.ID == res.OwnerID
}

// CanDelete reports whether actor may remove the resource: its owner or an admin.
func CanDelete(actor model.Actor, res Resource) bool {
	if actor.Anonymous() {
		return false
	}
	return CanMutate(actor, res) || actor.HasRole(model.RoleAdmin)
}

// CanView reports whether actor may read a program that is not published.
// Published programs are readable by anyone.
func CanView(actor model.Actor, p *model.Program) bool {
	if p.Status == model.StatusPublished {
		return true
	}
	return CanDelete(actor, ForProgram(p))
}

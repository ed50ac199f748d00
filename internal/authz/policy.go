// Package authz holds the pure authorization decisions for card and user
// operations. Every function is a side-effect-free predicate over the
// acting principal; callers translate a false result into a Forbidden error
// before touching any state.
package authz

import "github.com/bankcards/card-service/internal/models"

// CanBlockCard allows the card's owner or an admin to block a card.
func CanBlockCard(p models.Principal, ownerUsername string) bool {
	return p.Username == ownerUsername || p.IsAdmin()
}

// CanAdminister gates admin-only operations: activate/delete/create cards,
// list all cards, and all user management.
func CanAdminister(p models.Principal) bool {
	return p.IsAdmin()
}

// CanUseCard gates balance reads and transfers: the principal must own the
// card. Intentionally no admin override.
func CanUseCard(p models.Principal, ownerUsername string) bool {
	return p.Username == ownerUsername
}

// CanAssignRole allows anyone to hand out USER; granting ADMIN requires an
// ADMIN principal.
func CanAssignRole(p models.Principal, role models.Role) bool {
	return role != models.RoleAdmin || p.IsAdmin()
}

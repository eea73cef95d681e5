// Package authz holds the authorization core: the persistence-layer policy
// evaluator, the role resolution precedence chain, and the permission matrix.
package authz

import "github.com/google/uuid"

// Principal is the authenticated actor for a request. IsPlatformAdmin is a
// platform-level attribute loaded from the user row, never from token claims.
type Principal struct {
	UserID          uuid.UUID
	Email           string
	IsPlatformAdmin bool
}

package membership

import "errors"

// Guard violations are distinct sentinels so the API layer can render a
// precise message. None of them are retried automatically.
var (
	// ErrLastAdmin is returned when a mutation would leave an organization
	// with no admin membership.
	ErrLastAdmin = errors.New("cannot remove or demote the last admin of an organization")
	// ErrSelfModification is returned when a principal tries to remove or
	// change their own project membership.
	ErrSelfModification = errors.New("cannot modify your own project membership")
	// ErrAlreadyMember is returned when the target user already holds a
	// membership on the org or project.
	ErrAlreadyMember = errors.New("user is already a member")
	// ErrMembershipNotFound is returned when the targeted membership row
	// does not exist.
	ErrMembershipNotFound = errors.New("membership not found")
	// ErrOrganizationNotFound is returned for a missing or retired org.
	ErrOrganizationNotFound = errors.New("organization not found")
	// ErrProjectNotFound is returned for a missing project.
	ErrProjectNotFound = errors.New("project not found")
	// ErrUserNotFound is returned when the target user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

package models

import "fmt"

// OrgRole is the role a user holds inside an organization.
type OrgRole string

const (
	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleMember OrgRole = "member"
)

// ParseOrgRole validates a role string coming from the API layer.
func ParseOrgRole(s string) (OrgRole, error) {
	switch OrgRole(s) {
	case OrgRoleAdmin, OrgRoleMember:
		return OrgRole(s), nil
	}
	return "", fmt.Errorf("invalid organization role %q", s)
}

// ProjectRole is the role a user holds on a project. RoleUnassigned is a
// resolution result for users with no standing on a project; it is never
// stored and never grantable.
type ProjectRole string

const (
	RoleAdmin          ProjectRole = "admin"
	RoleProjectManager ProjectRole = "project_manager"
	RoleTeamLead       ProjectRole = "team_lead"
	RoleContributor    ProjectRole = "contributor"
	RoleViewer         ProjectRole = "viewer"
	RoleUnassigned     ProjectRole = "unassigned"
)

// ProjectRoles lists every grantable project role, highest authority first.
var ProjectRoles = []ProjectRole{
	RoleAdmin,
	RoleProjectManager,
	RoleTeamLead,
	RoleContributor,
	RoleViewer,
}

// ParseProjectRole validates a role string coming from the API layer.
// RoleUnassigned is rejected: it marks the absence of a membership.
func ParseProjectRole(s string) (ProjectRole, error) {
	for _, r := range ProjectRoles {
		if ProjectRole(s) == r {
			return r, nil
		}
	}
	return "", fmt.Errorf("invalid project role %q", s)
}

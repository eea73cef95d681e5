package authz

import "github.com/projaxis/authcore/internal/database/models"

// MatrixVersion identifies the permission matrix schema. Bumped whenever an
// entity, action, or role set changes so deployed services can detect drift
// against stored role names during upgrades.
const MatrixVersion = 3

// Entities and actions known to the matrix. The business layer owns the full
// catalogue; this table defines the canonical structure and the entries the
// core itself gates on.
const (
	EntityProjectSettings = "project_settings"
	EntityMember          = "member"
	EntityTimesheet       = "timesheet"
	EntityExpense         = "expense"
	EntityMilestone       = "milestone"
	EntityReport          = "report"
)

const (
	ActionView    = "view"
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionApprove = "approve"
)

type roleSet map[models.ProjectRole]struct{}

func roles(rs ...models.ProjectRole) roleSet {
	set := make(roleSet, len(rs))
	for _, r := range rs {
		set[r] = struct{}{}
	}
	return set
}

var (
	adminOnly     = roles(models.RoleAdmin)
	managerUp     = roles(models.RoleAdmin, models.RoleProjectManager)
	leadUp        = roles(models.RoleAdmin, models.RoleProjectManager, models.RoleTeamLead)
	contributorUp = roles(models.RoleAdmin, models.RoleProjectManager, models.RoleTeamLead, models.RoleContributor)
	anyMember     = roles(models.RoleAdmin, models.RoleProjectManager, models.RoleTeamLead, models.RoleContributor, models.RoleViewer)
)

// matrix is built once at init and never mutated at runtime. RoleUnassigned
// appears in no entry: unassigned means no access.
var matrix = map[string]map[string]roleSet{
	EntityProjectSettings: {
		ActionView:   anyMember,
		ActionUpdate: adminOnly,
	},
	EntityMember: {
		ActionView:   anyMember,
		ActionCreate: managerUp,
		ActionUpdate: managerUp,
		ActionDelete: managerUp,
	},
	EntityTimesheet: {
		ActionView:    anyMember,
		ActionCreate:  contributorUp,
		ActionUpdate:  contributorUp,
		ActionDelete:  leadUp,
		ActionApprove: leadUp,
	},
	EntityExpense: {
		ActionView:    anyMember,
		ActionCreate:  contributorUp,
		ActionUpdate:  contributorUp,
		ActionDelete:  managerUp,
		ActionApprove: managerUp,
	},
	EntityMilestone: {
		ActionView:   anyMember,
		ActionCreate: managerUp,
		ActionUpdate: leadUp,
		ActionDelete: managerUp,
	},
	EntityReport: {
		ActionView:   leadUp,
		ActionCreate: leadUp,
		ActionDelete: adminOnly,
	},
}

// HasPermission reports whether role may perform action on entity. Unknown
// entities and actions fail closed: the answer is false, never an error.
// This gates UI affordances only; data access always re-checks through the
// Evaluator predicates.
func HasPermission(role models.ProjectRole, entity, action string) bool {
	actions, ok := matrix[entity]
	if !ok {
		return false
	}
	set, ok := actions[action]
	if !ok {
		return false
	}
	_, ok = set[role]
	return ok
}

// Entities returns the entity names known to the matrix, for introspection
// endpoints. The returned slice is a copy.
func Entities() []string {
	out := make([]string, 0, len(matrix))
	for e := range matrix {
		out = append(out, e)
	}
	return out
}

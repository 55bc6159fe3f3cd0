// Package policy is the single place authorization decisions are made.
// Every mutating or entity-scoped operation asks Decide before touching the
// store; nothing is cached, each decision is re-derived from the entity
// state passed in.
package policy

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson"

	"taskhub/backend/models"
)

// Deny reasons. They stay distinguishable end to end so the HTTP boundary
// and the tests can tell them apart.
var (
	ErrAdminOnly     = errors.New("admin only")
	ErrNotAuthorized = errors.New("not authorized")
	ErrAccessDenied  = errors.New("access denied")
)

type Action string

const (
	ActionReadProject   Action = "project.read"
	ActionCreateProject Action = "project.create"
	ActionUpdateProject Action = "project.update"
	ActionDeleteProject Action = "project.delete"
	ActionManageMembers Action = "project.members"
	ActionCreateTask    Action = "task.create"
	ActionUpdateTask    Action = "task.update"
	ActionDeleteTask    Action = "task.delete"
)

// Target carries whatever entity state the rule for an action needs.
// Role-only gates ignore it entirely.
type Target struct {
	Project *models.Project
	Task    *models.Task
	Patch   *models.TaskPatch
}

// Decide returns nil to allow, or one of the deny reasons. Role is the
// coarse gate, ownership/assignment the fine gate.
func Decide(identity models.Identity, action Action, target Target) error {
	switch action {
	case ActionCreateProject, ActionCreateTask:
		if identity.Role != models.RoleAdmin {
			return ErrAdminOnly
		}
		return nil

	case ActionDeleteProject, ActionDeleteTask, ActionManageMembers:
		// Deliberately a role check only: any admin may delete any
		// project, matching the observed behavior even though update
		// requires the creator.
		if identity.Role != models.RoleAdmin {
			return ErrAdminOnly
		}
		return nil

	case ActionReadProject:
		p := target.Project
		if identity.Role == models.RoleAdmin {
			if p.CreatedBy == identity.ID {
				return nil
			}
			return ErrAccessDenied
		}
		if p.HasMember(identity.ID) {
			return nil
		}
		return ErrAccessDenied

	case ActionUpdateProject:
		if target.Project.CreatedBy == identity.ID {
			return nil
		}
		return ErrNotAuthorized

	case ActionUpdateTask:
		return decideTaskUpdate(identity, target)
	}

	return ErrNotAuthorized
}

// decideTaskUpdate applies the two-path task update rule. The admin path
// requires the identity to be the parent project's creator and allows any
// field. The member path requires the identity to be the current assignee
// and a status-only patch; a patch that also carries title or assignedTo is
// denied wholesale, never partially applied.
func decideTaskUpdate(identity models.Identity, target Target) error {
	if identity.Role == models.RoleAdmin {
		if target.Project.CreatedBy == identity.ID {
			return nil
		}
		return ErrNotAuthorized
	}
	if !target.Task.IsAssignedTo(identity.ID) {
		return ErrNotAuthorized
	}
	if target.Patch != nil && !target.Patch.StatusOnly() {
		return ErrNotAuthorized
	}
	return nil
}

// ProjectListFilter builds the role-scoped filter for project listings:
// admins see projects they created, members see projects they belong to.
func ProjectListFilter(identity models.Identity) bson.M {
	if identity.Role == models.RoleAdmin {
		return bson.M{"createdBy": identity.ID}
	}
	return bson.M{"members": identity.ID}
}

// TaskListFilter builds the role-scoped filter for task listings: admins
// see every task system-wide, members only tasks assigned to them.
func TaskListFilter(identity models.Identity) bson.M {
	if identity.Role == models.RoleAdmin {
		return bson.M{}
	}
	return bson.M{"assignedTo": identity.ID}
}

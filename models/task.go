package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in-progress"
	TaskDone       TaskStatus = "done"
)

func IsValidTaskStatus(s TaskStatus) bool {
	return s == TaskTodo || s == TaskInProgress || s == TaskDone
}

// Task belongs to exactly one project; ProjectID never changes after
// creation. AssignedTo is a soft reference: it is not re-validated against
// the member set after assignment, so removing a member can leave a stale
// assignment behind.
type Task struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title      string              `bson:"title" json:"title"`
	ProjectID  primitive.ObjectID  `bson:"projectId" json:"projectId"`
	AssignedTo *primitive.ObjectID `bson:"assignedTo" json:"assignedTo"`
	Status     TaskStatus          `bson:"status" json:"status"`
	CreatedAt  time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// IsAssignedTo reports whether the task is currently assigned to id.
func (t *Task) IsAssignedTo(id primitive.ObjectID) bool {
	return t.AssignedTo != nil && *t.AssignedTo == id
}

// TaskPatch carries the optional fields of a task update. A nil field means
// "leave unchanged". AssignedTo is the hex id of the new assignee; the
// empty string clears the assignment.
type TaskPatch struct {
	Title      *string     `json:"title"`
	Status     *TaskStatus `json:"status"`
	AssignedTo *string     `json:"assignedTo"`
}

// StatusOnly reports whether the patch touches nothing but the status
// field. Member updates are rejected wholesale when this is false.
func (p TaskPatch) StatusOnly() bool {
	return p.Title == nil && p.AssignedTo == nil
}

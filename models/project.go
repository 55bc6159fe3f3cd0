package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
)

func IsValidProjectStatus(s ProjectStatus) bool {
	return s == ProjectActive || s == ProjectCompleted
}

// Project is owned by the admin in CreatedBy. Members holds member-role
// user ids only; order carries no meaning and duplicates are rejected at
// the service layer.
type Project struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title       string               `bson:"title" json:"title"`
	Description string               `bson:"description" json:"description"`
	Status      ProjectStatus        `bson:"status" json:"status"`
	CreatedBy   primitive.ObjectID   `bson:"createdBy" json:"createdBy"`
	Members     []primitive.ObjectID `bson:"members" json:"members"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// HasMember reports whether id is in the member set.
func (p *Project) HasMember(id primitive.ObjectID) bool {
	for _, m := range p.Members {
		if m == id {
			return true
		}
	}
	return false
}

// ProjectPatch carries the optional fields of a project update. A nil field
// means "leave unchanged".
type ProjectPatch struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Status      *ProjectStatus `json:"status"`
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// IsValidRole reports whether r is one of the two known roles.
func IsValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleMember
}

// User is the account document. Password holds the bcrypt hash and is never
// serialized to JSON. Role is immutable once set; no role-change operation
// exists anywhere in the API.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	Role      Role               `bson:"role" json:"role"`
	AvatarURL string             `bson:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Identity is the authenticated (id, role) pair attached to every request
// by the auth middleware. It is all the policy engine ever needs from the
// auth collaborator.
type Identity struct {
	ID   primitive.ObjectID
	Role Role
}

func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Role: u.Role}
}

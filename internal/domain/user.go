package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

const (
	RoleAthlete Role = "athlete"
	RoleAdmin   Role = "admin"
)

// TrainingProfile is the personalization data handed to the plan generator.
type TrainingProfile struct {
	Goal            string   `bson:"goal,omitempty" json:"goal,omitempty"`                       // e.g. "hypertrophy", "fat loss"
	ExperienceLevel string   `bson:"experienceLevel,omitempty" json:"experienceLevel,omitempty"` // e.g. "novice"
	Equipment       []string `bson:"equipment,omitempty" json:"equipment,omitempty"`
	Notes           string   `bson:"notes,omitempty" json:"notes,omitempty"` // injuries, preferences
}

// User represents an account that owns routines and a training plan.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`    // Should be unique
	PasswordHash string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	Role         Role               `bson:"role" json:"role"`
	Profile      TrainingProfile    `bson:"profile" json:"profile"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

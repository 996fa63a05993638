package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

type User struct {
	ID               primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Email            string               `json:"email" bson:"email"`
	Password         string               `json:"-" bson:"password,omitempty"`
	Provider         string               `json:"provider" bson:"provider"`
	FullName         string               `json:"fullName,omitempty" bson:"fullName,omitempty"`
	Bio              string               `json:"bio,omitempty" bson:"bio,omitempty"`
	Image            string               `json:"image,omitempty" bson:"image,omitempty"`
	NativeLanguage   string               `json:"nativeLanguage,omitempty" bson:"nativeLanguage,omitempty"`
	LearningLanguage string               `json:"learningLanguage,omitempty" bson:"learningLanguage,omitempty"`
	Location         string               `json:"location,omitempty" bson:"location,omitempty"`
	IsDeleted        bool                 `json:"isDeleted" bson:"isDeleted"`
	IsOnBoarded      bool                 `json:"isOnBoarded" bson:"isOnBoarded"`
	Friends          []primitive.ObjectID `json:"friends" bson:"friends"`
	CreatedAt        time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// HasFriend reports whether id is already in the user's friends set.
func (u *User) HasFriend(id primitive.ObjectID) bool {
	for _, f := range u.Friends {
		if f == id {
			return true
		}
	}
	return false
}

// OnboardingProfile is the field set a user must complete before being
// recommended to others.
type OnboardingProfile struct {
	FullName         string `json:"fullName" bson:"fullName"`
	Bio              string `json:"bio" bson:"bio"`
	NativeLanguage   string `json:"nativeLanguage" bson:"nativeLanguage"`
	LearningLanguage string `json:"learningLanguage" bson:"learningLanguage"`
	Location         string `json:"location" bson:"location"`
	Image            string `json:"image,omitempty" bson:"image,omitempty"`
}

// UserSummary is the restricted projection attached to populated friend
// requests.
type UserSummary struct {
	ID               primitive.ObjectID `json:"_id"`
	FullName         string             `json:"fullName,omitempty"`
	Image            string             `json:"image,omitempty"`
	NativeLanguage   string             `json:"nativeLanguage,omitempty"`
	LearningLanguage string             `json:"learningLanguage,omitempty"`
	Location         string             `json:"location,omitempty"`
	Bio              string             `json:"bio,omitempty"`
}

// Summary projects the user down to the restricted field set.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:               u.ID,
		FullName:         u.FullName,
		Image:            u.Image,
		NativeLanguage:   u.NativeLanguage,
		LearningLanguage: u.LearningLanguage,
		Location:         u.Location,
		Bio:              u.Bio,
	}
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

type FriendRequest struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Sender    primitive.ObjectID `json:"sender" bson:"sender"`
	Receiver  primitive.ObjectID `json:"receiver" bson:"receiver"`
	Status    string             `json:"status" bson:"status"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// PopulatedRequest is a friend request with one party expanded to its
// restricted profile and the other left as a raw id.
type PopulatedRequest struct {
	ID        primitive.ObjectID `json:"_id"`
	Sender    any                `json:"sender"`
	Receiver  any                `json:"receiver"`
	Status    string             `json:"status"`
	CreatedAt time.Time          `json:"createdAt"`
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PushKeys struct {
	P256dh string `bson:"p256dh" json:"p256dh"`
	Auth   string `bson:"auth" json:"auth"`
}

// PushSubscription is one browser/device registration for Web Push.
type PushSubscription struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Endpoint  string             `bson:"endpoint" json:"endpoint"`
	Keys      PushKeys           `bson:"keys" json:"keys"`
	UserID    string             `bson:"user_id" json:"userId"`
	Roles     []UserRole         `bson:"roles" json:"roles"`
	UserAgent string             `bson:"user_agent,omitempty" json:"userAgent,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

// PushPayload is the JSON body delivered to service workers.
type PushPayload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

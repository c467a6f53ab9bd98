package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MachineStatus string

const (
	MachineActive      MachineStatus = "active"
	MachineMaintenance MachineStatus = "maintenance"
	MachineRetired     MachineStatus = "retired"
)

type Machine struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Type      string             `bson:"type" json:"type"`
	Location  string             `bson:"location,omitempty" json:"location,omitempty"`
	Status    MachineStatus      `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

// MachineUsage aggregates how often a machine appears in production sections.
type MachineUsage struct {
	Machine       string  `bson:"_id" json:"machine"`
	Entries       int     `bson:"entries" json:"entries"`
	TotalQuantity float64 `bson:"total_quantity" json:"totalQuantity"`
}

package models

import "time"

// CompensationStatus is the state of one recorded undo step.
type CompensationStatus string

const (
	CompensationPending   CompensationStatus = "pending"
	CompensationDone      CompensationStatus = "done"
	CompensationAbandoned CompensationStatus = "abandoned"
)

// CompensationEntry records one undo step of a multi-step registration.
// A failed compensation stays in the log instead of being dropped, so an
// operator can find orphaned rows left behind by a partial registration.
type CompensationEntry struct {
	ID         string             `json:"id" bson:"_id,omitempty"`
	Saga       string             `json:"saga" bson:"saga"`
	Step       string             `json:"step" bson:"step"`
	Collection string             `json:"collection" bson:"collection"`
	TargetID   string             `json:"target_id" bson:"target_id"`
	Reason     string             `json:"reason" bson:"reason"`
	Status     CompensationStatus `json:"status" bson:"status"`
	Attempts   int                `json:"attempts" bson:"attempts"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at" bson:"updated_at"`
}

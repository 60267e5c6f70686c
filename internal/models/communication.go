package models

import "time"

// CommunicationType classifies a municipal announcement.
type CommunicationType string

const (
	CommunicationNews        CommunicationType = "news"
	CommunicationInformation CommunicationType = "information"
	CommunicationAlert       CommunicationType = "alert"
	CommunicationEvent       CommunicationType = "event"
)

// IsValid reports whether the communication type is one of the known values.
func (t CommunicationType) IsValid() bool {
	switch t {
	case CommunicationNews, CommunicationInformation, CommunicationAlert, CommunicationEvent:
		return true
	}
	return false
}

// Communication is a municipal announcement, scoped to a municipality
// and independent of any citizen lifecycle.
type Communication struct {
	ID             string              `json:"id" bson:"_id,omitempty"`
	MunicipalityID string              `json:"municipality_id" bson:"municipality_id"`
	Type           CommunicationType   `json:"type" bson:"type"`
	Title          string              `json:"title" bson:"title"`
	Summary        string              `json:"summary" bson:"summary"`
	Body           string              `json:"body" bson:"body"`
	PublishedAt    time.Time           `json:"published_at" bson:"published_at"`
	ExpiresAt      *time.Time          `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
	ImageURL       *string             `json:"image_url,omitempty" bson:"image_url,omitempty"`
	VideoURL       *string             `json:"video_url,omitempty" bson:"video_url,omitempty"`
	Featured       bool                `json:"featured" bson:"featured"`
	Links          []CommunicationLink `json:"links,omitempty" bson:"-"`
	// Read is filled per-citizen when a citizen id is supplied to the feed.
	Read *bool `json:"read,omitempty" bson:"-"`
}

// CommunicationLink is a related link attached to a communication.
type CommunicationLink struct {
	ID              string `json:"id" bson:"_id,omitempty"`
	CommunicationID string `json:"communication_id" bson:"communication_id"`
	Label           string `json:"label" bson:"label"`
	URL             string `json:"url" bson:"url"`
}

// CommunicationRead is the join row tracking that a citizen has read a
// communication, keyed by (communication_id, citizen_id).
type CommunicationRead struct {
	CommunicationID string    `json:"communication_id" bson:"communication_id"`
	CitizenID       string    `json:"citizen_id" bson:"citizen_id"`
	ReadAt          time.Time `json:"read_at" bson:"read_at"`
}

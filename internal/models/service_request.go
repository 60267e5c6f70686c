package models

import "time"

// RequestType classifies a service request.
type RequestType string

const (
	RequestTypeDocumento RequestType = "documento"
	RequestTypeServico   RequestType = "servico"
	RequestTypeDenuncia  RequestType = "denuncia"
	RequestTypeSugestao  RequestType = "sugestao"
)

// RequestStatus is the lifecycle state of a service request.
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusInProgress RequestStatus = "in_progress"
	StatusCompleted  RequestStatus = "completed"
	StatusCancelled  RequestStatus = "cancelled"
)

// RequestPriority ranks a service request for triage.
type RequestPriority string

const (
	PriorityBaixa   RequestPriority = "baixa"
	PriorityMedia   RequestPriority = "media"
	PriorityAlta    RequestPriority = "alta"
	PriorityUrgente RequestPriority = "urgente"
)

// IsValid reports whether the request type is one of the known values.
func (t RequestType) IsValid() bool {
	switch t {
	case RequestTypeDocumento, RequestTypeServico, RequestTypeDenuncia, RequestTypeSugestao:
		return true
	}
	return false
}

// IsValid reports whether the status is one of the known values.
func (s RequestStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsValid reports whether the priority is one of the known values.
func (p RequestPriority) IsValid() bool {
	switch p {
	case PriorityBaixa, PriorityMedia, PriorityAlta, PriorityUrgente:
		return true
	}
	return false
}

// Service is a catalog entry describing a municipal service a request
// can be opened against.
type Service struct {
	ID       string `json:"id" bson:"_id,omitempty"`
	Name     string `json:"name" bson:"name"`
	Category string `json:"category" bson:"category"`
	Active   bool   `json:"active" bson:"active"`
}

// TimelineEvent is one status-change entry in a request's history. The
// timeline is append-only and strictly chronological.
type TimelineEvent struct {
	Date        time.Time `json:"date" bson:"date"`
	Status      string    `json:"status" bson:"status"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Responsible *string   `json:"responsible,omitempty" bson:"responsible,omitempty"`
	Notes       *string   `json:"notes,omitempty" bson:"notes,omitempty"`
	// Terminal marks the last entry when rendered; the client draws a
	// connector between consecutive entries except after this one.
	Terminal bool `json:"terminal" bson:"-"`
}

// ServiceRequest is a citizen's request for a municipal service,
// tracked by a human-facing protocol distinct from its internal id.
type ServiceRequest struct {
	ID          string          `json:"id" bson:"_id,omitempty"`
	CitizenID   string          `json:"citizen_id" bson:"citizen_id"`
	ServiceID   string          `json:"service_id" bson:"service_id"`
	ServiceName string          `json:"service_name,omitempty" bson:"service_name,omitempty"`
	RequestType RequestType     `json:"request_type" bson:"request_type"`
	Status      RequestStatus   `json:"status" bson:"status"`
	Protocol    string          `json:"protocol" bson:"protocol"`
	Priority    RequestPriority `json:"priority" bson:"priority"`
	Address     string          `json:"address,omitempty" bson:"address,omitempty"`
	Description string          `json:"description,omitempty" bson:"description,omitempty"`
	Timeline    []TimelineEvent `json:"timeline" bson:"timeline"`
	CreatedAt   time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" bson:"updated_at"`
}

// RequestInput is the payload for opening a new service request.
type RequestInput struct {
	ServiceID   string          `json:"service_id" binding:"required"`
	RequestType RequestType     `json:"request_type" binding:"required"`
	Priority    RequestPriority `json:"priority"`
	Address     string          `json:"address"`
	Description string          `json:"description"`
}

// StatusUpdateInput is the payload for moving a request to a new status.
type StatusUpdateInput struct {
	Status      RequestStatus `json:"status" binding:"required"`
	Description string        `json:"description"`
	Responsible *string       `json:"responsible,omitempty"`
	Notes       *string       `json:"notes,omitempty"`
}

package models

import "time"

// Citizen represents a citizen profile record, distinct from the
// authentication identity that owns it. CPF and phone are stored
// digits-only; email and CPF are immutable after registration.
type Citizen struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	Name      string    `json:"name" bson:"name"`
	Email     string    `json:"email" bson:"email"`
	CPF       string    `json:"cpf" bson:"cpf"`
	BirthDate time.Time `json:"birth_date" bson:"birth_date"`
	Phone     string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Active    bool      `json:"active" bson:"active"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// CitizenAddress belongs to exactly one citizen and references one
// municipality. Soft-deleted via active=false.
type CitizenAddress struct {
	ID             string    `json:"id" bson:"_id,omitempty"`
	CitizenID      string    `json:"citizen_id" bson:"citizen_id"`
	MunicipalityID string    `json:"municipality_id" bson:"municipality_id"`
	Street         string    `json:"street" bson:"street"`
	Number         string    `json:"number" bson:"number"`
	Complement     *string   `json:"complement,omitempty" bson:"complement,omitempty"`
	Neighborhood   string    `json:"neighborhood" bson:"neighborhood"`
	PostalCode     string    `json:"postal_code" bson:"postal_code"`
	IsPrimary      bool      `json:"is_primary" bson:"is_primary"`
	Active         bool      `json:"active" bson:"active"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
}

// RegistrationInput is the full registration form submitted by a new
// citizen. BirthDate arrives as DD/MM/YYYY from the mobile client.
type RegistrationInput struct {
	Name         string  `json:"name" binding:"required"`
	Email        string  `json:"email" binding:"required,email"`
	Password     string  `json:"password" binding:"required,min=8"`
	CPF          string  `json:"cpf" binding:"required"`
	BirthDate    string  `json:"birth_date" binding:"required"`
	Phone        string  `json:"phone"`
	Street       string  `json:"street" binding:"required"`
	Number       string  `json:"number" binding:"required"`
	Complement   *string `json:"complement,omitempty"`
	Neighborhood string  `json:"neighborhood" binding:"required"`
	PostalCode   string  `json:"postal_code" binding:"required"`
	State        string  `json:"state" binding:"required"`
	City         string  `json:"city" binding:"required"`
}

// CitizenUpdate carries the profile fields a citizen may edit after
// registration. Email and CPF are locked after registration; submitting
// either is rejected with ErrImmutableField instead of silently ignored.
type CitizenUpdate struct {
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Email *string `json:"email,omitempty"`
	CPF   *string `json:"cpf,omitempty"`
}

// AddressInput is the payload for adding or editing a citizen address.
type AddressInput struct {
	Street       string  `json:"street" binding:"required"`
	Number       string  `json:"number" binding:"required"`
	Complement   *string `json:"complement,omitempty"`
	Neighborhood string  `json:"neighborhood" binding:"required"`
	PostalCode   string  `json:"postal_code" binding:"required"`
	State        string  `json:"state" binding:"required"`
	City         string  `json:"city" binding:"required"`
	IsPrimary    bool    `json:"is_primary"`
}

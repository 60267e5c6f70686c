package models

import "errors"

// Error constants shared by the data-access services. Read paths return
// ErrNotFound instead of a bare sentinel value so callers can tell
// "missing" apart from a backend failure.
var (
	ErrNotFound             = errors.New("record not found")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrMunicipalityNotFound = errors.New("municipality not found")
	ErrImmutableField       = errors.New("field cannot be changed after registration")
	ErrInvalidCPF           = errors.New("invalid CPF")
	ErrInvalidBirthDate     = errors.New("invalid birth date, expected DD/MM/YYYY")
	ErrAddressNotFound      = errors.New("address not found")
	ErrCitizenInactive      = errors.New("citizen is inactive")
	ErrInvalidRequestType   = errors.New("invalid service request type")
	ErrInvalidRequestStatus = errors.New("invalid service request status")
	ErrInvalidPriority      = errors.New("invalid priority")
	ErrInvalidCommunication = errors.New("invalid communication type")
)

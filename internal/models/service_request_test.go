package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestTypeIsValid(t *testing.T) {
	valid := []RequestType{
		RequestTypeDocumento,
		RequestTypeServico,
		RequestTypeDenuncia,
		RequestTypeSugestao,
	}
	for _, requestType := range valid {
		t.Run("Valid: "+string(requestType), func(t *testing.T) {
			assert.True(t, requestType.IsValid())
		})
	}

	invalid := []RequestType{"", "reclamacao", "DOCUMENTO", "documento "}
	for _, requestType := range invalid {
		t.Run("Invalid: "+string(requestType), func(t *testing.T) {
			assert.False(t, requestType.IsValid())
		})
	}
}

func TestRequestStatusIsValid(t *testing.T) {
	valid := []RequestStatus{
		StatusPending,
		StatusInProgress,
		StatusCompleted,
		StatusCancelled,
	}
	for _, status := range valid {
		t.Run("Valid: "+string(status), func(t *testing.T) {
			assert.True(t, status.IsValid())
		})
	}

	invalid := []RequestStatus{"", "done", "PENDING", "in-progress"}
	for _, status := range invalid {
		t.Run("Invalid: "+string(status), func(t *testing.T) {
			assert.False(t, status.IsValid())
		})
	}
}

func TestRequestPriorityIsValid(t *testing.T) {
	valid := []RequestPriority{
		PriorityBaixa,
		PriorityMedia,
		PriorityAlta,
		PriorityUrgente,
	}
	for _, priority := range valid {
		t.Run("Valid: "+string(priority), func(t *testing.T) {
			assert.True(t, priority.IsValid())
		})
	}

	invalid := []RequestPriority{"", "normal", "ALTA"}
	for _, priority := range invalid {
		t.Run("Invalid: "+string(priority), func(t *testing.T) {
			assert.False(t, priority.IsValid())
		})
	}
}

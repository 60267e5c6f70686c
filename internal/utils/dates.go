package utils

import (
	"fmt"
	"time"
)

// ParseBirthDate converts a DD/MM/YYYY birth date, as submitted by the
// mobile registration form, into a UTC instant.
func ParseBirthDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation("02/01/2006", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse birth date %q: %w", s, err)
	}
	return t, nil
}

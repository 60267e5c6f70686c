package utils

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// PhoneComponents represents the parsed components of a phone number.
type PhoneComponents struct {
	DDI   string `json:"ddi"`
	DDD   string `json:"ddd"`
	Valor string `json:"valor"`
	Full  string `json:"full"`
}

// ParsePhoneNumber parses a phone number string and returns its components.
func ParsePhoneNumber(phoneString string) (*PhoneComponents, error) {
	cleanPhone := strings.TrimSpace(phoneString)

	// If it doesn't start with +, try to add it
	if !strings.HasPrefix(cleanPhone, "+") {
		if strings.HasPrefix(NormalizeDigits(cleanPhone), "55") && len(NormalizeDigits(cleanPhone)) > 11 {
			cleanPhone = "+" + NormalizeDigits(cleanPhone)
		} else {
			// Assume it's a Brazilian number
			cleanPhone = "+55" + NormalizeDigits(cleanPhone)
		}
	}

	num, err := phonenumbers.Parse(cleanPhone, "")
	if err != nil {
		return nil, fmt.Errorf("failed to parse phone number: %w", err)
	}

	if !phonenumbers.IsValidNumber(num) {
		return nil, fmt.Errorf("invalid phone number: %s", phoneString)
	}

	countryCode := num.GetCountryCode()
	nationalNumber := phonenumbers.GetNationalSignificantNumber(num)

	components := &PhoneComponents{
		DDI:  fmt.Sprintf("%d", countryCode),
		Full: phonenumbers.Format(num, phonenumbers.E164),
	}

	if countryCode == 55 && len(nationalNumber) >= 2 {
		components.DDD = nationalNumber[:2]
		components.Valor = nationalNumber[2:]
	} else {
		components.Valor = nationalNumber
	}

	return components, nil
}

// NormalizePhone reduces a formatted phone string to the digits stored
// on the citizen record (DDD plus number, no country code). Input that
// libphonenumber rejects falls back to a plain digit strip, so values
// like "(11) 91234-5678" always become "11912345678".
func NormalizePhone(phoneString string) string {
	if strings.TrimSpace(phoneString) == "" {
		return ""
	}
	components, err := ParsePhoneNumber(phoneString)
	if err != nil {
		return NormalizeDigits(phoneString)
	}
	return components.DDD + components.Valor
}

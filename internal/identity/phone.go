package identity

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "US"

// NormalizePhone formats a phone number to E.164. Input that does not parse
// as a valid number is returned trimmed and otherwise untouched.
func NormalizePhone(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}
	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}

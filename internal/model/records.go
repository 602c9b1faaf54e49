package model

import "strings"

// Identity holds the prospect's self-reported contact details. Each field is
// independently optional.
type Identity struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Empty reports whether all identity fields are blank after trimming.
func (i Identity) Empty() bool {
	return strings.TrimSpace(i.Name) == "" &&
		strings.TrimSpace(i.Email) == "" &&
		strings.TrimSpace(i.Phone) == ""
}

// UTMKeys are the first-touch attribution parameters persisted to the
// dedicated UTM side channels in addition to the full attribution record.
var UTMKeys = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content"}

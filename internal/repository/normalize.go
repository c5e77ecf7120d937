package repository

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizeEmail lower-cases an address. Applied on every write and every
// lookup so case variants can never produce duplicate accounts.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone canonicalizes a phone number to E.164 ("+<cc><national>").
// Bare national numbers ("9876543210") are parsed against the configured
// default region, so both the bare and the prefixed form resolve to the
// same stored record.
func NormalizePhone(raw, defaultRegion string) (string, error) {
	num, err := phonenumbers.Parse(strings.TrimSpace(raw), defaultRegion)
	if err != nil {
		return "", ErrInvalidPhone
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

package domain

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidGender = errors.New(`domain: gender must be "male", "female" or "other"`)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// ParseGender lowercases and trims s before matching.
func ParseGender(s string) (Gender, error) {
	switch g := Gender(strings.ToLower(strings.TrimSpace(s))); g {
	case GenderMale, GenderFemale, GenderOther:
		return g, nil
	}
	return "", ErrInvalidGender
}

// Profile is the per-user body data the dashboard is computed from. It is
// created on first authenticated use.
type Profile struct {
	UserID    string
	Age       *int
	Gender    *Gender
	HeightCM  *float64
	WeightKG  *float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

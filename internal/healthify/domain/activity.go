package domain

import (
	"errors"
	"time"
)

var ErrInvalidActivityKind = errors.New("domain: unknown activity kind")

// ActivityKind names a device-sourced quantity.
type ActivityKind string

const (
	ActivitySteps            ActivityKind = "steps"
	ActivityActiveEnergyKcal ActivityKind = "active_energy_kcal"
)

func ParseActivityKind(s string) (ActivityKind, error) {
	switch k := ActivityKind(s); k {
	case ActivitySteps, ActivityActiveEnergyKcal:
		return k, nil
	}
	return "", ErrInvalidActivityKind
}

// ActivitySample is one reading pushed from the user's device.
type ActivitySample struct {
	ID         string // ULID
	UserID     string
	Kind       ActivityKind
	Value      float64
	RecordedAt time.Time
}

// DeviceAuthorization records whether the user allowed device data to be read.
type DeviceAuthorization struct {
	UserID     string
	Authorized bool
	UpdatedAt  time.Time
}

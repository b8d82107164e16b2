package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/healthify/internal/healthify/domain"
	"github.com/aussiebroadwan/healthify/internal/healthify/store"
)

var ErrInvalidInput = errors.New("invalid_input")

const dayLayout = "2006-01-02"

// Clock pins "now" and the user's time zone. The zero value uses time.Now
// and time.Local.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

func (c Clock) now() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}

// Today returns the current local day as YYYY-MM-DD.
func (c Clock) Today() string { return c.now().Format(dayLayout) }

// StartOfDay returns local midnight of the current day.
func (c Clock) StartOfDay() time.Time {
	t := c.now()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EnsureProfile creates an empty profile for userID unless one exists. It
// stands in for the users row the sign-up flow inserts.
func EnsureProfile(ctx context.Context, s store.Store, userID string) error {
	_, err := s.Profiles().GetProfile(ctx, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	err = s.Profiles().CreateProfile(ctx, domain.Profile{UserID: userID})
	if errors.Is(err, store.ErrAlreadyExists) {
		return nil
	}
	return err
}

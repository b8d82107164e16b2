package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aussiebroadwan/healthify/internal/healthify/domain"
	"github.com/aussiebroadwan/healthify/internal/healthify/store"
	"github.com/aussiebroadwan/healthify/pkg/idx"
)

// ActivityStats are today's device totals. Available is false when the user
// has not authorized device data; the totals are then zero and shown as "-".
type ActivityStats struct {
	Available        bool     `json:"available"`
	Steps            *int64   `json:"steps"`
	ActiveEnergyKcal *float64 `json:"active_energy_kcal"`
}

// Sample is one incoming device reading.
type Sample struct {
	Kind       string
	Value      float64
	RecordedAt time.Time
}

// ActivityService is the device health data source: it ingests samples and
// reports cumulative sums since local midnight.
type ActivityService struct {
	Store store.Store
	Clock Clock
}

// SetAuthorization records the user's answer to the device data prompt.
func (s *ActivityService) SetAuthorization(ctx context.Context, userID string, authorized bool) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := EnsureProfile(ctx, tx, userID); err != nil {
			return err
		}
		return tx.Activity().SetAuthorization(ctx, domain.DeviceAuthorization{
			UserID:     userID,
			Authorized: authorized,
			UpdatedAt:  s.Clock.now(),
		})
	})
}

// Authorized reports whether the user allowed device data.
func (s *ActivityService) Authorized(ctx context.Context, userID string) (bool, error) {
	a, err := s.Store.Activity().GetAuthorization(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return a.Authorized, nil
}

// Ingest stores samples. It refuses them until the user has authorized
// device data. Returns the number stored.
func (s *ActivityService) Ingest(ctx context.Context, userID string, samples []Sample) (int, error) {
	ok, err := s.Authorized(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrDeviceNotAuthorized
	}

	parsed := make([]domain.ActivitySample, 0, len(samples))
	for i, in := range samples {
		kind, err := domain.ParseActivityKind(in.Kind)
		if err != nil {
			return 0, fmt.Errorf("%w: sample %d: %v", ErrInvalidInput, i, err)
		}
		if in.Value < 0 || math.IsNaN(in.Value) || math.IsInf(in.Value, 0) {
			return 0, fmt.Errorf("%w: sample %d: value must be a non-negative number", ErrInvalidInput, i)
		}
		at := in.RecordedAt
		if at.IsZero() {
			at = s.Clock.now()
		}
		parsed = append(parsed, domain.ActivitySample{
			ID:         idx.NewAt(at).String(),
			UserID:     userID,
			Kind:       kind,
			Value:      in.Value,
			RecordedAt: at,
		})
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, sample := range parsed {
			if err := tx.Activity().AddSample(ctx, sample); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(parsed), nil
}

// Stats returns today's cumulative steps and active energy.
func (s *ActivityService) Stats(ctx context.Context, userID string) (ActivityStats, error) {
	ok, err := s.Authorized(ctx, userID)
	if err != nil || !ok {
		return ActivityStats{}, err
	}

	since := s.Clock.StartOfDay()

	steps, err := s.Store.Activity().SumSince(ctx, userID, domain.ActivitySteps, since)
	if err != nil {
		return ActivityStats{}, err
	}
	kcal, err := s.Store.Activity().SumSince(ctx, userID, domain.ActivityActiveEnergyKcal, since)
	if err != nil {
		return ActivityStats{}, err
	}

	stepCount := int64(math.Round(steps))
	kcal = math.Round(kcal)
	return ActivityStats{Available: true, Steps: &stepCount, ActiveEnergyKcal: &kcal}, nil
}

// ErrDeviceNotAuthorized is returned by Ingest before the user opted in.
var ErrDeviceNotAuthorized = errors.New("device_not_authorized")

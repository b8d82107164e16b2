package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/healthify/internal/healthify/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Sub-repositories keep concerns
// apart; a Tx exposes the same repositories scoped to one transaction.
type Store interface {
	KV() KV
	Profiles() Profiles
	Meals() Meals
	Water() Water
	Weights() Weights
	Activity() Activity

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller MUST call Commit() or
	// Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when it returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// KV is a flat byte store. Values are opaque to it; see SecureKV.
type KV interface {
	// Get returns ErrNotFound when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put inserts or replaces the value under key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

type Profiles interface {
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)

	// CreateProfile returns ErrAlreadyExists when the user already has one.
	CreateProfile(ctx context.Context, p domain.Profile) error

	// UpdateProfile overwrites age, gender, height and weight and bumps updated_at.
	UpdateProfile(ctx context.Context, p domain.Profile) error
}

type Meals interface {
	CreateMeal(ctx context.Context, m domain.Meal) error

	// ListMealsByDay returns the user's meals for day in insertion order.
	ListMealsByDay(ctx context.Context, userID, day string) ([]domain.Meal, error)

	DeleteMeal(ctx context.Context, userID, id string) error
}

type Water interface {
	// GetWaterIntake returns ErrNotFound when nothing was logged that day.
	GetWaterIntake(ctx context.Context, userID, day string) (domain.WaterIntake, error)

	// SetWaterIntake upserts the day's total.
	SetWaterIntake(ctx context.Context, w domain.WaterIntake) error
}

type Weights interface {
	AddWeightEntry(ctx context.Context, e domain.WeightEntry) error

	// ListWeightEntries returns the user's history, oldest first.
	ListWeightEntries(ctx context.Context, userID string) ([]domain.WeightEntry, error)
}

type Activity interface {
	AddSample(ctx context.Context, s domain.ActivitySample) error

	// SumSince totals the user's samples of kind recorded at or after since.
	SumSince(ctx context.Context, userID string, kind domain.ActivityKind, since time.Time) (float64, error)

	// DeleteSamplesBefore is housekeeping.
	DeleteSamplesBefore(ctx context.Context, before time.Time) (int64, error)

	// GetAuthorization returns ErrNotFound when the user never answered.
	GetAuthorization(ctx context.Context, userID string) (domain.DeviceAuthorization, error)

	SetAuthorization(ctx context.Context, a domain.DeviceAuthorization) error
}

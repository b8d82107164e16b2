package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/healthify/internal/healthify/domain"
	"github.com/aussiebroadwan/healthify/internal/healthify/service"
	"github.com/aussiebroadwan/healthify/internal/healthify/store"
	"github.com/aussiebroadwan/healthify/internal/healthify/store/drivers/sqlite"
	"github.com/aussiebroadwan/healthify/pkg/idx"
	"github.com/aussiebroadwan/healthify/pkg/slogx"
)

var fixedNow = time.Date(2024, 6, 28, 15, 0, 0, 0, time.UTC)

func fixedClock() service.Clock {
	return service.Clock{Now: func() time.Time { return fixedNow }, Location: time.UTC}
}

func newStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func newServices(t *testing.T) (*service.DashboardService, *service.ActivityService, store.Store) {
	t.Helper()
	s := newStore(t)
	act := &service.ActivityService{Store: s, Clock: fixedClock()}
	dash := &service.DashboardService{Store: s, Clock: fixedClock(), Activity: act}
	return dash, act, s
}

func TestClock(t *testing.T) {
	c := service.Clock{
		Now:      func() time.Time { return time.Date(2024, 6, 28, 23, 30, 0, 0, time.UTC) },
		Location: time.FixedZone("AEST", 10*60*60),
	}
	require.Equal(t, "2024-06-29", c.Today())
	require.Equal(t, time.Date(2024, 6, 29, 0, 0, 0, 0, c.Location), c.StartOfDay())
}

func TestEnsureProfile(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, service.EnsureProfile(ctx, s, "u1"))
	require.NoError(t, service.EnsureProfile(ctx, s, "u1"))

	_, err := s.Profiles().GetProfile(ctx, "u1")
	require.NoError(t, err)
}

func TestDashboard_NewUser(t *testing.T) {
	dash, _, _ := newServices(t)

	d, err := dash.Dashboard(context.Background(), "u1")
	require.NoError(t, err)

	require.Equal(t, "2024-06-28", d.Day)
	require.False(t, d.Profile.Complete)
	require.Equal(t, 0, d.Calories.Taken)
	require.Equal(t, service.DefaultCalorieGoal, d.Calories.Goal)
	require.Len(t, d.Calories.Sections, 5)
	require.Equal(t, domain.MealMorningSnacks, d.Calories.Sections[0].Section)
	require.Equal(t, domain.MealDinner, d.Calories.Sections[4].Section)

	require.Equal(t, 0, d.Water.AmountML)
	require.Equal(t, service.DefaultWaterGoalML, d.Water.GoalML)
	require.Equal(t, []int{250, 500}, d.Water.QuickAdd)

	require.Nil(t, d.Weight.CurrentKG)
	require.Nil(t, d.Weight.DiffKG)
	require.Nil(t, d.BMI)
	require.False(t, d.Activity.Available)
	require.Nil(t, d.Activity.Steps)
}

func TestDashboard_Calories(t *testing.T) {
	ctx := context.Background()
	dash, _, s := newServices(t)

	foods := []struct {
		section string
		name    string
		kcal    int
	}{
		{"morningSnacks", "Almonds", 80},
		{"breakfast", "Oatmeal", 150},
		{"breakfast", "Banana", 90},
		{"lunch", "Chicken Salad", 350},
		{"eveningSnacks", "Apple", 80},
		{"dinner", "Grilled Fish", 220},
	}
	for _, f := range foods {
		_, err := dash.AddMeal(ctx, "u1", f.section, f.name, f.kcal)
		require.NoError(t, err)
	}

	// Yesterday does not count.
	require.NoError(t, s.Meals().CreateMeal(ctx, domain.Meal{
		ID: idx.New().String(), UserID: "u1", Section: domain.MealLunch, Name: "Pizza", Calories: 900, Day: "2024-06-27",
	}))

	d, err := dash.Dashboard(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 970, d.Calories.Taken)
	require.InDelta(t, 0.485, d.Calories.Progress, 1e-9)
	require.Equal(t, 240, d.Calories.Sections[1].Calories)
	require.Len(t, d.Calories.Sections[1].Items, 2)
	require.Equal(t, "Oatmeal", d.Calories.Sections[1].Items[0].Name)

	t.Run("progress caps at one", func(t *testing.T) {
		_, err := dash.AddMeal(ctx, "u1", "dinner", "Feast", 5000)
		require.NoError(t, err)
		d, err := dash.Dashboard(ctx, "u1")
		require.NoError(t, err)
		require.Equal(t, 5970, d.Calories.Taken)
		require.InDelta(t, 1.0, d.Calories.Progress, 1e-9)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := dash.AddMeal(ctx, "u1", "brunch", "Eggs", 100)
		require.ErrorIs(t, err, service.ErrInvalidInput)
		_, err = dash.AddMeal(ctx, "u1", "lunch", "  ", 100)
		require.ErrorIs(t, err, service.ErrInvalidInput)
		_, err = dash.AddMeal(ctx, "u1", "lunch", "Air", -1)
		require.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("delete", func(t *testing.T) {
		m, err := dash.AddMeal(ctx, "u1", "lunch", "Soup", 100)
		require.NoError(t, err)
		require.NoError(t, dash.DeleteMeal(ctx, "u1", m.ID))
		require.ErrorIs(t, dash.DeleteMeal(ctx, "u1", m.ID), store.ErrNotFound)
	})
}

func TestDashboard_AddWater(t *testing.T) {
	ctx := context.Background()
	dash, _, _ := newServices(t)

	total, err := dash.AddWater(ctx, "u1", 250)
	require.NoError(t, err)
	require.Equal(t, 250, total)

	total, err = dash.AddWater(ctx, "u1", 500)
	require.NoError(t, err)
	require.Equal(t, 750, total)

	total, err = dash.AddWater(ctx, "u1", 5000)
	require.NoError(t, err)
	require.Equal(t, service.DefaultWaterGoalML, total)

	_, err = dash.AddWater(ctx, "u1", 0)
	require.ErrorIs(t, err, service.ErrInvalidInput)

	d, err := dash.Dashboard(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 2500, d.Water.AmountML)
	require.InDelta(t, 1.0, d.Water.Progress, 1e-9)
}

func TestDashboard_CustomGoals(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	dash := &service.DashboardService{Store: s, Clock: fixedClock(), Goals: service.Goals{CaloriesKcal: 1800, WaterML: 1000}}

	total, err := dash.AddWater(ctx, "u1", 1500)
	require.NoError(t, err)
	require.Equal(t, 1000, total)

	d, err := dash.Dashboard(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1800, d.Calories.Goal)
	require.False(t, d.Activity.Available)
}

func TestDashboard_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	dash, _, _ := newServices(t)

	_, err := dash.UpdateProfile(ctx, "u1", service.ProfileUpdate{Age: 30, Gender: "robot", HeightCM: 175, WeightKG: 72})
	require.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = dash.UpdateProfile(ctx, "u1", service.ProfileUpdate{Age: 30, Gender: "male", HeightCM: 0, WeightKG: 72})
	require.ErrorIs(t, err, service.ErrInvalidInput)

	p, err := dash.UpdateProfile(ctx, "u1", service.ProfileUpdate{Age: 30, Gender: " Male ", HeightCM: 175, WeightKG: 72})
	require.NoError(t, err)
	require.Equal(t, domain.GenderMale, *p.Gender)

	_, err = dash.UpdateProfile(ctx, "u1", service.ProfileUpdate{Age: 30, Gender: "male", HeightCM: 175, WeightKG: 70})
	require.NoError(t, err)

	d, err := dash.Dashboard(ctx, "u1")
	require.NoError(t, err)
	require.True(t, d.Profile.Complete)
	require.Equal(t, "male", *d.Profile.Gender)

	require.NotNil(t, d.BMI)
	require.InDelta(t, 22.9, d.BMI.Value, 1e-9)
	require.Equal(t, "Normal", d.BMI.Category)

	require.InDelta(t, 70, *d.Weight.CurrentKG, 1e-9)
	require.InDelta(t, -2, *d.Weight.DiffKG, 1e-9)
	require.Len(t, d.Weight.History, 2)
	require.Equal(t, "2024-06-28", d.Weight.History[0].Date)
}

func TestComputeBMI(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name     string
		height   *float64
		weight   *float64
		want     float64
		category string
	}{
		{"underweight", f(180), f(55), 17.0, "Underweight"},
		{"normal lower bound", f(100), f(18.5), 18.5, "Normal"},
		{"overweight lower bound", f(100), f(25), 25.0, "Overweight"},
		{"obese lower bound", f(100), f(30), 30.0, "Obese"},
		{"rounded", f(175), f(72), 23.5, "Normal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bmi := service.ComputeBMI(tt.height, tt.weight)
			require.NotNil(t, bmi)
			require.InDelta(t, tt.want, bmi.Value, 1e-9)
			require.Equal(t, tt.category, bmi.Category)
		})
	}

	require.Nil(t, service.ComputeBMI(nil, f(70)))
	require.Nil(t, service.ComputeBMI(f(170), nil))
	require.Nil(t, service.ComputeBMI(f(0), f(70)))
}

func TestActivity(t *testing.T) {
	ctx := context.Background()
	_, act, _ := newServices(t)

	stats, err := act.Stats(ctx, "u1")
	require.NoError(t, err)
	require.False(t, stats.Available)

	_, err = act.Ingest(ctx, "u1", []service.Sample{{Kind: "steps", Value: 10}})
	require.ErrorIs(t, err, service.ErrDeviceNotAuthorized)

	require.NoError(t, act.SetAuthorization(ctx, "u1", true))

	n, err := act.Ingest(ctx, "u1", []service.Sample{
		{Kind: "steps", Value: 5000, RecordedAt: fixedNow.Add(-20 * time.Hour)}, // yesterday
		{Kind: "steps", Value: 3000, RecordedAt: fixedNow.Add(-3 * time.Hour)},
		{Kind: "steps", Value: 1234},
		{Kind: "active_energy_kcal", Value: 120.4, RecordedAt: fixedNow.Add(-time.Hour)},
		{Kind: "active_energy_kcal", Value: 80.3},
	})
	require.NoError(t, err)
	require.Equal(t, 5, n)

	stats, err = act.Stats(ctx, "u1")
	require.NoError(t, err)
	require.True(t, stats.Available)
	require.EqualValues(t, 4234, *stats.Steps)
	require.InDelta(t, 201, *stats.ActiveEnergyKcal, 1e-9)

	t.Run("bad samples are rejected as a batch", func(t *testing.T) {
		_, err := act.Ingest(ctx, "u1", []service.Sample{
			{Kind: "steps", Value: 1},
			{Kind: "sleep", Value: 8},
		})
		require.ErrorIs(t, err, service.ErrInvalidInput)

		_, err = act.Ingest(ctx, "u1", []service.Sample{{Kind: "steps", Value: -1}})
		require.ErrorIs(t, err, service.ErrInvalidInput)

		again, err := act.Stats(ctx, "u1")
		require.NoError(t, err)
		require.EqualValues(t, 4234, *again.Steps)
	})

	t.Run("revoking hides stats", func(t *testing.T) {
		require.NoError(t, act.SetAuthorization(ctx, "u1", false))
		stats, err := act.Stats(ctx, "u1")
		require.NoError(t, err)
		require.False(t, stats.Available)
	})
}

func TestHousekeeping_Cleanup(t *testing.T) {
	ctx := context.Background()
	_, act, s := newServices(t)
	require.NoError(t, act.SetAuthorization(ctx, "u1", true))

	_, err := act.Ingest(ctx, "u1", []service.Sample{
		{Kind: "steps", Value: 1, RecordedAt: fixedNow.Add(-48 * time.Hour)},
		{Kind: "steps", Value: 2, RecordedAt: fixedNow},
	})
	require.NoError(t, err)

	hk := service.NewHousekeepingService(s, slogx.Discard(), time.Hour, 24*time.Hour)
	hk.Clock = fixedClock()
	hk.Cleanup(ctx)

	total, err := s.Activity().SumSince(ctx, "u1", domain.ActivitySteps, time.Time{})
	require.NoError(t, err)
	require.InDelta(t, 2, total, 1e-9)
}

func TestHousekeeping_StartStop(t *testing.T) {
	hk := service.NewHousekeepingService(newStore(t), slogx.Discard(), 10*time.Millisecond, 0)
	require.Equal(t, service.DefaultSampleRetention, hk.Retention)

	hk.Start()
	time.Sleep(30 * time.Millisecond)
	hk.Stop()
}

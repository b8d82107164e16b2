package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/aussiebroadwan/healthify/internal/healthify/domain"
	"github.com/aussiebroadwan/healthify/internal/healthify/store"
	"github.com/aussiebroadwan/healthify/pkg/idx"
)

const (
	DefaultCalorieGoal = 2000 // kcal
	DefaultWaterGoalML = 2500
)

// WaterQuickAddML are the amounts offered as one-tap water buttons.
var WaterQuickAddML = []int{250, 500}

type Goals struct {
	CaloriesKcal int
	WaterML      int
}

func (g Goals) withDefaults() Goals {
	if g.CaloriesKcal <= 0 {
		g.CaloriesKcal = DefaultCalorieGoal
	}
	if g.WaterML <= 0 {
		g.WaterML = DefaultWaterGoalML
	}
	return g
}

type MealSectionSummary struct {
	Section  domain.MealSection `json:"section"`
	Calories int                `json:"calories"`
	Items    []MealItem         `json:"items"`
}

type MealItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Calories int    `json:"calories"`
}

type CalorieSummary struct {
	Taken    int                  `json:"taken"`
	Goal     int                  `json:"goal"`
	Progress float64              `json:"progress"`
	Sections []MealSectionSummary `json:"sections"`
}

type WaterSummary struct {
	AmountML int     `json:"amount_ml"`
	GoalML   int     `json:"goal_ml"`
	Progress float64 `json:"progress"`
	QuickAdd []int   `json:"quick_add_ml"`
}

type WeightPoint struct {
	Date     string  `json:"date"`
	WeightKG float64 `json:"weight_kg"`
}

type WeightSummary struct {
	CurrentKG *float64      `json:"current_kg"`
	DiffKG    *float64      `json:"diff_kg"`
	History   []WeightPoint `json:"history"`
}

type BMI struct {
	Value    float64 `json:"value"`
	Category string  `json:"category"`
}

type ProfileView struct {
	Age      *int     `json:"age"`
	Gender   *string  `json:"gender"`
	HeightCM *float64 `json:"height_cm"`
	WeightKG *float64 `json:"weight_kg"`
	Complete bool     `json:"complete"`
}

type Dashboard struct {
	Day      string         `json:"day"`
	Profile  ProfileView    `json:"profile"`
	Calories CalorieSummary `json:"calories"`
	Water    WaterSummary   `json:"water"`
	Weight   WeightSummary  `json:"weight"`
	BMI      *BMI           `json:"bmi"`
	Activity ActivityStats  `json:"activity"`
}

// ProfileUpdate is the body of a profile edit. All four fields are required.
type ProfileUpdate struct {
	Age      int
	Gender   string
	HeightCM float64
	WeightKG float64
}

// DashboardService computes the home screen and applies its edits.
type DashboardService struct {
	Store    store.Store
	Goals    Goals
	Clock    Clock
	Activity *ActivityService
}

// Dashboard assembles today's view for userID.
func (s *DashboardService) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	if err := EnsureProfile(ctx, s.Store, userID); err != nil {
		return Dashboard{}, err
	}

	goals := s.Goals.withDefaults()
	day := s.Clock.Today()

	profile, err := s.Store.Profiles().GetProfile(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}

	meals, err := s.Store.Meals().ListMealsByDay(ctx, userID, day)
	if err != nil {
		return Dashboard{}, err
	}

	water := 0
	intake, err := s.Store.Water().GetWaterIntake(ctx, userID, day)
	switch {
	case err == nil:
		water = intake.AmountML
	case !errors.Is(err, store.ErrNotFound):
		return Dashboard{}, err
	}

	history, err := s.Store.Weights().ListWeightEntries(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		Day:      day,
		Profile:  ViewProfile(profile),
		Calories: summarizeCalories(meals, goals.CaloriesKcal),
		Water: WaterSummary{
			AmountML: water,
			GoalML:   goals.WaterML,
			Progress: progress(water, goals.WaterML),
			QuickAdd: WaterQuickAddML,
		},
		Weight: summarizeWeight(history),
		BMI:    ComputeBMI(profile.HeightCM, profile.WeightKG),
	}

	if s.Activity != nil {
		d.Activity, err = s.Activity.Stats(ctx, userID)
		if err != nil {
			return Dashboard{}, err
		}
	}
	return d, nil
}

// WaterGoal is the effective daily water goal in ml.
func (s *DashboardService) WaterGoal() int { return s.Goals.withDefaults().WaterML }

// AddWater adds amountML to today's intake, capped at the goal, and returns
// the new total.
func (s *DashboardService) AddWater(ctx context.Context, userID string, amountML int) (int, error) {
	if amountML <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	goal := s.Goals.withDefaults().WaterML
	day := s.Clock.Today()

	var total int
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := EnsureProfile(ctx, tx, userID); err != nil {
			return err
		}

		current := 0
		w, err := tx.Water().GetWaterIntake(ctx, userID, day)
		switch {
		case err == nil:
			current = w.AmountML
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		total = min(current+amountML, goal)
		return tx.Water().SetWaterIntake(ctx, domain.WaterIntake{UserID: userID, Day: day, AmountML: total})
	})
	return total, err
}

// AddMeal logs a food item in section for today.
func (s *DashboardService) AddMeal(ctx context.Context, userID, section, name string, calories int) (domain.Meal, error) {
	sec, err := domain.ParseMealSection(section)
	if err != nil {
		return domain.Meal{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Meal{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if calories < 0 {
		return domain.Meal{}, fmt.Errorf("%w: calories must not be negative", ErrInvalidInput)
	}

	now := s.Clock.now()
	meal := domain.Meal{
		ID:        idx.NewAt(now).String(),
		UserID:    userID,
		Section:   sec,
		Name:      name,
		Calories:  calories,
		Day:       now.Format(dayLayout),
		CreatedAt: now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := EnsureProfile(ctx, tx, userID); err != nil {
			return err
		}
		return tx.Meals().CreateMeal(ctx, meal)
	})
	if err != nil {
		return domain.Meal{}, err
	}
	return meal, nil
}

// DeleteMeal removes one of the user's meals.
func (s *DashboardService) DeleteMeal(ctx context.Context, userID, mealID string) error {
	return s.Store.Meals().DeleteMeal(ctx, userID, mealID)
}

// UpdateProfile validates and saves the profile, then appends the weight to
// the history.
func (s *DashboardService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (domain.Profile, error) {
	gender, err := domain.ParseGender(in.Gender)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.Age <= 0 || in.HeightCM <= 0 || in.WeightKG <= 0 {
		return domain.Profile{}, fmt.Errorf("%w: age, height and weight must be positive", ErrInvalidInput)
	}

	now := s.Clock.now()
	p := domain.Profile{
		UserID:   userID,
		Age:      &in.Age,
		Gender:   &gender,
		HeightCM: &in.HeightCM,
		WeightKG: &in.WeightKG,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := EnsureProfile(ctx, tx, userID); err != nil {
			return err
		}
		if err := tx.Profiles().UpdateProfile(ctx, p); err != nil {
			return err
		}
		return tx.Weights().AddWeightEntry(ctx, domain.WeightEntry{
			ID:         idx.NewAt(now).String(),
			UserID:     userID,
			WeightKG:   in.WeightKG,
			RecordedOn: now.Format(dayLayout),
			CreatedAt:  now,
		})
	})
	if err != nil {
		return domain.Profile{}, err
	}
	return s.Store.Profiles().GetProfile(ctx, userID)
}

func summarizeCalories(meals []domain.Meal, goal int) CalorieSummary {
	bySection := make(map[domain.MealSection]*MealSectionSummary, len(domain.MealSections))
	sections := make([]MealSectionSummary, len(domain.MealSections))
	for i, sec := range domain.MealSections {
		sections[i] = MealSectionSummary{Section: sec, Items: []MealItem{}}
		bySection[sec] = &sections[i]
	}

	taken := 0
	for _, m := range meals {
		sum, ok := bySection[m.Section]
		if !ok {
			continue
		}
		sum.Items = append(sum.Items, MealItem{ID: m.ID, Name: m.Name, Calories: m.Calories})
		sum.Calories += m.Calories
		taken += m.Calories
	}

	return CalorieSummary{
		Taken:    taken,
		Goal:     goal,
		Progress: progress(taken, goal),
		Sections: sections,
	}
}

func summarizeWeight(history []domain.WeightEntry) WeightSummary {
	out := WeightSummary{History: make([]WeightPoint, 0, len(history))}
	for _, e := range history {
		out.History = append(out.History, WeightPoint{Date: e.RecordedOn, WeightKG: e.WeightKG})
	}
	if len(history) == 0 {
		return out
	}

	current := history[len(history)-1].WeightKG
	diff := round1(current - history[0].WeightKG)
	out.CurrentKG = &current
	out.DiffKG = &diff
	return out
}

// ComputeBMI returns weight / (height in m)^2 rounded to one decimal, or nil
// when either measurement is missing.
func ComputeBMI(heightCM, weightKG *float64) *BMI {
	if heightCM == nil || weightKG == nil || *heightCM <= 0 || *weightKG <= 0 {
		return nil
	}
	m := *heightCM / 100
	v := round1(*weightKG / (m * m))
	return &BMI{Value: v, Category: BMICategory(v)}
}

func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "Underweight"
	case bmi < 25:
		return "Normal"
	case bmi < 30:
		return "Overweight"
	default:
		return "Obese"
	}
}

// ViewProfile is the presentation form of p.
func ViewProfile(p domain.Profile) ProfileView {
	v := ProfileView{Age: p.Age, HeightCM: p.HeightCM, WeightKG: p.WeightKG}
	if p.Gender != nil {
		g := string(*p.Gender)
		v.Gender = &g
	}
	v.Complete = p.Age != nil && p.Gender != nil && p.HeightCM != nil && p.WeightKG != nil
	return v
}

func progress(v, goal int) float64 {
	if goal <= 0 {
		return 0
	}
	return math.Min(float64(v)/float64(goal), 1)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

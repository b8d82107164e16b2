package domain

import (
	"errors"
	"time"
)

var ErrInvalidMealSection = errors.New("domain: unknown meal section")

type MealSection string

const (
	MealMorningSnacks MealSection = "morningSnacks"
	MealBreakfast     MealSection = "breakfast"
	MealLunch         MealSection = "lunch"
	MealEveningSnacks MealSection = "eveningSnacks"
	MealDinner        MealSection = "dinner"
)

// MealSections lists the sections in the order they appear in a day.
var MealSections = []MealSection{
	MealMorningSnacks,
	MealBreakfast,
	MealLunch,
	MealEveningSnacks,
	MealDinner,
}

func ParseMealSection(s string) (MealSection, error) {
	for _, sec := range MealSections {
		if string(sec) == s {
			return sec, nil
		}
	}
	return "", ErrInvalidMealSection
}

type Meal struct {
	ID        string // ULID
	UserID    string
	Section   MealSection
	Name      string
	Calories  int
	Day       string // YYYY-MM-DD, local to the user
	CreatedAt time.Time
}

package domain

// WaterIntake is the running total for one user and day.
type WaterIntake struct {
	UserID   string
	Day      string // YYYY-MM-DD
	AmountML int
}

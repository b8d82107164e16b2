package sqlite

import (
	"context"

	"github.com/aussiebroadwan/healthify/internal/healthify/domain"
)

type waterRepo struct {
	q dbtx
}

func (r *waterRepo) GetWaterIntake(ctx context.Context, userID, day string) (domain.WaterIntake, error) {
	w := domain.WaterIntake{UserID: userID, Day: day}
	err := r.q.QueryRowContext(ctx,
		`SELECT amount_ml FROM water_intake WHERE user_id = ? AND day = ?`, userID, day).
		Scan(&w.AmountML)
	if err != nil {
		return domain.WaterIntake{}, mapNotFound(err)
	}
	return w, nil
}

func (r *waterRepo) SetWaterIntake(ctx context.Context, w domain.WaterIntake) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO water_intake (user_id, day, amount_ml) VALUES (?, ?, ?)
		ON CONFLICT(user_id, day) DO UPDATE SET amount_ml = excluded.amount_ml`,
		w.UserID, w.Day, w.AmountML)
	return err
}

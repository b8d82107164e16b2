package sqlite

import (
	"context"

	"github.com/aussiebroadwan/healthify/internal/healthify/domain"
	"github.com/aussiebroadwan/healthify/internal/healthify/store"
)

type mealsRepo struct {
	q dbtx
}

func (r *mealsRepo) CreateMeal(ctx context.Context, m domain.Meal) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO meals (id, user_id, section, name, calories, day, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, string(m.Section), m.Name, m.Calories, m.Day, toMillis(m.CreatedAt))
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *mealsRepo) ListMealsByDay(ctx context.Context, userID, day string) ([]domain.Meal, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, section, name, calories, created_at
		FROM meals WHERE user_id = ? AND day = ?
		ORDER BY id`, userID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Meal
	for rows.Next() {
		var (
			m         = domain.Meal{UserID: userID, Day: day}
			section   string
			createdAt int64
		)
		if err := rows.Scan(&m.ID, &section, &m.Name, &m.Calories, &createdAt); err != nil {
			return nil, err
		}
		m.Section = domain.MealSection(section)
		m.CreatedAt = fromMillis(createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *mealsRepo) DeleteMeal(ctx context.Context, userID, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM meals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

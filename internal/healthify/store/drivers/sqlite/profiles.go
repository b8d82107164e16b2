package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/healthify/internal/healthify/domain"
	"github.com/aussiebroadwan/healthify/internal/healthify/store"
)

type profilesRepo struct {
	q dbtx
}

func (r *profilesRepo) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	var (
		age       sql.NullInt64
		gender    sql.NullString
		height    sql.NullFloat64
		weight    sql.NullFloat64
		createdAt int64
		updatedAt int64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT age, gender, height_cm, weight_kg, created_at, updated_at
		FROM profiles WHERE user_id = ?`, userID).
		Scan(&age, &gender, &height, &weight, &createdAt, &updatedAt)
	if err != nil {
		return domain.Profile{}, mapNotFound(err)
	}

	p := domain.Profile{
		UserID:    userID,
		Age:       mapNullInt(age),
		HeightCM:  mapNullFloat(height),
		WeightKG:  mapNullFloat(weight),
		CreatedAt: fromMillis(createdAt),
		UpdatedAt: fromMillis(updatedAt),
	}
	if gender.Valid {
		g := domain.Gender(gender.String)
		p.Gender = &g
	}
	return p, nil
}

func (r *profilesRepo) CreateProfile(ctx context.Context, p domain.Profile) error {
	now := toMillis(time.Now())
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO profiles (user_id, age, gender, height_cm, weight_kg, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, mapOptionalInt(p.Age), genderArg(p.Gender),
		mapOptionalFloat(p.HeightCM), mapOptionalFloat(p.WeightKG), now, now)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *profilesRepo) UpdateProfile(ctx context.Context, p domain.Profile) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE profiles
		SET age = ?, gender = ?, height_cm = ?, weight_kg = ?, updated_at = ?
		WHERE user_id = ?`,
		mapOptionalInt(p.Age), genderArg(p.Gender),
		mapOptionalFloat(p.HeightCM), mapOptionalFloat(p.WeightKG),
		toMillis(time.Now()), p.UserID)
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

func genderArg(g *domain.Gender) sql.NullString {
	if g == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*g), Valid: true}
}

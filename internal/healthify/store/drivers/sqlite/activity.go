package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/healthify/internal/healthify/domain"
)

type activityRepo struct {
	q dbtx
}

func (r *activityRepo) AddSample(ctx context.Context, s domain.ActivitySample) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO activity_samples (id, user_id, kind, value, recorded_at)
		VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.UserID, string(s.Kind), s.Value, toMillis(s.RecordedAt))
	return err
}

func (r *activityRepo) SumSince(ctx context.Context, userID string, kind domain.ActivityKind, since time.Time) (float64, error) {
	var total float64
	err := r.q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(value), 0) FROM activity_samples
		WHERE user_id = ? AND kind = ? AND recorded_at >= ?`,
		userID, string(kind), toMillis(since)).Scan(&total)
	return total, err
}

func (r *activityRepo) DeleteSamplesBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM activity_samples WHERE recorded_at < ?`, toMillis(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *activityRepo) GetAuthorization(ctx context.Context, userID string) (domain.DeviceAuthorization, error) {
	var (
		a         = domain.DeviceAuthorization{UserID: userID}
		updatedAt int64
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT authorized, updated_at FROM device_authorizations WHERE user_id = ?`, userID).
		Scan(&a.Authorized, &updatedAt)
	if err != nil {
		return domain.DeviceAuthorization{}, mapNotFound(err)
	}
	a.UpdatedAt = fromMillis(updatedAt)
	return a, nil
}

func (r *activityRepo) SetAuthorization(ctx context.Context, a domain.DeviceAuthorization) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO device_authorizations (user_id, authorized, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET authorized = excluded.authorized, updated_at = excluded.updated_at`,
		a.UserID, a.Authorized, toMillis(a.UpdatedAt))
	return err
}

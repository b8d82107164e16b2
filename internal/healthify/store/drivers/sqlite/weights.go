package sqlite

import (
	"context"

	"github.com/aussiebroadwan/healthify/internal/healthify/domain"
)

type weightsRepo struct {
	q dbtx
}

func (r *weightsRepo) AddWeightEntry(ctx context.Context, e domain.WeightEntry) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO weight_entries (id, user_id, weight_kg, recorded_on, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.WeightKG, e.RecordedOn, toMillis(e.CreatedAt))
	return err
}

// ULIDs sort by creation time, so ordering by id is chronological.
func (r *weightsRepo) ListWeightEntries(ctx context.Context, userID string) ([]domain.WeightEntry, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, weight_kg, recorded_on, created_at
		FROM weight_entries WHERE user_id = ?
		ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WeightEntry
	for rows.Next() {
		var (
			e         = domain.WeightEntry{UserID: userID}
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.WeightKG, &e.RecordedOn, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = fromMillis(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

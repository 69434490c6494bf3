package roasts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const recordColumns = `id, original_text, roast_feedback, roast_type, fire_count, laugh_count, thinking_count, created_at`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Insert adds a record with zeroed counters.
func (r *PGRepo) Insert(ctx context.Context, roast NewRoast) (Record, error) {
	const query = `
INSERT INTO roasts (id, original_text, roast_feedback, roast_type, created_at)
VALUES ($1, $2, $3, $4, $5)`
	rec := Record{
		ID:            uuid.NewString(),
		OriginalText:  roast.OriginalText,
		RoastFeedback: roast.RoastFeedback,
		RoastType:     roast.RoastType,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := r.DB.ExecContext(ctx, query, rec.ID, rec.OriginalText, rec.RoastFeedback, rec.RoastType, rec.CreatedAt); err != nil {
		return Record{}, fmt.Errorf("insert roast: %w", err)
	}
	return rec, nil
}

// Count returns the total number of roasts.
func (r *PGRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM roasts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count roasts: %w", err)
	}
	return n, nil
}

// Sample returns up to n random roasts.
func (r *PGRepo) Sample(ctx context.Context, n int) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM roasts ORDER BY random() LIMIT $1`
	rows, err := r.DB.QueryContext(ctx, query, clampSample(n))
	if err != nil {
		return nil, fmt.Errorf("sample roasts: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.OriginalText, &rec.RoastFeedback, &rec.RoastType,
			&rec.FireCount, &rec.LaughCount, &rec.ThinkingCount, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// IncrementReaction bumps one counter in a single statement.
func (r *PGRepo) IncrementReaction(ctx context.Context, id string, reaction Reaction) (Record, error) {
	column, err := reaction.column()
	if err != nil {
		return Record{}, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return Record{}, ErrNotFound
	}
	query := fmt.Sprintf(`UPDATE roasts SET %[1]s = %[1]s + 1 WHERE id = $1 RETURNING %[2]s`, column, recordColumns)

	var rec Record
	err = r.DB.QueryRowContext(ctx, query, id).Scan(&rec.ID, &rec.OriginalText, &rec.RoastFeedback, &rec.RoastType,
		&rec.FireCount, &rec.LaughCount, &rec.ThinkingCount, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("increment %s: %w", reaction, err)
	}
	return rec, nil
}

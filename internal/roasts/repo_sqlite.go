package roasts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SQLiteRepo implements Repo on a single-file SQLite database.
type SQLiteRepo struct {
	DB *sql.DB
}

// Insert adds a record with zeroed counters.
func (r *SQLiteRepo) Insert(ctx context.Context, roast NewRoast) (Record, error) {
	const query = `
INSERT INTO roasts (id, original_text, roast_feedback, roast_type, created_at)
VALUES (?, ?, ?, ?, ?)`
	rec := Record{
		ID:            uuid.NewString(),
		OriginalText:  roast.OriginalText,
		RoastFeedback: roast.RoastFeedback,
		RoastType:     roast.RoastType,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := r.DB.ExecContext(ctx, query, rec.ID, rec.OriginalText, rec.RoastFeedback, rec.RoastType,
		rec.CreatedAt.Format(time.RFC3339Nano)); err != nil {
		return Record{}, fmt.Errorf("insert roast: %w", err)
	}
	return rec, nil
}

// Count returns the total number of roasts.
func (r *SQLiteRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM roasts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count roasts: %w", err)
	}
	return n, nil
}

// Sample returns up to n random roasts.
func (r *SQLiteRepo) Sample(ctx context.Context, n int) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM roasts ORDER BY RANDOM() LIMIT ?`
	rows, err := r.DB.QueryContext(ctx, query, clampSample(n))
	if err != nil {
		return nil, fmt.Errorf("sample roasts: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// IncrementReaction bumps one counter in a single statement.
func (r *SQLiteRepo) IncrementReaction(ctx context.Context, id string, reaction Reaction) (Record, error) {
	column, err := reaction.column()
	if err != nil {
		return Record{}, err
	}
	query := fmt.Sprintf(`UPDATE roasts SET %[1]s = %[1]s + 1 WHERE id = ? RETURNING %[2]s`, column, recordColumns)
	rec, err := scanSQLite(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("increment %s: %w", reaction, err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row rowScanner) (Record, error) {
	var (
		rec     Record
		created string
	)
	if err := row.Scan(&rec.ID, &rec.OriginalText, &rec.RoastFeedback, &rec.RoastType,
		&rec.FireCount, &rec.LaughCount, &rec.ThinkingCount, &created); err != nil {
		return Record{}, err
	}
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		rec.CreatedAt = ts
	}
	return rec, nil
}

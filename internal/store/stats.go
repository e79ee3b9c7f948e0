package store

import (
	"context"
	"fmt"
)

// Stats is the dashboard view: per-subject scores (0-100) and the
// aggregate power level.
type Stats struct {
	PowerLevel int            `json:"powerLevel"`
	Subjects   map[string]int `json:"subjects"`
}

// UpsertSubjectScore sets the 0-100 score for a subject, clamping
// out-of-range values.
func (s *Store) UpsertSubjectScore(ctx context.Context, subject string, score int) error {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subject_stats (subject, score, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (subject) DO UPDATE SET score = $2, updated_at = now()`,
		subject, score,
	)
	if err != nil {
		return fmt.Errorf("upsert subject score: %w", err)
	}
	return nil
}

// GetStats returns all subject scores. The power level is the score sum —
// a simple number that only goes up as the student trains.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	rows, err := s.pool.Query(ctx, `SELECT subject, score FROM subject_stats`)
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := Stats{Subjects: map[string]int{}}
	for rows.Next() {
		var (
			subject string
			score   int
		)
		if err := rows.Scan(&subject, &score); err != nil {
			return Stats{}, fmt.Errorf("scan stat: %w", err)
		}
		stats.Subjects[subject] = score
		stats.PowerLevel += score
	}
	return stats, rows.Err()
}

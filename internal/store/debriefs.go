package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pbaille/diffadvisor/internal/domain"
)

func scanDebrief(r rowScanner) (*domain.DebriefResult, error) {
	var (
		body   string
		status domain.CommitStatus
	)
	if err := r.Scan(&body, &status); err != nil {
		return nil, err
	}
	var d domain.DebriefResult
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		return nil, fmt.Errorf("decode debrief: %w", err)
	}
	d.Status = status
	return &d, nil
}

// SaveDebrief stores d for a project, replacing any debrief of the same commit
func (s *Store) SaveDebrief(ctx context.Context, projectID string, d *domain.DebriefResult) error {
	body, err := encodeJSON(d)
	if err != nil {
		return fmt.Errorf("encode debrief: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO debriefs (id, commit_hash, project_id, body, gap_count, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(commit_hash) DO UPDATE SET
			id = excluded.id,
			body = excluded.body,
			gap_count = excluded.gap_count,
			status = excluded.status
	`, d.ID, d.CommitHash, projectID, body, len(d.Gaps), d.Status, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert debrief: %w", err)
	}
	return nil
}

// DebriefByCommit returns nil when no debrief exists for hash
func (s *Store) DebriefByCommit(ctx context.Context, hash string) (*domain.DebriefResult, error) {
	d, err := scanDebrief(s.db.QueryRowContext(ctx, "SELECT body, status FROM debriefs WHERE commit_hash = ?", hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get debrief: %w", err)
	}
	return d, nil
}

// Debrief returns nil when id is unknown
func (s *Store) Debrief(ctx context.Context, id string) (*domain.DebriefResult, error) {
	d, err := scanDebrief(s.db.QueryRowContext(ctx, "SELECT body, status FROM debriefs WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get debrief: %w", err)
	}
	return d, nil
}

// MarkReviewed flips a debrief and its commit to reviewed in one
// transaction. It reports false when the debrief is unknown.
func (s *Store) MarkReviewed(ctx context.Context, debriefID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var hash, projectID string
	err = tx.QueryRowContext(ctx, "SELECT commit_hash, project_id FROM debriefs WHERE id = ?", debriefID).Scan(&hash, &projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find debrief: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE debriefs SET status = ? WHERE id = ?", domain.StatusReviewed, debriefID); err != nil {
		return false, fmt.Errorf("update debrief: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE commits SET status = ? WHERE project_id = ? AND hash = ?",
		domain.StatusReviewed, projectID, hash,
	); err != nil {
		return false, fmt.Errorf("update commit: %w", err)
	}
	return true, tx.Commit()
}

// GapCount sums the gaps of every debrief in a project
func (s *Store) GapCount(ctx context.Context, projectID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(gap_count), 0) FROM debriefs WHERE project_id = ?", projectID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("gap count: %w", err)
	}
	return n, nil
}

func (s *Store) InsertResponse(ctx context.Context, r domain.CheckpointResponse) error {
	var eval any
	if r.Evaluation != nil {
		raw, err := encodeJSON(r.Evaluation)
		if err != nil {
			return fmt.Errorf("encode evaluation: %w", err)
		}
		eval = raw
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO responses (id, debrief_id, question_id, question_text, response_text, evaluation, mode, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.DebriefID, r.QuestionID, r.QuestionText, r.ResponseText, eval, r.Mode, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

// ListResponses returns a debrief's responses in submission order
func (s *Store) ListResponses(ctx context.Context, debriefID string) ([]domain.CheckpointResponse, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, debrief_id, question_id, question_text, response_text, evaluation, mode, created_at
		FROM responses WHERE debrief_id = ? ORDER BY created_at, rowid
	`, debriefID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	out := []domain.CheckpointResponse{}
	for rows.Next() {
		var (
			r    domain.CheckpointResponse
			eval sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.DebriefID, &r.QuestionID, &r.QuestionText, &r.ResponseText, &eval, &r.Mode, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		if eval.Valid {
			var ev domain.Evaluation
			if err := json.Unmarshal([]byte(eval.String), &ev); err != nil {
				return nil, fmt.Errorf("decode evaluation: %w", err)
			}
			r.Evaluation = &ev
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

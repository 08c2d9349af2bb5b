package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pbaille/diffadvisor/internal/domain"
)

const commitColumns = "hash, message, author, timestamp, files_changed, additions, deletions, status"

func scanCommit(r rowScanner) (*domain.Commit, error) {
	var c domain.Commit
	if err := r.Scan(&c.Hash, &c.Message, &c.Author, &c.Timestamp, &c.FilesChanged, &c.Additions, &c.Deletions, &c.Status); err != nil {
		return nil, err
	}
	return &c, nil
}

// SyncCommits records commits (newest first) for a project. Known commits
// keep their review status; metadata and ordering are refreshed.
func (s *Store) SyncCommits(ctx context.Context, projectID string, commits []domain.Commit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for i, c := range commits {
		status := c.Status
		if status == "" {
			status = domain.StatusPending
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO commits (project_id, `+commitColumns+`, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(project_id, hash) DO UPDATE SET
				message = excluded.message,
				timestamp = excluded.timestamp,
				position = excluded.position
		`, projectID, c.Hash, c.Message, c.Author, c.Timestamp, c.FilesChanged, c.Additions, c.Deletions, status, i)
		if err != nil {
			return fmt.Errorf("upsert commit %s: %w", c.Hash, err)
		}
	}
	return tx.Commit()
}

// ListCommits returns a project's commits with the given status, newest first
func (s *Store) ListCommits(ctx context.Context, projectID string, status domain.CommitStatus) ([]domain.Commit, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+commitColumns+" FROM commits WHERE project_id = ? AND status = ? ORDER BY position",
		projectID, status,
	)
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}
	defer rows.Close()

	commits := []domain.Commit{}
	for rows.Next() {
		c, err := scanCommit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		commits = append(commits, *c)
	}
	return commits, rows.Err()
}

// FindCommit looks a commit up by hash in any project. It returns a nil
// commit when the hash is unknown.
func (s *Store) FindCommit(ctx context.Context, hash string) (*domain.Commit, string, error) {
	var projectID string
	row := s.db.QueryRowContext(ctx,
		"SELECT project_id, "+commitColumns+" FROM commits WHERE hash = ? LIMIT 1", hash)

	var c domain.Commit
	err := row.Scan(&projectID, &c.Hash, &c.Message, &c.Author, &c.Timestamp, &c.FilesChanged, &c.Additions, &c.Deletions, &c.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("find commit: %w", err)
	}
	return &c, projectID, nil
}

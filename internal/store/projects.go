package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pbaille/diffadvisor/internal/domain"
)

const projectColumns = "id, name, path, language, frameworks, active_skills, created_at, last_analyzed_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(r rowScanner) (*domain.Project, error) {
	var (
		p                  domain.Project
		frameworks, skills string
		lastAnalyzed       sql.NullTime
	)
	if err := r.Scan(&p.ID, &p.Name, &p.Path, &p.Language, &frameworks, &skills, &p.CreatedAt, &lastAnalyzed); err != nil {
		return nil, err
	}
	p.Frameworks = decodeList(frameworks)
	p.ActiveSkills = decodeList(skills)
	if lastAnalyzed.Valid {
		t := lastAnalyzed.Time
		p.LastAnalyzedAt = &t
	}
	return &p, nil
}

// InsertProject stores p as given; the caller assigns the id
func (s *Store) InsertProject(ctx context.Context, p domain.Project) error {
	frameworks, err := encodeJSON(nonNil(p.Frameworks))
	if err != nil {
		return fmt.Errorf("encode frameworks: %w", err)
	}
	skills, err := encodeJSON(nonNil(p.ActiveSkills))
	if err != nil {
		return fmt.Errorf("encode skills: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO projects ("+projectColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.Name, p.Path, p.Language, frameworks, skills, p.CreatedAt, p.LastAnalyzedAt,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *Store) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// GetProject returns nil when id is unknown
func (s *Store) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// DeleteProject removes the project with its commits and debriefs
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		"DELETE FROM responses WHERE debrief_id IN (SELECT id FROM debriefs WHERE project_id = ?)",
		"DELETE FROM debriefs WHERE project_id = ?",
		"DELETE FROM commits WHERE project_id = ?",
		"DELETE FROM projects WHERE id = ?",
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) TouchProjectAnalyzed(ctx context.Context, id string, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE projects SET last_analyzed_at = ? WHERE id = ?", at, id); err != nil {
		return fmt.Errorf("touch project: %w", err)
	}
	return nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pbaille/diffadvisor/internal/domain"
)

const noteColumns = "id, project_id, title, category_path, file_path, auto_generated, tags, content, created_at, updated_at"

func scanNote(r rowScanner) (*domain.KnowledgeNote, error) {
	var (
		n         domain.KnowledgeNote
		projectID sql.NullString
		auto      int
		tags      string
	)
	if err := r.Scan(&n.ID, &projectID, &n.Title, &n.CategoryPath, &n.FilePath, &auto, &tags, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	if projectID.Valid {
		id := projectID.String
		n.ProjectID = &id
	}
	n.AutoGenerated = auto != 0
	n.Tags = decodeList(tags)
	return &n, nil
}

func (s *Store) queryNotes(ctx context.Context, query string, args ...any) ([]domain.KnowledgeNote, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []domain.KnowledgeNote{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

// ListNotes returns every note, oldest first
func (s *Store) ListNotes(ctx context.Context) ([]domain.KnowledgeNote, error) {
	notes, err := s.queryNotes(ctx, "SELECT "+noteColumns+" FROM notes ORDER BY created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// GetNote returns nil when id is unknown
func (s *Store) GetNote(ctx context.Context, id string) (*domain.KnowledgeNote, error) {
	n, err := scanNote(s.db.QueryRowContext(ctx, "SELECT "+noteColumns+" FROM notes WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}

// PutNote inserts n or replaces the stored note with the same id
func (s *Store) PutNote(ctx context.Context, n domain.KnowledgeNote) error {
	tags, err := encodeJSON(nonNil(n.Tags))
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notes (`+noteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			title = excluded.title,
			category_path = excluded.category_path,
			file_path = excluded.file_path,
			auto_generated = excluded.auto_generated,
			tags = excluded.tags,
			content = excluded.content,
			updated_at = excluded.updated_at
	`, n.ID, n.ProjectID, n.Title, n.CategoryPath, n.FilePath, boolInt(n.AutoGenerated), tags, n.Content, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert note: %w", err)
	}
	return nil
}

func (s *Store) DeleteNote(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM note_embeddings WHERE note_id = ?", id); err != nil {
		return fmt.Errorf("delete embedding: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return tx.Commit()
}

// SearchNotes performs a case-insensitive substring search over title,
// content and tags. A blank query returns every note.
func (s *Store) SearchNotes(ctx context.Context, query string) ([]domain.KnowledgeNote, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.ListNotes(ctx)
	}
	pattern := "%" + escapeLike(query) + "%"
	notes, err := s.queryNotes(ctx, `
		SELECT `+noteColumns+` FROM notes
		WHERE title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\'
			OR EXISTS (SELECT 1 FROM json_each(notes.tags) WHERE json_each.value LIKE ? ESCAPE '\')
		ORDER BY created_at, rowid
	`, pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("search notes: %w", err)
	}
	return notes, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *Store) SaveEmbedding(ctx context.Context, noteID string, vector []float64) error {
	raw, err := encodeJSON(vector)
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO note_embeddings (note_id, vector) VALUES (?, ?) ON CONFLICT(note_id) DO UPDATE SET vector = excluded.vector",
		noteID, raw,
	)
	if err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}

// Embeddings returns every stored note vector keyed by note id
func (s *Store) Embeddings(ctx context.Context) (map[string][]float64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT note_id, vector FROM note_embeddings")
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	defer rows.Close()

	out := map[string][]float64{}
	for rows.Next() {
		var (
			id  string
			raw string
			vec []float64
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &vec); err != nil {
			return nil, fmt.Errorf("decode embedding %s: %w", id, err)
		}
		out[id] = vec
	}
	return out, rows.Err()
}

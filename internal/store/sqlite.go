package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists all entities in a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path. ":memory:"
// yields an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create store directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS personas (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agoras (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agora_personas (
		agora_id TEXT NOT NULL,
		persona_id TEXT NOT NULL,
		PRIMARY KEY (agora_id, persona_id),
		FOREIGN KEY (agora_id) REFERENCES agoras(id) ON DELETE CASCADE,
		FOREIGN KEY (persona_id) REFERENCES personas(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS shared_posts (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		idea TEXT NOT NULL,
		variant_text TEXT NOT NULL,
		score INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_personas_owner ON personas(owner);
	CREATE INDEX IF NOT EXISTS idx_agoras_owner ON agoras(owner);
	CREATE INDEX IF NOT EXISTS idx_shared_posts_owner ON shared_posts(owner);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// === Persona CRUD ===

func (s *SQLiteStore) CreatePersona(ctx context.Context, p *Persona) error {
	if p.ID == "" {
		p.ID = "p-" + uuid.New().String()[:8]
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO personas (id, owner, name, description, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.Owner, p.Name, p.Description, p.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert persona: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetPersona(ctx context.Context, owner, id string) (*Persona, error) {
	var p Persona
	var createdAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner, name, description, created_at
		FROM personas WHERE id = ? AND owner = ?
	`, id, owner).Scan(&p.ID, &p.Owner, &p.Name, &p.Description, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("persona %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query persona: %w", err)
	}

	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

func (s *SQLiteStore) ListPersonas(ctx context.Context, owner string) ([]Persona, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, name, description, created_at
		FROM personas WHERE owner = ? ORDER BY created_at, id
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("query personas: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var personas []Persona
	for rows.Next() {
		var p Persona
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Owner, &p.Name, &p.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("scan persona: %w", err)
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		personas = append(personas, p)
	}
	return personas, rows.Err()
}

func (s *SQLiteStore) UpdatePersona(ctx context.Context, p *Persona) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE personas SET name = ?, description = ? WHERE id = ? AND owner = ?
	`, p.Name, p.Description, p.ID, p.Owner)
	if err != nil {
		return fmt.Errorf("update persona: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("persona %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) DeletePersona(ctx context.Context, owner, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM personas WHERE id = ? AND owner = ?
	`, id, owner)
	if err != nil {
		return fmt.Errorf("delete persona: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("persona %s: %w", id, ErrNotFound)
	}
	return nil
}

// === Agora CRUD ===

func (s *SQLiteStore) CreateAgora(ctx context.Context, a *Agora) error {
	if a.ID == "" {
		a.ID = "a-" + uuid.New().String()[:8]
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO agoras (id, owner, name, description, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID, a.Owner, a.Name, a.Description, a.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert agora: %w", err)
	}

	if err := replaceMembers(ctx, tx, a.Owner, a.ID, a.PersonaIDs); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetAgora(ctx context.Context, owner, id string) (*Agora, error) {
	var a Agora
	var createdAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner, name, description, created_at
		FROM agoras WHERE id = ? AND owner = ?
	`, id, owner).Scan(&a.ID, &a.Owner, &a.Name, &a.Description, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("agora %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query agora: %w", err)
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	rows, err := s.db.QueryContext(ctx, `
		SELECT persona_id FROM agora_personas WHERE agora_id = ? ORDER BY persona_id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query agora members: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var pid string
		if err := rows.Scan(&pid); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		a.PersonaIDs = append(a.PersonaIDs, pid)
	}
	return &a, rows.Err()
}

func (s *SQLiteStore) ListAgoras(ctx context.Context, owner string) ([]Agora, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, name, description, created_at
		FROM agoras WHERE owner = ? ORDER BY created_at, id
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("query agoras: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var agoras []Agora
	for rows.Next() {
		var a Agora
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Owner, &a.Name, &a.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("scan agora: %w", err)
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		agoras = append(agoras, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range agoras {
		full, err := s.GetAgora(ctx, owner, agoras[i].ID)
		if err != nil {
			return nil, err
		}
		agoras[i].PersonaIDs = full.PersonaIDs
	}
	return agoras, nil
}

// UpdateAgora rewrites the agora's fields and replaces its member set.
func (s *SQLiteStore) UpdateAgora(ctx context.Context, a *Agora) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE agoras SET name = ?, description = ? WHERE id = ? AND owner = ?
	`, a.Name, a.Description, a.ID, a.Owner)
	if err != nil {
		return fmt.Errorf("update agora: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("agora %s: %w", a.ID, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM agora_personas WHERE agora_id = ?`, a.ID); err != nil {
		return fmt.Errorf("clear agora members: %w", err)
	}
	if err := replaceMembers(ctx, tx, a.Owner, a.ID, a.PersonaIDs); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteAgora(ctx context.Context, owner, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM agoras WHERE id = ? AND owner = ?
	`, id, owner)
	if err != nil {
		return fmt.Errorf("delete agora: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("agora %s: %w", id, ErrNotFound)
	}
	return nil
}

// replaceMembers inserts the member rows, verifying each persona belongs to
// the same owner so panels cannot reference foreign personas.
func replaceMembers(ctx context.Context, tx *sql.Tx, owner, agoraID string, personaIDs []string) error {
	for _, pid := range personaIDs {
		var exists int
		err := tx.QueryRowContext(ctx, `
			SELECT 1 FROM personas WHERE id = ? AND owner = ?
		`, pid, owner).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("persona %s: %w", pid, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("verify member: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO agora_personas (agora_id, persona_id) VALUES (?, ?)
		`, agoraID, pid); err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
	}
	return nil
}

// === Shared post CRUD ===

func (s *SQLiteStore) CreateSharedPost(ctx context.Context, p *SharedPost) error {
	if p.ID == "" {
		p.ID = "sp-" + uuid.New().String()[:8]
	}
	if p.Status == "" {
		p.Status = PostStatusPending
	}
	if !p.Status.Valid() {
		return fmt.Errorf("status %q: %w", p.Status, ErrInvalidTransition)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shared_posts (id, owner, idea, variant_text, score, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Owner, p.Idea, p.VariantText, p.Score, string(p.Status), p.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert shared post: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSharedPost(ctx context.Context, owner, id string) (*SharedPost, error) {
	var p SharedPost
	var createdAt, status string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner, idea, variant_text, score, status, created_at
		FROM shared_posts WHERE id = ? AND owner = ?
	`, id, owner).Scan(&p.ID, &p.Owner, &p.Idea, &p.VariantText, &p.Score, &status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("shared post %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query shared post: %w", err)
	}

	p.Status = PostStatus(status)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

func (s *SQLiteStore) ListSharedPosts(ctx context.Context, owner string) ([]SharedPost, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, idea, variant_text, score, status, created_at
		FROM shared_posts WHERE owner = ? ORDER BY created_at DESC, id
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("query shared posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []SharedPost
	for rows.Next() {
		var p SharedPost
		var createdAt, status string
		if err := rows.Scan(&p.ID, &p.Owner, &p.Idea, &p.VariantText, &p.Score, &status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan shared post: %w", err)
		}
		p.Status = PostStatus(status)
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// SetSharedPostStatus applies the review decision. Only pending posts can
// move, and only to approved or rejected.
func (s *SQLiteStore) SetSharedPostStatus(ctx context.Context, owner, id string, status PostStatus) (*SharedPost, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("status %q: %w", status, ErrInvalidTransition)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM shared_posts WHERE id = ? AND owner = ?
	`, id, owner).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("shared post %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query status: %w", err)
	}

	if !canTransition(PostStatus(current), status) {
		return nil, fmt.Errorf("%s -> %s: %w", current, status, ErrInvalidTransition)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE shared_posts SET status = ? WHERE id = ? AND owner = ?
	`, string(status), id, owner); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetSharedPost(ctx, owner, id)
}

func (s *SQLiteStore) DeleteSharedPost(ctx context.Context, owner, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM shared_posts WHERE id = ? AND owner = ?
	`, id, owner)
	if err != nil {
		return fmt.Errorf("delete shared post: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("shared post %s: %w", id, ErrNotFound)
	}
	return nil
}

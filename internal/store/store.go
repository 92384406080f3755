// Package store handles SQLite persistence for annotations.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/klaboworld/marginalia/internal/annotation"
)

// Store is the SQLite-backed annotation store. It exclusively owns the
// persisted annotation records.
type Store struct {
	db *sql.DB
}

var (
	// ErrAnnotationNotFound indicates the requested id (or a referenced
	// parent id) does not exist.
	ErrAnnotationNotFound = errors.New("annotation not found")
	// ErrSchemaVersion indicates the database was written by a newer
	// marginalia. Annotations are primary data, so we refuse rather than
	// rebuild.
	ErrSchemaVersion = errors.New("annotation database schema is newer than this build")
)

// CurrentDBVersion is the current database schema version.
const CurrentDBVersion = 1

// Open opens or creates the annotation database for a site directory.
func Open(sitePath string) (*Store, error) {
	dbDir := filepath.Join(sitePath, ".marginalia")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .marginalia directory: %w", err)
	}
	return OpenPath(filepath.Join(dbDir, "annotations.db"))
}

// OpenPath opens the database at an explicit path. Accepts the bare path or
// a file: connection string (the DATABASE_URL form).
func OpenPath(dbPath string) (*Store, error) {
	dbPath = strings.TrimPrefix(dbPath, "file:")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenInMemory opens an in-memory database (for testing).
func OpenInMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// initialize creates the database schema.
func (s *Store) initialize() error {
	schema := `
		-- WAL for concurrent reader (watcher) + writer (CLI/server)
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA foreign_keys = ON;

		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS annotations (
			id TEXT PRIMARY KEY,
			draft_slug TEXT NOT NULL,
			type TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'OPEN',
			content TEXT NOT NULL,
			selectors TEXT NOT NULL,        -- JSON selector list
			color TEXT NOT NULL,
			pin_number INTEGER,             -- roots only, unique per draft
			parent_id TEXT,
			depth INTEGER NOT NULL DEFAULT 0,
			author_id TEXT,
			created_at INTEGER NOT NULL,    -- unix millis
			updated_at INTEGER NOT NULL,
			resolved_at INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_annotations_draft ON annotations(draft_slug);
		CREATE INDEX IF NOT EXISTS idx_annotations_parent ON annotations(parent_id);
		CREATE INDEX IF NOT EXISTS idx_annotations_draft_status ON annotations(draft_slug, status);
		CREATE INDEX IF NOT EXISTS idx_annotations_draft_pin ON annotations(draft_slug, pin_number)
			WHERE pin_number IS NOT NULL;

		-- Pins are assigned max+1 but never reused after a delete, so the
		-- high-water mark lives outside the annotations table.
		CREATE TABLE IF NOT EXISTS pin_counters (
			draft_slug TEXT PRIMARY KEY,
			last_pin INTEGER NOT NULL
		);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	var stored string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'version'`).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.Exec(`INSERT INTO meta (key, value) VALUES ('version', ?)`,
			fmt.Sprintf("%d", CurrentDBVersion))
		if err != nil {
			return fmt.Errorf("failed to set database version: %w", err)
		}
	case err != nil:
		return err
	default:
		if v, convErr := strconv.Atoi(stored); convErr == nil && v > CurrentDBVersion {
			return ErrSchemaVersion
		}
	}
	return nil
}

// Create validates the input and persists a new annotation. Roots receive
// the next pin number for their draft; replies inherit depth from the parent
// and carry no pin. The pin read and the insert share a transaction so pins
// stay monotonic under concurrent creates.
func (s *Store) Create(in annotation.Input) (*annotation.Annotation, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	selectorJSON, err := json.Marshal(in.Selectors)
	if err != nil {
		return nil, fmt.Errorf("failed to encode selectors: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Truncate(time.Millisecond)

	a := &annotation.Annotation{
		ID:        uuid.NewString(),
		DraftSlug: in.DraftSlug,
		Type:      in.Type,
		Status:    annotation.StatusOpen,
		Content:   in.Content,
		Selectors: in.Selectors,
		Color:     in.Color,
		ParentID:  in.ParentID,
		AuthorID:  in.AuthorID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if in.ParentID != nil {
		var parentDepth int
		err := tx.QueryRow(`SELECT depth FROM annotations WHERE id = ?`, *in.ParentID).
			Scan(&parentDepth)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("parent %s: %w", *in.ParentID, ErrAnnotationNotFound)
		}
		if err != nil {
			return nil, err
		}
		a.Depth = parentDepth + 1
	} else {
		pin, err := nextPin(tx, in.DraftSlug)
		if err != nil {
			return nil, err
		}
		a.PinNumber = &pin
	}

	_, err = tx.Exec(`
		INSERT INTO annotations
			(id, draft_slug, type, status, content, selectors, color,
			 pin_number, parent_id, depth, author_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.DraftSlug, string(a.Type), string(a.Status), a.Content,
		string(selectorJSON), a.Color,
		nullableInt(a.PinNumber), nullableString(a.ParentID), a.Depth,
		nullableString(a.AuthorID), a.CreatedAt.UnixMilli(), a.UpdatedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to insert annotation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return a, nil
}

// Update applies content/status/color changes and bumps updated_at.
func (s *Store) Update(id string, u annotation.Update) (*annotation.Annotation, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	var sets []string
	var args []interface{}
	if u.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *u.Content)
	}
	if u.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*u.Status))
	}
	if u.Color != nil {
		sets = append(sets, "color = ?")
		args = append(args, *u.Color)
	}
	if len(sets) == 0 {
		return s.Get(id, false)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().UnixMilli(), id)

	res, err := s.db.Exec(
		"UPDATE annotations SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%s: %w", id, ErrAnnotationNotFound)
	}
	return s.Get(id, false)
}

// CascadeResult reports the outcome of a cascading resolve or delete.
type CascadeResult struct {
	Annotation      *annotation.Annotation `json:"annotation,omitempty"`
	RepliesAffected int                    `json:"repliesAffected"`
}

// Resolve marks the annotation and all its direct replies RESOLVED with a
// shared resolvedAt timestamp. The cascade is one hop only and runs in a
// single transaction.
func (s *Store) Resolve(id string) (*CascadeResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT 1 FROM annotations WHERE id = ?`, id).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", id, ErrAnnotationNotFound)
		}
		return nil, err
	}

	now := time.Now().UTC().UnixMilli()
	_, err = tx.Exec(`
		UPDATE annotations SET status = ?, resolved_at = ?, updated_at = ?
		WHERE id = ?`,
		string(annotation.StatusResolved), now, now, id)
	if err != nil {
		return nil, err
	}

	res, err := tx.Exec(`
		UPDATE annotations SET status = ?, resolved_at = ?, updated_at = ?
		WHERE parent_id = ?`,
		string(annotation.StatusResolved), now, now, id)
	if err != nil {
		return nil, err
	}
	replies, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	a, err := s.Get(id, false)
	if err != nil {
		return nil, err
	}
	return &CascadeResult{Annotation: a, RepliesAffected: int(replies)}, nil
}

// Delete removes the annotation's direct replies, then the annotation
// itself, in a single transaction. Pin numbers are never reassigned.
func (s *Store) Delete(id string) (*CascadeResult, error) {
	// Snapshot before the rows are gone; callers report what was deleted.
	a, err := s.Get(id, false)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM annotations WHERE parent_id = ?`, id)
	if err != nil {
		return nil, err
	}
	replies, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`DELETE FROM annotations WHERE id = ?`, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &CascadeResult{Annotation: a, RepliesAffected: int(replies)}, nil
}

// ArchiveOrphaned bulk-archives the given ids for a draft. Used by
// maintenance when anchors fail to resolve against current draft content;
// the anchoring engine itself never triggers this.
func (s *Store) ArchiveOrphaned(draftSlug string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, 0, len(ids)+3)
	args = append(args, string(annotation.StatusArchived), time.Now().UTC().UnixMilli(), draftSlug)
	for _, id := range ids {
		args = append(args, id)
	}

	res, err := s.db.Exec(fmt.Sprintf(`
		UPDATE annotations SET status = ?, updated_at = ?
		WHERE draft_slug = ? AND id IN (%s)`, placeholders), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// nextPin advances the per-draft pin high-water mark. The counter is seeded
// from MAX(pin_number) the first time a draft is seen, so databases created
// before the counter table still continue from the right place.
func nextPin(tx *sql.Tx, draftSlug string) (int, error) {
	var last int
	err := tx.QueryRow(
		`SELECT last_pin FROM pin_counters WHERE draft_slug = ?`, draftSlug).Scan(&last)
	if err == sql.ErrNoRows {
		var maxPin sql.NullInt64
		if err := tx.QueryRow(
			`SELECT MAX(pin_number) FROM annotations WHERE draft_slug = ?`,
			draftSlug).Scan(&maxPin); err != nil {
			return 0, err
		}
		last = int(maxPin.Int64)
	} else if err != nil {
		return 0, err
	}

	pin := last + 1
	_, err = tx.Exec(`
		INSERT INTO pin_counters (draft_slug, last_pin) VALUES (?, ?)
		ON CONFLICT(draft_slug) DO UPDATE SET last_pin = excluded.last_pin`,
		draftSlug, pin)
	if err != nil {
		return 0, err
	}
	return pin, nil
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullableInt(i *int) interface{} {
	if i == nil {
		return nil
	}
	return *i
}

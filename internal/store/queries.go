package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klaboworld/marginalia/internal/annotation"
)

// Filter narrows List results. Zero value lists everything.
type Filter struct {
	DraftSlug string
	Status    *annotation.Status
	ParentID  *string // direct replies of a specific annotation
	RootsOnly bool    // parent_id IS NULL
}

const annotationColumns = `
	id, draft_slug, type, status, content, selectors, color,
	pin_number, parent_id, depth, author_id, created_at, updated_at, resolved_at`

// List returns annotations matching the filter, ordered by creation time
// (pin order for roots).
func (s *Store) List(f Filter) ([]*annotation.Annotation, error) {
	query := "SELECT" + annotationColumns + " FROM annotations WHERE 1=1"
	var args []interface{}

	if f.DraftSlug != "" {
		query += " AND draft_slug = ?"
		args = append(args, f.DraftSlug)
	}
	if f.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*f.Status))
	}
	if f.ParentID != nil {
		query += " AND parent_id = ?"
		args = append(args, *f.ParentID)
	} else if f.RootsOnly {
		query += " AND parent_id IS NULL"
	}
	query += " ORDER BY created_at ASC, pin_number ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAnnotations(rows)
}

// Get retrieves a single annotation, optionally with its direct replies
// attached in creation order.
func (s *Store) Get(id string, includeReplies bool) (*annotation.Annotation, error) {
	row := s.db.QueryRow(
		"SELECT"+annotationColumns+" FROM annotations WHERE id = ?", id)

	a, err := scanAnnotation(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", id, ErrAnnotationNotFound)
	}
	if err != nil {
		return nil, err
	}

	if includeReplies {
		replies, err := s.List(Filter{ParentID: &a.ID})
		if err != nil {
			return nil, err
		}
		a.Replies = replies
	}
	return a, nil
}

// Count returns the number of annotations for a draft (all statuses).
func (s *Store) Count(draftSlug string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM annotations WHERE draft_slug = ?`, draftSlug).Scan(&n)
	return n, err
}

// CountAll returns the total number of annotations in the store.
func (s *Store) CountAll() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM annotations`).Scan(&n)
	return n, err
}

// MaxPinNumber returns the highest pin number assigned for a draft, or 0 if
// none exist. Pins are never reused, so this only ever grows.
func (s *Store) MaxPinNumber(draftSlug string) (int, error) {
	var maxPin sql.NullInt64
	err := s.db.QueryRow(
		`SELECT MAX(pin_number) FROM annotations WHERE draft_slug = ?`,
		draftSlug).Scan(&maxPin)
	if err != nil {
		return 0, err
	}
	return int(maxPin.Int64), nil
}

// ListAll returns every annotation in the store. The change watcher uses
// this for its full-scan poll.
func (s *Store) ListAll() ([]*annotation.Annotation, error) {
	rows, err := s.db.Query(
		"SELECT" + annotationColumns + " FROM annotations ORDER BY created_at ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAnnotations(rows)
}

// DraftSlugs returns the distinct draft slugs that have annotations.
func (s *Store) DraftSlugs() ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT draft_slug FROM annotations ORDER BY draft_slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnnotation(row rowScanner) (*annotation.Annotation, error) {
	var (
		a            annotation.Annotation
		typ, status  string
		selectorJSON string
		pin          sql.NullInt64
		parentID     sql.NullString
		authorID     sql.NullString
		createdAt    int64
		updatedAt    int64
		resolvedAt   sql.NullInt64
	)

	err := row.Scan(&a.ID, &a.DraftSlug, &typ, &status, &a.Content, &selectorJSON,
		&a.Color, &pin, &parentID, &a.Depth, &authorID, &createdAt, &updatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}

	a.Type = annotation.Type(typ)
	a.Status = annotation.Status(status)
	if err := json.Unmarshal([]byte(selectorJSON), &a.Selectors); err != nil {
		return nil, fmt.Errorf("failed to decode selectors for %s: %w", a.ID, err)
	}
	if pin.Valid {
		p := int(pin.Int64)
		a.PinNumber = &p
	}
	if parentID.Valid {
		v := parentID.String
		a.ParentID = &v
	}
	if authorID.Valid {
		v := authorID.String
		a.AuthorID = &v
	}
	a.CreatedAt = time.UnixMilli(createdAt).UTC()
	a.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	if resolvedAt.Valid {
		t := time.UnixMilli(resolvedAt.Int64).UTC()
		a.ResolvedAt = &t
	}
	return &a, nil
}

func scanAnnotations(rows *sql.Rows) ([]*annotation.Annotation, error) {
	var results []*annotation.Annotation
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

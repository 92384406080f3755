package cli

import (
	"errors"
	"fmt"

	"github.com/klaboworld/marginalia/internal/annotation"
	"github.com/klaboworld/marginalia/internal/config"
	"github.com/klaboworld/marginalia/internal/draft"
	"github.com/klaboworld/marginalia/internal/store"
)

// openStore opens the annotation database for the resolved site.
// DATABASE_URL overrides the site-derived path when set.
func openStore() (*store.Store, error) {
	if url := config.DatabaseURL(); url != "" {
		return store.OpenPath(url)
	}
	return store.Open(getSitePath())
}

// codeForError maps store/validation errors to stable error codes.
func codeForError(err error) string {
	var verr *annotation.ValidationError
	switch {
	case errors.Is(err, store.ErrAnnotationNotFound):
		return ErrAnnotationNotFound
	case errors.Is(err, store.ErrSchemaVersion):
		return ErrDatabaseVersion
	case errors.As(err, &verr):
		return ErrValidationFailed
	default:
		return ErrDatabaseError
	}
}

// findDraft loads a draft by slug from the resolved site.
func findDraft(slug string) (*draft.Draft, error) {
	d, err := draft.Find(getSitePath(), slug)
	if err != nil {
		return nil, fmt.Errorf("draft '%s' not found: %w", slug, err)
	}
	return d, nil
}

// anchorSummary describes an annotation's first selector for listings.
func anchorSummary(a *annotation.Annotation) string {
	if a.ParentID != nil {
		return "reply"
	}
	if len(a.Selectors) == 0 {
		return ""
	}
	switch sel := a.Selectors[0].(type) {
	case annotation.TextQuoteSelector:
		return fmt.Sprintf("%q", sel.Exact)
	case annotation.TextPositionSelector:
		return fmt.Sprintf("chars %d-%d", sel.Start, sel.End)
	case annotation.RectangleSelector:
		return fmt.Sprintf("rect %.0f,%.0f %.0fx%.0f", sel.X, sel.Y, sel.Width, sel.Height)
	case annotation.PointSelector:
		return fmt.Sprintf("point %.0f,%.0f", sel.X, sel.Y)
	case annotation.XPathSelector:
		return sel.Path
	default:
		return string(sel.SelectorType())
	}
}

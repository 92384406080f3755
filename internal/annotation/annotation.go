// Package annotation defines the annotation data model shared by the store,
// the anchoring engine, and the HTTP surface.
package annotation

import (
	"fmt"
	"regexp"
	"time"
)

// Type classifies how an annotation is anchored to a draft.
type Type string

const (
	TypeTextHighlight Type = "TEXT_HIGHLIGHT"
	TypeRectangle     Type = "RECTANGLE"
	TypePoint         Type = "POINT"
)

// Status is the annotation lifecycle state. Annotations are created OPEN and
// move to RESOLVED (user action) or ARCHIVED (maintenance, when the anchor
// can no longer be located). There is no transition back to OPEN.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusResolved Status = "RESOLVED"
	StatusArchived Status = "ARCHIVED"
)

// DefaultColor is the display color assigned when input omits one.
const DefaultColor = "#3B82F6"

// MaxContentLength bounds the comment body.
const MaxContentLength = 10000

// Annotation is one comment anchored to a draft. Root annotations carry a
// per-draft pin number; replies reference a parent and carry none.
type Annotation struct {
	ID         string        `json:"id"`
	DraftSlug  string        `json:"draftSlug"`
	Type       Type          `json:"type"`
	Status     Status        `json:"status"`
	Content    string        `json:"content"`
	Selectors  SelectorList  `json:"selectors"`
	Color      string        `json:"color"`
	PinNumber  *int          `json:"pinNumber,omitempty"`
	ParentID   *string       `json:"parentId,omitempty"`
	Depth      int           `json:"depth"`
	AuthorID   *string       `json:"authorId,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
	ResolvedAt *time.Time    `json:"resolvedAt,omitempty"`
	Replies    []*Annotation `json:"replies,omitempty"`
}

// IsRoot reports whether the annotation has no parent.
func (a *Annotation) IsRoot() bool {
	return a.ParentID == nil
}

// Input is the payload for creating an annotation.
type Input struct {
	DraftSlug string       `json:"draftSlug"`
	Type      Type         `json:"type"`
	Content   string       `json:"content"`
	Selectors SelectorList `json:"selectors"`
	Color     string       `json:"color,omitempty"`
	ParentID  *string      `json:"parentId,omitempty"`
	AuthorID  *string      `json:"authorId,omitempty"`
}

// Update carries optional field changes for an existing annotation.
// Nil fields are left untouched.
type Update struct {
	Content *string `json:"content,omitempty"`
	Status  *Status `json:"status,omitempty"`
	Color   *string `json:"color,omitempty"`
}

// ValidationError reports input that was rejected before persistence.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidColor reports whether s is a #RRGGBB hex color.
func ValidColor(s string) bool {
	return hexColorRe.MatchString(s)
}

// Validate checks the input against the schema rules and normalizes
// defaults (color). Returns a *ValidationError on the first violation.
func (in *Input) Validate() error {
	if in.DraftSlug == "" {
		return &ValidationError{Field: "draftSlug", Reason: "must not be empty"}
	}
	switch in.Type {
	case TypeTextHighlight, TypeRectangle, TypePoint:
	default:
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown annotation type %q", in.Type)}
	}
	if in.Content == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if len(in.Content) > MaxContentLength {
		return &ValidationError{Field: "content", Reason: fmt.Sprintf("exceeds %d characters", MaxContentLength)}
	}
	if len(in.Selectors) == 0 {
		return &ValidationError{Field: "selectors", Reason: "at least one selector is required"}
	}
	for i, sel := range in.Selectors {
		if err := sel.validate(); err != nil {
			return &ValidationError{Field: fmt.Sprintf("selectors[%d]", i), Reason: err.Error()}
		}
	}
	if in.Color == "" {
		in.Color = DefaultColor
	} else if !ValidColor(in.Color) {
		return &ValidationError{Field: "color", Reason: "must be a #RRGGBB hex color"}
	}
	return nil
}

// Validate checks the update payload.
func (u *Update) Validate() error {
	if u.Content != nil {
		if *u.Content == "" {
			return &ValidationError{Field: "content", Reason: "must not be empty"}
		}
		if len(*u.Content) > MaxContentLength {
			return &ValidationError{Field: "content", Reason: fmt.Sprintf("exceeds %d characters", MaxContentLength)}
		}
	}
	if u.Status != nil {
		switch *u.Status {
		case StatusOpen, StatusResolved, StatusArchived:
		default:
			return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", *u.Status)}
		}
	}
	if u.Color != nil && !ValidColor(*u.Color) {
		return &ValidationError{Field: "color", Reason: "must be a #RRGGBB hex color"}
	}
	return nil
}

package ui

import (
	"fmt"

	"github.com/klaboworld/marginalia/internal/annotation"
)

// Unicode symbols for status indicators
const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "⚠"
	SymbolInfo    = "ℹ"
)

// Annotation status symbols
const (
	SymbolOpen     = "○"
	SymbolResolved = "●"
	SymbolArchived = "⊘"
)

// Success returns a success message with checkmark symbol
func Success(msg string) string {
	return fmt.Sprintf("%s %s", SymbolSuccess, msg)
}

// Successf returns a formatted success message with checkmark symbol
func Successf(format string, args ...interface{}) string {
	return Success(fmt.Sprintf(format, args...))
}

// Error returns an error message with X symbol
func Error(msg string) string {
	return fmt.Sprintf("%s %s", SymbolError, msg)
}

// Errorf returns a formatted error message with X symbol
func Errorf(format string, args ...interface{}) string {
	return Error(fmt.Sprintf(format, args...))
}

// Warning returns a warning message with warning symbol
func Warning(msg string) string {
	return fmt.Sprintf("%s %s", SymbolWarning, msg)
}

// Warningf returns a formatted warning message with warning symbol
func Warningf(format string, args ...interface{}) string {
	return Warning(fmt.Sprintf(format, args...))
}

// Info returns an info message with info symbol
func Info(msg string) string {
	return fmt.Sprintf("%s %s", SymbolInfo, msg)
}

// Infof returns a formatted info message with info symbol
func Infof(format string, args ...interface{}) string {
	return Info(fmt.Sprintf(format, args...))
}

// Header returns a styled section header
func Header(msg string) string {
	return Bold.Render(msg)
}

// DraftSlug returns an accent-styled draft slug
func DraftSlug(slug string) string {
	return Accent.Render(slug)
}

// Pin returns an accent-styled pin badge like "#3". Replies carry no pin;
// a nil pin renders as a muted reply marker.
func Pin(n *int) string {
	if n == nil {
		return Muted.Render("↳")
	}
	return AccentBold.Render(fmt.Sprintf("#%d", *n))
}

// StatusSymbol returns the unicode symbol for an annotation status.
func StatusSymbol(s annotation.Status) string {
	switch s {
	case annotation.StatusResolved:
		return SymbolResolved
	case annotation.StatusArchived:
		return SymbolArchived
	default:
		return SymbolOpen
	}
}

// Status renders a status symbol plus its name, muted for terminal states.
func Status(s annotation.Status) string {
	label := fmt.Sprintf("%s %s", StatusSymbol(s), s)
	if s == annotation.StatusOpen {
		return label
	}
	return Muted.Render(label)
}

// Hint returns muted hint text
func Hint(msg string) string {
	return Muted.Render(msg)
}

// Count returns a styled count badge (e.g., "(3 replies)")
func Count(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("(%d %s)", n, singular)
	}
	return fmt.Sprintf("(%d %s)", n, plural)
}

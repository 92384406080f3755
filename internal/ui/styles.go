package ui

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
// - Default (white/black): Primary text
// - Accent (soft purple #A78BFA, configurable): Highlights, slugs, pins
// - Muted (gray): Secondary info, hints, timestamps
// - No colored success/error/warning - use unicode symbols only

const defaultAccent = "#A78BFA"

var (
	// Accent style for draft slugs, pin numbers, highlights
	Accent = lipgloss.NewStyle().Foreground(lipgloss.Color(defaultAccent))

	// Muted style for secondary info, hints, timestamps
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))

	// Bold style for emphasis
	Bold = lipgloss.NewStyle().Bold(true)

	// AccentBold combines accent color with bold
	AccentBold = lipgloss.NewStyle().Foreground(lipgloss.Color(defaultAccent)).Bold(true)
)

// accentColor is the configured accent, empty when theming is disabled.
var accentColor = defaultAccent

// ConfigureTheme applies the user's accent color preference. "none", "off"
// and "default" disable the accent entirely.
func ConfigureTheme(accent string) {
	normalized, ok := normalizeAccentColor(accent)
	switch {
	case ok:
		accentColor = normalized
		Accent = lipgloss.NewStyle().Foreground(lipgloss.Color(normalized))
		AccentBold = lipgloss.NewStyle().Foreground(lipgloss.Color(normalized)).Bold(true)
	case isAccentDisabled(accent):
		accentColor = ""
		Accent = lipgloss.NewStyle()
		AccentBold = lipgloss.NewStyle().Bold(true)
	}
}

// AccentColor returns the active accent color, or ok=false when disabled.
func AccentColor() (string, bool) {
	if accentColor == "" {
		return "", false
	}
	return accentColor, true
}

var hexRe = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// normalizeAccentColor validates an accent value: ANSI codes "0"-"255" or
// hex colors (#RGB expands to #RRGGBB). Anything else is rejected.
func normalizeAccentColor(value string) (string, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || isAccentDisabled(trimmed) {
		return "", false
	}

	if code, err := strconv.Atoi(trimmed); err == nil {
		if code >= 0 && code <= 255 {
			return strconv.Itoa(code), true
		}
		return "", false
	}

	if hexRe.MatchString(trimmed) {
		hex := strings.ToLower(trimmed)
		if len(hex) == 4 {
			hex = "#" + strings.Repeat(string(hex[1]), 2) +
				strings.Repeat(string(hex[2]), 2) +
				strings.Repeat(string(hex[3]), 2)
		}
		return hex, true
	}

	return "", false
}

func isAccentDisabled(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "none", "off", "default":
		return true
	}
	return false
}

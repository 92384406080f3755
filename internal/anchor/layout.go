// Package anchor relocates annotation selectors against a draft's rendered
// text, producing the rectangles and pin points the review surfaces draw.
//
// The rendered document is modeled as a monospace layout: the flattened
// draft text flowed into lines at a column width, with fixed cell metrics.
// All geometry is relative to the layout's bounding box, so it stays valid
// under scrolling; a width change is handled by reflowing.
package anchor

import (
	"strings"
	"unicode/utf8"
)

// Fixed cell metrics, in layout units.
const (
	CellWidth  = 8.0
	LineHeight = 18.0
)

// Pin markers sit up-and-left of the anchor point by a fixed amount.
const (
	PinOffsetX = 6.0
	PinOffsetY = 10.0
)

// Rect is an axis-aligned rectangle relative to the layout box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a position relative to the layout box.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Geometry is the renderable result of anchoring one annotation: zero or
// more highlight rectangles plus the pin position.
type Geometry struct {
	Rects []Rect `json:"rects,omitempty"`
	Pin   Point  `json:"pin"`
}

// run is one layout line's worth of text: a [start,end) byte range into the
// flattened text, in document order.
type run struct {
	start int
	end   int
	line  int
}

// Layout is flattened draft text flowed into lines at a column width.
type Layout struct {
	text string
	cols int
	runs []run
}

// NewLayout flows text into a layout cols characters wide. cols must be
// positive; degenerate values fall back to 80.
func NewLayout(text string, cols int) *Layout {
	if cols <= 0 {
		cols = 80
	}
	return &Layout{text: text, cols: cols, runs: flow(text, cols)}
}

// Resize reflows the same text at a new width. This is the layout analog of
// a container resize callback: callers re-anchor afterwards.
func (l *Layout) Resize(cols int) *Layout {
	return NewLayout(l.text, cols)
}

// Text returns the flattened text the layout was built from.
func (l *Layout) Text() string {
	return l.text
}

// Lines returns the text of each layout line in order.
func (l *Layout) Lines() []string {
	lines := make([]string, len(l.runs))
	for i, r := range l.runs {
		lines[i] = l.text[r.start:r.end]
	}
	return lines
}

// Size returns the layout's rendered dimensions in layout units.
func (l *Layout) Size() (width, height float64) {
	lines := 0
	if n := len(l.runs); n > 0 {
		lines = l.runs[n-1].line + 1
	}
	return float64(l.cols) * CellWidth, float64(lines) * LineHeight
}

// flow hard-wraps each source line at cols characters. Every source line
// occupies at least one layout line, so empty lines keep their height.
func flow(text string, cols int) []run {
	var runs []run
	lineNo := 0
	start := 0

	for start <= len(text) {
		nl := strings.IndexByte(text[start:], '\n')
		var lineEnd, next int
		if nl < 0 {
			lineEnd = len(text)
			next = len(text) + 1
		} else {
			lineEnd = start + nl
			next = lineEnd + 1
		}

		segStart := start
		runeCount := 0
		for i := start; i < lineEnd; {
			_, size := utf8.DecodeRuneInString(text[i:])
			if runeCount == cols {
				runs = append(runs, run{start: segStart, end: i, line: lineNo})
				lineNo++
				segStart = i
				runeCount = 0
			}
			i += size
			runeCount++
		}
		runs = append(runs, run{start: segStart, end: lineEnd, line: lineNo})
		lineNo++

		start = next
	}
	return runs
}

// rectsForRange translates a [start,end) byte range of the flattened text
// into one rectangle per layout line the range covers. A range spanning a
// wrap or a line break yields multiple rectangles.
func (l *Layout) rectsForRange(start, end int) []Rect {
	if start < 0 || end > len(l.text) || end <= start {
		return nil
	}

	var rects []Rect
	for _, r := range l.runs {
		if r.end <= start || r.start >= end {
			continue
		}
		oStart := maxInt(r.start, start)
		oEnd := minInt(r.end, end)
		if oEnd <= oStart {
			continue
		}
		col := utf8.RuneCountInString(l.text[r.start:oStart])
		width := utf8.RuneCountInString(l.text[oStart:oEnd])
		rects = append(rects, Rect{
			X:      float64(col) * CellWidth,
			Y:      float64(r.line) * LineHeight,
			Width:  float64(width) * CellWidth,
			Height: LineHeight,
		})
	}
	return rects
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

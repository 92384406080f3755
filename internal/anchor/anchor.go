package anchor

import (
	"strings"

	"github.com/klaboworld/marginalia/internal/annotation"
)

// Dragged boxes below this size (in layout units) are treated as accidental
// clicks and discarded.
const MinDragSize = 10.0

// AnchorQuote locates a text quote selector in the layout. The optional
// prefix narrows where the exact-match search starts; the optional suffix is
// verified with exactly one retry on mismatch. A failed anchor returns
// ok=false — never an error, and never a status change on the annotation.
func (l *Layout) AnchorQuote(sel annotation.TextQuoteSelector) (Geometry, bool) {
	if sel.Exact == "" {
		return Geometry{}, false
	}

	searchStart := 0
	if sel.Prefix != "" {
		// First occurrence only; a repeating prefix narrows the window
		// without guaranteeing the right one.
		if idx := strings.Index(l.text, sel.Prefix); idx >= 0 {
			searchStart = idx + len(sel.Prefix)
		}
	}

	match := strings.Index(l.text[searchStart:], sel.Exact)
	if match < 0 {
		return Geometry{}, false
	}
	match += searchStart

	if sel.Suffix != "" && !l.suffixAt(match+len(sel.Exact), sel.Suffix) {
		// One retry: the next occurrence after the current match, skipping
		// self-overlapping ones. If that also fails the suffix check,
		// report not found rather than continuing to scan.
		next := match + len(sel.Exact)
		retry := strings.Index(l.text[next:], sel.Exact)
		if retry < 0 {
			return Geometry{}, false
		}
		match = next + retry
		if !l.suffixAt(match+len(sel.Exact), sel.Suffix) {
			return Geometry{}, false
		}
	}

	return l.geometryForRange(match, match+len(sel.Exact))
}

// AnchorPosition locates a character-offset selector. Fails when the range
// no longer fits the current text.
func (l *Layout) AnchorPosition(sel annotation.TextPositionSelector) (Geometry, bool) {
	return l.geometryForRange(sel.Start, sel.End)
}

// AnchorRectangle scales a captured rectangle from the page size it was
// drawn against to the current layout size.
func (l *Layout) AnchorRectangle(sel annotation.RectangleSelector) (Geometry, bool) {
	sx, sy, ok := l.scaleFactors(sel.PageWidth, sel.PageHeight)
	if !ok {
		return Geometry{}, false
	}
	rect := Rect{
		X:      sel.X * sx,
		Y:      sel.Y * sy,
		Width:  sel.Width * sx,
		Height: sel.Height * sy,
	}
	return Geometry{
		Rects: []Rect{rect},
		Pin:   Point{X: rect.X, Y: rect.Y},
	}, true
}

// AnchorPoint scales a captured point to the current layout size.
func (l *Layout) AnchorPoint(sel annotation.PointSelector) (Geometry, bool) {
	sx, sy, ok := l.scaleFactors(sel.PageWidth, sel.PageHeight)
	if !ok {
		return Geometry{}, false
	}
	return Geometry{Pin: Point{X: sel.X * sx, Y: sel.Y * sy}}, true
}

// Anchor dispatches on the selector kind. XPath selectors are part of the
// stored schema but have no anchoring behavior.
func (l *Layout) Anchor(sel annotation.Selector) (Geometry, bool) {
	switch s := sel.(type) {
	case annotation.TextQuoteSelector:
		return l.AnchorQuote(s)
	case annotation.TextPositionSelector:
		return l.AnchorPosition(s)
	case annotation.RectangleSelector:
		return l.AnchorRectangle(s)
	case annotation.PointSelector:
		return l.AnchorPoint(s)
	default:
		return Geometry{}, false
	}
}

// AnchorAnnotation tries the annotation's selectors in order and returns
// the first geometry that anchors. Replies are never independently
// anchored.
func (l *Layout) AnchorAnnotation(a *annotation.Annotation) (Geometry, bool) {
	if !a.IsRoot() {
		return Geometry{}, false
	}
	for _, sel := range a.Selectors {
		if g, ok := l.Anchor(sel); ok {
			return g, true
		}
	}
	return Geometry{}, false
}

// CaptureDrag normalizes a drag gesture into a rectangle selector against
// the current layout size. Boxes under MinDragSize in either dimension are
// discarded as accidental clicks.
func (l *Layout) CaptureDrag(from, to Point) (annotation.RectangleSelector, bool) {
	x := minFloat(from.X, to.X)
	y := minFloat(from.Y, to.Y)
	w := absFloat(to.X - from.X)
	h := absFloat(to.Y - from.Y)
	if w < MinDragSize || h < MinDragSize {
		return annotation.RectangleSelector{}, false
	}
	pw, ph := l.Size()
	return annotation.RectangleSelector{
		X: x, Y: y, Width: w, Height: h,
		PageWidth: pw, PageHeight: ph,
	}, true
}

// geometryForRange builds highlight rects for a text range plus the pin:
// the rectangle of the first matched character, offset up-and-left.
func (l *Layout) geometryForRange(start, end int) (Geometry, bool) {
	rects := l.rectsForRange(start, end)
	if len(rects) == 0 {
		return Geometry{}, false
	}
	first := rects[0]
	return Geometry{
		Rects: rects,
		Pin:   Point{X: first.X - PinOffsetX, Y: first.Y - PinOffsetY},
	}, true
}

func (l *Layout) suffixAt(offset int, suffix string) bool {
	return strings.HasPrefix(l.text[minInt(offset, len(l.text)):], suffix)
}

func (l *Layout) scaleFactors(pageWidth, pageHeight float64) (sx, sy float64, ok bool) {
	if pageWidth <= 0 || pageHeight <= 0 {
		return 0, 0, false
	}
	w, h := l.Size()
	if w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w / pageWidth, h / pageHeight, true
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

package annotation

import (
	"encoding/json"
	"fmt"
)

// SelectorType discriminates the selector union on the wire.
type SelectorType string

const (
	SelectorTextQuote    SelectorType = "TextQuoteSelector"
	SelectorTextPosition SelectorType = "TextPositionSelector"
	SelectorXPath        SelectorType = "XPathSelector"
	SelectorRectangle    SelectorType = "RectangleSelector"
	SelectorPoint        SelectorType = "PointSelector"
)

// Selector describes where an annotation anchors within a draft's rendered
// content. Implementations are pure data; anchoring lives in internal/anchor.
type Selector interface {
	SelectorType() SelectorType
	validate() error
}

// TextQuoteSelector anchors by quoted substring with optional context,
// robust against minor edits.
type TextQuoteSelector struct {
	Exact  string `json:"exact"`
	Prefix string `json:"prefix,omitempty"`
	Suffix string `json:"suffix,omitempty"`
}

func (TextQuoteSelector) SelectorType() SelectorType { return SelectorTextQuote }

func (s TextQuoteSelector) validate() error {
	if s.Exact == "" {
		return fmt.Errorf("text quote selector requires a non-empty exact string")
	}
	return nil
}

// TextPositionSelector anchors by character offsets into the flattened text.
// Fast but fragile under edits.
type TextPositionSelector struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (TextPositionSelector) SelectorType() SelectorType { return SelectorTextPosition }

func (s TextPositionSelector) validate() error {
	if s.Start < 0 || s.End < s.Start {
		return fmt.Errorf("text position selector requires 0 <= start <= end")
	}
	return nil
}

// XPathSelector is part of the stored schema but unused by the anchoring
// engine.
type XPathSelector struct {
	Path   string `json:"path"`
	Offset *int   `json:"offset,omitempty"`
}

func (XPathSelector) SelectorType() SelectorType { return SelectorXPath }

func (s XPathSelector) validate() error {
	if s.Path == "" {
		return fmt.Errorf("xpath selector requires a non-empty path")
	}
	return nil
}

// RectangleSelector anchors a region, normalized against the page size the
// coordinates were captured at so they can be rescaled.
type RectangleSelector struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	PageWidth  float64 `json:"pageWidth"`
	PageHeight float64 `json:"pageHeight"`
}

func (RectangleSelector) SelectorType() SelectorType { return SelectorRectangle }

func (s RectangleSelector) validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("rectangle selector requires positive width and height")
	}
	if s.PageWidth <= 0 || s.PageHeight <= 0 {
		return fmt.Errorf("rectangle selector requires positive page dimensions")
	}
	return nil
}

// PointSelector anchors a single point, normalized like RectangleSelector.
type PointSelector struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	PageWidth  float64 `json:"pageWidth"`
	PageHeight float64 `json:"pageHeight"`
}

func (PointSelector) SelectorType() SelectorType { return SelectorPoint }

func (s PointSelector) validate() error {
	if s.PageWidth <= 0 || s.PageHeight <= 0 {
		return fmt.Errorf("point selector requires positive page dimensions")
	}
	return nil
}

// SelectorList is the ordered list of anchor descriptors attached to an
// annotation. It handles the tagged-union JSON encoding (a "type" field
// discriminates each element).
type SelectorList []Selector

// FirstQuote returns the first TextQuoteSelector, if any.
func (l SelectorList) FirstQuote() (TextQuoteSelector, bool) {
	for _, s := range l {
		if q, ok := s.(TextQuoteSelector); ok {
			return q, true
		}
	}
	return TextQuoteSelector{}, false
}

// selectorWire is the flat on-disk/on-wire shape for all selector kinds.
type selectorWire struct {
	Type SelectorType `json:"type"`

	Exact  string `json:"exact,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	Suffix string `json:"suffix,omitempty"`

	Start *int `json:"start,omitempty"`
	End   *int `json:"end,omitempty"`

	Path   string `json:"path,omitempty"`
	Offset *int   `json:"offset,omitempty"`

	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
	Width      *float64 `json:"width,omitempty"`
	Height     *float64 `json:"height,omitempty"`
	PageWidth  *float64 `json:"pageWidth,omitempty"`
	PageHeight *float64 `json:"pageHeight,omitempty"`
}

// MarshalJSON encodes each selector with its discriminating type field.
func (l SelectorList) MarshalJSON() ([]byte, error) {
	wires := make([]selectorWire, 0, len(l))
	for _, sel := range l {
		w := selectorWire{Type: sel.SelectorType()}
		switch s := sel.(type) {
		case TextQuoteSelector:
			w.Exact, w.Prefix, w.Suffix = s.Exact, s.Prefix, s.Suffix
		case TextPositionSelector:
			start, end := s.Start, s.End
			w.Start, w.End = &start, &end
		case XPathSelector:
			w.Path, w.Offset = s.Path, s.Offset
		case RectangleSelector:
			x, y, wd, h, pw, ph := s.X, s.Y, s.Width, s.Height, s.PageWidth, s.PageHeight
			w.X, w.Y, w.Width, w.Height, w.PageWidth, w.PageHeight = &x, &y, &wd, &h, &pw, &ph
		case PointSelector:
			x, y, pw, ph := s.X, s.Y, s.PageWidth, s.PageHeight
			w.X, w.Y, w.PageWidth, w.PageHeight = &x, &y, &pw, &ph
		default:
			return nil, fmt.Errorf("unknown selector type %T", sel)
		}
		wires = append(wires, w)
	}
	return json.Marshal(wires)
}

// UnmarshalJSON decodes the tagged union, rejecting unknown types.
func (l *SelectorList) UnmarshalJSON(data []byte) error {
	var wires []selectorWire
	if err := json.Unmarshal(data, &wires); err != nil {
		return err
	}
	out := make(SelectorList, 0, len(wires))
	for _, w := range wires {
		switch w.Type {
		case SelectorTextQuote:
			out = append(out, TextQuoteSelector{Exact: w.Exact, Prefix: w.Prefix, Suffix: w.Suffix})
		case SelectorTextPosition:
			var start, end int
			if w.Start != nil {
				start = *w.Start
			}
			if w.End != nil {
				end = *w.End
			}
			out = append(out, TextPositionSelector{Start: start, End: end})
		case SelectorXPath:
			out = append(out, XPathSelector{Path: w.Path, Offset: w.Offset})
		case SelectorRectangle:
			out = append(out, RectangleSelector{
				X: deref(w.X), Y: deref(w.Y),
				Width: deref(w.Width), Height: deref(w.Height),
				PageWidth: deref(w.PageWidth), PageHeight: deref(w.PageHeight),
			})
		case SelectorPoint:
			out = append(out, PointSelector{
				X: deref(w.X), Y: deref(w.Y),
				PageWidth: deref(w.PageWidth), PageHeight: deref(w.PageHeight),
			})
		default:
			return fmt.Errorf("unknown selector type %q", w.Type)
		}
	}
	*l = out
	return nil
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

package cli

import (
	"testing"

	"github.com/klaboworld/marginalia/internal/annotation"
)

func resetAddFlags() {
	addQuote = ""
	addPrefix = ""
	addSuffix = ""
	addPosition = ""
	addRect = ""
	addPoint = ""
	addPage = ""
}

func TestBuildSelectorQuote(t *testing.T) {
	resetAddFlags()
	t.Cleanup(resetAddFlags)

	addQuote = "Bob"
	addPrefix = "found "

	sel, typ, err := buildSelector()
	if err != nil {
		t.Fatalf("buildSelector() error = %v", err)
	}
	if typ != annotation.TypeTextHighlight {
		t.Errorf("expected TEXT_HIGHLIGHT, got %s", typ)
	}
	q, ok := sel.(annotation.TextQuoteSelector)
	if !ok {
		t.Fatalf("expected TextQuoteSelector, got %T", sel)
	}
	if q.Exact != "Bob" || q.Prefix != "found " {
		t.Errorf("unexpected selector: %+v", q)
	}
}

func TestBuildSelectorRect(t *testing.T) {
	resetAddFlags()
	t.Cleanup(resetAddFlags)

	addRect = "40,120,200,60"
	addPage = "800x600"

	sel, typ, err := buildSelector()
	if err != nil {
		t.Fatalf("buildSelector() error = %v", err)
	}
	if typ != annotation.TypeRectangle {
		t.Errorf("expected RECTANGLE, got %s", typ)
	}
	r, ok := sel.(annotation.RectangleSelector)
	if !ok {
		t.Fatalf("expected RectangleSelector, got %T", sel)
	}
	if r.X != 40 || r.Y != 120 || r.Width != 200 || r.Height != 60 {
		t.Errorf("unexpected rect: %+v", r)
	}
	if r.PageWidth != 800 || r.PageHeight != 600 {
		t.Errorf("unexpected page size: %+v", r)
	}
}

func TestBuildSelectorRequiresExactlyOneAnchor(t *testing.T) {
	resetAddFlags()
	t.Cleanup(resetAddFlags)

	if _, _, err := buildSelector(); err == nil {
		t.Error("expected error with no anchor flags")
	}

	addQuote = "Bob"
	addPoint = "1,2"
	if _, _, err := buildSelector(); err == nil {
		t.Error("expected error with two anchor flags")
	}
}

func TestBuildSelectorRectRequiresPage(t *testing.T) {
	resetAddFlags()
	t.Cleanup(resetAddFlags)

	addRect = "0,0,10,10"
	if _, _, err := buildSelector(); err == nil {
		t.Error("expected error when --page is missing")
	}
}

func TestParsePositionArg(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		start   int
		end     int
		wantErr bool
	}{
		{name: "valid", input: "10:20", start: 10, end: 20},
		{name: "zero length", input: "5:5", start: 5, end: 5},
		{name: "spaces", input: " 1 : 9 ", start: 1, end: 9},
		{name: "missing colon", input: "10", wantErr: true},
		{name: "reversed", input: "20:10", wantErr: true},
		{name: "negative", input: "-1:5", wantErr: true},
		{name: "not a number", input: "a:b", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := parsePositionArg(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if start != tt.start || end != tt.end {
				t.Errorf("got %d:%d, want %d:%d", start, end, tt.start, tt.end)
			}
		})
	}
}

func TestParsePageArg(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		w, h    float64
		wantErr bool
	}{
		{name: "valid", input: "800x600", w: 800, h: 600},
		{name: "uppercase x", input: "1024X768", w: 1024, h: 768},
		{name: "fractional", input: "812.5x1100", w: 812.5, h: 1100},
		{name: "empty", input: "", wantErr: true},
		{name: "no separator", input: "800", wantErr: true},
		{name: "zero width", input: "0x600", wantErr: true},
		{name: "negative", input: "800x-600", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			w, h, err := parsePageArg(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if w != tt.w || h != tt.h {
				t.Errorf("got %gx%g, want %gx%g", w, h, tt.w, tt.h)
			}
		})
	}
}

func TestParseFloats(t *testing.T) {
	vals, err := parseFloats("1, 2.5 ,3,4", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vals[1] != 2.5 || vals[3] != 4 {
		t.Errorf("unexpected values: %v", vals)
	}

	if _, err := parseFloats("1,2,3", 4); err == nil {
		t.Error("expected error for wrong arity")
	}
	if _, err := parseFloats("1,two", 2); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

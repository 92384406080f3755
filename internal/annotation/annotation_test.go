package annotation

import (
	"encoding/json"
	"strings"
	"testing"
)

func validInput() Input {
	return Input{
		DraftSlug: "my-first-post",
		Type:      TypeTextHighlight,
		Content:   "this paragraph needs work",
		Selectors: SelectorList{
			TextQuoteSelector{Exact: "needs work", Prefix: "paragraph "},
		},
	}
}

func TestInputValidate(t *testing.T) {
	t.Run("valid input defaults color", func(t *testing.T) {
		in := validInput()
		if err := in.Validate(); err != nil {
			t.Fatalf("expected valid input, got %v", err)
		}
		if in.Color != DefaultColor {
			t.Errorf("expected default color %s, got %s", DefaultColor, in.Color)
		}
	})

	t.Run("empty content rejected", func(t *testing.T) {
		in := validInput()
		in.Content = ""
		assertValidationError(t, in.Validate(), "content")
	})

	t.Run("oversized content rejected", func(t *testing.T) {
		in := validInput()
		in.Content = strings.Repeat("x", MaxContentLength+1)
		assertValidationError(t, in.Validate(), "content")
	})

	t.Run("missing selectors rejected", func(t *testing.T) {
		in := validInput()
		in.Selectors = nil
		assertValidationError(t, in.Validate(), "selectors")
	})

	t.Run("malformed color rejected", func(t *testing.T) {
		for _, color := range []string{"blue", "#12345", "#GGGGGG", "3B82F6"} {
			in := validInput()
			in.Color = color
			assertValidationError(t, in.Validate(), "color")
		}
	})

	t.Run("explicit valid color kept", func(t *testing.T) {
		in := validInput()
		in.Color = "#FF0000"
		if err := in.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if in.Color != "#FF0000" {
			t.Errorf("color was rewritten to %s", in.Color)
		}
	})

	t.Run("empty exact quote rejected", func(t *testing.T) {
		in := validInput()
		in.Selectors = SelectorList{TextQuoteSelector{}}
		assertValidationError(t, in.Validate(), "selectors[0]")
	})

	t.Run("inverted position range rejected", func(t *testing.T) {
		in := validInput()
		in.Selectors = SelectorList{TextPositionSelector{Start: 10, End: 4}}
		assertValidationError(t, in.Validate(), "selectors[0]")
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		in := validInput()
		in.Type = Type("SCRIBBLE")
		assertValidationError(t, in.Validate(), "type")
	})
}

func assertValidationError(t *testing.T, err error, field string) {
	t.Helper()
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if verr.Field != field {
		t.Errorf("expected error on field %q, got %q", field, verr.Field)
	}
}

func TestSelectorListJSON(t *testing.T) {
	t.Run("round trip preserves union", func(t *testing.T) {
		offset := 3
		list := SelectorList{
			TextQuoteSelector{Exact: "Bob", Prefix: "found ", Suffix: " behind"},
			TextPositionSelector{Start: 21, End: 24},
			XPathSelector{Path: "/article/p[2]", Offset: &offset},
			RectangleSelector{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.1, PageWidth: 800, PageHeight: 600},
			PointSelector{X: 12, Y: 40, PageWidth: 800, PageHeight: 600},
		}

		data, err := json.Marshal(list)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}

		var decoded SelectorList
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if len(decoded) != len(list) {
			t.Fatalf("expected %d selectors, got %d", len(list), len(decoded))
		}
		quote, ok := decoded[0].(TextQuoteSelector)
		if !ok || quote.Exact != "Bob" || quote.Suffix != " behind" {
			t.Errorf("quote selector corrupted: %+v", decoded[0])
		}
		rect, ok := decoded[3].(RectangleSelector)
		if !ok || rect.PageWidth != 800 {
			t.Errorf("rectangle selector corrupted: %+v", decoded[3])
		}
	})

	t.Run("unknown discriminator rejected", func(t *testing.T) {
		var decoded SelectorList
		err := json.Unmarshal([]byte(`[{"type":"CssSelector","value":"p"}]`), &decoded)
		if err == nil {
			t.Fatal("expected error for unknown selector type")
		}
	})

	t.Run("first quote lookup", func(t *testing.T) {
		list := SelectorList{
			TextPositionSelector{Start: 0, End: 4},
			TextQuoteSelector{Exact: "hello"},
		}
		q, ok := list.FirstQuote()
		if !ok || q.Exact != "hello" {
			t.Errorf("FirstQuote returned %v %v", q, ok)
		}
		if _, ok := (SelectorList{}).FirstQuote(); ok {
			t.Error("FirstQuote on empty list should report false")
		}
	})
}

package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klaboworld/marginalia/internal/anchor"
	"github.com/klaboworld/marginalia/internal/annotation"
	"github.com/klaboworld/marginalia/internal/draft"
	"github.com/klaboworld/marginalia/internal/ui"
)

var (
	addQuote    string
	addPrefix   string
	addSuffix   string
	addPosition string
	addRect     string
	addPoint    string
	addPage     string
	addColor    string
	addAuthor   string
)

var addCmd = &cobra.Command{
	Use:   "add <draft-slug> <comment...>",
	Short: "Add an annotation to a draft",
	Long: `Add an annotation to a draft. The anchor determines the type:

  --quote "text"        highlight the quoted text (TEXT_HIGHLIGHT)
  --position start:end  highlight a character range (TEXT_HIGHLIGHT)
  --rect x,y,w,h        mark a drawn region (RECTANGLE)
  --point x,y           drop a point marker (POINT)

Region anchors take --page WxH for the page size they were captured
against, so they rescale when the rendered page changes size.

Examples:
  mgn add my-post --quote "needs a citation" this claim is unsourced
  mgn add my-post --quote "Bob" --prefix "found " tighten this
  mgn add my-post --rect 40,120,200,60 --page 800x600 crop this image
  mgn add my-post --point 10,350 --page 800x600 break the section here`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug := args[0]
		content := strings.Join(args[1:], " ")

		in := annotation.Input{
			DraftSlug: slug,
			Content:   content,
			Color:     addColor,
		}
		if addAuthor != "" {
			in.AuthorID = &addAuthor
		}

		sel, typ, err := buildSelector()
		if err != nil {
			return handleError(ErrInvalidInput, err, "Provide exactly one of --quote, --position, --rect, --point")
		}
		in.Type = typ
		in.Selectors = annotation.SelectorList{sel}

		s, err := openStore()
		if err != nil {
			return handleError(codeForError(err), err, "")
		}
		defer s.Close()

		// Creation never requires the anchor to resolve, but warn when it
		// doesn't so typos surface immediately.
		warnings := anchorWarnings(slug, sel)

		created, err := s.Create(in)
		if err != nil {
			return handleError(codeForError(err), err, "")
		}

		if isJSONOutput() {
			outputSuccessWithWarnings(created, warnings, nil)
			return nil
		}

		fmt.Println(ui.Successf("Added %s %s to %s",
			ui.Pin(created.PinNumber), created.ID, ui.DraftSlug(slug)))
		for _, w := range warnings {
			fmt.Println(ui.Warning(w.Message))
		}
		return nil
	},
}

// buildSelector converts the anchor flags into a selector and the
// annotation type it implies. Exactly one anchor flag must be set.
func buildSelector() (annotation.Selector, annotation.Type, error) {
	set := 0
	for _, f := range []string{addQuote, addPosition, addRect, addPoint} {
		if f != "" {
			set++
		}
	}
	if set != 1 {
		return nil, "", fmt.Errorf("exactly one anchor is required, got %d", set)
	}

	switch {
	case addQuote != "":
		return annotation.TextQuoteSelector{
			Exact:  addQuote,
			Prefix: addPrefix,
			Suffix: addSuffix,
		}, annotation.TypeTextHighlight, nil

	case addPosition != "":
		start, end, err := parsePositionArg(addPosition)
		if err != nil {
			return nil, "", err
		}
		return annotation.TextPositionSelector{Start: start, End: end}, annotation.TypeTextHighlight, nil

	case addRect != "":
		vals, err := parseFloats(addRect, 4)
		if err != nil {
			return nil, "", fmt.Errorf("invalid --rect: %w", err)
		}
		pw, ph, err := parsePageArg(addPage)
		if err != nil {
			return nil, "", err
		}
		return annotation.RectangleSelector{
			X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3],
			PageWidth: pw, PageHeight: ph,
		}, annotation.TypeRectangle, nil

	default:
		vals, err := parseFloats(addPoint, 2)
		if err != nil {
			return nil, "", fmt.Errorf("invalid --point: %w", err)
		}
		pw, ph, err := parsePageArg(addPage)
		if err != nil {
			return nil, "", err
		}
		return annotation.PointSelector{
			X: vals[0], Y: vals[1],
			PageWidth: pw, PageHeight: ph,
		}, annotation.TypePoint, nil
	}
}

// parsePositionArg parses "start:end" into offsets.
func parsePositionArg(s string) (int, int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid --position %q: expected start:end", s)
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --position start: %w", err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --position end: %w", err)
	}
	if start < 0 || end < start {
		return 0, 0, fmt.Errorf("invalid --position %q: need 0 <= start <= end", s)
	}
	return start, end, nil
}

// parsePageArg parses "WxH" into page dimensions.
func parsePageArg(s string) (float64, float64, error) {
	if s == "" {
		return 0, 0, fmt.Errorf("--page WxH is required for region anchors")
	}
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid --page %q: expected WxH", s)
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --page width: %w", err)
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --page height: %w", err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid --page %q: dimensions must be positive", s)
	}
	return w, h, nil
}

// parseFloats parses a comma-separated list of exactly n floats.
func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma-separated values, got %d", n, len(parts))
	}
	vals := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return vals, nil
}

// anchorWarnings checks a text anchor against the draft and reports when
// it does not resolve. Missing drafts also warn; neither blocks creation.
func anchorWarnings(slug string, sel annotation.Selector) []Warning {
	switch sel.SelectorType() {
	case annotation.SelectorTextQuote, annotation.SelectorTextPosition:
	default:
		return nil
	}

	d, err := draft.Find(getSitePath(), slug)
	if err != nil {
		return []Warning{{
			Code:    WarnDraftNotFound,
			Message: fmt.Sprintf("draft '%s' not found in drafts/; anchor not verified", slug),
			Ref:     slug,
		}}
	}

	layout := anchor.NewLayout(draft.PlainText(d.Body), 80)
	if _, ok := layout.Anchor(sel); !ok {
		return []Warning{{
			Code:    WarnAnchorNotFound,
			Message: fmt.Sprintf("anchor does not resolve in draft '%s'; the annotation will show as unanchored", slug),
			Ref:     slug,
		}}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVar(&addQuote, "quote", "", "Anchor by quoted text")
	addCmd.Flags().StringVar(&addPrefix, "prefix", "", "Context before the quote (disambiguates repeats)")
	addCmd.Flags().StringVar(&addSuffix, "suffix", "", "Context after the quote")
	addCmd.Flags().StringVar(&addPosition, "position", "", "Anchor by character range (start:end)")
	addCmd.Flags().StringVar(&addRect, "rect", "", "Anchor by drawn region (x,y,w,h)")
	addCmd.Flags().StringVar(&addPoint, "point", "", "Anchor by point marker (x,y)")
	addCmd.Flags().StringVar(&addPage, "page", "", "Page size the region was captured against (WxH)")
	addCmd.Flags().StringVar(&addColor, "color", "", "Display color (#RRGGBB)")
	addCmd.Flags().StringVar(&addAuthor, "author", "", "Author identifier")
}

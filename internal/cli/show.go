package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klaboworld/marginalia/internal/anchor"
	"github.com/klaboworld/marginalia/internal/annotation"
	"github.com/klaboworld/marginalia/internal/draft"
	"github.com/klaboworld/marginalia/internal/ui"
)

const showExcerptContext = 2 // draft lines either side of the anchor

var showCmd = &cobra.Command{
	Use:   "show <annotation-id>",
	Short: "Show an annotation thread",
	Long: `Show an annotation with its replies and, when the anchor still resolves,
an excerpt of the draft around it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		s, err := openStore()
		if err != nil {
			return handleError(codeForError(err), err, "")
		}
		defer s.Close()

		a, err := s.Get(id, true)
		if err != nil {
			return handleError(codeForError(err), err, "Run 'mgn list <draft-slug>' to find annotation ids")
		}

		if isJSONOutput() {
			outputSuccess(a, nil)
			return nil
		}

		printAnnotation(a)
		printExcerpt(a)
		return nil
	},
}

func printAnnotation(a *annotation.Annotation) {
	fmt.Printf("%s %s %s  %s\n",
		ui.Pin(a.PinNumber), ui.StatusSymbol(a.Status), ui.DraftSlug(a.DraftSlug), ui.Hint(a.ID))
	fmt.Printf("%s  %s", string(a.Type), a.CreatedAt.Format("2006-01-02 15:04"))
	if a.AuthorID != nil {
		fmt.Printf("  by %s", *a.AuthorID)
	}
	fmt.Println()
	if summary := anchorSummary(a); summary != "" && summary != "reply" {
		fmt.Println(ui.Hint("anchor: " + summary))
	}
	fmt.Println()

	display := ui.NewDisplayContext()
	rendered, err := ui.RenderMarkdown(a.Content, display.AvailableWidth(ui.MarkdownRenderMargin))
	if err != nil {
		rendered = a.Content + "\n"
	}
	fmt.Print(rendered)

	for _, r := range a.Replies {
		fmt.Printf("  ↳ %s", r.Content)
		if r.AuthorID != nil {
			fmt.Printf(" %s", ui.Hint("("+*r.AuthorID+")"))
		}
		fmt.Println()
	}
}

// printExcerpt shows the draft lines around the anchor, when the draft
// exists and the anchor resolves.
func printExcerpt(a *annotation.Annotation) {
	d, err := draft.Find(getSitePath(), a.DraftSlug)
	if err != nil {
		return
	}
	layout := anchor.NewLayout(draft.PlainText(d.Body), 80)
	g, ok := layout.AnchorAnnotation(a)
	if !ok {
		fmt.Println(ui.Hint("\n(anchor not found in current draft)"))
		return
	}

	lines := layout.Lines()
	y := g.Pin.Y
	if len(g.Rects) > 0 {
		y = g.Rects[0].Y
	}
	center := int(y / anchor.LineHeight)
	if center >= len(lines) {
		center = len(lines) - 1
	}
	start := center - showExcerptContext
	if start < 0 {
		start = 0
	}
	end := center + showExcerptContext + 1
	if end > len(lines) {
		end = len(lines)
	}

	fmt.Println()
	for i := start; i < end; i++ {
		line := strings.TrimRight(lines[i], " ")
		if i == center {
			fmt.Printf("  > %s\n", line)
		} else {
			fmt.Printf("    %s\n", ui.Hint(line))
		}
	}
}

func init() {
	rootCmd.AddCommand(showCmd)
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klaboworld/marginalia/internal/annotation"
	"github.com/klaboworld/marginalia/internal/store"
	"github.com/klaboworld/marginalia/internal/ui"
)

var (
	listStatus string
	listAll    bool
)

var listCmd = &cobra.Command{
	Use:   "list [draft-slug]",
	Short: "List annotations",
	Long: `List annotations for a draft, or summarize all annotated drafts when no
slug is given.

Open annotations are shown by default; use --all for every status or
--status to pick one.

Examples:
  mgn list                     # annotated drafts with counts
  mgn list my-post             # open annotations on my-post
  mgn list my-post --all
  mgn list my-post --status resolved --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return handleError(codeForError(err), err, "")
		}
		defer s.Close()

		if len(args) == 0 {
			return listDrafts(s)
		}
		return listAnnotations(s, args[0])
	},
}

func listDrafts(s *store.Store) error {
	slugs, err := s.DraftSlugs()
	if err != nil {
		return handleError(codeForError(err), err, "")
	}

	type draftSummary struct {
		Slug  string `json:"slug"`
		Count int    `json:"count"`
	}
	summaries := make([]draftSummary, 0, len(slugs))
	for _, slug := range slugs {
		n, err := s.Count(slug)
		if err != nil {
			return handleError(codeForError(err), err, "")
		}
		summaries = append(summaries, draftSummary{Slug: slug, Count: n})
	}

	if isJSONOutput() {
		outputSuccess(summaries, &Meta{Count: len(summaries)})
		return nil
	}

	if len(summaries) == 0 {
		fmt.Println(ui.Hint("No annotations yet. Run 'mgn add <draft-slug> ...' to create one."))
		return nil
	}
	tbl := ui.NewTable(2)
	for _, d := range summaries {
		tbl.AddRow(ui.DraftSlug(d.Slug), ui.Count(d.Count, "annotation", "annotations"))
	}
	fmt.Print(tbl.String())
	return nil
}

func listAnnotations(s *store.Store, slug string) error {
	filter := store.Filter{DraftSlug: slug}
	if listStatus != "" {
		status, err := parseStatusArg(listStatus)
		if err != nil {
			return handleError(ErrInvalidValue, err, "Valid statuses: open, resolved, archived")
		}
		filter.Status = &status
	} else if !listAll {
		open := annotation.StatusOpen
		filter.Status = &open
	}

	all, err := s.List(filter)
	if err != nil {
		return handleError(codeForError(err), err, "")
	}

	roots, replyCount := splitThreads(all)

	if isJSONOutput() {
		outputSuccess(all, &Meta{Count: len(all)})
		return nil
	}

	if len(all) == 0 {
		fmt.Println(ui.Hint("No matching annotations."))
		return nil
	}

	display := ui.NewDisplayContext()
	tbl := ui.NewAnnotationTable(display, ui.AnnotationLayout)
	commentWidth := tbl.ContentWidth("comment")
	anchorWidth := tbl.ContentWidth("anchor")

	for _, a := range roots {
		comment := a.Content
		if n := replyCount[a.ID]; n > 0 {
			comment += fmt.Sprintf(" (+%d)", n)
		}
		tbl.AddRow(
			ui.Pin(a.PinNumber),
			ui.StatusSymbol(a.Status),
			ui.TruncateWithEllipsis(comment, commentWidth),
			ui.TruncateWithEllipsis(anchorSummary(a), anchorWidth),
		)
	}

	fmt.Println(ui.Header(slug))
	fmt.Println(tbl.Render())
	fmt.Println(ui.Hint(fmt.Sprintf("%d threads, %d total", len(roots), len(all))))
	return nil
}

// splitThreads separates roots from replies, keeping root order.
func splitThreads(all []*annotation.Annotation) ([]*annotation.Annotation, map[string]int) {
	var roots []*annotation.Annotation
	replyCount := make(map[string]int)
	for _, a := range all {
		if a.IsRoot() {
			roots = append(roots, a)
		} else {
			replyCount[*a.ParentID]++
		}
	}
	return roots, replyCount
}

func parseStatusArg(s string) (annotation.Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open":
		return annotation.StatusOpen, nil
	case "resolved":
		return annotation.StatusResolved, nil
	case "archived":
		return annotation.StatusArchived, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status (open, resolved, archived)")
	listCmd.Flags().BoolVar(&listAll, "all", false, "Include resolved and archived annotations")
}

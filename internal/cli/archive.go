package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klaboworld/marginalia/internal/anchor"
	"github.com/klaboworld/marginalia/internal/annotation"
	"github.com/klaboworld/marginalia/internal/draft"
	"github.com/klaboworld/marginalia/internal/store"
	"github.com/klaboworld/marginalia/internal/ui"
)

var archiveDryRun bool

var archiveCmd = &cobra.Command{
	Use:   "archive <draft-slug>",
	Short: "Archive annotations whose anchors no longer resolve",
	Long: `Re-anchor a draft's open text annotations against its current content
and archive the ones that no longer locate. This is the same sweep the
watcher daemon runs after a draft edit; region and point annotations
always rescale, so they are never archived.

Use --dry-run to see what would be archived without changing anything.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug := args[0]

		d, err := findDraft(slug)
		if err != nil {
			return handleError(ErrDraftNotFound, err, "Run 'mgn list' to see annotated drafts")
		}

		s, err := openStore()
		if err != nil {
			return handleError(codeForError(err), err, "")
		}
		defer s.Close()

		open := annotation.StatusOpen
		roots, err := s.List(store.Filter{DraftSlug: slug, Status: &open, RootsOnly: true})
		if err != nil {
			return handleError(codeForError(err), err, "")
		}

		layout := anchor.NewLayout(draft.PlainText(d.Body), 80)
		var orphans []*annotation.Annotation
		var orphanIDs []string
		for _, a := range roots {
			if a.Type != annotation.TypeTextHighlight {
				continue
			}
			if _, ok := layout.AnchorAnnotation(a); !ok {
				orphans = append(orphans, a)
				orphanIDs = append(orphanIDs, a.ID)
			}
		}

		archived := 0
		if !archiveDryRun && len(orphanIDs) > 0 {
			archived, err = s.ArchiveOrphaned(slug, orphanIDs)
			if err != nil {
				return handleError(codeForError(err), err, "")
			}
		}

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"draftSlug": slug,
				"checked":   len(roots),
				"orphans":   orphans,
				"archived":  archived,
				"dryRun":    archiveDryRun,
			}, &Meta{Count: len(orphans)})
			return nil
		}

		if len(orphans) == 0 {
			fmt.Println(ui.Successf("All %d open annotations still anchor in %s",
				len(roots), ui.DraftSlug(slug)))
			return nil
		}
		for _, a := range orphans {
			fmt.Printf("%s %s  %s\n", ui.Pin(a.PinNumber),
				ui.TruncateWithEllipsis(a.Content, 50), ui.Hint(anchorSummary(a)))
		}
		if archiveDryRun {
			fmt.Println(ui.Hint(fmt.Sprintf("%d would be archived (dry run)", len(orphans))))
		} else {
			fmt.Println(ui.Successf("Archived %s", ui.Count(archived, "annotation", "annotations")))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.Flags().BoolVar(&archiveDryRun, "dry-run", false, "Report orphans without archiving")
}

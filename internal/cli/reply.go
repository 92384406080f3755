package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klaboworld/marginalia/internal/annotation"
	"github.com/klaboworld/marginalia/internal/ui"
)

var replyAuthor string

var replyCmd = &cobra.Command{
	Use:   "reply <annotation-id> <comment...>",
	Short: "Reply to an annotation",
	Long: `Reply to an existing annotation. Replies attach one level deep: a reply
to a reply lands on the same root thread. Replies carry no pin number
and inherit the parent's anchor.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		parentID := args[0]
		content := strings.Join(args[1:], " ")

		s, err := openStore()
		if err != nil {
			return handleError(codeForError(err), err, "")
		}
		defer s.Close()

		parent, err := s.Get(parentID, false)
		if err != nil {
			return handleError(codeForError(err), err, "Run 'mgn list <draft-slug>' to find annotation ids")
		}

		in := annotation.Input{
			DraftSlug: parent.DraftSlug,
			Type:      parent.Type,
			Content:   content,
			Selectors: parent.Selectors,
			ParentID:  &parent.ID,
		}
		if replyAuthor != "" {
			in.AuthorID = &replyAuthor
		}

		created, err := s.Create(in)
		if err != nil {
			return handleError(codeForError(err), err, "")
		}

		if isJSONOutput() {
			outputSuccess(created, nil)
			return nil
		}
		fmt.Println(ui.Successf("Replied to %s %s", ui.Pin(parent.PinNumber), parent.ID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replyCmd)
	replyCmd.Flags().StringVar(&replyAuthor, "author", "", "Author identifier")
}

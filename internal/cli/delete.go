package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klaboworld/marginalia/internal/ui"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <annotation-id>",
	Short: "Delete an annotation",
	Long: `Delete an annotation permanently. Deleting a root also deletes its
direct replies. Freed pin numbers are never reused.

The command asks for confirmation on a terminal unless --force is used.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		s, err := openStore()
		if err != nil {
			return handleError(codeForError(err), err, "")
		}
		defer s.Close()

		target, err := s.Get(id, true)
		if err != nil {
			return handleError(codeForError(err), err, "Run 'mgn list <draft-slug>' to find annotation ids")
		}

		if !deleteForce && shouldPromptForConfirm() {
			prompt := fmt.Sprintf("Delete %s %q", ui.Pin(target.PinNumber),
				ui.TruncateWithEllipsis(target.Content, 40))
			if n := len(target.Replies); n > 0 {
				prompt += " " + ui.Count(n, "reply", "replies")
			}
			prompt += "?"
			if !promptForConfirm(prompt) {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		result, err := s.Delete(id)
		if err != nil {
			return handleError(codeForError(err), err, "")
		}

		if isJSONOutput() {
			outputSuccess(result, nil)
			return nil
		}

		msg := fmt.Sprintf("Deleted %s %s", ui.Pin(result.Annotation.PinNumber), result.Annotation.ID)
		if result.RepliesAffected > 0 {
			msg += " " + ui.Count(result.RepliesAffected, "reply", "replies")
		}
		fmt.Println(ui.Success(msg))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "Skip confirmation")
}

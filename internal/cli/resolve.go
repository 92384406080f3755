package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klaboworld/marginalia/internal/ui"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <annotation-id>",
	Short: "Resolve an annotation thread",
	Long: `Mark an annotation as resolved. Resolving a root also resolves its
direct replies; resolving a reply touches only that reply.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		s, err := openStore()
		if err != nil {
			return handleError(codeForError(err), err, "")
		}
		defer s.Close()

		result, err := s.Resolve(id)
		if err != nil {
			return handleError(codeForError(err), err, "Run 'mgn list <draft-slug>' to find annotation ids")
		}

		if isJSONOutput() {
			outputSuccess(result, nil)
			return nil
		}

		msg := fmt.Sprintf("Resolved %s %s", ui.Pin(result.Annotation.PinNumber), result.Annotation.ID)
		if result.RepliesAffected > 0 {
			msg += " " + ui.Count(result.RepliesAffected, "reply", "replies")
		}
		fmt.Println(ui.Success(msg))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

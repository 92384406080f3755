package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klaboworld/marginalia/internal/annotation"
	"github.com/klaboworld/marginalia/internal/ui"
)

var (
	editContent string
	editColor   string
	editStatus  string
)

var editCmd = &cobra.Command{
	Use:   "edit <annotation-id>",
	Short: "Edit an annotation",
	Long: `Edit an annotation's comment, color, or status. Only the given flags
change; anchors are immutable.

Examples:
  mgn edit 3f2a... --content "reworded"
  mgn edit 3f2a... --color "#F59E0B"
  mgn edit 3f2a... --status open      # reopen a resolved thread`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		var u annotation.Update
		if cmd.Flags().Changed("content") {
			u.Content = &editContent
		}
		if cmd.Flags().Changed("color") {
			u.Color = &editColor
		}
		if cmd.Flags().Changed("status") {
			status, err := parseStatusArg(editStatus)
			if err != nil {
				return handleError(ErrInvalidValue, err, "Valid statuses: open, resolved, archived")
			}
			u.Status = &status
		}
		if u.Content == nil && u.Color == nil && u.Status == nil {
			return handleErrorMsg(ErrMissingArgument, "nothing to change",
				"Pass at least one of --content, --color, --status")
		}

		s, err := openStore()
		if err != nil {
			return handleError(codeForError(err), err, "")
		}
		defer s.Close()

		updated, err := s.Update(id, u)
		if err != nil {
			return handleError(codeForError(err), err, "")
		}

		if isJSONOutput() {
			outputSuccess(updated, nil)
			return nil
		}
		fmt.Println(ui.Successf("Updated %s %s", ui.Pin(updated.PinNumber), updated.ID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringVar(&editContent, "content", "", "Replace the comment body")
	editCmd.Flags().StringVar(&editColor, "color", "", "Display color (#RRGGBB)")
	editCmd.Flags().StringVar(&editStatus, "status", "", "Set status (open, resolved, archived)")
}

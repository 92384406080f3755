package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/klaboworld/marginalia/internal/controller"
	"github.com/klaboworld/marginalia/internal/httpapi"
	"github.com/klaboworld/marginalia/internal/tui"
)

var reviewRemote string

var reviewCmd = &cobra.Command{
	Use:   "review <draft-slug>",
	Short: "Review a draft's annotations interactively",
	Long: `Open the interactive review screen for a draft: browse annotation
threads, add quote-anchored comments, reply, resolve, and delete.

Keys: c comment, r reply, j/k move, space resolve, x delete,
tab toggle resolved, esc cancel, q quit.

By default the local database is used. With --remote, operations go
through a running 'mgn serve' instead.

Examples:
  mgn review my-post
  mgn review my-post --remote 127.0.0.1:7777`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug := args[0]

		d, err := findDraft(slug)
		if err != nil {
			return handleError(ErrDraftNotFound, err, "Drafts live in <site>/drafts/")
		}

		var client controller.Client
		if reviewRemote != "" {
			client = httpapi.NewClient("http://" + reviewRemote)
		} else {
			s, err := openStore()
			if err != nil {
				return handleError(codeForError(err), err, "")
			}
			defer s.Close()
			client = s
		}

		ctrl := controller.New(client, slug, zerolog.Nop())
		if err := ctrl.Refresh(); err != nil {
			return handleError(codeForError(err), err, "")
		}

		program := tea.NewProgram(tui.New(ctrl, d), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("review UI error: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.Flags().StringVar(&reviewRemote, "remote", "", "Use a running 'mgn serve' at host:port")
}

package cli

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klaboworld/marginalia/docs"
	"github.com/klaboworld/marginalia/internal/ui"
)

var docsRaw bool

var docsCmd = &cobra.Command{
	Use:   "docs [topic]",
	Short: "Read the bundled documentation",
	Long: `Read the Markdown docs bundled with the binary.

Without a topic, lists the available topics.

Examples:
  mgn docs
  mgn docs guide/getting-started
  mgn docs design/anchoring --raw`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topics, err := docTopics()
		if err != nil {
			return handleError(ErrInternal, err, "")
		}

		if len(args) == 0 {
			if isJSONOutput() {
				outputSuccess(topics, &Meta{Count: len(topics)})
				return nil
			}
			fmt.Println(ui.Header("Topics"))
			for _, t := range topics {
				fmt.Printf("  %s\n", t)
			}
			fmt.Println(ui.Hint("\nRun 'mgn docs <topic>' to read one."))
			return nil
		}

		topic := strings.TrimSuffix(args[0], ".md")
		data, err := fs.ReadFile(docs.FS, topic+".md")
		if err != nil {
			return handleErrorMsg(ErrInvalidValue,
				fmt.Sprintf("unknown topic %q", topic),
				"Run 'mgn docs' to list topics")
		}

		if isJSONOutput() {
			outputSuccess(map[string]string{"topic": topic, "content": string(data)}, nil)
			return nil
		}
		if docsRaw {
			fmt.Print(string(data))
			return nil
		}

		display := ui.NewDisplayContext()
		rendered, err := ui.RenderMarkdown(string(data), display.AvailableWidth(ui.MarkdownRenderMargin))
		if err != nil {
			fmt.Print(string(data))
			return nil
		}
		fmt.Print(rendered)
		return nil
	},
}

func docTopics() ([]string, error) {
	var topics []string
	err := fs.WalkDir(docs.FS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".md") {
			topics = append(topics, strings.TrimSuffix(path, ".md"))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(topics)
	return topics, nil
}

func init() {
	rootCmd.AddCommand(docsCmd)
	docsCmd.Flags().BoolVar(&docsRaw, "raw", false, "Print raw Markdown without rendering")
}

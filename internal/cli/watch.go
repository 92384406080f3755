package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/klaboworld/marginalia/internal/draft"
	"github.com/klaboworld/marginalia/internal/watcher"
)

var (
	watchDebug    bool
	watchNoDrafts bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the change-notification daemon",
	Long: `Run the watcher daemon in the foreground.

The watcher:
- Polls the annotation database and diffs it against an in-memory snapshot
- Publishes created/updated/deleted changes as NDJSON over a Unix socket
- Watches drafts/ and archives annotations whose anchors no longer resolve

Subscribers get a connected greeting on attach and only changes that
happen after that; there is no backlog replay. Use 'mgn tail' to follow
the stream.

Settings come from [daemon] in config.toml; MARGINALIA_SOCKET,
SOCKET_PATH, and POLL_INTERVAL override it.

Examples:
  mgn watch
  mgn watch --debug
  mgn watch --site blog &`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchDebug, "debug", false, "Enable debug logging")
	watchCmd.Flags().BoolVar(&watchNoDrafts, "no-drafts", false, "Disable the drafts file watch")
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open annotation database: %w", err)
	}
	defer s.Close()

	level := zerolog.InfoLevel
	if watchDebug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	conf := getConfig()
	wcfg := watcher.Config{
		Store:        s,
		SocketPath:   conf.SocketPath(watcher.DefaultSocketPath),
		PollInterval: conf.PollInterval(watcher.DefaultPollInterval),
		Log:          log,
	}
	if !watchNoDrafts {
		wcfg.DraftsDir = draft.DraftsDir(getSitePath())
	}

	w, err := watcher.New(wcfg)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down watcher...")
		cancel()
	}()

	fmt.Printf("Watching annotations on %s\n", wcfg.SocketPath)
	fmt.Println("Press Ctrl+C to stop")

	return w.Run(ctx)
}

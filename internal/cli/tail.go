package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/klaboworld/marginalia/internal/annotation"
	"github.com/klaboworld/marginalia/internal/ui"
	"github.com/klaboworld/marginalia/internal/watcher"
)

var tailSocket string

// tailChange mirrors the watcher's wire format.
type tailChange struct {
	Kind       string                 `json:"kind"`
	ID         string                 `json:"id"`
	Annotation *annotation.Annotation `json:"annotation,omitempty"`
}

type tailMessage struct {
	Type      string       `json:"type"`
	Count     int          `json:"count"`
	LastCheck time.Time    `json:"lastCheck"`
	Changes   []tailChange `json:"changes"`
	Timestamp time.Time    `json:"timestamp"`
}

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow the watcher's change stream",
	Long: `Connect to the watcher daemon's Unix socket and print annotation
changes as they happen. The stream starts with a connected greeting;
there is no backlog of earlier changes.

With --json, raw NDJSON lines are passed through unchanged.

Examples:
  mgn tail
  mgn tail --json | jq .type
  mgn tail --socket /tmp/marginalia.sock`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		socketPath := tailSocket
		if socketPath == "" {
			loadedCfg, _, err := loadGlobalConfigWithPath()
			if err != nil {
				return handleError(ErrConfigInvalid, err, "")
			}
			socketPath = loadedCfg.SocketPath(watcher.DefaultSocketPath)
		}

		conn, err := net.Dial("unix", socketPath)
		if err != nil {
			return handleError(ErrSocketError,
				fmt.Errorf("failed to connect to %s: %w", socketPath, err),
				"Is 'mgn watch' running?")
		}
		defer conn.Close()

		// Close the socket on interrupt so the scanner unblocks.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			conn.Close()
		}()

		scanner := bufio.NewScanner(conn)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if isJSONOutput() {
				fmt.Println(string(line))
				continue
			}
			printTailLine(line)
		}
		return nil
	},
}

func printTailLine(line []byte) {
	var msg tailMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		fmt.Println(string(line))
		return
	}

	switch msg.Type {
	case "connected":
		fmt.Println(ui.Hint(fmt.Sprintf("connected: %d annotations tracked", msg.Count)))
	case "annotations":
		for _, c := range msg.Changes {
			line := fmt.Sprintf("%s  %s", c.Kind, c.ID)
			if c.Annotation != nil {
				line += fmt.Sprintf("  %s %s %s",
					ui.DraftSlug(c.Annotation.DraftSlug),
					ui.Pin(c.Annotation.PinNumber),
					ui.TruncateWithEllipsis(c.Annotation.Content, 50))
			}
			fmt.Println(line)
		}
	default:
		fmt.Println(string(line))
	}
}

func init() {
	rootCmd.AddCommand(tailCmd)
	tailCmd.Flags().StringVar(&tailSocket, "socket", "", "Watcher socket path (overrides config)")
}

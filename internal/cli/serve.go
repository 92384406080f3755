package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/klaboworld/marginalia/internal/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the annotation HTTP API",
	Long: `Run the annotation HTTP API in the foreground.

The API serves annotation CRUD under /api/annotations for the site's
database, the same operations the CLI uses locally. 'mgn review --remote'
and browser clients talk to this server.

The bind address comes from daemon.listen_addr in config.toml
(default 127.0.0.1:7777); --addr overrides it.

Examples:
  mgn serve
  mgn serve --addr 127.0.0.1:8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return fmt.Errorf("failed to open annotation database: %w", err)
		}
		defer s.Close()

		log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().Timestamp().Logger()

		addr := serveAddr
		if addr == "" {
			addr = getConfig().ListenAddr()
		}

		server := &http.Server{
			Addr:    addr,
			Handler: httpapi.NewServer(s, log).Handler(),
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.ListenAndServe()
		}()

		fmt.Printf("Serving annotations on http://%s\n", addr)
		fmt.Println("Press Ctrl+C to stop")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(ctx)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Bind address (overrides config)")
}

// Package cli implements the command-line interface.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klaboworld/marginalia/internal/config"
	"github.com/klaboworld/marginalia/internal/ui"
)

var (
	// Global flags
	siteName      string // Named site from config
	sitePathFlag  string // Explicit path (rare)
	configPath    string
	statePathFlag string

	// Resolved values
	resolvedSitePath   string
	resolvedConfigPath string
	resolvedStatePath  string
	cfg                *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mgn",
	Short: "Marginalia - draft annotations for your blog",
	Long: `Marginalia manages review annotations for blog drafts: pinned comments,
highlighted quotes, and drawn regions, anchored to the draft text and
stored alongside the site in SQLite.

Annotations survive edits: anchors re-locate by quoted text, and a
watcher daemon archives the ones whose anchors no longer resolve.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip site resolution for commands that don't need it
		switch cmd.Name() {
		case "init", "site", "completion", "help", "version", "tail", "docs":
			return nil
		}
		// Also skip for completion/site subcommands.
		if cmd.Parent() != nil && (cmd.Parent().Name() == "completion" || cmd.Parent().Name() == "site") {
			return nil
		}

		// Load config
		var err error
		cfg, resolvedConfigPath, err = loadGlobalConfigWithPath()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cfg == nil {
			cfg = &config.Config{}
		}
		resolvedStatePath = resolveStatePath(statePathFlag, resolvedConfigPath)
		ui.ConfigureTheme(cfg.UI.Accent)

		// Resolve site path: explicit path > named site > active state > default
		if sitePathFlag != "" {
			// Explicit path takes priority
			resolvedSitePath = sitePathFlag
		} else if siteName != "" {
			// Named site from --site flag
			resolvedSitePath, err = cfg.GetSitePath(siteName)
			if err != nil {
				return fmt.Errorf("site '%s' not found\n\nRun 'mgn site list' to see configured sites", siteName)
			}
		} else {
			state, stateErr := config.LoadState(resolvedStatePath)
			if stateErr != nil {
				return fmt.Errorf("failed to load state: %w", stateErr)
			}

			activeSiteName := strings.TrimSpace(state.ActiveSite)
			if activeSiteName != "" {
				resolvedSitePath, err = cfg.GetSitePath(activeSiteName)
				if err != nil {
					resolvedSitePath, err = cfg.GetDefaultSitePath()
					if err != nil {
						return fmt.Errorf("active site '%s' not found in config and no default site configured\n\nRun 'mgn site use <name>' or set default_site in config.toml", activeSiteName)
					}
					if !jsonOutput {
						fmt.Fprintf(os.Stderr, "warning: active site '%s' not found in config, falling back to default\n", activeSiteName)
					}
				}
			} else {
				// Default site
				resolvedSitePath, err = cfg.GetDefaultSitePath()
				if err != nil {
					return fmt.Errorf(`no site specified

Either:
  1. Use --site <name> (from config)
  2. Use --site-path /path/to/site
  3. Run 'mgn site use <name>' to set active_site in state.toml
  4. Set default_site in ~/.config/marginalia/config.toml
  5. Run 'mgn init /path/to/new/site' to create one`)
				}
			}
		}

		// Verify site exists
		if _, err := os.Stat(resolvedSitePath); os.IsNotExist(err) {
			return fmt.Errorf("site not found: %s\n\nRun 'mgn init %s' to create it", resolvedSitePath, resolvedSitePath)
		}

		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&siteName, "site", "s", "", "Named site from config")
	rootCmd.PersistentFlags().StringVar(&sitePathFlag, "site-path", "", "Explicit path to site directory")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&statePathFlag, "state", "", "Path to state file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for agent/script use)")
}

// getSitePath returns the resolved site path.
func getSitePath() string {
	return resolvedSitePath
}

// getConfig returns the loaded config.
func getConfig() *config.Config {
	if cfg == nil {
		return &config.Config{}
	}
	return cfg
}

// getStatePath returns the resolved global state path.
func getStatePath() string {
	return resolvedStatePath
}

func resolveStatePath(explicit, resolvedConfig string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	return config.StatePath(resolvedConfig)
}

func loadGlobalConfigWithPath() (*config.Config, string, error) {
	resolvedPath := config.ResolveConfigPath(configPath)

	var loadedCfg *config.Config
	var err error
	if strings.TrimSpace(configPath) != "" {
		loadedCfg, err = config.LoadFrom(configPath)
	} else {
		loadedCfg, err = config.Load()
	}
	if err != nil {
		return nil, "", err
	}
	if loadedCfg == nil {
		loadedCfg = &config.Config{}
	}

	return loadedCfg, resolvedPath, nil
}

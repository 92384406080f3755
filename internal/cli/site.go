package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klaboworld/marginalia/internal/config"
	"github.com/klaboworld/marginalia/internal/ui"
)

type siteContext struct {
	cfg        *config.Config
	state      *config.State
	configPath string
	statePath  string
}

type siteRow struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	IsDefault bool   `json:"is_default"`
	IsActive  bool   `json:"is_active"`
}

func loadSiteContext() (*siteContext, error) {
	loadedCfg, resolvedConfigPath, err := loadGlobalConfigWithPath()
	if err != nil {
		return nil, err
	}

	statePath := resolveStatePath(statePathFlag, resolvedConfigPath)
	state, err := config.LoadState(statePath)
	if err != nil {
		return nil, err
	}

	return &siteContext{
		cfg:        loadedCfg,
		state:      state,
		configPath: resolvedConfigPath,
		statePath:  statePath,
	}, nil
}

func siteRows(cfg *config.Config, state *config.State) []siteRow {
	activeName := ""
	if state != nil {
		activeName = strings.TrimSpace(state.ActiveSite)
	}

	names := make([]string, 0, len(cfg.Sites))
	for name := range cfg.Sites {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]siteRow, 0, len(names))
	for _, name := range names {
		rows = append(rows, siteRow{
			Name:      name,
			Path:      cfg.Sites[name],
			IsDefault: name == cfg.DefaultSite,
			IsActive:  name == activeName,
		})
	}
	return rows
}

var siteCmd = &cobra.Command{
	Use:   "site",
	Short: "Manage configured sites",
}

var siteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured sites",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := loadSiteContext()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}

		rows := siteRows(ctx.cfg, ctx.state)

		if isJSONOutput() {
			outputSuccess(rows, &Meta{Count: len(rows)})
			return nil
		}

		if len(rows) == 0 {
			fmt.Println(ui.Hint("No sites configured. Run 'mgn init <path> --name <name>' to add one."))
			return nil
		}

		tbl := ui.NewTable(3)
		for _, row := range rows {
			marker := " "
			if row.IsActive {
				marker = "*"
			}
			note := ""
			if row.IsDefault {
				note = ui.Hint("(default)")
			}
			tbl.AddRow(marker+" "+row.Name, row.Path, note)
		}
		fmt.Print(tbl.String())
		return nil
	},
}

var siteUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the active site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		ctx, err := loadSiteContext()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}

		if _, err := ctx.cfg.GetSitePath(name); err != nil {
			return handleErrorMsg(ErrSiteNotFound,
				fmt.Sprintf("site '%s' not found in config", name),
				"Run 'mgn site list' to see configured sites")
		}

		ctx.state.ActiveSite = name
		if err := config.SaveState(ctx.statePath, ctx.state); err != nil {
			return handleError(ErrInternal, err, "")
		}

		if isJSONOutput() {
			outputSuccess(map[string]string{"active_site": name}, nil)
			return nil
		}
		fmt.Println(ui.Successf("Active site set to '%s'", name))
		return nil
	},
}

var siteCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the site commands would use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := loadSiteContext()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}

		name := strings.TrimSpace(ctx.state.ActiveSite)
		source := "active"
		if name == "" {
			name = ctx.cfg.DefaultSite
			source = "default"
		}
		if name == "" {
			return handleErrorMsg(ErrSiteNotSpecified, "no site configured",
				"Run 'mgn site use <name>' or set default_site in config.toml")
		}

		path, err := ctx.cfg.GetSitePath(name)
		if err != nil {
			return handleError(ErrSiteNotFound, err, "Run 'mgn site list' to see configured sites")
		}

		if isJSONOutput() {
			outputSuccess(map[string]string{"name": name, "path": path, "source": source}, nil)
			return nil
		}
		fmt.Printf("%s\t%s%s\n", name, path, ui.Hint("  ("+source+")"))
		return nil
	},
}

func init() {
	siteCmd.AddCommand(siteListCmd)
	siteCmd.AddCommand(siteUseCmd)
	siteCmd.AddCommand(siteCurrentCmd)
	rootCmd.AddCommand(siteCmd)
}

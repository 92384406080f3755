package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klaboworld/marginalia/internal/config"
	"github.com/klaboworld/marginalia/internal/draft"
	"github.com/klaboworld/marginalia/internal/store"
)

var initRegisterName string

var initCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Initialize a new site directory",
	Long: `Creates a new site directory with the layout marginalia expects.

Creates:
  - drafts/               (markdown drafts to annotate)
  - .marginalia/          (annotation database)
  - .gitignore            (ignores the database)

With --name, also registers the site in the global config and makes it
the default when no default exists yet.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		fmt.Printf("Initializing site at: %s\n", path)

		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("failed to create site directory: %w", err)
		}

		draftsDir := draft.DraftsDir(path)
		if err := os.MkdirAll(draftsDir, 0755); err != nil {
			return fmt.Errorf("failed to create drafts directory: %w", err)
		}

		// Creating the store creates .marginalia/annotations.db.
		s, err := store.Open(path)
		if err != nil {
			return fmt.Errorf("failed to create annotation database: %w", err)
		}
		s.Close()

		// Ensure .gitignore excludes the database
		gitignorePath := filepath.Join(path, ".gitignore")
		gitignoreStatus := "created"
		existingContent := ""
		if data, err := os.ReadFile(gitignorePath); err == nil {
			existingContent = string(data)
		}
		if !strings.Contains(existingContent, ".marginalia/") {
			var newContent string
			if existingContent == "" {
				newContent = `# Marginalia annotation database (local review state)
.marginalia/
`
			} else {
				gitignoreStatus = "updated"
				newContent = strings.TrimRight(existingContent, "\n") + "\n\n# Marginalia\n.marginalia/\n"
			}
			if err := os.WriteFile(gitignorePath, []byte(newContent), 0644); err != nil {
				return fmt.Errorf("failed to write .gitignore: %w", err)
			}
		} else {
			gitignoreStatus = "already has Marginalia entries"
		}

		registered := false
		if initRegisterName != "" {
			if err := registerSite(initRegisterName, path); err != nil {
				return err
			}
			registered = true
		}

		fmt.Println("✓ Created drafts/ directory")
		fmt.Println("✓ Created .marginalia/annotations.db")
		switch gitignoreStatus {
		case "created":
			fmt.Println("✓ Created .gitignore")
		case "updated":
			fmt.Println("✓ Updated .gitignore (added Marginalia entries)")
		default:
			fmt.Println("• .gitignore already has Marginalia entries")
		}
		if registered {
			fmt.Printf("✓ Registered site '%s' in config\n", initRegisterName)
		}

		fmt.Println("\nSite initialized! Drop markdown drafts into drafts/ and run 'mgn add'.")
		return nil
	},
}

// registerSite records the site in the global config, making it the
// default when none is configured.
func registerSite(name, path string) error {
	loadedCfg, resolvedConfigPath, err := loadGlobalConfigWithPath()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	if loadedCfg.Sites == nil {
		loadedCfg.Sites = make(map[string]string)
	}
	loadedCfg.Sites[name] = absPath
	if loadedCfg.DefaultSite == "" {
		loadedCfg.DefaultSite = name
	}

	if err := config.SaveTo(resolvedConfigPath, loadedCfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initRegisterName, "name", "", "Register the site under this name in the global config")
}

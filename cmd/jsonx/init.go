// Init command creates the configuration and data directories.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/jsonx/internal/sqlite"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration and data directories",
	Long: `Init creates the configuration directory with a default config.yaml and
initializes the data directory (objects.jsonl and the derived database).
Existing files are left untouched.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := resolveConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	configPath := filepath.Join(configDir, configFileName+"."+configFileType)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		contents := "# jsonx configuration\n# data_dir: /path/to/data\n"
		if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
			return fmt.Errorf("write config.yaml: %w", err)
		}
		fmt.Println("Created", configPath)
	}

	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}
	store := sqlite.NewStore()
	if err := store.Attach(sqlite.Config{DataDir: dataDir}); err != nil {
		return fmt.Errorf("initialize data dir: %w", err)
	}
	if err := store.Detach(); err != nil {
		return err
	}
	fmt.Println("Initialized data directory", dataDir)
	return nil
}

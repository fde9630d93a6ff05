package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/semikb/internal/config"
)

var (
	initCategories []string
	initKinds      []string
)

func init() {
	initCmd.Flags().StringSliceVar(&initCategories, "categories", nil, "Categories to read (default \"all\")")
	initCmd.Flags().StringSliceVar(&initKinds, "meta-link-types", nil, "Attributes promoted to nodes (default \"brand\")")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new semikb repository",
	Long: `Initialize a new semikb repository in the current directory.

Creates:
  .semikb/
  ├── config.json     # Default config
  ├── raw/            # Downloaded archives
  ├── processed/      # Graph bundles (base and augmented)
  └── cache/          # SQLite query index (gitignored)`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	if config.IsRepository(root) {
		exitWithError(ExitError, "directory already contains a semikb repository")
	}

	cfg := config.Default()
	if cmd.Flags().Changed("categories") {
		cfg.Categories = initCategories
	}
	if cmd.Flags().Changed("meta-link-types") {
		cfg.MetaLinkTypes = initKinds
	}
	if err := cfg.Validate(); err != nil {
		exitWithError(exitCodeFor(err), "invalid config: %v", err)
	}

	if err := config.Init(root, cfg); err != nil {
		exitWithError(ExitError, "initializing repository: %v", err)
	}

	if humanOutput {
		fmt.Printf("Initialized semikb repository in %s\n", root)
	} else {
		outputJSON(StatusResponse{
			Status: "initialized",
			Path:   root,
		})
	}
	return nil
}

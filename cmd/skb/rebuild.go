package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the query layer from the graph",
	Long: `Rebuild the SQLite query database from the graph bundle.

The graph is loaded from the cached bundle (or built if missing) and every
node's title, brand, description and features are indexed for search.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

// RebuildResult is the response for the rebuild command.
type RebuildResult struct {
	Status string `json:"status"`
	Path   string `json:"path"`
	Nodes  int    `json:"nodes"`
}

func runRebuild(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)
	res := mustBuild(cmd.Context(), repoRoot, cfg, pipelineOptions(cfg, newLogger()))

	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	count, err := db.RebuildFromGraph(res.Graph)
	if err != nil {
		exitWithError(ExitDataError, "rebuilding database: %v", err)
	}

	if humanOutput {
		fmt.Printf("Rebuilt query database with %d nodes from %s\n", count, res.Path)
	} else {
		outputJSON(RebuildResult{Status: "rebuilt", Path: res.Path, Nodes: count})
	}
	return nil
}

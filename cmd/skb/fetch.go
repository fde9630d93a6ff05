package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/semikb/internal/catalog"
	"github.com/matsen/semikb/internal/config"
	"github.com/matsen/semikb/internal/source"
)

func init() {
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download raw archives for the configured categories",
	Long: `Download the metadata, review and Q&A archives for the configured
categories into .semikb/raw/.

Archives already present are skipped. Downloads are rate limited and
retried. Mirrors can be set with review_base_url and qa_base_url in the
global config.`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

// FetchResult is the response for the fetch command.
type FetchResult struct {
	Status string `json:"status"`
	Dir    string `json:"dir"`
	*source.DownloadResult
}

func runFetch(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)
	global := mustLoadGlobalConfig()

	sel, err := catalog.Resolve(cfg.Categories)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	dir := config.RawPath(repoRoot)
	d := source.NewDownloader(dir,
		source.WithBaseURLs(global.ReviewBaseURL, global.QABaseURL),
		source.WithConcurrency(cfg.DownloadConcurrency),
		source.WithLogger(newLogger()),
	)

	res, err := d.Ensure(cmd.Context(), sel)
	if err != nil {
		exitWithError(ExitError, "downloading archives: %v", err)
	}

	if humanOutput {
		fmt.Printf("Downloaded %d archives (%d already present) into %s\n", len(res.Downloaded), len(res.Present), dir)
		for _, name := range res.Downloaded {
			fmt.Printf("  %s\n", name)
		}
	} else {
		outputJSON(FetchResult{Status: "fetched", Dir: dir, DownloadResult: res})
	}
	return nil
}

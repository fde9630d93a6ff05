package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/semikb/internal/storage"
)

var searchLimit int

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", DefaultSearchLimit, "Maximum results to return")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search nodes by keyword",
	Long: `Search nodes by keyword in the SQLite index built by 'skb rebuild'.

Query Syntax:
  Plain text          - Searches title, brand, description and features
  title:text          - Search titles only
  brand:name          - Search brands only
  description:text    - Search descriptions only
  features:text       - Search features only

Examples:
  skb search "water filter"
  skb search "brand:whirlpool"`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var searchFields = []string{"title", "brand", "description", "features"}

func runSearch(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	count, err := db.Count()
	if err != nil {
		exitWithError(ExitError, "counting indexed nodes: %v", err)
	}
	if count == 0 {
		exitWithError(ExitNotFound, "search index is empty\n\nRun 'skb rebuild' to create the index.")
	}

	query := args[0]
	var hits []storage.Hit
	field, value := splitFieldQuery(query)
	if field != "" {
		hits, err = db.SearchField(field, value, searchLimit)
	} else {
		hits, err = db.Search(query, searchLimit)
	}
	if err != nil {
		exitWithError(ExitError, "searching: %v", err)
	}
	if hits == nil {
		hits = []storage.Hit{}
	}

	if humanOutput {
		if len(hits) == 0 {
			fmt.Println("No results found")
			return nil
		}
		fmt.Printf("Found %d results:\n\n", len(hits))
		for _, h := range hits {
			fmt.Printf("  %d\t%s\t%s\n", h.ID, h.Key, truncateString(h.Title, SearchTitleMaxLen))
		}
	} else {
		outputJSON(hits)
	}
	return nil
}

// splitFieldQuery splits "field:value" when field is searchable.
func splitFieldQuery(query string) (string, string) {
	for _, f := range searchFields {
		if strings.HasPrefix(query, f+":") {
			return f, strings.TrimPrefix(query, f+":")
		}
	}
	return "", query
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lookupBrand string

func init() {
	lookupCmd.Flags().StringVar(&lookupBrand, "brand", "", "Also report whether the product carries this brand")
	rootCmd.AddCommand(lookupCmd)
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <key>",
	Short: "Map a natural key to its node id",
	Long: `Map a natural key to its node id.

With --brand, also report whether the product's brand matches, ignoring
case, quotes and a trailing ".com".

Examples:
  skb lookup B00002N5Z9
  skb lookup B00002N5Z9 --brand whirlpool.com`,
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

// LookupResult is the response for the lookup command.
type LookupResult struct {
	Key        string `json:"key"`
	ID         int    `json:"id"`
	BrandMatch *bool  `json:"brand_match,omitempty"`
}

func runLookup(cmd *cobra.Command, args []string) error {
	res := mustLoadGraph(cmd.Context())

	id, err := res.Graph.LookupID(args[0])
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}

	result := LookupResult{Key: args[0], ID: id}
	if cmd.Flags().Changed("brand") {
		match := res.Graph.BrandMatches(id, lookupBrand)
		result.BrandMatch = &match
	}

	if humanOutput {
		fmt.Println(id)
		if result.BrandMatch != nil {
			fmt.Printf("brand %q: %v\n", lookupBrand, *result.BrandMatch)
		}
	} else {
		outputJSON(result)
	}
	return nil
}

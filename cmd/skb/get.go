package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/semikb/internal/render"
)

var (
	getNoRelations bool
	getCompact     bool
)

func init() {
	getCmd.Flags().BoolVar(&getNoRelations, "no-relations", false, "Omit the relations section")
	getCmd.Flags().BoolVar(&getCompact, "compact", false, "Compact whitespace in the document")
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <id|key>",
	Short: "Render a node as a text document",
	Long: `Render a node as a text document.

The node is given by natural key (e.g. an ASIN) or by numeric id.

Examples:
  skb get B00002N5Z9
  skb get 42 --no-relations --human`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

// DocumentResult is the response for the get command.
type DocumentResult struct {
	ID       int    `json:"id"`
	Key      string `json:"key,omitempty"`
	Type     string `json:"type"`
	Document string `json:"document"`
}

func runGet(cmd *cobra.Command, args []string) error {
	res := mustLoadGraph(cmd.Context())
	id := mustResolveNode(res.Graph, args[0])

	doc, err := res.Renderer.Document(id, render.Options{
		Relations: !getNoRelations,
		Compact:   getCompact,
	})
	if err != nil {
		exitWithError(exitCodeFor(err), "rendering node %d: %v", id, err)
	}

	if humanOutput {
		fmt.Print(doc)
		return nil
	}

	typ, _ := res.Graph.NodeType(id)
	key, _ := res.Graph.Key(id)
	outputJSON(DocumentResult{ID: id, Key: key, Type: typ, Document: doc})
	return nil
}

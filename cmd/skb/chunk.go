package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/semikb/internal/node"
)

func init() {
	rootCmd.AddCommand(chunkCmd)
}

var chunkCmd = &cobra.Command{
	Use:   "chunk <id|key> <attribute>",
	Short: "Render a single attribute of a node",
	Long: `Render a single attribute of a node as a text chunk.

Besides stored attributes, "dimensions" and "weight" are parsed from the
product details. Reviews and Q&A are rendered as sentences.

Examples:
  skb chunk B00002N5Z9 review
  skb chunk 42 dimensions`,
	Args: cobra.ExactArgs(2),
	RunE: runChunk,
}

// ChunkResult is the response for the chunk command.
type ChunkResult struct {
	ID        int    `json:"id"`
	Attribute string `json:"attribute"`
	Text      string `json:"text"`
}

func runChunk(cmd *cobra.Command, args []string) error {
	res := mustLoadGraph(cmd.Context())
	id := mustResolveNode(res.Graph, args[0])
	attr := args[1]

	if typ, _ := res.Graph.NodeType(id); typ == node.TypeProduct && !node.IsProductAttribute(attr) {
		exitWithError(ExitError, "unknown product attribute %q (valid: %s)", attr, strings.Join(node.ProductAttributes, ", "))
	}

	text, err := res.Renderer.Chunk(id, attr)
	if err != nil {
		exitWithError(exitCodeFor(err), "rendering %s of node %d: %v", attr, id, err)
	}

	if humanOutput {
		fmt.Println(text)
	} else {
		outputJSON(ChunkResult{ID: id, Attribute: attr, Text: text})
	}
	return nil
}

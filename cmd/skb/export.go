package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/semikb/internal/export"
	"github.com/matsen/semikb/internal/render"
)

var (
	exportOutput      string
	exportChunks      bool
	exportProducts    bool
	exportNoRelations bool
	exportCompact     bool
)

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: stdout)")
	exportCmd.Flags().BoolVar(&exportChunks, "chunks", false, "Export one line per product attribute")
	exportCmd.Flags().BoolVar(&exportProducts, "products", false, "Skip promoted attribute nodes")
	exportCmd.Flags().BoolVar(&exportNoRelations, "no-relations", false, "Omit relations from documents")
	exportCmd.Flags().BoolVar(&exportCompact, "compact", false, "Compact whitespace in documents")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export rendered documents as JSONL",
	Long: `Export every node as a rendered document, one JSON object per line.

With --chunks each product is exported as one line per attribute (title,
brand, description, feature, dimensions, weight, review, qa), skipping
empty attributes.

Examples:
  skb export --output docs.jsonl
  skb export --chunks --products > chunks.jsonl`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	res := mustLoadGraph(cmd.Context())

	var w io.Writer = os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			exitWithError(ExitError, "creating output file: %v", err)
		}
		defer f.Close()
		w = f
	}

	n, err := export.Write(cmd.Context(), w, res.Graph, res.Renderer, export.Options{
		Chunks:   exportChunks,
		Products: exportProducts,
		Render: render.Options{
			Relations: !exportNoRelations,
			Compact:   exportCompact,
		},
	})
	if err != nil {
		exitWithError(exitCodeFor(err), "exporting: %v", err)
	}

	if exportOutput == "" {
		return nil
	}
	if humanOutput {
		fmt.Printf("Exported %d lines to %s\n", n, exportOutput)
	} else {
		outputJSON(map[string]any{"output": exportOutput, "lines": n})
	}
	return nil
}

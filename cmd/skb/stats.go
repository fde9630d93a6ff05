package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/semikb/internal/edge"
	"github.com/matsen/semikb/internal/kg"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise the knowledge graph",
	Long: `Summarise the knowledge graph: node and edge counts per type, review
and Q&A totals, and integrity checks for orphaned or duplicate edges.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

// StatsResult is the response for the stats command.
type StatsResult struct {
	Path string `json:"path"`
	kg.Stats
	Orphaned   int `json:"orphaned_edges"`
	Duplicates int `json:"duplicate_edges"`
}

func runStats(cmd *cobra.Command, args []string) error {
	res := mustLoadGraph(cmd.Context())
	d := res.Graph.Data()
	orphaned, _ := edge.DetectOrphanedEdges(d.Edges, len(d.Nodes))

	out := StatsResult{
		Path:       res.Path,
		Stats:      res.Graph.Stats(),
		Orphaned:   len(orphaned),
		Duplicates: len(edge.FindDuplicateEdges(d.Edges)),
	}

	if humanOutput {
		fmt.Printf("Graph %s\n", out.Path)
		fmt.Printf("  nodes: %d\n", out.Nodes)
		for _, t := range kg.SortedLabels(out.NodeTypes) {
			fmt.Printf("    %-14s %d\n", t, out.NodeTypes[t])
		}
		fmt.Printf("  edges: %d\n", out.Edges)
		for _, t := range kg.SortedLabels(out.EdgeTypes) {
			fmt.Printf("    %-14s %d\n", t, out.EdgeTypes[t])
		}
		fmt.Printf("  reviews: %d\n  qa: %d\n", out.Reviews, out.QA)
		fmt.Printf("  orphaned edges: %d\n  duplicate edges: %d\n", out.Orphaned, out.Duplicates)
	} else {
		outputJSON(out)
	}
	return nil
}

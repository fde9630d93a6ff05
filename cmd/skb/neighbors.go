package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var neighborsHas string

func init() {
	neighborsCmd.Flags().StringVar(&neighborsHas, "has", "", "Only report whether this node (id or key) is a neighbour")
	rootCmd.AddCommand(neighborsCmd)
}

var neighborsCmd = &cobra.Command{
	Use:   "neighbors <id|key> <relation>",
	Short: "List neighbours of a node under a relation",
	Long: `List neighbours of a node under a relation label.

Relations are also_buy, also_view and has_<type> for each meta link type.
An unknown relation yields an empty list. With --has, the command only
reports whether the given node is among the neighbours.

Examples:
  skb neighbors B00002N5Z9 also_buy
  skb neighbors 42 has_brand --human
  skb neighbors B00002N5Z9 also_view --has B000056J8J`,
	Args: cobra.ExactArgs(2),
	RunE: runNeighbors,
}

// Neighbor is one entry of the neighbors response.
type Neighbor struct {
	ID    int    `json:"id"`
	Key   string `json:"key,omitempty"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

// NeighborsResult is the response for the neighbors command.
type NeighborsResult struct {
	ID        int        `json:"id"`
	Relation  string     `json:"relation"`
	Neighbors []Neighbor `json:"neighbors"`
}

// RelationResult is the response for neighbors --has.
type RelationResult struct {
	ID       int    `json:"id"`
	Relation string `json:"relation"`
	Other    int    `json:"other"`
	Related  bool   `json:"related"`
}

func runNeighbors(cmd *cobra.Command, args []string) error {
	res := mustLoadGraph(cmd.Context())
	g := res.Graph
	id := mustResolveNode(g, args[0])
	relation := args[1]

	if cmd.Flags().Changed("has") {
		other := mustResolveNode(g, neighborsHas)
		related := g.HasRelation(id, relation, other)
		if humanOutput {
			fmt.Printf("%d %s %d: %v\n", id, relation, other, related)
		} else {
			outputJSON(RelationResult{ID: id, Relation: relation, Other: other, Related: related})
		}
		return nil
	}

	ids, err := g.Neighbors(id, relation)
	if err != nil {
		exitWithError(exitCodeFor(err), "neighbors of %d: %v", id, err)
	}

	out := make([]Neighbor, 0, len(ids))
	for _, n := range ids {
		typ, _ := g.NodeType(n)
		key, _ := g.Key(n)
		title, _ := res.Renderer.Title(n)
		out = append(out, Neighbor{ID: n, Key: key, Type: typ, Title: title})
	}

	if humanOutput {
		if len(out) == 0 {
			fmt.Printf("No %s neighbours for node %d\n", relation, id)
			return nil
		}
		for _, n := range out {
			fmt.Printf("%d\t%s\t%s\n", n.ID, n.Type, truncateString(n.Title, SearchTitleMaxLen))
		}
	} else {
		outputJSON(NeighborsResult{ID: id, Relation: relation, Neighbors: out})
	}
	return nil
}

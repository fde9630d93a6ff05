// Package edge defines the typed directed edges of the product graph.
package edge

import (
	"errors"
	"fmt"
)

// Edge is a directed relationship between two entities. Type indexes the
// graph's edge-type dictionary.
type Edge struct {
	Source int `json:"src"`
	Target int `json:"dst"`
	Type   int `json:"type"`
}

// Validation errors.
var (
	ErrSourceOutOfRange = errors.New("source id out of range")
	ErrTargetOutOfRange = errors.New("target id out of range")
	ErrUnknownType      = errors.New("edge type not in dictionary")
)

// Validate checks the edge against a graph of numNodes entities and
// numTypes edge types.
func (e Edge) Validate(numNodes, numTypes int) error {
	if e.Source < 0 || e.Source >= numNodes {
		return fmt.Errorf("%w: %d (nodes: %d)", ErrSourceOutOfRange, e.Source, numNodes)
	}
	if e.Target < 0 || e.Target >= numNodes {
		return fmt.Errorf("%w: %d (nodes: %d)", ErrTargetOutOfRange, e.Target, numNodes)
	}
	if e.Type < 0 || e.Type >= numTypes {
		return fmt.Errorf("%w: %d (types: %d)", ErrUnknownType, e.Type, numTypes)
	}
	return nil
}

// Reverse returns the edge with its endpoints swapped.
func (e Edge) Reverse() Edge {
	return Edge{Source: e.Target, Target: e.Source, Type: e.Type}
}

// OrphanedEdgeInfo describes an edge with an endpoint outside the graph.
type OrphanedEdgeInfo struct {
	Edge   Edge   `json:"edge"`
	Reason string `json:"reason"` // "missing_source", "missing_target", or "missing_both"
}

// DetectOrphanedEdges splits edges into those whose endpoints are valid ids
// in [0, numNodes) and those that are not.
func DetectOrphanedEdges(edges []Edge, numNodes int) (orphaned []OrphanedEdgeInfo, valid []Edge) {
	inRange := func(id int) bool { return id >= 0 && id < numNodes }
	for _, e := range edges {
		sourceOK := inRange(e.Source)
		targetOK := inRange(e.Target)

		if sourceOK && targetOK {
			valid = append(valid, e)
			continue
		}

		info := OrphanedEdgeInfo{Edge: e}
		switch {
		case !sourceOK && !targetOK:
			info.Reason = "missing_both"
		case !sourceOK:
			info.Reason = "missing_source"
		default:
			info.Reason = "missing_target"
		}
		orphaned = append(orphaned, info)
	}
	return orphaned, valid
}

// FindDuplicateEdges returns edges that appear more than once with their counts.
func FindDuplicateEdges(edges []Edge) map[Edge]int {
	counts := make(map[Edge]int)
	for _, e := range edges {
		counts[e]++
	}

	duplicates := make(map[Edge]int)
	for e, count := range counts {
		if count > 1 {
			duplicates[e] = count
		}
	}
	return duplicates
}

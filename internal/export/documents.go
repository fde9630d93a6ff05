// Package export writes rendered graph nodes as JSONL corpora for retrieval
// indexes.
package export

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/matsen/semikb/internal/node"
	"github.com/matsen/semikb/internal/render"
)

// batchSize is the number of nodes rendered concurrently before writing.
const batchSize = 256

// ChunkAttributes are the attributes exported per product in chunk mode.
var ChunkAttributes = []string{
	node.AttrTitle,
	node.AttrBrand,
	node.AttrDescription,
	node.AttrFeature,
	node.AttrDimensions,
	node.AttrWeight,
	node.AttrReview,
	node.AttrQA,
}

// Graph is the view of the graph the exporter needs.
type Graph interface {
	Len() int
	NodeType(id int) (string, error)
	Key(id int) (string, error)
}

// Document is one exported node.
type Document struct {
	ID       int    `json:"id"`
	Key      string `json:"key,omitempty"`
	Type     string `json:"type"`
	Document string `json:"document"`
}

// Chunk is one exported attribute of a product.
type Chunk struct {
	ID        int    `json:"id"`
	Key       string `json:"key,omitempty"`
	Attribute string `json:"attribute"`
	Text      string `json:"text"`
}

// Options controls what is exported.
type Options struct {
	Chunks      bool           // one line per product attribute instead of per node
	Products    bool           // skip promoted attribute nodes
	Render      render.Options // document options
	Concurrency int            // render workers, default 4
}

// Write renders every node in id order and writes one JSON object per line.
// It returns the number of lines written.
func Write(ctx context.Context, w io.Writer, g Graph, r *render.Renderer, opts Options) (int, error) {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = 4
	}

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)

	written := 0
	for start := 0; start < g.Len(); start += batchSize {
		end := min(start+batchSize, g.Len())
		lines := make([][]any, end-start)

		eg, egctx := errgroup.WithContext(ctx)
		eg.SetLimit(limit)
		for id := start; id < end; id++ {
			eg.Go(func() error {
				if err := egctx.Err(); err != nil {
					return err
				}
				out, err := renderNode(g, r, id, opts)
				if err != nil {
					return fmt.Errorf("node %d: %w", id, err)
				}
				lines[id-start] = out
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return written, err
		}

		for _, batch := range lines {
			for _, v := range batch {
				if err := enc.Encode(v); err != nil {
					return written, fmt.Errorf("writing line: %w", err)
				}
				written++
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return written, fmt.Errorf("flushing output: %w", err)
	}
	return written, nil
}

func renderNode(g Graph, r *render.Renderer, id int, opts Options) ([]any, error) {
	typ, err := g.NodeType(id)
	if err != nil {
		return nil, err
	}
	if opts.Products && typ != node.TypeProduct {
		return nil, nil
	}
	key, _ := g.Key(id)

	if !opts.Chunks {
		doc, err := r.Document(id, opts.Render)
		if err != nil {
			return nil, err
		}
		return []any{Document{ID: id, Key: key, Type: typ, Document: doc}}, nil
	}

	if typ != node.TypeProduct {
		return nil, nil
	}
	var out []any
	for _, attr := range ChunkAttributes {
		text, err := r.Chunk(id, attr)
		if err != nil {
			return nil, err
		}
		if text == "" {
			continue
		}
		out = append(out, Chunk{ID: id, Key: key, Attribute: attr, Text: text})
	}
	return out, nil
}

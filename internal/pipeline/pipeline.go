// Package pipeline is the construction entry point: it fetches raw records,
// links them, builds and augments the graph, and caches the results.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matsen/semikb/internal/blob"
	"github.com/matsen/semikb/internal/catalog"
	"github.com/matsen/semikb/internal/kg"
	"github.com/matsen/semikb/internal/linker"
	"github.com/matsen/semikb/internal/logging"
	"github.com/matsen/semikb/internal/node"
	"github.com/matsen/semikb/internal/render"
	"github.com/matsen/semikb/internal/source"
)

// Options configures a construction run.
type Options struct {
	Categories    []string // supported categories or "all"
	MetaLinkTypes []string // attribute kinds promoted to nodes, in order
	MaxEntries    int      // review/Q&A bound used by the renderer
	Undirected    bool
	Force         bool       // ignore cached bundles
	Schema        *kg.Schema // nil means kg.DefaultSchema
	Logger        *log.Logger
}

// Result is a constructed graph and its renderer.
type Result struct {
	Graph    *kg.Graph
	Renderer *render.Renderer
	Path     string // bundle path the graph was loaded from or saved to
	CacheHit bool   // the augmented bundle was loaded, not built
}

// Builder runs constructions against a raw source and a bundle store.
type Builder struct {
	src           source.Source
	store         blob.Store
	opts          Options
	schema        kg.Schema
	logger        *log.Logger
	constructions atomic.Int64
}

// NewBuilder creates a Builder.
func NewBuilder(src source.Source, store blob.Store, opts Options) *Builder {
	schema := kg.DefaultSchema()
	if opts.Schema != nil {
		schema = *opts.Schema
	}
	return &Builder{
		src:    src,
		store:  store,
		opts:   opts,
		schema: schema,
		logger: logging.OrDiscard(opts.Logger),
	}
}

// Constructions returns how many times the graph was built from raw records.
func (b *Builder) Constructions() int {
	return int(b.constructions.Load())
}

// Build returns the graph for the configured categories and kinds. An
// augmented bundle cached under the kinds is used when present and built
// from the same categories; otherwise the base bundle is loaded or built from
// raw records, augmented, and both are saved.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	sel, err := catalog.Resolve(b.opts.Categories)
	if err != nil {
		return nil, err
	}

	kinds := b.opts.MetaLinkTypes
	if err := blob.ValidateKinds(kinds); err != nil {
		return nil, err
	}
	path := blob.CachePath(kinds)

	if len(kinds) > 0 && !b.opts.Force {
		d, err := b.store.Load(ctx, path)
		switch {
		case err == nil && d.Selection.Equal(sel):
			b.logger.Info("loaded cached graph", "path", path, "nodes", len(d.Nodes), "edges", len(d.Edges))
			return b.result(d, path, true)
		case err == nil:
			b.logger.Info("cached graph built from other categories, rebuilding", "path", path, "cached", d.Selection.Review)
		case blob.IsNotFound(err):
			b.logger.Debug("no cached graph", "path", path)
		default:
			return nil, fmt.Errorf("loading cached graph: %w", err)
		}
	}

	base, err := b.base(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		return b.result(base, blob.BasePath, false)
	}

	b.logger.Info("adding meta link types", "kinds", kinds)
	d, err := kg.Augment(base, kinds, b.logger)
	if err != nil {
		return nil, fmt.Errorf("augmenting graph: %w", err)
	}
	if err := b.store.Save(ctx, path, d); err != nil {
		return nil, fmt.Errorf("saving graph to %s: %w", path, err)
	}
	b.logger.Info("saved graph", "path", path, "nodes", len(d.Nodes), "edges", len(d.Edges))
	return b.result(d, path, false)
}

func (b *Builder) result(d kg.Data, path string, hit bool) (*Result, error) {
	g, err := kg.New(d, b.opts.Undirected)
	if err != nil {
		return nil, fmt.Errorf("indexing graph %s: %w", path, err)
	}
	return &Result{
		Graph:    g,
		Renderer: render.New(g, b.opts.MaxEntries),
		Path:     path,
		CacheHit: hit,
	}, nil
}

// base loads the base bundle or builds and saves it.
func (b *Builder) base(ctx context.Context, sel catalog.Selection) (kg.Data, error) {
	if !b.opts.Force {
		d, err := b.store.Load(ctx, blob.BasePath)
		switch {
		case err == nil && d.Selection.Equal(sel):
			b.logger.Info("loaded processed graph", "nodes", len(d.Nodes), "edges", len(d.Edges))
			return d, nil
		case err == nil:
			b.logger.Info("processed graph built from other categories, rebuilding", "cached", d.Selection.Review)
		case !blob.IsNotFound(err):
			return kg.Data{}, fmt.Errorf("loading processed graph: %w", err)
		}
	}

	d, err := b.Construct(ctx, sel)
	if err != nil {
		return kg.Data{}, err
	}
	if err := b.store.Save(ctx, blob.BasePath, d); err != nil {
		return kg.Data{}, fmt.Errorf("saving processed graph: %w", err)
	}
	return d, nil
}

// Construct builds the base graph from raw records.
func (b *Builder) Construct(ctx context.Context, sel catalog.Selection) (kg.Data, error) {
	b.constructions.Add(1)

	in, err := b.fetch(ctx, sel)
	if err != nil {
		return kg.Data{}, err
	}
	b.logger.Info("loaded raw records", "metadata", len(in.Meta), "reviews", len(in.Review), "qa", len(in.QA))

	l, err := linker.Link(in, b.schema.LinkerColumns())
	if err != nil {
		return kg.Data{}, err
	}
	b.logger.Info("linked records", "entities", l.Len())

	d := kg.BuildBase(l, b.schema)
	d.Selection = sel
	b.logger.Info("constructed graph", "nodes", len(d.Nodes), "edges", len(d.Edges))
	return d, nil
}

// fetch reads every archive of the selection concurrently and concatenates
// the records in category order.
func (b *Builder) fetch(ctx context.Context, sel catalog.Selection) (linker.Input, error) {
	meta := make([][]source.RawRecord, len(sel.Review))
	reviews := make([][]source.RawRecord, len(sel.Review))
	qas := make([][]source.RawRecord, len(sel.QA))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, c := range sel.Review {
		g.Go(func() error {
			recs, err := b.src.Fetch(gctx, c, source.Metadata)
			if err != nil {
				return fmt.Errorf("fetching %s metadata: %w", c, err)
			}
			meta[i] = withCategory(recs, c)
			return nil
		})
		g.Go(func() error {
			recs, err := b.src.Fetch(gctx, c, source.Review)
			if err != nil {
				return fmt.Errorf("fetching %s reviews: %w", c, err)
			}
			reviews[i] = recs
			return nil
		})
	}
	for i, c := range sel.QA {
		g.Go(func() error {
			recs, err := b.src.Fetch(gctx, c, source.QA)
			if err != nil {
				return fmt.Errorf("fetching %s qa: %w", c, err)
			}
			qas[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return linker.Input{}, err
	}

	return linker.Input{
		Meta:   concat(meta),
		Review: concat(reviews),
		QA:     concat(qas),
	}, nil
}

// withCategory copies metadata records, setting global_category to the
// category's display name.
func withCategory(recs []source.RawRecord, category string) []source.RawRecord {
	name := catalog.DisplayName(category)
	out := make([]source.RawRecord, len(recs))
	for i, r := range recs {
		c := make(source.RawRecord, len(r)+1)
		for k, v := range r {
			c[k] = v
		}
		c[node.AttrGlobalCategory] = name
		out[i] = c
	}
	return out
}

func concat(parts [][]source.RawRecord) []source.RawRecord {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]source.RawRecord, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// IsNotFound reports whether err is a missing raw archive or bundle.
func IsNotFound(err error) bool {
	return errors.Is(err, source.ErrNotFound) || blob.IsNotFound(err)
}

// Package storage handles graph persistence: zstd-compressed JSONL bundles
// as the source of truth and an ephemeral SQLite search index.
package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/matsen/semikb/internal/catalog"
	"github.com/matsen/semikb/internal/edge"
	"github.com/matsen/semikb/internal/kg"
	"github.com/matsen/semikb/internal/node"
)

// BundleFile is the file name of a bundle inside its directory.
const BundleFile = "bundle.jsonl.zst"

// MaxJSONLLineCapacity is the maximum buffer size for reading a bundle line.
// Node lines carry every review of a product, so this is generous.
const MaxJSONLLineCapacity = 64 * 1024 * 1024

const (
	bundleFormat  = "semikb-bundle"
	bundleVersion = 1
)

// ErrCorrupt is returned when a bundle cannot be decoded.
var ErrCorrupt = errors.New("corrupt bundle")

// header is the first line of a bundle.
type header struct {
	Format       string            `json:"format"`
	Version      int               `json:"version"`
	Nodes        int               `json:"nodes"`
	Edges        int               `json:"edges"`
	NodeTypeDict map[int]string    `json:"node_type_dict"`
	EdgeTypeDict map[int]string    `json:"edge_type_dict"`
	Selection    catalog.Selection `json:"selection"`
}

// nodeLine is one node of a bundle.
type nodeLine struct {
	ID    int         `json:"id"`
	Type  int         `json:"type"`
	Key   string      `json:"key,omitempty"`
	Attrs node.Record `json:"attrs"`
}

// WriteBundle writes d as zstd-compressed JSONL: a header line, one line per
// node in id order, then one line per edge in discovery order. Map keys are
// sorted by encoding/json, so equal data always yields equal bytes.
func WriteBundle(w io.Writer, d kg.Data) error {
	if len(d.NodeTypes) != len(d.Nodes) {
		return fmt.Errorf("%d node types for %d nodes", len(d.NodeTypes), len(d.Nodes))
	}

	zw, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}

	bw := bufio.NewWriter(zw)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)

	h := header{
		Format:       bundleFormat,
		Version:      bundleVersion,
		Nodes:        len(d.Nodes),
		Edges:        len(d.Edges),
		NodeTypeDict: d.NodeTypeDict,
		EdgeTypeDict: d.EdgeTypeDict,
		Selection:    d.Selection,
	}
	if err := enc.Encode(h); err != nil {
		zw.Close()
		return fmt.Errorf("encoding header: %w", err)
	}

	for i, rec := range d.Nodes {
		nl := nodeLine{ID: i, Type: d.NodeTypes[i], Attrs: rec}
		if i < len(d.Keys) {
			nl.Key = d.Keys[i]
		}
		if err := enc.Encode(nl); err != nil {
			zw.Close()
			return fmt.Errorf("encoding node %d: %w", i, err)
		}
	}

	for i, e := range d.Edges {
		if err := enc.Encode(e); err != nil {
			zw.Close()
			return fmt.Errorf("encoding edge %d: %w", i, err)
		}
	}

	if err := bw.Flush(); err != nil {
		zw.Close()
		return fmt.Errorf("flushing bundle: %w", err)
	}
	return zw.Close()
}

// ReadBundle decodes a bundle written by WriteBundle.
func ReadBundle(r io.Reader) (kg.Data, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return kg.Data{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer zr.Close()

	scanner := bufio.NewScanner(zr)
	buf := make([]byte, 1024*1024)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return kg.Data{}, fmt.Errorf("%w: reading header: %v", ErrCorrupt, err)
		}
		return kg.Data{}, fmt.Errorf("%w: empty bundle", ErrCorrupt)
	}

	var h header
	if err := json.Unmarshal(scanner.Bytes(), &h); err != nil {
		return kg.Data{}, fmt.Errorf("%w: parsing header: %v", ErrCorrupt, err)
	}
	if h.Format != bundleFormat || h.Version != bundleVersion {
		return kg.Data{}, fmt.Errorf("%w: unsupported format %q version %d", ErrCorrupt, h.Format, h.Version)
	}

	d := kg.Data{
		Nodes:        make([]node.Record, 0, h.Nodes),
		NodeTypes:    make([]int, 0, h.Nodes),
		NodeTypeDict: h.NodeTypeDict,
		Edges:        make([]edge.Edge, 0, h.Edges),
		EdgeTypeDict: h.EdgeTypeDict,
		Selection:    h.Selection,
	}
	if d.NodeTypeDict == nil {
		d.NodeTypeDict = map[int]string{}
	}
	if d.EdgeTypeDict == nil {
		d.EdgeTypeDict = map[int]string{}
	}

	hasKeys := false
	keys := make([]string, 0, h.Nodes)
	lineNum := 1
	for len(d.Nodes) < h.Nodes && scanner.Scan() {
		lineNum++
		var nl nodeLine
		if err := json.Unmarshal(scanner.Bytes(), &nl); err != nil {
			return kg.Data{}, fmt.Errorf("%w: parsing line %d: %v", ErrCorrupt, lineNum, err)
		}
		if nl.ID != len(d.Nodes) {
			return kg.Data{}, fmt.Errorf("%w: line %d has node id %d, want %d", ErrCorrupt, lineNum, nl.ID, len(d.Nodes))
		}
		if nl.Attrs == nil {
			nl.Attrs = node.Record{}
		}
		d.Nodes = append(d.Nodes, nl.Attrs)
		d.NodeTypes = append(d.NodeTypes, nl.Type)
		keys = append(keys, nl.Key)
		hasKeys = hasKeys || nl.Key != ""
	}
	if hasKeys {
		d.Keys = trimTrailingEmpty(keys)
	}

	for len(d.Edges) < h.Edges && scanner.Scan() {
		lineNum++
		var e edge.Edge
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return kg.Data{}, fmt.Errorf("%w: parsing line %d: %v", ErrCorrupt, lineNum, err)
		}
		d.Edges = append(d.Edges, e)
	}

	if err := scanner.Err(); err != nil {
		return kg.Data{}, fmt.Errorf("%w: reading bundle: %v", ErrCorrupt, err)
	}
	if len(d.Nodes) != h.Nodes || len(d.Edges) != h.Edges {
		return kg.Data{}, fmt.Errorf("%w: truncated: %d/%d nodes, %d/%d edges",
			ErrCorrupt, len(d.Nodes), h.Nodes, len(d.Edges), h.Edges)
	}
	return d, nil
}

// trimTrailingEmpty drops the keys of trailing synthetic nodes so a decoded
// bundle matches the data it was written from.
func trimTrailingEmpty(keys []string) []string {
	n := len(keys)
	for n > 0 && keys[n-1] == "" {
		n--
	}
	return keys[:n]
}

// EncodeBundle returns the bundle bytes of d.
func EncodeBundle(d kg.Data) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteBundle(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBundle parses bundle bytes.
func DecodeBundle(data []byte) (kg.Data, error) {
	return ReadBundle(bytes.NewReader(data))
}

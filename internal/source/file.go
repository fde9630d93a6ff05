package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kaptinlin/jsonrepair"
	"github.com/klauspost/compress/gzip"
	"github.com/matsen/semikb/internal/catalog"
)

// MaxLineCapacity bounds a single raw record line. Metadata lines with long
// descriptions run to several megabytes.
const MaxLineCapacity = 32 * 1024 * 1024

// FileName returns the archive name holding category/kind.
func FileName(category string, kind Kind) string {
	switch kind {
	case Metadata:
		return "meta_" + category + ".json.gz"
	case QA:
		return "qa_" + category + ".json.gz"
	}
	return category + ".json.gz"
}

// Available reports whether category publishes an archive of kind.
func Available(category string, kind Kind) bool {
	if kind == QA {
		return catalog.HasQA(category)
	}
	return catalog.HasReviews(category)
}

// FileSource reads gzip-compressed line-delimited archives from a directory.
type FileSource struct {
	dir string
}

// NewFileSource creates a source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Path returns the archive path for category/kind.
func (s *FileSource) Path(category string, kind Kind) string {
	return filepath.Join(s.dir, FileName(category, kind))
}

// Fetch decodes every record of the archive.
func (s *FileSource) Fetch(ctx context.Context, category string, kind Kind) ([]RawRecord, error) {
	if !Available(category, kind) {
		return nil, notFound(category, kind, "category has no such archive")
	}

	path := s.Path(category, kind)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(category, kind, path)
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream %s: %w", path, err)
	}
	defer zr.Close()

	recs, err := ReadRecords(ctx, zr)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return recs, nil
}

// ReadRecords decodes one record per line. Lines that are not strict JSON
// (the Q&A archives are written as Python literals) are repaired first.
func ReadRecords(ctx context.Context, r io.Reader) ([]RawRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), MaxLineCapacity)

	var recs []RawRecord
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		rec, err := decodeLine(line)
		if err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		recs = append(recs, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

func decodeLine(line []byte) (RawRecord, error) {
	var rec RawRecord
	err := json.Unmarshal(line, &rec)
	if err == nil {
		return rec, nil
	}

	repaired, rerr := jsonrepair.JSONRepair(string(line))
	if rerr != nil {
		return nil, fmt.Errorf("%w (repair failed: %v)", err, rerr)
	}
	rec = nil
	if err := json.Unmarshal([]byte(repaired), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal after repair: %w", err)
	}
	return rec, nil
}

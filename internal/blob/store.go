// Package blob loads and saves graph bundles as single atomic units.
package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/matsen/semikb/internal/kg"
)

// ErrNotFound is returned when no bundle exists at a path.
var ErrNotFound = errors.New("bundle not found")

// ErrInvalidKind is returned for a kind that cannot name a cache path.
var ErrInvalidKind = errors.New("invalid meta link type")

// kindSeparator joins kinds into a cache directory name.
const kindSeparator = "-"

// Store persists whole bundles. A failed Save leaves any previous bundle at
// the same path readable and never exposes a partial one.
type Store interface {
	Load(ctx context.Context, path string) (kg.Data, error)
	Save(ctx context.Context, path string, d kg.Data) error
}

// IsNotFound reports whether err means the bundle is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, os.ErrNotExist)
}

// ValidateKinds checks that every kind is a single non-empty path element
// free of the separator, so distinct kind lists map to distinct cache paths
// inside CacheDir.
func ValidateKinds(kinds []string) error {
	for _, k := range kinds {
		switch {
		case k == "":
			return fmt.Errorf("%w: empty", ErrInvalidKind)
		case k == ".", strings.Contains(k, ".."), strings.ContainsAny(k, `/\`+kindSeparator):
			return fmt.Errorf("%w: %q", ErrInvalidKind, k)
		}
	}
	return nil
}

// CachePath returns the bundle path for an ordered list of augmentation
// kinds, relative to the processed root. No kinds means the base bundle.
// Kinds must pass ValidateKinds.
func CachePath(kinds []string) string {
	if len(kinds) == 0 {
		return BasePath
	}
	return path.Join(CacheDir, strings.Join(kinds, kindSeparator))
}

// Bundle paths relative to the processed root.
const (
	BasePath = "base"
	CacheDir = "cache"
)

package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matsen/semikb/internal/kg"
	"github.com/matsen/semikb/internal/storage"
)

// LocalStore keeps each bundle in its own directory under root.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at the given directory.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

// Dir returns the directory holding the bundle at path.
func (s *LocalStore) Dir(path string) string {
	return filepath.Join(s.root, filepath.FromSlash(path))
}

// Load reads the bundle at path.
func (s *LocalStore) Load(ctx context.Context, path string) (kg.Data, error) {
	if err := ctx.Err(); err != nil {
		return kg.Data{}, err
	}

	f, err := os.Open(filepath.Join(s.Dir(path), storage.BundleFile))
	if err != nil {
		if os.IsNotExist(err) {
			return kg.Data{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return kg.Data{}, fmt.Errorf("opening bundle: %w", err)
	}
	defer f.Close()

	d, err := storage.ReadBundle(f)
	if err != nil {
		return kg.Data{}, fmt.Errorf("reading bundle %s: %w", path, err)
	}
	return d, nil
}

// Save writes the bundle into a temporary sibling directory and renames it
// into place. An existing bundle is moved aside first and removed after the
// swap.
func (s *LocalStore) Save(ctx context.Context, path string, d kg.Data) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := s.Dir(path)
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("creating bundle parent: %w", err)
	}

	tmp, err := os.MkdirTemp(parent, ".tmp-"+filepath.Base(dir)+"-")
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	if err := writeBundleFile(filepath.Join(tmp, storage.BundleFile), d); err != nil {
		return err
	}
	if err := os.Chmod(tmp, 0755); err != nil {
		return fmt.Errorf("setting bundle permissions: %w", err)
	}

	var old string
	if _, err := os.Stat(dir); err == nil {
		old = tmp + ".old"
		if err := os.Rename(dir, old); err != nil {
			return fmt.Errorf("moving previous bundle aside: %w", err)
		}
	}

	if err := os.Rename(tmp, dir); err != nil {
		if old != "" {
			_ = os.Rename(old, dir)
		}
		return fmt.Errorf("renaming bundle into place: %w", err)
	}
	if old != "" {
		_ = os.RemoveAll(old)
	}
	return nil
}

func writeBundleFile(name string, d kg.Data) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("creating bundle file: %w", err)
	}
	if err := storage.WriteBundle(f, d); err != nil {
		f.Close()
		return fmt.Errorf("writing bundle: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing bundle: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing bundle: %w", err)
	}
	return nil
}

package boundary

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"batcharchive/internal/model"
)

// BoundaryFileName is the per-root state file holding the last automatic-run
// cutoff as a single YYYY-MM-DD line. It lives inside the root so the state
// travels with the data tree it describes.
const BoundaryFileName = ".archive-boundary"

// FileStore is the default Store implementation: one dated file per root.
type FileStore struct{}

// NewFileStore creates a file-backed boundary store.
func NewFileStore() *FileStore { return &FileStore{} }

var _ Store = (*FileStore)(nil)

// Read loads the boundary file. A missing file means no prior run.
func (s *FileStore) Read(_ context.Context, root string) (model.BatchDate, bool, error) {
	raw, err := os.ReadFile(filepath.Join(root, BoundaryFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return model.BatchDate{}, false, nil
		}
		return model.BatchDate{}, false, fmt.Errorf("read boundary file: %w", err)
	}
	d, err := model.ParseBatchDate(strings.TrimSpace(string(raw)))
	if err != nil {
		return model.BatchDate{}, false, fmt.Errorf("corrupt boundary file: %w", err)
	}
	return d, true, nil
}

// Write replaces the boundary file atomically (write to temp, rename).
func (s *FileStore) Write(_ context.Context, root string, d model.BatchDate) error {
	path := filepath.Join(root, BoundaryFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(d.String()+"\n"), 0o644); err != nil {
		return fmt.Errorf("write boundary file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace boundary file: %w", err)
	}
	return nil
}

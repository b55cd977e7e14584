// Package scanner enumerates supplier batch directories under a root path.
//
// Layout expected on disk:
//
//	<root>/<supplier>/<YYYY-MM-DD>/...
//
// Only allow-listed suppliers are visited. Directory names that do not parse
// as dates are skipped and reported, never fed into date comparisons.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"

	"batcharchive/internal/model"
)

// Scanner walks a batch-files tree against an injected supplier allow-list.
type Scanner struct {
	allowed map[model.SupplierKey]struct{}
}

// New creates a Scanner for the given supplier allow-list.
func New(suppliers []string) *Scanner {
	allowed := make(map[model.SupplierKey]struct{}, len(suppliers))
	for _, s := range suppliers {
		allowed[model.SupplierKey(s)] = struct{}{}
	}
	return &Scanner{allowed: allowed}
}

// Stats records what the walk skipped. Skips are warnings, never failures.
type Stats struct {
	// UnknownSuppliers lists directory names under root that are not in the
	// allow-list. Their contents are never visited.
	UnknownSuppliers []string
	// MalformedNames lists supplier/name pairs whose name is not a valid
	// batch date.
	MalformedNames []string
}

// Walk enumerates batch units under root in a single lazy pass and calls
// visit for each one. Suppliers and their batch directories are visited in
// lexicographic order (the order os.ReadDir returns). An error from visit
// aborts the walk and is returned as-is; the stats collected so far are
// still returned.
func (s *Scanner) Walk(root string, visit func(model.BatchUnit) error) (*Stats, error) {
	stats := &Stats{}

	entries, err := os.ReadDir(root)
	if err != nil {
		return stats, fmt.Errorf("read batch-files root: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		supplier := model.SupplierKey(entry.Name())
		if _, ok := s.allowed[supplier]; !ok {
			stats.UnknownSuppliers = append(stats.UnknownSuppliers, entry.Name())
			continue
		}

		supplierDir := filepath.Join(root, entry.Name())
		batches, err := os.ReadDir(supplierDir)
		if err != nil {
			return stats, fmt.Errorf("read supplier directory %s: %w", supplierDir, err)
		}

		for _, batch := range batches {
			if !batch.IsDir() {
				continue
			}
			date, err := model.ParseBatchDate(batch.Name())
			if err != nil {
				stats.MalformedNames = append(stats.MalformedNames,
					entry.Name()+"/"+batch.Name())
				continue
			}
			unit := model.BatchUnit{
				Supplier: supplier,
				Date:     date,
				Dir:      filepath.Join(supplierDir, batch.Name()),
			}
			if err := visit(unit); err != nil {
				return stats, err
			}
		}
	}

	return stats, nil
}

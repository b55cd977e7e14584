package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batcharchive/internal/model"
)

func mkTree(t *testing.T, paths ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, p := range paths {
		require.NoError(t, os.MkdirAll(filepath.Join(root, p), 0o755))
	}
	return root
}

func collect(t *testing.T, s *Scanner, root string) ([]model.BatchUnit, *Stats) {
	t.Helper()
	var units []model.BatchUnit
	stats, err := s.Walk(root, func(u model.BatchUnit) error {
		units = append(units, u)
		return nil
	})
	require.NoError(t, err)
	return units, stats
}

func TestWalk(t *testing.T) {
	root := mkTree(t,
		"supplier1/2024-01-01",
		"supplier1/2024-01-05",
		"supplier2/2024-02-10",
	)

	units, stats := collect(t, New([]string{"supplier1", "supplier2"}), root)

	require.Len(t, units, 3)
	assert.Equal(t, model.SupplierKey("supplier1"), units[0].Supplier)
	assert.Equal(t, "2024-01-01", units[0].Date.String())
	assert.Equal(t, filepath.Join(root, "supplier1", "2024-01-01"), units[0].Dir)
	assert.Equal(t, "2024-01-05", units[1].Date.String())
	assert.Equal(t, model.SupplierKey("supplier2"), units[2].Supplier)

	assert.Empty(t, stats.UnknownSuppliers)
	assert.Empty(t, stats.MalformedNames)
}

func TestWalk_UnknownSupplierSkippedEntirely(t *testing.T) {
	root := mkTree(t,
		"supplier1/2024-01-01",
		"unknownsupplier/2024-01-02",
	)

	units, stats := collect(t, New([]string{"supplier1"}), root)

	// The unknown supplier's batches never surface as units.
	require.Len(t, units, 1)
	assert.Equal(t, model.SupplierKey("supplier1"), units[0].Supplier)
	assert.Equal(t, []string{"unknownsupplier"}, stats.UnknownSuppliers)
}

func TestWalk_MalformedBatchNameSkipped(t *testing.T) {
	root := mkTree(t,
		"supplier1/2024-01-01",
		"supplier1/notadate",
		"supplier1/2024-1-5",
	)

	units, stats := collect(t, New([]string{"supplier1"}), root)

	require.Len(t, units, 1)
	assert.Equal(t, "2024-01-01", units[0].Date.String())
	assert.ElementsMatch(t,
		[]string{"supplier1/notadate", "supplier1/2024-1-5"},
		stats.MalformedNames)
}

func TestWalk_IgnoresPlainFiles(t *testing.T) {
	root := mkTree(t, "supplier1/2024-01-01")
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "supplier1", "stray.csv"), []byte("x"), 0o644))

	units, stats := collect(t, New([]string{"supplier1"}), root)

	require.Len(t, units, 1)
	assert.Empty(t, stats.UnknownSuppliers)
	assert.Empty(t, stats.MalformedNames)
}

func TestWalk_OrderWithinSupplierIsLexicographic(t *testing.T) {
	root := mkTree(t,
		"supplier1/2024-03-01",
		"supplier1/2024-01-15",
		"supplier1/2023-12-31",
	)

	units, _ := collect(t, New([]string{"supplier1"}), root)

	require.Len(t, units, 3)
	assert.Equal(t, "2023-12-31", units[0].Date.String())
	assert.Equal(t, "2024-01-15", units[1].Date.String())
	assert.Equal(t, "2024-03-01", units[2].Date.String())
}

func TestWalk_VisitErrorAbortsWalk(t *testing.T) {
	root := mkTree(t,
		"supplier1/2024-01-01",
		"supplier1/2024-01-02",
	)

	boom := errors.New("stop")
	calls := 0
	_, err := New([]string{"supplier1"}).Walk(root, func(model.BatchUnit) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWalk_MissingRoot(t *testing.T) {
	_, err := New([]string{"supplier1"}).Walk(filepath.Join(t.TempDir(), "nope"), func(model.BatchUnit) error {
		t.Fatal("visit must not be called")
		return nil
	})
	assert.Error(t, err)
}

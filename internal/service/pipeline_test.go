package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"batcharchive/internal/crypto"
	cryptoMocks "batcharchive/internal/crypto/mocks"
	"batcharchive/internal/model"
	"batcharchive/internal/pack"
	packMocks "batcharchive/internal/pack/mocks"
	"batcharchive/internal/storage"
	storeMocks "batcharchive/internal/storage/mocks"
)

const testPassphrase = "correct horse battery"

func newUnit(t *testing.T, supplier, date string) model.BatchUnit {
	t.Helper()
	d, err := model.ParseBatchDate(date)
	require.NoError(t, err)
	dir := filepath.Join(t.TempDir(), supplier, date)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.csv"), []byte("a,b\n1,2\n"), 0o644))
	return model.BatchUnit{Supplier: model.SupplierKey(supplier), Date: d, Dir: dir}
}

func discardLog() *EventLogger { return NewEventLogger(io.Discard, "test-run") }

func TestPipeline_UploadAndDelete(t *testing.T) {
	ctx := context.Background()
	unit := newUnit(t, "supplier1", "2024-01-01")
	work := t.TempDir()

	mStore := new(storeMocks.MockStorage)
	mStore.On("Put", ctx, "supplier1/2024-01-01.tar.gz", mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{Key: "supplier1/2024-01-01.tar.gz"}, nil)

	pl := NewPipeline(pack.NewTarGz(), crypto.NewSealer(), mStore, nil, discardLog())
	res := pl.Process(ctx, unit, PipelineOptions{WorkDir: work, Upload: true, DeleteSource: true})

	assert.Equal(t, model.StatusArchived, res.Status)
	assert.Empty(t, res.CleanupErr)

	// Source deleted only after confirmed upload; artifact is transient.
	_, err := os.Stat(unit.Dir)
	assert.True(t, os.IsNotExist(err), "source directory must be deleted")
	_, err = os.Stat(filepath.Join(work, "supplier1", "2024-01-01.tar.gz"))
	assert.True(t, os.IsNotExist(err), "uploaded artifact must be removed")

	mStore.AssertExpectations(t)
}

func TestPipeline_UploadWithoutDeleteKeepsSource(t *testing.T) {
	ctx := context.Background()
	unit := newUnit(t, "supplier1", "2024-01-01")

	mStore := new(storeMocks.MockStorage)
	mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{}, nil)

	pl := NewPipeline(pack.NewTarGz(), crypto.NewSealer(), mStore, nil, discardLog())
	res := pl.Process(ctx, unit, PipelineOptions{WorkDir: t.TempDir(), Upload: true})

	assert.Equal(t, model.StatusArchived, res.Status)
	_, err := os.Stat(unit.Dir)
	assert.NoError(t, err, "source must remain when deletion was not requested")
}

func TestPipeline_NoUploadPreservesArtifactAndSource(t *testing.T) {
	ctx := context.Background()
	unit := newUnit(t, "supplier1", "2024-01-05")
	work := t.TempDir()

	mStore := new(storeMocks.MockStorage)

	pl := NewPipeline(pack.NewTarGz(), crypto.NewSealer(), mStore, nil, discardLog())
	res := pl.Process(ctx, unit, PipelineOptions{WorkDir: work, Upload: false})

	assert.Equal(t, model.StatusArchivedNotUploaded, res.Status)
	_, err := os.Stat(filepath.Join(work, "supplier1", "2024-01-05.tar.gz"))
	assert.NoError(t, err, "artifact must be preserved for the no-upload case")
	_, err = os.Stat(unit.Dir)
	assert.NoError(t, err)

	mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestPipeline_EncryptionRenamesArtifact(t *testing.T) {
	ctx := context.Background()
	unit := newUnit(t, "supplier1", "2024-01-01")
	work := t.TempDir()

	mStore := new(storeMocks.MockStorage)
	mStore.On("Put", ctx, "supplier1/2024-01-01.tar.gz.enc", mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{}, nil)

	pl := NewPipeline(pack.NewTarGz(), crypto.NewSealer(), mStore, nil, discardLog())
	res := pl.Process(ctx, unit, PipelineOptions{WorkDir: work, Upload: true, Passphrase: testPassphrase})

	assert.Equal(t, model.StatusArchived, res.Status)
	// The plaintext intermediate never survives encryption.
	_, err := os.Stat(filepath.Join(work, "supplier1", "2024-01-01.tar.gz"))
	assert.True(t, os.IsNotExist(err))
	mStore.AssertExpectations(t)
}

func TestPipeline_PackFailure(t *testing.T) {
	ctx := context.Background()
	unit := newUnit(t, "supplier1", "2024-01-01")

	mPacker := new(packMocks.MockPacker)
	mPacker.On("Pack", ctx, unit.Dir, mock.Anything).Return(errors.New("disk full"))
	mStore := new(storeMocks.MockStorage)

	pl := NewPipeline(mPacker, crypto.NewSealer(), mStore, nil, discardLog())
	res := pl.Process(ctx, unit, PipelineOptions{WorkDir: t.TempDir(), Upload: true, DeleteSource: true})

	assert.Equal(t, model.StatusFailed, res.Status)
	assert.Equal(t, model.StagePack, res.Stage)
	assert.Contains(t, res.Err, "disk full")

	_, err := os.Stat(unit.Dir)
	assert.NoError(t, err, "source must survive a failed pipeline")
	mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mPacker.AssertExpectations(t)
}

func TestPipeline_EncryptFailureShortCircuitsUpload(t *testing.T) {
	ctx := context.Background()
	unit := newUnit(t, "supplier1", "2024-01-01")

	mSealer := new(cryptoMocks.MockEncrypter)
	mSealer.On("Encrypt", ctx, mock.Anything, mock.Anything, testPassphrase).
		Return(errors.New("cipher init failed"))
	mStore := new(storeMocks.MockStorage)

	pl := NewPipeline(pack.NewTarGz(), mSealer, mStore, nil, discardLog())
	res := pl.Process(ctx, unit, PipelineOptions{
		WorkDir: t.TempDir(), Upload: true, DeleteSource: true, Passphrase: testPassphrase,
	})

	assert.Equal(t, model.StatusFailed, res.Status)
	assert.Equal(t, model.StageEncrypt, res.Stage)

	_, err := os.Stat(unit.Dir)
	assert.NoError(t, err)
	mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mSealer.AssertExpectations(t)
}

// Deletion invariant: an upload failure must leave the source directory in
// place even when deletion was requested.
func TestPipeline_UploadFailureNeverDeletesSource(t *testing.T) {
	ctx := context.Background()
	unit := newUnit(t, "supplier1", "2024-01-01")

	mStore := new(storeMocks.MockStorage)
	mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{}, errors.New("connection reset"))

	pl := NewPipeline(pack.NewTarGz(), crypto.NewSealer(), mStore, nil, discardLog())
	res := pl.Process(ctx, unit, PipelineOptions{WorkDir: t.TempDir(), Upload: true, DeleteSource: true})

	assert.Equal(t, model.StatusFailed, res.Status)
	assert.Equal(t, model.StageUpload, res.Stage)
	assert.Contains(t, res.Err, "connection reset")

	_, err := os.Stat(unit.Dir)
	assert.NoError(t, err, "no deletion without a durable remote copy")
	mStore.AssertExpectations(t)
}

// Idempotence: two runs over the same unchanged unit produce identical
// packed artifact bytes.
func TestPipeline_RepeatedRunsProduceIdenticalArtifacts(t *testing.T) {
	ctx := context.Background()
	unit := newUnit(t, "supplier1", "2024-01-01")

	pl := NewPipeline(pack.NewTarGz(), crypto.NewSealer(), nil, nil, discardLog())

	work1, work2 := t.TempDir(), t.TempDir()
	res1 := pl.Process(ctx, unit, PipelineOptions{WorkDir: work1, Upload: false})
	res2 := pl.Process(ctx, unit, PipelineOptions{WorkDir: work2, Upload: false})
	require.Equal(t, model.StatusArchivedNotUploaded, res1.Status)
	require.Equal(t, model.StatusArchivedNotUploaded, res2.Status)

	b1, err := os.ReadFile(filepath.Join(work1, "supplier1", "2024-01-01.tar.gz"))
	require.NoError(t, err)
	b2, err := os.ReadFile(filepath.Join(work2, "supplier1", "2024-01-01.tar.gz"))
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

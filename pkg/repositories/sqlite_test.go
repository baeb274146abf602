package repositories

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cbodonnell/statexfer/pkg/repositories/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteRepository(t *testing.T) Repository {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "statexfer.db")
	repo, err := NewSQLiteRepository(ctx, path, "../../migrations/sqlite")
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close(ctx)
	})
	return repo
}

func TestSQLiteRepositoryCaptures(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLiteRepository(t)

	first := &models.Capture{
		Source:     "tcp",
		ReceivedAt: 1000,
		Size:       4,
		CRC:        0xDEADBEEF,
		Objects:    2,
		Mismatches: 1,
		Data:       []byte{1, 2, 3, 4},
	}
	require.NoError(t, repo.SaveCapture(ctx, first))
	_, err := uuid.Parse(first.ID)
	require.NoError(t, err)

	second := &models.Capture{Source: "dir", ReceivedAt: 2000}
	require.NoError(t, repo.SaveCapture(ctx, second))

	loaded, err := repo.LoadCapture(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, loaded)

	loaded, err = repo.LoadCapture(ctx, second.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Data)

	captures, err := repo.ListCaptures(ctx, 10)
	require.NoError(t, err)
	require.Len(t, captures, 2)
	assert.Equal(t, second.ID, captures[0].ID)
	assert.Equal(t, first.ID, captures[1].ID)
	assert.Nil(t, captures[1].Data)
	assert.Equal(t, uint32(0xDEADBEEF), captures[1].CRC)

	captures, err = repo.ListCaptures(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, captures, 1)
}

func TestSQLiteRepositoryCaptureNotFound(t *testing.T) {
	repo := newTestSQLiteRepository(t)
	id := uuid.NewString()
	_, err := repo.LoadCapture(context.Background(), id)
	assert.True(t, IsNotFound(err))
	assert.EqualError(t, err, "capture "+id+" not found")
}

func TestSQLiteRepositoryInvalidCaptureID(t *testing.T) {
	repo := newTestSQLiteRepository(t)
	err := repo.SaveCapture(context.Background(), &models.Capture{ID: "not-a-uuid"})
	assert.Error(t, err)
}

func TestSQLiteRepositoryCRCFrames(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLiteRepository(t)

	for _, frame := range []*models.CRCFrame{
		{Session: "a", Frame: 2, CRC: 0x22, Log: []byte("frame 2")},
		{Session: "a", Frame: 1, CRC: 0x11, Log: []byte("frame 1")},
		{Session: "b", Frame: 1, CRC: 0x99},
	} {
		require.NoError(t, repo.SaveCRCFrame(ctx, frame))
	}
	// a second save of the same frame replaces it
	require.NoError(t, repo.SaveCRCFrame(ctx, &models.CRCFrame{Session: "a", Frame: 2, CRC: 0x23, Log: []byte("frame 2b")}))

	frames, err := repo.ListCRCFrames(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []*models.CRCFrame{
		{Session: "a", Frame: 1, CRC: 0x11, Log: []byte("frame 1")},
		{Session: "a", Frame: 2, CRC: 0x23, Log: []byte("frame 2b")},
	}, frames)

	frames, err = repo.ListCRCFrames(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, frames)
}

func TestNewSQLiteRepositoryMissingMigrations(t *testing.T) {
	_, err := NewSQLiteRepository(context.Background(), filepath.Join(t.TempDir(), "x.db"), "does-not-exist")
	assert.Error(t, err)
}

func TestNewRepository(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "open.db")

	repo, err := NewRepository(ctx, "sqlite://"+path, "../../migrations")
	require.NoError(t, err)
	require.NoError(t, repo.Close(ctx))

	_, err = NewRepository(ctx, "mysql://localhost/db", "../../migrations")
	assert.Error(t, err)
}

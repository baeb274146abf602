package crcdiff

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/cbodonnell/statexfer/pkg/repositories"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFrame(t *testing.T, fs afero.Fs, dir, name, content string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(dir, 0o755))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, name), []byte(content), 0o644))
}

func TestParseFrameName(t *testing.T) {
	tests := []struct {
		name   string
		want   uint32
		wantOK bool
	}{
		{name: "crc_frame_0007.txt", want: 7, wantOK: true},
		{name: "crc_frame_12345.txt", want: 12345, wantOK: true},
		{name: "crc_frame_.txt"},
		{name: "crc_frame_0007.txt.bak"},
		{name: "notes.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseFrameName(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFrameCRC(t *testing.T) {
	tests := []struct {
		name      string
		log       string
		wantFinal string
		wantCRC   string
	}{
		{name: "trailer", log: "a: 1\nFinalCRC: 0x0000ABCD\n\n", wantFinal: "FinalCRC: 0x0000ABCD", wantCRC: "0x0000ABCD"},
		{name: "no trailer", log: "a: 1\nb: 2\n", wantFinal: "b: 2", wantCRC: "b: 2"},
		{name: "empty", log: "", wantFinal: "", wantCRC: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Frame{Log: []byte(tt.log)}
			assert.Equal(t, tt.wantFinal, f.FinalLine())
			assert.Equal(t, tt.wantCRC, f.CRC())
		})
	}
}

func TestCompareDirs(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, dir := range []string{"/a", "/b"} {
		writeFrame(t, fs, dir, "crc_frame_0001.txt", "x: 1\nFinalCRC: 0x00000001\n")
		writeFrame(t, fs, dir, "crc_frame_0010.txt", "x: 10\nFinalCRC: 0x00000010\n")
	}
	writeFrame(t, fs, "/a", "crc_frame_0002.txt", "x: 2\ny: 3\nFinalCRC: 0x00000002\n")
	writeFrame(t, fs, "/b", "crc_frame_0002.txt", "x: 2\ny: 4\nFinalCRC: 0x00000003\n")
	// only on one side
	writeFrame(t, fs, "/a", "crc_frame_0000.txt", "FinalCRC: 0x00000000\n")
	writeFrame(t, fs, "/b", "readme.txt", "ignored")

	result, err := CompareDirs(fs, "/a", "/b")
	require.NoError(t, err)
	require.NotNil(t, result.Mismatch)
	assert.Equal(t, 2, result.Compared)
	assert.Equal(t, &Mismatch{
		Frame:    2,
		Name:     "crc_frame_0002.txt",
		LineA:    "FinalCRC: 0x00000002",
		LineB:    "FinalCRC: 0x00000003",
		DiffLine: 2,
		DiffA:    "y: 3",
		DiffB:    "y: 4",
	}, result.Mismatch)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, "/a", "/b", result))
	assert.Equal(t, "Mismatch found:\n"+
		"  file: crc_frame_0002.txt\n"+
		"  /a: FinalCRC: 0x00000002\n"+
		"  /b: FinalCRC: 0x00000003\n"+
		"  first differing line 2:\n"+
		"    /a: y: 3\n"+
		"    /b: y: 4\n", buf.String())
}

func TestCompareDirsNoMismatch(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, dir := range []string{"/a", "/b"} {
		writeFrame(t, fs, dir, "crc_frame_0001.txt", "FinalCRC: 0x00000001\n")
	}
	result, err := CompareDirs(fs, "/a", "/b")
	require.NoError(t, err)
	assert.Nil(t, result.Mismatch)
	assert.Equal(t, 1, result.Compared)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, "/a", "/b", result))
	assert.Equal(t, "No mismatches found.\n", buf.String())
}

func TestCompareDirsErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFrame(t, fs, "/a", "crc_frame_0001.txt", "FinalCRC: 0x1\n")
	writeFrame(t, fs, "/b", "crc_frame_0002.txt", "FinalCRC: 0x1\n")
	writeFrame(t, fs, "/", "file.txt", "")

	_, err := CompareDirs(fs, "/a", "/b")
	assert.ErrorIs(t, err, ErrNoCommonFrames)

	_, err = CompareDirs(fs, "/a", "/missing")
	assert.Error(t, err)

	_, err = CompareDirs(fs, "/file.txt", "/a")
	assert.Error(t, err)
}

func TestFirstDifferenceOnlyTrailer(t *testing.T) {
	n, a, b := firstDifference([]byte("x: 1\nFinalCRC: 0x1\n"), []byte("x: 1\nFinalCRC: 0x2\n"))
	assert.Equal(t, 0, n)
	assert.Empty(t, a)
	assert.Empty(t, b)
}

func TestImportAndCompareSessions(t *testing.T) {
	ctx := context.Background()
	repo, err := repositories.NewSQLiteRepository(ctx, filepath.Join(t.TempDir(), "crc.db"), "../../migrations/sqlite")
	require.NoError(t, err)
	defer repo.Close(ctx)

	fs := afero.NewMemMapFs()
	writeFrame(t, fs, "/run1", "crc_frame_0001.txt", "a: 1\nFinalCRC: 0x000000AA\n")
	writeFrame(t, fs, "/run1", "crc_frame_0002.txt", "a: 2\nFinalCRC: 0x000000BB\n")
	writeFrame(t, fs, "/run2", "crc_frame_0001.txt", "a: 1\nFinalCRC: 0x000000AA\n")
	writeFrame(t, fs, "/run2", "crc_frame_0002.txt", "a: 3\nFinalCRC: 0x000000CC\n")

	n, err := ImportDir(ctx, fs, repo, "/run1", "run1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = ImportDir(ctx, fs, repo, "/run2", "run2")
	require.NoError(t, err)

	frames, err := repo.ListCRCFrames(ctx, "run1")
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, uint32(0xBB), frames[1].CRC)

	result, err := CompareSessions(ctx, repo, "run1", "run2")
	require.NoError(t, err)
	require.NotNil(t, result.Mismatch)
	assert.Equal(t, uint32(2), result.Mismatch.Frame)
	assert.Equal(t, "crc_frame_0002.txt", result.Mismatch.Name)
	assert.Equal(t, 1, result.Mismatch.DiffLine)
}

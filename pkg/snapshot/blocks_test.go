package snapshot

import (
	"testing"
	"time"

	"github.com/cbodonnell/statexfer/pkg/xfer"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitBlocks(t *testing.T) {
	blocks := SplitBlocks(testSaveFile(t))
	require.Len(t, blocks, 3)

	assert.Equal(t, "CHUNK_GameLogic", blocks[0].Name)
	assert.Len(t, blocks[0].Data, 14)
	assert.Equal(t, "CHUNK_Unknown", blocks[1].Name)
	assert.Equal(t, []byte("zzCHUNK_zz"), blocks[1].Data)
	assert.Equal(t, "CHUNK_Players", blocks[2].Name)
	assert.Len(t, blocks[2].Data, 10)
}

func TestSplitBlocksTruncated(t *testing.T) {
	data := testSaveFile(t)
	blocks := SplitBlocks(data[:len(data)-4])
	require.Len(t, blocks, 2)
	assert.Equal(t, "CHUNK_Unknown", blocks[1].Name)

	assert.Empty(t, SplitBlocks(nil))
}

func TestBlocksRoundTrip(t *testing.T) {
	in := &Blocks{List: SplitBlocks(testSaveFile(t))}

	save := xfer.NewSaveBuffer()
	require.NoError(t, save.Open("bundle"))
	require.NoError(t, save.Snapshot(in, "blocks"))
	require.NoError(t, save.Close())
	data, err := save.TakeBuffer()
	require.NoError(t, err)

	load := xfer.NewLoadBuffer()
	require.NoError(t, load.OpenBuffer("bundle", data))
	out := &Blocks{}
	require.NoError(t, load.Snapshot(out, "blocks"))
	require.NoError(t, load.RunPostProcess())
	require.NoError(t, load.Close())

	assert.Equal(t, in.List, out.List)
}

func blocksCRC(t *testing.T, b *Blocks) uint32 {
	t.Helper()
	c := xfer.NewCRC()
	require.NoError(t, c.Open("blocks"))
	require.NoError(t, c.Snapshot(b, ""))
	require.NoError(t, c.Close())
	return c.Checksum()
}

func TestBlocksCRC(t *testing.T) {
	a := &Blocks{List: SplitBlocks(testSaveFile(t))}
	b := &Blocks{List: SplitBlocks(testSaveFile(t))}
	assert.Equal(t, blocksCRC(t, a), blocksCRC(t, b))

	changed := append([]byte(nil), b.List[2].Data...)
	changed[0] ^= 0xFF
	b.List[2].Data = changed
	assert.NotEqual(t, blocksCRC(t, a), blocksCRC(t, b))
}

func TestBlocksCRCLog(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := xfer.NewCRCLogConfig(fs, "logs", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), xfer.FrameFunc(func() uint32 { return 3 }))
	c := xfer.NewCRCWithLog(cfg)

	require.NoError(t, c.Open("blocks"))
	require.NoError(t, c.Snapshot(&Blocks{List: SplitBlocks(testSaveFile(t))}, ""))
	require.NoError(t, c.Close())

	log, err := afero.ReadFile(fs, c.LogPath())
	require.NoError(t, err)
	assert.Contains(t, string(log), "Block: CHUNK_GameLogic\n")
	assert.Contains(t, string(log), "CHUNK_Unknown: 7A7A4348554E4B5F7A7A\n")
	assert.Contains(t, string(log), "FinalCRC: 0x")
}

func TestBlocksDeepCRC(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := xfer.NewDeepCRC(fs)
	require.NoError(t, d.Open("deep.bin"))
	require.NoError(t, d.Snapshot(&Blocks{List: SplitBlocks(testSaveFile(t))}, ""))
	require.NoError(t, d.Close())

	info, err := fs.Stat("deep.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(2+15+14+2+13+10+2+13+10), info.Size())
	assert.NotZero(t, d.Checksum())
}

func TestBlocksLoadTruncatedBundle(t *testing.T) {
	// count 1, CHUNK_A declaring 0x7FFFFFF0 bytes with only 3 present
	bundle := []byte{0x01, 0x00, 0x07}
	bundle = append(bundle, "CHUNK_A"...)
	bundle = append(bundle, 0xF0, 0xFF, 0xFF, 0x7F, 0x01, 0x02, 0x03)

	load := xfer.NewLoadBuffer()
	require.NoError(t, load.OpenBuffer("bundle", bundle))
	out := &Blocks{}
	err := load.Snapshot(out, "blocks")
	assert.ErrorIs(t, err, xfer.ErrReadError)
	assert.Contains(t, err.Error(), "CHUNK_A declares 2147483632 bytes but 3 remain")
	assert.Nil(t, out.List[0].Data)
}

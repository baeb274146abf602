package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cbodonnell/statexfer/pkg/schema"
	"github.com/cbodonnell/statexfer/pkg/xfer"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindChunkOffsets(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want []int
	}{
		{name: "empty", buf: nil, want: nil},
		{name: "tag at start", buf: []byte("CHUNK_A"), want: []int{0}},
		{name: "length prefixed", buf: []byte("\x07CHUNK_A"), want: []int{0}},
		{name: "several", buf: []byte("xx\x07CHUNK_A\x00\x07CHUNK_B"), want: []int{2, 11}},
		{name: "partial tag", buf: []byte("CHUNK"), want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindChunkOffsets(tt.buf))
		})
	}
}

func testSchemas(t *testing.T) *schema.Set {
	t.Helper()
	set, err := schema.Compile(schema.Definition{
		Schemas: map[string][]schema.FieldDef{
			"GameLogic": {
				{Name: "frame", Type: "UnsignedInt"},
				{Name: "count", Type: "UnsignedShort"},
				{Name: "count", Type: "LoopStart"},
				{Name: "id", Type: "Int"},
				{Name: "count", Type: "LoopEnd"},
			},
			"Players": {
				{Name: "name", Type: "AsciiString"},
			},
		},
		Blocks: map[string]string{
			"CHUNK_GameLogic": "GameLogic",
			"CHUNK_Players":   "Players",
		},
	})
	require.NoError(t, err)
	return set
}

func writeBlock(t *testing.T, x xfer.Xfer, name string, body func()) {
	t.Helper()
	require.NoError(t, x.AsciiString(&name, ""))
	_, err := x.BeginBlock()
	require.NoError(t, err)
	body()
	require.NoError(t, x.EndBlock())
}

func testSaveFile(t *testing.T) []byte {
	t.Helper()
	x := xfer.NewSaveBuffer()
	require.NoError(t, x.Open("save"))

	writeBlock(t, x, "CHUNK_GameLogic", func() {
		frame := uint32(42)
		require.NoError(t, xfer.UnsignedInt(x, &frame, ""))
		count := uint16(2)
		require.NoError(t, xfer.UnsignedShort(x, &count, ""))
		for _, id := range []int32{7, 8} {
			require.NoError(t, xfer.Int(x, &id, ""))
		}
	})
	writeBlock(t, x, "CHUNK_Unknown", func() {
		// the tag inside a payload produces a spurious offset
		require.NoError(t, xfer.User(x, []byte("zzCHUNK_zz"), ""))
	})
	writeBlock(t, x, "CHUNK_Players", func() {
		name := "Alice"
		require.NoError(t, x.AsciiString(&name, ""))
		extra := int32(99)
		require.NoError(t, xfer.Int(x, &extra, ""))
	})

	require.NoError(t, x.Close())
	data, err := x.TakeBuffer()
	require.NoError(t, err)
	return data
}

func TestParse(t *testing.T) {
	state, err := NewParser(testSchemas(t)).Parse(testSaveFile(t))
	require.NoError(t, err)
	require.Len(t, state.Objects, 2)

	logic := state.Objects[0]
	assert.Equal(t, "CHUNK_GameLogic", logic.Name)
	assert.True(t, logic.Match())
	assert.Empty(t, logic.Warnings)
	assert.Equal(t, int64(14), logic.ExpectedBytes)
	want := []schema.Property{
		{Name: "frame", Value: "42", Type: "UnsignedInt"},
		{Name: "count", Value: "2", Type: "UnsignedShort"},
		{Name: "count[0].id", Value: "7", Type: "Int"},
		{Name: "count[1].id", Value: "8", Type: "Int"},
	}
	if diff := cmp.Diff(want, logic.Properties); diff != "" {
		t.Errorf("properties mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Expected block bytes: 14\nProcessed bytes: 14\nMatch: yes", logic.DebugInfo)

	players := state.Objects[1]
	assert.Equal(t, "CHUNK_Players", players.Name)
	assert.False(t, players.Match())
	assert.Equal(t, []string{"Block size mismatch: expected 10 bytes, parsed 6"}, players.Warnings)
	assert.Equal(t,
		"Expected block bytes: 10\nProcessed bytes: 6\nMatch: NO\nWarnings:\n- Block size mismatch: expected 10 bytes, parsed 6",
		players.DebugInfo)
}

func TestStateText(t *testing.T) {
	state, err := NewParser(testSchemas(t)).Parse(testSaveFile(t))
	require.NoError(t, err)

	want := "CHUNK_GameLogic\n" +
		"  frame: 42\n" +
		"  count: 2\n" +
		"  count[0].id: 7\n" +
		"  count[1].id: 8\n" +
		"\n" +
		"CHUNK_Players\n" +
		"  name: Alice\n" +
		"\n"
	assert.Equal(t, want, state.Text())
}

func TestStateCopy(t *testing.T) {
	state := &State{Objects: []Object{{
		Name:       "CHUNK_A",
		Properties: []schema.Property{{Name: "a", Value: "1", Type: "Int"}},
	}}}
	cp := state.Copy()
	cp.Objects[0].Properties[0].Value = "2"
	assert.Equal(t, "1", state.Objects[0].Properties[0].Value)

	var nilState *State
	assert.Nil(t, nilState.Copy())
}

func TestParseEmpty(t *testing.T) {
	_, err := NewParser(testSchemas(t)).Parse(nil)
	assert.Error(t, err)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "save.sav")
	require.NoError(t, os.WriteFile(path, testSaveFile(t), 0o644))

	state, err := NewParser(testSchemas(t)).ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, state.Objects, 2)

	empty := filepath.Join(dir, "empty.sav")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = NewParser(testSchemas(t)).ParseFile(empty)
	assert.EqualError(t, err, "file is empty")
}

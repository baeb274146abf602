package snapshot

import "bytes"

// ChunkTag prefixes every block name in a save file.
const ChunkTag = "CHUNK_"

// FindChunkOffsets scans buf for ChunkTag and returns, for every match, the
// offset of the byte before it, where the one byte name length is expected.
//
// This is a heuristic for files whose layout is not known. The tag can occur
// inside unrelated payload, so offsets may be spurious; Parser tolerates that.
func FindChunkOffsets(buf []byte) []int {
	tag := []byte(ChunkTag)
	var offsets []int
	for start := 0; ; {
		i := bytes.Index(buf[start:], tag)
		if i < 0 {
			return offsets
		}
		pos := start + i
		if pos > 0 {
			offsets = append(offsets, pos-1)
		} else {
			offsets = append(offsets, pos)
		}
		start = pos + 1
	}
}

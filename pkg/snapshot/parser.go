// Package snapshot turns raw save files into decoded object lists.
package snapshot

import (
	"fmt"
	"os"

	"github.com/cbodonnell/statexfer/pkg/log"
	"github.com/cbodonnell/statexfer/pkg/schema"
	"github.com/cbodonnell/statexfer/pkg/xfer"
)

// Parser decodes every block of a save file that its schema set knows.
// A Parser holds no state between calls and may be shared.
type Parser struct {
	schemas *schema.Set
}

func NewParser(schemas *schema.Set) *Parser {
	return &Parser{schemas: schemas}
}

// Parse locates blocks with FindChunkOffsets and decodes each known one.
// Offsets that do not lead to a readable block name are skipped.
func (p *Parser) Parse(buf []byte) (*State, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("snapshot is empty")
	}
	state := &State{}
	for _, offset := range FindChunkOffsets(buf) {
		obj, ok := p.parseAt(buf, offset)
		if ok {
			state.Objects = append(state.Objects, obj)
		}
	}
	return state, nil
}

func (p *Parser) parseAt(buf []byte, offset int) (Object, bool) {
	x := xfer.NewLoadBuffer()
	if err := x.OpenBuffer("save", buf); err != nil {
		log.Error("Failed to open snapshot buffer: %v", err)
		return Object{}, false
	}
	defer x.Close()

	if err := x.Skip(offset); err != nil {
		log.Debug("Skipping chunk offset %d: %v", offset, err)
		return Object{}, false
	}
	var token string
	if err := x.AsciiString(&token, ""); err != nil {
		log.Debug("Skipping chunk offset %d: %v", offset, err)
		return Object{}, false
	}
	if token == "" {
		return Object{}, false
	}

	blockSize, err := x.BeginBlock()
	if err != nil {
		log.Debug("Skipping block %s at offset %d: %v", token, offset, err)
		return Object{}, false
	}
	blockStart := x.Tell()

	sc, ok := p.schemas.BlockSchema(token)
	if !ok {
		if err := x.Skip(int(blockSize)); err != nil {
			log.Debug("Unknown block %s at offset %d has a bad size: %v", token, offset, err)
		}
		return Object{}, false
	}

	res := schema.Decode(x, sc, "")
	consumed := int64(x.Tell() - blockStart)
	expected := int64(blockSize)
	if expected < 0 {
		expected = 0
	}
	warnings := res.Warnings
	if expected != consumed {
		warnings = append(warnings, fmt.Sprintf("Block size mismatch: expected %d bytes, parsed %d", expected, consumed))
	}

	return Object{
		Name:          token,
		Properties:    res.Properties,
		Warnings:      warnings,
		ExpectedBytes: expected,
		ConsumedBytes: consumed,
		DebugInfo:     DebugInfo(int64(blockSize), consumed, warnings),
	}, true
}

// ReadFile reads a snapshot from disk, rejecting empty files.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %v", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file is empty")
	}
	return data, nil
}

// ParseFile reads and parses the snapshot at path.
func (p *Parser) ParseFile(path string) (*State, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return p.Parse(data)
}

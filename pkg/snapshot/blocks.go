package snapshot

import (
	"fmt"

	"github.com/cbodonnell/statexfer/pkg/xfer"
	"github.com/pkg/errors"
)

// RawBlock is the undecoded payload of one save file block.
type RawBlock struct {
	Name string
	Data []byte
}

// SplitBlocks cuts buf into its blocks without consulting any schema.
// Offsets that fall inside an earlier block's payload are ignored.
func SplitBlocks(buf []byte) []RawBlock {
	var blocks []RawBlock
	end := 0
	for _, offset := range FindChunkOffsets(buf) {
		if offset < end {
			continue
		}
		block, next, ok := readRawBlock(buf, offset)
		if !ok {
			continue
		}
		blocks = append(blocks, block)
		end = next
	}
	return blocks
}

func readRawBlock(buf []byte, offset int) (RawBlock, int, bool) {
	x := xfer.NewLoadBuffer()
	if err := x.OpenBuffer("blocks", buf); err != nil {
		return RawBlock{}, 0, false
	}
	defer x.Close()

	var name string
	if err := x.Skip(offset); err != nil {
		return RawBlock{}, 0, false
	}
	if err := x.AsciiString(&name, ""); err != nil || name == "" {
		return RawBlock{}, 0, false
	}
	size, err := x.BeginBlock()
	if err != nil || size < 0 || int(size) > x.Remaining() {
		return RawBlock{}, 0, false
	}
	start := x.Tell()
	return RawBlock{Name: name, Data: buf[start : start+int(size)]}, start + int(size), true
}

// Blocks exposes a list of raw blocks as a transferable snapshot, so a save
// file can be checksummed block by block or re-bundled.
type Blocks struct {
	List []RawBlock
}

// CRC folds every block name and payload, marking each block in the log.
func (b *Blocks) CRC(x xfer.Xfer) error {
	for i := range b.List {
		block := &b.List[i]
		xfer.MarkerLabel(x, block.Name, "Block")
		if err := x.AsciiString(&block.Name, "name"); err != nil {
			return err
		}
		if err := xfer.User(x, block.Data, block.Name); err != nil {
			return err
		}
	}
	return nil
}

// Xfer writes a block count followed by the blocks in save file layout, or
// reads the same back.
func (b *Blocks) Xfer(x xfer.Xfer) error {
	count := uint16(len(b.List))
	if len(b.List) > int(^uint16(0)) {
		return fmt.Errorf("too many blocks: %d", len(b.List))
	}
	if err := xfer.UnsignedShort(x, &count, "count"); err != nil {
		return err
	}

	if x.Mode() == xfer.ModeLoad {
		b.List = make([]RawBlock, count)
	}
	for i := range b.List {
		block := &b.List[i]
		if err := x.AsciiString(&block.Name, "name"); err != nil {
			return err
		}
		size, err := x.BeginBlock()
		if err != nil {
			return err
		}
		if x.Mode() == xfer.ModeLoad {
			if size < 0 {
				return fmt.Errorf("block %s has negative size %d", block.Name, size)
			}
			if lb, ok := x.(*xfer.LoadBuffer); ok && int(size) > lb.Remaining() {
				return errors.Wrapf(xfer.ErrReadError, "block %s declares %d bytes but %d remain", block.Name, size, lb.Remaining())
			}
			block.Data = make([]byte, size)
		}
		if err := x.Transfer(block.Data); err != nil {
			return err
		}
		if err := x.EndBlock(); err != nil {
			return err
		}
	}
	return nil
}

func (b *Blocks) LoadPostProcess() error {
	return nil
}

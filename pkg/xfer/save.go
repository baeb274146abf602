package xfer

import (
	"encoding/binary"

	"github.com/cbodonnell/statexfer/pkg/log"
)

// SaveBuffer appends to a growable byte slice. Blocks are back patched with
// their length when they end.
type SaveBuffer struct {
	session
	buf    []byte
	blocks []int
	isOpen bool
}

func NewSaveBuffer() *SaveBuffer {
	return &SaveBuffer{
		session: session{mode: ModeSave},
	}
}

// Open starts a new session, discarding any previous data.
func (b *SaveBuffer) Open(identifier string) error {
	if b.isOpen {
		return fail(ErrFileAlreadyOpen, "cannot open buffer '%s' because '%s' is already open", identifier, b.identifier)
	}
	b.identifier = identifier
	b.buf = b.buf[:0]
	b.blocks = b.blocks[:0]
	b.isOpen = true
	return nil
}

// Close ends the session. Blocks left open are logged, dropped and reported
// with an UnclosedBlocksError. The written data stays available.
func (b *SaveBuffer) Close() error {
	if !b.isOpen {
		return fail(ErrFileNotOpen, "close called but no buffer was open")
	}
	b.isOpen = false
	identifier := b.identifier
	b.identifier = ""

	if depth := len(b.blocks); depth > 0 {
		log.Error("Buffer '%s' closed with %d unclosed block(s)", identifier, depth)
		b.blocks = b.blocks[:0]
		return &UnclosedBlocksError{Identifier: identifier, Depth: depth}
	}
	return nil
}

func (b *SaveBuffer) IsOpen() bool {
	return b.isOpen
}

// Depth returns the number of blocks begun and not yet ended.
func (b *SaveBuffer) Depth() int {
	return len(b.blocks)
}

// BeginBlock appends a length placeholder. It always returns 0.
func (b *SaveBuffer) BeginBlock() (int32, error) {
	if !b.isOpen {
		return 0, fail(ErrFileNotOpen, "begin block on closed buffer")
	}
	b.blocks = append(b.blocks, len(b.buf))
	b.buf = append(b.buf, 0, 0, 0, 0)
	return 0, nil
}

// EndBlock writes the length of the innermost open block into its
// placeholder. The length excludes the placeholder itself.
func (b *SaveBuffer) EndBlock() error {
	if !b.isOpen {
		return fail(ErrFileNotOpen, "end block on closed buffer")
	}
	if len(b.blocks) == 0 {
		return fail(ErrBeginEndMismatch, "end block called but no matching begin block was found")
	}
	pos := b.blocks[len(b.blocks)-1]
	b.blocks = b.blocks[:len(b.blocks)-1]
	if pos+blockSizeLen > len(b.buf) {
		return fail(ErrWriteError, "error writing block size to buffer '%s'", b.identifier)
	}
	size := len(b.buf) - pos - blockSizeLen
	binary.LittleEndian.PutUint32(b.buf[pos:], uint32(int32(size)))
	return nil
}

// Skip appends n zero bytes.
func (b *SaveBuffer) Skip(n int) error {
	if !b.isOpen {
		return fail(ErrFileNotOpen, "skip on closed buffer")
	}
	if n > 0 {
		b.buf = append(b.buf, make([]byte, n)...)
	}
	return nil
}

func (b *SaveBuffer) Snapshot(s Snapshot, label string) error {
	if s == nil {
		return fail(ErrInvalidParameters, "save snapshot '%s'", label)
	}
	return s.Xfer(b)
}

func (b *SaveBuffer) AsciiString(s *string, label string) error {
	if len(*s) > maxStringLen {
		return fail(ErrStringError, "cannot save ascii string '%s' of %d bytes, the limit is %d", label, len(*s), maxStringLen)
	}
	n := uint8(len(*s))
	if err := UnsignedByte(b, &n, label); err != nil {
		return err
	}
	if n > 0 {
		return User(b, []byte(*s), label)
	}
	return nil
}

// UnicodeString writes a one byte unit count followed by UTF-16LE units.
func (b *SaveBuffer) UnicodeString(s *string, label string) error {
	data, err := encodeUTF16(*s)
	if err != nil {
		return fail(ErrStringError, "unicode string '%s'", label)
	}
	units := len(data) / 2
	if units > maxStringLen {
		return fail(ErrStringError, "cannot save unicode string '%s' of %d units, the limit is %d", label, units, maxStringLen)
	}
	n := uint8(units)
	if err := UnsignedByte(b, &n, label); err != nil {
		return err
	}
	if n > 0 {
		return User(b, data, label)
	}
	return nil
}

func (b *SaveBuffer) Transfer(data []byte) error {
	if !b.isOpen {
		return fail(ErrFileNotOpen, "write to closed buffer")
	}
	b.buf = append(b.buf, data...)
	return nil
}

// Bytes returns the data written so far. The slice is only valid until the
// next write.
func (b *SaveBuffer) Bytes() []byte {
	return b.buf
}

// TakeBuffer hands over the written data and leaves the buffer empty.
func (b *SaveBuffer) TakeBuffer() ([]byte, error) {
	if b.isOpen {
		return nil, fail(ErrFileAlreadyOpen, "cannot take buffer '%s' while still open", b.identifier)
	}
	out := b.buf
	b.buf = nil
	return out, nil
}

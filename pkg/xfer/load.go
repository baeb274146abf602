package xfer

import (
	"encoding/binary"

	"github.com/cbodonnell/statexfer/pkg/log"
)

// blockSizeLen is the width of the length prefix of a block.
const blockSizeLen = 4

// maxStringLen is the longest string the one byte length prefix can carry.
const maxStringLen = 255

// LoadBuffer reads from a fixed byte slice with a forward only cursor.
type LoadBuffer struct {
	session
	buf         []byte
	pos         int
	isOpen      bool
	postProcess []Snapshot
}

func NewLoadBuffer() *LoadBuffer {
	return &LoadBuffer{
		session: session{mode: ModeLoad},
	}
}

// SetBuffer replaces the data to read. It fails while the buffer is open.
func (b *LoadBuffer) SetBuffer(buf []byte) error {
	if b.isOpen {
		return fail(ErrFileAlreadyOpen, "cannot set buffer because '%s' is already open", b.identifier)
	}
	b.buf = buf
	b.pos = 0
	return nil
}

func (b *LoadBuffer) Open(identifier string) error {
	if b.isOpen {
		return fail(ErrFileAlreadyOpen, "cannot open buffer '%s' because '%s' is already open", identifier, b.identifier)
	}
	b.identifier = identifier
	b.isOpen = true
	b.pos = 0
	b.postProcess = nil
	return nil
}

// OpenBuffer sets the data and opens the buffer in one call.
func (b *LoadBuffer) OpenBuffer(identifier string, buf []byte) error {
	if err := b.SetBuffer(buf); err != nil {
		return err
	}
	return b.Open(identifier)
}

func (b *LoadBuffer) Close() error {
	if !b.isOpen {
		return fail(ErrFileNotOpen, "close called but no buffer was open")
	}
	b.isOpen = false
	b.pos = 0
	b.identifier = ""
	return nil
}

func (b *LoadBuffer) IsOpen() bool {
	return b.isOpen
}

// Tell returns the cursor position.
func (b *LoadBuffer) Tell() int {
	return b.pos
}

// Remaining returns the number of unread bytes.
func (b *LoadBuffer) Remaining() int {
	return len(b.buf) - b.pos
}

// BeginBlock reads and returns the declared length of the next block. A
// truncated length prefix is logged and reported as an empty block.
func (b *LoadBuffer) BeginBlock() (int32, error) {
	if !b.isOpen {
		return 0, fail(ErrFileNotOpen, "begin block on closed buffer")
	}
	if b.pos+blockSizeLen > len(b.buf) {
		log.Error("Error reading block size for '%s' at offset %d", b.identifier, b.pos)
		return 0, nil
	}
	size := int32(binary.LittleEndian.Uint32(b.buf[b.pos:]))
	b.pos += blockSizeLen
	return size, nil
}

func (b *LoadBuffer) EndBlock() error {
	return nil
}

func (b *LoadBuffer) Skip(n int) error {
	if !b.isOpen {
		return fail(ErrFileNotOpen, "skip on closed buffer")
	}
	if n < 0 || b.pos+n > len(b.buf) {
		return fail(ErrSkipError, "cannot skip %d bytes at offset %d past end of buffer '%s'", n, b.pos, b.identifier)
	}
	b.pos += n
	return nil
}

// Snapshot loads s and, unless OptionNoPostProcessing is set, queues it for
// RunPostProcess.
func (b *LoadBuffer) Snapshot(s Snapshot, label string) error {
	if s == nil {
		return fail(ErrInvalidParameters, "load snapshot '%s'", label)
	}
	if err := s.Xfer(b); err != nil {
		return err
	}
	if b.options&OptionNoPostProcessing == 0 {
		b.postProcess = append(b.postProcess, s)
	}
	return nil
}

// RunPostProcess calls LoadPostProcess on every queued snapshot in load order
// and empties the queue.
func (b *LoadBuffer) RunPostProcess() error {
	pending := b.postProcess
	b.postProcess = nil
	for _, s := range pending {
		if err := s.LoadPostProcess(); err != nil {
			return err
		}
	}
	return nil
}

func (b *LoadBuffer) AsciiString(s *string, label string) error {
	var n uint8
	if err := UnsignedByte(b, &n, label); err != nil {
		return err
	}
	data := make([]byte, n)
	if n > 0 {
		if err := User(b, data, label); err != nil {
			return err
		}
	}
	*s = string(data)
	return nil
}

// UnicodeString reads a one byte unit count followed by UTF-16LE units.
func (b *LoadBuffer) UnicodeString(s *string, label string) error {
	var n uint8
	if err := UnsignedByte(b, &n, label); err != nil {
		return err
	}
	data := make([]byte, int(n)*2)
	if n > 0 {
		if err := User(b, data, label); err != nil {
			return err
		}
	}
	text, err := decodeUTF16(data)
	if err != nil {
		return fail(ErrStringError, "unicode string '%s'", label)
	}
	*s = text
	return nil
}

func (b *LoadBuffer) Transfer(data []byte) error {
	if !b.isOpen {
		return fail(ErrFileNotOpen, "read from closed buffer")
	}
	if b.pos+len(data) > len(b.buf) {
		return fail(ErrReadError, "cannot read %d bytes at offset %d from buffer '%s'", len(data), b.pos, b.identifier)
	}
	copy(data, b.buf[b.pos:])
	b.pos += len(data)
	return nil
}

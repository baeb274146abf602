package xfer

import (
	"math"
	"os"

	"github.com/spf13/afero"
)

// maxDeepAsciiLen is the longest ascii string a DeepCRC capture accepts.
const maxDeepAsciiLen = 16385

// DeepCRC writes every transferred byte to a capture file while folding the
// same bytes into a checksum. Two captures of the same frame can be diffed
// byte by byte when their checksums disagree.
//
// It reports ModeSave so composites take their save path.
type DeepCRC struct {
	session
	fs   afero.Fs
	file afero.File
	sum  Checksum
}

func NewDeepCRC(fs afero.Fs) *DeepCRC {
	return &DeepCRC{
		session: session{mode: ModeSave},
		fs:      fs,
	}
}

// Open creates or truncates the capture file named identifier.
func (d *DeepCRC) Open(identifier string) error {
	if d.file != nil {
		return fail(ErrFileAlreadyOpen, "cannot open file '%s' because '%s' is already open", identifier, d.identifier)
	}
	d.identifier = identifier
	d.sum.Reset()
	f, err := d.fs.OpenFile(identifier, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fail(ErrFileNotFound, "file '%s' not found", identifier)
	}
	d.file = f
	return nil
}

func (d *DeepCRC) Close() error {
	if d.file == nil {
		return fail(ErrFileNotOpen, "close called but no file was open")
	}
	err := d.file.Close()
	d.file = nil
	if err != nil {
		return fail(ErrWriteError, "failed to close file '%s'", d.identifier)
	}
	d.identifier = ""
	return nil
}

func (d *DeepCRC) Checksum() uint32 {
	return d.sum.Sum()
}

func (d *DeepCRC) BeginBlock() (int32, error) {
	return 0, nil
}

func (d *DeepCRC) EndBlock() error {
	return nil
}

func (d *DeepCRC) Skip(n int) error {
	return nil
}

func (d *DeepCRC) Snapshot(s Snapshot, label string) error {
	if s == nil {
		return nil
	}
	return s.CRC(d)
}

// AsciiString writes a two byte length followed by the string bytes.
func (d *DeepCRC) AsciiString(s *string, label string) error {
	if len(*s) > maxDeepAsciiLen || len(*s) > math.MaxUint16 {
		return fail(ErrStringError, "cannot save ascii string '%s' of %d bytes, the limit is %d", label, len(*s), maxDeepAsciiLen)
	}
	n := uint16(len(*s))
	if err := UnsignedShort(d, &n, ""); err != nil {
		return err
	}
	if n > 0 {
		return User(d, []byte(*s), "")
	}
	return nil
}

// UnicodeString writes a one byte unit count followed by UTF-16LE units.
func (d *DeepCRC) UnicodeString(s *string, label string) error {
	data, err := encodeUTF16(*s)
	if err != nil {
		return fail(ErrStringError, "unicode string '%s'", label)
	}
	units := len(data) / 2
	if units > maxStringLen {
		return fail(ErrStringError, "cannot save unicode string '%s' of %d units, the limit is %d", label, units, maxStringLen)
	}
	n := uint8(units)
	if err := UnsignedByte(d, &n, ""); err != nil {
		return err
	}
	if n > 0 {
		return User(d, data, "")
	}
	return nil
}

func (d *DeepCRC) Transfer(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if d.file == nil {
		return fail(ErrFileNotOpen, "write with no open capture file")
	}
	if _, err := d.file.Write(data); err != nil {
		return fail(ErrWriteError, "error writing to file '%s'", d.identifier)
	}
	d.sum.Add(data)
	return nil
}

// Package xfer implements the transfer protocol used to save, load and
// checksum simulation state through a single call interface.
//
// Backends implement the small Xfer interface. Every typed transfer is a free
// function in this package built from Transfer and the other free functions,
// so the byte sequence a composite produces is the same on every backend.
package xfer

import "fmt"

type Mode int

const (
	ModeInvalid Mode = iota
	ModeSave
	ModeLoad
	ModeCRC
)

func (m Mode) String() string {
	switch m {
	case ModeSave:
		return "save"
	case ModeLoad:
		return "load"
	case ModeCRC:
		return "crc"
	default:
		return fmt.Sprintf("invalid(%d)", int(m))
	}
}

type Options uint32

const (
	OptionNone Options = 0
	// OptionNoPostProcessing stops load backends from registering snapshots
	// for post processing.
	OptionNoPostProcessing Options = 1 << 0
	OptionAll              Options = 0xFFFFFFFF
)

// Snapshot is implemented by anything that can be saved, loaded or
// checksummed through an Xfer.
type Snapshot interface {
	// CRC folds the state that must match across machines.
	CRC(x Xfer) error
	// Xfer saves or loads the full state depending on x.Mode().
	Xfer(x Xfer) error
	// LoadPostProcess runs after every snapshot of a load has been read.
	LoadPostProcess() error
}

// Xfer is a transfer session. Implementations are not safe for concurrent use.
type Xfer interface {
	Mode() Mode
	Identifier() string
	Options() Options
	SetOptions(o Options)
	ClearOptions(o Options)

	Open(identifier string) error
	Close() error

	// BeginBlock starts a length prefixed block. Load backends return the
	// declared length of the block.
	BeginBlock() (int32, error)
	EndBlock() error
	Skip(n int) error

	Snapshot(s Snapshot, label string) error
	AsciiString(s *string, label string) error
	UnicodeString(s *string, label string) error

	// Transfer moves len(data) bytes. Save and checksum backends consume
	// data, load backends fill it.
	Transfer(data []byte) error

	// LogValue and LogBytes feed the diagnostic text log of checksum
	// sessions. Other backends ignore them.
	LogValue(label, text string)
	LogBytes(label string, data []byte)
}

// Checksummer is implemented by backends that fold every transferred byte
// into a running checksum.
type Checksummer interface {
	Checksum() uint32
}

type session struct {
	mode       Mode
	options    Options
	identifier string
}

func (s *session) Mode() Mode {
	return s.mode
}

func (s *session) Identifier() string {
	return s.identifier
}

func (s *session) Options() Options {
	return s.options
}

func (s *session) SetOptions(o Options) {
	s.options |= o
}

func (s *session) ClearOptions(o Options) {
	s.options &^= o
}

func (s *session) LogValue(label, text string) {}

func (s *session) LogBytes(label string, data []byte) {}

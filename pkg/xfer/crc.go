package xfer

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/cbodonnell/statexfer/pkg/log"
	"github.com/spf13/afero"
)

// SessionTimestampFormat names the per run directory of checksum logs.
const SessionTimestampFormat = "20060102_150405"

// FrameSource reports the current simulation frame.
type FrameSource interface {
	Frame() uint32
}

// FrameFunc adapts a function to FrameSource.
type FrameFunc func() uint32

func (f FrameFunc) Frame() uint32 {
	return f()
}

// CRCLogConfig enables the text log of a CRC session. All sessions of one run
// share a config so their logs land in the same directory.
type CRCLogConfig struct {
	Fs        afero.Fs
	Dir       string
	Timestamp string
	Frames    FrameSource
}

// NewCRCLogConfig returns a config logging under dir/<now>.
func NewCRCLogConfig(fs afero.Fs, dir string, now time.Time, frames FrameSource) CRCLogConfig {
	return CRCLogConfig{
		Fs:        fs,
		Dir:       dir,
		Timestamp: now.Format(SessionTimestampFormat),
		Frames:    frames,
	}
}

// SessionDir is the directory holding the crc_frame logs of this run.
func (c CRCLogConfig) SessionDir() string {
	return filepath.Join(c.Dir, c.Timestamp)
}

// FrameLogName returns the log file name for frame.
func FrameLogName(frame uint32) string {
	return fmt.Sprintf("crc_frame_%04d.txt", frame)
}

// CRC folds every transferred byte into a Checksum without storing anything.
type CRC struct {
	session
	sum     Checksum
	logCfg  *CRCLogConfig
	text    io.WriteCloser
	logPath string
}

func NewCRC() *CRC {
	return &CRC{
		session: session{mode: ModeCRC},
	}
}

// NewCRCWithLog returns a CRC that writes a text log per session.
func NewCRCWithLog(cfg CRCLogConfig) *CRC {
	c := NewCRC()
	c.logCfg = &cfg
	return c
}

// Open resets the checksum. A log file that cannot be created is logged and
// the session continues without it.
func (c *CRC) Open(identifier string) error {
	c.identifier = identifier
	c.sum.Reset()
	c.closeText()

	if c.logCfg == nil {
		return nil
	}
	cfg := c.logCfg
	var frame uint32
	if cfg.Frames != nil {
		frame = cfg.Frames.Frame()
	}
	dir := cfg.SessionDir()
	path := filepath.Join(dir, FrameLogName(frame))
	if err := cfg.Fs.MkdirAll(dir, 0o755); err != nil {
		log.Error("Unable to create CRC log directory '%s': %v", dir, err)
		return nil
	}
	f, err := cfg.Fs.Create(path)
	if err != nil {
		log.Error("Unable to open CRC log file '%s': %v", path, err)
		return nil
	}
	c.text = f
	c.logPath = path
	return nil
}

// Close writes the final checksum to the log, if any.
func (c *CRC) Close() error {
	if c.text != nil {
		fmt.Fprintf(c.text, "FinalCRC: 0x%08X\n", c.Checksum())
	}
	c.closeText()
	return nil
}

func (c *CRC) closeText() {
	if c.text == nil {
		return
	}
	if err := c.text.Close(); err != nil {
		log.Error("Failed to close CRC log '%s': %v", c.logPath, err)
	}
	c.text = nil
}

// LogPath returns the log file of the last session, or "" without a log.
func (c *CRC) LogPath() string {
	return c.logPath
}

func (c *CRC) Checksum() uint32 {
	return c.sum.Sum()
}

func (c *CRC) BeginBlock() (int32, error) {
	return 0, nil
}

func (c *CRC) EndBlock() error {
	return nil
}

func (c *CRC) Skip(n int) error {
	return nil
}

func (c *CRC) Snapshot(s Snapshot, label string) error {
	if s == nil {
		return nil
	}
	if label != "" {
		c.LogValue(label, "Snapshot")
	}
	return s.CRC(c)
}

// AsciiString folds the string bytes without a length prefix.
func (c *CRC) AsciiString(s *string, label string) error {
	if err := c.Transfer([]byte(*s)); err != nil {
		return err
	}
	c.LogValue(label, *s)
	return nil
}

func (c *CRC) UnicodeString(s *string, label string) error {
	data, err := encodeUTF16(*s)
	if err != nil {
		return fail(ErrStringError, "unicode string '%s'", label)
	}
	if err := c.Transfer(data); err != nil {
		return err
	}
	c.LogBytes(label, data)
	return nil
}

func (c *CRC) Transfer(data []byte) error {
	c.sum.Add(data)
	return nil
}

func (c *CRC) LogValue(label, text string) {
	if c.text == nil {
		return
	}
	if label != "" {
		fmt.Fprintf(c.text, "%s: %s\n", label, text)
	} else {
		fmt.Fprintf(c.text, "%s\n", text)
	}
}

func (c *CRC) LogBytes(label string, data []byte) {
	if c.text == nil {
		return
	}
	if label != "" {
		fmt.Fprintf(c.text, "%s: ", label)
	}
	fmt.Fprintf(c.text, "%X\n", data)
}

package xfer

import (
	"fmt"

	"github.com/cbodonnell/statexfer/pkg/log"
	"github.com/pkg/errors"
)

var (
	ErrFileNotFound      = errors.New("file not found")
	ErrFileNotOpen       = errors.New("file not open")
	ErrFileAlreadyOpen   = errors.New("file already open")
	ErrReadError         = errors.New("read error")
	ErrWriteError        = errors.New("write error")
	ErrModeUnknown       = errors.New("unknown xfer mode")
	ErrSkipError         = errors.New("skip error")
	ErrBeginEndMismatch  = errors.New("begin/end block mismatch")
	ErrStringError       = errors.New("string error")
	ErrInvalidVersion    = errors.New("invalid version")
	ErrInvalidParameters = errors.New("invalid parameters")
	ErrListNotEmpty      = errors.New("list not empty")
	ErrUnknownString     = errors.New("unknown string")
)

// fail logs the failure and returns err wrapped with the same message.
func fail(err error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	log.Error("%s: %v", msg, err)
	return errors.Wrap(err, msg)
}

// UnclosedBlocksError is returned by SaveBuffer.Close when blocks were begun
// but never ended. The buffer is still closed and its data kept.
type UnclosedBlocksError struct {
	Identifier string
	Depth      int
}

func (e *UnclosedBlocksError) Error() string {
	return fmt.Sprintf("buffer '%s' closed with %d unclosed block(s)", e.Identifier, e.Depth)
}

func (e *UnclosedBlocksError) Unwrap() error {
	return ErrBeginEndMismatch
}

// IsUnclosedBlocks reports whether err is an UnclosedBlocksError.
func IsUnclosedBlocks(err error) bool {
	var target *UnclosedBlocksError
	return errors.As(err, &target)
}

package xfer

import (
	"encoding/binary"
	"math/bits"
)

// Checksum is the rolling 32 bit fold used for desync detection.
//
// Each full 4 byte word is read in big endian order, which is the byte swap
// of the little endian word, so every host produces the same register. A
// trailing 1 to 3 bytes are packed little endian and folded without the swap.
type Checksum struct {
	reg uint32
}

// Add folds data into the register. Empty input is a no-op.
func (c *Checksum) Add(data []byte) {
	n := len(data) &^ 3
	for i := 0; i < n; i += 4 {
		c.fold(binary.BigEndian.Uint32(data[i:]))
	}
	tail := data[n:]
	if len(tail) == 0 {
		return
	}
	var v uint32
	for i := len(tail) - 1; i >= 0; i-- {
		v = v<<8 | uint32(tail[i])
	}
	c.fold(v)
}

// AddWord folds a host value as if its little endian bytes were passed to Add.
func (c *Checksum) AddWord(w uint32) {
	c.fold(bits.ReverseBytes32(w))
}

func (c *Checksum) fold(v uint32) {
	c.reg = c.reg<<1 + v + c.reg>>31
}

// Register returns the raw register.
func (c *Checksum) Register() uint32 {
	return c.reg
}

// Sum returns the exposed checksum, the byte swapped register.
func (c *Checksum) Sum() uint32 {
	return bits.ReverseBytes32(c.reg)
}

func (c *Checksum) Reset() {
	c.reg = 0
}

package types

import "encoding/binary"

// UpgradeMaskWords is the number of 64 bit words in an UpgradeMask.
const UpgradeMaskWords = 2

// UpgradeMaskSize is the encoded size of an UpgradeMask in bytes.
const UpgradeMaskSize = UpgradeMaskWords * 8

// UpgradeMask is a fixed size bit set with one bit per upgrade.
type UpgradeMask [UpgradeMaskWords]uint64

// NewUpgradeMask returns a mask with the given bits set.
func NewUpgradeMask(bits ...int) UpgradeMask {
	var m UpgradeMask
	for _, b := range bits {
		m.SetBit(b)
	}
	return m
}

func (m *UpgradeMask) SetBit(bit int) {
	if bit < 0 || bit >= UpgradeMaskWords*64 {
		return
	}
	m[bit/64] |= 1 << uint(bit%64)
}

func (m UpgradeMask) TestBit(bit int) bool {
	if bit < 0 || bit >= UpgradeMaskWords*64 {
		return false
	}
	return m[bit/64]&(1<<uint(bit%64)) != 0
}

// Set ors every bit of other into m.
func (m *UpgradeMask) Set(other UpgradeMask) {
	for i := range m {
		m[i] |= other[i]
	}
}

// TestForAll reports whether every bit of other is set in m.
func (m UpgradeMask) TestForAll(other UpgradeMask) bool {
	for i := range m {
		if m[i]&other[i] != other[i] {
			return false
		}
	}
	return true
}

func (m *UpgradeMask) Clear() {
	*m = UpgradeMask{}
}

func (m UpgradeMask) IsEmpty() bool {
	return m == UpgradeMask{}
}

// Bytes returns the little endian encoding of the mask.
func (m UpgradeMask) Bytes() []byte {
	out := make([]byte, UpgradeMaskSize)
	for i, w := range m {
		binary.LittleEndian.PutUint64(out[i*8:], w)
	}
	return out
}

// SetBytes replaces the mask with the little endian words in b.
func (m *UpgradeMask) SetBytes(b []byte) {
	m.Clear()
	for i := range m {
		if len(b) < (i+1)*8 {
			return
		}
		m[i] = binary.LittleEndian.Uint64(b[i*8:])
	}
}

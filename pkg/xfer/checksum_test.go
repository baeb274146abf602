package xfer

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksumWord(t *testing.T) {
	var c Checksum
	c.AddWord(0x12345678)
	assert.Equal(t, uint32(0x78563412), c.Register())
	assert.Equal(t, uint32(0x12345678), c.Sum())
}

func TestChecksumAddMatchesAddWord(t *testing.T) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, 0x12345678)

	var fromBytes, fromWord Checksum
	fromBytes.Add(b)
	fromWord.AddWord(0x12345678)
	assert.Equal(t, fromWord.Register(), fromBytes.Register())
}

func TestChecksumEmptyInput(t *testing.T) {
	var c Checksum
	c.AddWord(0xDEADBEEF)
	before := c.Register()
	c.Add(nil)
	c.Add([]byte{})
	assert.Equal(t, before, c.Register())
}

func TestChecksumCarry(t *testing.T) {
	c := Checksum{reg: 0x80000000}
	c.Add([]byte{0, 0, 0, 0})
	// the top bit is shifted out and fed back into bit 0
	assert.Equal(t, uint32(1), c.Register())
}

func TestChecksumTail(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint32
	}{
		{name: "one byte", data: []byte{0xAB}, want: 0x000000AB},
		{name: "two bytes", data: []byte{0x01, 0x02}, want: 0x00000201},
		{name: "three bytes", data: []byte{0x01, 0x02, 0x03}, want: 0x00030201},
		{name: "word and tail", data: []byte{0x78, 0x56, 0x34, 0x12, 0x01}, want: 0x78563412<<1 + 0x01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Checksum
			c.Add(tt.data)
			assert.Equal(t, tt.want, c.Register())
		})
	}
}

func TestChecksumOrderMatters(t *testing.T) {
	var a, b Checksum
	a.AddWord(1)
	a.AddWord(2)
	b.AddWord(2)
	b.AddWord(1)
	assert.NotEqual(t, a.Sum(), b.Sum())
}

func TestCRCDeterminism(t *testing.T) {
	run := func(values []int32) uint32 {
		c := NewCRC()
		if err := c.Open("determinism"); err != nil {
			t.Fatal(err)
		}
		for i := range values {
			if err := Int(c, &values[i], ""); err != nil {
				t.Fatal(err)
			}
		}
		f := float32(3.25)
		if err := Real(c, &f, ""); err != nil {
			t.Fatal(err)
		}
		if err := c.Close(); err != nil {
			t.Fatal(err)
		}
		return c.Checksum()
	}

	first := run([]int32{1, 2, 3, -4})
	second := run([]int32{1, 2, 3, -4})
	permuted := run([]int32{-4, 3, 2, 1})

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, permuted)
}

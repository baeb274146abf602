package xfer

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/cbodonnell/statexfer/pkg/xfer/types"
)

// All multi-byte primitives are little endian on every host.

func Byte(x Xfer, v *int8, label string) error {
	b := []byte{byte(*v)}
	if err := x.Transfer(b); err != nil {
		return err
	}
	*v = int8(b[0])
	if x.Mode() == ModeCRC {
		x.LogValue(label, strconv.Itoa(int(*v)))
	}
	return nil
}

func UnsignedByte(x Xfer, v *uint8, label string) error {
	b := []byte{*v}
	if err := x.Transfer(b); err != nil {
		return err
	}
	*v = b[0]
	if x.Mode() == ModeCRC {
		x.LogValue(label, strconv.FormatUint(uint64(*v), 10))
	}
	return nil
}

// Bool is transferred as a single byte, any non zero value loads as true.
func Bool(x Xfer, v *bool, label string) error {
	b := []byte{0}
	if *v {
		b[0] = 1
	}
	if err := x.Transfer(b); err != nil {
		return err
	}
	*v = b[0] != 0
	if x.Mode() == ModeCRC {
		if *v {
			x.LogValue(label, "1")
		} else {
			x.LogValue(label, "0")
		}
	}
	return nil
}

func Short(x Xfer, v *int16, label string) error {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(*v))
	if err := x.Transfer(b); err != nil {
		return err
	}
	*v = int16(binary.LittleEndian.Uint16(b))
	if x.Mode() == ModeCRC {
		x.LogValue(label, strconv.Itoa(int(*v)))
	}
	return nil
}

func UnsignedShort(x Xfer, v *uint16, label string) error {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, *v)
	if err := x.Transfer(b); err != nil {
		return err
	}
	*v = binary.LittleEndian.Uint16(b)
	if x.Mode() == ModeCRC {
		x.LogValue(label, strconv.FormatUint(uint64(*v), 10))
	}
	return nil
}

func Int(x Xfer, v *int32, label string) error {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(*v))
	if err := x.Transfer(b); err != nil {
		return err
	}
	*v = int32(binary.LittleEndian.Uint32(b))
	if x.Mode() == ModeCRC {
		x.LogValue(label, strconv.FormatInt(int64(*v), 10))
	}
	return nil
}

func UnsignedInt(x Xfer, v *uint32, label string) error {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, *v)
	if err := x.Transfer(b); err != nil {
		return err
	}
	*v = binary.LittleEndian.Uint32(b)
	if x.Mode() == ModeCRC {
		x.LogValue(label, strconv.FormatUint(uint64(*v), 10))
	}
	return nil
}

func Int64(x Xfer, v *int64, label string) error {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(*v))
	if err := x.Transfer(b); err != nil {
		return err
	}
	*v = int64(binary.LittleEndian.Uint64(b))
	if x.Mode() == ModeCRC {
		x.LogValue(label, strconv.FormatInt(*v, 10))
	}
	return nil
}

// Real transfers the raw IEEE-754 bits of a float32. Checksums fold the bit
// pattern, never a rounded value.
func Real(x Xfer, v *float32, label string) error {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(*v))
	if err := x.Transfer(b); err != nil {
		return err
	}
	*v = math.Float32frombits(binary.LittleEndian.Uint32(b))
	if x.Mode() == ModeCRC {
		x.LogValue(label, fmt.Sprintf("%.15g", float64(*v)))
		x.LogBytes(label, b)
	}
	return nil
}

// Version transfers a version tag and fails with ErrInvalidVersion when the
// stored tag is newer than current.
func Version(x Xfer, v *uint8, current uint8, label string) error {
	b := []byte{*v}
	if err := x.Transfer(b); err != nil {
		return err
	}
	*v = b[0]
	if *v > current {
		return fail(ErrInvalidVersion, "unknown version '%d' should be no higher than '%d'", *v, current)
	}
	if x.Mode() == ModeCRC {
		x.LogValue(label, strconv.FormatUint(uint64(*v), 10))
	}
	return nil
}

// User transfers an opaque blob of len(data) bytes.
func User(x Xfer, data []byte, label string) error {
	if err := x.Transfer(data); err != nil {
		return err
	}
	if x.Mode() == ModeCRC {
		x.LogBytes(label, data)
	}
	return nil
}

// MarkerLabel writes text to the checksum log without transferring anything.
func MarkerLabel(x Xfer, text, label string) {
	if x.Mode() == ModeCRC {
		x.LogValue(label, text)
	}
}

func Color(x Xfer, v *types.Color, label string) error {
	i := int32(*v)
	if err := Int(x, &i, label); err != nil {
		return err
	}
	*v = types.Color(i)
	return nil
}

func ObjectID(x Xfer, v *types.ObjectID, label string) error {
	i := int32(*v)
	if err := Int(x, &i, label); err != nil {
		return err
	}
	*v = types.ObjectID(i)
	return nil
}

func DrawableID(x Xfer, v *types.DrawableID, label string) error {
	i := int32(*v)
	if err := Int(x, &i, label); err != nil {
		return err
	}
	*v = types.DrawableID(i)
	return nil
}

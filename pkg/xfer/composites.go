package xfer

import "github.com/cbodonnell/statexfer/pkg/xfer/types"

// Composites are sequences of primitives in a fixed order. Checksums depend
// on that order, so fields are never grouped or reordered.

func Coord2D(x Xfer, c *types.Coord2D, label string) error {
	return reals(x, label, &c.X, &c.Y)
}

func Coord3D(x Xfer, c *types.Coord3D, label string) error {
	return reals(x, label, &c.X, &c.Y, &c.Z)
}

func ICoord2D(x Xfer, c *types.ICoord2D, label string) error {
	return ints(x, label, &c.X, &c.Y)
}

func ICoord3D(x Xfer, c *types.ICoord3D, label string) error {
	return ints(x, label, &c.X, &c.Y, &c.Z)
}

func Region2D(x Xfer, r *types.Region2D, label string) error {
	if err := Coord2D(x, &r.Lo, label); err != nil {
		return err
	}
	return Coord2D(x, &r.Hi, label)
}

func IRegion2D(x Xfer, r *types.IRegion2D, label string) error {
	if err := ICoord2D(x, &r.Lo, label); err != nil {
		return err
	}
	return ICoord2D(x, &r.Hi, label)
}

func Region3D(x Xfer, r *types.Region3D, label string) error {
	if err := Coord3D(x, &r.Lo, label); err != nil {
		return err
	}
	return Coord3D(x, &r.Hi, label)
}

func IRegion3D(x Xfer, r *types.IRegion3D, label string) error {
	if err := ICoord3D(x, &r.Lo, label); err != nil {
		return err
	}
	return ICoord3D(x, &r.Hi, label)
}

func RealRange(x Xfer, r *types.RealRange, label string) error {
	return reals(x, label, &r.Lo, &r.Hi)
}

func RGBColor(x Xfer, c *types.RGBColor, label string) error {
	return reals(x, label, &c.Red, &c.Green, &c.Blue)
}

func RGBAColorReal(x Xfer, c *types.RGBAColorReal, label string) error {
	return reals(x, label, &c.Red, &c.Green, &c.Blue, &c.Alpha)
}

func RGBAColorInt(x Xfer, c *types.RGBAColorInt, label string) error {
	for _, v := range []*uint32{&c.Red, &c.Green, &c.Blue, &c.Alpha} {
		if err := UnsignedInt(x, v, label); err != nil {
			return err
		}
	}
	return nil
}

// Matrix3DVersion is the current version of the Matrix3D encoding.
const Matrix3DVersion uint8 = 1

// Matrix3D transfers a version tag followed by the twelve values row by row.
// Checksum backends fold the values only.
func Matrix3D(x Xfer, m *types.Matrix3D, label string) error {
	if _, ok := x.(Checksummer); !ok {
		version := Matrix3DVersion
		if err := Version(x, &version, Matrix3DVersion, label); err != nil {
			return err
		}
	}
	for row := range m {
		for col := range m[row] {
			if err := Real(x, &m[row][col], label); err != nil {
				return err
			}
		}
	}
	return nil
}

func reals(x Xfer, label string, vs ...*float32) error {
	for _, v := range vs {
		if err := Real(x, v, label); err != nil {
			return err
		}
	}
	return nil
}

func ints(x Xfer, label string, vs ...*int32) error {
	for _, v := range vs {
		if err := Int(x, v, label); err != nil {
			return err
		}
	}
	return nil
}

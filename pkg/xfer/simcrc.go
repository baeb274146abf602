package xfer

import (
	"math"

	"github.com/cbodonnell/statexfer/pkg/xfer/types"
)

// SimulationMatrixCRC runs a fixed floating point workload and returns the
// checksum of the result. Machines that disagree on it will desync.
func SimulationMatrixCRC() (uint32, error) {
	var m types.Matrix3D
	m.Set(
		4.1, 1.2, 0.3, 0.4,
		0.5, 3.6, 0.7, 0.8,
		0.9, 1.0, 2.1, 1.2,
	)

	f32 := func(v float64) float32 { return float32(v) }
	var factors types.Matrix3D
	factors.Set(
		f32(math.Cos(-0.0))*f32(math.Sin(0.7))*f32(math.Log10(2.3)),
		f32(math.Sin(-1.0))*f32(math.Cos(1.1))*f32(math.Pow(1.1, 2.0)),
		f32(math.Tan(0.3)),
		f32(math.Asin(0.5)),
		f32(math.Acos(-0.3)),
		f32(math.Atan(0.9))*f32(math.Pow(1.1, 2.0)),
		f32(math.Atan2(0.4, 1.3)),
		f32(math.Sinh(0.2)),
		f32(math.Cosh(0.4)),
		f32(math.Tanh(0.5)),
		f32(math.Exp(0.1))*f32(math.Log10(2.3)),
		f32(math.Log(1.4)),
	)

	return inverseCRC(types.Multiply(m, factors))
}

func inverseCRC(m types.Matrix3D) (uint32, error) {
	inv, ok := m.Inverse()
	if !ok {
		return 0, fail(ErrInvalidParameters, "simulation matrix is singular")
	}

	crc := NewCRC()
	if err := crc.Open("SimulationMatrixCrc"); err != nil {
		return 0, err
	}
	if err := Matrix3D(crc, &inv, ""); err != nil {
		return 0, err
	}
	if err := crc.Close(); err != nil {
		return 0, err
	}
	return crc.Checksum(), nil
}

package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cbodonnell/statexfer/pkg/xfer"
	"github.com/cbodonnell/statexfer/pkg/xfer/types"
)

// Sentinel values used for fields that carry no data of their own.
const (
	EndBlockValue = "<end-block>"
	UnknownValue  = "<unknown>"
)

// maxNesting bounds nested schema recursion so self referencing schemas
// cannot recurse forever.
const maxNesting = 64

// Property is one decoded value.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

// Result is the output of Decode. Warnings never stop decoding on their own.
type Result struct {
	Properties []Property `json:"properties"`
	Warnings   []string   `json:"warnings,omitempty"`
}

type loopFrame struct {
	bodyStart int
	endIndex  int
	remaining int64
	total     int64
	counter   string
	index     int64
	level     int
	// startPos is the cursor before the first iteration, -1 when unknown
	startPos int
}

// decoder carries the state of one Decode call tree. Numeric scopes are
// passed per level; loop frames are shared only for naming.
type decoder struct {
	x      xfer.Xfer
	frames []loopFrame
	result Result
}

// Decode reads the fields of sc from x, which must be in load mode.
//
// A transfer error, usually truncated data, ends decoding. It is reported as a
// warning and the properties decoded so far are returned.
func Decode(x xfer.Xfer, sc *Schema, prefix string) Result {
	d := &decoder{x: x}
	if err := d.decode(sc, prefix, make(map[string]int64), 0); err != nil {
		d.warnf("Decoding stopped: %v", err)
	}
	return d.result
}

// tell returns the cursor of the underlying transfer, or -1 when the backend
// has none.
func (d *decoder) tell() int {
	if t, ok := d.x.(interface{ Tell() int }); ok {
		return t.Tell()
	}
	return -1
}

func (d *decoder) warnf(format string, args ...interface{}) {
	d.result.Warnings = append(d.result.Warnings, fmt.Sprintf(format, args...))
}

func (d *decoder) decode(sc *Schema, prefix string, numeric map[string]int64, level int) error {
	framesAtEntry := len(d.frames)
	defer func() {
		d.frames = d.frames[:framesAtEntry]
	}()

	fields := sc.Fields
	i := 0
	for i < len(fields) {
		f := fields[i]

		switch f.Kind {
		case KindLoopStart:
			end := findLoopEnd(fields, i)
			if end == len(fields) {
				d.warnf("Unmatched LoopStart for '%s'", f.Name)
				return nil
			}
			count, ok := numeric[f.Name]
			if !ok {
				d.warnf("LoopStart for '%s' has no recorded count value", f.Name)
			}
			if count <= 0 {
				i = end + 1
				continue
			}
			d.frames = append(d.frames, loopFrame{
				bodyStart: i + 1,
				endIndex:  end,
				remaining: count,
				total:     count,
				counter:   f.Name,
				level:     level,
				startPos:  d.tell(),
			})
			i++
			continue

		case KindLoopEnd:
			if len(d.frames) == framesAtEntry || d.frames[len(d.frames)-1].level != level {
				d.warnf("Encountered LoopEnd without matching LoopStart")
				i++
				continue
			}
			top := &d.frames[len(d.frames)-1]
			top.remaining--
			if top.index == 0 && top.remaining > 0 && top.startPos >= 0 && d.tell() == top.startPos {
				d.warnf("Loop body for '%s' consumed no data, skipping %d remaining iteration(s)", top.counter, top.remaining)
				top.remaining = 0
			}
			if top.remaining > 0 {
				top.index++
				i = top.bodyStart
			} else {
				d.frames = d.frames[:len(d.frames)-1]
				i++
			}
			continue

		case KindNested:
			if level+1 >= maxNesting {
				d.warnf("Schema nesting deeper than %d at field '%s'", maxNesting, f.Name)
				return nil
			}
			nestedPrefix := f.Name
			if prefix != "" {
				nestedPrefix = prefix + "." + f.Name
			}
			nested := sc.set.schemas[f.Ref]
			if err := d.decode(nested, nestedPrefix, make(map[string]int64), level+1); err != nil {
				return err
			}
			i++
			continue

		case KindUnknown:
			d.warnf("Unknown field type '%s' for field '%s'", f.Type, f.Name)
			d.result.Properties = append(d.result.Properties, Property{
				Name:  d.propertyName(prefix, f.Name),
				Value: UnknownValue,
				Type:  f.Type,
			})
			i++
			continue

		case KindMarkerLabel:
			i++
			continue
		}

		value, n, err := d.field(f)
		if err != nil {
			return fmt.Errorf("field '%s' (%s): %v", f.Name, f.Type, err)
		}
		if f.Kind.recordsNumeric() && f.Name != "" {
			numeric[f.Name] = n
		}
		d.result.Properties = append(d.result.Properties, Property{
			Name:  d.propertyName(prefix, f.Name),
			Value: value,
			Type:  f.Type,
		})
		i++
	}
	return nil
}

// findLoopEnd returns the index of the LoopEnd matching the LoopStart at
// start, or len(fields) when there is none.
func findLoopEnd(fields []Field, start int) int {
	depth := 0
	for i := start + 1; i < len(fields); i++ {
		switch fields[i].Kind {
		case KindLoopStart:
			depth++
		case KindLoopEnd:
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return len(fields)
}

func (d *decoder) propertyName(prefix, field string) string {
	var sb strings.Builder
	for _, fr := range d.frames {
		fmt.Fprintf(&sb, "%s[%d].", fr.counter, fr.index)
	}
	if prefix != "" {
		sb.WriteString(prefix)
		if !strings.HasSuffix(prefix, ".") {
			sb.WriteByte('.')
		}
	}
	sb.WriteString(field)
	return sb.String()
}

// field decodes a single value field and returns its text and, for integer
// like kinds, its numeric value.
func (d *decoder) field(f Field) (string, int64, error) {
	x := d.x
	switch f.Kind {
	case KindByte:
		var v int8
		err := xfer.Byte(x, &v, f.Name)
		return strconv.Itoa(int(v)), int64(v), err
	case KindUnsignedByte:
		var v uint8
		err := xfer.UnsignedByte(x, &v, f.Name)
		return strconv.Itoa(int(v)), int64(v), err
	case KindBool:
		var v bool
		err := xfer.Bool(x, &v, f.Name)
		if v {
			return "true", 1, err
		}
		return "false", 0, err
	case KindShort:
		var v int16
		err := xfer.Short(x, &v, f.Name)
		return strconv.Itoa(int(v)), int64(v), err
	case KindUnsignedShort:
		var v uint16
		err := xfer.UnsignedShort(x, &v, f.Name)
		return strconv.Itoa(int(v)), int64(v), err
	case KindInt:
		var v int32
		err := xfer.Int(x, &v, f.Name)
		return strconv.Itoa(int(v)), int64(v), err
	case KindUnsignedInt:
		var v uint32
		err := xfer.UnsignedInt(x, &v, f.Name)
		return strconv.FormatUint(uint64(v), 10), int64(v), err
	case KindInt64:
		var v int64
		err := xfer.Int64(x, &v, f.Name)
		return strconv.FormatInt(v, 10), v, err
	case KindReal:
		var v float32
		err := xfer.Real(x, &v, f.Name)
		return formatReal(v), 0, err
	case KindAsciiString:
		var v string
		err := x.AsciiString(&v, f.Name)
		return v, 0, err
	case KindUnicodeString:
		var v string
		err := x.UnicodeString(&v, f.Name)
		return v, 0, err
	case KindBlockSize:
		v, err := x.BeginBlock()
		return strconv.Itoa(int(v)), int64(v), err
	case KindEndBlock:
		return EndBlockValue, 0, x.EndBlock()
	}
	text, err := d.composite(f)
	return text, 0, err
}

func (d *decoder) composite(f Field) (string, error) {
	x := d.x
	switch f.Kind {
	case KindCoord2D:
		var v types.Coord2D
		err := xfer.Coord2D(x, &v, f.Name)
		return reals(v.X, v.Y), err
	case KindCoord3D:
		var v types.Coord3D
		err := xfer.Coord3D(x, &v, f.Name)
		return reals(v.X, v.Y, v.Z), err
	case KindICoord2D:
		var v types.ICoord2D
		err := xfer.ICoord2D(x, &v, f.Name)
		return ints(v.X, v.Y), err
	case KindICoord3D:
		var v types.ICoord3D
		err := xfer.ICoord3D(x, &v, f.Name)
		return ints(v.X, v.Y, v.Z), err
	case KindRegion2D:
		var v types.Region2D
		err := xfer.Region2D(x, &v, f.Name)
		return reals(v.Lo.X, v.Lo.Y) + "-" + reals(v.Hi.X, v.Hi.Y), err
	case KindRegion3D:
		var v types.Region3D
		err := xfer.Region3D(x, &v, f.Name)
		return reals(v.Lo.X, v.Lo.Y, v.Lo.Z) + "-" + reals(v.Hi.X, v.Hi.Y, v.Hi.Z), err
	case KindIRegion2D:
		var v types.IRegion2D
		err := xfer.IRegion2D(x, &v, f.Name)
		return ints(v.Lo.X, v.Lo.Y) + "-" + ints(v.Hi.X, v.Hi.Y), err
	case KindIRegion3D:
		var v types.IRegion3D
		err := xfer.IRegion3D(x, &v, f.Name)
		return ints(v.Lo.X, v.Lo.Y, v.Lo.Z) + "-" + ints(v.Hi.X, v.Hi.Y, v.Hi.Z), err
	case KindRealRange:
		var v types.RealRange
		err := xfer.RealRange(x, &v, f.Name)
		return reals(v.Lo, v.Hi), err
	case KindRGBColor:
		var v types.RGBColor
		err := xfer.RGBColor(x, &v, f.Name)
		return reals(v.Red, v.Green, v.Blue), err
	case KindRGBAColorReal:
		var v types.RGBAColorReal
		err := xfer.RGBAColorReal(x, &v, f.Name)
		return reals(v.Red, v.Green, v.Blue, v.Alpha), err
	case KindRGBAColorInt:
		var v types.RGBAColorInt
		err := xfer.RGBAColorInt(x, &v, f.Name)
		return fmt.Sprintf("(%d, %d, %d, %d)", v.Red, v.Green, v.Blue, v.Alpha), err
	case KindColor:
		var v types.Color
		err := xfer.Color(x, &v, f.Name)
		return fmt.Sprintf("0x%08X", uint32(v)), err
	case KindObjectID:
		var v types.ObjectID
		err := xfer.ObjectID(x, &v, f.Name)
		return strconv.Itoa(int(v)), err
	case KindDrawableID:
		var v types.DrawableID
		err := xfer.DrawableID(x, &v, f.Name)
		return strconv.Itoa(int(v)), err
	case KindMatrix3D:
		var v types.Matrix3D
		err := xfer.Matrix3D(x, &v, f.Name)
		rows := make([]string, len(v))
		for r := range v {
			rows[r] = reals(v[r][0], v[r][1], v[r][2], v[r][3])
		}
		return "[" + strings.Join(rows, " ") + "]", err
	}
	return UnknownValue, fmt.Errorf("unhandled field kind %d", f.Kind)
}

// formatReal renders floats with six significant digits.
func formatReal(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', 6, 32)
}

func reals(vs ...float32) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatReal(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func ints(vs ...int32) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(int(v))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

package xfer

import (
	"container/list"
	"math"

	"github.com/cbodonnell/statexfer/pkg/log"
	"github.com/cbodonnell/statexfer/pkg/xfer/types"
)

const collectionVersion uint8 = 1

// collectionHeader transfers the version tag and element count shared by all
// collections. On save and crc the count is taken from n.
func collectionHeader(x Xfer, n int, label string) (uint16, error) {
	version := collectionVersion
	if err := Version(x, &version, collectionVersion, label); err != nil {
		return 0, err
	}
	if n > math.MaxUint16 {
		return 0, fail(ErrInvalidParameters, "collection '%s' has %d items, more than fit in the count", label, n)
	}
	count := uint16(n)
	if err := UnsignedShort(x, &count, label); err != nil {
		return 0, err
	}
	return count, nil
}

// ObjectIDVector transfers a slice of object ids. On load the slice must be
// empty.
func ObjectIDVector(x Xfer, v *[]types.ObjectID, label string) error {
	count, err := collectionHeader(x, len(*v), label)
	if err != nil {
		return err
	}
	switch x.Mode() {
	case ModeSave, ModeCRC:
		for i := range *v {
			id := (*v)[i]
			if err := ObjectID(x, &id, label); err != nil {
				return err
			}
		}
	case ModeLoad:
		if len(*v) != 0 {
			return fail(ErrListNotEmpty, "object id vector '%s' should be empty before loading", label)
		}
		for i := 0; i < int(count); i++ {
			var id types.ObjectID
			if err := ObjectID(x, &id, label); err != nil {
				return err
			}
			*v = append(*v, id)
		}
	default:
		return fail(ErrModeUnknown, "object id vector: unknown xfer mode '%d'", x.Mode())
	}
	return nil
}

// ObjectIDList transfers a linked list of types.ObjectID values. On load the
// list must be empty.
func ObjectIDList(x Xfer, l *list.List, label string) error {
	count, err := collectionHeader(x, l.Len(), label)
	if err != nil {
		return err
	}
	switch x.Mode() {
	case ModeSave, ModeCRC:
		for e := l.Front(); e != nil; e = e.Next() {
			id, ok := e.Value.(types.ObjectID)
			if !ok {
				return fail(ErrInvalidParameters, "object id list '%s' holds a %T", label, e.Value)
			}
			if err := ObjectID(x, &id, label); err != nil {
				return err
			}
		}
	case ModeLoad:
		if l.Len() != 0 {
			return fail(ErrListNotEmpty, "object id list '%s' should be empty before loading", label)
		}
		for i := 0; i < int(count); i++ {
			var id types.ObjectID
			if err := ObjectID(x, &id, label); err != nil {
				return err
			}
			l.PushBack(id)
		}
	default:
		return fail(ErrModeUnknown, "object id list: unknown xfer mode '%d'", x.Mode())
	}
	return nil
}

// IntList transfers a slice of int32 values. A nil pointer is a no-op. On
// load the slice must be empty.
func IntList(x Xfer, v *[]int32, label string) error {
	if v == nil {
		return nil
	}
	count, err := collectionHeader(x, len(*v), label)
	if err != nil {
		return err
	}
	switch x.Mode() {
	case ModeSave, ModeCRC:
		for i := range *v {
			n := (*v)[i]
			if err := Int(x, &n, label); err != nil {
				return err
			}
		}
	case ModeLoad:
		if len(*v) != 0 {
			return fail(ErrListNotEmpty, "int list '%s' should be empty before loading", label)
		}
		for i := 0; i < int(count); i++ {
			var n int32
			if err := Int(x, &n, label); err != nil {
				return err
			}
			*v = append(*v, n)
		}
	default:
		return fail(ErrModeUnknown, "int list: unknown xfer mode '%d'", x.Mode())
	}
	return nil
}

// ScienceVec transfers a slice of sciences by name. Unlike the other
// collections a non empty target on load is cleared with a warning.
func ScienceVec(x Xfer, reg ScienceRegistry, v *[]types.ScienceType, label string) error {
	if v == nil || reg == nil {
		return fail(ErrInvalidParameters, "science vector '%s'", label)
	}
	count, err := collectionHeader(x, len(*v), label)
	if err != nil {
		return err
	}
	switch x.Mode() {
	case ModeSave:
		for i := range *v {
			science := (*v)[i]
			if err := Science(x, reg, &science, label); err != nil {
				return err
			}
		}
	case ModeLoad:
		if len(*v) != 0 {
			log.Warn("Science vector '%s' had %d entries before loading, clearing", label, len(*v))
			*v = (*v)[:0]
		}
		for i := 0; i < int(count); i++ {
			var science types.ScienceType
			if err := Science(x, reg, &science, label); err != nil {
				return err
			}
			*v = append(*v, science)
		}
	case ModeCRC:
		for i := range *v {
			raw := int32((*v)[i])
			if err := Int(x, &raw, label); err != nil {
				return err
			}
		}
	default:
		return fail(ErrModeUnknown, "science vector: unknown xfer mode '%d'", x.Mode())
	}
	return nil
}

package xfer

import "github.com/cbodonnell/statexfer/pkg/xfer/types"

// ScienceRegistry maps sciences to the internal names stored in save files.
type ScienceRegistry interface {
	NameForScience(s types.ScienceType) string
	// ScienceForName returns types.ScienceInvalid for unknown names.
	ScienceForName(name string) types.ScienceType
}

// KindOfRegistry maps single kind-of bits to their names.
type KindOfRegistry interface {
	NameForBit(bit types.KindOfType) string
	// BitForName returns types.KindOfInvalid for unknown names.
	BitForName(name string) types.KindOfType
}

// UpgradeTemplate is one named upgrade and the mask bits it owns.
type UpgradeTemplate struct {
	Name string
	Mask types.UpgradeMask
}

// UpgradeRegistry lists upgrades in a stable order.
type UpgradeRegistry interface {
	Upgrades() []UpgradeTemplate
	FindUpgrade(name string) (UpgradeTemplate, bool)
}

// MapPathTranslator converts map paths between their machine specific and
// portable forms.
type MapPathTranslator interface {
	RealToPortable(path string) string
	PortableToReal(path string) string
}

// Science is saved by name so registries can be reordered between versions.
// Checksums fold the raw value.
func Science(x Xfer, reg ScienceRegistry, s *types.ScienceType, label string) error {
	if s == nil || reg == nil {
		return fail(ErrInvalidParameters, "science '%s'", label)
	}
	switch x.Mode() {
	case ModeSave:
		name := reg.NameForScience(*s)
		return x.AsciiString(&name, label)
	case ModeLoad:
		var name string
		if err := x.AsciiString(&name, label); err != nil {
			return err
		}
		*s = reg.ScienceForName(name)
		if *s == types.ScienceInvalid {
			return fail(ErrUnknownString, "unknown science '%s'", name)
		}
		return nil
	case ModeCRC:
		return Int(x, (*int32)(s), label)
	default:
		return fail(ErrModeUnknown, "science: unknown xfer mode '%d'", x.Mode())
	}
}

const kindOfVersion uint8 = 1

// KindOf is saved by name. Unknown names on load leave the value untouched.
func KindOf(x Xfer, reg KindOfRegistry, k *types.KindOfType, label string) error {
	version := kindOfVersion
	if err := Version(x, &version, kindOfVersion, label); err != nil {
		return err
	}
	switch x.Mode() {
	case ModeSave:
		name := reg.NameForBit(*k)
		return x.AsciiString(&name, label)
	case ModeLoad:
		var name string
		if err := x.AsciiString(&name, label); err != nil {
			return err
		}
		if bit := reg.BitForName(name); bit != types.KindOfInvalid {
			*k = bit
		}
		return nil
	case ModeCRC:
		return Int(x, (*int32)(k), label)
	default:
		return fail(ErrModeUnknown, "kind of: unknown xfer mode '%d'", x.Mode())
	}
}

const upgradeMaskVersion uint8 = 1

// UpgradeMask is saved as the names of every upgrade fully contained in the
// mask. Unknown names on load fail with ErrUnknownString.
func UpgradeMask(x Xfer, reg UpgradeRegistry, m *types.UpgradeMask, label string) error {
	version := upgradeMaskVersion
	if err := Version(x, &version, upgradeMaskVersion, label); err != nil {
		return err
	}
	switch x.Mode() {
	case ModeSave:
		var names []string
		for _, tmpl := range reg.Upgrades() {
			if m.TestForAll(tmpl.Mask) {
				names = append(names, tmpl.Name)
			}
		}
		count := uint16(len(names))
		if err := UnsignedShort(x, &count, label); err != nil {
			return err
		}
		for i := range names {
			if err := x.AsciiString(&names[i], label); err != nil {
				return err
			}
		}
		return nil
	case ModeLoad:
		var count uint16
		if err := UnsignedShort(x, &count, label); err != nil {
			return err
		}
		m.Clear()
		for i := 0; i < int(count); i++ {
			var name string
			if err := x.AsciiString(&name, label); err != nil {
				return err
			}
			tmpl, ok := reg.FindUpgrade(name)
			if !ok {
				return fail(ErrUnknownString, "unknown upgrade '%s'", name)
			}
			m.Set(tmpl.Mask)
		}
		return nil
	case ModeCRC:
		raw := m.Bytes()
		if err := x.Transfer(raw); err != nil {
			return err
		}
		x.LogBytes(label, raw)
		return nil
	default:
		return fail(ErrModeUnknown, "upgrade mask: unknown xfer mode '%d'", x.Mode())
	}
}

// MapName stores map paths in their portable form. Checksum sessions skip
// map names entirely.
func MapName(x Xfer, t MapPathTranslator, path *string, label string) error {
	switch x.Mode() {
	case ModeSave:
		portable := t.RealToPortable(*path)
		return x.AsciiString(&portable, label)
	case ModeLoad:
		if err := x.AsciiString(path, label); err != nil {
			return err
		}
		*path = t.PortableToReal(*path)
	}
	return nil
}

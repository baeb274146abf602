// Package schema decodes save file records into flat property lists using
// declarative schemas instead of compiled knowledge of the records.
package schema

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Kind is the compiled meaning of a field type.
type Kind int

const (
	KindUnknown Kind = iota
	KindByte
	KindUnsignedByte
	KindBool
	KindShort
	KindUnsignedShort
	KindInt
	KindUnsignedInt
	KindInt64
	KindReal
	KindAsciiString
	KindUnicodeString
	KindBlockSize
	KindEndBlock
	KindLoopStart
	KindLoopEnd
	KindMarkerLabel
	KindNested

	KindCoord2D
	KindCoord3D
	KindICoord2D
	KindICoord3D
	KindRegion2D
	KindRegion3D
	KindIRegion2D
	KindIRegion3D
	KindRealRange
	KindRGBColor
	KindRGBAColorReal
	KindRGBAColorInt
	KindColor
	KindObjectID
	KindDrawableID
	KindMatrix3D
)

var builtinKinds = map[string]Kind{
	"Byte":          KindByte,
	"UnsignedByte":  KindUnsignedByte,
	"Bool":          KindBool,
	"Short":         KindShort,
	"UnsignedShort": KindUnsignedShort,
	"Int":           KindInt,
	"UnsignedInt":   KindUnsignedInt,
	"Int64":         KindInt64,
	"Real":          KindReal,
	"AsciiString":   KindAsciiString,
	"UnicodeString": KindUnicodeString,
	"BlockSize":     KindBlockSize,
	"EndBlock":      KindEndBlock,
	"MarkerLabel":   KindMarkerLabel,
	"Coord2D":       KindCoord2D,
	"Coord3D":       KindCoord3D,
	"ICoord2D":      KindICoord2D,
	"ICoord3D":      KindICoord3D,
	"Region2D":      KindRegion2D,
	"Region3D":      KindRegion3D,
	"IRegion2D":     KindIRegion2D,
	"IRegion3D":     KindIRegion3D,
	"RealRange":     KindRealRange,
	"RGBColor":      KindRGBColor,
	"RGBAColorReal": KindRGBAColorReal,
	"RGBAColorInt":  KindRGBAColorInt,
	"Color":         KindColor,
	"ObjectID":      KindObjectID,
	"DrawableID":    KindDrawableID,
	"Matrix3D":      KindMatrix3D,
}

// recordsNumeric reports whether decoded values of k can serve as loop counts.
func (k Kind) recordsNumeric() bool {
	switch k {
	case KindByte, KindUnsignedByte, KindBool, KindShort, KindUnsignedShort,
		KindInt, KindUnsignedInt, KindInt64, KindBlockSize:
		return true
	}
	return false
}

// FieldDef is one field as written in a schema file.
type FieldDef struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
}

// Definition is the on disk form of a schema set. Blocks maps save file block
// names to the schema describing them.
type Definition struct {
	Schemas map[string][]FieldDef `yaml:"schemas" json:"schemas"`
	Blocks  map[string]string     `yaml:"blocks" json:"blocks"`
}

// Field is a compiled schema field.
type Field struct {
	Name string
	Type string
	Kind Kind
	// Ref indexes the owning Set's schemas for KindNested fields.
	Ref int
}

// Schema is an ordered list of fields.
type Schema struct {
	Name   string
	Fields []Field
	set    *Set
}

// Set holds compiled schemas. Nested references are indexes into the set.
type Set struct {
	schemas []*Schema
	byName  map[string]int
	blocks  map[string]int
}

// Compile resolves every field type of def. Loop markers win over schema
// names, schema names win over built in types, anything else is KindUnknown.
func Compile(def Definition) (*Set, error) {
	set := &Set{
		byName: make(map[string]int, len(def.Schemas)),
		blocks: make(map[string]int, len(def.Blocks)),
	}

	names := make([]string, 0, len(def.Schemas))
	for name := range def.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		set.byName[name] = i
		set.schemas = append(set.schemas, &Schema{Name: name, set: set})
	}

	for i, name := range names {
		defs := def.Schemas[name]
		fields := make([]Field, 0, len(defs))
		for _, fd := range defs {
			fields = append(fields, set.compileField(fd))
		}
		set.schemas[i].Fields = fields
	}

	for block, name := range def.Blocks {
		idx, ok := set.byName[name]
		if !ok {
			return nil, fmt.Errorf("block %s refers to unknown schema %s", block, name)
		}
		set.blocks[block] = idx
	}
	return set, nil
}

func (s *Set) compileField(fd FieldDef) Field {
	f := Field{Name: fd.Name, Type: fd.Type, Ref: -1}
	switch fd.Type {
	case "LoopStart":
		f.Kind = KindLoopStart
		return f
	case "LoopEnd":
		f.Kind = KindLoopEnd
		return f
	}
	if idx, ok := s.byName[fd.Type]; ok {
		f.Kind = KindNested
		f.Ref = idx
		return f
	}
	if k, ok := builtinKinds[fd.Type]; ok {
		f.Kind = k
		return f
	}
	f.Kind = KindUnknown
	return f
}

// Load reads a YAML or JSON schema definition and compiles it.
func Load(r io.Reader) (*Set, error) {
	var def Definition
	if err := yaml.NewDecoder(r).Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to decode schema definition: %v", err)
	}
	return Compile(def)
}

// LoadFile loads a schema definition from path.
func LoadFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema file: %v", err)
	}
	defer f.Close()
	return Load(f)
}

// Schema returns the schema registered under name.
func (s *Set) Schema(name string) (*Schema, bool) {
	idx, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return s.schemas[idx], true
}

// BlockSchema returns the schema describing the save file block named block.
func (s *Set) BlockSchema(block string) (*Schema, bool) {
	idx, ok := s.blocks[block]
	if !ok {
		return nil, false
	}
	return s.schemas[idx], true
}

// Blocks returns the known block names in sorted order.
func (s *Set) Blocks() []string {
	out := make([]string, 0, len(s.blocks))
	for name := range s.blocks {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of schemas in the set.
func (s *Set) Len() int {
	return len(s.schemas)
}

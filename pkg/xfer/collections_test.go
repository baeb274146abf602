package xfer

import (
	"container/list"
	"testing"

	"github.com/cbodonnell/statexfer/pkg/xfer/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRegistry struct {
	sciences []string
	kinds    []string
	upgrades []UpgradeTemplate
}

func newTestRegistry() *testRegistry {
	return &testRegistry{
		sciences: []string{"SCIENCE_Rank1", "SCIENCE_Rank2", "SCIENCE_Paradrop"},
		kinds:    []string{"STRUCTURE", "INFANTRY", "VEHICLE"},
		upgrades: []UpgradeTemplate{
			{Name: "Upgrade_Armor", Mask: types.NewUpgradeMask(0)},
			{Name: "Upgrade_Speed", Mask: types.NewUpgradeMask(1)},
			{Name: "Upgrade_Radar", Mask: types.NewUpgradeMask(65)},
		},
	}
}

func (r *testRegistry) NameForScience(s types.ScienceType) string {
	if s < 0 || int(s) >= len(r.sciences) {
		return ""
	}
	return r.sciences[s]
}

func (r *testRegistry) ScienceForName(name string) types.ScienceType {
	for i, n := range r.sciences {
		if n == name {
			return types.ScienceType(i)
		}
	}
	return types.ScienceInvalid
}

func (r *testRegistry) NameForBit(bit types.KindOfType) string {
	if bit < 0 || int(bit) >= len(r.kinds) {
		return ""
	}
	return r.kinds[bit]
}

func (r *testRegistry) BitForName(name string) types.KindOfType {
	for i, n := range r.kinds {
		if n == name {
			return types.KindOfType(i)
		}
	}
	return types.KindOfInvalid
}

func (r *testRegistry) Upgrades() []UpgradeTemplate {
	return r.upgrades
}

func (r *testRegistry) FindUpgrade(name string) (UpgradeTemplate, bool) {
	for _, u := range r.upgrades {
		if u.Name == name {
			return u, true
		}
	}
	return UpgradeTemplate{}, false
}

type prefixTranslator struct{}

func (prefixTranslator) RealToPortable(path string) string {
	return "portable:" + path
}

func (prefixTranslator) PortableToReal(path string) string {
	return "real:" + path
}

func TestObjectIDVectorRoundTrip(t *testing.T) {
	ids := []types.ObjectID{3, 1, 4, 1, 5}
	s := openSave(t)
	require.NoError(t, ObjectIDVector(s, &ids, "ids"))
	// version, count, five ids
	assert.Len(t, s.Bytes(), 1+2+5*4)

	l := openLoad(t, s.Bytes())
	var got []types.ObjectID
	require.NoError(t, ObjectIDVector(l, &got, "ids"))
	assert.Equal(t, ids, got)
}

func TestObjectIDListRoundTrip(t *testing.T) {
	src := list.New()
	src.PushBack(types.ObjectID(10))
	src.PushBack(types.ObjectID(20))

	s := openSave(t)
	require.NoError(t, ObjectIDList(s, src, "list"))

	l := openLoad(t, s.Bytes())
	dst := list.New()
	require.NoError(t, ObjectIDList(l, dst, "list"))
	require.Equal(t, 2, dst.Len())
	assert.Equal(t, types.ObjectID(10), dst.Front().Value)
	assert.Equal(t, types.ObjectID(20), dst.Back().Value)
}

func TestCollectionsMustBeEmptyOnLoad(t *testing.T) {
	ints := []int32{1, 2}
	s := openSave(t)
	require.NoError(t, IntList(s, &ints, ""))
	data := s.Bytes()

	t.Run("int list", func(t *testing.T) {
		l := openLoad(t, data)
		target := []int32{9}
		assert.ErrorIs(t, IntList(l, &target, ""), ErrListNotEmpty)
	})

	t.Run("object id vector", func(t *testing.T) {
		l := openLoad(t, data)
		target := []types.ObjectID{9}
		assert.ErrorIs(t, ObjectIDVector(l, &target, ""), ErrListNotEmpty)
	})

	t.Run("object id list", func(t *testing.T) {
		l := openLoad(t, data)
		target := list.New()
		target.PushBack(types.ObjectID(9))
		assert.ErrorIs(t, ObjectIDList(l, target, ""), ErrListNotEmpty)
	})

	t.Run("nil int list", func(t *testing.T) {
		l := openLoad(t, data)
		assert.NoError(t, IntList(l, nil, ""))
		assert.Equal(t, 0, l.Tell())
	})
}

func TestScienceVecClearsOnLoad(t *testing.T) {
	reg := newTestRegistry()
	src := []types.ScienceType{2, 0}

	s := openSave(t)
	require.NoError(t, ScienceVec(s, reg, &src, "sciences"))

	l := openLoad(t, s.Bytes())
	dst := []types.ScienceType{1, 1, 1}
	require.NoError(t, ScienceVec(l, reg, &dst, "sciences"))
	assert.Equal(t, src, dst)
}

func TestScienceUnknownName(t *testing.T) {
	s := openSave(t)
	name := "SCIENCE_Missing"
	require.NoError(t, s.AsciiString(&name, ""))

	l := openLoad(t, s.Bytes())
	var science types.ScienceType
	assert.ErrorIs(t, Science(l, newTestRegistry(), &science, ""), ErrUnknownString)
}

func TestKindOf(t *testing.T) {
	reg := newTestRegistry()
	kind := types.KindOfType(2)

	s := openSave(t)
	require.NoError(t, KindOf(s, reg, &kind, ""))

	l := openLoad(t, s.Bytes())
	var got types.KindOfType
	require.NoError(t, KindOf(l, reg, &got, ""))
	assert.Equal(t, kind, got)

	// unknown names leave the value untouched
	s = openSave(t)
	version := kindOfVersion
	require.NoError(t, Version(s, &version, kindOfVersion, ""))
	unknown := "AIRCRAFT"
	require.NoError(t, s.AsciiString(&unknown, ""))

	l = openLoad(t, s.Bytes())
	got = types.KindOfType(1)
	require.NoError(t, KindOf(l, reg, &got, ""))
	assert.Equal(t, types.KindOfType(1), got)
}

func TestUpgradeMask(t *testing.T) {
	reg := newTestRegistry()
	mask := types.NewUpgradeMask(0, 65)

	s := openSave(t)
	require.NoError(t, UpgradeMask(s, reg, &mask, ""))

	l := openLoad(t, s.Bytes())
	got := types.NewUpgradeMask(1)
	require.NoError(t, UpgradeMask(l, reg, &got, ""))
	assert.Equal(t, mask, got)

	c := NewCRC()
	require.NoError(t, c.Open(""))
	require.NoError(t, UpgradeMask(c, reg, &mask, ""))
	var want Checksum
	want.Add([]byte{upgradeMaskVersion})
	want.Add(mask.Bytes())
	assert.Equal(t, want.Sum(), c.Checksum())
}

func TestUpgradeMaskUnknownName(t *testing.T) {
	s := openSave(t)
	version := upgradeMaskVersion
	require.NoError(t, Version(s, &version, upgradeMaskVersion, ""))
	count := uint16(1)
	require.NoError(t, UnsignedShort(s, &count, ""))
	name := "Upgrade_Missing"
	require.NoError(t, s.AsciiString(&name, ""))

	l := openLoad(t, s.Bytes())
	var got types.UpgradeMask
	assert.ErrorIs(t, UpgradeMask(l, newTestRegistry(), &got, ""), ErrUnknownString)
}

func TestMapName(t *testing.T) {
	path := "maps/alpine"
	s := openSave(t)
	require.NoError(t, MapName(s, prefixTranslator{}, &path, ""))
	assert.Equal(t, "maps/alpine", path)

	l := openLoad(t, s.Bytes())
	var got string
	require.NoError(t, MapName(l, prefixTranslator{}, &got, ""))
	assert.Equal(t, "real:portable:maps/alpine", got)
}

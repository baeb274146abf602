package types

// Color is a packed ARGB color value.
type Color int32

type ObjectID int32

// InvalidObjectID is the zero object id.
const InvalidObjectID ObjectID = 0

type DrawableID int32

const InvalidDrawableID DrawableID = 0

type Coord2D struct {
	X float32
	Y float32
}

type Coord3D struct {
	X float32
	Y float32
	Z float32
}

type ICoord2D struct {
	X int32
	Y int32
}

type ICoord3D struct {
	X int32
	Y int32
	Z int32
}

type Region2D struct {
	Lo Coord2D
	Hi Coord2D
}

type IRegion2D struct {
	Lo ICoord2D
	Hi ICoord2D
}

type Region3D struct {
	Lo Coord3D
	Hi Coord3D
}

type IRegion3D struct {
	Lo ICoord3D
	Hi ICoord3D
}

type RealRange struct {
	Lo float32
	Hi float32
}

type RGBColor struct {
	Red   float32
	Green float32
	Blue  float32
}

type RGBAColorReal struct {
	Red   float32
	Green float32
	Blue  float32
	Alpha float32
}

type RGBAColorInt struct {
	Red   uint32
	Green uint32
	Blue  uint32
	Alpha uint32
}

// ScienceType identifies an entry in the science registry.
type ScienceType int32

// ScienceInvalid is returned by registries for names they do not know.
const ScienceInvalid ScienceType = -1

// KindOfType is a single bit index of a kind-of mask.
type KindOfType int32

// KindOfInvalid is returned by registries for names they do not know.
const KindOfInvalid KindOfType = -1

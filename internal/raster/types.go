package raster

import "fmt"

// SampleType is the numeric encoding of one channel in a source raster.
type SampleType int

const (
	Unknown SampleType = iota
	Byte
	UInt16
	Int16
	UInt32
	Int32
	Float32
	Float64
	Int8
	UInt64
	Int64
	CInt16
	CInt32
	CFloat32
	CFloat64
)

var sampleTypeNames = map[SampleType]string{
	Unknown:  "Unknown",
	Byte:     "Byte",
	UInt16:   "UInt16",
	Int16:    "Int16",
	UInt32:   "UInt32",
	Int32:    "Int32",
	Float32:  "Float32",
	Float64:  "Float64",
	Int8:     "Int8",
	UInt64:   "UInt64",
	Int64:    "Int64",
	CInt16:   "CInt16",
	CInt32:   "CInt32",
	CFloat32: "CFloat32",
	CFloat64: "CFloat64",
}

func (t SampleType) String() string {
	if name, ok := sampleTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("SampleType(%d)", int(t))
}

// Bits is the storage width of one sample.
func (t SampleType) Bits() int {
	switch t {
	case Byte, Int8:
		return 8
	case UInt16, Int16:
		return 16
	case UInt32, Int32, Float32, CInt16:
		return 32
	case Float64, UInt64, Int64, CInt32, CFloat32:
		return 64
	case CFloat64:
		return 128
	default:
		return 0
	}
}

// ColorRole is the color interpretation of a band.
type ColorRole int

const (
	RoleUndefined ColorRole = iota
	RoleGray
	RolePalette
	RoleRed
	RoleGreen
	RoleBlue
	RoleAlpha
	RoleHue
	RoleSaturation
	RoleLightness
	RoleCyan
	RoleMagenta
	RoleYellow
	RoleBlack
	RoleY
	RoleCb
	RoleCr
)

var colorRoleNames = [...]string{
	"Undefined", "Gray", "Palette", "Red", "Green", "Blue", "Alpha",
	"Hue", "Saturation", "Lightness", "Cyan", "Magenta", "Yellow", "Black",
	"Y", "Cb", "Cr",
}

func (r ColorRole) String() string {
	if r >= 0 && int(r) < len(colorRoleNames) {
		return colorRoleNames[r]
	}
	return fmt.Sprintf("ColorRole(%d)", int(r))
}

// Channel returns the buffer channel a band with this role is decoded into.
func (r ColorRole) Channel() (int, error) {
	switch r {
	case RolePalette, RoleGray, RoleRed:
		return 0, nil
	case RoleGreen:
		return 1, nil
	case RoleBlue:
		return 2, nil
	case RoleAlpha:
		return 3, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedColorRole, r)
	}
}

// PaletteInterp tells how the entries of a color table are to be read.
type PaletteInterp int

const (
	PaletteGray PaletteInterp = iota
	PaletteRGB
	PaletteCMYK
	PaletteHLS
)

func (p PaletteInterp) String() string {
	switch p {
	case PaletteGray:
		return "Gray"
	case PaletteRGB:
		return "RGB"
	case PaletteCMYK:
		return "CMYK"
	case PaletteHLS:
		return "HLS"
	default:
		return fmt.Sprintf("PaletteInterp(%d)", int(p))
	}
}

// Palette is an indexed color table. Each entry holds up to four components,
// (r, g, b, a) for RGB palettes.
type Palette struct {
	Interp  PaletteInterp
	Entries [][4]int16
}

// Entry looks up the components for a sample value. The value is truncated
// to an index; out of range indices yield zero components.
func (p *Palette) Entry(value float64) [4]int16 {
	i := int(value)
	if i < 0 || i >= len(p.Entries) {
		return [4]int16{}
	}
	return p.Entries[i]
}

package geotiff

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
)

// TIFF tag IDs
const (
	tagImageWidth                = 256
	tagImageLength               = 257
	tagBitsPerSample             = 258
	tagCompression               = 259
	tagPhotometricInterpretation = 262
	tagStripOffsets              = 273
	tagSamplesPerPixel           = 277
	tagRowsPerStrip              = 278
	tagStripByteCounts           = 279
	tagPlanarConfiguration       = 284
	tagPredictor                 = 317
	tagColorMap                  = 320
	tagTileWidth                 = 322
	tagTileLength                = 323
	tagTileOffsets               = 324
	tagTileByteCounts            = 325
	tagExtraSamples              = 338
	tagSampleFormat              = 339
	tagModelPixelScale           = 33550
	tagModelTiepoint             = 33922
	tagModelTransformation       = 34264
	tagGeoKeyDirectory           = 34735
	tagGeoDoubleParams           = 34736
	tagGeoAsciiParams            = 34737
	tagGDALMetadata              = 42112
	tagGDALNoData                = 42113
)

// GeoKey IDs
const (
	gkModelType       = 1024
	gkRasterType      = 1025
	gkCitation        = 1026
	gkGeographicType  = 2048
	gkGeogCitation    = 2049
	gkProjectedCSType = 3072

	modelTypeProjected  = 1
	modelTypeGeographic = 2
	modelTypeGeocentric = 3

	rasterPixelIsArea  = 1
	rasterPixelIsPoint = 2

	userDefined = 32767
)

// field types
const (
	dtByte      = 1
	dtASCII     = 2
	dtShort     = 3
	dtLong      = 4
	dtRational  = 5
	dtSByte     = 6
	dtUndefined = 7
	dtSShort    = 8
	dtSLong     = 9
	dtSRational = 10
	dtFloat     = 11
	dtDouble    = 12
)

// compression schemes
const (
	compressionNone     = 1
	compressionLZW      = 5
	compressionDeflate  = 8
	compressionPackBits = 32773
	compressionDeflate2 = 32946
)

// photometric interpretations
const (
	photometricWhiteIsZero = 0
	photometricBlackIsZero = 1
	photometricRGB         = 2
	photometricPalette     = 3
	photometricSeparated   = 5
	photometricYCbCr       = 6
)

// sample formats
const (
	sampleFormatUint  = 1
	sampleFormatInt   = 2
	sampleFormatFloat = 3
)

func typeSize(dt uint16) int {
	switch dt {
	case dtByte, dtASCII, dtSByte, dtUndefined:
		return 1
	case dtShort, dtSShort:
		return 2
	case dtLong, dtSLong, dtFloat:
		return 4
	case dtRational, dtSRational, dtDouble:
		return 8
	default:
		return 0
	}
}

type entry struct {
	tag   uint16
	dt    uint16
	count uint32
	raw   []byte
}

type ifd map[uint16]*entry

func readIFD(r io.ReaderAt, bo binary.ByteOrder, offset int64) (ifd, error) {
	var countBuf [2]byte
	if _, err := r.ReadAt(countBuf[:], offset); err != nil {
		return nil, fmt.Errorf("read IFD at %d: %w", offset, err)
	}
	n := int(bo.Uint16(countBuf[:]))

	buf := make([]byte, 12*n)
	if _, err := r.ReadAt(buf, offset+2); err != nil {
		return nil, fmt.Errorf("read IFD entries: %w", err)
	}

	entries := ifd{}
	for i := 0; i < n; i++ {
		b := buf[i*12 : (i+1)*12]
		e := &entry{
			tag:   bo.Uint16(b[0:]),
			dt:    bo.Uint16(b[2:]),
			count: bo.Uint32(b[4:]),
		}

		size := typeSize(e.dt) * int(e.count)
		if size == 0 {
			// unknown field type
			continue
		}

		if size <= 4 {
			e.raw = append([]byte(nil), b[8:8+size]...)
		} else {
			e.raw = make([]byte, size)
			if _, err := r.ReadAt(e.raw, int64(bo.Uint32(b[8:]))); err != nil {
				return nil, fmt.Errorf("read tag %d: %w", e.tag, err)
			}
		}

		entries[e.tag] = e
	}

	return entries, nil
}

// uints decodes integer fields. Other field types yield nil.
func (e *entry) uints(bo binary.ByteOrder) []uint64 {
	if e == nil {
		return nil
	}

	values := make([]uint64, e.count)
	for i := range values {
		switch e.dt {
		case dtByte, dtUndefined:
			values[i] = uint64(e.raw[i])
		case dtShort:
			values[i] = uint64(bo.Uint16(e.raw[i*2:]))
		case dtLong:
			values[i] = uint64(bo.Uint32(e.raw[i*4:]))
		default:
			return nil
		}
	}
	return values
}

// floats decodes numeric fields as float64.
func (e *entry) floats(bo binary.ByteOrder) []float64 {
	if e == nil {
		return nil
	}

	values := make([]float64, e.count)
	for i := range values {
		switch e.dt {
		case dtDouble:
			values[i] = math.Float64frombits(bo.Uint64(e.raw[i*8:]))
		case dtFloat:
			values[i] = float64(math.Float32frombits(bo.Uint32(e.raw[i*4:])))
		case dtByte:
			values[i] = float64(e.raw[i])
		case dtShort:
			values[i] = float64(bo.Uint16(e.raw[i*2:]))
		case dtLong:
			values[i] = float64(bo.Uint32(e.raw[i*4:]))
		case dtSShort:
			values[i] = float64(int16(bo.Uint16(e.raw[i*2:])))
		case dtSLong:
			values[i] = float64(int32(bo.Uint32(e.raw[i*4:])))
		default:
			return nil
		}
	}
	return values
}

func (e *entry) ascii() string {
	if e == nil || e.dt != dtASCII {
		return ""
	}
	return strings.TrimRight(string(e.raw), "\x00")
}

func (d ifd) uint(tag uint16, bo binary.ByteOrder, def uint64) uint64 {
	values := d[tag].uints(bo)
	if len(values) == 0 {
		return def
	}
	return values[0]
}

type geoKey struct {
	location uint16
	count    uint16
	value    uint16
}

// geoKeys decodes the GeoKey directory. Keys with a tag location keep the
// offset into that tag in value.
func (d ifd) geoKeys(bo binary.ByteOrder) map[uint16]geoKey {
	dir := d[tagGeoKeyDirectory].uints(bo)
	keys := map[uint16]geoKey{}
	if len(dir) < 4 {
		return keys
	}

	n := int(dir[3])
	for i := 0; i < n && 4+i*4+3 < len(dir); i++ {
		k := dir[4+i*4:]
		keys[uint16(k[0])] = geoKey{location: uint16(k[1]), count: uint16(k[2]), value: uint16(k[3])}
	}

	return keys
}

// geoASCII resolves a GeoKey stored in GeoAsciiParams.
func (d ifd) geoASCII(k geoKey) string {
	if k.location != tagGeoAsciiParams {
		return ""
	}
	params := d[tagGeoAsciiParams].ascii()
	start, end := int(k.value), int(k.value)+int(k.count)
	if start >= len(params) {
		return ""
	}
	if end > len(params) {
		end = len(params)
	}
	return strings.TrimRight(params[start:end], "|")
}

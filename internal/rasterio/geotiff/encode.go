package geotiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/gruppe-adler/meh-submerge/internal/georef"
	"github.com/gruppe-adler/meh-submerge/internal/raster"
)

var le = binary.LittleEndian

// Encode writes ds as an uncompressed little endian GeoTIFF with one strip
// per row. All bands must share one of the integer or float sample types.
// Georeferencing, spatial reference, nodata and an RGB palette on the first
// band are written as tags.
func Encode(w io.Writer, ds raster.Dataset) error {
	width, height := ds.Size()
	bands := ds.Bands()
	if len(bands) == 0 {
		return fmt.Errorf("dataset has no bands")
	}

	st := bands[0].SampleType()
	for _, b := range bands[1:] {
		if b.SampleType() != st {
			return fmt.Errorf("%w: mixed sample types", raster.ErrUnsupportedPixelFormat)
		}
	}

	format, bits, err := tiffSampleFormat(st)
	if err != nil {
		return err
	}
	bytesPerSample := bits / 8
	spp := len(bands)

	var tags []*entry
	add := func(tag uint16, dt uint16, count int, raw []byte) {
		tags = append(tags, &entry{tag: tag, dt: dt, count: uint32(count), raw: raw})
	}

	add(tagImageWidth, dtLong, 1, longs(uint32(width)))
	add(tagImageLength, dtLong, 1, longs(uint32(height)))
	add(tagBitsPerSample, dtShort, spp, repeatShort(uint16(bits), spp))
	add(tagCompression, dtShort, 1, shorts(compressionNone))

	photometric, extra, palette := photometricFor(bands)
	add(tagPhotometricInterpretation, dtShort, 1, shorts(photometric))

	stripOffsets := make([]byte, 4*height)
	add(tagStripOffsets, dtLong, height, stripOffsets)
	add(tagSamplesPerPixel, dtShort, 1, shorts(uint16(spp)))
	add(tagRowsPerStrip, dtLong, 1, longs(1))
	add(tagStripByteCounts, dtLong, height, repeatLong(uint32(width*spp*bytesPerSample), height))
	add(tagPlanarConfiguration, dtShort, 1, shorts(1))

	if palette != nil {
		add(tagColorMap, dtShort, len(palette), shorts(palette...))
	}
	if len(extra) > 0 {
		add(tagExtraSamples, dtShort, len(extra), shorts(extra...))
	}
	add(tagSampleFormat, dtShort, spp, repeatShort(format, spp))

	if transform, ok := ds.GeoTransform(); ok {
		if transform.IsNorthUp() {
			origin, size := transform.Origin(), transform.PixelSize()
			add(tagModelPixelScale, dtDouble, 3, doubles(size[0], -size[1], 0))
			add(tagModelTiepoint, dtDouble, 6, doubles(0, 0, 0, origin[0], origin[1], 0))
		} else {
			t := transform
			add(tagModelTransformation, dtDouble, 16, doubles(
				t[0], t[1], 0, t[2],
				t[3], t[4], 0, t[5],
				0, 0, 0, 0,
				0, 0, 0, 1,
			))
		}

		keys, citation := geoKeyDirectory(ds.SpatialRef())
		add(tagGeoKeyDirectory, dtShort, len(keys), shorts(keys...))
		if citation != "" {
			add(tagGeoAsciiParams, dtASCII, len(citation)+1, append([]byte(citation), 0))
		}
	}

	if nodata, ok := bands[0].NoData(); ok {
		s := strconv.FormatFloat(nodata, 'g', -1, 64)
		add(tagGDALNoData, dtASCII, len(s)+1, append([]byte(s), 0))
	}

	sort.Slice(tags, func(i, j int) bool { return tags[i].tag < tags[j].tag })

	valueOffsets, dataStart := layout(tags)

	rowBytes := width * spp * bytesPerSample
	for row := 0; row < height; row++ {
		le.PutUint32(stripOffsets[row*4:], uint32(dataStart+row*rowBytes))
	}

	var buf bytes.Buffer
	writeHeader(&buf, tags, valueOffsets)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}

	rows := make([][]float64, spp)
	for i := range rows {
		rows[i] = make([]float64, width)
	}
	out := make([]byte, rowBytes)

	for y := 0; y < height; y++ {
		for i, b := range bands {
			if err := b.ReadRow(y, rows[i]); err != nil {
				return err
			}
		}
		for x := 0; x < width; x++ {
			for s := 0; s < spp; s++ {
				putSample(out[(x*spp+s)*bytesPerSample:], st, rows[s][x])
			}
		}
		if _, err := w.Write(out); err != nil {
			return err
		}
	}

	return nil
}

// WriteFile encodes ds into a new file at path.
func WriteFile(path string, ds raster.Dataset) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := Encode(file, ds); err != nil {
		file.Close()
		return err
	}

	return file.Close()
}

// layout places the IFD right after the header and the out of line tag
// values after the IFD, word aligned. It returns the value offsets and the
// first free offset after them.
func layout(tags []*entry) (valueOffsets []int, end int) {
	end = 8 + 2 + 12*len(tags) + 4
	valueOffsets = make([]int, len(tags))
	for i, t := range tags {
		if len(t.raw) > 4 {
			end += end % 2
			valueOffsets[i] = end
			end += len(t.raw)
		}
	}
	end += end % 2
	return valueOffsets, end
}

// writeHeader writes the TIFF header, the IFD of the sorted tags and the
// out of line tag values.
func writeHeader(buf *bytes.Buffer, tags []*entry, valueOffsets []int) {
	buf.Write([]byte("II"))
	binary.Write(buf, le, uint16(42))
	binary.Write(buf, le, uint32(8))

	binary.Write(buf, le, uint16(len(tags)))
	for i, t := range tags {
		binary.Write(buf, le, t.tag)
		binary.Write(buf, le, t.dt)
		binary.Write(buf, le, t.count)
		if len(t.raw) > 4 {
			binary.Write(buf, le, uint32(valueOffsets[i]))
		} else {
			var inline [4]byte
			copy(inline[:], t.raw)
			buf.Write(inline[:])
		}
	}
	binary.Write(buf, le, uint32(0))

	for i, t := range tags {
		if len(t.raw) <= 4 {
			continue
		}
		for buf.Len() < valueOffsets[i] {
			buf.WriteByte(0)
		}
		buf.Write(t.raw)
	}
	if buf.Len()%2 == 1 {
		buf.WriteByte(0)
	}
}

func tiffSampleFormat(st raster.SampleType) (format uint16, bits int, err error) {
	switch st {
	case raster.Byte:
		return sampleFormatUint, 8, nil
	case raster.UInt16:
		return sampleFormatUint, 16, nil
	case raster.Int16:
		return sampleFormatInt, 16, nil
	case raster.UInt32:
		return sampleFormatUint, 32, nil
	case raster.Int32:
		return sampleFormatInt, 32, nil
	case raster.Float32:
		return sampleFormatFloat, 32, nil
	case raster.Float64:
		return sampleFormatFloat, 64, nil
	}
	return 0, 0, fmt.Errorf("%w: cannot encode %s", raster.ErrUnsupportedPixelFormat, st)
}

func photometricFor(bands []raster.Band) (photometric uint16, extra []uint16, colorMap []uint16) {
	first := bands[0]

	if p := first.Palette(); first.ColorRole() == raster.RolePalette && p != nil && p.Interp == raster.PaletteRGB && len(bands) == 1 && first.SampleType() == raster.Byte {
		colorMap = make([]uint16, 3*256)
		for i := 0; i < 256 && i < len(p.Entries); i++ {
			for c := 0; c < 3; c++ {
				colorMap[c*256+i] = uint16(p.Entries[i][c]) * 257
			}
		}
		return photometricPalette, nil, colorMap
	}

	base := 1
	photometric = photometricBlackIsZero
	if len(bands) >= 3 && first.ColorRole() == raster.RoleRed && bands[1].ColorRole() == raster.RoleGreen && bands[2].ColorRole() == raster.RoleBlue {
		base = 3
		photometric = photometricRGB
	}

	for _, b := range bands[base:] {
		if b.ColorRole() == raster.RoleAlpha {
			// unassociated alpha
			extra = append(extra, 2)
		} else {
			extra = append(extra, 0)
		}
	}

	return photometric, extra, nil
}

func geoKeyDirectory(srs string) (keys []uint16, citation string) {
	type key struct{ id, location, count, value uint16 }
	entries := []key{{gkRasterType, 0, 1, rasterPixelIsArea}}

	if sr, err := georef.ParseSpatialRef(srs); err == nil {
		switch sr.Kind() {
		case georef.Geographic:
			entries = append(entries, key{gkModelType, 0, 1, modelTypeGeographic})
		case georef.Projected:
			entries = append(entries, key{gkModelType, 0, 1, modelTypeProjected})
		case georef.Geocentric:
			entries = append(entries, key{gkModelType, 0, 1, modelTypeGeocentric})
		}

		if code, ok := georef.EPSGCode(srs); ok && code <= math.MaxUint16 {
			id := uint16(gkProjectedCSType)
			if sr.IsGeographic() {
				id = gkGeographicType
			}
			entries = append(entries, key{id, 0, 1, uint16(code)})
		}

		citation = sr.Definition() + "|"
		entries = append(entries, key{gkCitation, tagGeoAsciiParams, uint16(len(citation)), 0})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	keys = []uint16{1, 1, 0, uint16(len(entries))}
	for _, e := range entries {
		keys = append(keys, e.id, e.location, e.count, e.value)
	}

	return keys, citation
}

func putSample(b []byte, st raster.SampleType, v float64) {
	switch st {
	case raster.Byte:
		b[0] = uint8(clamp(v, 0, math.MaxUint8))
	case raster.UInt16:
		le.PutUint16(b, uint16(clamp(v, 0, math.MaxUint16)))
	case raster.Int16:
		le.PutUint16(b, uint16(int16(clamp(v, math.MinInt16, math.MaxInt16))))
	case raster.UInt32:
		le.PutUint32(b, uint32(clamp(v, 0, math.MaxUint32)))
	case raster.Int32:
		le.PutUint32(b, uint32(int32(clamp(v, math.MinInt32, math.MaxInt32))))
	case raster.Float32:
		le.PutUint32(b, math.Float32bits(float32(v)))
	case raster.Float64:
		le.PutUint64(b, math.Float64bits(v))
	}
}

func clamp(v, min, max float64) float64 {
	if math.IsNaN(v) || v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func shorts(values ...uint16) []byte {
	b := make([]byte, 2*len(values))
	for i, v := range values {
		le.PutUint16(b[i*2:], v)
	}
	return b
}

func repeatShort(v uint16, n int) []byte {
	values := make([]uint16, n)
	for i := range values {
		values[i] = v
	}
	return shorts(values...)
}

func longs(values ...uint32) []byte {
	b := make([]byte, 4*len(values))
	for i, v := range values {
		le.PutUint32(b[i*4:], v)
	}
	return b
}

func repeatLong(v uint32, n int) []byte {
	values := make([]uint32, n)
	for i := range values {
		values[i] = v
	}
	return longs(values...)
}

func doubles(values ...float64) []byte {
	b := make([]byte, 8*len(values))
	for i, v := range values {
		le.PutUint64(b[i*8:], math.Float64bits(v))
	}
	return b
}

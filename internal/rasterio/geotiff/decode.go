package geotiff

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/gruppe-adler/meh-submerge/internal/georef"
	"github.com/gruppe-adler/meh-submerge/internal/raster"
	"golang.org/x/image/tiff/lzw"
)

// DriverName is the short name reported by datasets of this package.
const DriverName = "GTiff"

// Dataset is a decoded GeoTIFF header with lazy, cached access to the
// pixel data of its first image.
type Dataset struct {
	r      io.ReaderAt
	closer io.Closer
	bo     binary.ByteOrder

	width, height int
	samples       int
	bytesPerSmp   int
	sampleType    raster.SampleType
	compression   uint64
	predictor     uint64
	planar        bool

	chunkW, chunkH int
	chunksAcross   int
	chunksPerPlane int
	offsets        []uint64
	counts         []uint64

	roles   []raster.ColorRole
	palette *raster.Palette
	noData  *float64
	stats   map[int][2]float64

	transform    georef.Affine
	hasTransform bool
	srs          string

	mu    sync.Mutex
	cache map[int][]byte
	order []int
}

// Sniff reports whether header starts with a TIFF byte order mark.
func Sniff(header []byte) bool {
	return bytes.HasPrefix(header, []byte("II*\x00")) || bytes.HasPrefix(header, []byte("MM\x00*"))
}

// Open opens a GeoTIFF file. The file stays open until Close.
func Open(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	ds, err := Decode(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ds.closer = file

	return ds, nil
}

// Decode reads the header of the first image in r.
func Decode(r io.ReaderAt) (*Dataset, error) {
	var header [8]byte
	if _, err := r.ReadAt(header[:], 0); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var bo binary.ByteOrder
	switch string(header[:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, fmt.Errorf("not a TIFF file")
	}

	switch magic := bo.Uint16(header[2:]); magic {
	case 42:
	case 43:
		return nil, fmt.Errorf("BigTIFF is not supported")
	default:
		return nil, fmt.Errorf("not a TIFF file (magic %d)", magic)
	}

	tags, err := readIFD(r, bo, int64(bo.Uint32(header[4:])))
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		r:     r,
		bo:    bo,
		cache: map[int][]byte{},
	}

	if err := ds.readLayout(tags); err != nil {
		return nil, err
	}
	ds.readColor(tags)
	ds.readMetadata(tags)
	ds.readGeo(tags)

	return ds, nil
}

func (ds *Dataset) readLayout(tags ifd) error {
	bo := ds.bo

	ds.width = int(tags.uint(tagImageWidth, bo, 0))
	ds.height = int(tags.uint(tagImageLength, bo, 0))
	if ds.width == 0 || ds.height == 0 {
		return fmt.Errorf("zero image dimensions")
	}

	ds.samples = int(tags.uint(tagSamplesPerPixel, bo, 1))
	if ds.samples < 1 {
		return fmt.Errorf("invalid samples per pixel %d", ds.samples)
	}

	bits := tags[tagBitsPerSample].uints(bo)
	if len(bits) == 0 {
		bits = []uint64{1}
	}
	for _, b := range bits[1:] {
		if b != bits[0] {
			return fmt.Errorf("%w: mixed bits per sample %v", raster.ErrUnsupportedPixelFormat, bits)
		}
	}

	format := tags.uint(tagSampleFormat, bo, sampleFormatUint)
	st, err := sampleType(format, bits[0])
	if err != nil {
		return err
	}
	ds.sampleType = st
	ds.bytesPerSmp = int(bits[0] / 8)

	ds.compression = tags.uint(tagCompression, bo, compressionNone)
	switch ds.compression {
	case compressionNone, compressionLZW, compressionDeflate, compressionDeflate2, compressionPackBits:
	default:
		return fmt.Errorf("unsupported compression %d", ds.compression)
	}

	ds.predictor = tags.uint(tagPredictor, bo, 1)
	if ds.predictor != 1 && ds.predictor != 2 {
		return fmt.Errorf("unsupported predictor %d", ds.predictor)
	}
	if ds.predictor == 2 && format == sampleFormatFloat {
		return fmt.Errorf("horizontal differencing on float samples is not supported")
	}

	ds.planar = tags.uint(tagPlanarConfiguration, bo, 1) == 2

	if _, tiled := tags[tagTileWidth]; tiled {
		ds.chunkW = int(tags.uint(tagTileWidth, bo, 0))
		ds.chunkH = int(tags.uint(tagTileLength, bo, 0))
		ds.offsets = tags[tagTileOffsets].uints(bo)
		ds.counts = tags[tagTileByteCounts].uints(bo)
	} else {
		ds.chunkW = ds.width
		ds.chunkH = int(tags.uint(tagRowsPerStrip, bo, uint64(ds.height)))
		if ds.chunkH > ds.height {
			ds.chunkH = ds.height
		}
		ds.offsets = tags[tagStripOffsets].uints(bo)
		ds.counts = tags[tagStripByteCounts].uints(bo)
	}
	if ds.chunkW < 1 || ds.chunkH < 1 {
		return fmt.Errorf("invalid chunk size %dx%d", ds.chunkW, ds.chunkH)
	}

	ds.chunksAcross = (ds.width + ds.chunkW - 1) / ds.chunkW
	ds.chunksPerPlane = ds.chunksAcross * ((ds.height + ds.chunkH - 1) / ds.chunkH)

	want := ds.chunksPerPlane
	if ds.planar {
		want *= ds.samples
	}
	if len(ds.offsets) < want || len(ds.counts) < want {
		return fmt.Errorf("expected %d chunks, found %d offsets and %d byte counts", want, len(ds.offsets), len(ds.counts))
	}

	return nil
}

func sampleType(format, bits uint64) (raster.SampleType, error) {
	switch {
	case format == sampleFormatUint && bits == 8:
		return raster.Byte, nil
	case format == sampleFormatUint && bits == 16:
		return raster.UInt16, nil
	case format == sampleFormatUint && bits == 32:
		return raster.UInt32, nil
	case format == sampleFormatUint && bits == 64:
		return raster.UInt64, nil
	case format == sampleFormatInt && bits == 8:
		return raster.Int8, nil
	case format == sampleFormatInt && bits == 16:
		return raster.Int16, nil
	case format == sampleFormatInt && bits == 32:
		return raster.Int32, nil
	case format == sampleFormatInt && bits == 64:
		return raster.Int64, nil
	case format == sampleFormatFloat && bits == 32:
		return raster.Float32, nil
	case format == sampleFormatFloat && bits == 64:
		return raster.Float64, nil
	}

	return raster.Unknown, fmt.Errorf("%w: sample format %d with %d bits", raster.ErrUnsupportedPixelFormat, format, bits)
}

func (ds *Dataset) readColor(tags ifd) {
	bo := ds.bo

	defaultPhotometric := uint64(photometricBlackIsZero)
	if ds.samples >= 3 {
		defaultPhotometric = photometricRGB
	}

	var base []raster.ColorRole
	switch tags.uint(tagPhotometricInterpretation, bo, defaultPhotometric) {
	case photometricWhiteIsZero, photometricBlackIsZero:
		base = []raster.ColorRole{raster.RoleGray}
	case photometricRGB:
		base = []raster.ColorRole{raster.RoleRed, raster.RoleGreen, raster.RoleBlue}
	case photometricPalette:
		base = []raster.ColorRole{raster.RolePalette}
		ds.palette = colorMap(tags[tagColorMap].uints(bo))
	case photometricSeparated:
		base = []raster.ColorRole{raster.RoleCyan, raster.RoleMagenta, raster.RoleYellow, raster.RoleBlack}
	case photometricYCbCr:
		base = []raster.ColorRole{raster.RoleY, raster.RoleCb, raster.RoleCr}
	}

	extra := tags[tagExtraSamples].uints(bo)
	ds.roles = make([]raster.ColorRole, ds.samples)
	for i := range ds.roles {
		switch {
		case i < len(base):
			ds.roles[i] = base[i]
		case i-len(base) < len(extra) && (extra[i-len(base)] == 1 || extra[i-len(base)] == 2):
			ds.roles[i] = raster.RoleAlpha
		default:
			ds.roles[i] = raster.RoleUndefined
		}
	}
}

// colorMap converts the 16-bit TIFF color map (all reds, then all greens,
// then all blues) into an opaque 8-bit RGB palette.
func colorMap(values []uint64) *raster.Palette {
	if len(values) == 0 || len(values)%3 != 0 {
		return nil
	}

	n := len(values) / 3
	entries := make([][4]int16, n)
	for i := range entries {
		entries[i] = [4]int16{
			int16(values[i] / 257),
			int16(values[n+i] / 257),
			int16(values[2*n+i] / 257),
			255,
		}
	}

	return &raster.Palette{Interp: raster.PaletteRGB, Entries: entries}
}

type gdalMetadata struct {
	Items []struct {
		Name   string `xml:"name,attr"`
		Sample int    `xml:"sample,attr"`
		Value  string `xml:",chardata"`
	} `xml:"Item"`
}

func (ds *Dataset) readMetadata(tags ifd) {
	if s := strings.TrimSpace(tags[tagGDALNoData].ascii()); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			ds.noData = &f
		}
	}

	ds.stats = map[int][2]float64{}

	var md gdalMetadata
	if err := xml.Unmarshal([]byte(tags[tagGDALMetadata].ascii()), &md); err != nil {
		return
	}

	min := map[int]float64{}
	max := map[int]float64{}
	for _, item := range md.Items {
		f, err := strconv.ParseFloat(strings.TrimSpace(item.Value), 64)
		if err != nil {
			continue
		}
		switch item.Name {
		case "STATISTICS_MINIMUM":
			min[item.Sample] = f
		case "STATISTICS_MAXIMUM":
			max[item.Sample] = f
		}
	}

	for sample, lo := range min {
		if hi, ok := max[sample]; ok {
			ds.stats[sample] = [2]float64{lo, hi}
		}
	}
}

func (ds *Dataset) readGeo(tags ifd) {
	bo := ds.bo

	if m := tags[tagModelTransformation].floats(bo); len(m) >= 8 {
		ds.transform = georef.Affine{m[0], m[1], m[3], m[4], m[5], m[7]}
		ds.hasTransform = true
	} else {
		scale := tags[tagModelPixelScale].floats(bo)
		tie := tags[tagModelTiepoint].floats(bo)
		if len(scale) >= 2 && len(tie) >= 6 {
			ds.transform = georef.NorthUp(
				tie[3]-tie[0]*scale[0],
				tie[4]+tie[1]*scale[1],
				scale[0],
				-scale[1],
			)
			ds.hasTransform = true
		}
	}

	keys := tags.geoKeys(bo)

	if k, ok := keys[gkRasterType]; ok && k.value == rasterPixelIsPoint && ds.hasTransform {
		// the tie point references the pixel center
		origin := ds.transform.Apply(-0.5, -0.5)
		ds.transform[2], ds.transform[5] = origin[0], origin[1]
	}

	ds.srs = spatialRef(tags, keys)
}

func spatialRef(tags ifd, keys map[uint16]geoKey) string {
	for _, key := range []uint16{gkCitation, gkGeogCitation} {
		if k, ok := keys[key]; ok {
			if citation := tags.geoASCII(k); strings.HasPrefix(strings.TrimSpace(citation), "+proj=") {
				return strings.TrimSpace(citation)
			}
		}
	}

	for _, key := range []uint16{gkProjectedCSType, gkGeographicType} {
		k, ok := keys[key]
		if !ok || k.location != 0 || k.value == 0 || k.value == userDefined {
			continue
		}
		if def, known := georef.EPSGDefinition(int(k.value)); known {
			return def
		}
		return fmt.Sprintf("EPSG:%d", k.value)
	}

	return ""
}

func (ds *Dataset) Driver() string { return DriverName }

func (ds *Dataset) Size() (int, int) { return ds.width, ds.height }

func (ds *Dataset) Bands() []raster.Band {
	bands := make([]raster.Band, ds.samples)
	for i := range bands {
		bands[i] = &band{ds: ds, sample: i}
	}
	return bands
}

func (ds *Dataset) GeoTransform() (georef.Affine, bool) { return ds.transform, ds.hasTransform }

func (ds *Dataset) SpatialRef() string { return ds.srs }

func (ds *Dataset) Close() error {
	ds.mu.Lock()
	ds.cache = map[int][]byte{}
	ds.order = nil
	ds.mu.Unlock()

	if ds.closer != nil {
		return ds.closer.Close()
	}
	return nil
}

// chunk returns the decompressed bytes of chunk i, keeping the chunks of
// the current chunk row cached.
func (ds *Dataset) chunk(i int) ([]byte, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if data, ok := ds.cache[i]; ok {
		return data, nil
	}

	raw := make([]byte, ds.counts[i])
	if _, err := ds.r.ReadAt(raw, int64(ds.offsets[i])); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read chunk %d: %w", i, err)
	}

	data, err := ds.decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w", i, err)
	}

	if ds.predictor == 2 {
		ds.undoDifferencing(data)
	}

	limit := ds.chunksAcross
	if ds.planar {
		limit *= ds.samples
	}
	if len(ds.order) >= limit+1 {
		delete(ds.cache, ds.order[0])
		ds.order = ds.order[1:]
	}
	ds.cache[i] = data
	ds.order = append(ds.order, i)

	return data, nil
}

func (ds *Dataset) decompress(raw []byte) ([]byte, error) {
	switch ds.compression {
	case compressionNone:
		return raw, nil
	case compressionLZW:
		r := lzw.NewReader(bytes.NewReader(raw), lzw.MSB, 8)
		defer r.Close()
		return io.ReadAll(r)
	case compressionDeflate, compressionDeflate2:
		r, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case compressionPackBits:
		return unpackBits(raw)
	}
	return nil, fmt.Errorf("unsupported compression %d", ds.compression)
}

func unpackBits(raw []byte) ([]byte, error) {
	var out []byte
	for i := 0; i < len(raw); {
		n := int(int8(raw[i]))
		i++
		switch {
		case n >= 0:
			if i+n+1 > len(raw) {
				return nil, fmt.Errorf("truncated PackBits literal run")
			}
			out = append(out, raw[i:i+n+1]...)
			i += n + 1
		case n != -128:
			if i >= len(raw) {
				return nil, fmt.Errorf("truncated PackBits repeat run")
			}
			for j := 0; j < 1-n; j++ {
				out = append(out, raw[i])
			}
			i++
		}
	}
	return out, nil
}

// undoDifferencing reverts horizontal predictor 2 in place.
func (ds *Dataset) undoDifferencing(data []byte) {
	spp := ds.samples
	if ds.planar {
		spp = 1
	}
	rowLen := ds.chunkW * spp * ds.bytesPerSmp
	bo := ds.bo

	for start := 0; start+rowLen <= len(data); start += rowLen {
		row := data[start : start+rowLen]
		for i := spp; i < ds.chunkW*spp; i++ {
			cur := i * ds.bytesPerSmp
			prev := (i - spp) * ds.bytesPerSmp
			switch ds.bytesPerSmp {
			case 1:
				row[cur] += row[prev]
			case 2:
				bo.PutUint16(row[cur:], bo.Uint16(row[cur:])+bo.Uint16(row[prev:]))
			case 4:
				bo.PutUint32(row[cur:], bo.Uint32(row[cur:])+bo.Uint32(row[prev:]))
			case 8:
				bo.PutUint64(row[cur:], bo.Uint64(row[cur:])+bo.Uint64(row[prev:]))
			}
		}
	}
}

func (ds *Dataset) sample(b []byte) float64 {
	bo := ds.bo
	switch ds.sampleType {
	case raster.Byte:
		return float64(b[0])
	case raster.Int8:
		return float64(int8(b[0]))
	case raster.UInt16:
		return float64(bo.Uint16(b))
	case raster.Int16:
		return float64(int16(bo.Uint16(b)))
	case raster.UInt32:
		return float64(bo.Uint32(b))
	case raster.Int32:
		return float64(int32(bo.Uint32(b)))
	case raster.UInt64:
		return float64(bo.Uint64(b))
	case raster.Int64:
		return float64(int64(bo.Uint64(b)))
	case raster.Float32:
		return float64(math.Float32frombits(bo.Uint32(b)))
	case raster.Float64:
		return math.Float64frombits(bo.Uint64(b))
	}
	return 0
}

type band struct {
	ds     *Dataset
	sample int
}

func (b *band) Size() (int, int) { return b.ds.width, b.ds.height }

func (b *band) BlockSize() (int, int) { return b.ds.chunkW, b.ds.chunkH }

func (b *band) SampleType() raster.SampleType { return b.ds.sampleType }

func (b *band) ColorRole() raster.ColorRole { return b.ds.roles[b.sample] }

func (b *band) Palette() *raster.Palette {
	if b.sample != 0 {
		return nil
	}
	return b.ds.palette
}

func (b *band) Statistics() (float64, float64, bool) {
	s, ok := b.ds.stats[b.sample]
	return s[0], s[1], ok
}

func (b *band) NoData() (float64, bool) {
	if b.ds.noData == nil {
		return 0, false
	}
	return *b.ds.noData, true
}

func (b *band) ReadRow(y int, dst []float64) error {
	ds := b.ds
	if y < 0 || y >= ds.height {
		return fmt.Errorf("%w: row %d of %d", raster.ErrOutOfBounds, y, ds.height)
	}
	if len(dst) < ds.width {
		return fmt.Errorf("row buffer holds %d values, need %d", len(dst), ds.width)
	}

	spp, sampleInChunk := ds.samples, b.sample
	planeOffset := 0
	if ds.planar {
		spp, sampleInChunk = 1, 0
		planeOffset = b.sample * ds.chunksPerPlane
	}

	chunkRow := y / ds.chunkH
	rowInChunk := y % ds.chunkH

	for across := 0; across < ds.chunksAcross; across++ {
		idx := planeOffset + chunkRow*ds.chunksAcross + across
		data, err := ds.chunk(idx)
		if err != nil {
			return err
		}

		x0 := across * ds.chunkW
		for col := 0; col < ds.chunkW && x0+col < ds.width; col++ {
			at := ((rowInChunk*ds.chunkW+col)*spp + sampleInChunk) * ds.bytesPerSmp
			if at+ds.bytesPerSmp > len(data) {
				return fmt.Errorf("chunk %d is truncated", idx)
			}
			dst[x0+col] = ds.sample(data[at : at+ds.bytesPerSmp])
		}
	}

	return nil
}

// Package geotiff writes uncompressed RGBA GeoTIFFs.
package geotiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/draw"
	"io"
	"math"
	"sort"
)

const (
	DataType_Byte     = 1
	DataType_ASCII    = 2
	DataType_Short    = 3
	DataType_Long     = 4
	DataType_Rational = 5
	DataType_Double   = 12

	TagType_ImageWidth                = 256
	TagType_ImageLength               = 257
	TagType_BitsPerSample             = 258
	TagType_Compression               = 259
	TagType_PhotometricInterpretation = 262
	TagType_StripOffsets              = 273
	TagType_SamplesPerPixel           = 277
	TagType_RowsPerStrip              = 278
	TagType_StripByteCounts           = 279
	TagType_XResolution               = 282
	TagType_YResolution               = 283
	TagType_ResolutionUnit            = 296
	TagType_ExtraSamples              = 338

	// GeoTIFF
	TagType_ModelPixelScaleTag = 33550
	TagType_ModelTiepointTag   = 33922
	TagType_GeoKeyDirectoryTag = 34735
	TagType_GeoDoubleParamsTag = 34736
	TagType_GeoAsciiParamsTag  = 34737
)

// GeoKey IDs and values
const (
	geoKeyModelType         = 1024
	geoKeyRasterType        = 1025
	geoKeyProjectedCSType   = 3072
	modelTypeProjected      = 1
	rasterPixelIsArea       = 1
	extraSampleUnassocAlpha = 2

	// EPSGWebMercator is the projected CRS of slippy-map composites
	EPSGWebMercator = 3857
)

var enc = binary.LittleEndian

// Extent is a projected bounding box in CRS units
type Extent struct {
	MinX, MinY, MaxX, MaxY float64
}

type ifdEntry struct {
	tag      uint16
	datatype uint16
	count    uint32
	data     []byte
}

// WebMercatorTags georeferences a width x height raster covering extent in EPSG:3857
func WebMercatorTags(extent Extent, width, height int) map[uint16]interface{} {
	return map[uint16]interface{}{
		TagType_ModelPixelScaleTag: []float64{
			(extent.MaxX - extent.MinX) / float64(width),
			(extent.MaxY - extent.MinY) / float64(height),
			0,
		},
		TagType_ModelTiepointTag: []float64{0, 0, 0, extent.MinX, extent.MaxY, 0},
		TagType_GeoKeyDirectoryTag: []uint16{
			1, 1, 0, 3,
			geoKeyModelType, 0, 1, modelTypeProjected,
			geoKeyRasterType, 0, 1, rasterPixelIsArea,
			geoKeyProjectedCSType, 0, 1, EPSGWebMercator,
		},
		TagType_GeoAsciiParamsTag: "WGS 84 / Pseudo-Mercator|",
	}
}

// EncodeWebMercator writes m georeferenced to extent in EPSG:3857
func EncodeWebMercator(w io.Writer, m image.Image, extent Extent) error {
	b := m.Bounds()
	if b.Empty() {
		return fmt.Errorf("cannot encode empty image")
	}
	return Encode(w, m, WebMercatorTags(extent, b.Dx(), b.Dy()))
}

// Encode writes m to w as a single-strip uncompressed RGBA TIFF.
// extraTags maps tag ID to []uint16 (SHORT), []float64 (DOUBLE) or string (ASCII).
func Encode(w io.Writer, m image.Image, extraTags map[uint16]interface{}) error {
	bounds := m.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	// II, 42, first IFD at 8
	header := []byte{'I', 'I', 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00}
	if _, err := w.Write(header); err != nil {
		return err
	}

	pixels := rgbaPixels(m)

	var entries []ifdEntry
	addEntry := func(tag, datatype uint16, count uint32, data []byte) {
		entries = append(entries, ifdEntry{tag, datatype, count, data})
	}

	addEntry(TagType_ImageWidth, DataType_Long, 1, enc32(uint32(width)))
	addEntry(TagType_ImageLength, DataType_Long, 1, enc32(uint32(height)))
	addEntry(TagType_BitsPerSample, DataType_Short, 4, enc16s([]uint16{8, 8, 8, 8}))
	addEntry(TagType_Compression, DataType_Short, 1, enc16(1))
	addEntry(TagType_PhotometricInterpretation, DataType_Short, 1, enc16(2))
	addEntry(TagType_SamplesPerPixel, DataType_Short, 1, enc16(4))
	addEntry(TagType_RowsPerStrip, DataType_Long, 1, enc32(uint32(height)))
	addEntry(TagType_XResolution, DataType_Rational, 1, encRational(72, 1))
	addEntry(TagType_YResolution, DataType_Rational, 1, encRational(72, 1))
	addEntry(TagType_ResolutionUnit, DataType_Short, 1, enc16(2))
	addEntry(TagType_ExtraSamples, DataType_Short, 1, enc16(extraSampleUnassocAlpha))
	// filled in once the pixel offset is known
	addEntry(TagType_StripOffsets, DataType_Long, 1, make([]byte, 4))
	addEntry(TagType_StripByteCounts, DataType_Long, 1, enc32(uint32(len(pixels))))

	for tag, val := range extraTags {
		switch v := val.(type) {
		case []uint16:
			addEntry(tag, DataType_Short, uint32(len(v)), enc16s(v))
		case []float64:
			addEntry(tag, DataType_Double, uint32(len(v)), encDoubles(v))
		case string:
			b := append([]byte(v), 0)
			addEntry(tag, DataType_ASCII, uint32(len(b)), b)
		default:
			return fmt.Errorf("unsupported tag value type for tag %d", tag)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	ifdSize := 2 + 12*len(entries) + 4
	valueDataOffset := 8 + ifdSize

	// Values wider than 4 bytes live after the IFD; the entry keeps their offset.
	var largeData bytes.Buffer
	for i := range entries {
		e := &entries[i]
		if len(e.data) <= 4 {
			continue
		}
		offset := uint32(valueDataOffset + largeData.Len())
		largeData.Write(e.data)
		if largeData.Len()%2 == 1 {
			largeData.WriteByte(0)
		}
		e.data = enc32(offset)
	}

	pixelsOffset := uint32(valueDataOffset + largeData.Len())
	for i := range entries {
		if entries[i].tag == TagType_StripOffsets {
			entries[i].data = enc32(pixelsOffset)
		}
	}

	var ifd bytes.Buffer
	ifd.Grow(ifdSize)
	binary.Write(&ifd, enc, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(&ifd, enc, e.tag)
		binary.Write(&ifd, enc, e.datatype)
		binary.Write(&ifd, enc, e.count)
		var val [4]byte
		copy(val[:], e.data)
		ifd.Write(val[:])
	}
	binary.Write(&ifd, enc, uint32(0))

	if _, err := ifd.WriteTo(w); err != nil {
		return err
	}
	if _, err := largeData.WriteTo(w); err != nil {
		return err
	}
	_, err := w.Write(pixels)
	return err
}

// rgbaPixels returns tightly packed non-premultiplied RGBA rows
func rgbaPixels(m image.Image) []byte {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()

	switch src := m.(type) {
	case *image.NRGBA:
		if src.Stride == 4*w {
			off := src.PixOffset(b.Min.X, b.Min.Y)
			return append([]byte(nil), src.Pix[off:off+4*w*h]...)
		}
	case *image.RGBA:
		if opaque(src) && src.Stride == 4*w {
			off := src.PixOffset(b.Min.X, b.Min.Y)
			return append([]byte(nil), src.Pix[off:off+4*w*h]...)
		}
	}

	n := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(n, n.Bounds(), m, b.Min, draw.Src)
	return n.Pix
}

func opaque(m *image.RGBA) bool {
	b := m.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := m.Pix[m.PixOffset(b.Min.X, y):m.PixOffset(b.Max.X, y)]
		for i := 3; i < len(row); i += 4 {
			if row[i] != 0xff {
				return false
			}
		}
	}
	return true
}

func enc16(v uint16) []byte {
	b := make([]byte, 2)
	enc.PutUint16(b, v)
	return b
}

func enc32(v uint32) []byte {
	b := make([]byte, 4)
	enc.PutUint32(b, v)
	return b
}

func enc16s(vs []uint16) []byte {
	b := make([]byte, 2*len(vs))
	for i, v := range vs {
		enc.PutUint16(b[i*2:], v)
	}
	return b
}

func encDoubles(vs []float64) []byte {
	b := make([]byte, 8*len(vs))
	for i, v := range vs {
		enc.PutUint64(b[i*8:], math.Float64bits(v))
	}
	return b
}

func encRational(num, den uint32) []byte {
	b := make([]byte, 8)
	enc.PutUint32(b[:4], num)
	enc.PutUint32(b[4:], den)
	return b
}

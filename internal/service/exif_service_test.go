package service

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tiffByte     = 1
	tiffASCII    = 2
	tiffLong     = 4
	tiffRational = 5
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func asciiEntry(tag uint16, s string) ifdEntry {
	return ifdEntry{tag: tag, typ: tiffASCII, count: uint32(len(s) + 1), data: append([]byte(s), 0)}
}

func rationalEntry(tag uint16, vals ...[2]uint32) ifdEntry {
	b := make([]byte, 0, 8*len(vals))
	for _, v := range vals {
		b = binary.LittleEndian.AppendUint32(b, v[0])
		b = binary.LittleEndian.AppendUint32(b, v[1])
	}
	return ifdEntry{tag: tag, typ: tiffRational, count: uint32(len(vals)), data: b}
}

func longEntry(tag uint16, v uint32) ifdEntry {
	return ifdEntry{tag: tag, typ: tiffLong, count: 1, data: binary.LittleEndian.AppendUint32(nil, v)}
}

func ifdSize(entries []ifdEntry) uint32 {
	n := uint32(2 + 12*len(entries) + 4)
	for _, e := range entries {
		if len(e.data) > 4 {
			n += uint32(len(e.data)+1) &^ 1
		}
	}
	return n
}

// writeIFD writes entries at offset base, placing out-of-line values right after the directory.
func writeIFD(buf *bytes.Buffer, base uint32, entries []ifdEntry) {
	le := binary.LittleEndian
	dataOff := base + uint32(2+12*len(entries)+4)
	var extra []byte

	_ = binary.Write(buf, le, uint16(len(entries)))
	for _, e := range entries {
		_ = binary.Write(buf, le, e.tag)
		_ = binary.Write(buf, le, e.typ)
		_ = binary.Write(buf, le, e.count)
		if len(e.data) <= 4 {
			v := make([]byte, 4)
			copy(v, e.data)
			buf.Write(v)
			continue
		}
		_ = binary.Write(buf, le, dataOff+uint32(len(extra)))
		extra = append(extra, e.data...)
		if len(e.data)%2 == 1 {
			extra = append(extra, 0)
		}
	}
	_ = binary.Write(buf, le, uint32(0))
	buf.Write(extra)
}

// buildJPEG wraps a little-endian TIFF with the given IFDs in a JPEG APP1 segment.
func buildJPEG(ifd0, exifIFD, gpsIFD []ifdEntry) []byte {
	const header = 8
	exifOff := header + ifdSize(append(ifd0, ifdEntry{}, ifdEntry{}))
	gpsOff := exifOff + ifdSize(exifIFD)

	main := append([]ifdEntry{}, ifd0...)
	if exifIFD != nil {
		main = append(main, longEntry(0x8769, exifOff))
	}
	if gpsIFD != nil {
		main = append(main, longEntry(0x8825, gpsOff))
	}
	// keep the computed offsets valid when a pointer is omitted
	for len(main) < len(ifd0)+2 {
		main = append(main, asciiEntry(0x010E, "")) // ImageDescription
	}

	var tiff bytes.Buffer
	tiff.WriteString("II*\x00")
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(header))
	writeIFD(&tiff, header, main)
	if exifIFD != nil {
		writeIFD(&tiff, exifOff, exifIFD)
	}
	if gpsIFD != nil {
		writeIFD(&tiff, gpsOff, gpsIFD)
	}

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	var out bytes.Buffer
	out.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1})
	_ = binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write([]byte{0xFF, 0xD9})
	return out.Bytes()
}

func fullGPS() []ifdEntry {
	return []ifdEntry{
		asciiEntry(0x0001, "N"),
		rationalEntry(0x0002, [2]uint32{40, 1}, [2]uint32{42, 1}, [2]uint32{4608, 100}),
		asciiEntry(0x0003, "W"),
		rationalEntry(0x0004, [2]uint32{74, 1}, [2]uint32{0, 1}, [2]uint32{2160, 100}),
		{tag: 0x0005, typ: tiffByte, count: 1, data: []byte{1}},
		rationalEntry(0x0006, [2]uint32{125, 10}),
	}
}

func TestExifService_Extract_Full(t *testing.T) {
	img := buildJPEG(
		[]ifdEntry{asciiEntry(0x010F, "Apple"), asciiEntry(0x0110, "iPhone 14 Pro"), asciiEntry(0x0132, "2025:05:31 09:00:00")},
		[]ifdEntry{asciiEntry(0x9003, "2025:05:30 08:15:30")},
		fullGPS(),
	)

	got := NewExifService().Extract(img)
	require.True(t, got.HasExif)
	require.True(t, got.HasGPS())
	assert.InDelta(t, 40.7128, *got.Latitude, 1e-4)
	assert.InDelta(t, -74.006, *got.Longitude, 1e-4)
	require.NotNil(t, got.Altitude)
	assert.InDelta(t, -12.5, *got.Altitude, 1e-9)
	require.NotNil(t, got.Timestamp)
	assert.Equal(t, time.Date(2025, 5, 30, 8, 15, 30, 0, time.UTC), *got.Timestamp)
	assert.Equal(t, "Apple iPhone 14 Pro", got.CameraModel)
}

func TestExifService_Extract_NoGPSFallsBackToDateTime(t *testing.T) {
	img := buildJPEG(
		[]ifdEntry{asciiEntry(0x0110, "DMC-GH5"), asciiEntry(0x0132, "2024:12:01 17:45:00")},
		nil,
		nil,
	)

	got := NewExifService().Extract(img)
	assert.True(t, got.HasExif)
	assert.False(t, got.HasGPS())
	assert.Nil(t, got.Altitude)
	require.NotNil(t, got.Timestamp)
	assert.Equal(t, time.Date(2024, 12, 1, 17, 45, 0, 0, time.UTC), *got.Timestamp)
	assert.Equal(t, "DMC-GH5", got.CameraModel)
}

func TestExifService_Extract_NotAnImage(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":      nil,
		"text":       []byte("definitely not a jpeg"),
		"bare jpeg":  {0xFF, 0xD8, 0xFF, 0xD9},
		"bad header": append([]byte{0xFF, 0xD8, 0xFF, 0xE1, 0x00, 0x08}, []byte("NotExif")...),
	} {
		t.Run(name, func(t *testing.T) {
			got := NewExifService().Extract(data)
			assert.False(t, got.HasExif)
			assert.False(t, got.HasGPS())
			assert.Nil(t, got.Timestamp)
			assert.Empty(t, got.CameraModel)
		})
	}
}

func TestExifService_Extract_ZeroDenominators(t *testing.T) {
	t.Run("altitude without fix", func(t *testing.T) {
		gps := fullGPS()
		gps[5] = rationalEntry(0x0006, [2]uint32{0, 0})
		img := buildJPEG([]ifdEntry{asciiEntry(0x0110, "Pixel 8")}, nil, gps)

		var got *ExifData
		require.NotPanics(t, func() { got = NewExifService().Extract(img) })
		assert.True(t, got.HasGPS())
		assert.InDelta(t, 40.7128, *got.Latitude, 1e-4)
		assert.Nil(t, got.Altitude)
		assert.Equal(t, "Pixel 8", got.CameraModel)
	})

	t.Run("latitude seconds", func(t *testing.T) {
		gps := fullGPS()
		gps[1] = rationalEntry(0x0002, [2]uint32{40, 1}, [2]uint32{42, 1}, [2]uint32{0, 0})
		img := buildJPEG([]ifdEntry{asciiEntry(0x0110, "Pixel 8")}, nil, gps)

		var got *ExifData
		require.NotPanics(t, func() { got = NewExifService().Extract(img) })
		assert.True(t, got.HasExif)
		assert.False(t, got.HasGPS())
		require.NotNil(t, got.Altitude)
		assert.InDelta(t, -12.5, *got.Altitude, 1e-9)
		assert.Equal(t, "Pixel 8", got.CameraModel)
	})
}

func TestValidLatLng(t *testing.T) {
	assert.True(t, validLatLng(0, 0))
	assert.True(t, validLatLng(-90, 180))
	assert.False(t, validLatLng(91, 0))
	assert.False(t, validLatLng(0, -181))
}

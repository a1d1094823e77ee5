package bitmap_test

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xbmp "golang.org/x/image/bmp"

	"github.com/askiada/go-convolution/pkg/bitmap"
	"github.com/askiada/go-convolution/pkg/pixel"
)

func greyFixture(t *testing.T, width, height int) (*image.Gray, []byte) {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x*40 + y*7)})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, xbmp.Encode(&buf, img))

	return img, buf.Bytes()
}

func rgbFixture(t *testing.T, width, height int) (*image.RGBA, []byte) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 50), G: uint8(y * 60), B: uint8(x + y), A: 0xff})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, xbmp.Encode(&buf, img))

	return img, buf.Bytes()
}

func TestRoundTripIsByteExact(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		fixture func(t *testing.T) []byte
	}{
		"grey width 5 with palette": {fixture: func(t *testing.T) []byte { _, b := greyFixture(t, 5, 3); return b }},
		"grey width 4":              {fixture: func(t *testing.T) []byte { _, b := greyFixture(t, 4, 2); return b }},
		"rgb width 5":               {fixture: func(t *testing.T) []byte { _, b := rgbFixture(t, 5, 3); return b }},
		"rgb width 1":               {fixture: func(t *testing.T) []byte { _, b := rgbFixture(t, 1, 4); return b }},
		"rgb width 4":               {fixture: func(t *testing.T) []byte { _, b := rgbFixture(t, 4, 4); return b }},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			src := tc.fixture(t)
			img, err := bitmap.Decode(bytes.NewReader(src))
			require.NoError(t, err)

			var out bytes.Buffer
			require.NoError(t, bitmap.Encode(&out, img))
			assert.Equal(t, src, out.Bytes())
		})
	}
}

func TestDecodeGreyKeepsPalette(t *testing.T) {
	t.Parallel()

	want, src := greyFixture(t, 5, 3)
	img, err := bitmap.Decode(bytes.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, pixel.Grey, img.Pixels.Format)
	assert.Len(t, img.ColorTable, int(img.Header.File.PixelDataOffset)-bitmap.HeaderSize)
	assert.Equal(t, src[bitmap.HeaderSize:img.Header.File.PixelDataOffset], img.ColorTable)
	assert.Equal(t, 3, img.Header.RowPadding())

	// rows are stored bottom-up
	for y := 0; y < 3; y++ {
		for x := 0; x < 5; x++ {
			assert.Equal(t, float32(want.GrayAt(x, 2-y).Y), img.Pixels.Pixel(x, y)[0])
		}
	}
}

func TestDecodeRGBChannelOrder(t *testing.T) {
	t.Parallel()

	want, src := rgbFixture(t, 5, 3)
	img, err := bitmap.Decode(bytes.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, pixel.RGB, img.Pixels.Format)
	assert.Empty(t, img.ColorTable)
	assert.Equal(t, 1, img.Header.RowPadding())

	for y := 0; y < 3; y++ {
		for x := 0; x < 5; x++ {
			c := want.RGBAAt(x, 2-y)
			assert.Equal(t, []float32{float32(c.B), float32(c.G), float32(c.R)}, img.Pixels.Pixel(x, y))
		}
	}
}

func TestEncodeIsReadableByReferenceDecoder(t *testing.T) {
	t.Parallel()

	buf, err := pixel.New(3, 2, pixel.RGB)
	require.NoError(t, err)
	buf.SetPixel(0, 0, 10, 20, 30)
	buf.SetPixel(2, 1, 300, -4, 99.9)

	img := &bitmap.Image{Header: bitmap.NewHeader(3, 2, 24), Pixels: buf}

	var out bytes.Buffer
	require.NoError(t, bitmap.Encode(&out, img))
	assert.Len(t, out.Bytes(), bitmap.HeaderSize+2*12)

	decoded, err := xbmp.Decode(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)

	r, g, b, _ := decoded.At(0, 1).RGBA()
	assert.Equal(t, []uint32{30, 20, 10}, []uint32{r >> 8, g >> 8, b >> 8})

	r, g, b, _ = decoded.At(2, 0).RGBA()
	assert.Equal(t, []uint32{99, 0, 255}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestEncodeClampsAndTruncates(t *testing.T) {
	t.Parallel()

	values := []float32{-5, 0, 12.9, 254.99, 255, 1000, float32(math.NaN()), 128.5}
	buf, err := pixel.FromData(len(values), 1, pixel.Grey, values)
	require.NoError(t, err)

	img := &bitmap.Image{Header: bitmap.NewHeader(len(values), 1, 8), Pixels: buf}

	var out bytes.Buffer
	require.NoError(t, bitmap.Encode(&out, img))
	assert.Equal(t, []byte{0, 0, 12, 254, 255, 255, 0, 128}, out.Bytes()[bitmap.HeaderSize:])
}

func TestAlphaIsAlwaysWrittenAsZero(t *testing.T) {
	t.Parallel()

	buf, err := pixel.New(3, 2, pixel.RGBA)
	require.NoError(t, err)
	buf.Fill(1, 2, 3, 200)

	img := &bitmap.Image{Header: bitmap.NewHeader(3, 2, 32), Pixels: buf}

	var out bytes.Buffer
	require.NoError(t, bitmap.Encode(&out, img))

	data := out.Bytes()[bitmap.HeaderSize:]
	require.Len(t, data, 3*2*4)
	for i := 0; i < len(data); i += 4 {
		assert.Equal(t, []byte{1, 2, 3, 0}, data[i:i+4])
	}

	// the alpha byte is read back as stored
	decoded, err := bitmap.Decode(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 0}, decoded.Pixels.Pixel(2, 1))
}

func TestDecodeReadsAlpha(t *testing.T) {
	t.Parallel()

	header := bitmap.NewHeader(1, 1, 32)
	var src bytes.Buffer
	require.NoError(t, bitmap.Encode(&src, &bitmap.Image{Header: header, Pixels: mustBuffer(t, 1, 1, pixel.RGBA)}))

	raw := src.Bytes()
	copy(raw[bitmap.HeaderSize:], []byte{9, 8, 7, 6})

	img, err := bitmap.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, []float32{9, 8, 7, 6}, img.Pixels.Pixel(0, 0))
}

func TestTopDownRowsAreCarriedThrough(t *testing.T) {
	t.Parallel()

	buf := mustBuffer(t, 2, 3, pixel.RGB)
	for i := range buf.Data {
		buf.Data[i] = float32(i)
	}
	img := &bitmap.Image{Header: bitmap.NewHeader(2, -3, 24), Pixels: buf}
	assert.True(t, img.Header.TopDown())

	var out bytes.Buffer
	require.NoError(t, bitmap.Encode(&out, img))

	decoded, err := bitmap.Decode(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 3, decoded.Pixels.Height)
	assert.Equal(t, buf.Data, decoded.Pixels.Data)
	assert.Equal(t, int32(-3), decoded.Header.Info.Height)
}

func TestColorTableGapIsPreserved(t *testing.T) {
	t.Parallel()

	gap := []byte{1, 2, 3, 4, 5, 6, 7}
	header := bitmap.NewHeader(2, 2, 8)
	header.File.PixelDataOffset += uint32(len(gap))
	header.File.Size += uint32(len(gap))

	buf := mustBuffer(t, 2, 2, pixel.Grey)
	copy(buf.Data, []float32{1, 2, 3, 4})

	var out bytes.Buffer
	require.NoError(t, bitmap.Encode(&out, &bitmap.Image{Header: header, ColorTable: gap, Pixels: buf}))

	decoded, err := bitmap.Decode(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, gap, decoded.ColorTable)
	assert.Equal(t, buf.Data, decoded.Pixels.Data)
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	_, valid := rgbFixture(t, 3, 3)

	tcs := map[string]struct {
		data    []byte
		wantErr error
	}{
		"empty":           {data: nil},
		"truncated":       {data: valid[:len(valid)-5]},
		"header only":     {data: valid[:bitmap.HeaderSize]},
		"16 bit":          {data: patch(valid, 28, 16, 0), wantErr: bitmap.ErrUnsupportedBitDepth},
		"rle":             {data: patch(valid, 30, 1, 0, 0, 0), wantErr: bitmap.ErrUnsupportedCompression},
		"zero width":      {data: patch(valid, 18, 0, 0, 0, 0), wantErr: bitmap.ErrInvalidDimensions},
		"zero height":     {data: patch(valid, 22, 0, 0, 0, 0), wantErr: bitmap.ErrInvalidDimensions},
		"offset too low":  {data: patch(valid, 10, 10, 0, 0, 0), wantErr: bitmap.ErrInvalidPixelOffset},
		"missing palette": {data: patch(valid, 10, 0, 4, 0, 0)},
		"rows beyond stream": {
			// 4 TiB of rows announced by a header-only stream
			data: patch(patch(valid[:bitmap.HeaderSize], 18, 0, 0, 0x10, 0, 0, 0, 0x10, 0), 28, 32, 0),
		},
		"size overflow": {
			data:    patch(patch(valid[:bitmap.HeaderSize], 18, 0xff, 0xff, 0xff, 0x7f, 0xff, 0xff, 0xff, 0x7f), 28, 32, 0),
			wantErr: bitmap.ErrInvalidDimensions,
		},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := bitmap.Decode(bytes.NewReader(tc.data))
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			var ioErr *bitmap.IOError
			assert.ErrorAs(t, err, &ioErr)
		})
	}
}

func TestEncodeFormatMismatch(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		img *bitmap.Image
	}{
		"nil image":  {img: nil},
		"no pixels":  {img: &bitmap.Image{Header: bitmap.NewHeader(2, 2, 8)}},
		"wrong size": {img: &bitmap.Image{Header: bitmap.NewHeader(2, 2, 8), Pixels: mustBuffer(t, 3, 2, pixel.Grey)}},
		"wrong kind": {img: &bitmap.Image{Header: bitmap.NewHeader(2, 2, 24), Pixels: mustBuffer(t, 2, 2, pixel.Grey)}},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := bitmap.Encode(&bytes.Buffer{}, tc.img)
			assert.ErrorIs(t, err, bitmap.ErrFormatMismatch)
		})
	}
}

func TestEncodeWriteError(t *testing.T) {
	t.Parallel()

	img := &bitmap.Image{Header: bitmap.NewHeader(2, 2, 8), Pixels: mustBuffer(t, 2, 2, pixel.Grey)}
	err := bitmap.Encode(failingWriter{}, img)

	var ioErr *bitmap.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "write", ioErr.Op)
}

func TestFileRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, src := rgbFixture(t, 7, 5)
	in := filepath.Join(dir, "in.bmp")
	out := filepath.Join(dir, "out.bmp")
	require.NoError(t, os.WriteFile(in, src, 0o600))

	img, err := bitmap.DecodeFile(in)
	require.NoError(t, err)
	require.NoError(t, bitmap.EncodeFile(out, img))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, src, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := bitmap.DecodeFile(filepath.Join(dir, "missing.bmp"))
	var ioErr *bitmap.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "open", ioErr.Op)
	assert.ErrorIs(t, err, os.ErrNotExist)

	img := &bitmap.Image{Header: bitmap.NewHeader(2, 2, 8), Pixels: mustBuffer(t, 2, 2, pixel.Grey)}
	err = bitmap.EncodeFile(filepath.Join(dir, "nope", "out.bmp"), img)
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "create", ioErr.Op)

	bad := &bitmap.Image{Header: bitmap.NewHeader(2, 2, 24), Pixels: mustBuffer(t, 2, 2, pixel.Grey)}
	err = bitmap.EncodeFile(filepath.Join(dir, "bad.bmp"), bad)
	assert.ErrorIs(t, err, bitmap.ErrFormatMismatch)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestImageCopies(t *testing.T) {
	t.Parallel()

	img := &bitmap.Image{
		Header:     bitmap.NewHeader(1, 1, 8),
		ColorTable: []byte{1, 2},
		Pixels:     mustBuffer(t, 1, 1, pixel.Grey),
	}

	clone := img.Clone()
	clone.ColorTable[0] = 9
	clone.Pixels.Data[0] = 9
	assert.Equal(t, byte(1), img.ColorTable[0])
	assert.Equal(t, float32(0), img.Pixels.Data[0])

	next := mustBuffer(t, 1, 1, pixel.Grey)
	swapped := img.WithPixels(next)
	assert.Same(t, next, swapped.Pixels)
	assert.Equal(t, img.Header, swapped.Header)
}

func mustBuffer(t *testing.T, width, height int, format pixel.Format) *pixel.Buffer {
	t.Helper()

	buf, err := pixel.New(width, height, format)
	require.NoError(t, err)

	return buf
}

func patch(src []byte, offset int, values ...byte) []byte {
	out := append([]byte(nil), src...)
	copy(out[offset:], values)

	return out
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, os.ErrClosed
}

// Package bitmap reads and writes uncompressed 8, 24 and 32 bit bitmaps.
//
// Headers and any bytes between the headers and the pixel data (colour
// tables, extended info headers) are kept verbatim so that an image can be
// written back with only its pixel values changed. Pixels are decoded into a
// pixel.Buffer holding one float per stored byte, in stored order: channel 0
// of a colour pixel is the first byte of the pixel in the file (blue).
package bitmap

import (
	"bufio"
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/askiada/go-convolution/pkg/pixel"
)

// Image is a decoded bitmap.
type Image struct {
	Header     Header
	ColorTable []byte
	Pixels     *pixel.Buffer
}

// NewHeader builds a minimal header for an uncompressed image of the given
// size and bit depth, with no colour table.
func NewHeader(width, height, bitDepth int) Header {
	rowSize := width*bitDepth/8 + rowPadding(width, bitDepth/8)
	rows := height
	if rows < 0 {
		rows = -rows
	}
	imageSize := uint32(rowSize * rows)

	return Header{
		File: FileHeader{
			Type:            magic,
			Size:            HeaderSize + imageSize,
			PixelDataOffset: HeaderSize,
		},
		Info: InfoHeader{
			HeaderSize:   InfoHeaderSize,
			Width:        int32(width),
			Height:       int32(height),
			Planes:       1,
			BitsPerPixel: uint16(bitDepth),
			ImageSize:    imageSize,
		},
	}
}

// WithPixels returns a shallow copy of img carrying buf as its pixels.
func (img *Image) WithPixels(buf *pixel.Buffer) *Image {
	return &Image{
		Header:     img.Header,
		ColorTable: img.ColorTable,
		Pixels:     buf,
	}
}

// Clone returns a deep copy of img.
func (img *Image) Clone() *Image {
	clone := &Image{Header: img.Header}
	if img.ColorTable != nil {
		clone.ColorTable = append([]byte(nil), img.ColorTable...)
	}
	if img.Pixels != nil {
		clone.Pixels = img.Pixels.Clone()
	}

	return clone
}

// DecodeFile decodes the bitmap stored at path.
func DecodeFile(path string) (*Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, ioError("open", path, err)
	}
	defer file.Close()

	img, err := Decode(bufio.NewReader(file))
	if err != nil {
		var ioErr *IOError
		if errors.As(err, &ioErr) {
			return nil, ioError("read", path, err)
		}

		return nil, errors.Wrapf(err, "unable to decode %s", path)
	}

	return img, nil
}

// Decode reads a bitmap from r.
func Decode(r io.Reader) (*Image, error) {
	header, err := readHeader(r)
	if err != nil {
		return nil, ioError("read", "", err)
	}
	if err := header.validate(); err != nil {
		return nil, err
	}

	img := &Image{Header: header}

	if gap := int(header.File.PixelDataOffset) - HeaderSize; gap > 0 {
		img.ColorTable = make([]byte, gap)
		if _, err := io.ReadFull(r, img.ColorTable); err != nil {
			return nil, ioError("read", "", errors.Wrap(err, "unable to read colour table"))
		}
	}

	img.Pixels, err = readPixels(r, header)
	if err != nil {
		return nil, err
	}

	return img, nil
}

func readPixels(r io.Reader, header Header) (*pixel.Buffer, error) {
	format, err := header.Format()
	if err != nil {
		return nil, err
	}

	size, err := header.pixelDataSize()
	if err != nil {
		return nil, err
	}

	width, height := header.Width(), header.Height()
	stride := width*header.BytesPerPixel() + header.RowPadding()

	// the rows are read before the pixel buffer is allocated, a header
	// claiming more rows than the stream holds fails here
	var raw bytes.Buffer
	n, err := io.CopyN(&raw, r, size)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}

		return nil, ioError("read", "", errors.Wrapf(err, "unable to read row %d", n/int64(stride)))
	}

	buf, err := pixel.New(width, height, format)
	if err != nil {
		return nil, err
	}

	data := raw.Bytes()
	rowLen := width * format.Channels()
	for y := 0; y < height; y++ {
		// padding bytes at the end of row are dropped
		row := data[y*stride : y*stride+rowLen]
		dst := buf.Data[y*rowLen : (y+1)*rowLen]
		for i := range dst {
			dst[i] = float32(row[i])
		}
	}

	return buf, nil
}

// EncodeFile writes img to path. The image is written to a temporary file in
// the destination directory first and renamed, so a failed write leaves no
// partial file behind.
func EncodeFile(path string, img *Image) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return ioError("create", path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return ioError("create", path, err)
	}

	bw := bufio.NewWriter(tmp)
	if err := Encode(bw, img); err != nil {
		tmp.Close()
		return wrapEncodeError(path, err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return ioError("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		return ioError("write", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return ioError("rename", path, err)
	}
	tmpName = ""

	return nil
}

func wrapEncodeError(path string, err error) error {
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return ioError("write", path, err)
	}

	return errors.Wrapf(err, "unable to encode %s", path)
}

// Encode writes img to w. Channel values are clamped to [0,255] and
// truncated. The alpha byte of 32 bit images is always written as zero.
func Encode(w io.Writer, img *Image) error {
	if img == nil || img.Pixels == nil {
		return errors.Wrap(ErrFormatMismatch, "image has no pixels")
	}

	header := img.Header
	format, err := header.Format()
	if err != nil {
		return err
	}

	buf := img.Pixels
	if buf.Format != format || buf.Width != header.Width() || buf.Height != header.Height() {
		return errors.Wrapf(ErrFormatMismatch, "buffer %dx%d %s, header %dx%d %s",
			buf.Width, buf.Height, buf.Format, header.Width(), header.Height(), format)
	}

	if err := writeHeader(w, header); err != nil {
		return ioError("write", "", err)
	}
	if len(img.ColorTable) > 0 {
		if _, err := w.Write(img.ColorTable); err != nil {
			return ioError("write", "", errors.Wrap(err, "unable to write colour table"))
		}
	}

	channels := format.Channels()
	bpp := header.BytesPerPixel()
	// trailing padding stays zero between rows
	row := make([]byte, buf.Width*bpp+header.RowPadding())

	for y := 0; y < buf.Height; y++ {
		src := buf.Data[y*buf.Width*channels : (y+1)*buf.Width*channels]
		for i, v := range src {
			row[i] = clamp(v)
		}
		if format == pixel.RGBA {
			for x := 0; x < buf.Width; x++ {
				row[x*bpp+3] = 0
			}
		}
		if _, err := w.Write(row); err != nil {
			return ioError("write", "", errors.Wrapf(err, "unable to write row %d", y))
		}
	}

	return nil
}

// clamp converts a channel value to a byte, truncating towards zero.
func clamp(v float32) byte {
	switch {
	case math.IsNaN(float64(v)):
		return 0
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return byte(v)
	}
}

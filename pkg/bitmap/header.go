package bitmap

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/askiada/go-convolution/pkg/pixel"
)

const (
	// FileHeaderSize is the packed size of FileHeader.
	FileHeaderSize = 14
	// InfoHeaderSize is the packed size of InfoHeader.
	InfoHeaderSize = 40
	// HeaderSize is the combined size of both headers.
	HeaderSize = FileHeaderSize + InfoHeaderSize

	magic = 0x4d42 // "BM"
)

// Compression values that are not stored as raw rows.
const (
	compressionRLE8 = 1
	compressionRLE4 = 2
	compressionJPEG = 4
	compressionPNG  = 5
)

// FileHeader is the file level record at the start of every bitmap.
type FileHeader struct {
	Type            uint16
	Size            uint32
	Reserved1       uint16
	Reserved2       uint16
	PixelDataOffset uint32
}

// InfoHeader is the info level record that follows FileHeader.
type InfoHeader struct {
	HeaderSize      uint32
	Width           int32
	Height          int32
	Planes          uint16
	BitsPerPixel    uint16
	Compression     uint32
	ImageSize       uint32
	XPelsPerMeter   int32
	YPelsPerMeter   int32
	ColorsUsed      uint32
	ColorsImportant uint32
}

// Header holds both records exactly as they were read.
type Header struct {
	File FileHeader
	Info InfoHeader
}

// Width returns the image width in pixels.
func (h Header) Width() int {
	return int(h.Info.Width)
}

// Height returns the number of stored rows. A negative header height only
// flips the row order, which the codec carries through untouched.
func (h Header) Height() int {
	if h.Info.Height < 0 {
		return -int(h.Info.Height)
	}

	return int(h.Info.Height)
}

// TopDown reports whether the first stored row is the top of the image.
func (h Header) TopDown() bool {
	return h.Info.Height < 0
}

// BytesPerPixel returns the stored size of one pixel.
func (h Header) BytesPerPixel() int {
	return int(h.Info.BitsPerPixel) / 8
}

// Format returns the pixel format the header decodes to.
func (h Header) Format() (pixel.Format, error) {
	format, err := pixel.FormatForBitDepth(int(h.Info.BitsPerPixel))
	if err != nil {
		return 0, errors.Wrapf(ErrUnsupportedBitDepth, "%d bits per pixel", h.Info.BitsPerPixel)
	}

	return format, nil
}

// RowPadding returns the number of zero bytes that end every stored row.
func (h Header) RowPadding() int {
	return rowPadding(h.Width(), h.BytesPerPixel())
}

func rowPadding(width, bytesPerPixel int) int {
	return (4 - width*bytesPerPixel%4) % 4
}

// pixelDataSize returns the number of bytes of stored rows, padding
// included. It fails when that size does not fit in an int.
func (h Header) pixelDataSize() (int64, error) {
	stride := int64(h.Width())*int64(h.BytesPerPixel()) + int64(h.RowPadding())
	rows := int64(h.Height())
	if stride > math.MaxInt/rows {
		return 0, errors.Wrapf(ErrInvalidDimensions, "%dx%d at %d bits per pixel is too large",
			h.Info.Width, h.Info.Height, h.Info.BitsPerPixel)
	}

	return stride * rows, nil
}

func (h Header) validate() error {
	if h.Info.Width <= 0 || h.Info.Height == 0 {
		return errors.Wrapf(ErrInvalidDimensions, "%dx%d", h.Info.Width, h.Info.Height)
	}
	if _, err := h.Format(); err != nil {
		return err
	}
	switch h.Info.Compression {
	case compressionRLE8, compressionRLE4, compressionJPEG, compressionPNG:
		return errors.Wrapf(ErrUnsupportedCompression, "compression %d", h.Info.Compression)
	}
	if h.File.PixelDataOffset < HeaderSize {
		return errors.Wrapf(ErrInvalidPixelOffset, "offset %d is inside the headers", h.File.PixelDataOffset)
	}
	if _, err := h.pixelDataSize(); err != nil {
		return err
	}

	return nil
}

func readHeader(r io.Reader) (Header, error) {
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h.File); err != nil {
		return h, errors.Wrap(err, "unable to read file header")
	}
	if err := binary.Read(r, binary.LittleEndian, &h.Info); err != nil {
		return h, errors.Wrap(err, "unable to read info header")
	}

	return h, nil
}

func writeHeader(w io.Writer, h Header) error {
	if err := binary.Write(w, binary.LittleEndian, h.File); err != nil {
		return errors.Wrap(err, "unable to write file header")
	}
	if err := binary.Write(w, binary.LittleEndian, h.Info); err != nil {
		return errors.Wrap(err, "unable to write info header")
	}

	return nil
}

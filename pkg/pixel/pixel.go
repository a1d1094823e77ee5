// Package pixel provides the in-memory pixel storage shared by the codec, the
// halo builder and the compute backends.
//
// A Buffer owns a single contiguous float32 slice. The Format tag decides how
// many consecutive floats make up one pixel, so a grey image and a colour
// image never share a layout.
package pixel

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidDimensions = errors.New("width and height must be greater than 0")
	ErrSizeMismatch      = errors.New("data length does not match dimensions")
	ErrUnknownFormat     = errors.New("unknown pixel format")
	ErrNegativeRadius    = errors.New("radius must not be negative")
)

// Format is the pixel layout of a Buffer.
type Format int

const (
	Grey Format = iota + 1
	RGB
	RGBA
)

// Channels returns the number of floats stored per pixel.
func (f Format) Channels() int {
	switch f {
	case Grey:
		return 1
	case RGB:
		return 3
	case RGBA:
		return 4
	default:
		return 0
	}
}

func (f Format) String() string {
	switch f {
	case Grey:
		return "grey"
	case RGB:
		return "rgb"
	case RGBA:
		return "rgba"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// FormatForBitDepth maps a packed bit depth to the pixel format it decodes to.
func FormatForBitDepth(bitDepth int) (Format, error) {
	switch bitDepth {
	case 8:
		return Grey, nil
	case 24:
		return RGB, nil
	case 32:
		return RGBA, nil
	default:
		return 0, errors.Wrapf(ErrUnknownFormat, "bit depth %d", bitDepth)
	}
}

// Buffer is a width x height image stored row-major, channel-interleaved.
type Buffer struct {
	Width  int
	Height int
	Format Format
	Data   []float32
}

// New allocates a zeroed buffer.
func New(width, height int, format Format) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrInvalidDimensions, "%dx%d", width, height)
	}
	if format.Channels() == 0 {
		return nil, ErrUnknownFormat
	}

	return &Buffer{
		Width:  width,
		Height: height,
		Format: format,
		Data:   make([]float32, width*height*format.Channels()),
	}, nil
}

// FromData wraps data without copying it.
func FromData(width, height int, format Format, data []float32) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrInvalidDimensions, "%dx%d", width, height)
	}
	if format.Channels() == 0 {
		return nil, ErrUnknownFormat
	}
	if want := width * height * format.Channels(); len(data) != want {
		return nil, errors.Wrapf(ErrSizeMismatch, "got %d floats, want %d", len(data), want)
	}

	return &Buffer{
		Width:  width,
		Height: height,
		Format: format,
		Data:   data,
	}, nil
}

// Len returns the number of floats in the buffer.
func (b *Buffer) Len() int {
	return len(b.Data)
}

// SizeBytes returns the size of the pixel data in bytes.
func (b *Buffer) SizeBytes() int {
	return len(b.Data) * 4
}

func (b *Buffer) offset(x, y int) int {
	return (y*b.Width + x) * b.Format.Channels()
}

// Pixel returns the channels of the pixel at (x, y). The returned slice
// aliases the buffer.
func (b *Buffer) Pixel(x, y int) []float32 {
	off := b.offset(x, y)
	return b.Data[off : off+b.Format.Channels()]
}

// SetPixel copies values into the pixel at (x, y). Extra values are ignored.
func (b *Buffer) SetPixel(x, y int, values ...float32) {
	copy(b.Pixel(x, y), values)
}

// Fill sets every pixel to values.
func (b *Buffer) Fill(values ...float32) {
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			b.SetPixel(x, y, values...)
		}
	}
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	data := make([]float32, len(b.Data))
	copy(data, b.Data)

	return &Buffer{
		Width:  b.Width,
		Height: b.Height,
		Format: b.Format,
		Data:   data,
	}
}

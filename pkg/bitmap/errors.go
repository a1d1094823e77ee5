package bitmap

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrUnsupportedBitDepth    = errors.New("unsupported bit depth")
	ErrUnsupportedCompression = errors.New("unsupported compression")
	ErrInvalidDimensions      = errors.New("invalid image dimensions")
	ErrInvalidPixelOffset     = errors.New("invalid pixel data offset")
	ErrFormatMismatch         = errors.New("pixel buffer does not match header")
)

// IOError reports a failure to open, read or write a bitmap.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("bitmap %s: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("bitmap %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func ioError(op, path string, err error) error {
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		if ioErr.Path == "" {
			ioErr.Path = path
		}

		return ioErr
	}

	return &IOError{Op: op, Path: path, Err: err}
}

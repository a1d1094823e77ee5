package pixel

import "github.com/pkg/errors"

// BuildHalo returns a copy of src surrounded by a zero border of radius pixels
// on every side. Interior pixel (x, y) of the result is src pixel (x, y)
// shifted by radius on both axes.
func BuildHalo(src *Buffer, radius int) (*Buffer, error) {
	if src == nil {
		return nil, errors.New("source buffer must be set")
	}
	if radius < 0 {
		return nil, errors.Wrapf(ErrNegativeRadius, "radius %d", radius)
	}

	halo, err := New(src.Width+2*radius, src.Height+2*radius, src.Format)
	if err != nil {
		return nil, errors.Wrap(err, "unable to allocate halo buffer")
	}

	rowLen := src.Width * src.Format.Channels()
	for y := 0; y < src.Height; y++ {
		srcOff := src.offset(0, y)
		dstOff := halo.offset(radius, y+radius)
		copy(halo.Data[dstOff:dstOff+rowLen], src.Data[srcOff:srcOff+rowLen])
	}

	return halo, nil
}

// Interior returns the pixel of halo that corresponds to source pixel (x, y).
func Interior(halo *Buffer, radius, x, y int) []float32 {
	return halo.Pixel(x+radius, y+radius)
}

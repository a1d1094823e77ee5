package filter

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformedSpec is returned when a filter specification is not of the
// form name:arg1,arg2,...
var ErrMalformedSpec = errors.New("filter specification must be name:arg1,arg2,...")

// ParseSpec splits a specification such as "blur:5,0" into the filter name
// and its numeric arguments.
func ParseSpec(spec string) (string, []float64, error) {
	name, rawArgs, found := strings.Cut(spec, ":")
	name = strings.TrimSpace(name)
	if !found || name == "" {
		return "", nil, errors.Wrapf(ErrMalformedSpec, "%q", spec)
	}

	var args []float64
	if strings.TrimSpace(rawArgs) != "" {
		for _, raw := range strings.Split(rawArgs, ",") {
			arg, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return "", nil, errors.Wrapf(ErrMalformedSpec, "%q: argument %q is not a number", spec, raw)
			}
			args = append(args, arg)
		}
	}

	return name, args, nil
}

// FromSpec parses spec and builds its kernel.
func FromSpec(spec string) (*Kernel, error) {
	name, args, err := ParseSpec(spec)
	if err != nil {
		return nil, err
	}

	return MakeKernel(name, args)
}

// Usage describes the available filters, their arguments and directions.
func Usage() string {
	return `Possible filters are:

blur:a,b
  a = filter size
  b = direction

sharpen:a
  a = filter size

brighten:a
  a = brighten amount

darken:a
  a = darken amount

edgedetect:a,b
  a = filter size
  b = direction

emboss:a
  a = filter size

directions are:
  0 = full
  1 = horizontal
  2 = vertical
  3 = top right -> bottom left
  4 = top left -> bottom right

filter sizes must be odd and in the interval [1,15]`
}

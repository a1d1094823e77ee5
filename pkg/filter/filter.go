// Package filter turns a filter name and its numeric arguments into a square
// convolution kernel with a scale factor and an additive bias.
package filter

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

const (
	MinSize = 1
	MaxSize = 15
)

var (
	ErrUnknownFilter     = errors.New("unknown filter")
	ErrArgumentCount     = errors.New("bad number of arguments to filter")
	ErrInvalidFilterSize = errors.New("filter size must be odd and in the interval [1,15]")
	ErrInvalidDirection  = errors.New("direction must be an integer in the interval [0,4]")
)

// Kind identifies one of the supported filters.
type Kind int

const (
	Sharpen Kind = iota + 1
	Blur
	EdgeDetect
	Emboss
	Brighten
	Darken
)

var kindNames = map[Kind]string{
	Sharpen:    "sharpen",
	Blur:       "blur",
	EdgeDetect: "edgedetect",
	Emboss:     "emboss",
	Brighten:   "brighten",
	Darken:     "darken",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// Arity returns the number of arguments the filter takes.
func (k Kind) Arity() int {
	switch k {
	case Blur, EdgeDetect:
		return 2
	case Sharpen, Emboss, Brighten, Darken:
		return 1
	default:
		return 0
	}
}

// ParseKind matches name case-insensitively against the supported filters.
func ParseKind(name string) (Kind, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for kind, kindName := range kindNames {
		if kindName == lower {
			return kind, nil
		}
	}

	return 0, errors.Wrapf(ErrUnknownFilter, "%q", name)
}

// Direction selects which cells of the matrix blur and edgedetect fill.
type Direction int

const (
	Full Direction = iota
	Horizontal
	Vertical
	AntiDiagonal // top right to bottom left
	MainDiagonal // top left to bottom right
)

func (d Direction) String() string {
	switch d {
	case Full:
		return "full"
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	case AntiDiagonal:
		return "anti-diagonal"
	case MainDiagonal:
		return "main-diagonal"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Kernel is a size x size row-major convolution matrix. The convolved value
// of a pixel is Bias + Factor * sum(Matrix * neighbourhood).
type Kernel struct {
	Kind   Kind
	Size   int
	Matrix []float32
	Factor float32
	Bias   float32
}

// Radius is the number of neighbours on each side of the centre cell.
func (k *Kernel) Radius() int {
	return k.Size / 2
}

// At returns the weight at row, col.
func (k *Kernel) At(row, col int) float32 {
	return k.Matrix[row*k.Size+col]
}

func (k *Kernel) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %dx%d factor=%g bias=%g", k.Kind, k.Size, k.Size, k.Factor, k.Bias)
	for row := 0; row < k.Size; row++ {
		sb.WriteString("\n")
		for col := 0; col < k.Size; col++ {
			if col > 0 {
				sb.WriteString(" ")
			}
			fmt.Fprintf(&sb, "%g", k.At(row, col))
		}
	}

	return sb.String()
}

// MakeKernel builds the kernel for the named filter. Names are matched
// case-insensitively. Errors are checked in order: unknown name, argument
// count, size, direction.
func MakeKernel(name string, args []float64) (*Kernel, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	if len(args) != kind.Arity() {
		return nil, errors.Wrapf(ErrArgumentCount, "%s takes %d, got %d", kind, kind.Arity(), len(args))
	}

	switch kind {
	case Brighten:
		return pointKernel(kind, float32(args[0])), nil
	case Darken:
		return pointKernel(kind, -float32(args[0])), nil
	}

	size, err := kernelSize(args[0])
	if err != nil {
		return nil, errors.Wrap(err, kind.String())
	}

	kernel := &Kernel{
		Kind:   kind,
		Size:   size,
		Matrix: make([]float32, size*size),
		Factor: 1,
	}
	centre := size * size / 2

	switch kind {
	case Sharpen:
		kernel.fill(-1, Full)
		kernel.Matrix[centre] = float32(size * size)
	case Emboss:
		kernel.emboss()
		kernel.Bias = 128
	case Blur, EdgeDetect:
		direction, err := kernelDirection(args[1])
		if err != nil {
			return nil, errors.Wrap(err, kind.String())
		}
		if kind == Blur {
			kernel.fill(1, direction)
			if direction == Full {
				kernel.Factor = 1 / float32(size*size)
			} else {
				kernel.Factor = 1 / float32(size)
			}
			break
		}
		kernel.fill(-1, direction)
		if direction == Full {
			kernel.Matrix[centre] = float32(size*size - 1)
		} else {
			kernel.Matrix[centre] = float32(size - 1)
		}
	}

	return kernel, nil
}

func pointKernel(kind Kind, bias float32) *Kernel {
	return &Kernel{
		Kind:   kind,
		Size:   1,
		Matrix: []float32{1},
		Factor: 1,
		Bias:   bias,
	}
}

func kernelSize(arg float64) (int, error) {
	if arg != math.Trunc(arg) || arg < MinSize || arg > MaxSize || int(arg)%2 == 0 {
		return 0, errors.Wrapf(ErrInvalidFilterSize, "got %g", arg)
	}

	return int(arg), nil
}

func kernelDirection(arg float64) (Direction, error) {
	if arg != math.Trunc(arg) || arg < float64(Full) || arg > float64(MainDiagonal) {
		return 0, errors.Wrapf(ErrInvalidDirection, "got %g", arg)
	}

	return Direction(arg), nil
}

// fill writes value into the cells selected by direction.
func (k *Kernel) fill(value float32, direction Direction) {
	size := k.Size
	if direction == Full {
		for i := range k.Matrix {
			k.Matrix[i] = value
		}

		return
	}

	for i := 0; i < size; i++ {
		var row, col int
		switch direction {
		case Horizontal:
			row, col = size/2, i
		case Vertical:
			row, col = i, size/2
		case AntiDiagonal:
			row, col = i, size-1-i
		case MainDiagonal:
			row, col = i, i
		}
		k.Matrix[row*size+col] = value
	}
}

func (k *Kernel) emboss() {
	last := k.Size - 1
	for i := 0; i < k.Size; i++ {
		for j := 0; j < k.Size; j++ {
			switch {
			case i+j > last:
				k.Matrix[i*k.Size+j] = 1
			case i+j < last:
				k.Matrix[i*k.Size+j] = -1
			default:
				k.Matrix[i*k.Size+j] = 0
			}
		}
	}
}

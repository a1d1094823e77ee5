package cpu

import (
	"github.com/askiada/go-convolution/pkg/backend"
)

type constant struct {
	name string
	typ  backend.DefineType
}

// kernel is the native implementation of a WGSL entry point. bind checks
// the arguments of one dispatch and returns the function computing a single
// work item.
type kernel struct {
	constants []constant
	bind      func(name string, opts backend.CompileOptions, args []*buffer) (func(x, y int), error)
}

var kernels = map[string]kernel{
	"convolution": {
		constants: []constant{
			{name: "BUFFER_SIZE", typ: backend.IntType},
			{name: "DOUBLE_BUFFER_SIZE", typ: backend.IntType},
			{name: "WIDTH", typ: backend.IntType},
			{name: "HEIGHT", typ: backend.IntType},
			{name: "CHANNELS", typ: backend.IntType},
			{name: "FACTOR", typ: backend.FloatType},
			{name: "BIAS", typ: backend.FloatType},
		},
		bind: bindConvolution,
	},
}

// bindConvolution computes, for the output pixel (x, y) and every channel,
// BIAS + FACTOR * sum(weights[dy][dx] * input[y+dy][x+dx]). The input is the
// halo buffer of WIDTH x HEIGHT pixels, the output is smaller by
// DOUBLE_BUFFER_SIZE on both axes.
func bindConvolution(name string, opts backend.CompileOptions, args []*buffer) (func(x, y int), error) {
	if len(args) != 3 {
		return nil, backend.NewDispatchError(name, backend.CodeInvalidKernelArgs, "want 3 arguments (input, output, weights), got %d", len(args))
	}

	radius := intConstant(opts, "BUFFER_SIZE")
	double := intConstant(opts, "DOUBLE_BUFFER_SIZE")
	width := intConstant(opts, "WIDTH")
	height := intConstant(opts, "HEIGHT")
	channels := intConstant(opts, "CHANNELS")
	factor := floatConstant(opts, "FACTOR")
	bias := floatConstant(opts, "BIAS")

	if radius < 0 || double != 2*radius || channels < 1 {
		return nil, backend.NewDispatchError(name, backend.CodeInvalidKernelArgs,
			"invalid constants BUFFER_SIZE=%d DOUBLE_BUFFER_SIZE=%d CHANNELS=%d", radius, double, channels)
	}

	outWidth, outHeight := width-double, height-double
	if outWidth < 1 || outHeight < 1 {
		return nil, backend.NewDispatchError(name, backend.CodeInvalidKernelArgs,
			"buffered size %dx%d is too small for radius %d", width, height, radius)
	}

	input, output, weights := args[0], args[1], args[2]
	if !input.mode.Readable() || !output.mode.Writable() || !weights.mode.Readable() {
		return nil, backend.NewDispatchError(name, backend.CodeInvalidMemObject,
			"access modes %s, %s, %s do not allow reading the input and weights and writing the output",
			input.mode, output.mode, weights.mode)
	}

	size := double + 1
	if input.Len() != width*height*channels ||
		output.Len() != outWidth*outHeight*channels ||
		weights.Len() != size*size {
		return nil, backend.NewDispatchError(name, backend.CodeInvalidBufferSize,
			"buffer lengths %d, %d, %d do not match %dx%dx%d input and %dx%d weights",
			input.Len(), output.Len(), weights.Len(), width, height, channels, size, size)
	}

	in, out, w := input.data, output.data, weights.data

	return func(x, y int) {
		if x >= outWidth || y >= outHeight {
			return
		}

		for c := 0; c < channels; c++ {
			var sum float32
			for dy := 0; dy < size; dy++ {
				row := ((y+dy)*width + x) * channels
				for dx := 0; dx < size; dx++ {
					sum += w[dy*size+dx] * in[row+dx*channels+c]
				}
			}
			out[(y*outWidth+x)*channels+c] = bias + factor*sum
		}
	}, nil
}

func intConstant(opts backend.CompileOptions, name string) int {
	d, _ := opts.Lookup(name)
	return d.Int
}

func floatConstant(opts backend.CompileOptions, name string) float32 {
	d, _ := opts.Lookup(name)
	return d.Float
}

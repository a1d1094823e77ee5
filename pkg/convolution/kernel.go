package convolution

import (
	_ "embed"

	"github.com/askiada/go-convolution/pkg/backend"
	"github.com/askiada/go-convolution/pkg/filter"
	"github.com/askiada/go-convolution/pkg/pixel"
)

// KernelSource is the WGSL program dispatched for every filter.
//
//go:embed shaders/convolution.wgsl
var KernelSource string

// KernelName is the entry point of KernelSource.
const KernelName = "convolution"

// LocalWorkSize is the work-group size declared by KernelSource.
var LocalWorkSize = backend.WorkSize{X: 16, Y: 16}

// CompileOptions returns the constants KernelSource needs to convolve halo
// with k.
func CompileOptions(k *filter.Kernel, halo *pixel.Buffer) backend.CompileOptions {
	radius := k.Radius()

	return backend.CompileOptions{
		backend.IntDefine("BUFFER_SIZE", radius),
		backend.IntDefine("DOUBLE_BUFFER_SIZE", 2*radius),
		backend.IntDefine("WIDTH", halo.Width),
		backend.IntDefine("HEIGHT", halo.Height),
		backend.IntDefine("CHANNELS", halo.Format.Channels()),
		backend.FloatDefine("FACTOR", k.Factor),
		backend.FloatDefine("BIAS", k.Bias),
	}
}

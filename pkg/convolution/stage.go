package convolution

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-convolution/pkg/backend"
	"github.com/askiada/go-convolution/pkg/bitmap"
	"github.com/askiada/go-convolution/pkg/pixel"
)

type releaser interface {
	Release() error
}

// apply runs one filter on img. Every handle created on the device is
// released before returning.
func (o *Orchestrator) apply(ctx context.Context, device backend.Device, sm *machine, st stage, img *bitmap.Image) (*bitmap.Image, StageReport, error) {
	stageReport := StageReport{
		Name:       st.name,
		Filter:     st.spec,
		KernelSize: st.kernel.Size,
	}

	err := sm.advance(Buffering)
	if err != nil {
		return nil, stageReport, err
	}

	o.logger.Info("applying filter", "filter", st.spec, "kernel", st.kernel.Kind.String(), "size", st.kernel.Size)

	src := img.Pixels
	halo, err := pixel.BuildHalo(src, st.kernel.Radius())
	if err != nil {
		return nil, stageReport, errors.Wrap(err, "build halo")
	}

	var handles []releaser
	defer func() {
		for _, h := range handles {
			if rerr := h.Release(); rerr != nil {
				o.logger.Warn("unable to release device handle", "filter", st.spec, "error", rerr)
			}
		}
	}()

	input, err := device.UploadBuffer(halo.Data, backend.ReadOnly)
	if err != nil {
		return nil, stageReport, errors.Wrap(err, "upload halo buffer")
	}
	handles = append(handles, input)

	output, err := device.UploadBuffer(make([]float32, src.Len()), backend.WriteOnly)
	if err != nil {
		return nil, stageReport, errors.Wrap(err, "allocate output buffer")
	}
	handles = append(handles, output)

	weights, err := device.UploadBuffer(st.kernel.Matrix, backend.ReadOnly)
	if err != nil {
		return nil, stageReport, errors.Wrap(err, "upload filter weights")
	}
	handles = append(handles, weights)

	o.logger.Debug("buffers uploaded",
		"filter", st.spec,
		"halo_bytes", input.SizeBytes(),
		"output_bytes", output.SizeBytes(),
		"weights_bytes", weights.SizeBytes())

	prog, err := device.BuildProgram(KernelSource, CompileOptions(st.kernel, halo))
	if err != nil {
		return nil, stageReport, err
	}
	handles = append(handles, prog)

	global := backend.WorkSize{X: src.Width, Y: src.Height}.RoundUp(LocalWorkSize)
	start := time.Now()

	err = device.Dispatch(ctx, prog, KernelName, []backend.Buffer{input, output, weights}, global, LocalWorkSize)
	if err != nil {
		return nil, stageReport, err
	}

	stageReport.Dispatch = time.Since(start)
	o.logger.Info("filter applied",
		"filter", st.spec,
		"ms", float64(stageReport.Dispatch.Microseconds())/1000)

	err = sm.advance(Dispatched)
	if err != nil {
		return nil, stageReport, err
	}

	data, err := device.DownloadBuffer(output)
	if err != nil {
		return nil, stageReport, errors.Wrap(err, "download output buffer")
	}

	buf, err := pixel.FromData(src.Width, src.Height, src.Format, data)
	if err != nil {
		return nil, stageReport, errors.Wrap(err, "collect output buffer")
	}

	err = sm.advance(Collected)
	if err != nil {
		return nil, stageReport, err
	}

	return img.WithPixels(buf), stageReport, nil
}

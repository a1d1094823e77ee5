package cpu

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gogpu/naga"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-convolution/internal/autoscaler"
	"github.com/askiada/go-convolution/pkg/backend"
)

var (
	ErrReleased          = errors.New("handle already released")
	ErrForeignHandle     = errors.New("handle belongs to another device")
	ErrInvalidAccessMode = errors.New("invalid access mode")
)

var entryPointRe = regexp.MustCompile(`@compute\s*@workgroup_size\(([^)]*)\)\s*fn\s+([A-Za-z_][A-Za-z0-9_]*)`)

// Device executes programs on the host.
type Device struct {
	name   string
	scaler *autoscaler.AutoScaler
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

type buffer struct {
	owner    *Device
	data     []float32
	mode     backend.AccessMode
	released atomic.Bool
}

func (b *buffer) Len() int                 { return len(b.data) }
func (b *buffer) SizeBytes() int           { return len(b.data) * 4 }
func (b *buffer) Mode() backend.AccessMode { return b.mode }

func (b *buffer) Release() error {
	if b.released.Swap(true) {
		return ErrReleased
	}
	b.data = nil

	return nil
}

type entryPoint struct {
	name string
	// workgroup size declared by the shader, 0 when it is not a literal.
	local backend.WorkSize
}

type program struct {
	owner    *Device
	opts     backend.CompileOptions
	spirv    []byte
	entries  []entryPoint
	released atomic.Bool
}

func (p *program) Kernels() []string {
	names := make([]string, 0, len(p.entries))
	for _, e := range p.entries {
		names = append(names, e.name)
	}

	return names
}

func (p *program) Release() error {
	if p.released.Swap(true) {
		return ErrReleased
	}
	p.spirv = nil

	return nil
}

func (p *program) entry(name string) (entryPoint, bool) {
	for _, e := range p.entries {
		if e.name == name {
			return e, true
		}
	}

	return entryPoint{}, false
}

func (d *Device) Name() string {
	return d.name
}

func (d *Device) isClosed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.closed
}

// UploadBuffer copies data into a new buffer.
func (d *Device) UploadBuffer(data []float32, mode backend.AccessMode) (backend.Buffer, error) {
	if d.isClosed() {
		return nil, backend.ErrDeviceClosed
	}

	if mode < backend.ReadOnly || mode > backend.ReadWrite {
		return nil, errors.Wrapf(ErrInvalidAccessMode, "%s", mode)
	}

	buf := &buffer{
		owner: d,
		data:  make([]float32, len(data)),
		mode:  mode,
	}
	copy(buf.data, data)
	d.logger.Debug("buffer uploaded", "size_bytes", buf.SizeBytes(), "mode", mode.String())

	return buf, nil
}

// BuildProgram compiles the WGSL source with the options declared as module
// constants.
func (d *Device) BuildProgram(source string, opts backend.CompileOptions) (backend.Program, error) {
	if d.isClosed() {
		return nil, backend.ErrDeviceClosed
	}

	d.logger.Debug("building program", "options", opts.String())

	spirv, err := naga.Compile(opts.WGSLConstants() + source)
	if err != nil {
		return nil, &backend.BuildError{Log: err.Error()}
	}

	entries := parseEntryPoints(source)
	if len(entries) == 0 {
		return nil, &backend.BuildError{Log: "no compute entry point found"}
	}

	var missing []string
	for _, e := range entries {
		k, ok := kernels[e.name]
		if !ok {
			continue
		}
		for _, c := range k.constants {
			if def, ok := opts.Lookup(c.name); !ok || def.Type != c.typ {
				missing = append(missing, e.name+": missing constant "+c.name)
			}
		}
	}
	if len(missing) > 0 {
		return nil, &backend.BuildError{Log: strings.Join(missing, "\n")}
	}

	p := &program{
		owner:   d,
		opts:    append(backend.CompileOptions(nil), opts...),
		spirv:   spirv,
		entries: entries,
	}
	d.logger.Debug("program built", "spirv_bytes", len(spirv), "kernels", p.Kernels())

	return p, nil
}

func parseEntryPoints(source string) []entryPoint {
	var entries []entryPoint
	for _, m := range entryPointRe.FindAllStringSubmatch(source, -1) {
		e := entryPoint{name: m[2]}
		dims := strings.Split(m[1], ",")
		if x, err := strconv.Atoi(strings.TrimSpace(dims[0])); err == nil {
			e.local.X = x
			e.local.Y = 1
			if len(dims) > 1 {
				y, err := strconv.Atoi(strings.TrimSpace(dims[1]))
				if err != nil {
					y = 0
				}
				e.local.Y = y
			}
		}
		entries = append(entries, e)
	}

	return entries
}

// Dispatch runs kernel over the global range and blocks until every
// work-group has completed.
func (d *Device) Dispatch(ctx context.Context, prog backend.Program, kernel string, args []backend.Buffer, global, local backend.WorkSize) error {
	if d.isClosed() {
		return &backend.DispatchError{Kernel: kernel, Code: backend.CodeInvalidProgram, Err: backend.ErrDeviceClosed}
	}

	p, ok := prog.(*program)
	if !ok || p.owner != d {
		return &backend.DispatchError{Kernel: kernel, Code: backend.CodeInvalidProgram, Err: ErrForeignHandle}
	}

	if p.released.Load() {
		return &backend.DispatchError{Kernel: kernel, Code: backend.CodeInvalidProgram, Err: ErrReleased}
	}

	entry, ok := p.entry(kernel)
	if !ok {
		return backend.NewDispatchError(kernel, backend.CodeInvalidKernelName, "program has no kernel %q", kernel)
	}

	k, ok := kernels[kernel]
	if !ok {
		return backend.NewDispatchError(kernel, backend.CodeInvalidKernelName, "kernel %q has no cpu implementation", kernel)
	}

	if entry.local.X > 0 && entry.local.Y > 0 && entry.local != local {
		return backend.NewDispatchError(kernel, backend.CodeInvalidWorkGroupSize,
			"local size %s does not match the declared workgroup size %s", local, entry.local)
	}

	plan, err := d.scaler.Plan(global.X, global.Y, local.X, local.Y)
	if err != nil {
		return &backend.DispatchError{Kernel: kernel, Code: backend.CodeInvalidWorkGroupSize, Err: err}
	}

	bufs := make([]*buffer, len(args))
	for i, arg := range args {
		b, ok := arg.(*buffer)
		if !ok || b.owner != d {
			return &backend.DispatchError{Kernel: kernel, Code: backend.CodeInvalidMemObject, Err: errors.Wrapf(ErrForeignHandle, "argument %d", i)}
		}
		if b.released.Load() {
			return &backend.DispatchError{Kernel: kernel, Code: backend.CodeInvalidMemObject, Err: errors.Wrapf(ErrReleased, "argument %d", i)}
		}
		bufs[i] = b
	}

	run, err := k.bind(kernel, p.opts, bufs)
	if err != nil {
		return err
	}

	d.logger.Debug("dispatching kernel",
		"kernel", kernel,
		"global", global.String(),
		"local", local.String(),
		"groups", plan.Groups(),
		"workers", plan.Workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(plan.Workers)

	for i := 0; i < plan.Groups(); i++ {
		if gctx.Err() != nil {
			break
		}

		gx, gy := plan.Group(i)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			for ly := 0; ly < local.Y; ly++ {
				for lx := 0; lx < local.X; lx++ {
					run(gx*local.X+lx, gy*local.Y+ly)
				}
			}

			return nil
		})
	}

	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return &backend.DispatchError{Kernel: kernel, Code: backend.CodeCancelled, Err: err}
	}

	return nil
}

// DownloadBuffer returns a copy of the buffer content.
func (d *Device) DownloadBuffer(buf backend.Buffer) ([]float32, error) {
	b, ok := buf.(*buffer)
	if !ok || b.owner != d {
		return nil, errors.Wrap(ErrForeignHandle, "download buffer")
	}

	if b.released.Load() {
		return nil, errors.Wrap(ErrReleased, "download buffer")
	}

	out := make([]float32, len(b.data))
	copy(out, b.data)

	return out, nil
}

// Close releases the device. Further calls are no-ops.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.closed {
		d.closed = true
		d.logger.Debug("device closed", "device", d.name)
	}

	return nil
}

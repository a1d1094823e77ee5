// Package cpu runs kernel programs on the host CPU.
//
// Programs are WGSL compute modules. BuildProgram compiles them with naga so
// that a program the CPU accepts is also a valid shader for a GPU backend.
// Entry points that have a native implementation in this package can then
// be dispatched: the global range is split into work-groups which are run
// concurrently on a bounded worker pool.
package cpu

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/askiada/go-convolution/internal/autoscaler"
	"github.com/askiada/go-convolution/pkg/backend"
)

// Name is the registry name of the backend.
const Name = "cpu"

func init() {
	backend.Register(Name, func() backend.Backend { return New() })
}

// Option configures a Backend.
type Option func(b *Backend)

// WithWorkers caps the number of goroutines used by one dispatch. A non
// positive value means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(b *Backend) {
		b.SetWorkers(n)
	}
}

// Backend provides CPU devices.
type Backend struct {
	workers atomic.Int64
	logger  atomic.Pointer[slog.Logger]
}

// New returns a CPU backend.
func New(opts ...Option) *Backend {
	b := &Backend{}
	for _, opt := range opts {
		opt(b)
	}
	b.logger.Store(slog.New(slog.DiscardHandler))

	return b
}

func (b *Backend) Name() string {
	return Name
}

// SetWorkers caps the workers of the devices selected after the call. A non
// positive value means GOMAXPROCS.
func (b *Backend) SetWorkers(n int) {
	b.workers.Store(int64(n))
}

// SetLogger sets the logger used by the devices selected after the call.
// Nil disables logging.
func (b *Backend) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	b.logger.Store(l)
}

// SelectDevice returns a new device. Every device owns its own buffers and
// programs.
func (b *Backend) SelectDevice(ctx context.Context) (backend.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "select device")
	}

	scaler := autoscaler.New(int(b.workers.Load()))
	d := &Device{
		name:   fmt.Sprintf("cpu (%d workers)", scaler.MaxWorkers()),
		scaler: scaler,
		logger: b.logger.Load(),
	}
	d.logger.Info("device selected", "device", d.name)

	return d, nil
}

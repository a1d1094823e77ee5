// Package backend defines the narrow contract between the convolution
// pipeline and a parallel compute engine.
//
// A Backend selects a Device. The device owns every Buffer and Program it
// creates: data is uploaded into buffers, a program is built from kernel
// source text and compile-time constants, a named kernel of the program is
// dispatched over a two dimensional work range, and results are downloaded
// back to host memory. Dispatch blocks until the whole range has executed.
package backend

import (
	"context"
	"fmt"
)

// AccessMode is how a kernel may use a buffer.
type AccessMode int

const (
	ReadOnly AccessMode = iota + 1
	WriteOnly
	ReadWrite
)

func (m AccessMode) String() string {
	switch m {
	case ReadOnly:
		return "read-only"
	case WriteOnly:
		return "write-only"
	case ReadWrite:
		return "read-write"
	default:
		return fmt.Sprintf("access(%d)", int(m))
	}
}

// Readable reports whether a kernel may read from a buffer with this mode.
func (m AccessMode) Readable() bool {
	return m == ReadOnly || m == ReadWrite
}

// Writable reports whether a kernel may write to a buffer with this mode.
func (m AccessMode) Writable() bool {
	return m == WriteOnly || m == ReadWrite
}

// WorkSize is a two dimensional work range.
type WorkSize struct {
	X int
	Y int
}

// RoundUp returns the smallest multiple of local that covers w.
func (w WorkSize) RoundUp(local WorkSize) WorkSize {
	return WorkSize{
		X: roundUp(w.X, local.X),
		Y: roundUp(w.Y, local.Y),
	}
}

func (w WorkSize) String() string {
	return fmt.Sprintf("%dx%d", w.X, w.Y)
}

func roundUp(v, multiple int) int {
	if multiple <= 0 {
		return v
	}

	return (v + multiple - 1) / multiple * multiple
}

// Backend is a compute engine that can provide a device.
type Backend interface {
	// Name identifies the backend in the registry.
	Name() string
	// SelectDevice picks the device kernels will run on.
	SelectDevice(ctx context.Context) (Device, error)
}

// Device runs kernels over buffers it owns.
type Device interface {
	// Name describes the device.
	Name() string
	// UploadBuffer copies data into a new device buffer.
	UploadBuffer(data []float32, mode AccessMode) (Buffer, error)
	// BuildProgram compiles source with the given compile-time constants.
	// A compilation failure is returned as a *BuildError.
	BuildProgram(source string, opts CompileOptions) (Program, error)
	// Dispatch runs kernel over the global range split into local groups and
	// blocks until it completes. Failures are returned as a *DispatchError.
	Dispatch(ctx context.Context, prog Program, kernel string, args []Buffer, global, local WorkSize) error
	// DownloadBuffer copies the content of buf back to host memory.
	DownloadBuffer(buf Buffer) ([]float32, error)
	// Close releases the device.
	Close() error
}

// Buffer is device memory holding float32 values.
type Buffer interface {
	Len() int
	SizeBytes() int
	Mode() AccessMode
	Release() error
}

// Program is a built kernel program.
type Program interface {
	// Kernels lists the entry points that can be dispatched.
	Kernels() []string
	Release() error
}

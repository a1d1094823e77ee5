package backend

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrBackendNotAvailable = errors.New("backend not available")
	ErrDeviceClosed        = errors.New("device is closed")
)

// Error codes carried by DispatchError.
const (
	CodeInvalidMemObject     = -38
	CodeInvalidProgram       = -44
	CodeInvalidKernelName    = -46
	CodeInvalidKernelArgs    = -52
	CodeInvalidWorkGroupSize = -54
	CodeInvalidBufferSize    = -61
	CodeCancelled            = -1000
)

// BuildError is returned when a program fails to compile. Log holds the
// compiler diagnostics verbatim.
type BuildError struct {
	Log string
}

func (e *BuildError) Error() string {
	return "program build failed:\n" + e.Log
}

// DispatchError is returned when a kernel cannot be run or fails while
// running.
type DispatchError struct {
	Kernel string
	Code   int
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch of kernel %q failed (%d): %v", e.Kernel, e.Code, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// NewDispatchError builds a DispatchError with a formatted cause.
func NewDispatchError(kernel string, code int, format string, args ...interface{}) *DispatchError {
	return &DispatchError{
		Kernel: kernel,
		Code:   code,
		Err:    errors.Errorf(format, args...),
	}
}

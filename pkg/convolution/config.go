package convolution

import (
	"github.com/pkg/errors"
)

var (
	ErrNoFilters = errors.New("at least one filter is required")
	ErrNoInput   = errors.New("input file is required")
	ErrNoOutput  = errors.New("output file is required")
)

const (
	DefaultInputFile  = "input.bmp"
	DefaultOutputFile = "output.bmp"
)

// Config describes one run.
type Config struct {
	InputFile  string
	OutputFile string
	// Filters are "name:arg1,arg2,..." specifications, applied in order.
	Filters []string
	// Backend is the registry name of the compute backend, used when the
	// orchestrator has none. Empty means backend.Default.
	Backend string
	// GraphFile, when set, receives a DOT graph of the run.
	GraphFile string
	// Workers caps the parallelism of backends that support it. 0 keeps
	// the setting of the backend.
	Workers int
}

// Validate checks that cfg describes a run.
func (cfg Config) Validate() error {
	switch {
	case len(cfg.Filters) == 0:
		return ErrNoFilters
	case cfg.InputFile == "":
		return ErrNoInput
	case cfg.OutputFile == "":
		return ErrNoOutput
	case cfg.Workers < 0:
		return errors.Errorf("workers must not be negative, got %d", cfg.Workers)
	}

	return nil
}

package convolution

import (
	"log/slog"

	"github.com/askiada/go-convolution/pkg/pipeline/measure"
)

// Option configures an Orchestrator.
type Option func(o *Orchestrator)

// WithMeasure records the durations of every step of a run in m.
func WithMeasure(m measure.Measure) Option {
	return func(o *Orchestrator) {
		o.measure = m
	}
}

// WithGraph writes a DOT graph of every successful run to path. It
// overrides Config.GraphFile.
func WithGraph(path string) Option {
	return func(o *Orchestrator) {
		o.graphFile = path
	}
}

// WithLogger sets the logger of the orchestrator and of its backend.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l == nil {
			l = newNopLogger()
		}
		o.logger = l
	}
}

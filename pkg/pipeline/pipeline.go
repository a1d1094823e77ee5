package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-convolution/pkg/pipeline/model"
)

// Pipeline is a pipeline of steps.
type Pipeline struct {
	ctx       context.Context
	cancel    context.CancelFunc
	errs      *registry
	opts      []model.PipelineOption
	startTime time.Time
}

// New creates a new pipeline. Steps start as soon as they are added and stop
// when ctx is cancelled.
func New(ctx context.Context, opts ...model.PipelineOption) (*Pipeline, error) {
	dCtx, cancel := context.WithCancel(ctx)
	pipe := &Pipeline{
		ctx:       dCtx,
		cancel:    cancel,
		errs:      &registry{},
		startTime: time.Now(),
		opts:      opts,
	}

	for _, opt := range opts {
		err := opt.New()
		if err != nil {
			cancel()
			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return pipe, nil
}

// waitForPipeline waits for all error channels to be closed. The first error
// cancels the remaining steps.
func waitForPipeline(cancel context.CancelFunc, steps []stepErrors) error {
	var first error

	for err := range fanIn(steps) {
		if err != nil && first == nil {
			first = err
			cancel()
		}
	}

	return first
}

// Run waits for every step to finish and returns the first error.
func (p *Pipeline) Run() error {
	defer p.cancel()

	err := waitForPipeline(p.cancel, p.errs.all())
	if err != nil {
		return err
	}

	return p.finishRun()
}

func (p *Pipeline) finishRun() error {
	for _, opt := range p.opts {
		err := opt.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	return nil
}

package pipeline

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/go-convolution/pkg/pipeline/model"
)

// AddRootStep adds a step that produces the elements of the pipeline.
// stepFn must stop pushing to rootChan once ctx is done. rootChan is closed
// when stepFn returns.
func AddRootStep[O any](pipe *Pipeline, name string, stepFn func(ctx context.Context, rootChan chan<- O) error) (*model.Step[O], error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}

	output := make(chan O)
	step := &model.Step[O]{
		Details: &model.StepInfo{
			Type: model.RootStepType,
			Name: name,
		},
		Output: output,
	}
	for _, opt := range pipe.opts {
		err := opt.PrepareStep(model.StartStep.Details, step.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run prepare step function")
		}
	}

	errC := make(chan error, 1)
	pipe.errs.add(name, errC)

	go func() {
		defer func() {
			close(output)
			close(errC)
		}()

		err := stepFn(pipe.ctx, output)
		if err != nil {
			errC <- err
		}
	}()

	return step, nil
}

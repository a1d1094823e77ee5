package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-convolution/pkg/pipeline/model"
)

var unnamedStep = &model.StepInfo{Name: "input"}

func details[O any](step *model.Step[O]) *model.StepInfo {
	if step.Details == nil {
		return unnamedStep
	}

	return step.Details
}

// oneToOne applies oneToOneFn to every element of input, in order, until
// input is closed or ctx is done.
func oneToOne[I any, O any](ctx context.Context, pipe *Pipeline, input *model.Step[I], output *model.Step[O], oneToOneFn func(context.Context, I) (O, error)) error {
	for {
		start := time.Now()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-input.Output:
			if !ok {
				return nil
			}

			startFn := time.Now()
			out, err := oneToOneFn(ctx, in)
			if err != nil {
				return err
			}
			endFn := time.Since(startFn)

			// check the context again so that nothing is pushed once the
			// pipeline is stopping
			select {
			case <-ctx.Done():
				return ctx.Err()
			case output.Output <- out:
				for _, opt := range pipe.opts {
					err := opt.OnStepOutput(details(input), output.Details, time.Since(start), endFn)
					if err != nil {
						return errors.Wrap(err, "unable to run on step output function")
					}
				}
			}
		}
	}
}

func prepareStep[I, O any](pipe *Pipeline, name string, input *model.Step[I]) (*model.Step[O], error) {
	step := &model.Step[O]{
		Output: make(chan O),
		Details: &model.StepInfo{
			Type: model.NormalStepType,
			Name: name,
		},
	}

	for _, opt := range pipe.opts {
		err := opt.PrepareStep(details(input), step.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run prepare step function")
		}
	}

	return step, nil
}

// AddStepOneToOne adds a step that transforms every element of input into
// exactly one element of the returned step.
func AddStepOneToOne[I any, O any](pipe *Pipeline, name string, input *model.Step[I], oneToOneFn func(context.Context, I) (O, error)) (*model.Step[O], error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}
	if input == nil {
		return nil, ErrInputMustBeSet
	}

	step, err := prepareStep[I, O](pipe, name, input)
	if err != nil {
		return nil, err
	}

	errC := make(chan error, 1)
	pipe.errs.add(name, errC)

	go func() {
		defer func() {
			close(step.Output)
			close(errC)
		}()

		err := oneToOne(pipe.ctx, pipe, input, step, oneToOneFn)
		if err != nil {
			errC <- err
		}
	}()

	return step, nil
}

package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-convolution/pkg/pipeline/model"
)

// AddSink adds the final step of a branch. sinkFn is called for every
// element of input, one at a time.
func AddSink[I any](pipe *Pipeline, name string, input *model.Step[I], sinkFn func(ctx context.Context, input I) error) error {
	if pipe == nil {
		return ErrPipelineMustBeSet
	}
	if input == nil {
		return ErrInputMustBeSet
	}

	step := &model.StepInfo{
		Type: model.SinkStepType,
		Name: name,
	}
	for _, opt := range pipe.opts {
		err := opt.PrepareSink(details(input), step)
		if err != nil {
			return errors.Wrap(err, "unable to run prepare sink function")
		}
	}

	errC := make(chan error, 1)
	pipe.errs.add(name, errC)

	go func() {
		defer close(errC)

		err := consume(pipe, input, step, sinkFn)
		if err != nil {
			errC <- err
			return
		}

		for _, opt := range pipe.opts {
			err := opt.AfterSink(step, time.Since(pipe.startTime))
			if err != nil {
				errC <- errors.Wrap(err, "unable to run after sink function")
				return
			}
		}
	}()

	return nil
}

func consume[I any](pipe *Pipeline, input *model.Step[I], step *model.StepInfo, sinkFn func(ctx context.Context, input I) error) error {
	for {
		startInputChan := time.Now()
		select {
		case <-pipe.ctx.Done():
			return pipe.ctx.Err()
		case in, ok := <-input.Output:
			if !ok {
				return nil
			}
			endInputChan := time.Since(startInputChan)

			startFn := time.Now()
			err := sinkFn(pipe.ctx, in)
			if err != nil {
				return err
			}
			endFn := time.Since(startFn)

			for _, opt := range pipe.opts {
				err := opt.OnSinkOutput(details(input), step, endInputChan+endFn, endFn)
				if err != nil {
					return errors.Wrap(err, "unable to run on sink output function")
				}
			}
		}
	}
}

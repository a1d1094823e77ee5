package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-convolution/pkg/pipeline"
	"github.com/askiada/go-convolution/pkg/pipeline/drawer"
	"github.com/askiada/go-convolution/pkg/pipeline/measure"
	"github.com/askiada/go-convolution/pkg/pipeline/model"
)

func TestAddRootStepNilPipe(t *testing.T) {
	t.Parallel()

	_, err := pipeline.AddRootStep(nil, "root step", func(ctx context.Context, rootChan chan<- int) error {
		return nil
	})
	assert.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)
}

func TestAddRootStep(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)

	outputChan, err := pipeline.AddRootStep(pipe, "root step", func(ctx context.Context, rootChan chan<- int) error {
		for i := range 10 {
			rootChan <- i
		}

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.RootStepType, outputChan.Details.Type)

	got := pipeline.Collect(outputChan.Output)

	require.NoError(t, pipe.Run())
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestAddRootStepError(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)

	outputChan, err := pipeline.AddRootStep(pipe, "root step", func(ctx context.Context, rootChan chan<- int) error {
		for i := range 10 {
			if i == 5 {
				return assert.AnError
			}
			rootChan <- i
		}

		return nil
	})
	require.NoError(t, err)

	got := pipeline.Collect(outputChan.Output)

	err = pipe.Run()
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "root step")
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestAddStepOneToOneNilPipe(t *testing.T) {
	t.Parallel()

	_, err := pipeline.AddStepOneToOne(nil, "step", nil, func(ctx context.Context, input int) (int, error) {
		return input, nil
	})
	assert.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)
}

func TestAddStepOneToOneNilInput(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)

	_, err = pipeline.AddStepOneToOne[int, int](pipe, "step", nil, func(ctx context.Context, input int) (int, error) {
		return input, nil
	})
	assert.ErrorIs(t, err, pipeline.ErrInputMustBeSet)
}

func TestAddStepOneToOne(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)

	step := model.Step[int]{
		Output: pipeline.Numbers(10),
	}
	outputChan, err := pipeline.AddStepOneToOne(pipe, "first step", &step, func(ctx context.Context, input int) (int, error) {
		return input, nil
	})
	require.NoError(t, err)

	got := pipeline.Collect(outputChan.Output)

	require.NoError(t, pipe.Run())
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestAddStepOneToOneError(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)

	step := model.Step[int]{
		Output: pipeline.Numbers(10),
	}
	outputChan, err := pipeline.AddStepOneToOne(pipe, "failing step", &step, func(ctx context.Context, input int) (int, error) {
		if input == 5 {
			return 0, assert.AnError
		}

		return input, nil
	})
	require.NoError(t, err)

	got := pipeline.Collect(outputChan.Output)

	err = pipe.Run()
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "failing step")
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestAddStepOneToOneCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	pipe, err := pipeline.New(ctx)
	require.NoError(t, err)

	step := model.Step[int]{
		Output: make(chan int),
	}
	outputChan, err := pipeline.AddStepOneToOne(pipe, "step", &step, func(ctx context.Context, input int) (int, error) {
		return input, nil
	})
	require.NoError(t, err)

	cancel()

	got := pipeline.Collect(outputChan.Output)

	err = pipe.Run()
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, got)
}

func TestAddSinkNilPipe(t *testing.T) {
	t.Parallel()

	err := pipeline.AddSink(nil, "sink", &model.Step[int]{}, func(ctx context.Context, input int) error {
		return nil
	})
	assert.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)
}

func TestAddSinkNilInput(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)

	err = pipeline.AddSink[int](pipe, "sink", nil, func(ctx context.Context, input int) error {
		return nil
	})
	assert.ErrorIs(t, err, pipeline.ErrInputMustBeSet)
}

func TestAddSink(t *testing.T) {
	t.Parallel()

	got := []int{}
	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)

	step := model.Step[int]{
		Output: pipeline.Numbers(10),
	}
	err = pipeline.AddSink(pipe, "sink", &step, func(ctx context.Context, input int) error {
		got = append(got, input)

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, pipe.Run())
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestAddSinkError(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)

	step := model.Step[int]{
		Output: pipeline.Numbers(10),
	}
	err = pipeline.AddSink(pipe, "sink", &step, func(ctx context.Context, input int) error {
		if input == 5 {
			return assert.AnError
		}

		return nil
	})
	require.NoError(t, err)

	err = pipe.Run()
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "sink")
}

// A failing middle step stops the root step and the sink, and Run only
// returns once every step has returned.
func TestPipelineStopsOnFirstError(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)

	rootChan, err := pipeline.AddRootStep(pipe, "root", func(ctx context.Context, rootChan chan<- int) error {
		for i := 0; ; i++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rootChan <- i:
			}
		}
	})
	require.NoError(t, err)

	stepChan, err := pipeline.AddStepOneToOne(pipe, "step", rootChan, func(ctx context.Context, input int) (int, error) {
		if input == 3 {
			return 0, assert.AnError
		}

		return input, nil
	})
	require.NoError(t, err)

	sunk := 0
	err = pipeline.AddSink(pipe, "sink", stepChan, func(ctx context.Context, input int) error {
		sunk++
		return nil
	})
	require.NoError(t, err)

	err = pipe.Run()
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "step")
	assert.LessOrEqual(t, sunk, 3)
}

func TestSimplePipeline(t *testing.T) {
	t.Parallel()

	graphFile := filepath.Join(t.TempDir(), "graph.gv")
	m := measure.NewDefaultMeasure()
	pipe, err := pipeline.New(t.Context(), drawer.PipelineDrawer(drawer.NewDOTDrawer(graphFile), m), measure.PipelineMeasure(m))
	require.NoError(t, err)

	rootChan, err := pipeline.AddRootStep(pipe, "root step", func(ctx context.Context, rootChan chan<- int) error {
		for i := range 10 {
			rootChan <- i
		}

		return nil
	})
	require.NoError(t, err)

	step1Chan, err := pipeline.AddStepOneToOne(pipe, "step 1", rootChan, func(ctx context.Context, input int) (int, error) {
		time.Sleep(time.Millisecond)

		return input * 100, nil
	})
	require.NoError(t, err)

	step2Chan, err := pipeline.AddStepOneToOne(pipe, "step 2", step1Chan, func(ctx context.Context, input int) (int, error) {
		time.Sleep(2 * time.Millisecond)

		return input * 200, nil
	})
	require.NoError(t, err)

	total := 0
	err = pipeline.AddSink(pipe, "sink", step2Chan, func(ctx context.Context, input int) error {
		total += input

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, pipe.Run())
	assert.Equal(t, 45*100*200, total)

	for _, name := range []string{"start", "end", "root step", "step 1", "step 2", "sink"} {
		assert.NotNil(t, m.GetMetric(name), name)
	}
	assert.NotZero(t, m.GetMetric("step 2").AVGDuration())
	assert.NotZero(t, m.GetMetric("sink").GetTotalDuration())

	content, err := os.ReadFile(graphFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "strict digraph {")
	assert.Contains(t, string(content), `"root step" -> "step 1"`)
	assert.Contains(t, string(content), `"step 2" -> "sink"`)
	assert.Contains(t, string(content), `"sink" -> "end"`)
	assert.Contains(t, string(content), `"start" -> "root step"`)
}

func TestPipelineFinishNotCalledOnError(t *testing.T) {
	t.Parallel()

	graphFile := filepath.Join(t.TempDir(), "graph.gv")
	pipe, err := pipeline.New(t.Context(), drawer.PipelineDrawer(drawer.NewDOTDrawer(graphFile), nil))
	require.NoError(t, err)

	_, err = pipeline.AddRootStep(pipe, "root step", func(ctx context.Context, rootChan chan<- int) error {
		return assert.AnError
	})
	require.NoError(t, err)

	require.ErrorIs(t, pipe.Run(), assert.AnError)
	assert.NoFileExists(t, graphFile)
}

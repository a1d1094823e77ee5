package pipeline

import (
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrPipelineMustBeSet = errors.New("pipeline must be set")
	ErrInputMustBeSet    = errors.New("input must be set")
)

// stepErrors is the error channel of one step. A step sends at most one
// error and closes the channel when it returns.
type stepErrors struct {
	name string
	c    <-chan error
}

// registry holds the error channels of the steps added to a pipeline.
type registry struct {
	mu    sync.Mutex
	steps []stepErrors
}

func (r *registry) add(name string, c <-chan error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.steps = append(r.steps, stepErrors{name: name, c: c})
}

func (r *registry) all() []stepErrors {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]stepErrors(nil), r.steps...)
}

// fanIn forwards the errors of every step, prefixed with the step name, to
// the returned channel. It is closed once every step channel is closed.
func fanIn(steps []stepErrors) <-chan error {
	out := make(chan error, len(steps))

	var wg sync.WaitGroup
	for _, step := range steps {
		if step.c == nil {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			for err := range step.c {
				out <- errors.Wrap(err, step.name)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

// Package autoscaler sizes the worker pool that executes a kernel dispatch.
package autoscaler

import (
	"runtime"

	"github.com/pkg/errors"
)

var ErrInvalidWorkSize = errors.New("invalid work size")

// Plan describes how a global range is split into work-groups and how many
// workers run them.
type Plan struct {
	GroupsX int
	GroupsY int
	Workers int
}

// Groups returns the total number of work-groups.
func (p Plan) Groups() int {
	return p.GroupsX * p.GroupsY
}

// Group returns the coordinates of the i-th work-group in row-major order.
func (p Plan) Group(i int) (int, int) {
	return i % p.GroupsX, i / p.GroupsX
}

// AutoScaler caps the number of workers used by a dispatch.
type AutoScaler struct {
	maxWorkers int
}

// New returns an AutoScaler. A non positive maxWorkers means GOMAXPROCS.
func New(maxWorkers int) *AutoScaler {
	if maxWorkers <= 0 {
		maxWorkers = runtime.GOMAXPROCS(0)
	}

	return &AutoScaler{maxWorkers: maxWorkers}
}

// MaxWorkers returns the worker cap.
func (a *AutoScaler) MaxWorkers() int {
	return a.maxWorkers
}

// Plan splits a global range of globalX*globalY items into groups of
// localX*localY items. The global range must be a multiple of the local one.
func (a *AutoScaler) Plan(globalX, globalY, localX, localY int) (Plan, error) {
	if localX <= 0 || localY <= 0 {
		return Plan{}, errors.Wrapf(ErrInvalidWorkSize, "local size %dx%d", localX, localY)
	}

	if globalX < 0 || globalY < 0 {
		return Plan{}, errors.Wrapf(ErrInvalidWorkSize, "global size %dx%d", globalX, globalY)
	}

	if globalX%localX != 0 || globalY%localY != 0 {
		return Plan{}, errors.Wrapf(ErrInvalidWorkSize, "global size %dx%d is not a multiple of local size %dx%d",
			globalX, globalY, localX, localY)
	}

	plan := Plan{
		GroupsX: globalX / localX,
		GroupsY: globalY / localY,
	}

	plan.Workers = a.maxWorkers
	if groups := plan.Groups(); groups < plan.Workers {
		plan.Workers = groups
	}

	if plan.Workers < 1 {
		plan.Workers = 1
	}

	return plan, nil
}

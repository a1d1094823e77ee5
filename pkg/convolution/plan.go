package convolution

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/askiada/go-convolution/pkg/filter"
)

type stage struct {
	name   string
	spec   string
	kernel *filter.Kernel
}

// plan generates the kernel of every filter. Step names must be unique in a
// pipeline, hence the position suffix.
func plan(specs []string) ([]stage, error) {
	stages := make([]stage, 0, len(specs))
	for i, spec := range specs {
		k, err := filter.FromSpec(spec)
		if err != nil {
			return nil, errors.Wrapf(err, "filter %d", i+1)
		}
		stages = append(stages, stage{
			name:   fmt.Sprintf("%s #%d", spec, i+1),
			spec:   spec,
			kernel: k,
		})
	}

	return stages, nil
}

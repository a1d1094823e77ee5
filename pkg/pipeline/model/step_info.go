package model

type stepType string

const (
	RootStepType   stepType = "root"
	NormalStepType stepType = "step"
	SinkStepType   stepType = "sink"
)

// StepInfo describes a step of a pipeline.
type StepInfo struct {
	Type stepType
	Name string
}

var (
	StartStep = &Step[any]{Details: &StepInfo{Name: "start"}}
	EndStep   = &Step[any]{Details: &StepInfo{Name: "end"}}
)

// Step is a step of a pipeline and the channel its results are pushed to.
type Step[O any] struct {
	Output  chan O
	Details *StepInfo
}

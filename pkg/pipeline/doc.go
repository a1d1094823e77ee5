// Package pipeline chains processing steps with channels.
//
// A pipeline starts with a root step producing values, continues with
// one-to-one steps transforming them and ends with a sink consuming them.
// Every step runs in its own goroutine as soon as it is added. Run waits for
// all of them: the first error cancels the context shared by the steps and
// is returned wrapped with the name of the step that produced it.
//
// Options implementing model.PipelineOption are notified of the lifecycle
// of every step. The measure and drawer packages use them to time steps and
// to draw the pipeline as a DOT graph.
package pipeline

// Package model provides the data structures shared by the pipeline package
// and its options: the steps of a pipeline, their description and the
// lifecycle hooks a pipeline option implements.
package model

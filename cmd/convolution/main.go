// Command convolution applies a chain of convolution filters to a bitmap.
//
// Usage:
//
//	convolution -f blur:5,0 -f brighten:20 -o out.bmp in.bmp
//	convolution -i in.bmp -o out.bmp -f edgedetect:3,1 -g run.dot -v
//
// Filters are applied in the order they are given.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}

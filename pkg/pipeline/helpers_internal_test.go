package pipeline

import "context"

// Numbers sends 0 to total-1 on the returned channel, then closes it.
func Numbers(total int) chan int {
	return NumbersUntil(total, total, nil)
}

// NumbersUntil behaves like Numbers but calls cancel and stops when it
// reaches stop.
func NumbersUntil(total, stop int, cancel context.CancelFunc) chan int {
	c := make(chan int)

	go func() {
		defer close(c)

		for i := range total {
			if i == stop {
				cancel()
				return
			}
			c <- i
		}
	}()

	return c
}

// Collect returns everything received on c until it is closed.
func Collect[T any](c <-chan T) []T {
	var res []T
	for v := range c {
		res = append(res, v)
	}

	return res
}

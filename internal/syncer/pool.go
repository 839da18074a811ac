package syncer

import (
	"time"
)

// runTasks fans tasks out to a fixed pool of workers. The result channel is
// buffered to the task count so workers never block on a reader that has
// given up waiting.
func runTasks[T, R any](tasks []T, workers int, run func(T) R) <-chan R {
	if workers > len(tasks) {
		workers = len(tasks)
	}
	taskCh := make(chan T)
	results := make(chan R, len(tasks))
	for i := 0; i < workers; i++ {
		go func() {
			for t := range taskCh {
				results <- run(t)
			}
		}()
	}
	go func() {
		for _, t := range tasks {
			taskCh <- t
		}
		close(taskCh)
	}()
	return results
}

// collect drains up to n results, giving up when the deadline elapses.
// Tasks still running at the deadline are abandoned, not cancelled: their
// workers run to completion and park results on the buffered channel.
// Returns the collected results and the number abandoned.
func collect[R any](results <-chan R, n int, deadline time.Duration) ([]R, int) {
	timer := time.NewTimer(deadline)
	defer timer.Stop()
	out := make([]R, 0, n)
	for len(out) < n {
		select {
		case r := <-results:
			out = append(out, r)
		case <-timer.C:
			return out, n - len(out)
		}
	}
	return out, 0
}

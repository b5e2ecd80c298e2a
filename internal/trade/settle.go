package trade

import (
	"context"
	"sync"
)

// Task is one member of a refresh batch.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Settlement reports how each task of a batch ended. Errors are keyed by
// task name; a task that succeeded has no entry.
type Settlement struct {
	Total  int
	Errors map[string]error
}

// Failed returns the number of tasks that returned an error.
func (s Settlement) Failed() int { return len(s.Errors) }

// SettleAll runs every task concurrently and returns only after all of
// them have finished. Individual failures never cancel their siblings and
// are reported in the Settlement instead of as an error.
func SettleAll(ctx context.Context, tasks ...Task) Settlement {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		out = Settlement{Total: len(tasks), Errors: make(map[string]error)}
	)
	for _, t := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := t.Run(ctx); err != nil {
				mu.Lock()
				out.Errors[t.Name] = err
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return out
}

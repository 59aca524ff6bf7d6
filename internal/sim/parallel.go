package sim

import (
	"context"
	"sync"
)

// Ensemble runs independent simulators concurrently. Each run gets its own
// network from factory, so nothing is shared between goroutines.
type Ensemble struct {
	factory func(idx int) (*Simulator, error)
	numRuns int
}

func NewEnsemble(numRuns int, factory func(idx int) (*Simulator, error)) *Ensemble {
	return &Ensemble{factory: factory, numRuns: numRuns}
}

func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			s, err := e.factory(idx)
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx], errs[idx] = s.Run(ctx, cfg)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

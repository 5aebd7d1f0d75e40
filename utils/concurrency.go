package utils

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// SplitWork runs do for every index in [0, workSize) across routines goroutines.
// routines <= 0 picks a count from the number of CPUs.
// The first error stops scheduling of new work and is returned.
func SplitWork(ctx context.Context, routines int, workSize uint64, do func(workIndex uint64, routineIndex int) error) error {
	if workSize == 0 {
		return nil
	}

	if routines <= 0 {
		routines = max(runtime.NumCPU()+routines, 1)
	}

	if workSize < uint64(routines) {
		routines = int(workSize)
	}

	var counter atomic.Uint64

	eg, ctx := errgroup.WithContext(ctx)

	for routineIndex := range routines {
		eg.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}

				workIndex := counter.Add(1)
				if workIndex > workSize {
					return nil
				}

				if err := do(workIndex-1, routineIndex); err != nil {
					return err
				}
			}
		})
	}
	return eg.Wait()
}

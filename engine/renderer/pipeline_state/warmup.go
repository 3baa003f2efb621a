package pipeline_state

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Caishangqi/Eurekiel-sub001/common"
)

// defaultWarmUpWorkers leaves one CPU for the render thread.
func defaultWarmUpWorkers() int {
	return max(runtime.NumCPU()-1, 1)
}

// WarmUp materializes pipelines for every key in the list through a bounded
// worker pool, so shader-heavy load screens compile in parallel instead of
// stalling the first frame that needs each state. Keys already cached are
// skipped; keys that fail to build are logged and skipped.
func (c *cache) WarmUp(keys []StateKey) int {
	if len(keys) == 0 {
		return 0
	}

	before := c.Len()

	// The pool is created on first use and kept for the cache's lifetime,
	// so repeated warm-ups reuse workers instead of spinning up a pool
	// per call.
	c.warmUpPoolOnce.Do(func() {
		c.warmUpPool = worker.NewDynamicWorkerPool(c.warmUpWorkers, 256, 1*time.Second)
	})

	var wg sync.WaitGroup
	var failed atomic.Uint64
	for i, key := range keys {
		wg.Add(1)
		k := key // capture for closure
		c.warmUpPool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				if _, err := c.GetOrCreate(k); err != nil {
					failed.Add(1)
					common.Logger().Warn("pipeline warm-up build failed",
						"program", k.Program.String(), "error", err)
				}
				return nil, nil
			},
		})
	}
	wg.Wait()

	built := c.Len() - before
	common.Logger().Info("pipeline warm-up complete",
		"requested", len(keys), "built", built, "failed", failed.Load())
	return built
}

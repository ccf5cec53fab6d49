package worker_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dailypy/mediaflow/pkg/logger"
	"github.com/dailypy/mediaflow/pkg/worker"
	"github.com/stretchr/testify/assert"
)

func init() {
	logger.SetMinLoggingLevel(logger.VERBOSE.Level())
}

func Test_Worker_RunsUntilNoWorkRemains(t *testing.T) {
	t.Parallel()
	remaining := 5
	calls := 0
	w := worker.NewWorker("test-worker", func(worker.Worker) (bool, error) {
		calls++
		if remaining == 0 {
			return false, nil
		}

		remaining--
		return true, nil
	})

	assert.Equal(t, worker.Idle, w.Status())
	w.Start()

	assert.Equal(t, worker.Finished, w.Status())
	assert.Equal(t, "test-worker", w.Label())
	assert.Equal(t, 6, calls)
}

func Test_Worker_ErrorsDoNotStopWorker(t *testing.T) {
	t.Parallel()
	calls := 0
	w := worker.NewWorker("erroring", func(worker.Worker) (bool, error) {
		calls++
		return calls < 3, assert.AnError
	})

	w.Start()
	assert.Equal(t, 3, calls)
}

func Test_WorkerPool_DrainsSharedQueue(t *testing.T) {
	t.Parallel()
	var (
		mu    sync.Mutex
		queue = make([]int, 100)
		total atomic.Int64
	)
	for i := range queue {
		queue[i] = i + 1
	}

	task := func(worker.Worker) (bool, error) {
		mu.Lock()
		if len(queue) == 0 {
			mu.Unlock()
			return false, nil
		}
		next := queue[0]
		queue = queue[1:]
		mu.Unlock()

		total.Add(int64(next))
		return true, nil
	}

	pool := worker.NewWorkerPool()
	for i := 0; i < 4; i++ {
		assert.NoError(t, pool.PushWorker(worker.NewWorker("pool-worker", task)))
	}
	assert.Equal(t, 4, pool.Size())

	assert.NoError(t, pool.Start())
	pool.Wait()

	assert.EqualValues(t, 5050, total.Load())
	assert.Empty(t, queue)
}

func Test_WorkerPool_CannotBeModifiedOnceStarted(t *testing.T) {
	t.Parallel()
	pool := worker.NewWorkerPool()
	assert.NoError(t, pool.PushWorker(worker.NewWorker("noop", func(worker.Worker) (bool, error) { return false, nil })))
	assert.NoError(t, pool.Start())
	pool.Wait()

	assert.Error(t, pool.Start())
	assert.Error(t, pool.PushWorker(worker.NewWorker("late", func(worker.Worker) (bool, error) { return false, nil })))
}

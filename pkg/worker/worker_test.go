package worker_test

import (
	"sync"
	"testing"
	"time"

	"github.com/clipdeck/clipdeck/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// workQueue is a minimal thread-safe queue for driving poll functions.
type workQueue struct {
	mu    sync.Mutex
	items int
	done  int
}

func (queue *workQueue) push(n int) {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	queue.items += n
}

func (queue *workQueue) poll(worker.Worker) (bool, error) {
	queue.mu.Lock()
	defer queue.mu.Unlock()

	if queue.items == 0 {
		return false, nil
	}

	queue.items--
	queue.done++
	return true, nil
}

func (queue *workQueue) completed() int {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	return queue.done
}

func Test_WorkerPool_DrainsPendingWorkOnStart(t *testing.T) {
	t.Parallel()

	queue := &workQueue{}
	queue.push(5)

	pool := worker.NewWorkerPool()
	require.Nil(t, pool.PushWorker(worker.NewWorker("drain-worker", queue.poll)))
	require.Nil(t, pool.Start())
	defer pool.Close()

	assert.Eventually(t, func() bool { return queue.completed() == 5 }, time.Second*2, time.Millisecond*10)
}

func Test_WorkerPool_WakeupTriggersRepoll(t *testing.T) {
	t.Parallel()

	queue := &workQueue{}
	pool := worker.NewWorkerPool()
	require.Nil(t, pool.PushWorker(worker.NewWorker("wakeup-worker", queue.poll)))
	require.Nil(t, pool.Start())
	defer pool.Close()

	// Worker goes to sleep with nothing to do, then new work arrives
	queue.push(3)
	assert.Eventually(t, func() bool {
		pool.WakeupWorkers()
		return queue.completed() == 3
	}, time.Second*2, time.Millisecond*10)
}

func Test_WorkerPool_CloseWaitsForWorkers(t *testing.T) {
	t.Parallel()

	queue := &workQueue{}
	workers := []worker.Worker{
		worker.NewWorker("close-worker-0", queue.poll),
		worker.NewWorker("close-worker-1", queue.poll),
	}

	pool := worker.NewWorkerPool()
	require.Nil(t, pool.PushWorker(workers...))
	require.Nil(t, pool.Start())

	pool.Close()
	for _, w := range workers {
		assert.Equal(t, worker.FINISHED, w.Status())
	}
}

func Test_WorkerPool_RejectsMisuse(t *testing.T) {
	t.Parallel()

	pool := worker.NewWorkerPool()
	assert.NotNil(t, pool.WakeupWorkers(), "wakeup before start should error")
	require.Nil(t, pool.Start())
	defer pool.Close()

	assert.NotNil(t, pool.Start(), "double start should error")
	assert.NotNil(t, pool.PushWorker(worker.NewWorker("late", func(worker.Worker) (bool, error) { return false, nil })), "push after start should error")
}

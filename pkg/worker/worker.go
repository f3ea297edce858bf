package worker

import (
	"context"
	"sync"

	"github.com/nimasrn/debt-tracker/pkg/logger"
)

type WorkerHandler = func(ctx context.Context, workerIndex int, job interface{})

type WorkerManager struct {
	jobChannel     chan interface{}
	numberOfWorker int
	do             WorkerHandler
	stop           chan struct{}
	stopOnce       sync.Once
	waiter         *sync.WaitGroup
}

// NewWorkerManager builds a pool of numberOfWorkers goroutines fed from a
// buffered job channel. Jobs are handed out in arrival order.
func NewWorkerManager(bufferSize, numberOfWorkers int) *WorkerManager {
	if numberOfWorkers < 1 {
		numberOfWorkers = 1
	}
	return &WorkerManager{
		numberOfWorker: numberOfWorkers,
		jobChannel:     make(chan interface{}, bufferSize),
		stop:           make(chan struct{}),
		waiter:         &sync.WaitGroup{},
	}
}

func (w *WorkerManager) GetUnreadCount() int64 {
	return int64(len(w.jobChannel))
}

func (w *WorkerManager) SetWorker(worker WorkerHandler) {
	w.do = worker
}

// Enqueue blocks until a slot is free, the pool exits or ctx ends. It reports
// whether the job was accepted.
func (w *WorkerManager) Enqueue(ctx context.Context, val interface{}) bool {
	select {
	case w.jobChannel <- val:
		return true
	case <-w.stop:
		return false
	case <-ctx.Done():
		return false
	}
}

// Start runs the workers and blocks until ctx is cancelled or Exit is called.
// Jobs already queued when stopping are drained first.
func (w *WorkerManager) Start(ctx context.Context) {
	w.waiter.Add(w.numberOfWorker)
	for i := 0; i < w.numberOfWorker; i++ {
		go func(index int) {
			defer w.waiter.Done()
			for {
				select {
				case job := <-w.jobChannel:
					w.do(ctx, index, job)
				case <-ctx.Done():
					w.drain(ctx, index)
					return
				case <-w.stop:
					w.drain(ctx, index)
					return
				}
			}
		}(i)
	}
	w.waiter.Wait()
}

func (w *WorkerManager) drain(ctx context.Context, index int) {
	for {
		select {
		case job := <-w.jobChannel:
			w.do(ctx, index, job)
		default:
			return
		}
	}
}

// Exit stops all workers once the queued jobs are done.
func (w *WorkerManager) Exit() {
	w.stopOnce.Do(func() {
		logger.Info("[worker] exit requested", "workers", w.numberOfWorker)
		close(w.stop)
	})
}

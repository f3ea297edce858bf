package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nimasrn/debt-tracker/internal/queue"
	"github.com/nimasrn/debt-tracker/pkg/logger"
	"github.com/nimasrn/debt-tracker/pkg/worker"
)

const (
	CheckTimeout   = 5 * time.Second
	ReportInterval = 30 * time.Second
)

// Service feeds ledger events from the stream into a worker pool that runs
// one Check per affected customer.
type Service struct {
	queue      *queue.Queue
	reconciler *Reconciler
	worker     *worker.WorkerManager
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewService(q *queue.Queue, r *Reconciler, workers int) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		queue:      q,
		reconciler: r,
		worker:     worker.NewWorkerManager(workers*4, workers),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (s *Service) Start() error {
	logger.Info("[reconciler] starting", "stream", s.queue.Name())
	s.worker.SetWorker(s.workerHandler)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker.Start(s.ctx)
	}()

	if err := s.queue.Consume(s.messageHandler); err != nil {
		s.cancel()
		s.wg.Wait()
		return fmt.Errorf("start consumer: %w", err)
	}

	s.wg.Add(1)
	go s.statsReporter()
	return nil
}

func (s *Service) Stop(timeout time.Duration) {
	logger.Info("[reconciler] shutting down")
	if err := s.queue.Stop(timeout); err != nil {
		logger.Error("[reconciler] stop queue", "error", err)
	}
	s.worker.Exit()
	s.cancel()
	s.wg.Wait()
	s.reportStats()
	logger.Info("[reconciler] stopped")
}

func (s *Service) statsReporter() {
	defer s.wg.Done()

	ticker := time.NewTicker(ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.reportStats()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Service) reportStats() {
	st := s.reconciler.Stats().Snapshot()
	logger.Info("[reconciler] stats",
		"checked", st.Checked,
		"drifted", st.Drifted,
		"repaired", st.Repaired,
		"failed", st.Failed,
		"avg_duration_ms", st.AvgDuration.Milliseconds(),
		"backlog", s.worker.GetUnreadCount())

	if qs, err := s.queue.GetStats(s.ctx); err == nil {
		logger.Info("[reconciler] stream stats", "total", qs.TotalMessages, "pending", qs.PendingMessages)
	}
}

type job struct {
	customerID int64
	ctx        context.Context
	result     chan error
}

// messageHandler fans an event out to the pool and waits for every check. Any
// failed check leaves the message pending for redelivery.
func (s *Service) messageHandler(ctx context.Context, msg *queue.Message) error {
	event, err := queue.DecodeEvent(msg)
	if err != nil {
		// a malformed entry never decodes on retry
		logger.Error("[reconciler] dropping undecodable event", "id", msg.ID, "error", err)
		return nil
	}

	jobCtx, cancel := context.WithTimeout(ctx, CheckTimeout)
	defer cancel()

	jobs := make([]*job, 0, len(event.CustomerIDs))
	for _, id := range event.CustomerIDs {
		j := &job{customerID: id, ctx: jobCtx, result: make(chan error, 1)}
		if !s.worker.Enqueue(jobCtx, j) {
			return fmt.Errorf("enqueue check for customer %d: worker pool unavailable", id)
		}
		jobs = append(jobs, j)
	}

	var errs []error
	for _, j := range jobs {
		select {
		case err := <-j.result:
			errs = append(errs, err)
		case <-jobCtx.Done():
			return fmt.Errorf("waiting for check of customer %d: %w", j.customerID, jobCtx.Err())
		}
	}
	return errors.Join(errs...)
}

func (s *Service) workerHandler(_ context.Context, workerIndex int, v interface{}) {
	j, ok := v.(*job)
	if !ok {
		logger.Error("[reconciler] invalid job type", "worker", workerIndex)
		return
	}
	if j.ctx.Err() != nil {
		j.result <- j.ctx.Err()
		return
	}

	_, err := s.reconciler.Check(j.ctx, j.customerID)
	if err != nil {
		logger.Error("[reconciler] check failed", "worker", workerIndex, "customer_id", j.customerID, "error", err)
	}
	j.result <- err
}

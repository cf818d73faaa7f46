package fulfillment

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	ErrPoolClosed    = errors.New("fulfillment pool is shut down")
	ErrPoolQueueFull = errors.New("fulfillment queue full, please try again later")
)

type Job struct {
	TransactionID int64
}

type Worker struct {
	ID         int
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, queueSize int, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		JobChannel: make(chan Job, queueSize),
		Logger:     logger,
	}
}

// Start drains the worker's queue until it is closed.
func (w *Worker) Start(wg *sync.WaitGroup, processFunc func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for job := range w.JobChannel {
			w.Logger.Debug("worker processing job", "worker_id", w.ID, "transaction_id", job.TransactionID)
			processFunc(job)
		}
		w.Logger.Debug("worker shutting down", "worker_id", w.ID)
	}()
}

type PoolConfig struct {
	Workers   int
	QueueSize int
}

// Pool runs fulfillment in-process. Jobs are sharded by transaction id so a single worker owns each transaction.
type Pool struct {
	fulfiller Fulfiller
	workers   []*Worker
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

func NewPool(fulfiller Fulfiller, config PoolConfig, logger *slog.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	workers := config.Workers
	if workers <= 0 {
		workers = 4
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}

	p := &Pool{
		fulfiller: fulfiller,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
	for i := 0; i < workers; i++ {
		p.workers = append(p.workers, NewWorker(i, queueSize, logger))
	}
	p.start()
	return p
}

func (p *Pool) start() {
	p.once.Do(func() {
		for _, w := range p.workers {
			w.Start(&p.wg, p.process)
		}
		p.logger.Info("fulfillment worker pool started",
			"workers", len(p.workers),
			"queue_size", cap(p.workers[0].JobChannel))
	})
}

func (p *Pool) Trigger(ctx context.Context, transactionID int64) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	shard := int(transactionID % int64(len(p.workers)))
	if shard < 0 {
		shard = -shard
	}
	w := p.workers[shard]

	select {
	case w.JobChannel <- Job{TransactionID: transactionID}:
		p.logger.Info("fulfillment job queued",
			"transaction_id", transactionID,
			"worker_id", w.ID,
			"queue_length", len(w.JobChannel))
		return nil
	default:
		p.logger.Warn("fulfillment queue full, rejecting job",
			"transaction_id", transactionID,
			"worker_id", w.ID,
			"queue_capacity", cap(w.JobChannel))
		return ErrPoolQueueFull
	}
}

func (p *Pool) process(job Job) {
	res, err := p.fulfiller.Fulfill(p.ctx, job.TransactionID)
	if err != nil {
		p.logger.Error("fulfillment job failed", "transaction_id", job.TransactionID, "error", err)
		return
	}
	p.logger.Info("fulfillment job finished", "transaction_id", job.TransactionID, "outcome", res.Outcome, "status", res.Status)
}

// Shutdown stops accepting jobs, lets queued jobs finish, then returns.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, w := range p.workers {
		close(w.JobChannel)
	}
	p.mu.Unlock()

	p.logger.Info("shutting down fulfillment pool")
	p.wg.Wait()
	p.cancel()
	p.logger.Info("fulfillment pool shutdown complete")
}

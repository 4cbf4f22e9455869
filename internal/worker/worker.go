// Package worker runs the indexing pipeline out of band from the request
// path. Work for the same document key always lands on the same shard, so
// two processors never race to write conflicting record outcomes; unrelated
// documents proceed in parallel across shards.
package worker

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/matchdex/internal/domain"
	"github.com/hireloop/matchdex/internal/metrics"
)

// Processor performs the indexing work for one document.
type Processor interface {
	ProcessIndexing(ctx context.Context, documentID string, documentType domain.DocumentType) (bool, error)
}

// Task identifies one document needing processing.
type Task struct {
	DocumentID   string
	DocumentType domain.DocumentType
}

// Pool is a sharded background worker: one goroutine per shard, each with
// its own bounded queue.
type Pool struct {
	processor Processor
	shards    []chan Task
	timeout   time.Duration
	logger    *zap.Logger
	wg        sync.WaitGroup
}

// Config holds pool settings.
type Config struct {
	// Shards is the number of worker goroutines. Defaults to 4.
	Shards int
	// QueueSize is the per-shard queue capacity. Defaults to 256.
	QueueSize int
	// TaskTimeout bounds one ProcessIndexing call. Defaults to 60s.
	TaskTimeout time.Duration
}

// New creates a worker pool. Call Run to start it.
func New(processor Processor, cfg Config, logger *zap.Logger) *Pool {
	if cfg.Shards <= 0 {
		cfg.Shards = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 60 * time.Second
	}

	shards := make([]chan Task, cfg.Shards)
	for i := range shards {
		shards[i] = make(chan Task, cfg.QueueSize)
	}

	return &Pool{
		processor: processor,
		shards:    shards,
		timeout:   cfg.TaskTimeout,
		logger:    logger,
	}
}

// Run starts the shard goroutines and blocks until ctx is cancelled and
// every shard has stopped. A task already being handled finishes its
// timeout-bounded call; tasks still queued are discarded with the
// queue-depth gauge corrected. Discards are safe: the records stay Pending
// and a later RequestIndexing re-enqueues them.
func (p *Pool) Run(ctx context.Context) {
	for i, ch := range p.shards {
		p.wg.Add(1)
		go p.runShard(ctx, i, ch)
	}
	p.wg.Wait()
}

func (p *Pool) runShard(ctx context.Context, shard int, ch chan Task) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			p.discardQueued(shard, ch)
			return
		case task := <-ch:
			metrics.IndexingQueueDepth.Dec()
			if ctx.Err() != nil {
				// Shutdown raced the task receive; do not start new work.
				p.logger.Warn("Discarding queued indexing tasks on shutdown",
					zap.Int("shard", shard), zap.Int("count", 1))
				continue
			}
			p.handle(ctx, shard, task)
		}
	}
}

// discardQueued empties the shard queue after cancellation so the
// queue-depth gauge does not report phantom backlog.
func (p *Pool) discardQueued(shard int, ch chan Task) {
	dropped := 0
	for {
		select {
		case <-ch:
			metrics.IndexingQueueDepth.Dec()
			dropped++
		default:
			if dropped > 0 {
				p.logger.Warn("Discarding queued indexing tasks on shutdown",
					zap.Int("shard", shard), zap.Int("count", dropped))
			}
			return
		}
	}
}

func (p *Pool) handle(ctx context.Context, shard int, task Task) {
	taskCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ok, err := p.processor.ProcessIndexing(taskCtx, task.DocumentID, task.DocumentType)
	if err != nil {
		p.logger.Error("Indexing task aborted",
			zap.Int("shard", shard),
			zap.String("document_id", task.DocumentID),
			zap.String("document_type", string(task.DocumentType)),
			zap.Error(err))
		return
	}
	if !ok {
		p.logger.Debug("Indexing task did not complete",
			zap.Int("shard", shard),
			zap.String("document_id", task.DocumentID),
			zap.String("document_type", string(task.DocumentType)))
	}
}

// Enqueue submits a task without blocking the caller. When the shard's queue
// is full the task is dropped with a warning: the record stays Pending and a
// later RequestIndexing re-enqueues it.
func (p *Pool) Enqueue(task Task) bool {
	shard := p.shardFor(task)
	select {
	case p.shards[shard] <- task:
		metrics.IndexingQueueDepth.Inc()
		return true
	default:
		p.logger.Warn("Indexing queue full, dropping task",
			zap.Int("shard", shard),
			zap.String("document_id", task.DocumentID),
			zap.String("document_type", string(task.DocumentType)))
		return false
	}
}

// shardFor maps a document key to its shard. Same key, same shard.
func (p *Pool) shardFor(task Task) int {
	h := fnv.New32a()
	h.Write([]byte(string(task.DocumentType)))
	h.Write([]byte{0})
	h.Write([]byte(task.DocumentID))
	return int(h.Sum32() % uint32(len(p.shards)))
}

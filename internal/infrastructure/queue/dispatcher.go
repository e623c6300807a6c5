package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/excavator/rental-api/internal/core/domain"
	"github.com/excavator/rental-api/internal/core/ports"
	"github.com/excavator/rental-api/internal/infrastructure/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	storeTimeout   = 5 * time.Second
)

// Dispatcher persists role guard decisions off the request path. Decisions
// are sharded by user id onto a fixed set of workers, so the audit trail of
// a single user keeps its order.
type Dispatcher struct {
	workers []chan domain.AccessDecision
	repo    ports.AuditRepository
	log     zerolog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, repo ports.AuditRepository, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.AccessDecision, numWorkers),
		repo:    repo,
		log:     log.With().Str("component", "audit_dispatcher").Logger(),
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AccessDecision, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled,
// when Shutdown gives up waiting, or after their channels are drained.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands a decision to the worker responsible for its user. It never
// blocks: when the worker buffer is full the decision is dropped and counted.
func (d *Dispatcher) Enqueue(decision domain.AccessDecision) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.AuditRecordsTotal.WithLabelValues("dropped").Inc()
		return
	}

	idx := d.shardIndex(decision.UserID)
	select {
	case d.workers[idx] <- decision:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
	default:
		metrics.AuditRecordsTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().
			Str("user_id", decision.UserID).
			Str("operation", decision.Operation).
			Int("worker_id", idx).
			Msg("audit buffer full, decision dropped")
	}
}

// Close stops accepting decisions and waits until everything queued is stored.
func (d *Dispatcher) Close() {
	_ = d.Shutdown(context.Background())
}

// Shutdown stops accepting decisions and lets the workers drain what is
// queued. If ctx ends first the workers are cancelled, whatever is still
// queued is lost, and ctx.Err() is returned once they have exited.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.stopWorkers()
		return nil
	case <-ctx.Done():
		d.stopWorkers()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) stopWorkers() {
	if d.cancel != nil {
		d.cancel()
	}
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AccessDecision) {
	defer d.wg.Done()
	depth := metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(id))

	for {
		// A cancelled worker must not keep draining a closed channel.
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case decision, ok := <-ch:
			if !ok {
				return
			}
			depth.Dec()
			d.store(ctx, id, decision)
		}
	}
}

func (d *Dispatcher) store(ctx context.Context, workerID int, decision domain.AccessDecision) {
	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := d.repo.InsertDecision(storeCtx, &decision); err != nil {
		metrics.AuditRecordsTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).
			Str("user_id", decision.UserID).
			Str("operation", decision.Operation).
			Int("worker_id", workerID).
			Msg("audit decision not stored")
		return
	}
	metrics.AuditRecordsTotal.WithLabelValues("stored").Inc()
}

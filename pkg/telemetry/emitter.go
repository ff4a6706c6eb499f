package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Defaults for emitter construction.
const (
	DefaultBatchSize     = 10
	DefaultFlushInterval = 30 * time.Second
)

// QueuedEvent is one progress sample waiting in the batch queue.
type QueuedEvent struct {
	VideoID         uuid.UUID
	CreatorID       uuid.UUID
	StudentID       *uuid.UUID
	SessionID       string
	PercentComplete float64
	CurrentTime     float64
}

func (q QueuedEvent) toEvent() Event {
	return Event{
		EventType: EventVideoProgress,
		VideoID:   q.VideoID,
		CreatorID: q.CreatorID,
		StudentID: q.StudentID,
		Metadata: map[string]any{
			"session_id":       q.SessionID,
			"percent_complete": q.PercentComplete,
			"current_time":     q.CurrentTime,
		},
	}
}

// BatchEmitter coalesces progress telemetry and flushes it when the
// queue reaches the batch size, when the periodic timer fires, and on
// Destroy. The queue is unbounded and Track never blocks on the
// network.
type BatchEmitter struct {
	submitter     Submitter
	logger        *zap.Logger
	batchSize     int
	flushInterval time.Duration

	mu      sync.Mutex
	queue   []QueuedEvent
	stopCh  chan struct{}
	stopped bool
	wg      sync.WaitGroup
}

// NewBatchEmitter creates an emitter over the given submitter. Zero
// batchSize or flushInterval fall back to the package defaults.
func NewBatchEmitter(submitter Submitter, batchSize int, flushInterval time.Duration, logger *zap.Logger) *BatchEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	return &BatchEmitter{
		submitter:     submitter,
		logger:        logger,
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

// Track queues one progress sample. The first call starts the periodic
// flusher; a queue that reaches the batch size flushes right away.
// Tracking after Destroy drops the sample.
func (e *BatchEmitter) Track(event QueuedEvent) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.queue = append(e.queue, event)
	full := len(e.queue) >= e.batchSize
	if e.stopCh == nil {
		e.stopCh = make(chan struct{})
		e.wg.Add(1)
		go e.flushLoop(e.stopCh)
	}
	e.mu.Unlock()

	if full {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.Flush()
		}()
	}
}

func (e *BatchEmitter) flushLoop(stop <-chan struct{}) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.Flush()
		case <-stop:
			return
		}
	}
}

// Flush atomically drains the queue and submits every drained event
// concurrently. Each submission retries on its own; events that exhaust
// their retries are logged and dropped. Flush returns once the whole
// batch has settled.
func (e *BatchEmitter) Flush() {
	e.mu.Lock()
	batch := e.queue
	e.queue = nil
	e.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(batch))
	for _, queued := range batch {
		go func(queued QueuedEvent) {
			defer wg.Done()
			if err := e.submitter.Submit(context.Background(), queued.toEvent()); err != nil {
				e.logger.Warn("batched telemetry dropped",
					zap.String("session_id", queued.SessionID),
					zap.String("video_id", queued.VideoID.String()),
					zap.Error(err),
				)
			}
		}(queued)
	}
	wg.Wait()
}

// Destroy stops the periodic flusher and drains whatever is still
// queued. The emitter refuses new samples afterwards.
func (e *BatchEmitter) Destroy() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	stop := e.stopCh
	e.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	e.wg.Wait()
	e.Flush()
}

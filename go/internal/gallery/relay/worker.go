package relay

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcdev12/fotowall/go/internal/gallery/gateway"
	"github.com/rs/zerolog/log"
)

type Config struct {
	QueueSize      int
	MaxRetries     int
	RetryDelay     time.Duration
	PublishTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		QueueSize:      1024,
		MaxRetries:     3,
		RetryDelay:     time.Second,
		PublishTimeout: 5 * time.Second,
	}
}

// Stats counts what the worker did with the events it was handed
type Stats struct {
	Published uint64    `json:"published"`
	Dropped   uint64    `json:"dropped"`
	Failed    uint64    `json:"failed"`
	LastEvent time.Time `json:"last_event"`
}

// Worker is a hub EventSink that forwards events to a publisher in the
// background. The hub never waits on it: when the queue is full the event is dropped.
type Worker struct {
	publisher EventPublisher
	config    Config
	queue     chan *gateway.Event

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
	lastEvent atomic.Int64

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewWorker(publisher EventPublisher, cfg Config) *Worker {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultConfig().PublishTimeout
	}
	return &Worker{
		publisher: publisher,
		config:    cfg,
		queue:     make(chan *gateway.Event, cfg.QueueSize),
		stopChan:  make(chan struct{}),
	}
}

// Enqueue implements gateway.EventSink
func (w *Worker) Enqueue(event *gateway.Event) {
	select {
	case w.queue <- event:
	default:
		w.dropped.Add(1)
		log.Warn().
			Uint64("seq", event.Seq).
			Str("event_type", string(event.Type)).
			Msg("relay queue full, dropping event")
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("relay worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	log.Info().
		Int("queue_size", w.config.QueueSize).
		Msg("relay worker started")

	return nil
}

func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("relay worker not running")
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()

	log.Info().
		Uint64("published", w.published.Load()).
		Uint64("dropped", w.dropped.Load()).
		Msg("relay worker stopped")
	return nil
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			w.flush(ctx)
			return
		case event := <-w.queue:
			w.publish(ctx, event)
		}
	}
}

// flush publishes whatever is still queued when the worker stops
func (w *Worker) flush(ctx context.Context) {
	for {
		select {
		case event := <-w.queue:
			w.publish(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) publish(ctx context.Context, event *gateway.Event) {
	var err error
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.config.RetryDelay):
			}
		}

		pubCtx, cancel := context.WithTimeout(ctx, w.config.PublishTimeout)
		err = w.publisher.Publish(pubCtx, event)
		cancel()
		if err == nil {
			w.published.Add(1)
			w.lastEvent.Store(time.Now().UnixNano())
			return
		}

		log.Warn().
			Err(err).
			Uint64("seq", event.Seq).
			Int("attempt", attempt+1).
			Msg("failed to relay event")
	}

	w.failed.Add(1)
	log.Error().
		Err(err).
		Uint64("seq", event.Seq).
		Str("event_type", string(event.Type)).
		Msg("giving up on relaying event")
}

func (w *Worker) Stats() Stats {
	stats := Stats{
		Published: w.published.Load(),
		Dropped:   w.dropped.Load(),
		Failed:    w.failed.Load(),
	}
	if last := w.lastEvent.Load(); last > 0 {
		stats.LastEvent = time.Unix(0, last)
	}
	return stats
}

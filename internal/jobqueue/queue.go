// Package jobqueue provides a Redis-backed durable delayed-task queue with
// unique-by-key replace semantics. Jobs live in a sorted set scored by their
// fire time; a poller claims due jobs and dispatches them to a registered
// handler. Delivery is at-least-once: a job removed from Redis before its
// handler finishes is never re-run by the queue itself, but a crash between
// claim and completion re-fires on the producer's next enqueue, so handlers
// must tolerate duplicates.
package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/packlane/packlane-backend/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// scheduledSetKey holds job keys scored by fire time (epoch millis).
	scheduledSetKey = "packlane:jobs:scheduled"
	// payloadHashKey maps job key -> serialized payload.
	payloadHashKey = "packlane:jobs:payloads"

	// maxClaimBatch bounds how many due jobs one poll tick dispatches.
	maxClaimBatch = 100
)

// Payload is the data carried by a scheduled job.
type Payload struct {
	ChecklistID string `json:"checklistId"`
}

// Handler processes a fired job. Errors are logged, never retried: the
// queue's producers own retry semantics by re-enqueuing.
type Handler func(ctx context.Context, payload Payload) error

type queueMetrics struct {
	enqueued      prometheus.Counter
	cancelled     prometheus.Counter
	fired         prometheus.Counter
	handlerErrors prometheus.Counter
	queueDepth    prometheus.Gauge
	dispatchTime  prometheus.Histogram
}

// Singleton pattern for metrics (avoid double registration in tests).
var (
	qMetricsInstance *queueMetrics
	qMetricsOnce     sync.Once
	qDefaultRegistry = prometheus.DefaultRegisterer
)

func newQueueMetrics() *queueMetrics {
	qMetricsOnce.Do(func() {
		qMetricsInstance = &queueMetrics{
			enqueued: promauto.With(qDefaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "packlane_jobqueue_enqueued_total",
				Help: "Total number of jobs enqueued (including replacements)",
			}),
			cancelled: promauto.With(qDefaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "packlane_jobqueue_cancelled_total",
				Help: "Total number of jobs cancelled",
			}),
			fired: promauto.With(qDefaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "packlane_jobqueue_fired_total",
				Help: "Total number of jobs claimed and dispatched",
			}),
			handlerErrors: promauto.With(qDefaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "packlane_jobqueue_handler_errors_total",
				Help: "Total number of handler failures",
			}),
			queueDepth: promauto.With(qDefaultRegistry).NewGauge(prometheus.GaugeOpts{
				Name: "packlane_jobqueue_depth",
				Help: "Number of jobs currently scheduled",
			}),
			dispatchTime: promauto.With(qDefaultRegistry).NewHistogram(prometheus.HistogramOpts{
				Name:    "packlane_jobqueue_dispatch_duration_seconds",
				Help:    "Time taken to run a job handler",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			}),
		}
	})
	return qMetricsInstance
}

// resetQueueMetricsForTesting resets the metrics singleton for test isolation.
func resetQueueMetricsForTesting() {
	reg := prometheus.NewRegistry()
	qDefaultRegistry = reg
	qMetricsInstance = nil
	qMetricsOnce = sync.Once{}
}

// Options configures a Queue.
type Options struct {
	// PollInterval is how often the poller scans for due jobs.
	PollInterval time.Duration
	// DispatchTimeout bounds a single handler invocation.
	DispatchTimeout time.Duration
}

// Queue is a durable delayed-task scheduler on Redis. Enqueuing with an
// existing key replaces the pending job under that key, so at most one job
// is outstanding per key at any time.
type Queue struct {
	redisClient *redis.Client
	log         *zap.SugaredLogger
	metrics     *queueMetrics
	opts        Options

	handler Handler

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewQueue creates a queue. Register a handler and call Start before any
// jobs are expected to fire.
func NewQueue(redisClient *redis.Client, opts Options) *Queue {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 15 * time.Second
	}
	if opts.DispatchTimeout <= 0 {
		opts.DispatchTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		redisClient: redisClient,
		log:         logger.GetLogger().Named("jobqueue"),
		metrics:     newQueueMetrics(),
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// RegisterHandler sets the function invoked for fired jobs. Must be called
// before Start.
func (q *Queue) RegisterHandler(h Handler) {
	q.handler = h
}

// EnqueueUnique schedules a job under key to fire after delay, replacing any
// pending job with the same key.
func (q *Queue) EnqueueUnique(ctx context.Context, key string, payload Payload, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}

	fireAt := time.Now().Add(delay).UnixMilli()

	pipe := q.redisClient.TxPipeline()
	pipe.HSet(ctx, payloadHashKey, key, data)
	pipe.ZAdd(ctx, scheduledSetKey, redis.Z{Score: float64(fireAt), Member: key})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", key, err)
	}

	q.metrics.enqueued.Inc()
	q.log.Debugw("Job enqueued",
		"key", key,
		"fireAt", time.UnixMilli(fireAt),
		"delay", delay)
	return nil
}

// CancelUnique removes any pending job under key. Cancelling a key with no
// pending job is a no-op.
func (q *Queue) CancelUnique(ctx context.Context, key string) error {
	pipe := q.redisClient.TxPipeline()
	pipe.ZRem(ctx, scheduledSetKey, key)
	pipe.HDel(ctx, payloadHashKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cancel job %s: %w", key, err)
	}

	q.metrics.cancelled.Inc()
	q.log.Debugw("Job cancelled", "key", key)
	return nil
}

// Start launches the poller goroutine. Calling Start more than once is safe.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		q.log.Warn("Job queue poller already running")
		return
	}
	q.running = true

	q.log.Infow("Starting job queue poller",
		"pollInterval", q.opts.PollInterval,
		"dispatchTimeout", q.opts.DispatchTimeout)

	q.wg.Add(1)
	go q.pollLoop()
}

func (q *Queue) pollLoop() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			q.log.Debug("Poller stopping (context cancelled)")
			return
		case <-ticker.C:
			q.pollOnce()
		}
	}
}

// pollOnce claims and dispatches every due job. A successful ZREM is the
// claim: under concurrent pollers only one instance wins each key.
func (q *Queue) pollOnce() {
	now := float64(time.Now().UnixMilli())

	keys, err := q.redisClient.ZRangeByScore(q.ctx, scheduledSetKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%f", now),
		Count: maxClaimBatch,
	}).Result()
	if err != nil {
		q.log.Errorw("Failed to scan for due jobs", "error", err)
		return
	}

	for _, key := range keys {
		removed, err := q.redisClient.ZRem(q.ctx, scheduledSetKey, key).Result()
		if err != nil {
			q.log.Errorw("Failed to claim job", "key", key, "error", err)
			continue
		}
		if removed == 0 {
			// Lost the claim to another poller, or the job was cancelled
			// between scan and claim.
			continue
		}

		data, err := q.redisClient.HGet(q.ctx, payloadHashKey, key).Result()
		if err != nil {
			q.log.Errorw("Failed to load job payload", "key", key, "error", err)
			continue
		}
		if err := q.redisClient.HDel(q.ctx, payloadHashKey, key).Err(); err != nil {
			q.log.Warnw("Failed to delete job payload", "key", key, "error", err)
		}

		var payload Payload
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			q.log.Errorw("Failed to unmarshal job payload",
				"key", key,
				"payload", data,
				"error", err)
			continue
		}

		q.dispatch(key, payload)
	}

	if depth, err := q.redisClient.ZCard(q.ctx, scheduledSetKey).Result(); err == nil {
		q.metrics.queueDepth.Set(float64(depth))
	}
}

func (q *Queue) dispatch(key string, payload Payload) {
	if q.handler == nil {
		q.log.Errorw("No handler registered, dropping job", "key", key)
		return
	}

	q.metrics.fired.Inc()
	start := time.Now()

	dispatchCtx, cancel := context.WithTimeout(q.ctx, q.opts.DispatchTimeout)
	defer cancel()

	if err := q.handler(dispatchCtx, payload); err != nil {
		q.metrics.handlerErrors.Inc()
		q.log.Errorw("Job handler failed",
			"key", key,
			"checklistId", payload.ChecklistID,
			"error", err,
			"duration", time.Since(start))
	} else {
		q.log.Debugw("Job handled",
			"key", key,
			"checklistId", payload.ChecklistID,
			"duration", time.Since(start))
	}

	q.metrics.dispatchTime.Observe(time.Since(start).Seconds())
}

// Shutdown stops the poller and waits for an in-flight dispatch to finish.
// The context bounds how long to wait.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.mu.Unlock()

	q.log.Info("Shutting down job queue poller...")
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.log.Info("Job queue poller stopped")
		return nil
	case <-ctx.Done():
		q.log.Warn("Job queue shutdown timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the poller is active.
func (q *Queue) IsRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// HealthCheck pings Redis.
func (q *Queue) HealthCheck(ctx context.Context) error {
	if err := q.redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("job queue unhealthy: %w", err)
	}
	return nil
}

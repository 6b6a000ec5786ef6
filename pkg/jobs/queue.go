package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Job represents a queued background task. Payload is opaque JSON so jobs survive a
// round trip through the broker.
type Job struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Attempt  int             `json:"attempt"`
	Enqueued time.Time       `json:"enqueued"`
}

// NewJob marshals payload into a job with a fresh ID.
func NewJob(jobType string, payload interface{}) (Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("marshal %s payload: %w", jobType, err)
	}
	return Job{ID: uuid.NewString(), Type: jobType, Payload: raw}, nil
}

// Decode unmarshals the job payload into dest.
func (j Job) Decode(dest interface{}) error {
	if err := json.Unmarshal(j.Payload, dest); err != nil {
		return fmt.Errorf("decode %s job %s: %w", j.Type, j.ID, err)
	}
	return nil
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig configures worker pool behaviour. When Broker is set, jobs are pushed to a
// Redis list and pulled back by a feeder goroutine; otherwise they stay in memory.
type QueueConfig struct {
	Workers     int
	BufferSize  int
	MaxRetries  int
	RetryDelay  time.Duration
	PollTimeout time.Duration
	Broker      *redis.Client
	Logger      *zap.Logger
}

// Queue dispatches jobs to a fixed pool of goroutines.
type Queue struct {
	name    string
	key     string
	handler Handler
	broker  *redis.Client

	workers     int
	bufferSize  int
	maxRetries  int
	retryDelay  time.Duration
	pollTimeout time.Duration
	logger      *zap.Logger

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:        name,
		key:         "queue:" + name,
		handler:     handler,
		broker:      cfg.Broker,
		workers:     cfg.Workers,
		bufferSize:  cfg.BufferSize,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		pollTimeout: cfg.PollTimeout,
		logger:      cfg.Logger,
		jobs:        make(chan Job, cfg.BufferSize),
	}
}

// Name returns the queue name.
func (q *Queue) Name() string {
	return q.name
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i + 1)
	}
	if q.broker != nil {
		q.wg.Add(1)
		go q.feed()
	}
	q.started = true
	q.logger.Sugar().Infow("queue started", "queue", q.name, "workers", q.workers, "brokered", q.broker != nil)
}

// Stop cancels workers and waits for them to exit. Brokered jobs not yet pulled stay in
// Redis for the next process.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Sugar().Infow("queue stopped", "queue", q.name)
}

// Enqueue pushes a job onto the broker list, or onto the in-memory channel when the
// queue has no broker.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	if q.broker != nil {
		raw, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("marshal job %s: %w", job.ID, err)
		}
		if err := q.broker.LPush(ctx, q.key, raw).Err(); err != nil {
			return fmt.Errorf("queue %s push: %w", q.name, err)
		}
		return nil
	}

	q.mu.Lock()
	running := q.ctx
	started := q.started
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-running.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, running.Err())
	case q.jobs <- job:
		return nil
	}
}

// Pending reports how many brokered jobs are waiting in Redis.
func (q *Queue) Pending(ctx context.Context) (int64, error) {
	if q.broker == nil {
		return int64(len(q.jobs)), nil
	}
	return q.broker.LLen(ctx, q.key).Result()
}

func (q *Queue) feed() {
	defer q.wg.Done()
	for {
		if q.ctx.Err() != nil {
			return
		}
		result, err := q.broker.BRPop(q.ctx, q.pollTimeout, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if q.ctx.Err() != nil {
				return
			}
			q.logger.Sugar().Warnw("queue poll failed", "queue", q.name, "error", err)
			if !q.sleep(q.retryDelay) {
				return
			}
			continue
		}
		// BRPOP replies with [key, value].
		if len(result) != 2 {
			continue
		}
		var job Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			q.logger.Sugar().Errorw("dropping malformed job", "queue", q.name, "error", err)
			continue
		}
		select {
		case <-q.ctx.Done():
			// Put it back so the job is not lost on shutdown.
			if err := q.broker.RPush(context.Background(), q.key, result[1]).Err(); err != nil {
				q.logger.Sugar().Errorw("failed to return job to broker", "queue", q.name, "job_id", job.ID, "error", err)
			}
			return
		case q.jobs <- job:
		}
	}
}

func (q *Queue) worker(workerID int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			if err := q.handler(q.ctx, job); err != nil {
				q.handleFailure(job, err)
			}
		}
	}
}

func (q *Queue) handleFailure(job Job, err error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.logger.Sugar().Errorw("job exceeded retries", "queue", q.name, "job_id", job.ID, "type", job.Type, "error", err)
		return
	}
	q.logger.Sugar().Warnw("job failed, retrying", "queue", q.name, "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "error", err)

	go func(j Job) {
		if !q.sleep(q.retryDelay) {
			return
		}
		if err := q.Enqueue(q.ctx, j); err != nil {
			q.logger.Sugar().Errorw("failed to requeue job", "queue", q.name, "job_id", j.ID, "error", err)
		}
	}(job)
}

func (q *Queue) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-q.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

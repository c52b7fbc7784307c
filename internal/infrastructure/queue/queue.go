package queue

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

const (
	jobKeyPrefix     = "beanbound:job:"
	jobQueueKey      = "beanbound:job_queue"
	jobProcessingKey = "beanbound:job_processing"

	defaultMaxRetries = 3
	jobTTL            = 24 * time.Hour
)

// Job is one unit of background work on the redis queue.
type Job struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
}

// HandlerFunc processes one job payload.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// Queue is a redis-backed job queue with a fixed worker pool. Jobs move from
// the pending list to a processing list atomically so a crashed worker's jobs
// stay discoverable.
type Queue struct {
	client  *redis.Client
	workers int
	logger  *zap.Logger

	mu       sync.Mutex
	handlers map[string]HandlerFunc
	running  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewQueue creates a new job queue
func NewQueue(client *redis.Client, workers int, logger *zap.Logger) *Queue {
	if workers <= 0 {
		workers = 3
	}
	return &Queue{
		client:   client,
		workers:  workers,
		logger:   logger,
		handlers: make(map[string]HandlerFunc),
		stopCh:   make(chan struct{}),
	}
}

// Register binds a handler to a job kind. Must be called before Start.
func (q *Queue) Register(kind string, handler HandlerFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[kind] = handler
}

// Enqueue serializes the payload and pushes a job onto the queue.
func (q *Queue) Enqueue(ctx context.Context, kind string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job := &Job{
		ID:         uuid.New().String(),
		Kind:       kind,
		Payload:    raw,
		CreatedAt:  time.Now(),
		MaxRetries: defaultMaxRetries,
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, jobKeyPrefix+job.ID, data, jobTTL)
	pipe.LPush(ctx, jobQueueKey, job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	q.logger.Info("Job enqueued",
		zap.String("job_id", job.ID),
		zap.String("kind", kind))
	return nil
}

// Start launches the worker pool.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}
	q.running = true

	q.logger.Info("Starting job queue workers", zap.Int("workers", q.workers))
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Stop signals the workers and waits for them to drain.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	close(q.stopCh)
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info("Job queue workers stopped")
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			return
		default:
		}

		job, err := q.dequeue(ctx)
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				q.logger.Error("Failed to dequeue job",
					zap.Int("worker", id),
					zap.Error(err))
				time.Sleep(time.Second)
			}
			continue
		}
		q.process(ctx, job)
	}
}

// dequeue moves the next job id from pending to processing atomically and
// loads its data. The blocking pop doubles as the worker's idle wait.
func (q *Queue) dequeue(ctx context.Context) (*Job, error) {
	jobID, err := q.client.BRPopLPush(ctx, jobQueueKey, jobProcessingKey, time.Second).Result()
	if err != nil {
		return nil, err
	}

	data, err := q.client.Get(ctx, jobKeyPrefix+jobID).Result()
	if err != nil {
		q.client.LRem(ctx, jobProcessingKey, 1, jobID)
		return nil, fmt.Errorf("job data missing for %s: %w", jobID, err)
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		q.client.LRem(ctx, jobProcessingKey, 1, jobID)
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", jobID, err)
	}
	return &job, nil
}

func (q *Queue) process(ctx context.Context, job *Job) {
	defer q.client.LRem(ctx, jobProcessingKey, 1, job.ID)

	q.mu.Lock()
	handler, ok := q.handlers[job.Kind]
	q.mu.Unlock()
	if !ok {
		q.logger.Error("No handler for job kind, dropping",
			zap.String("job_id", job.ID),
			zap.String("kind", job.Kind))
		q.client.Del(ctx, jobKeyPrefix+job.ID)
		return
	}

	if err := q.runHandler(ctx, handler, job); err != nil {
		job.RetryCount++
		if job.RetryCount <= job.MaxRetries {
			q.logger.Warn("Job failed, retrying",
				zap.String("job_id", job.ID),
				zap.String("kind", job.Kind),
				zap.Int("attempt", job.RetryCount),
				zap.Error(err))
			q.requeue(ctx, job)
			return
		}
		q.logger.Error("Job permanently failed",
			zap.String("job_id", job.ID),
			zap.String("kind", job.Kind),
			zap.Int("retries", job.RetryCount-1),
			zap.Error(err))
		q.client.Del(ctx, jobKeyPrefix+job.ID)
		return
	}

	q.logger.Info("Job completed",
		zap.String("job_id", job.ID),
		zap.String("kind", job.Kind))
	q.client.Del(ctx, jobKeyPrefix+job.ID)
}

func (q *Queue) runHandler(ctx context.Context, handler HandlerFunc, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in job handler: %v", r)
		}
	}()
	return handler(ctx, job.Payload)
}

// requeue puts a failed job back on the pending list after a linear backoff.
func (q *Queue) requeue(ctx context.Context, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		q.logger.Error("Failed to marshal job for retry", zap.Error(err))
		return
	}
	if err := q.client.Set(ctx, jobKeyPrefix+job.ID, data, jobTTL).Err(); err != nil {
		q.logger.Error("Failed to persist job for retry", zap.Error(err))
		return
	}
	time.AfterFunc(time.Minute*time.Duration(job.RetryCount), func() {
		q.client.LPush(context.Background(), jobQueueKey, job.ID)
	})
}

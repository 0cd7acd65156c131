package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"interview-backend/internal/metrics"
	"interview-backend/internal/models"
	"interview-backend/internal/services"
)

type jobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateError(ctx context.Context, id uuid.UUID, errMsg string, retryCount int) error
}

type ReportGenerator interface {
	GenerateReport(ctx context.Context, job *models.Job) error
}

type Pool struct {
	redis       *redis.Client
	jobs        jobStore
	reports     ReportGenerator
	queue       services.JobQueue
	pub         services.Publisher
	workerCount int
	backoff     func(attempt int) time.Duration
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewPool(
	redisClient *redis.Client,
	jobs jobStore,
	reports ReportGenerator,
	queue services.JobQueue,
	pub services.Publisher,
	workerCount int,
) *Pool {
	return &Pool{
		redis:       redisClient,
		jobs:        jobs,
		reports:     reports,
		queue:       queue,
		pub:         pub,
		workerCount: workerCount,
		backoff:     exponentialBackoff,
		stopChan:    make(chan struct{}),
	}
}

func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

func (p *Pool) Start() {
	queues := []string{services.ReportQueue}

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i, queues)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

// Stop signals the workers and waits for in-flight jobs. A worker blocked in
// BLPOP notices within its poll timeout.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
	p.wg.Wait()
}

func (p *Pool) worker(id int, queues []string) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		result, err := p.redis.BLPop(ctx, 5*time.Second, queues...).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				log.Printf("Worker %d: BLPOP failed: %v", id, err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}

		jobID, err := uuid.Parse(result[1])
		if err != nil {
			log.Printf("Worker %d: bad job id %q: %v", id, result[1], err)
			continue
		}

		// Another worker may already hold this job
		lockKey := fmt.Sprintf("job_lock:%s", jobID)
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue
		}

		log.Printf("Worker %d: processing job %s", id, jobID)
		p.process(ctx, jobID)

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) process(ctx context.Context, jobID uuid.UUID) {
	job, err := p.jobs.GetByID(ctx, jobID)
	if err != nil {
		log.Printf("Job %s: failed to load: %v", jobID, err)
		return
	}
	if job.Status == "completed" || job.Status == "failed" {
		return
	}

	p.jobs.UpdateStatus(ctx, job.ID, "processing")

	var processErr error
	switch job.Type {
	case models.JobTypeReportGeneration:
		processErr = p.reports.GenerateReport(ctx, job)
	default:
		processErr = fmt.Errorf("unknown job type: %s", job.Type)
	}

	if processErr != nil {
		p.handleFailure(ctx, job, processErr)
	} else {
		p.handleSuccess(ctx, job)
	}
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job) {
	p.jobs.UpdateStatus(ctx, job.ID, "completed")
	metrics.ReportJobs.WithLabelValues("completed").Inc()
	log.Printf("Job %s completed successfully", job.ID)
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	job.RetryCount++
	errMsg := err.Error()

	if job.RetryCount < job.MaxRetries {
		log.Printf("Job %s failed (attempt %d): %s, retrying", job.ID, job.RetryCount, errMsg)
		p.jobs.UpdateStatus(ctx, job.ID, "pending")
		p.jobs.UpdateError(ctx, job.ID, errMsg, job.RetryCount)
		metrics.ReportJobs.WithLabelValues("retried").Inc()

		jobID := job.ID
		time.AfterFunc(p.backoff(job.RetryCount), func() {
			if err := p.queue.Enqueue(context.Background(), jobQueueName(job.Type), jobID); err != nil {
				log.Printf("Job %s: failed to requeue: %v", jobID, err)
			}
		})
		return
	}

	log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
	p.jobs.UpdateStatus(ctx, job.ID, "failed")
	p.jobs.UpdateError(ctx, job.ID, errMsg, job.RetryCount)
	metrics.ReportJobs.WithLabelValues("failed").Inc()

	p.pub.Publish(ctx, job.UserID, models.WSMessage{
		Type: "error",
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			ErrorCode:    "JOB_FAILED",
			ErrorMessage: errMsg,
		},
	})
}

func jobQueueName(jobType string) string {
	switch jobType {
	case models.JobTypeReportGeneration:
		return services.ReportQueue
	default:
		return "queue:" + jobType
	}
}

package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"interview-backend/internal/models"
	"interview-backend/internal/services"
)

type memJobs struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*models.Job
}

func newMemJobs(jobs ...*models.Job) *memJobs {
	m := &memJobs{jobs: make(map[uuid.UUID]*models.Job)}
	for _, j := range jobs {
		m.jobs[j.ID] = j
	}
	return m
}

func (m *memJobs) GetByID(_ context.Context, id uuid.UUID) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	cp := *j
	return &cp, nil
}

func (m *memJobs) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id].Status = status
	return nil
}

func (m *memJobs) UpdateError(_ context.Context, id uuid.UUID, errMsg string, retryCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id].ErrorMessage = &errMsg
	m.jobs[id].RetryCount = retryCount
	return nil
}

func (m *memJobs) status(id uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id].Status
}

type stubReports struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (s *stubReports) GenerateReport(context.Context, *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

type chanQueue struct {
	ch chan uuid.UUID
}

func (q chanQueue) Enqueue(_ context.Context, queue string, jobID uuid.UUID) error {
	if queue != services.ReportQueue {
		return errors.New("unexpected queue " + queue)
	}
	q.ch <- jobID
	return nil
}

type recordPub struct {
	mu    sync.Mutex
	types []string
}

func (r *recordPub) Publish(_ context.Context, _ uuid.UUID, msg models.WSMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, msg.Type)
	return nil
}

func newJob() *models.Job {
	return &models.Job{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Type:       models.JobTypeReportGeneration,
		Status:     "pending",
		MaxRetries: 3,
	}
}

func newTestPool(jobs *memJobs, reports *stubReports, q chanQueue, pub *recordPub) *Pool {
	p := NewPool(nil, jobs, reports, q, pub, 1)
	p.backoff = func(int) time.Duration { return time.Millisecond }
	return p
}

func TestProcess_Success(t *testing.T) {
	job := newJob()
	jobs := newMemJobs(job)
	reports := &stubReports{}
	p := newTestPool(jobs, reports, chanQueue{ch: make(chan uuid.UUID, 1)}, &recordPub{})

	p.process(context.Background(), job.ID)

	if got := jobs.status(job.ID); got != "completed" {
		t.Errorf("Expected completed, got %s", got)
	}
	if reports.calls != 1 {
		t.Errorf("Expected one generation, got %d", reports.calls)
	}
}

func TestProcess_SkipsFinishedJobs(t *testing.T) {
	job := newJob()
	job.Status = "completed"
	reports := &stubReports{}
	p := newTestPool(newMemJobs(job), reports, chanQueue{ch: make(chan uuid.UUID, 1)}, &recordPub{})

	p.process(context.Background(), job.ID)

	if reports.calls != 0 {
		t.Errorf("Expected no generation for a finished job, got %d", reports.calls)
	}
}

func TestProcess_RetriesThenFails(t *testing.T) {
	job := newJob()
	jobs := newMemJobs(job)
	q := chanQueue{ch: make(chan uuid.UUID, 1)}
	pub := &recordPub{}
	p := newTestPool(jobs, &stubReports{err: errors.New("db down")}, q, pub)

	for attempt := 1; attempt < 3; attempt++ {
		p.process(context.Background(), job.ID)
		if got := jobs.status(job.ID); got != "pending" {
			t.Fatalf("attempt %d: expected pending, got %s", attempt, got)
		}
		select {
		case id := <-q.ch:
			if id != job.ID {
				t.Fatalf("Expected %s requeued, got %s", job.ID, id)
			}
		case <-time.After(time.Second):
			t.Fatalf("attempt %d: job was not requeued", attempt)
		}
	}

	p.process(context.Background(), job.ID)
	if got := jobs.status(job.ID); got != "failed" {
		t.Fatalf("Expected failed after max retries, got %s", got)
	}

	select {
	case <-q.ch:
		t.Error("Expected no requeue after final failure")
	case <-time.After(20 * time.Millisecond):
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.types) != 1 || pub.types[0] != "error" {
		t.Errorf("Expected one error message, got %v", pub.types)
	}
}

func TestProcess_UnknownType(t *testing.T) {
	job := newJob()
	job.Type = "mystery"
	job.MaxRetries = 1
	jobs := newMemJobs(job)
	p := newTestPool(jobs, &stubReports{}, chanQueue{ch: make(chan uuid.UUID, 1)}, &recordPub{})

	p.process(context.Background(), job.ID)

	if got := jobs.status(job.ID); got != "failed" {
		t.Errorf("Expected failed, got %s", got)
	}
}

func TestExponentialBackoff(t *testing.T) {
	if exponentialBackoff(1) != 2*time.Second || exponentialBackoff(2) != 4*time.Second {
		t.Error("Unexpected backoff schedule")
	}
}

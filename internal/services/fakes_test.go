package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"interview-backend/internal/models"
)

type published struct {
	userID uuid.UUID
	msg    models.WSMessage
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, userID uuid.UUID, msg models.WSMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{userID: userID, msg: msg})
	return nil
}

func (p *fakePublisher) ofType(t string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, m := range p.msgs {
		if m.msg.Type == t {
			out = append(out, m)
		}
	}
	return out
}

// gatedPublisher holds the first media_acquire command until gate closes.
type gatedPublisher struct {
	*fakePublisher
	once    sync.Once
	entered chan struct{}
	gate    chan struct{}
}

func newGatedPublisher() *gatedPublisher {
	return &gatedPublisher{fakePublisher: &fakePublisher{}, entered: make(chan struct{}), gate: make(chan struct{})}
}

func (p *gatedPublisher) Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) error {
	if msg.Type == MsgMediaAcquire {
		first := false
		p.once.Do(func() { first = true })
		if first {
			close(p.entered)
			<-p.gate
		}
	}
	return p.fakePublisher.Publish(ctx, userID, msg)
}

// lockedBuffer collects log output written from several goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type finishCall struct {
	id       uuid.UUID
	reason   string
	elapsed  int
	revealed int
}

type fakeInterviewStore struct {
	mu       sync.Mutex
	rows     map[uuid.UUID]*models.InterviewSession
	reports  map[uuid.UUID]*models.InterviewReport
	finishes []finishCall
	finishErr error
}

func newFakeInterviewStore() *fakeInterviewStore {
	return &fakeInterviewStore{
		rows:    make(map[uuid.UUID]*models.InterviewSession),
		reports: make(map[uuid.UUID]*models.InterviewReport),
	}
}

func (s *fakeInterviewStore) Create(_ context.Context, row *models.InterviewSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row.StartedAt = time.Now()
	cp := *row
	s.rows[row.ID] = &cp
	return nil
}

func (s *fakeInterviewStore) Finish(_ context.Context, id uuid.UUID, reason string, elapsed, revealed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishes = append(s.finishes, finishCall{id, reason, elapsed, revealed})
	if s.finishErr != nil {
		return s.finishErr
	}
	if row, ok := s.rows[id]; ok && row.EndReason == nil {
		row.EndReason = &reason
		row.ElapsedSeconds = elapsed
		row.QuestionsRevealed = revealed
	}
	return nil
}

func (s *fakeInterviewStore) finishCalls() []finishCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]finishCall(nil), s.finishes...)
}

func (s *fakeInterviewStore) GetByID(_ context.Context, id uuid.UUID) (*models.InterviewSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *row
	return &cp, nil
}

func (s *fakeInterviewStore) ListByUser(_ context.Context, userID uuid.UUID, _ int) ([]models.InterviewSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.InterviewSession
	for _, row := range s.rows {
		if row.UserID == userID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *fakeInterviewStore) GetReport(_ context.Context, sessionID uuid.UUID) (*models.InterviewReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reports[sessionID], nil
}

func (s *fakeInterviewStore) SaveReport(_ context.Context, rep *models.InterviewReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rep.ID = uuid.New()
	rep.CreatedAt = time.Now()
	s.reports[rep.SessionID] = rep
	return nil
}

type fakeJobs struct {
	mu   sync.Mutex
	jobs []*models.Job
	err  error
}

func (j *fakeJobs) Create(_ context.Context, job *models.Job) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	job.ID = uuid.New()
	job.Status = "pending"
	j.jobs = append(j.jobs, job)
	return nil
}

type fakeQueue struct {
	mu     sync.Mutex
	queued map[string][]uuid.UUID
}

func (q *fakeQueue) Enqueue(_ context.Context, queue string, jobID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.queued == nil {
		q.queued = make(map[string][]uuid.UUID)
	}
	q.queued[queue] = append(q.queued[queue], jobID)
	return nil
}

type fakeCVRepo struct {
	mu  sync.Mutex
	cvs []*models.CandidateCV
}

func (r *fakeCVRepo) Create(_ context.Context, cv *models.CandidateCV) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cv.ID = uuid.New()
	cv.CreatedAt = time.Now()
	cv.TextLength = len(cv.TextContent)
	r.cvs = append(r.cvs, cv)
	return nil
}

func (r *fakeCVRepo) Latest(_ context.Context, userID uuid.UUID) (*models.CandidateCV, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.cvs) - 1; i >= 0; i-- {
		if r.cvs[i].UserID == userID {
			return r.cvs[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memFileStore struct {
	files map[string]string
}

func (m *memFileStore) Type() string { return "memory" }

func (m *memFileStore) Save(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	if m.files == nil {
		m.files = make(map[string]string)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.files[key] = string(b)
	return "mem://" + key, nil
}

func (m *memFileStore) Open(_ context.Context, location string) (io.ReadCloser, error) {
	content, ok := m.files[strings.TrimPrefix(location, "mem://")]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

type fakeUsers struct{}

func (fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return &models.User{ID: id, Email: "candidate@example.com", FullName: "Sam Candidate"}, nil
}

type stubGenerator struct {
	fb  *Feedback
	err error
}

func (stubGenerator) Name() string { return "stub" }

func (g stubGenerator) Generate(context.Context, ReportInput) (*Feedback, error) {
	return g.fb, g.err
}

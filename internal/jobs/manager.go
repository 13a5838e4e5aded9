package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pricelab/avito-price-analyzer/internal/analyzer"
	"github.com/pricelab/avito-price-analyzer/internal/config"
	"github.com/pricelab/avito-price-analyzer/internal/models"
	"github.com/pricelab/avito-price-analyzer/internal/scraper"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// logTailSize caps how many recent log lines a run keeps for polling clients.
const logTailSize = 200

var ErrRunNotFound = errors.New("run not found")

// Run is the mutable state of one analysis run. All fields behind mu; the
// worker writes, API readers take snapshots.
type run struct {
	mu sync.Mutex

	id           string
	inputPath    string
	cookiesPath  string
	status       Status
	progress     int
	outputPath   string
	challengeURL string
	errMsg       string
	outcomes     map[models.Outcome]int
	logTail      []string
	createdAt    time.Time
	startedAt    *time.Time
	completedAt  *time.Time

	cancel context.CancelFunc
}

// Snapshot is the read-only view served to API clients.
type Snapshot struct {
	ID           string                 `json:"id"`
	InputPath    string                 `json:"input_path"`
	Status       Status                 `json:"status"`
	Progress     int                    `json:"progress"`
	OutputPath   string                 `json:"output_path,omitempty"`
	ChallengeURL string                 `json:"challenge_url,omitempty"`
	Error        string                 `json:"error,omitempty"`
	Outcomes     map[models.Outcome]int `json:"outcomes,omitempty"`
	Log          []string               `json:"log"`
	CreatedAt    time.Time              `json:"created_at"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
}

func (r *run) snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	logCopy := make([]string, len(r.logTail))
	copy(logCopy, r.logTail)

	return Snapshot{
		ID:           r.id,
		InputPath:    r.inputPath,
		Status:       r.status,
		Progress:     r.progress,
		OutputPath:   r.outputPath,
		ChallengeURL: r.challengeURL,
		Error:        r.errMsg,
		Outcomes:     r.outcomes,
		Log:          logCopy,
		CreatedAt:    r.createdAt,
		StartedAt:    r.startedAt,
		CompletedAt:  r.completedAt,
	}
}

// Manager owns all runs and the single background worker that executes them
// sequentially. Run state lives in memory only and dies with the process.
type Manager struct {
	mu    sync.Mutex
	runs  map[string]*run
	order []string
	queue chan string

	cfg    *config.Config
	logger *slog.Logger
}

func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	return &Manager{
		runs:   make(map[string]*run),
		queue:  make(chan string, 64),
		cfg:    cfg,
		logger: logger.With("component", "run_manager"),
	}
}

// CreateRun registers and queues a new run.
func (m *Manager) CreateRun(inputPath, cookiesPath string) (Snapshot, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return Snapshot{}, fmt.Errorf("input file not readable: %w", err)
	}

	r := &run{
		id:          uuid.New().String(),
		inputPath:   inputPath,
		cookiesPath: cookiesPath,
		status:      StatusPending,
		createdAt:   time.Now(),
	}

	m.mu.Lock()
	m.runs[r.id] = r
	m.order = append(m.order, r.id)
	m.mu.Unlock()

	select {
	case m.queue <- r.id:
	default:
		m.mu.Lock()
		delete(m.runs, r.id)
		m.order = m.order[:len(m.order)-1]
		m.mu.Unlock()
		return Snapshot{}, errors.New("run queue is full")
	}

	m.logger.Info("run created", "id", r.id, "input", inputPath)
	return r.snapshot(), nil
}

func (m *Manager) GetRun(id string) (Snapshot, error) {
	m.mu.Lock()
	r, ok := m.runs[id]
	m.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrRunNotFound
	}
	return r.snapshot(), nil
}

// ListRuns returns all runs, newest first.
func (m *Manager) ListRuns() []Snapshot {
	m.mu.Lock()
	ids := make([]string, len(m.order))
	copy(ids, m.order)
	runs := make([]*run, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		runs = append(runs, m.runs[ids[i]])
	}
	m.mu.Unlock()

	out := make([]Snapshot, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.snapshot())
	}
	return out
}

// CancelRun flips the run's cancellation. A pending run is cancelled in
// place; a running one is interrupted through its context and finishes as
// cancelled without writing any output. Cancellation cannot be undone.
func (m *Manager) CancelRun(id string) error {
	m.mu.Lock()
	r, ok := m.runs[id]
	m.mu.Unlock()
	if !ok {
		return ErrRunNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.status {
	case StatusPending:
		r.status = StatusCancelled
		now := time.Now()
		r.completedAt = &now
	case StatusRunning:
		if r.cancel != nil {
			r.cancel()
		}
	}
	return nil
}

// StartWorker runs queued analyses one at a time until ctx is cancelled.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("run worker started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("run worker stopping")
			return
		case id := <-m.queue:
			m.processRun(ctx, id)
		}
	}
}

func (m *Manager) processRun(ctx context.Context, id string) {
	m.mu.Lock()
	r, ok := m.runs[id]
	m.mu.Unlock()
	if !ok {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	if r.status != StatusPending {
		// Cancelled while still queued.
		r.mu.Unlock()
		return
	}
	r.status = StatusRunning
	now := time.Now()
	r.startedAt = &now
	r.cancel = cancel
	r.mu.Unlock()

	m.logger.Info("processing run", "id", id, "input", r.inputPath)

	report, err := m.execute(runCtx, r)

	r.mu.Lock()
	defer r.mu.Unlock()

	done := time.Now()
	r.completedAt = &done
	r.cancel = nil

	switch {
	case err == nil:
		r.status = StatusCompleted
		r.progress = 100
		r.outputPath = report.OutputPath
		r.outcomes = report.OutcomeCounts()
		m.logger.Info("run completed", "id", id, "output", report.OutputPath)
	case errors.Is(err, context.Canceled):
		r.status = StatusCancelled
		m.logger.Info("run cancelled", "id", id)
	default:
		r.status = StatusFailed
		r.errMsg = err.Error()
		m.logger.Error("run failed", "id", id, "error", err)
	}
}

func (m *Manager) execute(ctx context.Context, r *run) (*analyzer.RunReport, error) {
	jar, err := scraper.NewCookieJar(r.cookiesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load cookies: %w", err)
	}

	client := scraper.NewSessionClient(m.cfg.Scraper.RequestTimeout, jar)
	fetcher := scraper.NewFetcher(client, m.cfg.Scraper.UserAgents, m.logger)

	a := analyzer.New(m.cfg, fetcher, &runReporter{run: r}, m.logger)
	return a.Run(ctx, r.inputPath)
}

// runReporter feeds analyzer progress into the run state for polling clients.
type runReporter struct {
	run *run
}

func (rr *runReporter) Progress(percent int) {
	rr.run.mu.Lock()
	rr.run.progress = percent
	rr.run.mu.Unlock()
}

func (rr *runReporter) Status(string) {
	// Terminal status is derived by the manager from the run error.
}

func (rr *runReporter) Log(line string) {
	rr.run.mu.Lock()
	rr.run.logTail = append(rr.run.logTail, line)
	if len(rr.run.logTail) > logTailSize {
		rr.run.logTail = rr.run.logTail[len(rr.run.logTail)-logTailSize:]
	}
	rr.run.mu.Unlock()
}

// ChallengeRequired records the URL instead of opening a browser: in server
// mode the operator is remote, so the run exposes the link for them to open.
func (rr *runReporter) ChallengeRequired(url string) {
	rr.run.mu.Lock()
	rr.run.challengeURL = url
	rr.run.mu.Unlock()
}

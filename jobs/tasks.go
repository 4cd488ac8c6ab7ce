package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/leajer/leajer/internal/jobs"
	"github.com/leajer/leajer/internal/request"
	"github.com/leajer/leajer/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeExportRequests is the task type for CSV request exports.
	TaskTypeExportRequests = "requests:export"
	// TaskTypeSweepSessions is the task type for the stale-session sweep.
	TaskTypeSweepSessions = "sessions:sweep"
)

// ExportRequestsPayload describes one export run.
type ExportRequestsPayload struct {
	RequestedBy string `json:"requestedBy"`
	Reason      string `json:"reason"`
}

// NewExportRequestsTask constructs an Asynq task.
func NewExportRequestsTask(payload ExportRequestsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeExportRequests, data), nil
}

// Exporter fetches the full request list with a service credential and
// writes timestamped CSV snapshots to the export directory.
type Exporter struct {
	repo    request.Repository
	bearer  string
	dir     string
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
	now     func() time.Time
}

// NewExporter constructs an Exporter.
func NewExporter(repo request.Repository, bearer, dir string, logger *slog.Logger, metrics *jobmetrics.Metrics) *Exporter {
	return &Exporter{
		repo:    repo,
		bearer:  bearer,
		dir:     dir,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// HandleExportRequestsTask processes TaskTypeExportRequests tasks.
func (e *Exporter) HandleExportRequestsTask(ctx context.Context, t *asynq.Task) error {
	var payload ExportRequestsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := e.metrics.Track("requests_export")
	return tracker.End(e.run(ctx, payload))
}

func (e *Exporter) run(ctx context.Context, payload ExportRequestsPayload) error {
	requests, err := e.repo.List(ctx, e.bearer)
	if err != nil {
		return fmt.Errorf("jobs: list requests: %w", err)
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("jobs: export dir: %w", err)
	}
	name := fmt.Sprintf("retailer-requests-%s-%s.csv", e.now().UTC().Format("20060102-150405"), shortID())
	path := filepath.Join(e.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("jobs: create export file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := request.WriteCSV(f, request.Filter(requests, "")); err != nil {
		return fmt.Errorf("jobs: write export: %w", err)
	}
	if e.logger != nil {
		e.logger.Info("requests exported",
			slog.String("file", path),
			slog.Int("count", len(requests)),
			slog.String("requested_by", payload.RequestedBy))
	}
	return nil
}

// SweepSessionsPayload describes one sweep run.
type SweepSessionsPayload struct {
	Reason string `json:"reason"`
}

// NewSweepSessionsTask constructs an Asynq task.
func NewSweepSessionsTask(payload SweepSessionsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSweepSessions, data), nil
}

// Sweeper clears identity bindings from sessions that have gone too long
// without provider revalidation.
type Sweeper struct {
	sessions *shared.SessionManager
	maxIdle  time.Duration
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
}

// NewSweeper constructs a Sweeper.
func NewSweeper(sessions *shared.SessionManager, maxIdle time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *Sweeper {
	return &Sweeper{
		sessions: sessions,
		maxIdle:  maxIdle,
		logger:   logger,
		metrics:  metrics,
	}
}

// HandleSweepSessionsTask processes TaskTypeSweepSessions tasks.
func (s *Sweeper) HandleSweepSessionsTask(ctx context.Context, t *asynq.Task) error {
	var payload SweepSessionsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := s.metrics.Track("sessions_sweep")
	return tracker.End(s.run(ctx, payload))
}

func (s *Sweeper) run(ctx context.Context, payload SweepSessionsPayload) error {
	swept, err := s.sessions.SweepStale(ctx, s.maxIdle)
	if err != nil {
		return fmt.Errorf("jobs: sweep sessions: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("stale sessions swept",
			slog.Int("count", swept),
			slog.Duration("max_idle", s.maxIdle),
			slog.String("reason", payload.Reason))
	}
	return nil
}

func shortID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return "export"
	}
	return id.String()[:8]
}

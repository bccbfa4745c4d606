package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/jobs"
)

// OverdueSweepJob is the job type handled by OverdueService.HandleJob.
const OverdueSweepJob = "overdue_sweep"

type overdueMarker interface {
	MarkOverdue(ctx context.Context, today models.Date) (int64, error)
}

// OverdueService moves past-due PENDING enrollments to OVERDUE.
type OverdueService struct {
	repo     overdueMarker
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
	location *time.Location
}

// NewOverdueService constructs the sweep. now and location default to time.Now and UTC.
func NewOverdueService(repo overdueMarker, metrics *MetricsService, logger *zap.Logger, now func() time.Time, location *time.Location) *OverdueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &OverdueService{repo: repo, metrics: metrics, logger: logger, now: now, location: location}
}

// Sweep marks every PENDING enrollment due before today as OVERDUE and
// returns how many rows changed. PAID and OVERDUE rows are left alone.
func (s *OverdueService) Sweep(ctx context.Context) (int64, error) {
	today := models.NewDate(s.now().In(s.location))
	start := time.Now()
	marked, err := s.repo.MarkOverdue(ctx, today)
	s.metrics.ObserveDBQuery("mark_overdue", time.Since(start))
	if err != nil {
		return 0, appErrors.Internal(err, "failed to mark overdue enrollments")
	}
	s.metrics.AddOverdueMarked(marked)
	s.logger.Info("overdue sweep finished", zap.String("today", today.String()), zap.Int64("marked", marked))
	return marked, nil
}

// HandleJob runs Sweep for jobs taken from the queue.
func (s *OverdueService) HandleJob(ctx context.Context, job jobs.Job) error {
	if job.Type != OverdueSweepJob {
		s.logger.Warn("unexpected job type", zap.String("type", job.Type), zap.String("job_id", job.ID))
		return nil
	}
	_, err := s.Sweep(ctx)
	return err
}

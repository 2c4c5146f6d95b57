package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medibook/medibook-api/internal/dto"
	"github.com/medibook/medibook-api/internal/models"
	"github.com/medibook/medibook-api/internal/repository"
	appErrors "github.com/medibook/medibook-api/pkg/errors"
	"github.com/medibook/medibook-api/pkg/jobs"
)

type reportRepository interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
}

type reportAppointmentSource interface {
	ListAll(ctx context.Context) ([]models.Appointment, error)
}

type reportRenderer interface {
	RenderAppointments(format models.ReportFormat, appointments []models.Appointment) ([]byte, string, error)
}

type reportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type reportSigner interface {
	Generate(jobID, relPath string) (string, time.Time, error)
	Parse(token string) (jobID, relPath string, expiresAt time.Time, err error)
}

type reportQueue interface {
	Enqueue(job jobs.Job) error
}

// ReportService owns the asynchronous appointment export lifecycle: a job is
// queued, a worker renders and stores the document, and the finished file is
// served through short-lived signed URLs.
type ReportService struct {
	repo         reportRepository
	appointments reportAppointmentSource
	renderer     reportRenderer
	storage      reportStorage
	signer       reportSigner
	queue        reportQueue
	downloadPath string
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewReportService constructs a ReportService. downloadPath is the route the
// signed URL points at, e.g. "/api/v1/admin/reports/download".
func NewReportService(
	repo reportRepository,
	appointments reportAppointmentSource,
	renderer reportRenderer,
	storage reportStorage,
	signer reportSigner,
	downloadPath string,
	validate *validator.Validate,
	logger *zap.Logger,
) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReportService{
		repo:         repo,
		appointments: appointments,
		renderer:     renderer,
		storage:      storage,
		signer:       signer,
		downloadPath: downloadPath,
		validator:    validate,
		logger:       logger,
	}
}

// SetQueue attaches the worker queue. The queue's handler is this service's
// Process method, so wiring happens after construction.
func (s *ReportService) SetQueue(queue reportQueue) {
	s.queue = queue
}

// CreateJob persists a queued export job and hands it to the worker pool.
func (s *ReportService) CreateJob(ctx context.Context, userID string, req dto.ReportRequest) (*dto.ReportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "report exports are disabled")
	}

	job := &models.ReportJob{
		ID:        uuid.NewString(),
		Format:    req.Format,
		Status:    models.ReportStatusQueued,
		CreatedBy: userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "appointments_report"}); err != nil {
		s.markFailed(ctx, job.ID, fmt.Sprintf("enqueue failed: %v", err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue report job")
	}

	return &dto.ReportJobResponse{ID: job.ID, Status: job.Status}, nil
}

// Status reports job progress. Finished jobs include a signed download URL.
func (s *ReportService) Status(ctx context.Context, jobID string) (*dto.ReportStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}

	resp := &dto.ReportStatusResponse{
		ID:     job.ID,
		Status: job.Status,
		Error:  job.ErrorMessage,
	}

	if job.Status == models.ReportStatusFinished && job.FilePath != nil {
		token, _, err := s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download URL")
		}
		url := s.downloadPath + "?token=" + token
		resp.ResultURL = &url
	}

	return resp, nil
}

// ResolveDownload validates a signed token and opens the stored document.
// The caller is responsible for closing the returned file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*models.ReportJob, *os.File, error) {
	jobID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}

	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}

	if job.Status != models.ReportStatusFinished || job.FilePath == nil || *job.FilePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "report file is not available")
	}

	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open report file")
	}
	return job, file, nil
}

// Process is the queue handler. It renders the appointment export and stores
// the result, updating the job row as it goes.
func (s *ReportService) Process(ctx context.Context, queued jobs.Job) error {
	job, err := s.repo.GetByID(ctx, queued.ID)
	if err != nil {
		return fmt.Errorf("load report job %s: %w", queued.ID, err)
	}
	if job.Status == models.ReportStatusFinished {
		return nil
	}

	if err := s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{Status: statusPtr(models.ReportStatusProcessing)}); err != nil {
		return fmt.Errorf("mark report job processing: %w", err)
	}

	appointments, err := s.appointments.ListAll(ctx)
	if err != nil {
		s.markFailed(ctx, job.ID, fmt.Sprintf("list appointments: %v", err))
		return fmt.Errorf("list appointments for report %s: %w", job.ID, err)
	}

	data, ext, err := s.renderer.RenderAppointments(job.Format, appointments)
	if err != nil {
		s.markFailed(ctx, job.ID, fmt.Sprintf("render: %v", err))
		return fmt.Errorf("render report %s: %w", job.ID, err)
	}

	relPath := fmt.Sprintf("reports/%s.%s", job.ID, ext)
	if _, err := s.storage.Save(relPath, data); err != nil {
		s.markFailed(ctx, job.ID, fmt.Sprintf("store: %v", err))
		return fmt.Errorf("store report %s: %w", job.ID, err)
	}

	now := time.Now().UTC()
	if err := s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:     statusPtr(models.ReportStatusFinished),
		FilePath:   &relPath,
		FinishedAt: &now,
	}); err != nil {
		return fmt.Errorf("mark report job finished: %w", err)
	}

	s.logger.Info("report job finished", zap.String("job_id", job.ID), zap.String("format", string(job.Format)))
	return nil
}

func (s *ReportService) markFailed(ctx context.Context, jobID, message string) {
	now := time.Now().UTC()
	if err := s.repo.Update(ctx, jobID, repository.UpdateReportJobParams{
		Status:       statusPtr(models.ReportStatusFailed),
		ErrorMessage: &message,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Error("failed to mark report job failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

func statusPtr(status models.ReportStatus) *models.ReportStatus {
	return &status
}

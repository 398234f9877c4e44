package job

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/domain/jobModel"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/internal/metrics"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

// Service is the queue between the HTTP layer and the worker pool.
type Service struct {
	JobChannel        chan jobModel.Job
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore

	requestCount         atomic.Int64
	requestsPerNewWorker int64
	logger               *logger_i.Logger
}

func InitJobService(store jobModel.JobStore, cfg config.JobsConfig) *Service {
	return &Service{
		JobChannel:           make(chan jobModel.Job, cfg.BufferLimit),
		DispatcherChannel:    make(chan bool, cfg.MaxWorkers),
		JobStore:             store,
		requestsPerNewWorker: max(cfg.RequestsPerNewWorker, 1),
		logger:               logger_i.NewLogger("JobService"),
	}
}

// Submit stores job as queued and hands it to the workers. It blocks while the
// buffer is full, until ctx gives up.
func (s *Service) Submit(ctx context.Context, job jobModel.Job) error {
	log := s.logger.FromContext(ctx).With("jobId", job.Id)

	job.Status = jobModel.JobStatusQueued
	job.CurrentStep = jobModel.IngestInit
	if job.CreatedTime.IsZero() {
		job.CreatedTime = time.Now()
	}
	if err := s.JobStore.SaveJob(ctx, job); err != nil {
		log.Error("could not persist queued job", "error", err)
		return err
	}

	select {
	case s.JobChannel <- job:
	case <-ctx.Done():
		s.JobStore.DeleteJob(context.Background(), job.Id)
		return ragErrors.Capacity("job.submit", "job queue is full")
	}
	metrics.IncrementJobsInQueue()
	log.Info("job queued", "type", job.JobType)

	// ingestion is slow, so every ingest job asks for a worker; queries only
	// every few requests
	count := s.requestCount.Add(1)
	if count%s.requestsPerNewWorker == 0 || job.JobType == jobModel.JobTypeIngest || job.JobType == jobModel.JobTypeReindex {
		select {
		case s.DispatcherChannel <- true:
			metrics.StartDispatcherSignalCount()
		default:
			log.Debug("dispatcher busy, skipping worker signal", "requests", count)
		}
	}
	return nil
}

func (s *Service) Status(ctx context.Context, id string) (jobModel.Job, error) {
	job, ok := s.JobStore.GetJob(ctx, id)
	if !ok {
		return jobModel.Job{}, ragErrors.NotFound("job.status", "job %s not found", id)
	}
	return job, nil
}

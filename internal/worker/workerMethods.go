package worker

import (
	"context"
	"time"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/domain/jobModel"
	"github.com/akolanti/PdfRAG/internal/metrics"
)

func (p *Pool) executeJob(job jobModel.Job) {
	start := time.Now()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, p.jobTimeout())
	defer cancel()
	log := p.logger.FromContext(ctxTrace).With("jobId", job.Id)
	log.Debug("Processing job", "type", job.JobType)

	job.Status = jobModel.JobStatusRunning
	p.saveJobState(ctx, job)

	job = p.processor.ProcessJob(ctx, job)
	if job.EndTime.IsZero() {
		job.EndTime = time.Now()
	}

	// the job context may have expired; the final state must still land
	saveCtx, saveCancel := context.WithTimeout(ctxTrace, 5*time.Second)
	defer saveCancel()
	p.saveJobState(saveCtx, job)

	metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	log.Info("job finished", "status", job.Status, "elapsed", time.Since(start))
}

func (p *Pool) jobTimeout() time.Duration {
	if d := p.cfg.JobTimeout.Std(); d > 0 {
		return d
	}
	return 10 * time.Minute
}

// removeWorker releases the worker's slot unless tryRetire already did.
func (p *Pool) removeWorker(reason string, released bool) {
	if !released {
		p.workerCount.Add(-1)
	}
	metrics.DecrementActiveWorkerCount()
	p.logger.Info("Removed worker", "reason", reason, "workerCount", p.workerCount.Load())
	p.wg.Done()
}

func (p *Pool) saveJobState(ctx context.Context, job jobModel.Job) {
	if err := p.jobs.JobStore.SaveJob(ctx, job); err != nil {
		p.logger.FromContext(ctx).Error("Failed to update job state", "jobId", job.Id, "err", err)
	}
}

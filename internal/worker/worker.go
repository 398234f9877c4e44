package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/domain/jobModel"
	"github.com/akolanti/PdfRAG/internal/job"
	"github.com/akolanti/PdfRAG/internal/metrics"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

// JobProcessor is the part of the RAG service a worker needs.
type JobProcessor interface {
	ProcessJob(ctx context.Context, job jobModel.Job) jobModel.Job
}

// Pool starts with MinWorkers workers. The dispatcher adds one per signal up to
// MaxWorkers, and workers above the minimum retire when idle.
type Pool struct {
	jobs      *job.Service
	processor JobProcessor
	cfg       config.JobsConfig

	stop        chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
	workerCount atomic.Int64
	logger      *logger_i.Logger
}

func NewPool(jobs *job.Service, processor JobProcessor, cfg config.JobsConfig) *Pool {
	return &Pool{
		jobs:      jobs,
		processor: processor,
		cfg:       cfg,
		stop:      make(chan struct{}),
		logger:    logger_i.NewLogger("WorkerPool"),
	}
}

func (p *Pool) Start() {
	p.logger.Info("Initializing worker pool", "min", p.cfg.MinWorkers, "max", p.cfg.MaxWorkers)
	for i := int64(0); i < max(p.cfg.MinWorkers, 1); i++ {
		p.createWorker()
	}
	go p.dispatcher()
}

// Stop signals every worker and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *Pool) WorkerCount() int64 {
	return p.workerCount.Load()
}

func (p *Pool) dispatcher() {
	p.logger.Info("Dispatcher started")
	for {
		select {
		case <-p.jobs.DispatcherChannel:
			if p.workerCount.Load() < p.cfg.MaxWorkers {
				p.createWorker()
			}
		case <-p.stop:
			return
		}
	}
}

func (p *Pool) createWorker() {
	p.wg.Add(1)
	count := p.workerCount.Add(1)
	metrics.IncrementActiveWorkerCount()
	p.logger.Debug("Created new worker", "workerCount", count)
	go p.worker()
}

func (p *Pool) worker() {
	idle := p.cfg.IdleWorkerTimeout.Std()
	if idle <= 0 {
		idle = time.Minute
	}
	timer := time.NewTimer(idle)
	defer timer.Stop()

	for {
		select {
		case currentJob := <-p.jobs.JobChannel:
			metrics.DecrementJobsInQueue()
			p.executeJob(currentJob)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(idle)

		case <-p.stop:
			p.removeWorker("Stop worker signal received", false)
			return

		case <-timer.C:
			if p.tryRetire() {
				p.removeWorker("Idle worker timeout", true)
				return
			}
			timer.Reset(idle)
		}
	}
}

// tryRetire claims one slot above the minimum, so concurrent idle workers never
// drop the pool below it.
func (p *Pool) tryRetire() bool {
	for {
		current := p.workerCount.Load()
		if current <= max(p.cfg.MinWorkers, 1) {
			return false
		}
		if p.workerCount.CompareAndSwap(current, current-1) {
			return true
		}
	}
}

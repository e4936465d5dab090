package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"EdgeTpuDetServer/engine"
	iface "EdgeTpuDetServer/interface"
	"EdgeTpuDetServer/logger"

	"github.com/google/uuid"
	"github.com/skratchdot/open-golang/open"
	"go.uber.org/zap"
)

type jobPackage struct {
	requestID string
	itemID    string
	result    chan jobResult
}

type jobResult struct {
	res *Result
	err error
}

// Pipeline owns the shared interpreter and output path. A single worker
// drains the job queue, so at most one request touches either at a time.
type Pipeline struct {
	detector *engine.Detector
	labels   iface.Labels
	opts     Options
	// viewer opens the rendered image when Show is set
	viewer   func(path string) error

	jobQueue chan jobPackage
	mu       sync.RWMutex
	started  bool
	closed   bool
	done     chan struct{}
}

func New(detector *engine.Detector, labels iface.Labels, opts Options) *Pipeline {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	if opts.OutputPath == "" {
		opts.OutputPath = "result.jpg"
	}
	return &Pipeline{
		detector: detector,
		labels:   labels,
		opts:     opts,
		viewer:   open.Start,
		jobQueue: make(chan jobPackage, opts.QueueSize),
		done:     make(chan struct{}),
	}
}

func (p *Pipeline) Detector() *engine.Detector { return p.detector }

func (p *Pipeline) Labels() iface.Labels { return p.labels }

func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	go p.runWorker()
}

// Stop rejects new jobs, lets queued ones finish and waits for the worker.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobQueue)
	started := p.started
	p.mu.Unlock()

	if started {
		<-p.done
	}
}

// Run queues itemID for detection and waits for its result. If ctx ends
// first the caller gets ctx.Err(); the queued job still runs.
func (p *Pipeline) Run(ctx context.Context, itemID string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	job := jobPackage{
		requestID: uuid.NewString(),
		itemID:    itemID,
		result:    make(chan jobResult, 1),
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, ErrStopped
	}
	select {
	case p.jobQueue <- job:
	case <-ctx.Done():
		p.mu.RUnlock()
		return nil, ctx.Err()
	}
	p.mu.RUnlock()

	select {
	case r := <-job.result:
		return r.res, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pipeline) runWorker() {
	defer close(p.done)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	logger.Log().Info("detection worker started", zap.Int("queue", cap(p.jobQueue)))
	for job := range p.jobQueue {
		res, err := p.safeProcess(job)
		job.result <- jobResult{res: res, err: err}
	}
	logger.Log().Info("detection worker stopped")
}

func (p *Pipeline) safeProcess(job jobPackage) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Request(job.requestID, job.itemID).Error("worker panic recovered", zap.Any("panic", r))
			res, err = nil, fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()
	return p.process(job.requestID, job.itemID)
}

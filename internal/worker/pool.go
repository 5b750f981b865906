package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"studymate-bot/internal/models"
)

var ErrPoolStopped = errors.New("extraction pool stopped")

// Extractor is the blocking, CPU-bound text extraction the pool runs.
type Extractor interface {
	Extract(ctx context.Context, payload []byte, format models.DocumentFormat) (string, error)
}

type job struct {
	ctx     context.Context
	payload []byte
	format  models.DocumentFormat
	result  chan<- result
}

type result struct {
	text string
	err  error
}

// Pool runs extractions on a fixed set of goroutines so that PDF parsing and
// OCR never run on the goroutines serving chat updates.
type Pool struct {
	extractor   Extractor
	log         *zap.Logger
	workerCount int
	jobs        chan job
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewPool(extractor Extractor, workerCount int, log *zap.Logger) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{
		extractor:   extractor,
		log:         log.Named("worker"),
		workerCount: workerCount,
		jobs:        make(chan job),
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.log.Info("extraction workers started", zap.Int("workers", p.workerCount))
}

// Stop signals workers to exit and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			p.log.Debug("worker shutting down", zap.Int("worker", id))
			return
		case j := <-p.jobs:
			text, err := p.extractor.Extract(j.ctx, j.payload, j.format)
			if err != nil {
				p.log.Warn("extraction failed", zap.Int("worker", id), zap.Stringer("format", j.format), zap.Error(err))
			}
			j.result <- result{text: text, err: err}
		}
	}
}

// Extract queues the payload and waits for a worker to process it. It has
// the same contract as the wrapped extractor.
func (p *Pool) Extract(ctx context.Context, payload []byte, format models.DocumentFormat) (string, error) {
	res := make(chan result, 1)
	select {
	case p.jobs <- job{ctx: ctx, payload: payload, format: format, result: res}:
	case <-p.stopChan:
		return "", ErrPoolStopped
	case <-ctx.Done():
		return "", ctx.Err()
	}

	r := <-res
	return r.text, r.err
}

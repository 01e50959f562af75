package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"aistudio/logger"
	"aistudio/model"
	"aistudio/repository"
)

// ErrShutdown is recorded on jobs submitted after Shutdown.
var ErrShutdown = errors.New("dispatcher is shut down")

// Dispatcher creates jobs and runs their processors in the background. The
// caller gets the pending job back immediately; processing continues after
// the request that created it has finished.
type Dispatcher struct {
	store      repository.JobRepository
	processors *Processors
	timeout    time.Duration

	baseCtx context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher returns a dispatcher that bounds each job by timeout. A zero
// timeout lets jobs run until Shutdown.
func NewDispatcher(store repository.JobRepository, processors *Processors, timeout time.Duration) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		store:      store,
		processors: processors,
		timeout:    timeout,
		baseCtx:    ctx,
		cancel:     cancel,
	}
}

// CreateAndProcessStemSeparation stores a pending stem separation job and
// starts processing it.
func (d *Dispatcher) CreateAndProcessStemSeparation(ctx context.Context, input *model.StemSeparationJob) (*model.StemSeparationJob, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	job, err := d.store.CreateStemSeparationJob(ctx, input)
	if err != nil {
		return nil, err
	}
	snapshot := *job
	d.spawn(ctx, d.processors.stemRef(&snapshot), func(ctx context.Context) error {
		return d.processors.ProcessStemSeparation(ctx, &snapshot)
	})
	return job, nil
}

// CreateAndProcessVoiceCloning stores a pending voice cloning job and starts
// processing it.
func (d *Dispatcher) CreateAndProcessVoiceCloning(ctx context.Context, input *model.VoiceCloningJob) (*model.VoiceCloningJob, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	job, err := d.store.CreateVoiceCloningJob(ctx, input)
	if err != nil {
		return nil, err
	}
	snapshot := *job
	d.spawn(ctx, d.processors.voiceRef(&snapshot), func(ctx context.Context) error {
		return d.processors.ProcessVoiceCloning(ctx, &snapshot)
	})
	return job, nil
}

// CreateAndProcessMusicGeneration stores a pending music generation job and
// starts processing it.
func (d *Dispatcher) CreateAndProcessMusicGeneration(ctx context.Context, input *model.MusicGenerationJob) (*model.MusicGenerationJob, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	job, err := d.store.CreateMusicGenerationJob(ctx, input)
	if err != nil {
		return nil, err
	}
	snapshot := *job
	d.spawn(ctx, d.processors.musicRef(&snapshot), func(ctx context.Context) error {
		return d.processors.ProcessMusicGeneration(ctx, &snapshot)
	})
	return job, nil
}

// spawn announces the pending job and runs process on its own goroutine. The
// job context derives from the dispatcher, not from the request.
func (d *Dispatcher) spawn(ctx context.Context, ref jobRef, process func(context.Context) error) {
	d.processors.emit(ctx, ref, model.JobStatusPending, "")

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		if err := d.processors.fail(ctx, ref, ErrShutdown); err != nil {
			logger.Error("Failed to reject job", logger.ErrorField(err))
		}
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()

		jobCtx, cancel := d.jobContext()
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.Error("Job processor panicked",
					logger.String("jobKind", string(ref.kind)),
					logger.Int64("jobId", ref.id),
					logger.Any("panic", r),
					logger.String("stack", string(debug.Stack())))
				if err := d.processors.fail(jobCtx, ref, fmt.Errorf("internal error: %v", r)); err != nil {
					logger.Error("Failed to record job panic", logger.ErrorField(err))
				}
			}
		}()

		if err := process(jobCtx); err != nil {
			logger.Error("Job processing failed",
				logger.String("jobKind", string(ref.kind)),
				logger.Int64("jobId", ref.id),
				logger.ErrorField(err))
		}
	}()
}

func (d *Dispatcher) jobContext() (context.Context, context.CancelFunc) {
	if d.timeout > 0 {
		return context.WithTimeout(d.baseCtx, d.timeout)
	}
	return context.WithCancel(d.baseCtx)
}

// Wait blocks until every job started so far has reached a terminal state.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown stops accepting jobs, cancels the running ones and waits for them
// to record their failure, or for ctx to end.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for jobs: %w", ctx.Err())
	}
}

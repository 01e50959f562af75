package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"aistudio/config"
	"aistudio/core/agent"
	"aistudio/logger"
	"aistudio/model"
	"aistudio/repository"
	"aistudio/storage"
)

// Lengths of the silent placeholders written when no source audio is available.
const (
	stemPlaceholderMillis  = 3000
	voicePlaceholderMillis = 3000
	musicPlaceholderMillis = 5000
)

// failureRecordTimeout bounds the write that records a failure once the job
// context is already done.
const failureRecordTimeout = 10 * time.Second

// jobRef identifies a job and knows how to apply lifecycle-only updates to it.
type jobRef struct {
	kind      model.JobKind
	id        int64
	projectID int64
	apply     func(ctx context.Context, u model.JobUpdate) error
}

// workFunc performs the simulated task. On success it returns the function
// that records completion together with the kind-specific outputs.
type workFunc func(ctx context.Context) (complete func(ctx context.Context) error, err error)

// Processors runs the three job kinds against a job store. Work is simulated:
// after a configurable delay each processor writes placeholder audio and,
// when a provider is set, asks it for descriptive text.
type Processors struct {
	store     repository.JobRepository
	artifacts storage.ArtifactStore
	uploads   storage.Uploads
	provider  agent.Provider
	latency   config.Jobs
	notifier  Notifier
	now       func() time.Time
}

// NewProcessors wires processors. provider and notifier may be nil.
func NewProcessors(store repository.JobRepository, artifacts storage.ArtifactStore, uploads storage.Uploads, provider agent.Provider, latency config.Jobs, notifier Notifier) *Processors {
	return &Processors{
		store:     store,
		artifacts: artifacts,
		uploads:   uploads,
		provider:  provider,
		latency:   latency,
		notifier:  notifier,
		now:       time.Now,
	}
}

// ========== Stem separation ==========

func (p *Processors) stemRef(job *model.StemSeparationJob) jobRef {
	return jobRef{
		kind:      model.JobKindStemSeparation,
		id:        job.ID,
		projectID: job.ProjectID,
		apply: func(ctx context.Context, u model.JobUpdate) error {
			_, err := p.store.UpdateStemSeparationJob(ctx, job.ID, model.StemSeparationJobPatch{JobUpdate: u})
			return err
		},
	}
}

// ProcessStemSeparation writes one placeholder file per stem.
func (p *Processors) ProcessStemSeparation(ctx context.Context, job *model.StemSeparationJob) error {
	return p.run(ctx, p.stemRef(job), func(ctx context.Context) (func(context.Context) error, error) {
		var analysis *string
		if p.provider != nil {
			text, err := agent.DescribeStems(ctx, p.provider, job.OriginalPath, model.StemNames)
			if err != nil {
				return nil, err
			}
			analysis = &text
		}

		outputs := make(model.StemPaths, len(model.StemNames))
		for _, stem := range model.StemNames {
			name := fmt.Sprintf("%s-%d-%s.wav", model.JobKindStemSeparation, job.ID, stem)
			out, err := p.writePlaceholder(ctx, name, job.OriginalPath, stemPlaceholderMillis)
			if err != nil {
				return nil, err
			}
			outputs[stem] = out
		}

		return func(ctx context.Context) error {
			completed := model.JobStatusCompleted
			_, err := p.store.UpdateStemSeparationJob(ctx, job.ID, model.StemSeparationJobPatch{
				JobUpdate:   model.JobUpdate{Status: &completed, Analysis: analysis},
				OutputPaths: outputs,
			})
			return err
		}, nil
	})
}

// ========== Voice cloning ==========

func (p *Processors) voiceRef(job *model.VoiceCloningJob) jobRef {
	return jobRef{
		kind:      model.JobKindVoiceCloning,
		id:        job.ID,
		projectID: job.ProjectID,
		apply: func(ctx context.Context, u model.JobUpdate) error {
			_, err := p.store.UpdateVoiceCloningJob(ctx, job.ID, model.VoiceCloningJobPatch{JobUpdate: u})
			return err
		},
	}
}

// ProcessVoiceCloning writes a placeholder rendering of the text. With a
// provider the voice analysis is stored as JSON.
func (p *Processors) ProcessVoiceCloning(ctx context.Context, job *model.VoiceCloningJob) error {
	return p.run(ctx, p.voiceRef(job), func(ctx context.Context) (func(context.Context) error, error) {
		var analysis *string
		if p.provider != nil {
			result, err := agent.AnalyzeVoice(ctx, p.provider, job.SamplePath, job.Text)
			if err != nil {
				return nil, err
			}
			data, err := json.Marshal(result)
			if err != nil {
				return nil, fmt.Errorf("failed to encode voice analysis: %w", err)
			}
			text := string(data)
			analysis = &text
		}

		name := fmt.Sprintf("%s-%d.wav", model.JobKindVoiceCloning, job.ID)
		out, err := p.writePlaceholder(ctx, name, job.SamplePath, voicePlaceholderMillis)
		if err != nil {
			return nil, err
		}

		return func(ctx context.Context) error {
			completed := model.JobStatusCompleted
			_, err := p.store.UpdateVoiceCloningJob(ctx, job.ID, model.VoiceCloningJobPatch{
				JobUpdate:  model.JobUpdate{Status: &completed, Analysis: analysis},
				OutputPath: &out,
			})
			return err
		}, nil
	})
}

// ========== Music generation ==========

func (p *Processors) musicRef(job *model.MusicGenerationJob) jobRef {
	return jobRef{
		kind:      model.JobKindMusicGeneration,
		id:        job.ID,
		projectID: job.ProjectID,
		apply: func(ctx context.Context, u model.JobUpdate) error {
			_, err := p.store.UpdateMusicGenerationJob(ctx, job.ID, model.MusicGenerationJobPatch{JobUpdate: u})
			return err
		},
	}
}

// ProcessMusicGeneration writes a silent placeholder track for the prompt.
func (p *Processors) ProcessMusicGeneration(ctx context.Context, job *model.MusicGenerationJob) error {
	return p.run(ctx, p.musicRef(job), func(ctx context.Context) (func(context.Context) error, error) {
		var analysis *string
		if p.provider != nil {
			text, err := agent.DescribeMusic(ctx, p.provider, job.Prompt)
			if err != nil {
				return nil, err
			}
			analysis = &text
		}

		name := fmt.Sprintf("%s-%d.wav", model.JobKindMusicGeneration, job.ID)
		out, err := p.writePlaceholder(ctx, name, "", musicPlaceholderMillis)
		if err != nil {
			return nil, err
		}

		return func(ctx context.Context) error {
			completed := model.JobStatusCompleted
			_, err := p.store.UpdateMusicGenerationJob(ctx, job.ID, model.MusicGenerationJobPatch{
				JobUpdate:  model.JobUpdate{Status: &completed, Analysis: analysis},
				OutputPath: &out,
			})
			return err
		}, nil
	})
}

// ========== Lifecycle ==========

// run drives a job through processing to a terminal state. Work failures are
// recorded on the job and not returned; the returned error only reports that
// the job record itself could not be updated.
func (p *Processors) run(ctx context.Context, ref jobRef, work workFunc) error {
	processing := model.JobStatusProcessing
	if err := ref.apply(ctx, model.JobUpdate{Status: &processing}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to start %s job %d: %w", ref.kind, ref.id, err)
		}
		return p.fail(ctx, ref, fmt.Errorf("failed to start: %w", err))
	}
	p.emit(ctx, ref, processing, "")

	if err := sleep(ctx, p.latency.Latency(string(ref.kind))); err != nil {
		return p.fail(ctx, ref, err)
	}
	complete, err := work(ctx)
	if err != nil {
		return p.fail(ctx, ref, err)
	}
	if err := complete(ctx); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to complete %s job %d: %w", ref.kind, ref.id, err)
		}
		return p.fail(ctx, ref, fmt.Errorf("failed to record completion: %w", err))
	}
	p.emit(ctx, ref, model.JobStatusCompleted, "")
	return nil
}

// fail records cause on the job. The write uses a fresh deadline so that
// cancelled or timed out jobs are still marked failed.
func (p *Processors) fail(ctx context.Context, ref jobRef, cause error) error {
	msg := failureMessage(cause)
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureRecordTimeout)
	defer cancel()

	failed := model.JobStatusFailed
	if err := ref.apply(recordCtx, model.JobUpdate{Status: &failed, Error: &msg}); err != nil {
		return fmt.Errorf("failed to record failure of %s job %d (%s): %w", ref.kind, ref.id, msg, err)
	}
	logger.Warn("Job failed",
		logger.String("jobKind", string(ref.kind)),
		logger.Int64("jobId", ref.id),
		logger.Int64("projectId", ref.projectID),
		logger.String("error", msg))
	p.emit(recordCtx, ref, failed, msg)
	return nil
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "job timed out"
	case errors.Is(err, context.Canceled):
		return "job cancelled"
	}
	return err.Error()
}

func (p *Processors) emit(ctx context.Context, ref jobRef, status model.JobStatus, errMsg string) {
	logger.Info("Job status changed",
		logger.String("jobKind", string(ref.kind)),
		logger.Int64("jobId", ref.id),
		logger.Int64("projectId", ref.projectID),
		logger.String("status", string(status)))
	if p.notifier == nil {
		return
	}
	p.notifier.Notify(ctx, Event{
		Kind:      ref.kind,
		JobID:     ref.id,
		ProjectID: ref.projectID,
		Status:    status,
		Error:     errMsg,
		Time:      p.now(),
	})
}

// writePlaceholder stores a copy of source when it is an uploaded file, or a
// silent WAV of the given length otherwise, and returns the artifact path.
func (p *Processors) writePlaceholder(ctx context.Context, name, source string, silentMillis int) (string, error) {
	if local, ok := p.uploads.LocalPath(source); ok {
		f, err := os.Open(local)
		if err == nil {
			defer f.Close()
			info, err := f.Stat()
			if err == nil && info.Mode().IsRegular() {
				return p.artifacts.Put(ctx, name, f, info.Size())
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to open source audio: %w", err)
		}
	}
	data := storage.SilentWAV(silentMillis)
	return p.artifacts.Put(ctx, name, bytes.NewReader(data), int64(len(data)))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

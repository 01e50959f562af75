package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"aistudio/config"
	"aistudio/core/agent"
	"aistudio/model"
	"aistudio/repository"
	"aistudio/storage"
	"aistudio/testsupport"
)

type stubProvider struct {
	reply string
	err   error
	panic bool
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Complete(ctx context.Context, req agent.Request) (string, error) {
	if p.panic {
		panic("boom")
	}
	return p.reply, p.err
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(ctx context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) statuses(kind model.JobKind, id int64) []model.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.JobStatus
	for _, e := range r.events {
		if e.Kind == kind && e.JobID == id {
			out = append(out, e.Status)
		}
	}
	return out
}

type fixture struct {
	cfg        *config.Config
	store      repository.Store
	uploads    storage.Uploads
	events     *recorder
	dispatcher *Dispatcher
	projectID  int64
}

func newFixture(t *testing.T, store repository.Store, provider agent.Provider, timeout time.Duration, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	artifacts, err := storage.NewLocalStore(cfg.Paths.OutputDir, path.Join(cfg.Paths.PublicPrefix, "outputs"))
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	uploads := storage.Uploads{Dir: cfg.Paths.UploadDir, Prefix: cfg.Paths.PublicPrefix}
	events := &recorder{}
	processors := NewProcessors(store, artifacts, uploads, provider, cfg.Jobs, Notifiers{events})
	dispatcher := NewDispatcher(store, processors, timeout)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = dispatcher.Shutdown(ctx)
	})

	user := testsupport.NewUser(t, store, "producer")
	project := testsupport.NewProject(t, store, user.ID, "Demo")
	return &fixture{
		cfg:        cfg,
		store:      store,
		uploads:    uploads,
		events:     events,
		dispatcher: dispatcher,
		projectID:  project.ID,
	}
}

func TestStemSeparationCompletes(t *testing.T) {
	for name, store := range testsupport.Stores(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, store, nil, time.Minute)
			ctx := context.Background()

			job, err := f.dispatcher.CreateAndProcessStemSeparation(ctx, &model.StemSeparationJob{
				ProjectID:    f.projectID,
				OriginalPath: "/x.wav",
			})
			if err != nil {
				t.Fatalf("CreateAndProcessStemSeparation: %v", err)
			}
			if job.Status != model.JobStatusPending || job.OutputPaths != nil {
				t.Fatalf("expected a pending job without outputs, got %+v", job)
			}

			f.dispatcher.Wait()

			got, err := f.store.GetStemSeparationJob(ctx, job.ID)
			if err != nil || got == nil {
				t.Fatalf("GetStemSeparationJob: %v %v", got, err)
			}
			if got.Status != model.JobStatusCompleted || got.Error != nil {
				t.Fatalf("expected completed job, got %+v", got)
			}
			if len(got.OutputPaths) != 4 {
				t.Fatalf("expected 4 stems, got %v", got.OutputPaths)
			}
			for _, stem := range model.StemNames {
				out := got.OutputPaths[stem]
				if out == "" {
					t.Fatalf("missing %s stem in %v", stem, got.OutputPaths)
				}
				if _, err := os.Stat(filepath.Join(f.cfg.Paths.OutputDir, path.Base(out))); err != nil {
					t.Fatalf("stem file for %s: %v", stem, err)
				}
			}

			want := []model.JobStatus{model.JobStatusPending, model.JobStatusProcessing, model.JobStatusCompleted}
			gotStatuses := f.events.statuses(model.JobKindStemSeparation, job.ID)
			if len(gotStatuses) != len(want) {
				t.Fatalf("expected events %v, got %v", want, gotStatuses)
			}
			for i := range want {
				if gotStatuses[i] != want[i] {
					t.Fatalf("expected events %v, got %v", want, gotStatuses)
				}
			}
		})
	}
}

func TestStemSeparationCopiesUploadedSource(t *testing.T) {
	f := newFixture(t, repository.NewMemoryStore(), nil, time.Minute)
	ctx := context.Background()

	source, err := f.uploads.Save(strings.NewReader("RIFF-source"), "mix.wav")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	job, err := f.dispatcher.CreateAndProcessStemSeparation(ctx, &model.StemSeparationJob{ProjectID: f.projectID, OriginalPath: source})
	if err != nil {
		t.Fatalf("CreateAndProcessStemSeparation: %v", err)
	}
	f.dispatcher.Wait()

	got, _ := f.store.GetStemSeparationJob(ctx, job.ID)
	data, err := os.ReadFile(filepath.Join(f.cfg.Paths.OutputDir, path.Base(got.OutputPaths["drums"])))
	if err != nil {
		t.Fatalf("read stem: %v", err)
	}
	if string(data) != "RIFF-source" {
		t.Fatalf("expected a copy of the source, got %q", data)
	}
}

func TestProviderErrorFailsJob(t *testing.T) {
	for name, store := range testsupport.Stores(t) {
		t.Run(name, func(t *testing.T) {
			provider := &stubProvider{err: errors.New("upstream unavailable")}
			f := newFixture(t, store, provider, time.Minute)
			ctx := context.Background()

			job, err := f.dispatcher.CreateAndProcessStemSeparation(ctx, &model.StemSeparationJob{ProjectID: f.projectID, OriginalPath: "/x.wav"})
			if err != nil {
				t.Fatalf("CreateAndProcessStemSeparation: %v", err)
			}
			f.dispatcher.Wait()

			got, _ := f.store.GetStemSeparationJob(ctx, job.ID)
			if got.Status != model.JobStatusFailed {
				t.Fatalf("expected failed job, got %s", got.Status)
			}
			if got.Error == nil || !strings.Contains(*got.Error, "upstream unavailable") {
				t.Fatalf("expected provider error to be recorded, got %v", got.Error)
			}
			if got.OutputPaths != nil || got.Analysis != nil {
				t.Fatalf("failed job kept outputs: %+v", got)
			}
			entries, err := os.ReadDir(f.cfg.Paths.OutputDir)
			if err != nil && !os.IsNotExist(err) {
				t.Fatalf("ReadDir: %v", err)
			}
			if len(entries) != 0 {
				t.Fatalf("failed job left %d artifacts behind", len(entries))
			}
		})
	}
}

func TestVoiceCloningStoresAnalysis(t *testing.T) {
	provider := &stubProvider{reply: `Here you go: {"gender":"female","ageRange":"20-30","tone":"warm","accent":"neutral","characteristics":["breathy"]}`}
	f := newFixture(t, repository.NewMemoryStore(), provider, time.Minute)
	ctx := context.Background()

	job, err := f.dispatcher.CreateAndProcessVoiceCloning(ctx, &model.VoiceCloningJob{
		ProjectID:  f.projectID,
		SamplePath: "/uploads/sample.wav",
		Text:       "hello world",
	})
	if err != nil {
		t.Fatalf("CreateAndProcessVoiceCloning: %v", err)
	}
	f.dispatcher.Wait()

	got, _ := f.store.GetVoiceCloningJob(ctx, job.ID)
	if got.Status != model.JobStatusCompleted || got.OutputPath == nil || *got.OutputPath == "" {
		t.Fatalf("expected completed job with output, got %+v", got)
	}
	if got.Analysis == nil {
		t.Fatal("expected analysis to be stored")
	}
	var analysis agent.VoiceAnalysis
	if err := json.Unmarshal([]byte(*got.Analysis), &analysis); err != nil {
		t.Fatalf("analysis is not JSON: %v", err)
	}
	if analysis.Gender != "female" || len(analysis.Characteristics) != 1 {
		t.Fatalf("unexpected analysis %+v", analysis)
	}
}

func TestMusicGenerationStoresDescription(t *testing.T) {
	for name, store := range testsupport.Stores(t) {
		t.Run(name, func(t *testing.T) {
			provider := &stubProvider{reply: "  Upbeat synthwave at 118 BPM  "}
			f := newFixture(t, store, provider, time.Minute)
			ctx := context.Background()

			job, err := f.dispatcher.CreateAndProcessMusicGeneration(ctx, &model.MusicGenerationJob{ProjectID: f.projectID, Prompt: "retro drive"})
			if err != nil {
				t.Fatalf("CreateAndProcessMusicGeneration: %v", err)
			}
			f.dispatcher.Wait()

			got, _ := f.store.GetMusicGenerationJob(ctx, job.ID)
			if got.Status != model.JobStatusCompleted || got.OutputPath == nil {
				t.Fatalf("expected completed job with output, got %+v", got)
			}
			if got.Analysis == nil || *got.Analysis != "Upbeat synthwave at 118 BPM" {
				t.Fatalf("unexpected analysis %v", got.Analysis)
			}
			if !strings.HasPrefix(*got.OutputPath, "/uploads/outputs/music-generation-") {
				t.Fatalf("unexpected output path %s", *got.OutputPath)
			}
		})
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t, repository.NewMemoryStore(), nil, time.Minute)
	ctx := context.Background()

	_, err := f.dispatcher.CreateAndProcessMusicGeneration(ctx, &model.MusicGenerationJob{ProjectID: f.projectID})
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	_, err = f.dispatcher.CreateAndProcessVoiceCloning(ctx, &model.VoiceCloningJob{ProjectID: 999, SamplePath: "/s.wav", Text: "hi"})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found for missing project, got %v", err)
	}

	jobs, err := f.store.GetMusicGenerationJobsByProjectID(ctx, f.projectID)
	if err != nil || len(jobs) != 0 {
		t.Fatalf("expected no jobs, got %v %v", jobs, err)
	}
}

func TestJobTimeoutFailsJob(t *testing.T) {
	f := newFixture(t, repository.NewMemoryStore(), nil, 50*time.Millisecond, testsupport.WithLatency(5000))
	ctx := context.Background()

	job, err := f.dispatcher.CreateAndProcessMusicGeneration(ctx, &model.MusicGenerationJob{ProjectID: f.projectID, Prompt: "slow"})
	if err != nil {
		t.Fatalf("CreateAndProcessMusicGeneration: %v", err)
	}
	f.dispatcher.Wait()

	got, _ := f.store.GetMusicGenerationJob(ctx, job.ID)
	if got.Status != model.JobStatusFailed || got.Error == nil || *got.Error != "job timed out" {
		t.Fatalf("expected timed out job, got %+v", got)
	}
	if got.OutputPath != nil {
		t.Fatalf("timed out job has output %s", *got.OutputPath)
	}
}

func TestShutdownCancelsRunningJobs(t *testing.T) {
	f := newFixture(t, repository.NewMemoryStore(), nil, 0, testsupport.WithLatency(60000))
	ctx := context.Background()

	job, err := f.dispatcher.CreateAndProcessStemSeparation(ctx, &model.StemSeparationJob{ProjectID: f.projectID, OriginalPath: "/x.wav"})
	if err != nil {
		t.Fatalf("CreateAndProcessStemSeparation: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := f.dispatcher.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	got, _ := f.store.GetStemSeparationJob(ctx, job.ID)
	if got.Status != model.JobStatusFailed || got.Error == nil || *got.Error != "job cancelled" {
		t.Fatalf("expected cancelled job, got %+v", got)
	}

	late, err := f.dispatcher.CreateAndProcessStemSeparation(ctx, &model.StemSeparationJob{ProjectID: f.projectID, OriginalPath: "/y.wav"})
	if err != nil {
		t.Fatalf("CreateAndProcessStemSeparation after shutdown: %v", err)
	}
	got, _ = f.store.GetStemSeparationJob(ctx, late.ID)
	if got.Status != model.JobStatusFailed || got.Error == nil || *got.Error != ErrShutdown.Error() {
		t.Fatalf("expected rejected job, got %+v", got)
	}
}

func TestProcessorPanicFailsJob(t *testing.T) {
	f := newFixture(t, repository.NewMemoryStore(), &stubProvider{panic: true}, time.Minute)
	ctx := context.Background()

	job, err := f.dispatcher.CreateAndProcessMusicGeneration(ctx, &model.MusicGenerationJob{ProjectID: f.projectID, Prompt: "boom"})
	if err != nil {
		t.Fatalf("CreateAndProcessMusicGeneration: %v", err)
	}
	f.dispatcher.Wait()

	got, _ := f.store.GetMusicGenerationJob(ctx, job.ID)
	if got.Status != model.JobStatusFailed || got.Error == nil || !strings.Contains(*got.Error, "boom") {
		t.Fatalf("expected failed job after panic, got %+v", got)
	}
}

func TestNotifiersSkipNil(t *testing.T) {
	events := &recorder{}
	var calls int
	n := Notifiers{nil, events, NotifierFunc(func(ctx context.Context, e Event) { calls++ })}
	n.Notify(context.Background(), Event{Kind: model.JobKindVoiceCloning, JobID: 1, Status: model.JobStatusPending})
	if len(events.statuses(model.JobKindVoiceCloning, 1)) != 1 || calls != 1 {
		t.Fatalf("expected both notifiers to run, got %d and %d", len(events.statuses(model.JobKindVoiceCloning, 1)), calls)
	}
}

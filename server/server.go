package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"aistudio/cache"
	"aistudio/config"
	"aistudio/core/agent"
	"aistudio/core/jobs"
	"aistudio/db"
	"aistudio/logger"
	"aistudio/repository"
	"aistudio/storage"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

// Server owns every long-lived component of the studio backend.
type Server struct {
	cfg        *config.Config
	store      repository.Store
	dispatcher *jobs.Dispatcher
	hub        *JobHub
	redis      *redis.Client
	handler    http.Handler
}

// New selects the store, seeds the demo user and wires the job pipeline and
// router. Nothing listens until Run.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	store, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Entity store ready", logger.String("backend", store.Backend()))

	if _, err := repository.SeedDemoUser(ctx, store, cfg.Demo.Username, cfg.Demo.Password); err != nil {
		store.Close()
		return nil, err
	}

	provider, err := agent.NewProvider(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	if provider != nil {
		logger.Info("AI provider configured", logger.String("provider", provider.Name()))
	}

	artifacts, err := newArtifactStore(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	s := &Server{cfg: cfg, store: store, hub: NewJobHub()}
	notifiers := jobs.Notifiers{s.hub}
	if cfg.Redis.Enabled {
		client, err := db.ConnectRedis(ctx, cfg)
		if err != nil {
			logger.Warn("Redis unavailable, job events stay local", logger.ErrorField(err))
		} else {
			s.redis = client
			notifiers = append(notifiers, cache.NewJobEvents(client, cfg.Redis.Channel, cfg.StatusTTL()))
		}
	}

	uploads := storage.Uploads{Dir: cfg.Paths.UploadDir, Prefix: cfg.Paths.PublicPrefix}
	processors := jobs.NewProcessors(store, artifacts, uploads, provider, cfg.Jobs, notifiers)
	s.dispatcher = jobs.NewDispatcher(store, processors, cfg.JobTimeout())

	api := NewAPIHandler(store, s.dispatcher, uploads, cfg)
	s.handler = s.newRouter(api)
	go s.hub.Run()
	return s, nil
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Store returns the selected entity store.
func (s *Server) Store() repository.Store {
	return s.store
}

// Run serves HTTP until ctx is done, then shuts everything down.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logger.String("addr", s.cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", logger.ErrorField(err))
	}
	if err := s.Close(shutdownCtx); err != nil {
		logger.Warn("Shutdown incomplete", logger.ErrorField(err))
	}
	logger.Info("Server stopped")

	if serveErr != nil {
		return fmt.Errorf("failed to serve: %w", serveErr)
	}
	return nil
}

// Close cancels running jobs, waits for them to record their outcome and
// releases the store and redis connections.
func (s *Server) Close(ctx context.Context) error {
	err := s.dispatcher.Shutdown(ctx)
	s.hub.Stop()
	if s.redis != nil {
		s.redis.Close()
	}
	if cerr := s.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Start runs the server until SIGINT or SIGTERM.
func Start(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

func newArtifactStore(ctx context.Context, cfg *config.Config) (storage.ArtifactStore, error) {
	if cfg.Minio.Enabled {
		store, err := storage.NewMinioStore(ctx, cfg.Minio)
		if err != nil {
			return nil, err
		}
		logger.Info("Job artifacts stored in MinIO", logger.String("bucket", cfg.Minio.Bucket))
		return store, nil
	}
	return storage.NewLocalStore(cfg.Paths.OutputDir, outputPrefix(cfg.Paths))
}

// outputPrefix is the URL path the output directory is served at: below the
// upload prefix when it lives inside the upload directory, /outputs otherwise.
func outputPrefix(p config.Paths) string {
	rel, err := filepath.Rel(p.UploadDir, p.OutputDir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "/outputs"
	}
	return path.Join(p.PublicPrefix, filepath.ToSlash(rel))
}

// newRouter returns the API router wrapped in CORS handling. The wrapper sits
// outside the router so preflight requests reach it for every path.
func (s *Server) newRouter(api *APIHandler) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/api/health", api.HealthHandler).Methods(http.MethodGet)

	router.HandleFunc("/api/projects", api.GetProjectsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/projects", api.CreateProjectHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/projects/{id}", api.GetProjectHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/projects/{id}", api.UpdateProjectHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/projects/{id}", api.DeleteProjectHandler).Methods(http.MethodDelete)

	router.HandleFunc("/api/tracks", api.GetTracksHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks", api.CreateTrackHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{id}", api.GetTrackHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}", api.UpdateTrackHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/tracks/{id}", api.DeleteTrackHandler).Methods(http.MethodDelete)

	router.HandleFunc("/api/clips", api.GetAudioClipsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/clips", api.CreateAudioClipHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/clips/{id}", api.GetAudioClipHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/clips/{id}", api.UpdateAudioClipHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/clips/{id}", api.DeleteAudioClipHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/clips/{id}/mood-tags", api.GetAudioClipMoodTagsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/clips/{id}/mood-tags", api.AddAudioClipMoodTagHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/clips/{id}/mood-tags/{tagId}", api.UpdateAudioClipMoodTagHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/clips/{id}/mood-tags/{tagId}", api.RemoveAudioClipMoodTagHandler).Methods(http.MethodDelete)

	router.HandleFunc("/api/effects", api.GetEffectsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/effects", api.CreateEffectHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/effects/{id}", api.GetEffectHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/effects/{id}", api.UpdateEffectHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/effects/{id}", api.DeleteEffectHandler).Methods(http.MethodDelete)

	router.HandleFunc("/api/mood-tags", api.GetMoodTagsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/mood-tags", api.CreateMoodTagHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/mood-tags/{id}", api.GetMoodTagHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/mood-tags/{id}", api.UpdateMoodTagHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/mood-tags/{id}", api.DeleteMoodTagHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/mood-tags/{id}/clips", api.GetMoodTagClipsHandler).Methods(http.MethodGet)

	router.HandleFunc("/api/stem-separation", api.GetStemSeparationsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/stem-separation", api.CreateStemSeparationHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/stem-separation/{id}", api.GetStemSeparationHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/voice-cloning", api.GetVoiceCloningsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/voice-cloning", api.CreateVoiceCloningHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/voice-cloning/{id}", api.GetVoiceCloningHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/music-generation", api.GetMusicGenerationsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/music-generation", api.CreateMusicGenerationHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/music-generation/{id}", api.GetMusicGenerationHandler).Methods(http.MethodGet)

	router.Handle("/api/jobs/events", s.hub).Methods(http.MethodGet)

	paths := s.cfg.Paths
	uploadsPrefix := strings.TrimSuffix(paths.PublicPrefix, "/") + "/"
	router.PathPrefix(uploadsPrefix).Handler(NewStaticHandler(paths.UploadDir, uploadsPrefix, "public, max-age=3600"))
	if prefix := outputPrefix(paths); !strings.HasPrefix(prefix, uploadsPrefix) {
		router.PathPrefix(prefix + "/").Handler(NewStaticHandler(paths.OutputDir, prefix+"/", "no-cache"))
	}

	if dir := s.cfg.Server.WebAppDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			router.PathPrefix("/").Handler(http.FileServer(http.Dir(dir)))
		}
	}
	return corsMiddleware(router)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

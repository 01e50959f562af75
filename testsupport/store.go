package testsupport

import (
	"context"
	"testing"

	"aistudio/config"
	"aistudio/db"
	"aistudio/model"
	"aistudio/repository"
)

// MustOpenGormStore opens a migrated SQLite-backed store and registers cleanup.
func MustOpenGormStore(t testing.TB, cfg *config.Config) *repository.GormStore {
	t.Helper()

	gdb, err := db.Open(cfg.Database)
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("db.Migrate: %v", err)
	}
	store := repository.NewGormStore(gdb)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Stores returns one fresh instance of every backend, keyed by backend name.
func Stores(t testing.TB) map[string]repository.Store {
	t.Helper()

	cfg := NewConfig(t)
	return map[string]repository.Store{
		config.BackendMemory:   repository.NewMemoryStore(),
		config.BackendDatabase: MustOpenGormStore(t, cfg),
	}
}

// NewUser creates a user for tests.
func NewUser(t testing.TB, store repository.Store, username string) *model.User {
	t.Helper()

	user, err := store.CreateUser(context.Background(), &model.User{Username: username, PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

// NewProject creates a project owned by userID.
func NewProject(t testing.TB, store repository.Store, userID int64, name string) *model.Project {
	t.Helper()

	project, err := store.CreateProject(context.Background(), &model.Project{Name: name, UserID: userID})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return project
}

// NewTrack creates a track in projectID.
func NewTrack(t testing.TB, store repository.Store, projectID int64, name string) *model.Track {
	t.Helper()

	track, err := store.CreateTrack(context.Background(), &model.Track{
		Name:      name,
		Type:      model.TrackTypeVocals,
		ProjectID: projectID,
		Color:     model.DefaultTrackColor,
		Volume:    model.DefaultTrackVolume,
	})
	if err != nil {
		t.Fatalf("CreateTrack: %v", err)
	}
	return track
}

// NewAudioClip creates a clip on trackID.
func NewAudioClip(t testing.TB, store repository.Store, trackID int64, startTime, duration int) *model.AudioClip {
	t.Helper()

	clip, err := store.CreateAudioClip(context.Background(), &model.AudioClip{
		Name:      "clip",
		TrackID:   trackID,
		Path:      "/uploads/clip.wav",
		StartTime: startTime,
		Duration:  duration,
	})
	if err != nil {
		t.Fatalf("CreateAudioClip: %v", err)
	}
	return clip
}

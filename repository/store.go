// Package repository is the single source of truth for studio entities.
//
// Store is implemented twice: MemoryStore keeps everything in process maps and
// GormStore persists to MySQL or SQLite through GORM. Both backends assign
// monotonically increasing ids per entity type, return (nil, nil) from Get*
// for a missing id, fail Update* with a NotFoundError, and cascade deletes from
// parents to children (project -> tracks/jobs, track -> clips/effects,
// clip or mood tag -> clip tag links). Callers never branch on the backend.
package repository

import (
	"context"

	"aistudio/model"
)

// UserRepository defines the user operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// ProjectRepository defines the project operations.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project *model.Project) (*model.Project, error)
	GetProject(ctx context.Context, id int64) (*model.Project, error)
	GetProjectsByUserID(ctx context.Context, userID int64) ([]*model.Project, error)
	UpdateProject(ctx context.Context, id int64, patch model.ProjectPatch) (*model.Project, error)
	DeleteProject(ctx context.Context, id int64) (bool, error)
}

// TrackRepository defines the track operations.
type TrackRepository interface {
	CreateTrack(ctx context.Context, track *model.Track) (*model.Track, error)
	GetTrack(ctx context.Context, id int64) (*model.Track, error)
	GetTracksByProjectID(ctx context.Context, projectID int64) ([]*model.Track, error)
	UpdateTrack(ctx context.Context, id int64, patch model.TrackPatch) (*model.Track, error)
	DeleteTrack(ctx context.Context, id int64) (bool, error)
}

// AudioClipRepository defines the clip operations.
type AudioClipRepository interface {
	CreateAudioClip(ctx context.Context, clip *model.AudioClip) (*model.AudioClip, error)
	GetAudioClip(ctx context.Context, id int64) (*model.AudioClip, error)
	GetAudioClipsByTrackID(ctx context.Context, trackID int64) ([]*model.AudioClip, error)
	UpdateAudioClip(ctx context.Context, id int64, patch model.AudioClipPatch) (*model.AudioClip, error)
	DeleteAudioClip(ctx context.Context, id int64) (bool, error)
}

// EffectRepository defines the effect operations.
type EffectRepository interface {
	CreateEffect(ctx context.Context, effect *model.Effect) (*model.Effect, error)
	GetEffect(ctx context.Context, id int64) (*model.Effect, error)
	GetEffectsByTrackID(ctx context.Context, trackID int64) ([]*model.Effect, error)
	UpdateEffect(ctx context.Context, id int64, patch model.EffectPatch) (*model.Effect, error)
	DeleteEffect(ctx context.Context, id int64) (bool, error)
}

// MoodTagRepository defines mood tags and their weighted links to clips.
type MoodTagRepository interface {
	CreateMoodTag(ctx context.Context, tag *model.MoodTag) (*model.MoodTag, error)
	GetMoodTag(ctx context.Context, id int64) (*model.MoodTag, error)
	GetMoodTagByName(ctx context.Context, name string) (*model.MoodTag, error)
	GetMoodTags(ctx context.Context) ([]*model.MoodTag, error)
	UpdateMoodTag(ctx context.Context, id int64, patch model.MoodTagPatch) (*model.MoodTag, error)
	DeleteMoodTag(ctx context.Context, id int64) (bool, error)

	// AddMoodTagToAudioClip inserts the link, or rewrites its weight when the
	// pair is already linked.
	AddMoodTagToAudioClip(ctx context.Context, link *model.AudioClipMoodTag) (*model.AudioClipMoodTag, error)
	RemoveMoodTagFromAudioClip(ctx context.Context, audioClipID, moodTagID int64) (bool, error)
	UpdateAudioClipMoodTagWeight(ctx context.Context, audioClipID, moodTagID int64, weight int) (*model.AudioClipMoodTag, error)
	// GetAudioClipMoodTags returns the clip's links with MoodTag populated.
	GetAudioClipMoodTags(ctx context.Context, audioClipID int64) ([]*model.AudioClipMoodTag, error)
	GetAudioClipsByMoodTagID(ctx context.Context, moodTagID int64) ([]*model.AudioClip, error)
}

// JobRepository defines the three job kinds. Create always stores the job as
// pending; Update enforces the status state machine.
type JobRepository interface {
	CreateStemSeparationJob(ctx context.Context, job *model.StemSeparationJob) (*model.StemSeparationJob, error)
	GetStemSeparationJob(ctx context.Context, id int64) (*model.StemSeparationJob, error)
	GetStemSeparationJobsByProjectID(ctx context.Context, projectID int64) ([]*model.StemSeparationJob, error)
	UpdateStemSeparationJob(ctx context.Context, id int64, patch model.StemSeparationJobPatch) (*model.StemSeparationJob, error)

	CreateVoiceCloningJob(ctx context.Context, job *model.VoiceCloningJob) (*model.VoiceCloningJob, error)
	GetVoiceCloningJob(ctx context.Context, id int64) (*model.VoiceCloningJob, error)
	GetVoiceCloningJobsByProjectID(ctx context.Context, projectID int64) ([]*model.VoiceCloningJob, error)
	UpdateVoiceCloningJob(ctx context.Context, id int64, patch model.VoiceCloningJobPatch) (*model.VoiceCloningJob, error)

	CreateMusicGenerationJob(ctx context.Context, job *model.MusicGenerationJob) (*model.MusicGenerationJob, error)
	GetMusicGenerationJob(ctx context.Context, id int64) (*model.MusicGenerationJob, error)
	GetMusicGenerationJobsByProjectID(ctx context.Context, projectID int64) ([]*model.MusicGenerationJob, error)
	UpdateMusicGenerationJob(ctx context.Context, id int64, patch model.MusicGenerationJobPatch) (*model.MusicGenerationJob, error)
}

// Store is the full entity store contract.
type Store interface {
	UserRepository
	ProjectRepository
	TrackRepository
	AudioClipRepository
	EffectRepository
	MoodTagRepository
	JobRepository

	// Backend names the implementation ("memory" or "database") for logs.
	Backend() string
	Close() error
}

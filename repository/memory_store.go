package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"aistudio/model"
)

// table is an id-keyed map with its own monotonically increasing counter.
type table[T any] struct {
	rows   map[int64]*T
	nextID int64
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[int64]*T)}
}

func (t *table[T]) assignID() int64 {
	t.nextID++
	return t.nextID
}

// list returns the rows accepted by keep in id order.
func (t *table[T]) list(keep func(*T) bool) []int64 {
	ids := make([]int64, 0, len(t.rows))
	for id, row := range t.rows {
		if keep(row) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type linkKey struct {
	audioClipID int64
	moodTagID   int64
}

// MemoryStore keeps all entities in process memory. A single mutex
// serializes every operation, so each merge is atomic and no two creates can
// observe the same counter value.
type MemoryStore struct {
	mu sync.RWMutex

	users     *table[model.User]
	projects  *table[model.Project]
	tracks    *table[model.Track]
	clips     *table[model.AudioClip]
	effects   *table[model.Effect]
	moodTags  *table[model.MoodTag]
	clipTags  map[linkKey]*model.AudioClipMoodTag
	stemJobs  *table[model.StemSeparationJob]
	voiceJobs *table[model.VoiceCloningJob]
	musicJobs *table[model.MusicGenerationJob]

	now func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     newTable[model.User](),
		projects:  newTable[model.Project](),
		tracks:    newTable[model.Track](),
		clips:     newTable[model.AudioClip](),
		effects:   newTable[model.Effect](),
		moodTags:  newTable[model.MoodTag](),
		clipTags:  make(map[linkKey]*model.AudioClipMoodTag),
		stemJobs:  newTable[model.StemSeparationJob](),
		voiceJobs: newTable[model.VoiceCloningJob](),
		musicJobs: newTable[model.MusicGenerationJob](),
		now:       time.Now,
	}
}

// Backend implements Store.
func (s *MemoryStore) Backend() string { return "memory" }

// Close implements Store. Memory is released with the store.
func (s *MemoryStore) Close() error { return nil }

// ========== Users ==========

func cloneUser(u *model.User) *model.User {
	c := *u
	return &c
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users.rows {
		if existing.Username == user.Username {
			return nil, &DuplicateError{Entity: "user", Field: "username", Value: user.Username}
		}
	}
	row := cloneUser(user)
	row.ID = s.users.assignID()
	row.CreatedAt = s.now()
	s.users.rows[row.ID] = row
	return cloneUser(row), nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if row, ok := s.users.rows[id]; ok {
		return cloneUser(row), nil
	}
	return nil, nil
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, row := range s.users.rows {
		if row.Username == username {
			return cloneUser(row), nil
		}
	}
	return nil, nil
}

// ========== Projects ==========

func cloneProject(p *model.Project) *model.Project {
	c := *p
	c.User = nil
	return &c
}

func (s *MemoryStore) CreateProject(ctx context.Context, project *model.Project) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users.rows[project.UserID]; !ok {
		return nil, notFound("user", project.UserID)
	}
	row := cloneProject(project)
	row.ApplyDefaults()
	row.ID = s.projects.assignID()
	row.CreatedAt = s.now()
	row.UpdatedAt = row.CreatedAt
	s.projects.rows[row.ID] = row
	return cloneProject(row), nil
}

func (s *MemoryStore) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if row, ok := s.projects.rows[id]; ok {
		return cloneProject(row), nil
	}
	return nil, nil
}

func (s *MemoryStore) GetProjectsByUserID(ctx context.Context, userID int64) ([]*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.projects.list(func(p *model.Project) bool { return p.UserID == userID })
	projects := make([]*model.Project, 0, len(ids))
	for _, id := range ids {
		projects = append(projects, cloneProject(s.projects.rows[id]))
	}
	return projects, nil
}

func (s *MemoryStore) UpdateProject(ctx context.Context, id int64, patch model.ProjectPatch) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.projects.rows[id]
	if !ok {
		return nil, notFound("project", id)
	}
	patch.Apply(row)
	row.UpdatedAt = s.touch(row.CreatedAt)
	return cloneProject(row), nil
}

func (s *MemoryStore) DeleteProject(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects.rows[id]; !ok {
		return false, nil
	}
	for _, trackID := range s.tracks.list(func(t *model.Track) bool { return t.ProjectID == id }) {
		s.deleteTrackLocked(trackID)
	}
	for _, jobID := range s.stemJobs.list(func(j *model.StemSeparationJob) bool { return j.ProjectID == id }) {
		delete(s.stemJobs.rows, jobID)
	}
	for _, jobID := range s.voiceJobs.list(func(j *model.VoiceCloningJob) bool { return j.ProjectID == id }) {
		delete(s.voiceJobs.rows, jobID)
	}
	for _, jobID := range s.musicJobs.list(func(j *model.MusicGenerationJob) bool { return j.ProjectID == id }) {
		delete(s.musicJobs.rows, jobID)
	}
	delete(s.projects.rows, id)
	return true, nil
}

// touch returns the current time, never earlier than createdAt.
func (s *MemoryStore) touch(createdAt time.Time) time.Time {
	now := s.now()
	if now.Before(createdAt) {
		return createdAt
	}
	return now
}

// ========== Tracks ==========

func cloneTrack(t *model.Track) *model.Track {
	c := *t
	c.Project = nil
	return &c
}

func (s *MemoryStore) CreateTrack(ctx context.Context, track *model.Track) (*model.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects.rows[track.ProjectID]; !ok {
		return nil, notFound("project", track.ProjectID)
	}
	row := cloneTrack(track)
	row.ID = s.tracks.assignID()
	row.CreatedAt = s.now()
	s.tracks.rows[row.ID] = row
	return cloneTrack(row), nil
}

func (s *MemoryStore) GetTrack(ctx context.Context, id int64) (*model.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if row, ok := s.tracks.rows[id]; ok {
		return cloneTrack(row), nil
	}
	return nil, nil
}

func (s *MemoryStore) GetTracksByProjectID(ctx context.Context, projectID int64) ([]*model.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.tracks.list(func(t *model.Track) bool { return t.ProjectID == projectID })
	tracks := make([]*model.Track, 0, len(ids))
	for _, id := range ids {
		tracks = append(tracks, cloneTrack(s.tracks.rows[id]))
	}
	return tracks, nil
}

func (s *MemoryStore) UpdateTrack(ctx context.Context, id int64, patch model.TrackPatch) (*model.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.tracks.rows[id]
	if !ok {
		return nil, notFound("track", id)
	}
	patch.Apply(row)
	return cloneTrack(row), nil
}

func (s *MemoryStore) DeleteTrack(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tracks.rows[id]; !ok {
		return false, nil
	}
	s.deleteTrackLocked(id)
	return true, nil
}

func (s *MemoryStore) deleteTrackLocked(id int64) {
	for _, clipID := range s.clips.list(func(c *model.AudioClip) bool { return c.TrackID == id }) {
		s.deleteAudioClipLocked(clipID)
	}
	for _, effectID := range s.effects.list(func(e *model.Effect) bool { return e.TrackID == id }) {
		delete(s.effects.rows, effectID)
	}
	delete(s.tracks.rows, id)
}

// ========== Audio clips ==========

func cloneAudioClip(c *model.AudioClip) *model.AudioClip {
	cp := *c
	cp.Track = nil
	return &cp
}

func (s *MemoryStore) CreateAudioClip(ctx context.Context, clip *model.AudioClip) (*model.AudioClip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tracks.rows[clip.TrackID]; !ok {
		return nil, notFound("track", clip.TrackID)
	}
	row := cloneAudioClip(clip)
	row.ID = s.clips.assignID()
	row.CreatedAt = s.now()
	s.clips.rows[row.ID] = row
	return cloneAudioClip(row), nil
}

func (s *MemoryStore) GetAudioClip(ctx context.Context, id int64) (*model.AudioClip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if row, ok := s.clips.rows[id]; ok {
		return cloneAudioClip(row), nil
	}
	return nil, nil
}

func (s *MemoryStore) GetAudioClipsByTrackID(ctx context.Context, trackID int64) ([]*model.AudioClip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.clips.list(func(c *model.AudioClip) bool { return c.TrackID == trackID })
	clips := make([]*model.AudioClip, 0, len(ids))
	for _, id := range ids {
		clips = append(clips, cloneAudioClip(s.clips.rows[id]))
	}
	return clips, nil
}

func (s *MemoryStore) UpdateAudioClip(ctx context.Context, id int64, patch model.AudioClipPatch) (*model.AudioClip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.clips.rows[id]
	if !ok {
		return nil, notFound("audio clip", id)
	}
	if patch.TrackID != nil {
		if _, ok := s.tracks.rows[*patch.TrackID]; !ok {
			return nil, notFound("track", *patch.TrackID)
		}
	}
	patch.Apply(row)
	return cloneAudioClip(row), nil
}

func (s *MemoryStore) DeleteAudioClip(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clips.rows[id]; !ok {
		return false, nil
	}
	s.deleteAudioClipLocked(id)
	return true, nil
}

func (s *MemoryStore) deleteAudioClipLocked(id int64) {
	for key := range s.clipTags {
		if key.audioClipID == id {
			delete(s.clipTags, key)
		}
	}
	delete(s.clips.rows, id)
}

// ========== Effects ==========

func (s *MemoryStore) CreateEffect(ctx context.Context, effect *model.Effect) (*model.Effect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tracks.rows[effect.TrackID]; !ok {
		return nil, notFound("track", effect.TrackID)
	}
	row := model.CloneEffect(effect)
	if err := row.FillDefaultSettings(); err != nil {
		return nil, err
	}
	row.ID = s.effects.assignID()
	row.CreatedAt = s.now()
	s.effects.rows[row.ID] = row
	return model.CloneEffect(row), nil
}

func (s *MemoryStore) GetEffect(ctx context.Context, id int64) (*model.Effect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if row, ok := s.effects.rows[id]; ok {
		return model.CloneEffect(row), nil
	}
	return nil, nil
}

func (s *MemoryStore) GetEffectsByTrackID(ctx context.Context, trackID int64) ([]*model.Effect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.effects.list(func(e *model.Effect) bool { return e.TrackID == trackID })
	effects := make([]*model.Effect, 0, len(ids))
	for _, id := range ids {
		effects = append(effects, model.CloneEffect(s.effects.rows[id]))
	}
	return effects, nil
}

func (s *MemoryStore) UpdateEffect(ctx context.Context, id int64, patch model.EffectPatch) (*model.Effect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.effects.rows[id]
	if !ok {
		return nil, notFound("effect", id)
	}
	if err := patch.Validate(row.Type); err != nil {
		return nil, err
	}
	patch.Apply(row)
	return model.CloneEffect(row), nil
}

func (s *MemoryStore) DeleteEffect(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.effects.rows[id]; !ok {
		return false, nil
	}
	delete(s.effects.rows, id)
	return true, nil
}

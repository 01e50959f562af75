package repository

import (
	"context"
	"maps"

	"aistudio/model"
)

func cloneState(s model.JobState) model.JobState {
	c := s
	if s.Error != nil {
		e := *s.Error
		c.Error = &e
	}
	if s.Analysis != nil {
		a := *s.Analysis
		c.Analysis = &a
	}
	return c
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// pendingState is the lifecycle every job starts in.
func (s *MemoryStore) pendingState() model.JobState {
	now := s.now()
	return model.JobState{Status: model.JobStatusPending, CreatedAt: now, UpdatedAt: now}
}

// ========== Stem separation ==========

func cloneStemJob(j *model.StemSeparationJob) *model.StemSeparationJob {
	c := *j
	c.JobState = cloneState(j.JobState)
	c.OutputPaths = maps.Clone(j.OutputPaths)
	c.Project = nil
	return &c
}

func (s *MemoryStore) CreateStemSeparationJob(ctx context.Context, job *model.StemSeparationJob) (*model.StemSeparationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects.rows[job.ProjectID]; !ok {
		return nil, notFound("project", job.ProjectID)
	}
	row := &model.StemSeparationJob{
		ID:           s.stemJobs.assignID(),
		ProjectID:    job.ProjectID,
		OriginalPath: job.OriginalPath,
		JobState:     s.pendingState(),
	}
	s.stemJobs.rows[row.ID] = row
	return cloneStemJob(row), nil
}

func (s *MemoryStore) GetStemSeparationJob(ctx context.Context, id int64) (*model.StemSeparationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if row, ok := s.stemJobs.rows[id]; ok {
		return cloneStemJob(row), nil
	}
	return nil, nil
}

func (s *MemoryStore) GetStemSeparationJobsByProjectID(ctx context.Context, projectID int64) ([]*model.StemSeparationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.stemJobs.list(func(j *model.StemSeparationJob) bool { return j.ProjectID == projectID })
	jobs := make([]*model.StemSeparationJob, 0, len(ids))
	for _, id := range ids {
		jobs = append(jobs, cloneStemJob(s.stemJobs.rows[id]))
	}
	return jobs, nil
}

func (s *MemoryStore) UpdateStemSeparationJob(ctx context.Context, id int64, patch model.StemSeparationJobPatch) (*model.StemSeparationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.stemJobs.rows[id]
	if !ok {
		return nil, notFound("stem separation job", id)
	}
	next := cloneStemJob(row)
	if err := patch.Apply(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.touch(next.CreatedAt)
	s.stemJobs.rows[id] = next
	return cloneStemJob(next), nil
}

// ========== Voice cloning ==========

func cloneVoiceJob(j *model.VoiceCloningJob) *model.VoiceCloningJob {
	c := *j
	c.JobState = cloneState(j.JobState)
	c.OutputPath = cloneStringPtr(j.OutputPath)
	c.Project = nil
	return &c
}

func (s *MemoryStore) CreateVoiceCloningJob(ctx context.Context, job *model.VoiceCloningJob) (*model.VoiceCloningJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects.rows[job.ProjectID]; !ok {
		return nil, notFound("project", job.ProjectID)
	}
	row := &model.VoiceCloningJob{
		ID:         s.voiceJobs.assignID(),
		ProjectID:  job.ProjectID,
		SamplePath: job.SamplePath,
		Text:       job.Text,
		JobState:   s.pendingState(),
	}
	s.voiceJobs.rows[row.ID] = row
	return cloneVoiceJob(row), nil
}

func (s *MemoryStore) GetVoiceCloningJob(ctx context.Context, id int64) (*model.VoiceCloningJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if row, ok := s.voiceJobs.rows[id]; ok {
		return cloneVoiceJob(row), nil
	}
	return nil, nil
}

func (s *MemoryStore) GetVoiceCloningJobsByProjectID(ctx context.Context, projectID int64) ([]*model.VoiceCloningJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.voiceJobs.list(func(j *model.VoiceCloningJob) bool { return j.ProjectID == projectID })
	jobs := make([]*model.VoiceCloningJob, 0, len(ids))
	for _, id := range ids {
		jobs = append(jobs, cloneVoiceJob(s.voiceJobs.rows[id]))
	}
	return jobs, nil
}

func (s *MemoryStore) UpdateVoiceCloningJob(ctx context.Context, id int64, patch model.VoiceCloningJobPatch) (*model.VoiceCloningJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.voiceJobs.rows[id]
	if !ok {
		return nil, notFound("voice cloning job", id)
	}
	next := cloneVoiceJob(row)
	if err := patch.Apply(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.touch(next.CreatedAt)
	s.voiceJobs.rows[id] = next
	return cloneVoiceJob(next), nil
}

// ========== Music generation ==========

func cloneMusicJob(j *model.MusicGenerationJob) *model.MusicGenerationJob {
	c := *j
	c.JobState = cloneState(j.JobState)
	c.OutputPath = cloneStringPtr(j.OutputPath)
	c.Project = nil
	return &c
}

func (s *MemoryStore) CreateMusicGenerationJob(ctx context.Context, job *model.MusicGenerationJob) (*model.MusicGenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects.rows[job.ProjectID]; !ok {
		return nil, notFound("project", job.ProjectID)
	}
	row := &model.MusicGenerationJob{
		ID:        s.musicJobs.assignID(),
		ProjectID: job.ProjectID,
		Prompt:    job.Prompt,
		JobState:  s.pendingState(),
	}
	s.musicJobs.rows[row.ID] = row
	return cloneMusicJob(row), nil
}

func (s *MemoryStore) GetMusicGenerationJob(ctx context.Context, id int64) (*model.MusicGenerationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if row, ok := s.musicJobs.rows[id]; ok {
		return cloneMusicJob(row), nil
	}
	return nil, nil
}

func (s *MemoryStore) GetMusicGenerationJobsByProjectID(ctx context.Context, projectID int64) ([]*model.MusicGenerationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.musicJobs.list(func(j *model.MusicGenerationJob) bool { return j.ProjectID == projectID })
	jobs := make([]*model.MusicGenerationJob, 0, len(ids))
	for _, id := range ids {
		jobs = append(jobs, cloneMusicJob(s.musicJobs.rows[id]))
	}
	return jobs, nil
}

func (s *MemoryStore) UpdateMusicGenerationJob(ctx context.Context, id int64, patch model.MusicGenerationJobPatch) (*model.MusicGenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.musicJobs.rows[id]
	if !ok {
		return nil, notFound("music generation job", id)
	}
	next := cloneMusicJob(row)
	if err := patch.Apply(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.touch(next.CreatedAt)
	s.musicJobs.rows[id] = next
	return cloneMusicJob(next), nil
}

package repository

import (
	"context"
	"fmt"

	"aistudio/model"

	"gorm.io/gorm"
)

func initialJobState() model.JobState {
	return model.JobState{Status: model.JobStatusPending}
}

// ========== Stem separation ==========

func (s *GormStore) CreateStemSeparationJob(ctx context.Context, job *model.StemSeparationJob) (*model.StemSeparationJob, error) {
	row := &model.StemSeparationJob{ProjectID: job.ProjectID, OriginalPath: job.OriginalPath, JobState: initialJobState()}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireParent[model.Project](tx, "project", row.ProjectID); err != nil {
			return err
		}
		return tx.Create(row).Error
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *GormStore) GetStemSeparationJob(ctx context.Context, id int64) (*model.StemSeparationJob, error) {
	return findByID[model.StemSeparationJob](s.db.WithContext(ctx), id)
}

func (s *GormStore) GetStemSeparationJobsByProjectID(ctx context.Context, projectID int64) ([]*model.StemSeparationJob, error) {
	jobs, err := listWhere[model.StemSeparationJob](s.db.WithContext(ctx), "project_id = ?", projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stem separation jobs for project ID %d: %w", projectID, err)
	}
	return jobs, nil
}

func (s *GormStore) UpdateStemSeparationJob(ctx context.Context, id int64, patch model.StemSeparationJobPatch) (*model.StemSeparationJob, error) {
	var out *model.StemSeparationJob
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := mustFind[model.StemSeparationJob](tx, "stem separation job", id)
		if err != nil {
			return err
		}
		if err := patch.Apply(row); err != nil {
			return err
		}
		if err := tx.Save(row).Error; err != nil {
			return fmt.Errorf("failed to update stem separation job %d: %w", id, err)
		}
		out = row
		return nil
	})
	return out, err
}

// ========== Voice cloning ==========

func (s *GormStore) CreateVoiceCloningJob(ctx context.Context, job *model.VoiceCloningJob) (*model.VoiceCloningJob, error) {
	row := &model.VoiceCloningJob{ProjectID: job.ProjectID, SamplePath: job.SamplePath, Text: job.Text, JobState: initialJobState()}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireParent[model.Project](tx, "project", row.ProjectID); err != nil {
			return err
		}
		return tx.Create(row).Error
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *GormStore) GetVoiceCloningJob(ctx context.Context, id int64) (*model.VoiceCloningJob, error) {
	return findByID[model.VoiceCloningJob](s.db.WithContext(ctx), id)
}

func (s *GormStore) GetVoiceCloningJobsByProjectID(ctx context.Context, projectID int64) ([]*model.VoiceCloningJob, error) {
	jobs, err := listWhere[model.VoiceCloningJob](s.db.WithContext(ctx), "project_id = ?", projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query voice cloning jobs for project ID %d: %w", projectID, err)
	}
	return jobs, nil
}

func (s *GormStore) UpdateVoiceCloningJob(ctx context.Context, id int64, patch model.VoiceCloningJobPatch) (*model.VoiceCloningJob, error) {
	var out *model.VoiceCloningJob
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := mustFind[model.VoiceCloningJob](tx, "voice cloning job", id)
		if err != nil {
			return err
		}
		if err := patch.Apply(row); err != nil {
			return err
		}
		if err := tx.Save(row).Error; err != nil {
			return fmt.Errorf("failed to update voice cloning job %d: %w", id, err)
		}
		out = row
		return nil
	})
	return out, err
}

// ========== Music generation ==========

func (s *GormStore) CreateMusicGenerationJob(ctx context.Context, job *model.MusicGenerationJob) (*model.MusicGenerationJob, error) {
	row := &model.MusicGenerationJob{ProjectID: job.ProjectID, Prompt: job.Prompt, JobState: initialJobState()}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireParent[model.Project](tx, "project", row.ProjectID); err != nil {
			return err
		}
		return tx.Create(row).Error
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *GormStore) GetMusicGenerationJob(ctx context.Context, id int64) (*model.MusicGenerationJob, error) {
	return findByID[model.MusicGenerationJob](s.db.WithContext(ctx), id)
}

func (s *GormStore) GetMusicGenerationJobsByProjectID(ctx context.Context, projectID int64) ([]*model.MusicGenerationJob, error) {
	jobs, err := listWhere[model.MusicGenerationJob](s.db.WithContext(ctx), "project_id = ?", projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query music generation jobs for project ID %d: %w", projectID, err)
	}
	return jobs, nil
}

func (s *GormStore) UpdateMusicGenerationJob(ctx context.Context, id int64, patch model.MusicGenerationJobPatch) (*model.MusicGenerationJob, error) {
	var out *model.MusicGenerationJob
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := mustFind[model.MusicGenerationJob](tx, "music generation job", id)
		if err != nil {
			return err
		}
		if err := patch.Apply(row); err != nil {
			return err
		}
		if err := tx.Save(row).Error; err != nil {
			return fmt.Errorf("failed to update music generation job %d: %w", id, err)
		}
		out = row
		return nil
	})
	return out, err
}

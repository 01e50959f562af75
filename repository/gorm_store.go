package repository

import (
	"context"
	"errors"
	"fmt"

	"aistudio/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists entities through GORM (MySQL in production, SQLite for
// local runs and tests). Cascading deletes come from the ON DELETE CASCADE
// foreign keys created by db.Migrate.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore wraps an open, migrated GORM connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Backend implements Store.
func (s *GormStore) Backend() string { return "database" }

// Close closes the underlying sql.DB.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// findByID loads one row by primary key, returning (nil, nil) when absent.
func findByID[T any](tx *gorm.DB, id int64) (*T, error) {
	var row T
	err := tx.First(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// mustFind loads one row by primary key for update, failing with
// NotFoundError when absent. The row stays locked until tx ends so concurrent
// partial updates merge one after the other. SQLite ignores the locking
// clause and serializes writers itself.
func mustFind[T any](tx *gorm.DB, entity string, id int64) (*T, error) {
	row, err := findByID[T](tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}), id)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %d: %w", entity, id, err)
	}
	if row == nil {
		return nil, notFound(entity, id)
	}
	return row, nil
}

func exists[T any](tx *gorm.DB, id int64) (bool, error) {
	var count int64
	if err := tx.Model(new(T)).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// requireParent fails with NotFoundError when the referenced parent is absent.
func requireParent[T any](tx *gorm.DB, entity string, id int64) error {
	ok, err := exists[T](tx, id)
	if err != nil {
		return fmt.Errorf("failed to check %s %d: %w", entity, id, err)
	}
	if !ok {
		return notFound(entity, id)
	}
	return nil
}

func listWhere[T any](tx *gorm.DB, query string, args ...interface{}) ([]*T, error) {
	rows := make([]*T, 0)
	if err := tx.Where(query, args...).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func deleteByID[T any](tx *gorm.DB, id int64) (bool, error) {
	res := tx.Delete(new(T), id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ========== Users ==========

func (s *GormStore) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	row := *user
	row.ID = 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Where("username = ?", row.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &DuplicateError{Entity: "user", Field: "username", Value: row.Username}
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, translateError("user", "username", row.Username, err)
	}
	return &row, nil
}

func (s *GormStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return findByID[model.User](s.db.WithContext(ctx), id)
}

func (s *GormStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by username %s: %w", username, err)
	}
	return &user, nil
}

// ========== Projects ==========

func (s *GormStore) CreateProject(ctx context.Context, project *model.Project) (*model.Project, error) {
	row := *project
	row.ID = 0
	row.User = nil
	row.ApplyDefaults()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireParent[model.User](tx, "user", row.UserID); err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *GormStore) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	return findByID[model.Project](s.db.WithContext(ctx), id)
}

func (s *GormStore) GetProjectsByUserID(ctx context.Context, userID int64) ([]*model.Project, error) {
	projects, err := listWhere[model.Project](s.db.WithContext(ctx), "user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects for user ID %d: %w", userID, err)
	}
	return projects, nil
}

func (s *GormStore) UpdateProject(ctx context.Context, id int64, patch model.ProjectPatch) (*model.Project, error) {
	var out *model.Project
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := mustFind[model.Project](tx, "project", id)
		if err != nil {
			return err
		}
		patch.Apply(row)
		if err := tx.Save(row).Error; err != nil {
			return fmt.Errorf("failed to update project %d: %w", id, err)
		}
		out = row
		return nil
	})
	return out, err
}

func (s *GormStore) DeleteProject(ctx context.Context, id int64) (bool, error) {
	return deleteByID[model.Project](s.db.WithContext(ctx), id)
}

// ========== Tracks ==========

func (s *GormStore) CreateTrack(ctx context.Context, track *model.Track) (*model.Track, error) {
	row := *track
	row.ID = 0
	row.Project = nil
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireParent[model.Project](tx, "project", row.ProjectID); err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *GormStore) GetTrack(ctx context.Context, id int64) (*model.Track, error) {
	return findByID[model.Track](s.db.WithContext(ctx), id)
}

func (s *GormStore) GetTracksByProjectID(ctx context.Context, projectID int64) ([]*model.Track, error) {
	tracks, err := listWhere[model.Track](s.db.WithContext(ctx), "project_id = ?", projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks for project ID %d: %w", projectID, err)
	}
	return tracks, nil
}

func (s *GormStore) UpdateTrack(ctx context.Context, id int64, patch model.TrackPatch) (*model.Track, error) {
	var out *model.Track
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := mustFind[model.Track](tx, "track", id)
		if err != nil {
			return err
		}
		patch.Apply(row)
		if err := tx.Save(row).Error; err != nil {
			return fmt.Errorf("failed to update track %d: %w", id, err)
		}
		out = row
		return nil
	})
	return out, err
}

func (s *GormStore) DeleteTrack(ctx context.Context, id int64) (bool, error) {
	return deleteByID[model.Track](s.db.WithContext(ctx), id)
}

// ========== Audio clips ==========

func (s *GormStore) CreateAudioClip(ctx context.Context, clip *model.AudioClip) (*model.AudioClip, error) {
	row := *clip
	row.ID = 0
	row.Track = nil
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireParent[model.Track](tx, "track", row.TrackID); err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *GormStore) GetAudioClip(ctx context.Context, id int64) (*model.AudioClip, error) {
	return findByID[model.AudioClip](s.db.WithContext(ctx), id)
}

func (s *GormStore) GetAudioClipsByTrackID(ctx context.Context, trackID int64) ([]*model.AudioClip, error) {
	clips, err := listWhere[model.AudioClip](s.db.WithContext(ctx), "track_id = ?", trackID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audio clips for track ID %d: %w", trackID, err)
	}
	return clips, nil
}

func (s *GormStore) UpdateAudioClip(ctx context.Context, id int64, patch model.AudioClipPatch) (*model.AudioClip, error) {
	var out *model.AudioClip
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := mustFind[model.AudioClip](tx, "audio clip", id)
		if err != nil {
			return err
		}
		if patch.TrackID != nil {
			if err := requireParent[model.Track](tx, "track", *patch.TrackID); err != nil {
				return err
			}
		}
		patch.Apply(row)
		if err := tx.Save(row).Error; err != nil {
			return fmt.Errorf("failed to update audio clip %d: %w", id, err)
		}
		out = row
		return nil
	})
	return out, err
}

func (s *GormStore) DeleteAudioClip(ctx context.Context, id int64) (bool, error) {
	return deleteByID[model.AudioClip](s.db.WithContext(ctx), id)
}

// ========== Effects ==========

func (s *GormStore) CreateEffect(ctx context.Context, effect *model.Effect) (*model.Effect, error) {
	row := model.CloneEffect(effect)
	row.ID = 0
	if err := row.FillDefaultSettings(); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireParent[model.Track](tx, "track", row.TrackID); err != nil {
			return err
		}
		return tx.Create(row).Error
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *GormStore) GetEffect(ctx context.Context, id int64) (*model.Effect, error) {
	return findByID[model.Effect](s.db.WithContext(ctx), id)
}

func (s *GormStore) GetEffectsByTrackID(ctx context.Context, trackID int64) ([]*model.Effect, error) {
	effects, err := listWhere[model.Effect](s.db.WithContext(ctx), "track_id = ?", trackID)
	if err != nil {
		return nil, fmt.Errorf("failed to query effects for track ID %d: %w", trackID, err)
	}
	return effects, nil
}

func (s *GormStore) UpdateEffect(ctx context.Context, id int64, patch model.EffectPatch) (*model.Effect, error) {
	var out *model.Effect
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := mustFind[model.Effect](tx, "effect", id)
		if err != nil {
			return err
		}
		if err := patch.Validate(row.Type); err != nil {
			return err
		}
		patch.Apply(row)
		if err := tx.Save(row).Error; err != nil {
			return fmt.Errorf("failed to update effect %d: %w", id, err)
		}
		out = row
		return nil
	})
	return out, err
}

func (s *GormStore) DeleteEffect(ctx context.Context, id int64) (bool, error) {
	return deleteByID[model.Effect](s.db.WithContext(ctx), id)
}

// translateError maps driver-level unique violations onto DuplicateError.
func translateError(entity, field, value string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &DuplicateError{Entity: entity, Field: field, Value: value}
	}
	return err
}

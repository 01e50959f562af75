package repository

import (
	"context"
	"errors"
	"fmt"

	"aistudio/model"

	"gorm.io/gorm"
)

func moodTagNameTaken(tx *gorm.DB, name string, exceptID int64) (bool, error) {
	var count int64
	err := tx.Model(&model.MoodTag{}).Where("name = ? AND id <> ?", name, exceptID).Count(&count).Error
	return count > 0, err
}

func (s *GormStore) CreateMoodTag(ctx context.Context, tag *model.MoodTag) (*model.MoodTag, error) {
	row := *tag
	row.ID = 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := moodTagNameTaken(tx, row.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			return &DuplicateError{Entity: "mood tag", Field: "name", Value: row.Name}
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, translateError("mood tag", "name", row.Name, err)
	}
	return &row, nil
}

func (s *GormStore) GetMoodTag(ctx context.Context, id int64) (*model.MoodTag, error) {
	return findByID[model.MoodTag](s.db.WithContext(ctx), id)
}

func (s *GormStore) GetMoodTagByName(ctx context.Context, name string) (*model.MoodTag, error) {
	var tag model.MoodTag
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&tag).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get mood tag by name %s: %w", name, err)
	}
	return &tag, nil
}

func (s *GormStore) GetMoodTags(ctx context.Context) ([]*model.MoodTag, error) {
	tags := make([]*model.MoodTag, 0)
	if err := s.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to query mood tags: %w", err)
	}
	return tags, nil
}

func (s *GormStore) UpdateMoodTag(ctx context.Context, id int64, patch model.MoodTagPatch) (*model.MoodTag, error) {
	var out *model.MoodTag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := mustFind[model.MoodTag](tx, "mood tag", id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			taken, err := moodTagNameTaken(tx, *patch.Name, id)
			if err != nil {
				return err
			}
			if taken {
				return &DuplicateError{Entity: "mood tag", Field: "name", Value: *patch.Name}
			}
		}
		patch.Apply(row)
		if err := tx.Save(row).Error; err != nil {
			return fmt.Errorf("failed to update mood tag %d: %w", id, err)
		}
		out = row
		return nil
	})
	return out, err
}

func (s *GormStore) DeleteMoodTag(ctx context.Context, id int64) (bool, error) {
	return deleteByID[model.MoodTag](s.db.WithContext(ctx), id)
}

func findLink(tx *gorm.DB, audioClipID, moodTagID int64) (*model.AudioClipMoodTag, error) {
	var link model.AudioClipMoodTag
	err := tx.Where("audio_clip_id = ? AND mood_tag_id = ?", audioClipID, moodTagID).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

func (s *GormStore) AddMoodTagToAudioClip(ctx context.Context, link *model.AudioClipMoodTag) (*model.AudioClipMoodTag, error) {
	if err := model.ValidateMoodTagWeight(link.Weight); err != nil {
		return nil, err
	}
	row := &model.AudioClipMoodTag{AudioClipID: link.AudioClipID, MoodTagID: link.MoodTagID, Weight: link.Weight}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireParent[model.AudioClip](tx, "audio clip", row.AudioClipID); err != nil {
			return err
		}
		if err := requireParent[model.MoodTag](tx, "mood tag", row.MoodTagID); err != nil {
			return err
		}
		existing, err := findLink(tx, row.AudioClipID, row.MoodTagID)
		if err != nil {
			return err
		}
		if existing == nil {
			return tx.Create(row).Error
		}
		return tx.Model(&model.AudioClipMoodTag{}).
			Where("audio_clip_id = ? AND mood_tag_id = ?", row.AudioClipID, row.MoodTagID).
			Update("weight", row.Weight).Error
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *GormStore) RemoveMoodTagFromAudioClip(ctx context.Context, audioClipID, moodTagID int64) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("audio_clip_id = ? AND mood_tag_id = ?", audioClipID, moodTagID).
		Delete(&model.AudioClipMoodTag{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) UpdateAudioClipMoodTagWeight(ctx context.Context, audioClipID, moodTagID int64, weight int) (*model.AudioClipMoodTag, error) {
	if err := model.ValidateMoodTagWeight(weight); err != nil {
		return nil, err
	}
	var out *model.AudioClipMoodTag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		link, err := findLink(tx, audioClipID, moodTagID)
		if err != nil {
			return err
		}
		if link == nil {
			return &LinkNotFoundError{AudioClipID: audioClipID, MoodTagID: moodTagID}
		}
		if err := tx.Model(&model.AudioClipMoodTag{}).
			Where("audio_clip_id = ? AND mood_tag_id = ?", audioClipID, moodTagID).
			Update("weight", weight).Error; err != nil {
			return fmt.Errorf("failed to update weight of mood tag %d on clip %d: %w", moodTagID, audioClipID, err)
		}
		link.Weight = weight
		out = link
		return nil
	})
	return out, err
}

func (s *GormStore) GetAudioClipMoodTags(ctx context.Context, audioClipID int64) ([]*model.AudioClipMoodTag, error) {
	links := make([]*model.AudioClipMoodTag, 0)
	err := s.db.WithContext(ctx).
		Preload("MoodTag").
		Where("audio_clip_id = ?", audioClipID).
		Order("mood_tag_id").
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query mood tags for audio clip %d: %w", audioClipID, err)
	}
	return links, nil
}

func (s *GormStore) GetAudioClipsByMoodTagID(ctx context.Context, moodTagID int64) ([]*model.AudioClip, error) {
	clips := make([]*model.AudioClip, 0)
	err := s.db.WithContext(ctx).
		Joins("JOIN audio_clip_mood_tags ON audio_clip_mood_tags.audio_clip_id = audio_clips.id").
		Where("audio_clip_mood_tags.mood_tag_id = ?", moodTagID).
		Order("audio_clips.id").
		Find(&clips).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query audio clips for mood tag %d: %w", moodTagID, err)
	}
	return clips, nil
}

package repository

import (
	"context"
	"sort"

	"aistudio/model"
)

func cloneMoodTag(m *model.MoodTag) *model.MoodTag {
	c := *m
	if m.Description != nil {
		d := *m.Description
		c.Description = &d
	}
	return &c
}

func (s *MemoryStore) moodTagNameTakenLocked(name string, exceptID int64) bool {
	for id, row := range s.moodTags.rows {
		if id != exceptID && row.Name == name {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateMoodTag(ctx context.Context, tag *model.MoodTag) (*model.MoodTag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.moodTagNameTakenLocked(tag.Name, 0) {
		return nil, &DuplicateError{Entity: "mood tag", Field: "name", Value: tag.Name}
	}
	row := cloneMoodTag(tag)
	row.ID = s.moodTags.assignID()
	s.moodTags.rows[row.ID] = row
	return cloneMoodTag(row), nil
}

func (s *MemoryStore) GetMoodTag(ctx context.Context, id int64) (*model.MoodTag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if row, ok := s.moodTags.rows[id]; ok {
		return cloneMoodTag(row), nil
	}
	return nil, nil
}

func (s *MemoryStore) GetMoodTagByName(ctx context.Context, name string) (*model.MoodTag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, row := range s.moodTags.rows {
		if row.Name == name {
			return cloneMoodTag(row), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) GetMoodTags(ctx context.Context) ([]*model.MoodTag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.moodTags.list(func(*model.MoodTag) bool { return true })
	tags := make([]*model.MoodTag, 0, len(ids))
	for _, id := range ids {
		tags = append(tags, cloneMoodTag(s.moodTags.rows[id]))
	}
	return tags, nil
}

func (s *MemoryStore) UpdateMoodTag(ctx context.Context, id int64, patch model.MoodTagPatch) (*model.MoodTag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.moodTags.rows[id]
	if !ok {
		return nil, notFound("mood tag", id)
	}
	if patch.Name != nil && s.moodTagNameTakenLocked(*patch.Name, id) {
		return nil, &DuplicateError{Entity: "mood tag", Field: "name", Value: *patch.Name}
	}
	patch.Apply(row)
	return cloneMoodTag(row), nil
}

func (s *MemoryStore) DeleteMoodTag(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.moodTags.rows[id]; !ok {
		return false, nil
	}
	for key := range s.clipTags {
		if key.moodTagID == id {
			delete(s.clipTags, key)
		}
	}
	delete(s.moodTags.rows, id)
	return true, nil
}

func cloneLink(l *model.AudioClipMoodTag) *model.AudioClipMoodTag {
	return &model.AudioClipMoodTag{AudioClipID: l.AudioClipID, MoodTagID: l.MoodTagID, Weight: l.Weight}
}

func (s *MemoryStore) AddMoodTagToAudioClip(ctx context.Context, link *model.AudioClipMoodTag) (*model.AudioClipMoodTag, error) {
	if err := model.ValidateMoodTagWeight(link.Weight); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clips.rows[link.AudioClipID]; !ok {
		return nil, notFound("audio clip", link.AudioClipID)
	}
	if _, ok := s.moodTags.rows[link.MoodTagID]; !ok {
		return nil, notFound("mood tag", link.MoodTagID)
	}
	row := cloneLink(link)
	s.clipTags[linkKey{audioClipID: row.AudioClipID, moodTagID: row.MoodTagID}] = row
	return cloneLink(row), nil
}

func (s *MemoryStore) RemoveMoodTagFromAudioClip(ctx context.Context, audioClipID, moodTagID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := linkKey{audioClipID: audioClipID, moodTagID: moodTagID}
	if _, ok := s.clipTags[key]; !ok {
		return false, nil
	}
	delete(s.clipTags, key)
	return true, nil
}

func (s *MemoryStore) UpdateAudioClipMoodTagWeight(ctx context.Context, audioClipID, moodTagID int64, weight int) (*model.AudioClipMoodTag, error) {
	if err := model.ValidateMoodTagWeight(weight); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.clipTags[linkKey{audioClipID: audioClipID, moodTagID: moodTagID}]
	if !ok {
		return nil, &LinkNotFoundError{AudioClipID: audioClipID, MoodTagID: moodTagID}
	}
	row.Weight = weight
	return cloneLink(row), nil
}

func (s *MemoryStore) GetAudioClipMoodTags(ctx context.Context, audioClipID int64) ([]*model.AudioClipMoodTag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	links := make([]*model.AudioClipMoodTag, 0)
	for key, row := range s.clipTags {
		if key.audioClipID != audioClipID {
			continue
		}
		link := cloneLink(row)
		if tag, ok := s.moodTags.rows[key.moodTagID]; ok {
			link.MoodTag = cloneMoodTag(tag)
		}
		links = append(links, link)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].MoodTagID < links[j].MoodTagID })
	return links, nil
}

func (s *MemoryStore) GetAudioClipsByMoodTagID(ctx context.Context, moodTagID int64) ([]*model.AudioClip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.clips.list(func(c *model.AudioClip) bool {
		_, ok := s.clipTags[linkKey{audioClipID: c.ID, moodTagID: moodTagID}]
		return ok
	})
	clips := make([]*model.AudioClip, 0, len(ids))
	for _, id := range ids {
		clips = append(clips, cloneAudioClip(s.clips.rows[id]))
	}
	return clips, nil
}

package model

// MoodTag is a descriptive label attachable to clips.
type MoodTag struct {
	ID          int64   `json:"id" gorm:"primaryKey"`
	Name        string  `json:"name" gorm:"size:100;not null;uniqueIndex"`
	Description *string `json:"description,omitempty" gorm:"type:text"`
	Color       string  `json:"color" gorm:"size:32"`
}

// TableName overrides the table name used by GORM.
func (MoodTag) TableName() string {
	return "mood_tags"
}

// Validate checks the fields required to create a mood tag.
func (m *MoodTag) Validate() error {
	if m.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	return nil
}

// MoodTagPatch is a partial update; nil fields are left untouched.
type MoodTagPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
}

// Validate checks the fields present in the patch.
func (p MoodTagPatch) Validate() error {
	if p.Name != nil && *p.Name == "" {
		return &ValidationError{Field: "name", Message: "name cannot be empty"}
	}
	return nil
}

// Apply merges the patch over m.
func (p MoodTagPatch) Apply(m *MoodTag) {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Description != nil {
		d := *p.Description
		m.Description = &d
	}
	if p.Color != nil {
		m.Color = *p.Color
	}
}

const (
	MinMoodTagWeight = 1
	MaxMoodTagWeight = 10
)

// ValidateMoodTagWeight checks that weight is within 1-10.
func ValidateMoodTagWeight(weight int) error {
	if weight < MinMoodTagWeight || weight > MaxMoodTagWeight {
		return &ValidationError{Field: "weight", Message: "weight must be between 1 and 10"}
	}
	return nil
}

// AudioClipMoodTag links a clip to a mood tag with a weight. The
// (AudioClipID, MoodTagID) pair is unique.
type AudioClipMoodTag struct {
	AudioClipID int64 `json:"audioClipId" gorm:"primaryKey;autoIncrement:false"`
	MoodTagID   int64 `json:"moodTagId" gorm:"primaryKey;autoIncrement:false;index"`
	Weight      int   `json:"weight" gorm:"not null"`

	// MoodTag is populated by GetAudioClipMoodTags.
	MoodTag   *MoodTag   `json:"moodTag,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	AudioClip *AudioClip `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name used by GORM.
func (AudioClipMoodTag) TableName() string {
	return "audio_clip_mood_tags"
}

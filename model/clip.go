package model

import "time"

// AudioClip is a placed audio segment on a track. StartTime and Duration are
// milliseconds on the shared project timeline; clips may overlap.
type AudioClip struct {
	ID            int64     `json:"id" gorm:"primaryKey"`
	Name          string    `json:"name" gorm:"size:255;not null"`
	TrackID       int64     `json:"trackId" gorm:"index;not null"`
	Path          string    `json:"path" gorm:"size:767;not null"`
	StartTime     int       `json:"startTime" gorm:"not null"`
	Duration      int       `json:"duration" gorm:"not null"`
	IsAIGenerated bool      `json:"isAIGenerated" gorm:"column:is_ai_generated"`
	CreatedAt     time.Time `json:"createdAt"`

	Track *Track `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name used by GORM.
func (AudioClip) TableName() string {
	return "audio_clips"
}

// EndTime is the millisecond offset where the clip stops playing.
func (c *AudioClip) EndTime() int {
	return c.StartTime + c.Duration
}

// Validate checks the fields required to create a clip.
func (c *AudioClip) Validate() error {
	if c.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if c.TrackID <= 0 {
		return &ValidationError{Field: "trackId", Message: "trackId is required"}
	}
	if c.Path == "" {
		return &ValidationError{Field: "path", Message: "path is required"}
	}
	return validatePlacement(c.StartTime, c.Duration)
}

func validatePlacement(startTime, duration int) error {
	if startTime < 0 {
		return &ValidationError{Field: "startTime", Message: "startTime must be >= 0"}
	}
	if duration <= 0 {
		return &ValidationError{Field: "duration", Message: "duration must be > 0"}
	}
	return nil
}

// AudioClipPatch is a partial update; nil fields are left untouched.
type AudioClipPatch struct {
	Name          *string `json:"name,omitempty"`
	TrackID       *int64  `json:"trackId,omitempty"`
	Path          *string `json:"path,omitempty"`
	StartTime     *int    `json:"startTime,omitempty"`
	Duration      *int    `json:"duration,omitempty"`
	IsAIGenerated *bool   `json:"isAIGenerated,omitempty"`
}

// Validate checks the fields present in the patch.
func (p AudioClipPatch) Validate() error {
	if p.Name != nil && *p.Name == "" {
		return &ValidationError{Field: "name", Message: "name cannot be empty"}
	}
	if p.TrackID != nil && *p.TrackID <= 0 {
		return &ValidationError{Field: "trackId", Message: "trackId must be positive"}
	}
	if p.StartTime != nil && *p.StartTime < 0 {
		return &ValidationError{Field: "startTime", Message: "startTime must be >= 0"}
	}
	if p.Duration != nil && *p.Duration <= 0 {
		return &ValidationError{Field: "duration", Message: "duration must be > 0"}
	}
	return nil
}

// Apply merges the patch over c.
func (p AudioClipPatch) Apply(c *AudioClip) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.TrackID != nil {
		c.TrackID = *p.TrackID
	}
	if p.Path != nil {
		c.Path = *p.Path
	}
	if p.StartTime != nil {
		c.StartTime = *p.StartTime
	}
	if p.Duration != nil {
		c.Duration = *p.Duration
	}
	if p.IsAIGenerated != nil {
		c.IsAIGenerated = *p.IsAIGenerated
	}
}

package model

import "time"

// TrackType enumerates the kinds of channels a project can hold.
type TrackType string

const (
	TrackTypeVocals      TrackType = "vocals"
	TrackTypeDrums       TrackType = "drums"
	TrackTypeBass        TrackType = "bass"
	TrackTypeSynth       TrackType = "synth"
	TrackTypeAIGenerated TrackType = "ai-generated"
	TrackTypeOther       TrackType = "other"
)

// Valid reports whether t is a known track type.
func (t TrackType) Valid() bool {
	switch t {
	case TrackTypeVocals, TrackTypeDrums, TrackTypeBass, TrackTypeSynth, TrackTypeAIGenerated, TrackTypeOther:
		return true
	}
	return false
}

const (
	DefaultTrackColor  = "#6366f1"
	DefaultTrackVolume = 80
)

// Track represents a channel in a project holding audio clips and effects.
type Track struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	Type      TrackType `json:"type" gorm:"size:32;not null"`
	ProjectID int64     `json:"projectId" gorm:"index;not null"`
	Color     string    `json:"color" gorm:"size:32"`
	Muted     bool      `json:"muted"`
	Solo      bool      `json:"solo"`
	Volume    int       `json:"volume"` // 0-100
	CreatedAt time.Time `json:"createdAt"`

	Project *Project `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name used by GORM.
func (Track) TableName() string {
	return "tracks"
}

// Validate checks the fields required to create a track.
func (t *Track) Validate() error {
	if t.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if !t.Type.Valid() {
		return &ValidationError{Field: "type", Message: "unknown track type " + string(t.Type)}
	}
	if t.ProjectID <= 0 {
		return &ValidationError{Field: "projectId", Message: "projectId is required"}
	}
	return validateVolume(t.Volume)
}

func validateVolume(volume int) error {
	if volume < 0 || volume > 100 {
		return &ValidationError{Field: "volume", Message: "volume must be between 0 and 100"}
	}
	return nil
}

// TrackPatch is a partial update; nil fields are left untouched.
type TrackPatch struct {
	Name   *string    `json:"name,omitempty"`
	Type   *TrackType `json:"type,omitempty"`
	Color  *string    `json:"color,omitempty"`
	Muted  *bool      `json:"muted,omitempty"`
	Solo   *bool      `json:"solo,omitempty"`
	Volume *int       `json:"volume,omitempty"`
}

// Validate checks the fields present in the patch.
func (p TrackPatch) Validate() error {
	if p.Name != nil && *p.Name == "" {
		return &ValidationError{Field: "name", Message: "name cannot be empty"}
	}
	if p.Type != nil && !p.Type.Valid() {
		return &ValidationError{Field: "type", Message: "unknown track type " + string(*p.Type)}
	}
	if p.Volume != nil {
		return validateVolume(*p.Volume)
	}
	return nil
}

// Apply merges the patch over t.
func (p TrackPatch) Apply(t *Track) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Color != nil {
		t.Color = *p.Color
	}
	if p.Muted != nil {
		t.Muted = *p.Muted
	}
	if p.Solo != nil {
		t.Solo = *p.Solo
	}
	if p.Volume != nil {
		t.Volume = *p.Volume
	}
}

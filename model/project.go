package model

import "time"

const (
	DefaultBPM           = 120
	DefaultTimeSignature = "4/4"
)

// Project is a DAW session owned by a user.
type Project struct {
	ID            int64     `json:"id" gorm:"primaryKey"`
	Name          string    `json:"name" gorm:"size:255;not null"`
	UserID        int64     `json:"userId" gorm:"index;not null"`
	BPM           int       `json:"bpm" gorm:"column:bpm;not null;default:120"`
	TimeSignature string    `json:"timeSignature" gorm:"size:16;not null;default:'4/4'"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	User *User `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name used by GORM.
func (Project) TableName() string {
	return "projects"
}

// ApplyDefaults fills the fields a new project may omit.
func (p *Project) ApplyDefaults() {
	if p.BPM == 0 {
		p.BPM = DefaultBPM
	}
	if p.TimeSignature == "" {
		p.TimeSignature = DefaultTimeSignature
	}
}

// Validate checks the fields required to create a project.
func (p *Project) Validate() error {
	if p.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if p.UserID <= 0 {
		return &ValidationError{Field: "userId", Message: "userId is required"}
	}
	if p.BPM < 1 || p.BPM > 999 {
		return &ValidationError{Field: "bpm", Message: "bpm must be between 1 and 999"}
	}
	return nil
}

// ProjectPatch is a partial update; nil fields are left untouched.
type ProjectPatch struct {
	Name          *string `json:"name,omitempty"`
	BPM           *int    `json:"bpm,omitempty"`
	TimeSignature *string `json:"timeSignature,omitempty"`
}

// Validate checks the fields present in the patch.
func (p ProjectPatch) Validate() error {
	if p.Name != nil && *p.Name == "" {
		return &ValidationError{Field: "name", Message: "name cannot be empty"}
	}
	if p.BPM != nil && (*p.BPM < 1 || *p.BPM > 999) {
		return &ValidationError{Field: "bpm", Message: "bpm must be between 1 and 999"}
	}
	if p.TimeSignature != nil && *p.TimeSignature == "" {
		return &ValidationError{Field: "timeSignature", Message: "timeSignature cannot be empty"}
	}
	return nil
}

// Apply merges the patch over p.
func (p ProjectPatch) Apply(project *Project) {
	if p.Name != nil {
		project.Name = *p.Name
	}
	if p.BPM != nil {
		project.BPM = *p.BPM
	}
	if p.TimeSignature != nil {
		project.TimeSignature = *p.TimeSignature
	}
}

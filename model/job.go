package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// JobStatus is the lifecycle state of an asynchronous job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition may leave s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether the state machine allows s -> next.
// Staying in a non-terminal state is allowed so that other fields can be
// updated without a status change.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusPending || next == JobStatusProcessing || next == JobStatusFailed
	case JobStatusProcessing:
		return next == JobStatusProcessing || next == JobStatusCompleted || next == JobStatusFailed
	}
	return false
}

// JobKind names the three kinds of jobs.
type JobKind string

const (
	JobKindStemSeparation  JobKind = "stem-separation"
	JobKindVoiceCloning    JobKind = "voice-cloning"
	JobKindMusicGeneration JobKind = "music-generation"
)

// Stem names produced by stem separation.
var StemNames = []string{"vocals", "drums", "bass", "other"}

// StemPaths maps a stem name to the path of its audio file. It is stored as
// a JSON document.
type StemPaths map[string]string

// Scan implements sql.Scanner.
func (p *StemPaths) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for StemPaths", value)
	}
	if len(data) == 0 || string(data) == "null" {
		*p = nil
		return nil
	}
	return json.Unmarshal(data, p)
}

// Value implements driver.Valuer.
func (p StemPaths) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// JobState holds the lifecycle fields shared by all job kinds.
type JobState struct {
	Status    JobStatus `json:"status" gorm:"size:20;not null;index"`
	Error     *string   `json:"error,omitempty" gorm:"type:text"`
	Analysis  *string   `json:"analysis,omitempty" gorm:"type:text"` // AI provider text, when one is configured
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StemSeparationJob splits an uploaded mix into stems.
type StemSeparationJob struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	ProjectID    int64     `json:"projectId" gorm:"index;not null"`
	OriginalPath string    `json:"originalPath" gorm:"size:767;not null"`
	OutputPaths  StemPaths `json:"outputPaths,omitempty" gorm:"type:text"`
	JobState

	Project *Project `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name used by GORM.
func (StemSeparationJob) TableName() string {
	return "stem_separation_jobs"
}

// Validate checks the job inputs.
func (j *StemSeparationJob) Validate() error {
	if j.ProjectID <= 0 {
		return &ValidationError{Field: "projectId", Message: "projectId is required"}
	}
	if j.OriginalPath == "" {
		return &ValidationError{Field: "originalPath", Message: "originalPath is required"}
	}
	return nil
}

// VoiceCloningJob renders text in the voice of an uploaded sample.
type VoiceCloningJob struct {
	ID         int64   `json:"id" gorm:"primaryKey"`
	ProjectID  int64   `json:"projectId" gorm:"index;not null"`
	SamplePath string  `json:"samplePath" gorm:"size:767;not null"`
	Text       string  `json:"text" gorm:"type:text;not null"`
	OutputPath *string `json:"outputPath,omitempty" gorm:"size:767"`
	JobState

	Project *Project `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name used by GORM.
func (VoiceCloningJob) TableName() string {
	return "voice_cloning_jobs"
}

// Validate checks the job inputs.
func (j *VoiceCloningJob) Validate() error {
	if j.ProjectID <= 0 {
		return &ValidationError{Field: "projectId", Message: "projectId is required"}
	}
	if j.SamplePath == "" {
		return &ValidationError{Field: "samplePath", Message: "samplePath is required"}
	}
	if j.Text == "" {
		return &ValidationError{Field: "text", Message: "text is required"}
	}
	return nil
}

// MusicGenerationJob produces a track from a text prompt.
type MusicGenerationJob struct {
	ID         int64   `json:"id" gorm:"primaryKey"`
	ProjectID  int64   `json:"projectId" gorm:"index;not null"`
	Prompt     string  `json:"prompt" gorm:"type:text;not null"`
	OutputPath *string `json:"outputPath,omitempty" gorm:"size:767"`
	JobState

	Project *Project `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name used by GORM.
func (MusicGenerationJob) TableName() string {
	return "music_generation_jobs"
}

// Validate checks the job inputs.
func (j *MusicGenerationJob) Validate() error {
	if j.ProjectID <= 0 {
		return &ValidationError{Field: "projectId", Message: "projectId is required"}
	}
	if j.Prompt == "" {
		return &ValidationError{Field: "prompt", Message: "prompt is required"}
	}
	return nil
}

// JobUpdate carries the lifecycle part of a job patch.
type JobUpdate struct {
	Status   *JobStatus
	Error    *string
	Analysis *string
}

// resulting reports the status s would have after the update.
func (u JobUpdate) resulting(s JobState) JobStatus {
	if u.Status != nil {
		return *u.Status
	}
	return s.Status
}

// requireOutput rejects a completion that leaves the job without its output.
func requireOutput(next JobStatus, field string, present bool) error {
	if next == JobStatusCompleted && !present {
		return &ValidationError{Field: field, Message: "a completed job requires " + field}
	}
	return nil
}

// apply validates the transition and merges the update into s. It reports the
// resulting status so callers can clear kind-specific outputs.
func (u JobUpdate) apply(s *JobState) error {
	next := s.Status
	if u.Status != nil {
		next = *u.Status
	}
	if !s.Status.CanTransitionTo(next) {
		return &TransitionError{From: s.Status, To: next}
	}
	s.Status = next
	if u.Error != nil {
		msg := *u.Error
		s.Error = &msg
	}
	if u.Analysis != nil {
		a := *u.Analysis
		s.Analysis = &a
	}
	switch next {
	case JobStatusCompleted:
		s.Error = nil
	case JobStatusFailed:
		s.Analysis = nil
		if s.Error == nil {
			msg := "job failed"
			s.Error = &msg
		}
	}
	return nil
}

// StemSeparationJobPatch is a partial update of a stem separation job.
type StemSeparationJobPatch struct {
	JobUpdate
	OutputPaths StemPaths
}

// Apply merges the patch over j, enforcing the status state machine. A job
// can only complete with its output set.
func (p StemSeparationJobPatch) Apply(j *StemSeparationJob) error {
	present := len(p.OutputPaths) > 0 || (p.OutputPaths == nil && len(j.OutputPaths) > 0)
	if err := requireOutput(p.JobUpdate.resulting(j.JobState), "outputPaths", present); err != nil {
		return err
	}
	if err := p.JobUpdate.apply(&j.JobState); err != nil {
		return err
	}
	if p.OutputPaths != nil {
		j.OutputPaths = maps.Clone(p.OutputPaths)
	}
	if j.Status == JobStatusFailed {
		j.OutputPaths = nil
	}
	return nil
}

// VoiceCloningJobPatch is a partial update of a voice cloning job.
type VoiceCloningJobPatch struct {
	JobUpdate
	OutputPath *string
}

// Apply merges the patch over j, enforcing the status state machine. A job
// can only complete with its output set.
func (p VoiceCloningJobPatch) Apply(j *VoiceCloningJob) error {
	present := (p.OutputPath != nil && *p.OutputPath != "") || (p.OutputPath == nil && j.OutputPath != nil)
	if err := requireOutput(p.JobUpdate.resulting(j.JobState), "outputPath", present); err != nil {
		return err
	}
	if err := p.JobUpdate.apply(&j.JobState); err != nil {
		return err
	}
	if p.OutputPath != nil {
		out := *p.OutputPath
		j.OutputPath = &out
	}
	if j.Status == JobStatusFailed {
		j.OutputPath = nil
	}
	return nil
}

// MusicGenerationJobPatch is a partial update of a music generation job.
type MusicGenerationJobPatch struct {
	JobUpdate
	OutputPath *string
}

// Apply merges the patch over j, enforcing the status state machine. A job
// can only complete with its output set.
func (p MusicGenerationJobPatch) Apply(j *MusicGenerationJob) error {
	present := (p.OutputPath != nil && *p.OutputPath != "") || (p.OutputPath == nil && j.OutputPath != nil)
	if err := requireOutput(p.JobUpdate.resulting(j.JobState), "outputPath", present); err != nil {
		return err
	}
	if err := p.JobUpdate.apply(&j.JobState); err != nil {
		return err
	}
	if p.OutputPath != nil {
		out := *p.OutputPath
		j.OutputPath = &out
	}
	if j.Status == JobStatusFailed {
		j.OutputPath = nil
	}
	return nil
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}

package model

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"gorm.io/gorm"
)

// Known effect types. Any other type is stored with RawSettings.
const (
	EffectTypeEQ         = "eq"
	EffectTypeReverb     = "reverb"
	EffectTypeCompressor = "compressor"
)

// EffectSettings is the per-type configuration document of an effect.
type EffectSettings interface {
	EffectType() string
	Clone() EffectSettings
}

// EQBand is a single equalizer band.
type EQBand struct {
	Frequency float64 `json:"frequency"`
	Gain      float64 `json:"gain"`
}

// EQSettings configures an "eq" effect.
type EQSettings struct {
	Bands []EQBand `json:"bands"`
}

func (s *EQSettings) EffectType() string { return EffectTypeEQ }

func (s *EQSettings) Clone() EffectSettings {
	return &EQSettings{Bands: slices.Clone(s.Bands)}
}

// ReverbSettings configures a "reverb" effect.
type ReverbSettings struct {
	RoomSize  float64 `json:"roomSize"`
	Dampening float64 `json:"dampening"`
	Width     float64 `json:"width"`
	WetDry    float64 `json:"wetDry"`
	Preset    string  `json:"preset,omitempty"`
}

func (s *ReverbSettings) EffectType() string { return EffectTypeReverb }

func (s *ReverbSettings) Clone() EffectSettings {
	c := *s
	return &c
}

// CompressorSettings configures a "compressor" effect.
type CompressorSettings struct {
	Threshold  float64 `json:"threshold"`
	Ratio      float64 `json:"ratio"`
	Attack     float64 `json:"attack"`
	Release    float64 `json:"release"`
	Knee       float64 `json:"knee"`
	MakeupGain float64 `json:"makeupGain"`
}

func (s *CompressorSettings) EffectType() string { return EffectTypeCompressor }

func (s *CompressorSettings) Clone() EffectSettings {
	c := *s
	return &c
}

// RawSettings holds the settings of effect types without a dedicated shape.
type RawSettings struct {
	Type   string         `json:"-"`
	Values map[string]any `json:"-"`
}

func (s *RawSettings) EffectType() string { return s.Type }

func (s *RawSettings) Clone() EffectSettings {
	return &RawSettings{Type: s.Type, Values: maps.Clone(s.Values)}
}

func (s *RawSettings) MarshalJSON() ([]byte, error) {
	if s.Values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.Values)
}

// DecodeEffectSettings parses a settings document according to effectType.
// An empty document yields the zero settings of that type.
func DecodeEffectSettings(effectType string, data []byte) (EffectSettings, error) {
	if len(data) == 0 || string(data) == "null" {
		data = []byte("{}")
	}
	var settings EffectSettings
	switch effectType {
	case EffectTypeEQ:
		settings = &EQSettings{}
	case EffectTypeReverb:
		settings = &ReverbSettings{}
	case EffectTypeCompressor:
		settings = &CompressorSettings{}
	default:
		raw := &RawSettings{Type: effectType}
		if err := json.Unmarshal(data, &raw.Values); err != nil {
			return nil, &ValidationError{Field: "settings", Message: fmt.Sprintf("invalid %s settings: %v", effectType, err)}
		}
		return raw, nil
	}
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, &ValidationError{Field: "settings", Message: fmt.Sprintf("invalid %s settings: %v", effectType, err)}
	}
	return settings, nil
}

// Effect is a per-track audio-processing configuration.
type Effect struct {
	ID        int64          `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"size:255;not null"`
	Type      string         `json:"type" gorm:"size:32;not null"`
	TrackID   int64          `json:"trackId" gorm:"index;not null"`
	Settings  EffectSettings `json:"settings" gorm:"-"`
	Enabled   bool           `json:"enabled"`
	CreatedAt time.Time      `json:"createdAt"`

	// SettingsJSON is the persisted form of Settings.
	SettingsJSON string `json:"-" gorm:"column:settings;type:text"`
	Track        *Track `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name used by GORM.
func (Effect) TableName() string {
	return "effects"
}

// UnmarshalJSON decodes settings according to the effect type.
func (e *Effect) UnmarshalJSON(data []byte) error {
	type effectAlias Effect
	aux := struct {
		*effectAlias
		Settings json.RawMessage `json:"settings"`
	}{effectAlias: (*effectAlias)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	settings, err := DecodeEffectSettings(e.Type, aux.Settings)
	if err != nil {
		return err
	}
	e.Settings = settings
	return nil
}

// BeforeSave encodes Settings into the settings column.
func (e *Effect) BeforeSave(tx *gorm.DB) error {
	if e.Settings == nil {
		e.SettingsJSON = "{}"
		return nil
	}
	data, err := json.Marshal(e.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode effect settings: %w", err)
	}
	e.SettingsJSON = string(data)
	return nil
}

// AfterFind decodes the settings column into Settings.
func (e *Effect) AfterFind(tx *gorm.DB) error {
	settings, err := DecodeEffectSettings(e.Type, []byte(e.SettingsJSON))
	if err != nil {
		return fmt.Errorf("failed to decode settings of effect %d: %w", e.ID, err)
	}
	e.Settings = settings
	return nil
}

// Validate checks the fields required to create an effect.
func (e *Effect) Validate() error {
	if e.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if e.Type == "" {
		return &ValidationError{Field: "type", Message: "type is required"}
	}
	if e.TrackID <= 0 {
		return &ValidationError{Field: "trackId", Message: "trackId is required"}
	}
	if e.Settings != nil && e.Settings.EffectType() != e.Type {
		return &ValidationError{Field: "settings", Message: fmt.Sprintf("settings of type %s do not match effect type %s", e.Settings.EffectType(), e.Type)}
	}
	return nil
}

// FillDefaultSettings sets the zero settings of the effect type when none
// were given, matching what is read back from the settings column.
func (e *Effect) FillDefaultSettings() error {
	if e.Settings != nil {
		return nil
	}
	settings, err := DecodeEffectSettings(e.Type, nil)
	if err != nil {
		return err
	}
	e.Settings = settings
	return nil
}

// CloneEffect returns a copy of e that shares no mutable state with it.
func CloneEffect(e *Effect) *Effect {
	c := *e
	if e.Settings != nil {
		c.Settings = e.Settings.Clone()
	}
	c.Track = nil
	return &c
}

// EffectPatch is a partial update; nil fields are left untouched. Settings
// replace the whole document.
type EffectPatch struct {
	Name     *string        `json:"name,omitempty"`
	Settings EffectSettings `json:"settings,omitempty"`
	Enabled  *bool          `json:"enabled,omitempty"`
}

// Validate checks the patch against the effect it will be applied to.
func (p EffectPatch) Validate(effectType string) error {
	if p.Name != nil && *p.Name == "" {
		return &ValidationError{Field: "name", Message: "name cannot be empty"}
	}
	if p.Settings != nil && p.Settings.EffectType() != effectType {
		return &ValidationError{Field: "settings", Message: fmt.Sprintf("settings of type %s do not match effect type %s", p.Settings.EffectType(), effectType)}
	}
	return nil
}

// Apply merges the patch over e.
func (p EffectPatch) Apply(e *Effect) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Settings != nil {
		e.Settings = p.Settings.Clone()
	}
	if p.Enabled != nil {
		e.Enabled = *p.Enabled
	}
}

package server

import (
	"encoding/json"
	"net/http"

	"aistudio/model"
)

// GetEffectsHandler lists the effects of ?trackId=.
func (h *APIHandler) GetEffectsHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := queryID(r, "trackId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	effects, err := h.store.GetEffectsByTrackID(r.Context(), trackID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(effects))
}

// GetEffectHandler returns one effect.
func (h *APIHandler) GetEffectHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	effect, err := h.store.GetEffect(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if effect == nil {
		notFoundMessage(w, "effect", id)
		return
	}
	writeJSON(w, http.StatusOK, effect)
}

// CreateEffectHandler adds an effect to a track. Settings are decoded
// according to type; enabled defaults to true.
func (h *APIHandler) CreateEffectHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string          `json:"name"`
		Type     string          `json:"type"`
		TrackID  int64           `json:"trackId"`
		Settings json.RawMessage `json:"settings"`
		Enabled  *bool           `json:"enabled"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	effect := &model.Effect{
		Name:    req.Name,
		Type:    req.Type,
		TrackID: req.TrackID,
		Enabled: true,
	}
	if req.Enabled != nil {
		effect.Enabled = *req.Enabled
	}
	if err := effect.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	settings, err := model.DecodeEffectSettings(req.Type, req.Settings)
	if err != nil {
		writeError(w, r, err)
		return
	}
	effect.Settings = settings

	created, err := h.store.CreateEffect(r.Context(), effect)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateEffectHandler applies a partial update. A settings document replaces
// the stored one and is decoded with the effect's existing type.
func (h *APIHandler) UpdateEffectHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Name     *string         `json:"name"`
		Settings json.RawMessage `json:"settings"`
		Enabled  *bool           `json:"enabled"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	existing, err := h.store.GetEffect(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if existing == nil {
		notFoundMessage(w, "effect", id)
		return
	}

	patch := model.EffectPatch{Name: req.Name, Enabled: req.Enabled}
	if len(req.Settings) > 0 && string(req.Settings) != "null" {
		settings, err := model.DecodeEffectSettings(existing.Type, req.Settings)
		if err != nil {
			writeError(w, r, err)
			return
		}
		patch.Settings = settings
	}
	if err := patch.Validate(existing.Type); err != nil {
		writeError(w, r, err)
		return
	}
	effect, err := h.store.UpdateEffect(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, effect)
}

// DeleteEffectHandler removes an effect.
func (h *APIHandler) DeleteEffectHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	deleted, err := h.store.DeleteEffect(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !deleted {
		notFoundMessage(w, "effect", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

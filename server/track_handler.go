package server

import (
	"net/http"

	"aistudio/model"
)

// GetTracksHandler lists the tracks of ?projectId=.
func (h *APIHandler) GetTracksHandler(w http.ResponseWriter, r *http.Request) {
	projectID, err := queryID(r, "projectId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tracks, err := h.store.GetTracksByProjectID(r.Context(), projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tracks))
}

// GetTrackHandler returns one track.
func (h *APIHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	track, err := h.store.GetTrack(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if track == nil {
		notFoundMessage(w, "track", id)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

// CreateTrackHandler creates a track. color and volume take the studio
// defaults when omitted.
func (h *APIHandler) CreateTrackHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string          `json:"name"`
		Type      model.TrackType `json:"type"`
		ProjectID int64           `json:"projectId"`
		Color     *string         `json:"color"`
		Muted     bool            `json:"muted"`
		Solo      bool            `json:"solo"`
		Volume    *int            `json:"volume"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	track := &model.Track{
		Name:      req.Name,
		Type:      req.Type,
		ProjectID: req.ProjectID,
		Color:     model.DefaultTrackColor,
		Muted:     req.Muted,
		Solo:      req.Solo,
		Volume:    model.DefaultTrackVolume,
	}
	if req.Color != nil {
		track.Color = *req.Color
	}
	if req.Volume != nil {
		track.Volume = *req.Volume
	}
	if err := track.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.store.CreateTrack(r.Context(), track)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateTrackHandler applies a partial update.
func (h *APIHandler) UpdateTrackHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch model.TrackPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	if err := patch.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	track, err := h.store.UpdateTrack(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

// DeleteTrackHandler deletes a track with its clips and effects.
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	deleted, err := h.store.DeleteTrack(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !deleted {
		notFoundMessage(w, "track", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

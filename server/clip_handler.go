package server

import (
	"net/http"

	"aistudio/model"
)

// GetAudioClipsHandler lists the clips of ?trackId=.
func (h *APIHandler) GetAudioClipsHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := queryID(r, "trackId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	clips, err := h.store.GetAudioClipsByTrackID(r.Context(), trackID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(clips))
}

// GetAudioClipHandler returns one clip.
func (h *APIHandler) GetAudioClipHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	clip, err := h.store.GetAudioClip(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if clip == nil {
		notFoundMessage(w, "audio clip", id)
		return
	}
	writeJSON(w, http.StatusOK, clip)
}

// CreateAudioClipHandler places a clip on a track. Times are milliseconds.
func (h *APIHandler) CreateAudioClipHandler(w http.ResponseWriter, r *http.Request) {
	var clip model.AudioClip
	if err := decodeJSON(r, &clip); err != nil {
		writeError(w, r, err)
		return
	}
	clip.ID = 0
	if err := clip.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.store.CreateAudioClip(r.Context(), &clip)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateAudioClipHandler applies a partial update. Setting trackId moves the
// clip to another track.
func (h *APIHandler) UpdateAudioClipHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch model.AudioClipPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	if err := patch.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	clip, err := h.store.UpdateAudioClip(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clip)
}

// DeleteAudioClipHandler deletes a clip and its mood tag links.
func (h *APIHandler) DeleteAudioClipHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	deleted, err := h.store.DeleteAudioClip(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !deleted {
		notFoundMessage(w, "audio clip", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

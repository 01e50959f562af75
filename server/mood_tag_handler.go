package server

import (
	"net/http"

	"aistudio/model"
)

// GetMoodTagsHandler lists every mood tag.
func (h *APIHandler) GetMoodTagsHandler(w http.ResponseWriter, r *http.Request) {
	tags, err := h.store.GetMoodTags(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tags))
}

// GetMoodTagHandler returns one mood tag.
func (h *APIHandler) GetMoodTagHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tag, err := h.store.GetMoodTag(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tag == nil {
		notFoundMessage(w, "mood tag", id)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// CreateMoodTagHandler creates a mood tag. Names are unique.
func (h *APIHandler) CreateMoodTagHandler(w http.ResponseWriter, r *http.Request) {
	var tag model.MoodTag
	if err := decodeJSON(r, &tag); err != nil {
		writeError(w, r, err)
		return
	}
	tag.ID = 0
	if err := tag.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.store.CreateMoodTag(r.Context(), &tag)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateMoodTagHandler applies a partial update.
func (h *APIHandler) UpdateMoodTagHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch model.MoodTagPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	if err := patch.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	tag, err := h.store.UpdateMoodTag(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// DeleteMoodTagHandler deletes a mood tag and detaches it from every clip.
func (h *APIHandler) DeleteMoodTagHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	deleted, err := h.store.DeleteMoodTag(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !deleted {
		notFoundMessage(w, "mood tag", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMoodTagClipsHandler lists the clips carrying a mood tag.
func (h *APIHandler) GetMoodTagClipsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	clips, err := h.store.GetAudioClipsByMoodTagID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(clips))
}

// ========== Clip links ==========

// GetAudioClipMoodTagsHandler lists the weighted tags of a clip.
func (h *APIHandler) GetAudioClipMoodTagsHandler(w http.ResponseWriter, r *http.Request) {
	clipID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	links, err := h.store.GetAudioClipMoodTags(r.Context(), clipID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(links))
}

// AddAudioClipMoodTagHandler attaches a tag to a clip, or rewrites the weight
// of an existing link.
func (h *APIHandler) AddAudioClipMoodTagHandler(w http.ResponseWriter, r *http.Request) {
	clipID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		MoodTagID int64 `json:"moodTagId"`
		Weight    int   `json:"weight"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.MoodTagID <= 0 {
		writeError(w, r, &model.ValidationError{Field: "moodTagId", Message: "moodTagId is required"})
		return
	}
	link, err := h.store.AddMoodTagToAudioClip(r.Context(), &model.AudioClipMoodTag{
		AudioClipID: clipID,
		MoodTagID:   req.MoodTagID,
		Weight:      req.Weight,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

// UpdateAudioClipMoodTagHandler changes the weight of an existing link.
func (h *APIHandler) UpdateAudioClipMoodTagHandler(w http.ResponseWriter, r *http.Request) {
	clipID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tagID, err := pathID(r, "tagId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Weight int `json:"weight"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	link, err := h.store.UpdateAudioClipMoodTagWeight(r.Context(), clipID, tagID, req.Weight)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// RemoveAudioClipMoodTagHandler detaches a tag from a clip.
func (h *APIHandler) RemoveAudioClipMoodTagHandler(w http.ResponseWriter, r *http.Request) {
	clipID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tagID, err := pathID(r, "tagId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	removed, err := h.store.RemoveMoodTagFromAudioClip(r.Context(), clipID, tagID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !removed {
		writeMessage(w, http.StatusNotFound, "mood tag is not attached to audio clip")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

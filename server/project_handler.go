package server

import (
	"net/http"

	"aistudio/model"
)

// GetProjectsHandler lists the projects of ?userId=.
func (h *APIHandler) GetProjectsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := queryID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	projects, err := h.store.GetProjectsByUserID(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(projects))
}

// GetProjectHandler returns one project.
func (h *APIHandler) GetProjectHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	project, err := h.store.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if project == nil {
		notFoundMessage(w, "project", id)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// CreateProjectHandler creates a project. bpm and timeSignature default to
// 120 and 4/4.
func (h *APIHandler) CreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          string `json:"name"`
		UserID        int64  `json:"userId"`
		BPM           int    `json:"bpm"`
		TimeSignature string `json:"timeSignature"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	project := &model.Project{
		Name:          req.Name,
		UserID:        req.UserID,
		BPM:           req.BPM,
		TimeSignature: req.TimeSignature,
	}
	project.ApplyDefaults()
	if err := project.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.store.CreateProject(r.Context(), project)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateProjectHandler applies a partial update.
func (h *APIHandler) UpdateProjectHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch model.ProjectPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	if err := patch.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	project, err := h.store.UpdateProject(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// DeleteProjectHandler deletes a project with its tracks and jobs.
func (h *APIHandler) DeleteProjectHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	deleted, err := h.store.DeleteProject(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !deleted {
		notFoundMessage(w, "project", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// nonNil makes empty lists encode as [] instead of null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

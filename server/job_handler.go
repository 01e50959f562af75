package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"aistudio/model"
)

// maxUploadMemory is the part of a multipart body kept in memory; the rest
// spills to temp files.
const maxUploadMemory = 32 << 20

// jobRequest holds job submission fields from a multipart form, a urlencoded
// form or a JSON body.
type jobRequest struct {
	values map[string]string
	files  map[string][]*multipart.FileHeader
}

func parseJobRequest(r *http.Request) (*jobRequest, error) {
	req := &jobRequest{values: map[string]string{}}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			return nil, &model.ValidationError{Message: "failed to parse multipart form: " + err.Error()}
		}
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				req.values[k] = v[0]
			}
		}
		req.files = r.MultipartForm.File
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, &model.ValidationError{Message: "failed to parse form: " + err.Error()}
		}
		for k := range r.PostForm {
			req.values[k] = r.PostForm.Get(k)
		}
	default:
		var body map[string]interface{}
		dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			return nil, &model.ValidationError{Message: "invalid JSON body: " + err.Error()}
		}
		for k, v := range body {
			if v != nil {
				req.values[k] = fmt.Sprint(v)
			}
		}
	}
	return req, nil
}

func (j *jobRequest) projectID() (int64, error) {
	raw := j.values["projectId"]
	if raw == "" {
		return 0, &model.ValidationError{Field: "projectId", Message: "projectId is required"}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &model.ValidationError{Field: "projectId", Message: fmt.Sprintf("invalid projectId %q", raw)}
	}
	return id, nil
}

// audioSource saves the first uploaded file among fileFields and returns its
// public path. Without an upload it falls back to an already stored path
// given in pathField.
func (h *APIHandler) audioSource(j *jobRequest, pathField string, fileFields ...string) (string, error) {
	for _, field := range fileFields {
		headers := j.files[field]
		if len(headers) == 0 {
			continue
		}
		f, err := headers[0].Open()
		if err != nil {
			return "", fmt.Errorf("open upload %s: %w", field, err)
		}
		defer f.Close()
		return h.uploads.Save(f, headers[0].Filename)
	}
	if p := j.values[pathField]; p != "" {
		return p, nil
	}
	return "", &model.ValidationError{Field: fileFields[0], Message: fileFields[0] + " file is required"}
}

// ========== Stem separation ==========

// CreateStemSeparationHandler accepts a mix (multipart "file") and a
// projectId, and returns the pending job.
func (h *APIHandler) CreateStemSeparationHandler(w http.ResponseWriter, r *http.Request) {
	req, err := parseJobRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	projectID, err := req.projectID()
	if err != nil {
		writeError(w, r, err)
		return
	}
	source, err := h.audioSource(req, "originalPath", "file", "audio")
	if err != nil {
		writeError(w, r, err)
		return
	}
	job, err := h.dispatcher.CreateAndProcessStemSeparation(r.Context(), &model.StemSeparationJob{
		ProjectID:    projectID,
		OriginalPath: source,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// GetStemSeparationHandler returns the current state of a job.
func (h *APIHandler) GetStemSeparationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	job, err := h.store.GetStemSeparationJob(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if job == nil {
		notFoundMessage(w, "stem separation job", id)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// GetStemSeparationsHandler lists the jobs of ?projectId=.
func (h *APIHandler) GetStemSeparationsHandler(w http.ResponseWriter, r *http.Request) {
	projectID, err := queryID(r, "projectId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	jobs, err := h.store.GetStemSeparationJobsByProjectID(r.Context(), projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(jobs))
}

// ========== Voice cloning ==========

// CreateVoiceCloningHandler accepts a voice sample (multipart "sample"), the
// text to read and a projectId.
func (h *APIHandler) CreateVoiceCloningHandler(w http.ResponseWriter, r *http.Request) {
	req, err := parseJobRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	projectID, err := req.projectID()
	if err != nil {
		writeError(w, r, err)
		return
	}
	text := req.values["text"]
	if text == "" {
		writeError(w, r, &model.ValidationError{Field: "text", Message: "text is required"})
		return
	}
	sample, err := h.audioSource(req, "samplePath", "sample", "file")
	if err != nil {
		writeError(w, r, err)
		return
	}
	job, err := h.dispatcher.CreateAndProcessVoiceCloning(r.Context(), &model.VoiceCloningJob{
		ProjectID:  projectID,
		SamplePath: sample,
		Text:       text,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// GetVoiceCloningHandler returns the current state of a job.
func (h *APIHandler) GetVoiceCloningHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	job, err := h.store.GetVoiceCloningJob(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if job == nil {
		notFoundMessage(w, "voice cloning job", id)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// GetVoiceCloningsHandler lists the jobs of ?projectId=.
func (h *APIHandler) GetVoiceCloningsHandler(w http.ResponseWriter, r *http.Request) {
	projectID, err := queryID(r, "projectId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	jobs, err := h.store.GetVoiceCloningJobsByProjectID(r.Context(), projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(jobs))
}

// ========== Music generation ==========

// CreateMusicGenerationHandler accepts a prompt and a projectId as JSON or
// form fields.
func (h *APIHandler) CreateMusicGenerationHandler(w http.ResponseWriter, r *http.Request) {
	req, err := parseJobRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	projectID, err := req.projectID()
	if err != nil {
		writeError(w, r, err)
		return
	}
	job, err := h.dispatcher.CreateAndProcessMusicGeneration(r.Context(), &model.MusicGenerationJob{
		ProjectID: projectID,
		Prompt:    req.values["prompt"],
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// GetMusicGenerationHandler returns the current state of a job.
func (h *APIHandler) GetMusicGenerationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	job, err := h.store.GetMusicGenerationJob(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if job == nil {
		notFoundMessage(w, "music generation job", id)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// GetMusicGenerationsHandler lists the jobs of ?projectId=.
func (h *APIHandler) GetMusicGenerationsHandler(w http.ResponseWriter, r *http.Request) {
	projectID, err := queryID(r, "projectId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	jobs, err := h.store.GetMusicGenerationJobsByProjectID(r.Context(), projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(jobs))
}

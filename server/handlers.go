package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"aistudio/config"
	"aistudio/core/jobs"
	"aistudio/logger"
	"aistudio/model"
	"aistudio/repository"
	"aistudio/storage"

	"github.com/gorilla/mux"
)

// maxJSONBody bounds request bodies that are decoded as JSON.
const maxJSONBody = 1 << 20

// APIHandler serves the studio REST API.
type APIHandler struct {
	store      repository.Store
	dispatcher *jobs.Dispatcher
	uploads    storage.Uploads
	cfg        *config.Config
}

// NewAPIHandler creates an APIHandler over an already selected store.
func NewAPIHandler(store repository.Store, dispatcher *jobs.Dispatcher, uploads storage.Uploads, cfg *config.Config) *APIHandler {
	return &APIHandler{
		store:      store,
		dispatcher: dispatcher,
		uploads:    uploads,
		cfg:        cfg,
	}
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Message string `json:"message"`
}

// kindError is implemented by the typed errors of model and repository.
type kindError interface {
	error
	ErrorKind() string
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", logger.ErrorField(err))
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

// writeError maps typed errors to status codes. Anything untyped is logged
// and reported as a generic internal error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var kerr kindError
	if errors.As(err, &kerr) {
		switch kerr.ErrorKind() {
		case "validation":
			writeMessage(w, http.StatusBadRequest, kerr.Error())
			return
		case "not_found":
			writeMessage(w, http.StatusNotFound, kerr.Error())
			return
		case "conflict":
			writeMessage(w, http.StatusConflict, kerr.Error())
			return
		}
	}
	logger.Error("Request failed",
		logger.String("method", r.Method),
		logger.String("path", r.URL.Path),
		logger.ErrorField(err))
	writeMessage(w, http.StatusInternalServerError, "internal server error")
}

func notFoundMessage(w http.ResponseWriter, entity string, id int64) {
	writeMessage(w, http.StatusNotFound, fmt.Sprintf("%s %d not found", entity, id))
}

// decodeJSON reads a JSON body into v. Malformed bodies are validation errors.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		return &model.ValidationError{Message: "invalid JSON body: " + err.Error()}
	}
	return nil
}

// pathID parses the named mux variable as a positive id.
func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &model.ValidationError{Field: name, Message: fmt.Sprintf("invalid %s %q", name, raw)}
	}
	return id, nil
}

// queryID parses a required positive id from the query string.
func queryID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, &model.ValidationError{Field: name, Message: name + " query parameter is required"}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &model.ValidationError{Field: name, Message: fmt.Sprintf("invalid %s %q", name, raw)}
	}
	return id, nil
}

// HealthHandler reports liveness and the active store backend.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": h.store.Backend(),
	})
}

package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"aistudio/storage"
)

// StaticHandler serves files below a directory under a URL prefix. Directory
// listings are not served.
type StaticHandler struct {
	dir          string
	prefix       string
	cacheControl string
}

// NewStaticHandler serves dir at prefix.
func NewStaticHandler(dir, prefix, cacheControl string) *StaticHandler {
	return &StaticHandler{dir: dir, prefix: strings.TrimSuffix(prefix, "/") + "/", cacheControl: cacheControl}
}

// ServeHTTP implements the http.Handler interface.
func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(path.Clean("/"+strings.TrimPrefix(r.URL.Path, h.prefix)), "/")
	if rel == "" || rel == "." {
		writeMessage(w, http.StatusNotFound, "file not found")
		return
	}
	name := filepath.Join(h.dir, filepath.FromSlash(rel))
	info, err := os.Stat(name)
	if err != nil || info.IsDir() {
		writeMessage(w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Type", storage.ContentType(name))
	if h.cacheControl != "" {
		w.Header().Set("Cache-Control", h.cacheControl)
	}
	http.ServeFile(w, r, name)
}

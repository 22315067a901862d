package handler

import (
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"scriptrun/inspect"
	"scriptrun/scriptstore"
)

// Scripts serves the allow-listed script directory: listing, input
// discovery, upload and deletion.
type Scripts struct {
	Logger *log.Logger
	Store  *scriptstore.Store
}

// List handles GET /scripts.
func (h *Scripts) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Logger, http.StatusOK, h.Store.List())
}

// Meta handles GET /scripts/{name}/meta: script type plus the ordered
// inputs a python script asks for. Shell scripts report no inputs, and a
// failed scan reports an empty list rather than an error.
func (h *Scripts) Meta(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	path, err := h.Store.Resolve(name)
	if err != nil {
		writeError(w, h.Logger, http.StatusNotFound, "script not found")
		return
	}

	inputs := []inspect.InputCall{}
	if filepath.Ext(path) == ".py" {
		if found := inspect.InputCalls(path); found != nil {
			inputs = found
		}
	}
	writeJSON(w, h.Logger, http.StatusOK, map[string]interface{}{
		"script": name,
		"type":   strings.TrimPrefix(filepath.Ext(path), "."),
		"inputs": inputs,
	})
}

// Upload handles POST /scripts with a multipart "file" field.
func (h *Scripts) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, h.Logger, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, scriptstore.MaxScriptSize+1))
	if err != nil {
		writeError(w, h.Logger, http.StatusBadRequest, "cannot read upload")
		return
	}
	if len(content) > scriptstore.MaxScriptSize {
		writeError(w, h.Logger, http.StatusBadRequest, "file too large")
		return
	}

	if err := h.Store.Save(header.Filename, content); err != nil {
		if err == scriptstore.ErrInvalidName {
			writeError(w, h.Logger, http.StatusBadRequest, "invalid filename (only .py/.sh allowed)")
			return
		}
		h.Logger.Printf("Saving script %s: %v\n", header.Filename, err)
		writeError(w, h.Logger, http.StatusInternalServerError, "cannot save script")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"script": header.Filename,
	})
}

// Delete handles DELETE /scripts/{name}.
func (h *Scripts) Delete(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := h.Store.Delete(name); err != nil {
		switch err {
		case scriptstore.ErrInvalidName:
			writeError(w, h.Logger, http.StatusBadRequest, "invalid filename")
		case scriptstore.ErrNotFound:
			writeError(w, h.Logger, http.StatusNotFound, "not found")
		default:
			h.Logger.Printf("Deleting script %s: %v\n", name, err)
			writeError(w, h.Logger, http.StatusInternalServerError, "cannot delete script")
		}
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"deleted": name,
	})
}

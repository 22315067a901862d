package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"scriptrun/inspect"
	"scriptrun/repo"
)

// Repos serves repository provisioning: clone, pull, delete and file
// discovery inside cloned repositories.
type Repos struct {
	Logger  *log.Logger
	Manager *repo.Manager
}

// tailLimit bounds how much git output goes back to the client on failures.
const tailLimit = 2000

// List handles GET /repos.
func (h *Repos) List(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Manager.List()
	if err != nil {
		h.Logger.Printf("Listing repos: %v\n", err)
		writeError(w, h.Logger, http.StatusInternalServerError, "cannot list repos")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, ids)
}

// Clone handles POST /repos/clone with {"url": ...}.
func (h *Repos) Clone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.Logger, http.StatusBadRequest, "invalid request body")
		return
	}

	id, output, err := h.Manager.Clone(r.Context(), req.URL)
	if err == repo.ErrInvalidURL {
		writeError(w, h.Logger, http.StatusBadRequest, "invalid git URL")
		return
	}
	if err != nil {
		h.Logger.Printf("Clone of %s failed: %v\n", req.URL, err)
		writeJSON(w, h.Logger, http.StatusBadRequest, map[string]string{
			"error":   "clone failed",
			"details": tail(output, tailLimit),
		})
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"repo_id": id,
	})
}

// Pull handles POST /repos/{repoId}/pull.
func (h *Repos) Pull(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["repoId"]
	output, err := h.Manager.Pull(r.Context(), id)
	if err == repo.ErrNotFound {
		writeError(w, h.Logger, http.StatusNotFound, "repo not found")
		return
	}
	if err != nil {
		h.Logger.Printf("Pull of %s failed: %v\n", id, err)
		writeJSON(w, h.Logger, http.StatusBadRequest, map[string]string{
			"error":   "pull failed",
			"details": tail(output, tailLimit),
		})
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"output": tail(output, tailLimit),
	})
}

// Delete handles DELETE /repos/{repoId}.
func (h *Repos) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["repoId"]
	if err := h.Manager.Delete(id); err != nil {
		if err == repo.ErrNotFound {
			writeError(w, h.Logger, http.StatusNotFound, "repo not found")
			return
		}
		h.Logger.Printf("Deleting repo %s: %v\n", id, err)
		writeError(w, h.Logger, http.StatusBadRequest, "delete failed")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"deleted": id,
	})
}

// Files handles GET /repos/{repoId}/files.
func (h *Repos) Files(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["repoId"]
	files, err := h.Manager.Files(id)
	if err != nil {
		writeError(w, h.Logger, http.StatusNotFound, "repo not found")
		return
	}
	if files == nil {
		files = []string{}
	}
	writeJSON(w, h.Logger, http.StatusOK, map[string]interface{}{
		"repo_id": id,
		"files":   files,
	})
}

// Meta handles GET /repos/{repoId}/meta?path=... and mirrors the script
// meta endpoint for a file inside a repository.
func (h *Repos) Meta(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["repoId"]
	rel := r.URL.Query().Get("path")
	path, _, err := h.Manager.ResolveFile(id, rel)
	if err != nil {
		writeError(w, h.Logger, http.StatusNotFound, "file not found")
		return
	}

	inputs := []inspect.InputCall{}
	if filepath.Ext(path) == ".py" {
		if found := inspect.InputCalls(path); found != nil {
			inputs = found
		}
	}
	writeJSON(w, h.Logger, http.StatusOK, map[string]interface{}{
		"repo_id": id,
		"path":    rel,
		"type":    strings.TrimPrefix(filepath.Ext(path), "."),
		"inputs":  inputs,
	})
}

// tail returns the last n bytes of s.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

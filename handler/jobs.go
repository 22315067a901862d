package handler

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"

	"scriptrun/model"
	"scriptrun/repo"
	"scriptrun/runner"
	"scriptrun/scriptstore"
)

// Jobs serves run requests and job state lookups.
type Jobs struct {
	Logger   *log.Logger
	Registry *model.Registry
	Scripts  *scriptstore.Store
	Repos    *repo.Manager
	Runner   *runner.Runner
}

// Run handles POST /run: resolve the script, create a registry entry and
// kick off the runner goroutine. The caller only ever gets the job id back;
// process failures are observed through polling or the live channel.
func (h *Jobs) Run(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Script    string          `json:"script"`
		Args      []string        `json:"args"`
		InputVars json.RawMessage `json:"input_vars"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.Logger, http.StatusBadRequest, "invalid request body")
		return
	}

	path, err := h.Scripts.Resolve(req.Script)
	if err != nil {
		writeError(w, h.Logger, http.StatusNotFound, "script not found")
		return
	}

	job := h.Registry.Create(req.Script)
	h.Logger.Printf("Job %v created for script %s\n", job.ID, req.Script)
	go h.Runner.Run(runner.Request{
		Job:   job,
		Path:  path,
		Args:  req.Args,
		Input: coerceInputs(req.InputVars),
	})
	writeJSON(w, h.Logger, http.StatusOK, map[string]string{"job_id": job.ID})
}

// RunRepo handles POST /run_repo, the repository variant of Run: the script
// runs with the repository root as its working directory and the job's
// script ref is "<repo-id>:<relative-path>".
func (h *Jobs) RunRepo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RepoID    string          `json:"repo_id"`
		Path      string          `json:"path"`
		Args      []string        `json:"args"`
		InputVars json.RawMessage `json:"input_vars"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.Logger, http.StatusBadRequest, "invalid request body")
		return
	}

	path, workDir, err := h.Repos.ResolveFile(req.RepoID, req.Path)
	if err != nil {
		writeError(w, h.Logger, http.StatusNotFound, "repo file not found")
		return
	}

	job := h.Registry.Create(req.RepoID + ":" + req.Path)
	h.Logger.Printf("Job %v created for repo file %s:%s\n", job.ID, req.RepoID, req.Path)
	go h.Runner.Run(runner.Request{
		Job:     job,
		Path:    path,
		Args:    req.Args,
		WorkDir: workDir,
		Input:   coerceInputs(req.InputVars),
	})
	writeJSON(w, h.Logger, http.StatusOK, map[string]string{"job_id": job.ID})
}

// Get handles GET /jobs/{jobId} and returns a snapshot of the job state.
func (h *Jobs) Get(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]
	job, ok := h.Registry.Get(jobID)
	if !ok {
		writeError(w, h.Logger, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, job.Snapshot())
}

// Log handles GET /logs/{jobId}.log and serves the full transcript from the
// durable file, not the bounded in-memory history.
func (h *Jobs) Log(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]
	job, ok := h.Registry.Get(jobID)
	if !ok {
		writeError(w, h.Logger, http.StatusNotFound, "not found")
		return
	}
	content, err := os.ReadFile(job.LogPath)
	if err != nil {
		writeError(w, h.Logger, http.StatusNotFound, "log missing")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(content)
}

// Download handles GET /download/{jobId} and reports where the transcript
// file lives.
func (h *Jobs) Download(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]
	job, ok := h.Registry.Get(jobID)
	if !ok {
		writeError(w, h.Logger, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, map[string]string{"log_file": job.LogPath})
}

// coerceInputs turns the raw input_vars value into the flat list of strings
// fed to the process. Anything that is not a JSON array is treated as empty
// rather than rejected, and heterogeneous elements are stringified
// permissively.
func coerceInputs(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var vals []interface{}
	if err := dec.Decode(&vals); err != nil || vals == nil {
		return nil
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case json.Number:
			out = append(out, t.String())
		case bool:
			out = append(out, strconv.FormatBool(t))
		case nil:
			out = append(out, "")
		default:
			// Arrays and objects re-serialize as their JSON text.
			b, err := json.Marshal(t)
			if err != nil {
				out = append(out, "")
				continue
			}
			out = append(out, string(b))
		}
	}
	return out
}

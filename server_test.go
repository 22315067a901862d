package main

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"scriptrun/config"
	"scriptrun/model"
	"scriptrun/repo"
	"scriptrun/scriptstore"
)

func TestBuildRouterWiring(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	root := t.TempDir()
	cfg := config.Default()
	cfg.ScriptsDir = filepath.Join(root, "scripts")
	cfg.LogsDir = filepath.Join(root, "logs")
	cfg.ReposDir = filepath.Join(root, "repos")

	scripts, err := scriptstore.New(cfg.ScriptsDir, logger)
	require.NoError(t, err)
	repos, err := repo.NewManager(cfg.ReposDir, logger)
	require.NoError(t, err)
	registry := model.NewRegistry(cfg.LogsDir, cfg.HistoryCap, 0)

	router := buildRouter(logger, cfg, registry, scripts, repos)

	cases := []struct {
		method, path string
		code         int
	}{
		{http.MethodGet, "/scripts", http.StatusOK},
		{http.MethodGet, "/repos", http.StatusOK},
		{http.MethodGet, "/jobs/unknown", http.StatusNotFound},
		{http.MethodGet, "/logs/unknown.log", http.StatusNotFound},
		{http.MethodPost, "/scripts", http.StatusBadRequest},
		{http.MethodDelete, "/jobs/unknown", http.StatusMethodNotAllowed},
	}
	for _, c := range cases {
		req := httptest.NewRequest(c.method, c.path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, c.code, rr.Code, "%s %s", c.method, c.path)
	}
}

package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/mux"

	"scriptrun/config"
	"scriptrun/handler"
	"scriptrun/model"
	"scriptrun/repo"
	"scriptrun/runner"
	"scriptrun/scriptstore"
)

// http server adapted from: https://gist.github.com/enricofoltran/10b4a980cd07cb02836f70a4ab3e72d7

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags|log.LUTC|log.Lshortfile)
	logger.Printf("Server is starting...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Could not load config: %v\n", err)
	}
	if err := os.MkdirAll(cfg.LogsDir, 0o755); err != nil {
		logger.Fatalf("Could not create logs dir: %v\n", err)
	}

	scripts, err := scriptstore.New(cfg.ScriptsDir, logger)
	if err != nil {
		logger.Fatalf("Could not open script store: %v\n", err)
	}
	repos, err := repo.NewManager(cfg.ReposDir, logger)
	if err != nil {
		logger.Fatalf("Could not open repo dir: %v\n", err)
	}
	registry := model.NewRegistry(cfg.LogsDir, cfg.HistoryCap, cfg.JobRetention.Std())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go scripts.Watch(ctx)
	if cfg.JobRetention.Std() > 0 {
		go registry.RunSweeper(ctx, time.Minute)
	}

	router := buildRouter(logger, cfg, registry, scripts, repos)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler.Logging(logger)(router),
		ErrorLog:     logger,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)

	go func() {
		<-quit
		logger.Printf("Server is shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Std())
		defer shutdownCancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Fatalf("Could not gracefully shutdown the server: %v\n", err)
		}
		close(done)
	}()

	logger.Println("Server is ready to handle requests at", cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Could not listen on %s: %v\n", cfg.ListenAddr, err)
	}

	<-done
	logger.Printf("Server stopped")
}

// buildRouter wires every handler onto the mux router.
func buildRouter(logger *log.Logger, cfg config.Config, registry *model.Registry,
	scripts *scriptstore.Store, repos *repo.Manager) *mux.Router {

	jobs := &handler.Jobs{
		Logger:   logger,
		Registry: registry,
		Scripts:  scripts,
		Repos:    repos,
		Runner:   runner.New(logger),
	}
	scriptsH := &handler.Scripts{Logger: logger, Store: scripts}
	reposH := &handler.Repos{Logger: logger, Manager: repos}
	stream := handler.NewStream(logger, registry, cfg.PollInterval.Std())

	router := mux.NewRouter().StrictSlash(true)

	router.HandleFunc("/scripts", scriptsH.List).Methods(http.MethodGet)
	router.HandleFunc("/scripts", scriptsH.Upload).Methods(http.MethodPost)
	router.HandleFunc("/scripts/{name}/meta", scriptsH.Meta).Methods(http.MethodGet)
	router.HandleFunc("/scripts/{name}", scriptsH.Delete).Methods(http.MethodDelete)

	router.HandleFunc("/repos", reposH.List).Methods(http.MethodGet)
	router.HandleFunc("/repos/clone", reposH.Clone).Methods(http.MethodPost)
	router.HandleFunc("/repos/{repoId}/pull", reposH.Pull).Methods(http.MethodPost)
	router.HandleFunc("/repos/{repoId}/files", reposH.Files).Methods(http.MethodGet)
	router.HandleFunc("/repos/{repoId}/meta", reposH.Meta).Methods(http.MethodGet)
	router.HandleFunc("/repos/{repoId}", reposH.Delete).Methods(http.MethodDelete)

	router.HandleFunc("/run", jobs.Run).Methods(http.MethodPost)
	router.HandleFunc("/run_repo", jobs.RunRepo).Methods(http.MethodPost)
	router.HandleFunc("/jobs/{jobId}", jobs.Get).Methods(http.MethodGet)
	router.HandleFunc("/logs/{jobId}.log", jobs.Log).Methods(http.MethodGet)
	router.HandleFunc("/download/{jobId}", jobs.Download).Methods(http.MethodGet)

	router.HandleFunc("/ws/{jobId}", stream.Serve).Methods(http.MethodGet)

	return router
}

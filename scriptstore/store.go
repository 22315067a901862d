// Package scriptstore owns the directory of allow-listed runnable scripts.
package scriptstore

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Only plain .py/.sh files with safe names are ever served or executed.
// Names starting with "_" are hidden from listings.
var safeNameRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]+\.(py|sh)$`)

// MaxScriptSize caps uploaded script content.
const MaxScriptSize = 300_000

var (
	// ErrInvalidName means the name failed the allow-list pattern.
	ErrInvalidName = errors.New("invalid script name")
	// ErrNotFound means no such script exists in the store.
	ErrNotFound = errors.New("script not found")
)

// A Store scans and resolves scripts under one base directory, keeping a
// cached listing that a directory watcher refreshes.
type Store struct {
	dir    string
	logger *log.Logger

	mu    sync.RWMutex
	names []string
}

// New creates the directory if needed and performs the initial scan.
func New(dir string, l *log.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &Store{dir: dir, logger: l}
	if err := s.Rescan(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the store's base directory.
func (s *Store) Dir() string { return s.dir }

// List returns the cached sorted script names.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Rescan rebuilds the cached listing from the directory contents.
func (s *Store) Rescan() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "_") {
			continue
		}
		ext := filepath.Ext(name)
		if ext != ".py" && ext != ".sh" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	s.mu.Lock()
	s.names = names
	s.mu.Unlock()
	return nil
}

// Resolve validates a script name and returns its absolute path. The name
// pattern admits no path separators, so the result always stays inside the
// store directory.
func (s *Store) Resolve(name string) (string, error) {
	if !safeNameRe.MatchString(name) {
		return "", ErrInvalidName
	}
	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", ErrNotFound
	}
	return path, nil
}

// Save writes an uploaded script, marks it executable and refreshes the
// listing.
func (s *Store) Save(name string, content []byte) error {
	if !safeNameRe.MatchString(name) {
		return ErrInvalidName
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), content, 0o755); err != nil {
		return err
	}
	return s.Rescan()
}

// Delete removes a script from the store.
func (s *Store) Delete(name string) error {
	path, err := s.Resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return err
	}
	return s.Rescan()
}

// Watch keeps the cached listing fresh until ctx is done, reacting to
// directory events. If the watcher cannot be set up it falls back to
// polling, so out-of-band edits to the scripts directory still show up.
func (s *Store) Watch(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Printf("Script watcher unavailable, polling instead: %v\n", err)
		s.pollWatch(ctx)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		s.logger.Printf("Cannot watch %s, polling instead: %v\n", s.dir, err)
		s.pollWatch(ctx)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0 {
				if err := s.Rescan(); err != nil {
					s.logger.Printf("Rescanning scripts: %v\n", err)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Printf("Script watcher: %v\n", err)
		}
	}
}

// pollWatch is the fallback for when fsnotify does not work.
func (s *Store) pollWatch(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Rescan(); err != nil {
				s.logger.Printf("Rescanning scripts: %v\n", err)
			}
		}
	}
}

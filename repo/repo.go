// Package repo provisions version-controlled script directories by shelling
// out to git. Each cloned repository lives under its own generated id and
// scripts inside it run with the repository root as working directory.
package repo

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	repoIDRe = regexp.MustCompile(`^repo-[a-f0-9]{8}$`)
	// Basic sanity check only -- git itself is the real validator.
	gitURLRe = regexp.MustCompile(`^(https://|git@)\S+$`)
)

var (
	// ErrInvalidURL means the clone URL failed the sanity check.
	ErrInvalidURL = errors.New("invalid git URL")
	// ErrNotFound means no repository exists for the id, or the requested
	// file is not a runnable file inside it.
	ErrNotFound = errors.New("repo not found")
)

// A Manager owns the base directory all repositories are cloned under.
type Manager struct {
	dir    string
	logger *log.Logger
}

// NewManager creates the base directory if needed.
func NewManager(dir string, l *log.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Manager{dir: dir, logger: l}, nil
}

// List returns the ids of all provisioned repositories, sorted.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && repoIDRe.MatchString(e.Name()) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Clone shallow-clones a repository under a fresh id. On failure the partial
// clone directory is removed best-effort and the combined git output is
// returned for the caller to report.
func (m *Manager) Clone(ctx context.Context, url string) (id, output string, err error) {
	if !gitURLRe.MatchString(strings.TrimSpace(url)) {
		return "", "", ErrInvalidURL
	}
	u := uuid.New()
	id = "repo-" + hex.EncodeToString(u[:4])
	dest := filepath.Join(m.dir, id)

	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", url, dest)
	out, err := cmd.CombinedOutput()
	output = string(out)
	if err != nil {
		if rmErr := os.RemoveAll(dest); rmErr != nil {
			m.logger.Printf("Cleaning up failed clone %s: %v\n", id, rmErr)
		}
		return "", output, fmt.Errorf("clone failed: %w", err)
	}
	return id, output, nil
}

// Pull runs git pull inside an existing repository and returns the combined
// git output.
func (m *Manager) Pull(ctx context.Context, id string) (string, error) {
	base, err := m.baseDir(id)
	if err != nil {
		return "", err
	}
	cmd := exec.CommandContext(ctx, "git", "-C", base, "pull")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("pull failed: %w", err)
	}
	return string(out), nil
}

// Delete removes a repository directory entirely.
func (m *Manager) Delete(id string) error {
	base, err := m.baseDir(id)
	if err != nil {
		return err
	}
	return os.RemoveAll(base)
}

// Files walks a repository and returns the relative paths of its runnable
// files (.py/.sh), skipping hidden files and directories, sorted.
func (m *Manager) Files(id string) ([]string, error) {
	base, err := m.baseDir(id)
	if err != nil {
		return nil, err
	}
	var files []string
	err = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != base {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".py" && ext != ".sh" {
			return nil
		}
		rel, relErr := filepath.Rel(base, path)
		if relErr != nil {
			return relErr
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ResolveFile validates a relative path inside a repository and returns the
// absolute script path plus the repository root to use as working directory.
func (m *Manager) ResolveFile(id, rel string) (path, workDir string, err error) {
	base, err := m.baseDir(id)
	if err != nil {
		return "", "", err
	}
	if rel == "" || strings.Contains(rel, "..") ||
		strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, `\`) {
		return "", "", ErrNotFound
	}
	target := filepath.Join(base, rel)
	if !strings.HasPrefix(target, base+string(filepath.Separator)) {
		return "", "", ErrNotFound
	}
	info, statErr := os.Stat(target)
	if statErr != nil || !info.Mode().IsRegular() {
		return "", "", ErrNotFound
	}
	ext := filepath.Ext(target)
	if ext != ".py" && ext != ".sh" {
		return "", "", ErrNotFound
	}
	return target, base, nil
}

// baseDir validates the id and returns the existing repository directory.
func (m *Manager) baseDir(id string) (string, error) {
	if !repoIDRe.MatchString(id) {
		return "", ErrNotFound
	}
	base := filepath.Join(m.dir, id)
	info, err := os.Stat(base)
	if err != nil || !info.IsDir() {
		return "", ErrNotFound
	}
	return base, nil
}

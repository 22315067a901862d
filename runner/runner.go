// Package runner spawns script processes and feeds their output through the
// marker-aware pipeline into job state and the transcript file.
package runner

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"scriptrun/model"
)

// Scripts report progress by printing marker lines:
//
//	PROGRESS 40 Doing something
//	DONE
var (
	progressRe = regexp.MustCompile(`^PROGRESS\s+(\d{1,3})\s*(.*)$`)
	doneRe     = regexp.MustCompile(`^DONE\b`)
)

// ReturnCodeNoStart is the synthetic return code recorded when no process
// was ever spawned for the job.
const ReturnCodeNoStart = 127

// maxLineBytes bounds a single output line read from the process.
const maxLineBytes = 1024 * 1024

// A Request describes one process to run for one job.
type Request struct {
	Job *model.Job

	// Path is an already-validated, existing script file. Args are passed
	// to the script after the path. WorkDir, if set, becomes the process
	// working directory (used for repository scripts).
	Path    string
	Args    []string
	WorkDir string

	// Input lines are newline-joined, written to the process's stdin once,
	// and the stream is closed. A script asking for more input than this
	// sees end-of-input and has to cope on its own.
	Input []string
}

// A Runner launches script processes. Stdin delivery errors are logged and
// deliberately discarded: output consumption continues regardless.
type Runner struct {
	Logger *log.Logger
}

// New returns a Runner logging through l.
func New(l *log.Logger) *Runner {
	return &Runner{Logger: l}
}

// resolveCommand maps a script file to its interpreter invocation by suffix.
func resolveCommand(path string) ([]string, error) {
	switch filepath.Ext(path) {
	case ".py":
		return []string{"python3", path}, nil
	case ".sh":
		return []string{"/bin/bash", path}, nil
	default:
		return nil, fmt.Errorf("no interpreter for %q", filepath.Base(path))
	}
}

// Run executes the request to completion, mutating the job as output
// arrives. It blocks until the process exits and is meant to be called in
// its own goroutine. There is no cancellation: a hung process keeps its
// job running indefinitely.
func (r *Runner) Run(req Request) {
	job := req.Job
	job.MarkRunning()

	// The transcript file exists from job start and is only ever appended
	// to, so it can be tailed while the process runs.
	logFile, err := os.OpenFile(job.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		r.Logger.Printf("Job %v: cannot open transcript %s: %v\n", job.ID, job.LogPath, err)
		job.FailBeforeStart(ReturnCodeNoStart)
		return
	}
	defer logFile.Close()

	argv, err := resolveCommand(req.Path)
	if err != nil {
		r.Logger.Printf("Job %v: %v\n", job.ID, err)
		job.FailBeforeStart(ReturnCodeNoStart)
		return
	}

	argv = append(argv, req.Args...)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = req.WorkDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		r.Logger.Printf("Job %v: stdout pipe: %v\n", job.ID, err)
		job.FailBeforeStart(ReturnCodeNoStart)
		return
	}
	// Merge stderr into the same stream so the pipeline sees one ordered
	// sequence of lines.
	cmd.Stderr = cmd.Stdout

	stdin, err := cmd.StdinPipe()
	if err != nil {
		r.Logger.Printf("Job %v: stdin pipe: %v\n", job.ID, err)
		job.FailBeforeStart(ReturnCodeNoStart)
		return
	}

	if err := cmd.Start(); err != nil {
		r.Logger.Printf("Job %v: starting %v: %v\n", job.ID, argv, err)
		job.FailBeforeStart(ReturnCodeNoStart)
		return
	}

	r.feedInput(job.ID, stdin, req.Input)
	r.consume(job, stdout, logFile)

	rc := 0
	if err := cmd.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			rc = exitErr.ExitCode()
		} else {
			r.Logger.Printf("Job %v: wait: %v\n", job.ID, err)
			rc = ReturnCodeNoStart
		}
	}
	job.Finish(rc)
	r.Logger.Printf("Job %v finished with rc=%d\n", job.ID, rc)
}

// feedInput writes the predetermined input once and closes the stream.
// Failures here never fail the job -- the script may have exited early or
// simply not read stdin, and the output pipeline must keep going.
func (r *Runner) feedInput(jobID string, stdin io.WriteCloser, input []string) {
	if len(input) > 0 {
		payload := strings.Join(input, "\n") + "\n"
		if _, err := io.WriteString(stdin, payload); err != nil {
			r.Logger.Printf("Job %v: writing stdin (ignored): %v\n", jobID, err)
		}
	}
	if err := stdin.Close(); err != nil {
		r.Logger.Printf("Job %v: closing stdin (ignored): %v\n", jobID, err)
	}
}

// consume reads the merged output one line at a time until the stream
// closes. Each line lands in the transcript file first, then the bounded
// history, then is checked for markers.
func (r *Runner) consume(job *model.Job, output io.Reader, logFile *os.File) {
	scanner := bufio.NewScanner(output)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Text()

		if _, err := fmt.Fprintln(logFile, line); err != nil {
			r.Logger.Printf("Job %v: transcript write: %v\n", job.ID, err)
		}
		job.AppendLine(line)

		if m := progressRe.FindStringSubmatch(line); m != nil {
			pct, _ := strconv.Atoi(m[1])
			job.SetProgress(pct, strings.TrimSpace(m[2]))
		}
		if doneRe.MatchString(line) {
			// Logical completion declared by the producer, independent of
			// the actual process exit.
			job.SetProgress(100, "done")
		}
	}
	if err := scanner.Err(); err != nil {
		r.Logger.Printf("Job %v: reading output: %v\n", job.ID, err)
	}
}

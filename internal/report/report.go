// Package report persists per-job outcomes (the tracker) and renders the
// end-of-run summary.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prasanth-sim/off-highway/internal/executor"
)

// Entry is one tracker line: job, terminal status, log file path.
type Entry struct {
	Job     string
	Status  executor.Status
	LogFile string
}

// Tracker is the durable per-run append log of job outcomes. Every append
// is a single O_APPEND write, so concurrent appends never tear and a crash
// mid-run leaves all completed entries on disk.
type Tracker struct {
	path string

	mu sync.Mutex
	f  *os.File
}

// OpenTracker creates (or opens) the tracker file for appending.
func OpenTracker(path string) (*Tracker, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening tracker: %w", err)
	}
	return &Tracker{path: path, f: f}, nil
}

// Path returns the tracker file location.
func (t *Tracker) Path() string {
	return t.path
}

// Append records one finished job. Called from executor workers as soon as
// each job completes.
func (t *Tracker) Append(o executor.Outcome) error {
	line := fmt.Sprintf("%s,%s,%s\n", o.Job, o.Status, o.LogFile)

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.f.WriteString(line); err != nil {
		return fmt.Errorf("appending tracker entry: %w", err)
	}
	return nil
}

// Close releases the tracker file.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.f.Close()
}

// ReadTracker parses a tracker file back into entries, in the order jobs
// completed. Malformed lines are skipped.
func ReadTracker(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tracker: %w", err)
	}

	var entries []Entry
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 3)
		if len(parts) != 3 {
			continue
		}
		entries = append(entries, Entry{
			Job:     parts[0],
			Status:  executor.Status(parts[1]),
			LogFile: parts[2],
		})
	}
	return entries, nil
}

// Summary is the aggregate result of one run. Never mutated once built.
type Summary struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Entries  []Entry // completion-tracker order
}

// Counts returns the number of succeeded and failed jobs.
func (s Summary) Counts() (succeeded, failed int) {
	for _, e := range s.Entries {
		if e.Status == executor.StatusSuccess {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// Finalize builds the run summary from the tracker file. If the tracker
// cannot be read back the condition is reported and the in-memory outcomes
// are used instead; finalization never crashes the run.
func Finalize(trackerPath, runID string, started, finished time.Time, outcomes []executor.Outcome) Summary {
	s := Summary{RunID: runID, Started: started, Finished: finished}

	entries, err := ReadTracker(trackerPath)
	if err != nil {
		slog.Warn("cannot read tracker back for summary, using in-memory outcomes",
			"tracker", trackerPath, "error", err)
		for _, o := range outcomes {
			s.Entries = append(s.Entries, Entry{Job: o.Job, Status: o.Status, LogFile: o.LogFile})
		}
		return s
	}

	s.Entries = entries
	return s
}

// WriteSummary renders the summary file: start/end header, separator, one
// STATUS,job,logfile line per outcome in completion order, then counts.
func WriteSummary(path string, s Summary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "run: %s\n", s.RunID)
	fmt.Fprintf(&b, "started: %s\n", s.Started.Format(time.RFC3339))
	fmt.Fprintf(&b, "finished: %s\n", s.Finished.Format(time.RFC3339))
	b.WriteString(strings.Repeat("-", 40) + "\n")
	for _, e := range s.Entries {
		fmt.Fprintf(&b, "%s,%s,%s\n", e.Status, e.Job, e.LogFile)
	}
	succeeded, failed := s.Counts()
	b.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&b, "%d SUCCESS, %d FAIL\n", succeeded, failed)

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

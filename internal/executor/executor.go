// Package executor runs resolved build jobs as independent subprocesses
// with bounded parallelism.
package executor

import (
	"context"
	"log/slog"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/prasanth-sim/off-highway/internal/catalog"
)

// Status is the terminal state of one build job.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFail    Status = "FAIL"
)

// Selection is a catalog job bound to the concrete parameters of this run.
type Selection struct {
	Job     catalog.Job
	Branch  string
	Variant string
}

// Outcome is the result of one executed job.
type Outcome struct {
	Job      string
	Status   Status
	LogFile  string
	Output   string
	Started  time.Time
	Finished time.Time
}

// Duration returns how long the job ran.
func (o Outcome) Duration() time.Duration {
	return o.Finished.Sub(o.Started)
}

// Runner executes a single build job. Implementations must write the job's
// combined output to logFile and return it along with the exit code. The
// orchestrator is agnostic to what the job actually does.
type Runner interface {
	Run(ctx context.Context, sel Selection, baseDir, logFile string) (exitCode int, output string, err error)
}

// Tracker receives each outcome as soon as the job finishes, before the
// pool moves on, so a crash mid-run still leaves partial results on disk.
type Tracker interface {
	Append(Outcome) error
}

// EventKind distinguishes pool progress events.
type EventKind int

const (
	EventStarted EventKind = iota
	EventFinished
)

// Event is emitted by the pool for progress reporting.
type Event struct {
	Kind    EventKind
	Job     string
	Outcome *Outcome // set for EventFinished
}

// Cap derives the worker count from available parallelism: the ceiling of
// parallelism*loadFactor, never below one.
func Cap(parallelism int, loadFactor float64) int {
	if parallelism < 1 {
		parallelism = 1
	}
	if loadFactor <= 0 {
		loadFactor = 0.8
	}
	n := int(math.Ceil(float64(parallelism) * loadFactor))
	if n < 1 {
		return 1
	}
	return n
}

// Pool runs selections with at most Workers jobs in flight.
type Pool struct {
	Workers int
	Runner  Runner
}

// RunAll executes every selection exactly once and returns the outcomes in
// completion order plus the number of failures. A job that exits non-zero
// is recorded as FAIL and never cancels its siblings; partial success is
// meaningful output. Outcomes are appended to the tracker as they happen.
//
// If events is non-nil the pool sends start/finish events on it and closes
// it when all jobs are done.
func (p *Pool) RunAll(ctx context.Context, sels []Selection, baseDir, logDir string, tracker Tracker, events chan<- Event) ([]Outcome, int) {
	if events != nil {
		defer close(events)
	}
	if len(sels) == 0 {
		return nil, 0
	}

	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(sels) {
		workers = len(sels)
	}

	work := make(chan Selection, len(sels))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes []Outcome
		failed   int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for sel := range work {
				outcome := p.runOne(ctx, workerID, sel, baseDir, logDir, tracker, events)

				mu.Lock()
				outcomes = append(outcomes, outcome)
				if outcome.Status == StatusFail {
					failed++
				}
				mu.Unlock()

				if events != nil {
					o := outcome
					events <- Event{Kind: EventFinished, Job: sel.Job.Name, Outcome: &o}
				}
			}
		}(i)
	}

	for _, sel := range sels {
		work <- sel
	}
	close(work)
	wg.Wait()

	return outcomes, failed
}

func (p *Pool) runOne(ctx context.Context, workerID int, sel Selection, baseDir, logDir string, tracker Tracker, events chan<- Event) Outcome {
	if events != nil {
		events <- Event{Kind: EventStarted, Job: sel.Job.Name}
	}

	logFile := filepath.Join(logDir, sel.Job.Name+".log")
	slog.Info("job started", "worker", workerID, "job", sel.Job.Name,
		"branch", sel.Branch, "variant", sel.Variant, "log", logFile)

	outcome := Outcome{
		Job:     sel.Job.Name,
		LogFile: logFile,
		Started: time.Now(),
	}

	exitCode, output, err := p.Runner.Run(ctx, sel, baseDir, logFile)
	outcome.Finished = time.Now()
	outcome.Output = output

	switch {
	case err != nil:
		outcome.Status = StatusFail
		slog.Error("job could not run", "job", sel.Job.Name, "error", err)
	case exitCode != 0:
		outcome.Status = StatusFail
		slog.Warn("job failed", "job", sel.Job.Name, "exit_code", exitCode, "log", logFile)
	default:
		outcome.Status = StatusSuccess
		slog.Info("job succeeded", "job", sel.Job.Name, "duration", outcome.Duration().Round(time.Millisecond))
	}

	if tracker != nil {
		if err := tracker.Append(outcome); err != nil {
			slog.Warn("failed to append outcome to tracker", "job", sel.Job.Name, "error", err)
		}
	}

	return outcome
}

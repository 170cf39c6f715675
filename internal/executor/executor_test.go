package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prasanth-sim/off-highway/internal/catalog"
)

func TestCap(t *testing.T) {
	tests := []struct {
		parallelism int
		loadFactor  float64
		want        int
	}{
		{10, 0.8, 8},
		{5, 0.8, 4},
		{1, 0.8, 1},
		{3, 0.5, 2},  // ceil(1.5)
		{7, 0.8, 6},  // ceil(5.6)
		{0, 0.8, 1},  // at least one worker
		{4, 0, 4},    // zero load factor falls back to 0.8, ceil(3.2)
		{2, 1.0, 2},
	}

	for _, tt := range tests {
		if got := Cap(tt.parallelism, tt.loadFactor); got != tt.want {
			t.Errorf("Cap(%d, %v) = %d, want %d", tt.parallelism, tt.loadFactor, got, tt.want)
		}
	}
}

// fakeRunner returns a scripted exit code per job name.
type fakeRunner struct {
	exitCodes map[string]int
	delay     time.Duration

	mu      sync.Mutex
	ran     []string
	current atomic.Int32
	peak    atomic.Int32
}

func (r *fakeRunner) Run(_ context.Context, sel Selection, _, _ string) (int, string, error) {
	cur := r.current.Add(1)
	for {
		peak := r.peak.Load()
		if cur <= peak || r.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.current.Add(-1)

	r.mu.Lock()
	r.ran = append(r.ran, sel.Job.Name)
	r.mu.Unlock()

	return r.exitCodes[sel.Job.Name], "output of " + sel.Job.Name, nil
}

type recordingTracker struct {
	mu      sync.Mutex
	entries []Outcome
}

func (tr *recordingTracker) Append(o Outcome) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.entries = append(tr.entries, o)
	return nil
}

func selections(names ...string) []Selection {
	sels := make([]Selection, len(names))
	for i, n := range names {
		sels[i] = Selection{
			Job:     catalog.Job{Name: n, Command: "true"},
			Branch:  "develop",
			Variant: "dev",
		}
	}
	return sels
}

func TestRunAllAllSucceed(t *testing.T) {
	runner := &fakeRunner{}
	tracker := &recordingTracker{}
	pool := &Pool{Workers: 2, Runner: runner}

	outcomes, failed := pool.RunAll(context.Background(), selections("a", "b", "c"), t.TempDir(), t.TempDir(), tracker, nil)

	if failed != 0 {
		t.Errorf("failed = %d, want 0", failed)
	}
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Status != StatusSuccess {
			t.Errorf("job %s status = %s, want SUCCESS", o.Job, o.Status)
		}
	}
	if len(tracker.entries) != 3 {
		t.Errorf("tracker has %d entries, want 3", len(tracker.entries))
	}
}

func TestRunAllMixedFailure(t *testing.T) {
	runner := &fakeRunner{exitCodes: map[string]int{"b": 1}}
	tracker := &recordingTracker{}
	pool := &Pool{Workers: 3, Runner: runner}

	outcomes, failed := pool.RunAll(context.Background(), selections("a", "b", "c"), t.TempDir(), t.TempDir(), tracker, nil)

	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
	statuses := make(map[string]Status)
	for _, o := range outcomes {
		statuses[o.Job] = o.Status
	}
	if statuses["b"] != StatusFail {
		t.Errorf("job b status = %s, want FAIL", statuses["b"])
	}
	if statuses["a"] != StatusSuccess || statuses["c"] != StatusSuccess {
		t.Errorf("sibling jobs affected by b's failure: %v", statuses)
	}
	if len(tracker.entries) != 3 {
		t.Errorf("tracker has %d entries, want 3 (failure must not stop the batch)", len(tracker.entries))
	}
}

func TestRunAllEmptySelection(t *testing.T) {
	tracker := &recordingTracker{}
	pool := &Pool{Workers: 4, Runner: &fakeRunner{}}

	outcomes, failed := pool.RunAll(context.Background(), nil, t.TempDir(), t.TempDir(), tracker, nil)

	if len(outcomes) != 0 || failed != 0 {
		t.Errorf("RunAll(nil) = %v, %d; want no outcomes, 0 failed", outcomes, failed)
	}
	if len(tracker.entries) != 0 {
		t.Errorf("tracker written for empty selection")
	}
}

func TestRunAllEachSelectionObservedOnce(t *testing.T) {
	runner := &fakeRunner{}
	pool := &Pool{Workers: 2, Runner: runner}

	names := []string{"a", "b", "c", "d", "e"}
	outcomes, _ := pool.RunAll(context.Background(), selections(names...), t.TempDir(), t.TempDir(), nil, nil)

	counts := make(map[string]int)
	for _, o := range outcomes {
		counts[o.Job]++
	}
	for _, n := range names {
		if counts[n] != 1 {
			t.Errorf("job %s observed %d times, want exactly once", n, counts[n])
		}
	}
}

func TestRunAllRespectsWorkerCap(t *testing.T) {
	runner := &fakeRunner{delay: 30 * time.Millisecond}
	pool := &Pool{Workers: 2, Runner: runner}

	pool.RunAll(context.Background(), selections("a", "b", "c", "d", "e", "f"), t.TempDir(), t.TempDir(), nil, nil)

	if peak := runner.peak.Load(); peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestRunAllEmitsEvents(t *testing.T) {
	runner := &fakeRunner{exitCodes: map[string]int{"b": 2}}
	pool := &Pool{Workers: 1, Runner: runner}
	events := make(chan Event, 16)

	done := make(chan struct{})
	var started, finished int
	var failStatus Status
	go func() {
		defer close(done)
		for ev := range events {
			switch ev.Kind {
			case EventStarted:
				started++
			case EventFinished:
				finished++
				if ev.Job == "b" {
					failStatus = ev.Outcome.Status
				}
			}
		}
	}()

	pool.RunAll(context.Background(), selections("a", "b"), t.TempDir(), t.TempDir(), nil, events)
	<-done

	if started != 2 || finished != 2 {
		t.Errorf("events: %d started, %d finished, want 2/2", started, finished)
	}
	if failStatus != StatusFail {
		t.Errorf("finish event for b carried status %s, want FAIL", failStatus)
	}
}

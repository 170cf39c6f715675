package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/prasanth-sim/off-highway/internal/catalog"
	"github.com/prasanth-sim/off-highway/internal/choices"
	"github.com/prasanth-sim/off-highway/internal/executor"
	"github.com/prasanth-sim/off-highway/internal/metrics"
	"github.com/prasanth-sim/off-highway/internal/report"
	"github.com/prasanth-sim/off-highway/internal/resolve"
)

var (
	runJobsFlag       string
	runBaseFlag       string
	runBranchFlags    []string
	runVariantFlags   []string
	runWorkersFlag    int
	runLoadFactorFlag float64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Select, resolve and build repositories in parallel",
	Long: `Resolve which repositories to build (from flags, saved choices and
prompts), persist the choices, then build everything in parallel with a
per-job log, a tracker file and a final summary.

Examples:
  off-highway run                         # interactive
  off-highway run --jobs all              # everything, saved branches
  off-highway run --jobs "1 3" --branch ohw-frontend=feature/map-view`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runJobsFlag, "jobs", "", "selection: 'all' (or 0) or 1-based indices, e.g. '1 3'")
	runCmd.Flags().StringVar(&runBaseFlag, "base", "", "base working directory (default: saved choice, then $OHW_BASE_DIR)")
	runCmd.Flags().StringArrayVar(&runBranchFlags, "branch", nil, "branch override as job=branch (repeatable)")
	runCmd.Flags().StringArrayVar(&runVariantFlags, "variant", nil, "variant override as job=variant (repeatable)")
	runCmd.Flags().IntVar(&runWorkersFlag, "workers", 0, "parallel build slots (default: derived from CPU count)")
	runCmd.Flags().Float64Var(&runLoadFactorFlag, "load-factor", 0, "fraction of CPUs to use when deriving workers")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cat := catalog.Default()
	store := &choices.Store{Path: cfg.ChoicesFile}

	prev, err := store.Load()
	if err != nil {
		return err
	}
	prev.Prune(func(name string) bool {
		_, ok := cat.Find(name)
		return ok
	})

	p := newPrompter(cfg.NonInteractive)
	runID := uuid.New().String()[:8]

	// Base working directory.
	base := strings.TrimSpace(runBaseFlag)
	if base == "" {
		def := firstNonEmpty(prev.BaseDir, cfg.BaseDir)
		base = firstNonEmpty(p.ask("Base directory", def), def)
	}

	// Which jobs to build.
	names, err := selectJobs(cat, &prev, p)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No repositories selected, nothing to do.")
		return nil
	}

	// Per-job branch and variant, precedence: input > saved > default.
	branchOverrides, err := parsePairs(runBranchFlags)
	if err != nil {
		return fmt.Errorf("--branch: %w", err)
	}
	variantOverrides, err := parsePairs(runVariantFlags)
	if err != nil {
		return fmt.Errorf("--variant: %w", err)
	}
	for _, w := range unknownOverrideWarnings(cat, "branch", branchOverrides) {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	for _, w := range unknownOverrideWarnings(cat, "variant", variantOverrides) {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	mat := &resolve.ProfileWriter{BaseDir: base}
	var sels []executor.Selection
	for _, name := range names {
		job, _ := cat.Find(name)

		branchIn := branchOverrides[name]
		if branchIn == "" {
			branchIn = p.ask(fmt.Sprintf("Branch for %s", name), resolve.ResolveBranch(job, prev.Branches, ""))
		}
		branch := resolve.ResolveBranch(job, prev.Branches, branchIn)

		variantIn := variantOverrides[name]
		if variantIn == "" && job.SupportsNewVariant {
			variantIn = p.ask(fmt.Sprintf("Variant for %s ('new' to create one)", name),
				resolve.ResolveVariant(job, prev.Variants, ""))
		} else if variantIn == "" {
			variantIn = p.ask(fmt.Sprintf("Variant for %s", name),
				resolve.ResolveVariant(job, prev.Variants, ""))
		}

		var variant string
		if job.SupportsNewVariant && strings.EqualFold(strings.TrimSpace(variantIn), "new") {
			nameIn := p.ask("Name for the new variant", "custom-"+runID)
			variant = resolve.ResolveNewVariant(job, nameIn, runID, mat)
		} else {
			variant = resolve.ResolveVariant(job, prev.Variants, variantIn)
		}

		prev.SetBranch(name, branch)
		prev.SetVariant(name, variant)
		sels = append(sels, executor.Selection{Job: job, Branch: branch, Variant: variant})
	}

	// Persist choices before anything executes so a crash mid-run cannot
	// lose user intent. Unwritable choices are a fatal startup error.
	prev.BaseDir = base
	prev.Selected = names
	if err := store.Save(prev); err != nil {
		return fmt.Errorf("saving choices: %w", err)
	}

	return executeRun(cmd, runID, base, sels, p)
}

// selectJobs resolves the selection expression from the --jobs flag, a
// prompt, or the saved selection. An empty answer reuses the saved one.
func selectJobs(cat *catalog.Catalog, prev *choices.Choices, p *prompter) ([]string, error) {
	input := strings.TrimSpace(runJobsFlag)
	if input == "" && p.enabled {
		printCatalog(cat, *prev)
		def := "previous selection"
		if len(prev.Selected) == 0 {
			def = "none"
		}
		input = p.ask("Select repositories (0=all, or indices like '1 3')", def)
	}

	if input == "" {
		return prev.Selected, nil
	}

	names, warnings := resolve.ResolveSelection(cat, input)
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	return names, nil
}

func executeRun(cmd *cobra.Command, runID, base string, sels []executor.Selection, p *prompter) error {
	started := time.Now()
	runLabel := started.Format("20060102-150405") + "-" + runID
	runDir := filepath.Join(cfg.StateDir, runLabel)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}
	if err := os.MkdirAll(base, 0755); err != nil {
		return fmt.Errorf("creating base directory: %w", err)
	}

	tracker, err := report.OpenTracker(filepath.Join(runDir, "tracker.csv"))
	if err != nil {
		return err
	}

	workers := runWorkersFlag
	if workers <= 0 {
		workers = cfg.Workers
	}
	loadFactor := runLoadFactorFlag
	if loadFactor <= 0 {
		loadFactor = cfg.LoadFactor
	}
	if workers <= 0 {
		workers = executor.Cap(runtime.NumCPU(), loadFactor)
	}

	fmt.Printf("Building %d repositories with %d workers (run %s)\n", len(sels), workers, runLabel)

	pool := &executor.Pool{Workers: workers, Runner: executor.ShellRunner{}}
	collector := metrics.NewCollector()
	events := make(chan executor.Event)

	type poolResult struct {
		outcomes []executor.Outcome
		failed   int
	}
	resCh := make(chan poolResult, 1)
	go func() {
		outcomes, failed := pool.RunAll(cmd.Context(), sels, base, runDir, tracker, events)
		resCh <- poolResult{outcomes, failed}
	}()

	if p.enabled {
		runProgressUI(events, sels)
	} else {
		printPlainProgress(events)
	}

	res := <-resCh
	finished := time.Now()

	tools := make(map[string]string, len(sels))
	for _, sel := range sels {
		tools[sel.Job.Name] = sel.Job.Tool
	}
	for _, o := range res.outcomes {
		collector.RecordBuild(tools[o.Job], o.Duration(), o.Status == executor.StatusFail)
	}
	for tool, b := range collector.Snapshot().Builds {
		slog.Debug("build statistics", "tool", tool, "count", b.Count,
			"failures", b.Failures, "avg_ms", b.AvgTimeMs, "max_ms", b.MaxTimeMs)
	}

	if err := tracker.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: closing tracker: %v\n", err)
	}

	summary := report.Finalize(tracker.Path(), runLabel, started, finished, res.outcomes)
	if err := report.WriteSummary(filepath.Join(runDir, "summary.txt"), summary); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	fmt.Print(renderSummary(summary))

	// The pool runs in-process, so there is no child exit code to forward.
	// Any failed job makes the whole run exit non-zero (cobra maps the
	// error to exit status 1).
	if res.failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", res.failed, len(sels))
	}
	return nil
}

// printPlainProgress is the non-TTY fallback: one line per finished job.
func printPlainProgress(events <-chan executor.Event) {
	for ev := range events {
		if ev.Kind != executor.EventFinished {
			continue
		}
		o := ev.Outcome
		tag := "[ OK ]"
		if o.Status == executor.StatusFail {
			tag = "[FAIL]"
		}
		fmt.Printf("  %s %s (%.1fs) -> %s\n", tag, o.Job, o.Duration().Seconds(), o.LogFile)
	}
}

// unknownOverrideWarnings reports override pairs that name no catalog job.
// The pairs are skipped, not fatal, matching how selection warnings behave.
func unknownOverrideWarnings(cat *catalog.Catalog, flag string, overrides map[string]string) []string {
	names := make([]string, 0, len(overrides))
	for job := range overrides {
		names = append(names, job)
	}
	sort.Strings(names)

	var warnings []string
	for _, job := range names {
		if _, ok := cat.Find(job); !ok {
			warnings = append(warnings, fmt.Sprintf("--%s %s: unknown repository, skipping", flag, job))
		}
	}
	return warnings
}

// parsePairs turns repeated job=value flags into a map.
func parsePairs(pairs []string) (map[string]string, error) {
	m := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		job, val, ok := strings.Cut(pair, "=")
		job = strings.TrimSpace(job)
		if !ok || job == "" || strings.TrimSpace(val) == "" {
			return nil, fmt.Errorf("expected job=value, got %q", pair)
		}
		m[job] = strings.TrimSpace(val)
	}
	return m, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Package resolve turns catalog defaults, persisted choices and fresh user
// input into the concrete parameters of a run.
package resolve

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/prasanth-sim/off-highway/internal/catalog"
)

// ResolveSelection parses a selection expression against the catalog and
// returns the selected job names in catalog order of first mention.
//
// The expression is either an all-token ("0", "a" or "all") or a list of
// 1-based indices separated by spaces or commas. Out-of-range or
// non-numeric entries are dropped and reported in warnings; they never fail
// the call. An empty result is valid and means "nothing to do".
func ResolveSelection(cat *catalog.Catalog, input string) (names []string, warnings []string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	if isAllToken(input) {
		return cat.Names(), nil
	}

	all := cat.Names()
	seen := make(map[string]bool, len(all))

	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	for _, f := range fields {
		idx, err := strconv.Atoi(f)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("ignoring %q: not a number", f))
			continue
		}
		if idx < 1 || idx > len(all) {
			warnings = append(warnings, fmt.Sprintf("ignoring %d: valid range is 1-%d", idx, len(all)))
			continue
		}
		name := all[idx-1]
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}

	return names, warnings
}

func isAllToken(s string) bool {
	switch strings.ToLower(s) {
	case "0", "a", "all":
		return true
	}
	return false
}

// ResolveBranch picks the branch for a job: explicit input for this run
// wins, then the previously persisted choice, then the catalog default.
func ResolveBranch(job catalog.Job, prev map[string]string, input string) string {
	return firstNonEmpty(input, prev[job.Name], job.DefaultBranch)
}

// ResolveVariant picks the build variant with the same precedence chain as
// ResolveBranch.
func ResolveVariant(job catalog.Job, prev map[string]string, input string) string {
	return firstNonEmpty(input, prev[job.Name], job.DefaultVariant)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v := strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// ResolveNewVariant synthesizes a fresh variant name and materializes its
// config artifacts. With empty input the name falls back to
// "custom-<runID>". Materialization failure is soft: the build may fail
// later, which is an already-handled outcome, so the synthesized name is
// returned regardless.
func ResolveNewVariant(job catalog.Job, input, runID string, mat Materializer) string {
	name := strings.TrimSpace(input)
	if name == "" {
		name = "custom-" + runID
	}

	if err := mat.Materialize(name, map[string]string{
		"job":  job.Name,
		"base": job.DefaultVariant,
	}); err != nil {
		slog.Warn("variant materialization failed, continuing with synthesized name",
			"job", job.Name, "variant", name, "error", err)
	}

	return name
}

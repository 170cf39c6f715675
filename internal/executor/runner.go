package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ExpandCommand fills the placeholders of a job command template.
func ExpandCommand(template, base, branch, variant string) string {
	return strings.NewReplacer(
		"{{base}}", base,
		"{{branch}}", branch,
		"{{variant}}", variant,
	).Replace(template)
}

// ShellRunner executes a job's expanded command template through the shell,
// capturing combined stdout+stderr both in memory and in the per-job log
// file with timestamp-prefixed lines. Jobs run to completion; there is no
// per-job timeout.
type ShellRunner struct{}

func (ShellRunner) Run(ctx context.Context, sel Selection, baseDir, logFile string) (int, string, error) {
	f, err := os.Create(logFile)
	if err != nil {
		return 1, "", fmt.Errorf("creating log file: %w", err)
	}
	defer f.Close()

	stamped := newStampWriter(f)
	defer stamped.Flush()

	var buf bytes.Buffer
	out := io.MultiWriter(&buf, stamped)

	cmdStr := ExpandCommand(sel.Job.Command, baseDir, sel.Branch, sel.Variant)
	cmd := exec.CommandContext(ctx, "sh", "-c", cmdStr)
	cmd.Dir = baseDir
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), buf.String(), nil
		}
		// The command never started (shell missing, bad dir, ...).
		fmt.Fprintf(stamped, "ERROR: %v\n", err)
		return 1, buf.String(), err
	}

	return 0, buf.String(), nil
}

// stampWriter prefixes every output line with a wall-clock timestamp.
// Partial lines are buffered until the newline arrives so two writes never
// produce a torn line.
type stampWriter struct {
	w       io.Writer
	partial []byte
}

func newStampWriter(w io.Writer) *stampWriter {
	return &stampWriter{w: w}
}

func (sw *stampWriter) Write(p []byte) (int, error) {
	sw.partial = append(sw.partial, p...)
	for {
		i := bytes.IndexByte(sw.partial, '\n')
		if i < 0 {
			break
		}
		if err := sw.writeLine(sw.partial[:i]); err != nil {
			return len(p), err
		}
		sw.partial = sw.partial[i+1:]
	}
	return len(p), nil
}

// Flush writes any trailing output that did not end in a newline.
func (sw *stampWriter) Flush() error {
	if len(sw.partial) == 0 {
		return nil
	}
	err := sw.writeLine(sw.partial)
	sw.partial = nil
	return err
}

func (sw *stampWriter) writeLine(line []byte) error {
	_, err := fmt.Fprintf(sw.w, "%s %s\n", time.Now().Format("2006-01-02 15:04:05"), line)
	return err
}

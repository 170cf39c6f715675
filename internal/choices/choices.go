// Package choices persists user build choices across runs.
//
// The on-disk format is line-oriented KEY='VALUE' with shell-style
// single-quote escaping, so the file stays sourceable from a shell:
//
//	BASE_INPUT='/home/user/off-highway'
//	SELECTED_REPOS_STRING='ohw-frontend ohw-gateway'
//	BRANCH_CHOICES__ohw-frontend='feature/telemetry'
//	CONFIG_CHOICES__ohw-frontend='qa'
package choices

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	keyBase     = "BASE_INPUT"
	keySelected = "SELECTED_REPOS_STRING"

	branchPrefix  = "BRANCH_CHOICES__"
	variantPrefix = "CONFIG_CHOICES__"
)

// Choices is the durable record of what the user picked last time.
type Choices struct {
	BaseDir  string
	Selected []string          // job names, selection order
	Branches map[string]string // job name -> branch
	Variants map[string]string // job name -> build variant
}

// SetBranch records the branch choice for a job.
func (c *Choices) SetBranch(job, branch string) {
	if c.Branches == nil {
		c.Branches = make(map[string]string)
	}
	c.Branches[job] = branch
}

// SetVariant records the variant choice for a job.
func (c *Choices) SetVariant(job, variant string) {
	if c.Variants == nil {
		c.Variants = make(map[string]string)
	}
	c.Variants[job] = variant
}

// Prune drops selected names and mapping entries that no longer refer to a
// known job. Unknown names are not an error: the catalog may have changed
// since the file was written.
func (c *Choices) Prune(known func(name string) bool) {
	kept := c.Selected[:0]
	for _, name := range c.Selected {
		if known(name) {
			kept = append(kept, name)
		}
	}
	c.Selected = kept

	for name := range c.Branches {
		if !known(name) {
			delete(c.Branches, name)
		}
	}
	for name := range c.Variants {
		if !known(name) {
			delete(c.Variants, name)
		}
	}
}

// Store reads and writes the choices file.
type Store struct {
	Path string
}

// Load reads the persisted choices. A missing file is not an error and
// yields the zero value. Unknown or malformed lines are skipped so older
// binaries can read files written by newer ones.
func (s *Store) Load() (Choices, error) {
	var c Choices

	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("reading choices file: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, raw, ok := cutKey(line)
		if !ok {
			continue
		}
		val, err := unquote(raw)
		if err != nil {
			continue
		}

		switch {
		case key == keyBase:
			c.BaseDir = val
		case key == keySelected:
			c.Selected = strings.Fields(val)
		case strings.HasPrefix(key, branchPrefix):
			c.SetBranch(decodeKey(strings.TrimPrefix(key, branchPrefix)), val)
		case strings.HasPrefix(key, variantPrefix):
			c.SetVariant(decodeKey(strings.TrimPrefix(key, variantPrefix)), val)
		}
	}

	return c, nil
}

// Save replaces the whole choices file atomically (temp file + rename).
// Saving a partially empty record is legal.
func (s *Store) Save(c Choices) error {
	var b strings.Builder
	writeEntry(&b, keyBase, c.BaseDir)
	writeEntry(&b, keySelected, strings.Join(c.Selected, " "))
	for _, job := range sortedKeys(c.Branches) {
		writeEntry(&b, branchPrefix+encodeKey(job), c.Branches[job])
	}
	for _, job := range sortedKeys(c.Variants) {
		writeEntry(&b, variantPrefix+encodeKey(job), c.Variants[job])
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating choices directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".choices-*")
	if err != nil {
		return fmt.Errorf("creating temp choices file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing choices: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing choices file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replacing choices file: %w", err)
	}
	return nil
}

func writeEntry(b *strings.Builder, key, val string) {
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(quote(val))
	b.WriteByte('\n')
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// encodeKey backslash-escapes the key/value delimiter, and the escape byte
// itself, so job names containing '=' survive inside composite keys.
func encodeKey(name string) string {
	name = strings.ReplaceAll(name, `\`, `\\`)
	return strings.ReplaceAll(name, "=", `\=`)
}

// decodeKey is the exact inverse of encodeKey.
func decodeKey(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		if name[i] == '\\' && i+1 < len(name) {
			i++
		}
		b.WriteByte(name[i])
	}
	return b.String()
}

// cutKey splits a line at the first '=' that is not backslash-escaped.
func cutKey(line string) (key, raw string, ok bool) {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '=':
			return line[:i], line[i+1:], true
		}
	}
	return "", "", false
}

// quote wraps val in single quotes, escaping embedded quotes shell-style
// ('\''), so values containing '=' or whitespace round-trip exactly.
func quote(val string) string {
	return "'" + strings.ReplaceAll(val, "'", `'\''`) + "'"
}

// unquote is the exact inverse of quote: it reads a concatenation of
// single-quoted segments and backslash escapes.
func unquote(raw string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(raw); {
		switch raw[i] {
		case '\'':
			end := strings.IndexByte(raw[i+1:], '\'')
			if end < 0 {
				return "", fmt.Errorf("unterminated quote in %q", raw)
			}
			b.WriteString(raw[i+1 : i+1+end])
			i += end + 2
		case '\\':
			if i+1 >= len(raw) {
				return "", fmt.Errorf("trailing backslash in %q", raw)
			}
			b.WriteByte(raw[i+1])
			i += 2
		default:
			b.WriteByte(raw[i])
			i++
		}
	}
	return b.String(), nil
}

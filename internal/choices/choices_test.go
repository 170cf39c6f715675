package choices

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return &Store{Path: filepath.Join(t.TempDir(), "choices")}
}

func TestLoadMissingFileYieldsZeroValue(t *testing.T) {
	s := newStore(t)

	c, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, c.BaseDir)
	assert.Empty(t, c.Selected)
	assert.Empty(t, c.Branches)
	assert.Empty(t, c.Variants)
}

func TestRoundTrip(t *testing.T) {
	s := newStore(t)

	in := Choices{
		BaseDir:  "/home/user/off-highway",
		Selected: []string{"ohw-frontend", "ohw-gateway"},
		Branches: map[string]string{
			"ohw-frontend": "feature/map-view",
			"ohw-gateway":  "develop",
		},
		Variants: map[string]string{
			"ohw-frontend": "qa",
		},
	}

	require.NoError(t, s.Save(in))

	out, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, in.BaseDir, out.BaseDir)
	assert.Equal(t, in.Selected, out.Selected)
	assert.Equal(t, in.Branches, out.Branches)
	assert.Equal(t, in.Variants, out.Variants)
}

func TestRoundTripAwkwardValues(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"embedded equals", "config=qa=yes"},
		{"embedded spaces", "feature/some branch name"},
		{"single quotes", "it's-a-branch"},
		{"quote and equals", "a='b'"},
		{"hash", "branch#5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			in := Choices{BaseDir: tt.value}
			in.SetBranch("ohw-frontend", tt.value)

			require.NoError(t, s.Save(in))
			out, err := s.Load()
			require.NoError(t, err)

			assert.Equal(t, tt.value, out.BaseDir)
			assert.Equal(t, tt.value, out.Branches["ohw-frontend"])
		})
	}
}

func TestRoundTripAwkwardJobNames(t *testing.T) {
	tests := []struct {
		name string
		job  string
	}{
		{"embedded equals", "ohw=frontend"},
		{"leading equals", "=ohw-frontend"},
		{"backslash", `ohw\frontend`},
		{"backslash before equals", `ohw\=frontend`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			var in Choices
			in.SetBranch(tt.job, "feature/map-view")
			in.SetVariant(tt.job, "qa")

			require.NoError(t, s.Save(in))
			out, err := s.Load()
			require.NoError(t, err)

			assert.Equal(t, in.Branches, out.Branches)
			assert.Equal(t, in.Variants, out.Variants)
		})
	}
}

func TestSaveUnwritableTarget(t *testing.T) {
	occupied := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(occupied, []byte("not a directory"), 0644))

	s := &Store{Path: filepath.Join(occupied, "choices")}
	err := s.Save(Choices{BaseDir: "/tmp/base"})
	require.Error(t, err)
}

func TestSaveLoadIsIdempotent(t *testing.T) {
	s := newStore(t)

	in := Choices{
		BaseDir:  "/srv/builds",
		Selected: []string{"ohw-gateway"},
	}
	in.SetVariant("ohw-gateway", "dev")

	require.NoError(t, s.Save(in))
	first, err := s.Load()
	require.NoError(t, err)

	require.NoError(t, s.Save(first))
	second, err := s.Load()
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSaveEmptyRecord(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.Save(Choices{}))

	c, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, c.BaseDir)
	assert.Empty(t, c.Selected)
}

func TestLoadSkipsUnknownAndMalformedLines(t *testing.T) {
	s := newStore(t)
	content := "" +
		"# written by a newer version\n" +
		"BASE_INPUT='/tmp/base'\n" +
		"FUTURE_KEY='whatever'\n" +
		"garbage line without equals\n" +
		"BRANCH_CHOICES__ohw-gateway='hotfix/1.2'\n" +
		"BROKEN='unterminated\n"
	require.NoError(t, os.WriteFile(s.Path, []byte(content), 0644))

	c, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/base", c.BaseDir)
	assert.Equal(t, "hotfix/1.2", c.Branches["ohw-gateway"])
}

func TestPruneDropsUnknownJobs(t *testing.T) {
	c := Choices{
		Selected: []string{"ohw-frontend", "retired-service"},
		Branches: map[string]string{
			"ohw-frontend":    "develop",
			"retired-service": "main",
		},
		Variants: map[string]string{
			"retired-service": "dev",
		},
	}

	c.Prune(func(name string) bool { return name == "ohw-frontend" })

	assert.Equal(t, []string{"ohw-frontend"}, c.Selected)
	assert.Equal(t, map[string]string{"ohw-frontend": "develop"}, c.Branches)
	assert.Empty(t, c.Variants)
}

func TestSaveReplacesWholeFile(t *testing.T) {
	s := newStore(t)

	first := Choices{Selected: []string{"ohw-frontend", "ohw-gateway"}}
	first.SetBranch("ohw-gateway", "develop")
	require.NoError(t, s.Save(first))

	second := Choices{Selected: []string{"ohw-frontend"}}
	require.NoError(t, s.Save(second))

	c, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"ohw-frontend"}, c.Selected)
	assert.Empty(t, c.Branches, "stale mapping survived a full save")
}

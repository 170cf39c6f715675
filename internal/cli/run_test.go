package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prasanth-sim/off-highway/internal/catalog"
	"github.com/prasanth-sim/off-highway/internal/config"
)

func TestParsePairs(t *testing.T) {
	m, err := parsePairs([]string{
		"ohw-frontend=feature/map-view",
		"ohw-gateway=release/1.4",
	})
	require.NoError(t, err)
	assert.Equal(t, "feature/map-view", m["ohw-frontend"])
	assert.Equal(t, "release/1.4", m["ohw-gateway"])
}

func TestParsePairsKeepsEqualsInValue(t *testing.T) {
	m, err := parsePairs([]string{"ohw-frontend=opt=value"})
	require.NoError(t, err)
	assert.Equal(t, "opt=value", m["ohw-frontend"])
}

func TestParsePairsRejectsMalformed(t *testing.T) {
	for _, bad := range []string{"no-equals", "=value", "job=", "job=  "} {
		_, err := parsePairs([]string{bad})
		assert.Error(t, err, "input %q", bad)
	}
}

func TestUnknownOverrideWarnings(t *testing.T) {
	cat := catalog.Default()

	warnings := unknownOverrideWarnings(cat, "branch", map[string]string{
		"ohw-frontend": "develop",
		"retired-svc":  "main",
		"typo-gateway": "develop",
	})

	require.Len(t, warnings, 2)
	assert.Equal(t, "--branch retired-svc: unknown repository, skipping", warnings[0])
	assert.Equal(t, "--branch typo-gateway: unknown repository, skipping", warnings[1])

	assert.Empty(t, unknownOverrideWarnings(cat, "variant", map[string]string{
		"ohw-frontend": "qa",
	}))
}

func TestRunAbortsWhenChoicesUnwritable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}

	readonly := filepath.Join(t.TempDir(), "readonly")
	require.NoError(t, os.Mkdir(readonly, 0555))

	stateDir := t.TempDir()
	prevCfg := cfg
	cfg = config.Config{
		BaseDir:        t.TempDir(),
		StateDir:       stateDir,
		ChoicesFile:    filepath.Join(readonly, "choices"),
		NonInteractive: true,
	}
	runJobsFlag = "all"
	t.Cleanup(func() {
		cfg = prevCfg
		runJobsFlag = ""
	})

	err := runRun(runCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "saving choices")

	entries, err := os.ReadDir(stateDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "run state was created although choices were never persisted")
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "a", firstNonEmpty("a", "b"))
	assert.Equal(t, "b", firstNonEmpty("", "b"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}

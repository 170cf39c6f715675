package resolve

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Materializer writes whatever config artifacts a newly created variant
// needs. The orchestrator treats this as an opaque side-effecting call.
type Materializer interface {
	Materialize(name string, params map[string]string) error
}

// ProfileWriter materializes a variant as a YAML profile file under the
// job's checkout: <base>/<job>/profiles/<name>.yaml. The build wrapper
// scripts pick the profile up by name.
type ProfileWriter struct {
	BaseDir string
}

type profile struct {
	Name          string            `yaml:"name"`
	InheritedFrom string            `yaml:"inherited_from,omitempty"`
	CreatedAt     time.Time         `yaml:"created_at"`
	Params        map[string]string `yaml:"params,omitempty"`
}

func (w *ProfileWriter) Materialize(name string, params map[string]string) error {
	job := params["job"]
	if job == "" {
		return fmt.Errorf("materialize %q: missing job parameter", name)
	}

	dir := filepath.Join(w.BaseDir, job, "profiles")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating profile directory: %w", err)
	}

	data, err := yaml.Marshal(profile{
		Name:          name,
		InheritedFrom: params["base"],
		CreatedAt:     time.Now().UTC(),
		Params:        params,
	})
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}

	path := filepath.Join(dir, name+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing profile %s: %w", path, err)
	}
	return nil
}

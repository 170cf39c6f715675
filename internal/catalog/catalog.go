// Package catalog holds the fixed registry of buildable units.
package catalog

// Job describes one buildable unit. Jobs are immutable once registered.
type Job struct {
	Name           string // unique key, also the checkout directory name
	Remote         string // upstream git remote
	Tool           string // build tool family, e.g. "angular" or "maven"
	Command        string // opaque shell template, see ExpandCommand
	DefaultBranch  string
	DefaultVariant string

	// SupportsNewVariant marks jobs whose build variants can be created
	// on the fly (currently only the Angular frontend).
	SupportsNewVariant bool
}

// Catalog is an ordered, immutable collection of jobs. The slice order is
// the canonical display and selection order.
type Catalog struct {
	jobs   []Job
	byName map[string]Job
}

// New builds a catalog from the given jobs, preserving order.
func New(jobs ...Job) *Catalog {
	c := &Catalog{
		jobs:   jobs,
		byName: make(map[string]Job, len(jobs)),
	}
	for _, j := range jobs {
		c.byName[j.Name] = j
	}
	return c
}

// All returns every job in display order.
func (c *Catalog) All() []Job {
	out := make([]Job, len(c.jobs))
	copy(out, c.jobs)
	return out
}

// Find returns the job registered under name.
func (c *Catalog) Find(name string) (Job, bool) {
	j, ok := c.byName[name]
	return j, ok
}

// Names returns all job names in display order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.jobs))
	for i, j := range c.jobs {
		names[i] = j.Name
	}
	return names
}

// Len returns the number of registered jobs.
func (c *Catalog) Len() int {
	return len(c.jobs)
}

// Default returns the compiled-in registry of the off-highway services.
// Build commands are wrapper-script invocations; the orchestrator never
// interprets them beyond placeholder expansion.
func Default() *Catalog {
	return New(
		Job{
			Name:               "ohw-frontend",
			Remote:             "git@github.com:prasanth-sim/ohw-frontend.git",
			Tool:               "angular",
			Command:            "scripts/build-angular.sh {{base}} ohw-frontend {{branch}} {{variant}}",
			DefaultBranch:      "develop",
			DefaultVariant:     "default",
			SupportsNewVariant: true,
		},
		Job{
			Name:           "ohw-gateway",
			Remote:         "git@github.com:prasanth-sim/ohw-gateway.git",
			Tool:           "maven",
			Command:        "scripts/build-maven.sh {{base}} ohw-gateway {{branch}} {{variant}}",
			DefaultBranch:  "develop",
			DefaultVariant: "dev",
		},
		Job{
			Name:           "ohw-asset-service",
			Remote:         "git@github.com:prasanth-sim/ohw-asset-service.git",
			Tool:           "maven",
			Command:        "scripts/build-maven.sh {{base}} ohw-asset-service {{branch}} {{variant}}",
			DefaultBranch:  "develop",
			DefaultVariant: "dev",
		},
		Job{
			Name:           "ohw-telemetry-service",
			Remote:         "git@github.com:prasanth-sim/ohw-telemetry-service.git",
			Tool:           "maven",
			Command:        "scripts/build-maven.sh {{base}} ohw-telemetry-service {{branch}} {{variant}}",
			DefaultBranch:  "develop",
			DefaultVariant: "dev",
		},
		Job{
			Name:           "ohw-dealer-service",
			Remote:         "git@github.com:prasanth-sim/ohw-dealer-service.git",
			Tool:           "maven",
			Command:        "scripts/build-maven.sh {{base}} ohw-dealer-service {{branch}} {{variant}}",
			DefaultBranch:  "develop",
			DefaultVariant: "dev",
		},
		Job{
			Name:           "ohw-notification-service",
			Remote:         "git@github.com:prasanth-sim/ohw-notification-service.git",
			Tool:           "maven",
			Command:        "scripts/build-maven.sh {{base}} ohw-notification-service {{branch}} {{variant}}",
			DefaultBranch:  "develop",
			DefaultVariant: "dev",
		},
	)
}

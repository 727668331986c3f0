package resolver

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LockPin pins one identity to a concrete version or commit.
type LockPin struct {
	Version string `yaml:"version,omitempty"`
	Commit  string `yaml:"commit,omitempty"`
}

// Lockfile records previously resolved pins, keyed by identity key. The
// lockfile strategy consumes it; Resolve results can be written back so
// later runs reproduce the same plan without re-selection.
type Lockfile struct {
	Pins map[string]LockPin `yaml:"pins"`
}

// NewLockfile creates an empty Lockfile.
func NewLockfile() *Lockfile {
	return &Lockfile{Pins: make(map[string]LockPin)}
}

// LockfileFromPlan captures an install plan's bindings as a lockfile.
func LockfileFromPlan(plan InstallPlan) *Lockfile {
	lf := NewLockfile()
	for _, r := range plan {
		lf.Pins[r.Identity.Key()] = LockPin{Version: r.Version, Commit: r.Commit}
	}
	return lf
}

// LoadLockfile reads a lockfile from disk. Unknown fields are rejected.
func LoadLockfile(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read lockfile %s: %w", path, err)
	}

	var lf Lockfile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&lf); err != nil {
		return nil, fmt.Errorf("cannot parse lockfile %s: %w", path, err)
	}
	if lf.Pins == nil {
		lf.Pins = make(map[string]LockPin)
	}
	return &lf, nil
}

// Save writes the lockfile to disk.
func (l *Lockfile) Save(path string) error {
	data, err := yaml.Marshal(l)
	if err != nil {
		return fmt.Errorf("cannot marshal lockfile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write lockfile %s: %w", path, err)
	}
	return nil
}

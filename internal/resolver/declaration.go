// Package resolver turns version-constrained dependency declarations
// into a deduplicated, topologically ordered install plan. Manifest
// fetching goes through an external MetadataSource; version selection
// runs through an ordered strategy chain; ordering is a pure function of
// declaration content and order.
package resolver

import "strings"

// Identity names a package: a namespace/name pair for managed packages,
// or a repository (plus optional subfolder) for source-hosted ones.
type Identity struct {
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Name      string `yaml:"name,omitempty" json:"name,omitempty"`
	Repo      string `yaml:"repo,omitempty" json:"repo,omitempty"`
	Subfolder string `yaml:"subfolder,omitempty" json:"subfolder,omitempty"`
}

// Key returns the canonical string used for deduplication and lookups.
func (i Identity) Key() string {
	var parts []string
	if i.Namespace != "" {
		parts = append(parts, i.Namespace)
	}
	if i.Name != "" {
		parts = append(parts, i.Name)
	}
	if i.Repo != "" {
		parts = append(parts, i.Repo)
	}
	if i.Subfolder != "" {
		parts = append(parts, i.Subfolder)
	}
	return strings.Join(parts, "/")
}

// String returns the key.
func (i Identity) String() string {
	return i.Key()
}

// IsZero reports whether the identity names nothing.
func (i Identity) IsZero() bool {
	return i.Namespace == "" && i.Name == "" && i.Repo == "" && i.Subfolder == ""
}

// Declaration requests one dependency under a version constraint. At
// most one of Version, Commit, or Tag is set; Range narrows the
// latest-release/latest-beta strategies; with no constraint at all the
// latest release wins.
type Declaration struct {
	Identity Identity `yaml:"identity" json:"identity"`

	// Version pins an exact released version.
	Version string `yaml:"version,omitempty" json:"version,omitempty"`

	// Range is a semver constraint (">=1.4, <2.0") narrowing latest
	// selection.
	Range string `yaml:"range,omitempty" json:"range,omitempty"`

	// Tag pins a named tag from the source repository.
	Tag string `yaml:"tag,omitempty" json:"tag,omitempty"`

	// Commit pins an exact commit.
	Commit string `yaml:"commit,omitempty" json:"commit,omitempty"`

	// AllowBeta admits prerelease versions during latest selection.
	AllowBeta bool `yaml:"allow_beta,omitempty" json:"allow_beta,omitempty"`

	// LatestCommit selects the newest commit instead of a release.
	LatestCommit bool `yaml:"latest_commit,omitempty" json:"latest_commit,omitempty"`
}

// Resolved binds an identity to one concrete version or commit and the
// source location it came from.
type Resolved struct {
	Identity Identity `yaml:"identity" json:"identity"`
	Version  string   `yaml:"version,omitempty" json:"version,omitempty"`
	Commit   string   `yaml:"commit,omitempty" json:"commit,omitempty"`
	Source   string   `yaml:"source,omitempty" json:"source,omitempty"`
}

// Ref returns the concrete ref to fetch transitive dependencies at: the
// commit when one is bound, otherwise the version.
func (r Resolved) Ref() string {
	if r.Commit != "" {
		return r.Commit
	}
	return r.Version
}

// InstallPlan is a deduplicated sequence of resolved dependencies in
// install order: every entry's dependencies precede it.
type InstallPlan []Resolved

// Keys returns the identity keys in plan order.
func (p InstallPlan) Keys() []string {
	keys := make([]string, len(p))
	for i, r := range p {
		keys[i] = r.Identity.Key()
	}
	return keys
}

package resolver

import "context"

// Manifest is what a MetadataSource knows about a package at a given
// ref: its declared dependencies and the versions, tags, and commits
// available for selection.
type Manifest struct {
	// Dependencies are the package's own transitive declarations at the
	// fetched ref, in declaration order.
	Dependencies []Declaration

	// Versions lists released versions (semver strings, prereleases
	// included).
	Versions []string

	// Tags maps tag names to commits.
	Tags map[string]string

	// Commits lists commits, newest first.
	Commits []string
}

// MetadataSource fetches package manifests. The resolver calls it with
// an empty ref for availability data and again at the resolved ref for
// transitive declarations; implementations should expect both. Calls are
// memoized by identity and ref, and independent fetches may run
// concurrently, so implementations must be safe for concurrent use.
type MetadataSource interface {
	FetchManifest(ctx context.Context, identity Identity, ref string) (*Manifest, error)
}

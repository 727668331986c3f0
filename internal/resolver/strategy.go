package resolver

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Strategy tries to bind one declaration to a concrete version or
// commit given the package's manifest. Returning (nil, nil) means the
// strategy does not apply; the chain moves on to the next one.
type Strategy interface {
	Name() string
	Resolve(decl Declaration, manifest *Manifest) (*Resolved, error)
}

// DefaultStrategies returns the standard chain: exact pin, lockfile pin,
// tag, latest release, latest beta, latest commit. lockfile may be nil.
func DefaultStrategies(lockfile *Lockfile) []Strategy {
	return []Strategy{
		ExactPinStrategy{},
		LockfileStrategy{Lockfile: lockfile},
		TagStrategy{},
		LatestReleaseStrategy{},
		LatestBetaStrategy{},
		LatestCommitStrategy{},
	}
}

// ExactPinStrategy binds declarations carrying an exact version or
// commit pin. A version pin absent from a non-empty manifest version
// list is a hard error, so a typo fails the resolution instead of
// silently falling through to a lockfile or latest binding.
type ExactPinStrategy struct{}

func (ExactPinStrategy) Name() string { return "exact pin" }

func (ExactPinStrategy) Resolve(decl Declaration, manifest *Manifest) (*Resolved, error) {
	if decl.Commit != "" {
		return &Resolved{Identity: decl.Identity, Commit: decl.Commit, Source: "commit pin"}, nil
	}
	if decl.Version == "" {
		return nil, nil
	}

	pinned, err := semver.NewVersion(decl.Version)
	if err != nil {
		return nil, fmt.Errorf("invalid version pin '%s' for '%s': %w", decl.Version, decl.Identity, err)
	}
	if len(manifest.Versions) == 0 {
		return &Resolved{Identity: decl.Identity, Version: pinned.String(), Source: "exact pin"}, nil
	}
	for _, v := range manifest.Versions {
		available, err := semver.NewVersion(v)
		if err != nil {
			continue
		}
		if available.Equal(pinned) {
			return &Resolved{Identity: decl.Identity, Version: available.String(), Source: "exact pin"}, nil
		}
	}
	return nil, &UnresolvableDependencyError{
		Identity: decl.Identity,
		Reason:   fmt.Sprintf("version pin %s is not among the published versions", decl.Version),
	}
}

// LockfileStrategy binds declarations whose identity is pinned in the
// lockfile. It never overrides an explicit pin: the exact-pin strategy
// runs earlier in the chain.
type LockfileStrategy struct {
	Lockfile *Lockfile
}

func (LockfileStrategy) Name() string { return "lockfile" }

func (s LockfileStrategy) Resolve(decl Declaration, manifest *Manifest) (*Resolved, error) {
	if s.Lockfile == nil {
		return nil, nil
	}
	pin, ok := s.Lockfile.Pins[decl.Identity.Key()]
	if !ok {
		return nil, nil
	}
	return &Resolved{
		Identity: decl.Identity,
		Version:  pin.Version,
		Commit:   pin.Commit,
		Source:   "lockfile",
	}, nil
}

// TagStrategy binds declarations pinned to a named tag.
type TagStrategy struct{}

func (TagStrategy) Name() string { return "tag" }

func (TagStrategy) Resolve(decl Declaration, manifest *Manifest) (*Resolved, error) {
	if decl.Tag == "" {
		return nil, nil
	}
	commit, ok := manifest.Tags[decl.Tag]
	if !ok {
		return nil, nil
	}
	return &Resolved{
		Identity: decl.Identity,
		Commit:   commit,
		Source:   "tag " + decl.Tag,
	}, nil
}

// LatestReleaseStrategy picks the highest released (non-prerelease)
// version, narrowed by the declaration's range constraint when present.
type LatestReleaseStrategy struct{}

func (LatestReleaseStrategy) Name() string { return "latest release" }

func (LatestReleaseStrategy) Resolve(decl Declaration, manifest *Manifest) (*Resolved, error) {
	if !wantsLatest(decl) || decl.AllowBeta {
		return nil, nil
	}
	best, err := highestVersion(decl, manifest.Versions, false)
	if err != nil || best == nil {
		return nil, err
	}
	return &Resolved{Identity: decl.Identity, Version: best.String(), Source: "latest release"}, nil
}

// LatestBetaStrategy picks the highest version including prereleases.
// It only applies to declarations that opted in with allow_beta.
type LatestBetaStrategy struct{}

func (LatestBetaStrategy) Name() string { return "latest beta" }

func (LatestBetaStrategy) Resolve(decl Declaration, manifest *Manifest) (*Resolved, error) {
	if !wantsLatest(decl) || !decl.AllowBeta {
		return nil, nil
	}
	best, err := highestVersion(decl, manifest.Versions, true)
	if err != nil || best == nil {
		return nil, err
	}
	return &Resolved{Identity: decl.Identity, Version: best.String(), Source: "latest beta"}, nil
}

// LatestCommitStrategy binds declarations that asked for the newest
// commit of the source repository.
type LatestCommitStrategy struct{}

func (LatestCommitStrategy) Name() string { return "latest commit" }

func (LatestCommitStrategy) Resolve(decl Declaration, manifest *Manifest) (*Resolved, error) {
	if !decl.LatestCommit {
		return nil, nil
	}
	if len(manifest.Commits) == 0 {
		return nil, nil
	}
	return &Resolved{
		Identity: decl.Identity,
		Commit:   manifest.Commits[0],
		Source:   "latest commit",
	}, nil
}

// wantsLatest reports whether the declaration carries no explicit pin
// and so falls through to latest selection.
func wantsLatest(decl Declaration) bool {
	return decl.Version == "" && decl.Commit == "" && decl.Tag == "" && !decl.LatestCommit
}

// highestVersion returns the highest version from the list that
// satisfies the declaration's range, including prereleases only when
// asked. Unparseable entries are skipped.
func highestVersion(decl Declaration, versions []string, includePrerelease bool) (*semver.Version, error) {
	var constraint *semver.Constraints
	if decl.Range != "" {
		var err error
		constraint, err = semver.NewConstraint(decl.Range)
		if err != nil {
			return nil, fmt.Errorf("invalid version range '%s' for '%s': %w", decl.Range, decl.Identity, err)
		}
	}

	var best *semver.Version
	for _, raw := range versions {
		v, err := semver.NewVersion(raw)
		if err != nil {
			continue
		}
		if v.Prerelease() != "" && !includePrerelease {
			continue
		}
		if constraint != nil && !constraint.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
		}
	}
	return best, nil
}

package resolver

import (
	"fmt"
	"strings"
)

// UnresolvableDependencyError reports a declaration no strategy in the
// chain could bind to a concrete version or commit.
type UnresolvableDependencyError struct {
	Identity Identity
	Tried    []string
	Reason   string
}

// Error implements the error interface.
func (e *UnresolvableDependencyError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot resolve dependency '%s': %s", e.Identity, e.Reason)
	}
	return fmt.Sprintf("cannot resolve dependency '%s': no strategy succeeded (tried %s)",
		e.Identity, strings.Join(e.Tried, ", "))
}

// VersionConflictError reports two requesters pinning the same identity
// to incompatible exact versions.
type VersionConflictError struct {
	Identity   Identity
	RequesterA string
	VersionA   string
	RequesterB string
	VersionB   string
}

// Error implements the error interface.
func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict on '%s': %s requires %s but %s requires %s",
		e.Identity, e.RequesterA, e.VersionA, e.RequesterB, e.VersionB)
}

// CyclicDependencyError reports a dependency cycle, listing its members
// in walk order.
type CyclicDependencyError struct {
	Members []string
}

// Error implements the error interface.
func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Members, " -> "))
}

// FetchError reports a manifest fetch that failed.
type FetchError struct {
	Identity Identity
	Ref      string
	Cause    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("cannot fetch manifest for '%s' at %s: %v", e.Identity, e.Ref, e.Cause)
	}
	return fmt.Sprintf("cannot fetch manifest for '%s': %v", e.Identity, e.Cause)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Cause
}

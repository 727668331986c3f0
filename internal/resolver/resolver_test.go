package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// fakeSource is an in-memory MetadataSource keyed by identity.
type fakeSource struct {
	mu       sync.Mutex
	calls    map[string]int
	packages map[string]*Manifest
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		calls:    make(map[string]int),
		packages: make(map[string]*Manifest),
	}
}

// add registers a package with a single released version and its
// dependencies on other registered packages.
func (s *fakeSource) add(name, version string, deps ...string) {
	manifest := &Manifest{Versions: []string{version}}
	for _, dep := range deps {
		manifest.Dependencies = append(manifest.Dependencies, Declaration{
			Identity: pkgIdentity(dep),
		})
	}
	s.packages[pkgIdentity(name).Key()] = manifest
}

func (s *fakeSource) FetchManifest(ctx context.Context, identity Identity, ref string) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[identity.Key()+"@"+ref]++
	manifest, ok := s.packages[identity.Key()]
	if !ok {
		return nil, fmt.Errorf("unknown package %s", identity)
	}
	return manifest, nil
}

func (s *fakeSource) fetchCount(name, ref string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[pkgIdentity(name).Key()+"@"+ref]
}

func declare(names ...string) []Declaration {
	decls := make([]Declaration, len(names))
	for i, name := range names {
		decls[i] = Declaration{Identity: pkgIdentity(name)}
	}
	return decls
}

func TestResolver_LinearChain(t *testing.T) {
	source := newFakeSource()
	source.add("a", "1.0.0", "b")
	source.add("b", "1.0.0", "c")
	source.add("c", "1.0.0")

	plan, err := New(source).Resolve(context.Background(), declare("a"))
	require.NoError(t, err)

	assert.Equal(t, []string{"acme/c", "acme/b", "acme/a"}, plan.Keys(),
		"dependencies install before their dependents")
}

func TestResolver_SharedDependencyDeduplicated(t *testing.T) {
	source := newFakeSource()
	source.add("a", "1.0.0", "shared")
	source.add("b", "1.0.0", "shared")
	source.add("shared", "1.0.0")

	plan, err := New(source).Resolve(context.Background(), declare("a", "b"))
	require.NoError(t, err)

	assert.Equal(t, []string{"acme/shared", "acme/a", "acme/b"}, plan.Keys())
	assert.Equal(t, 1, source.fetchCount("shared", ""), "manifest fetched once despite two requesters")
}

func TestResolver_DeclarationOrderBreaksTies(t *testing.T) {
	source := newFakeSource()
	source.add("x", "1.0.0")
	source.add("y", "1.0.0")
	source.add("z", "1.0.0")

	plan, err := New(source).Resolve(context.Background(), declare("z", "x", "y"))
	require.NoError(t, err)

	assert.Equal(t, []string{"acme/z", "acme/x", "acme/y"}, plan.Keys())
}

func TestResolver_MutualDependencyIsACycle(t *testing.T) {
	source := newFakeSource()
	source.add("a", "1.0.0", "b")
	source.add("b", "1.0.0", "a")

	_, err := New(source).Resolve(context.Background(), declare("a"))
	require.Error(t, err)

	var cycleErr *CyclicDependencyError
	require.ErrorAs(t, err, &cycleErr)
	assert.Contains(t, cycleErr.Members, "acme/a")
	assert.Contains(t, cycleErr.Members, "acme/b")
}

func TestResolver_ConflictingExactPins(t *testing.T) {
	source := newFakeSource()
	source.add("app", "1.0.0")
	source.add("core", "1.0.0")
	source.packages[pkgIdentity("core").Key()].Versions = []string{"1.0.0", "2.0.0"}
	source.packages[pkgIdentity("app").Key()].Dependencies = []Declaration{
		{Identity: pkgIdentity("core"), Version: "2.0.0"},
	}

	decls := []Declaration{
		{Identity: pkgIdentity("core"), Version: "1.0.0"},
		{Identity: pkgIdentity("app")},
	}

	_, err := New(source).Resolve(context.Background(), decls)
	require.Error(t, err)

	var conflict *VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "acme/core", conflict.Identity.Key())
	// Both requesters are named.
	assert.Equal(t, rootRequester, conflict.RequesterA)
	assert.Equal(t, "acme/app", conflict.RequesterB)
	assert.NotEqual(t, conflict.VersionA, conflict.VersionB)
}

func TestResolver_VersionAndCommitPinsConflict(t *testing.T) {
	source := newFakeSource()
	source.add("core", "1.0.0")

	decls := []Declaration{
		{Identity: pkgIdentity("core"), Version: "1.0.0"},
		{Identity: pkgIdentity("core"), Commit: "abc123"},
	}

	_, err := New(source).Resolve(context.Background(), decls)

	var conflict *VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "acme/core", conflict.Identity.Key())
	assert.Equal(t, "1.0.0", conflict.VersionA)
	assert.Equal(t, "commit abc123", conflict.VersionB)
}

func TestResolver_LatePinAgainstUnpinnedBinding(t *testing.T) {
	source := newFakeSource()
	source.add("app", "1.0.0")
	source.add("core", "1.0.0")
	source.packages[pkgIdentity("core").Key()].Versions = []string{"1.0.0", "2.0.0"}
	source.packages[pkgIdentity("app").Key()].Dependencies = []Declaration{
		{Identity: pkgIdentity("core"), Version: "1.0.0"},
	}

	// core is discovered unpinned first and binds to latest; app's
	// exact pin on it must surface, not lose silently.
	decls := []Declaration{
		{Identity: pkgIdentity("core")},
		{Identity: pkgIdentity("app")},
	}

	_, err := New(source).Resolve(context.Background(), decls)

	var conflict *VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "acme/core", conflict.Identity.Key())
	assert.Equal(t, rootRequester, conflict.RequesterA)
	assert.Equal(t, "2.0.0", conflict.VersionA)
	assert.Equal(t, "acme/app", conflict.RequesterB)
	assert.Equal(t, "1.0.0", conflict.VersionB)
}

func TestResolver_LatePinMatchingBindingPasses(t *testing.T) {
	source := newFakeSource()
	source.add("app", "1.0.0")
	source.add("core", "2.0.0")
	source.packages[pkgIdentity("app").Key()].Dependencies = []Declaration{
		{Identity: pkgIdentity("core"), Version: "2.0.0"},
	}

	plan, err := New(source).Resolve(context.Background(), []Declaration{
		{Identity: pkgIdentity("core")},
		{Identity: pkgIdentity("app")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"acme/core", "acme/app"}, plan.Keys())
}

func TestResolver_LateRangeAgainstBinding(t *testing.T) {
	source := newFakeSource()
	source.add("app", "1.0.0")
	source.add("core", "2.0.0")
	source.packages[pkgIdentity("app").Key()].Dependencies = []Declaration{
		{Identity: pkgIdentity("core"), Range: ">=1.0, <2.0"},
	}

	_, err := New(source).Resolve(context.Background(), []Declaration{
		{Identity: pkgIdentity("core")},
		{Identity: pkgIdentity("app")},
	})

	var conflict *VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "range >=1.0, <2.0", conflict.VersionB)
}

func TestResolver_SameExactPinTwiceIsFine(t *testing.T) {
	source := newFakeSource()
	source.add("a", "1.0.0", "core")
	source.add("core", "1.0.0")
	source.packages[pkgIdentity("a").Key()].Dependencies = []Declaration{
		{Identity: pkgIdentity("core"), Version: "1.0.0"},
	}

	decls := []Declaration{
		{Identity: pkgIdentity("core"), Version: "1.0.0"},
		{Identity: pkgIdentity("a")},
	}

	plan, err := New(source).Resolve(context.Background(), decls)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme/core", "acme/a"}, plan.Keys())
}

func TestResolver_UnresolvableDependency(t *testing.T) {
	source := newFakeSource()
	source.packages[pkgIdentity("ghost").Key()] = &Manifest{} // no versions at all

	_, err := New(source).Resolve(context.Background(), declare("ghost"))
	require.Error(t, err)

	var unresolvable *UnresolvableDependencyError
	require.ErrorAs(t, err, &unresolvable)
	assert.Equal(t, "acme/ghost", unresolvable.Identity.Key())
	assert.NotEmpty(t, unresolvable.Tried)
}

func TestResolver_FetchFailure(t *testing.T) {
	source := newFakeSource()

	_, err := New(source).Resolve(context.Background(), declare("missing"))
	require.Error(t, err)

	var fetchErr *FetchError
	assert.ErrorAs(t, err, &fetchErr)
}

func TestResolver_LockfilePinWins(t *testing.T) {
	source := newFakeSource()
	source.add("core", "1.0.0")
	source.packages[pkgIdentity("core").Key()].Versions = []string{"1.0.0", "2.0.0"}

	lf := NewLockfile()
	lf.Pins["acme/core"] = LockPin{Version: "1.0.0"}

	plan, err := New(source, WithLockfile(lf)).Resolve(context.Background(), declare("core"))
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, "1.0.0", plan[0].Version, "lockfile pin wins over latest release")
	assert.Equal(t, "lockfile", plan[0].Source)
}

func TestResolver_EmptyDeclarations(t *testing.T) {
	plan, err := New(newFakeSource()).Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, plan)
}

func TestResolver_DiamondGraph(t *testing.T) {
	// app -> left -> base, app -> right -> base
	source := newFakeSource()
	source.add("app", "1.0.0", "left", "right")
	source.add("left", "1.0.0", "base")
	source.add("right", "1.0.0", "base")
	source.add("base", "1.0.0")

	plan, err := New(source).Resolve(context.Background(), declare("app"))
	require.NoError(t, err)

	assert.Equal(t, []string{"acme/base", "acme/left", "acme/right", "acme/app"}, plan.Keys())
}

func TestResolver_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := newFakeSource()
	source.add("a", "1.0.0")

	blockingSource := sourceFunc(func(fctx context.Context, identity Identity, ref string) (*Manifest, error) {
		if err := fctx.Err(); err != nil {
			return nil, err
		}
		return source.FetchManifest(fctx, identity, ref)
	})

	_, err := New(blockingSource).Resolve(ctx, declare("a"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

// sourceFunc adapts a function to MetadataSource.
type sourceFunc func(ctx context.Context, identity Identity, ref string) (*Manifest, error)

func (f sourceFunc) FetchManifest(ctx context.Context, identity Identity, ref string) (*Manifest, error) {
	return f(ctx, identity, ref)
}

// TestResolverProperty_Deterministic builds random acyclic graphs and
// checks that resolving the same declarations twice yields identical
// plans.
func TestResolverProperty_Deterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "n")

		source := newFakeSource()
		names := make([]string, n)
		for i := 0; i < n; i++ {
			names[i] = fmt.Sprintf("pkg%d", i)
		}
		// Edges only point to higher indexes, so the graph is acyclic.
		for i := 0; i < n; i++ {
			var deps []string
			for j := i + 1; j < n; j++ {
				if rapid.Bool().Draw(t, fmt.Sprintf("edge_%d_%d", i, j)) {
					deps = append(deps, names[j])
				}
			}
			source.add(names[i], "1.0.0", deps...)
		}

		rootCount := rapid.IntRange(1, n).Draw(t, "roots")
		decls := declare(names[:rootCount]...)

		first, err := New(source).Resolve(context.Background(), decls)
		require.NoError(t, err)
		second, err := New(source).Resolve(context.Background(), decls)
		require.NoError(t, err)

		assert.Equal(t, first.Keys(), second.Keys())

		// Every dependency precedes its dependent.
		position := make(map[string]int, len(first))
		for i, key := range first.Keys() {
			position[key] = i
		}
		for i := 0; i < rootCount; i++ {
			for _, dep := range source.packages[pkgIdentity(names[i]).Key()].Dependencies {
				if depPos, ok := position[dep.Identity.Key()]; ok {
					assert.Less(t, depPos, position[pkgIdentity(names[i]).Key()])
				}
			}
		}
	})
}

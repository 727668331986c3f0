package resolver

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/errgroup"

	"pipewright/flowkit/pkg/logger"
)

// DefaultFetchConcurrency bounds the manifest-fetch worker pool.
const DefaultFetchConcurrency = 4

// rootRequester names the caller's own declarations in conflict reports.
const rootRequester = "<root>"

// Resolver resolves dependency declarations into install plans. The
// fetch phase may run concurrently; selection and ordering are
// deterministic functions of declaration content and order.
type Resolver struct {
	source      MetadataSource
	strategies  []Strategy
	concurrency int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithStrategies replaces the default strategy chain. Order matters:
// the first strategy that yields a binding wins.
func WithStrategies(strategies ...Strategy) Option {
	return func(r *Resolver) {
		r.strategies = strategies
	}
}

// WithLockfile installs the default chain with the given lockfile wired
// into its lockfile strategy.
func WithLockfile(lf *Lockfile) Option {
	return func(r *Resolver) {
		r.strategies = DefaultStrategies(lf)
	}
}

// WithFetchConcurrency bounds the concurrent manifest fetches.
func WithFetchConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// New creates a Resolver over the given metadata source.
func New(source MetadataSource, opts ...Option) *Resolver {
	r := &Resolver{
		source:      source,
		strategies:  DefaultStrategies(nil),
		concurrency: DefaultFetchConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// node is one deduplicated identity in the dependency graph. The first
// declaration drives the strategy chain; every later declaration folded
// into the node is kept as a constraint and checked against the binding.
type node struct {
	key         string
	decl        Declaration
	requester   string
	resolved    *Resolved
	deps        []string
	order       int // discovery order; breaks toposort ties
	constraints []pending
}

// pending is a declaration waiting to be folded into the graph.
type pending struct {
	decl      Declaration
	requester string
}

// Resolve builds the transitive dependency graph, binds every node to a
// concrete version through the strategy chain, and returns the
// deduplicated, topologically ordered install plan. Resolution never
// partially succeeds: any unresolved, conflicting, or cyclic node fails
// the whole call.
func (r *Resolver) Resolve(ctx context.Context, decls []Declaration) (InstallPlan, error) {
	fetch := newFetcher(r.source)
	nodes := make(map[string]*node)
	var discovered []*node

	level := make([]pending, 0, len(decls))
	for _, d := range decls {
		level = append(level, pending{decl: d, requester: rootRequester})
	}

	// Breadth-first expansion: each level's new nodes are fetched and
	// bound concurrently, then their dependencies form the next level in
	// declaration order so discovery order stays deterministic.
	for len(level) > 0 {
		var fresh []*node
		for _, p := range level {
			key := p.decl.Identity.Key()
			if key == "" {
				return nil, fmt.Errorf("declaration from %s has an empty identity", p.requester)
			}
			if existing, ok := nodes[key]; ok {
				if err := checkConflict(existing, p); err != nil {
					return nil, err
				}
				existing.constraints = append(existing.constraints, p)
				continue
			}
			n := &node{key: key, decl: p.decl, requester: p.requester, order: len(discovered)}
			nodes[key] = n
			discovered = append(discovered, n)
			fresh = append(fresh, n)
		}

		manifests := make([]*Manifest, len(fresh))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.concurrency)
		for i, n := range fresh {
			i, n := i, n
			g.Go(func() error {
				availability, err := fetch.Get(gctx, n.decl.Identity, "")
				if err != nil {
					return err
				}
				resolved, err := r.runChain(n.decl, availability)
				if err != nil {
					return err
				}
				n.resolved = resolved

				manifest, err := fetch.Get(gctx, n.decl.Identity, resolved.Ref())
				if err != nil {
					return err
				}
				manifests[i] = manifest
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var next []pending
		for i, n := range fresh {
			for _, dep := range manifests[i].Dependencies {
				n.deps = append(n.deps, dep.Identity.Key())
				next = append(next, pending{decl: dep, requester: n.key})
			}
		}
		level = next
	}

	for _, n := range discovered {
		if err := checkBinding(n); err != nil {
			return nil, err
		}
	}

	plan, err := topoSort(nodes, discovered)
	if err != nil {
		return nil, err
	}

	logger.Debug("resolved %d declarations into %d installs", len(decls), len(plan))
	return plan, nil
}

// runChain tries each strategy in order until one binds the declaration.
func (r *Resolver) runChain(decl Declaration, manifest *Manifest) (*Resolved, error) {
	tried := make([]string, 0, len(r.strategies))
	for _, s := range r.strategies {
		resolved, err := s.Resolve(decl, manifest)
		if err != nil {
			return nil, err
		}
		if resolved != nil {
			logger.Debug("dependency '%s' resolved to %s via %s", decl.Identity, resolved.Ref(), s.Name())
			return resolved, nil
		}
		tried = append(tried, s.Name())
	}
	return nil, &UnresolvableDependencyError{Identity: decl.Identity, Tried: tried}
}

// checkConflict rejects a re-declaration whose exact pin cannot be
// proven equal to the one the node already carries. Two pins of
// different kinds (a version against a commit) are never provably
// equal, so they conflict too.
func checkConflict(existing *node, p pending) error {
	a, b := existing.decl, p.decl
	aPinned := a.Version != "" || a.Commit != ""
	bPinned := b.Version != "" || b.Commit != ""
	if !aPinned || !bPinned {
		return nil
	}
	if a.Version == b.Version && a.Commit == b.Commit {
		return nil
	}
	return &VersionConflictError{
		Identity:   existing.decl.Identity,
		RequesterA: existing.requester,
		VersionA:   pinRef(a),
		RequesterB: p.requester,
		VersionB:   pinRef(b),
	}
}

// pinRef renders a declaration's exact pin for conflict messages.
func pinRef(d Declaration) string {
	if d.Commit != "" {
		return "commit " + d.Commit
	}
	return d.Version
}

// checkBinding verifies the node's bound version against the pin or
// range of every declaration that was folded into it. A pin arriving
// after the node resolved differently is a conflict, not a silent pick.
func checkBinding(n *node) error {
	for _, c := range n.constraints {
		var ok bool
		switch {
		case c.decl.Commit != "":
			ok = n.resolved.Commit == c.decl.Commit
		case c.decl.Version != "":
			ok = n.resolved.Version == c.decl.Version
		case c.decl.Range != "":
			ok = versionInRange(n.resolved.Version, c.decl.Range)
		default:
			ok = true
		}
		if !ok {
			return &VersionConflictError{
				Identity:   n.decl.Identity,
				RequesterA: n.requester,
				VersionA:   n.resolved.Ref(),
				RequesterB: c.requester,
				VersionB:   constraintRef(c.decl),
			}
		}
	}
	return nil
}

// constraintRef renders a folded declaration's requirement for conflict
// messages.
func constraintRef(d Declaration) string {
	if d.Commit != "" || d.Version != "" {
		return pinRef(d)
	}
	return "range " + d.Range
}

// versionInRange reports whether a bound version provably satisfies a
// semver range. An unparsable range or a commit-only binding cannot be
// proven, so it does not satisfy.
func versionInRange(version, rng string) bool {
	constraint, err := semver.NewConstraint(rng)
	if err != nil {
		return false
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return constraint.Check(v)
}

// topoSort orders the graph dependencies-first with Kahn's algorithm.
// Ties are broken by discovery order, so identical inputs always yield
// identical plans.
func topoSort(nodes map[string]*node, discovered []*node) (InstallPlan, error) {
	indegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string, len(nodes))
	for _, n := range discovered {
		for _, dep := range n.deps {
			if _, ok := nodes[dep]; !ok {
				continue
			}
			indegree[n.key]++
			dependents[dep] = append(dependents[dep], n.key)
		}
	}

	plan := make(InstallPlan, 0, len(discovered))
	done := make(map[string]bool, len(discovered))

	for len(plan) < len(discovered) {
		var pick *node
		for _, n := range discovered {
			if !done[n.key] && indegree[n.key] == 0 {
				pick = n
				break
			}
		}
		if pick == nil {
			return nil, &CyclicDependencyError{Members: findCycle(nodes, discovered, done)}
		}
		done[pick.key] = true
		plan = append(plan, *pick.resolved)
		for _, parent := range dependents[pick.key] {
			indegree[parent]--
		}
	}

	return plan, nil
}

// findCycle walks the unprocessed remainder of the graph until a node
// repeats, then returns the cycle's members in walk order.
func findCycle(nodes map[string]*node, discovered []*node, done map[string]bool) []string {
	remaining := func(key string) bool {
		n, ok := nodes[key]
		return ok && !done[n.key]
	}

	var start *node
	for _, n := range discovered {
		if !done[n.key] {
			start = n
			break
		}
	}
	if start == nil {
		return nil
	}

	seen := make(map[string]int)
	var path []string
	current := start
	for {
		if idx, ok := seen[current.key]; ok {
			return path[idx:]
		}
		seen[current.key] = len(path)
		path = append(path, current.key)

		next := ""
		for _, dep := range current.deps {
			if remaining(dep) {
				next = dep
				break
			}
		}
		if next == "" {
			return path
		}
		current = nodes[next]
	}
}

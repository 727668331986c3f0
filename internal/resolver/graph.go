package resolver

import (
	"context"
	"sync"
)

// fetcher memoizes MetadataSource calls by identity and ref so each
// manifest is fetched at most once per resolution, no matter how many
// requesters share a dependency.
type fetcher struct {
	source MetadataSource

	mu    sync.Mutex
	cache map[string]*fetchEntry
}

type fetchEntry struct {
	once     sync.Once
	manifest *Manifest
	err      error
}

func newFetcher(source MetadataSource) *fetcher {
	return &fetcher{source: source, cache: make(map[string]*fetchEntry)}
}

// Get returns the manifest for an identity at a ref, fetching it on
// first use. Concurrent callers for the same key share one fetch.
func (f *fetcher) Get(ctx context.Context, identity Identity, ref string) (*Manifest, error) {
	key := identity.Key() + "@" + ref

	f.mu.Lock()
	entry, ok := f.cache[key]
	if !ok {
		entry = &fetchEntry{}
		f.cache[key] = entry
	}
	f.mu.Unlock()

	entry.once.Do(func() {
		manifest, err := f.source.FetchManifest(ctx, identity, ref)
		if err != nil {
			entry.err = &FetchError{Identity: identity, Ref: ref, Cause: err}
			return
		}
		if manifest == nil {
			manifest = &Manifest{}
		}
		entry.manifest = manifest
	})

	return entry.manifest, entry.err
}

// Package credentials defines the credential capability consumed by
// tasks that talk to a target environment. Encryption at rest and token
// refresh live behind the Provider implementation, outside the engine.
package credentials

import (
	"context"
	"fmt"
	"sync"
)

// Provider supplies a valid access token for a named target. GetValidToken
// is expected to refresh expired tokens internally; the engine never sees
// raw credential storage.
type Provider interface {
	GetValidToken(ctx context.Context, target string) (string, error)
}

// StaticProvider is an in-memory Provider for tests and local use.
type StaticProvider struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// NewStaticProvider creates a StaticProvider from a target → token map.
func NewStaticProvider(tokens map[string]string) *StaticProvider {
	p := &StaticProvider{tokens: make(map[string]string, len(tokens))}
	for k, v := range tokens {
		p.tokens[k] = v
	}
	return p
}

// SetToken sets the token for a target.
func (p *StaticProvider) SetToken(target, token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens[target] = token
}

// GetValidToken returns the stored token for the target.
func (p *StaticProvider) GetValidToken(_ context.Context, target string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	token, ok := p.tokens[target]
	if !ok {
		return "", fmt.Errorf("no credentials configured for target '%s'", target)
	}
	return token, nil
}

var _ Provider = (*StaticProvider)(nil)

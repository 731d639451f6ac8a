// Package secrets resolves credentials from environment variables or Azure Key Vault.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SecretSource defines where secrets are loaded from
type SecretSource string

const (
	SourceEnvironment SecretSource = "environment"
	SourceVault       SecretSource = "vault"
	// SourceAuto picks vault outside development
	SourceAuto SecretSource = "auto"
)

// backend is a raw secret lookup without caching.
type backend interface {
	lookup(ctx context.Context, name string) (string, error)
}

type envBackend struct{}

func (envBackend) lookup(_ context.Context, name string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return "", fmt.Errorf("environment variable '%s' not set", name)
	}
	return value, nil
}

// ProviderConfig holds configuration for the secrets provider
type ProviderConfig struct {
	Source       SecretSource
	VaultName    string
	Environment  string
	CacheEnabled bool
	CacheTTL     time.Duration
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

// Provider resolves secrets, caching vault lookups for CacheTTL.
type Provider struct {
	source  SecretSource
	backend backend
	logger  *zap.Logger

	cacheEnabled bool
	cacheTTL     time.Duration
	mu           sync.Mutex
	cache        map[string]cachedSecret
	now          func() time.Time
}

// ResolveSource turns SourceAuto into a concrete source for environment.
func ResolveSource(source SecretSource, environment string) SecretSource {
	if source != SourceAuto {
		return source
	}
	switch strings.ToLower(environment) {
	case "development", "local", "test", "":
		return SourceEnvironment
	default:
		return SourceVault
	}
}

// NewProvider creates a new secrets provider
func NewProvider(cfg *ProviderConfig, logger *zap.Logger) (*Provider, error) {
	source := ResolveSource(cfg.Source, cfg.Environment)

	p := &Provider{
		source:       source,
		logger:       logger,
		cacheEnabled: cfg.CacheEnabled && source == SourceVault,
		cacheTTL:     cfg.CacheTTL,
		cache:        make(map[string]cachedSecret),
		now:          time.Now,
	}
	if p.cacheTTL == 0 {
		p.cacheTTL = 5 * time.Minute
	}

	switch source {
	case SourceEnvironment:
		p.backend = envBackend{}
	case SourceVault:
		vb, err := newVaultBackend(cfg.VaultName, logger)
		if err != nil {
			return nil, err
		}
		p.backend = vb
	default:
		return nil, fmt.Errorf("unknown secret source: %s", source)
	}

	logger.Info("Secrets provider initialized",
		zap.String("source", string(source)),
		zap.String("environment", cfg.Environment),
	)
	return p, nil
}

// GetSecret retrieves a secret by name. For the environment source the name
// is the variable name.
func (p *Provider) GetSecret(ctx context.Context, name string) (string, error) {
	if p.cacheEnabled {
		p.mu.Lock()
		cached, ok := p.cache[name]
		p.mu.Unlock()
		if ok && p.now().Before(cached.expiresAt) {
			return cached.value, nil
		}
	}

	value, err := p.backend.lookup(ctx, name)
	if err != nil {
		return "", err
	}

	if p.cacheEnabled {
		p.mu.Lock()
		p.cache[name] = cachedSecret{value: value, expiresAt: p.now().Add(p.cacheTTL)}
		p.mu.Unlock()
	}
	return value, nil
}

// GetSecretOrEnv prefers an explicitly set environment variable over the configured source.
func (p *Provider) GetSecretOrEnv(ctx context.Context, secretName, envName string) (string, error) {
	if envValue := os.Getenv(envName); envValue != "" {
		p.logger.Debug("Using environment variable override", zap.String("env_name", envName))
		return envValue, nil
	}
	return p.GetSecret(ctx, secretName)
}

// GetSecretOrEnvWithDefault combines GetSecretOrEnv with a default fallback
func (p *Provider) GetSecretOrEnvWithDefault(ctx context.Context, secretName, envName, defaultValue string) string {
	value, err := p.GetSecretOrEnv(ctx, secretName, envName)
	if err != nil {
		return defaultValue
	}
	return value
}

// ClearCache drops all cached secrets
func (p *Provider) ClearCache() {
	p.mu.Lock()
	p.cache = make(map[string]cachedSecret)
	p.mu.Unlock()
}

// Source returns the resolved secret source
func (p *Provider) Source() SecretSource {
	return p.source
}

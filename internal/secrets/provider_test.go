package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingBackend struct {
	calls int
	value string
}

func (c *countingBackend) lookup(_ context.Context, name string) (string, error) {
	c.calls++
	if c.value == "" {
		return "", errors.New("missing")
	}
	return c.value, nil
}

func TestResolveSource(t *testing.T) {
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, "development"))
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, ""))
	assert.Equal(t, SourceVault, ResolveSource(SourceAuto, "production"))
	assert.Equal(t, SourceVault, ResolveSource(SourceVault, "development"))
}

func TestProvider_EnvironmentSource(t *testing.T) {
	t.Setenv("ENQUIRY_TEST_SECRET", "value-1")

	p, err := NewProvider(&ProviderConfig{Source: SourceAuto, Environment: "development"}, zap.NewNop())
	require.NoError(t, err)

	v, err := p.GetSecret(context.Background(), "ENQUIRY_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "value-1", v)

	_, err = p.GetSecret(context.Background(), "ENQUIRY_TEST_SECRET_MISSING")
	assert.Error(t, err)

	assert.Equal(t, "fallback", p.GetSecretOrEnvWithDefault(context.Background(), "nope", "NOPE_ENV", "fallback"))
}

func TestProvider_EnvOverrideWins(t *testing.T) {
	t.Setenv("OVERRIDE_ENV", "from-env")
	backend := &countingBackend{value: "from-backend"}
	p := &Provider{backend: backend, logger: zap.NewNop(), cache: map[string]cachedSecret{}, now: time.Now}

	v, err := p.GetSecretOrEnv(context.Background(), "secret", "OVERRIDE_ENV")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)
	assert.Zero(t, backend.calls)
}

func TestProvider_CachesUntilExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	backend := &countingBackend{value: "v"}
	p := &Provider{
		backend:      backend,
		logger:       zap.NewNop(),
		cacheEnabled: true,
		cacheTTL:     time.Minute,
		cache:        map[string]cachedSecret{},
		now:          func() time.Time { return now },
	}

	for i := 0; i < 3; i++ {
		_, err := p.GetSecret(context.Background(), "jwt-secret")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, backend.calls)

	now = now.Add(2 * time.Minute)
	_, err := p.GetSecret(context.Background(), "jwt-secret")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.calls)

	p.ClearCache()
	_, _ = p.GetSecret(context.Background(), "jwt-secret")
	assert.Equal(t, 3, backend.calls)
}

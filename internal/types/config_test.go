package types

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DefaultRowLimit, cfg.Search.RowLimit)
	assert.Equal(t, DefaultSiteCacheTTL, cfg.Search.CacheTTL)
	assert.Equal(t, DefaultSelectProperties, cfg.Search.SelectProperties)
	assert.Equal(t, DefaultValidFreshFor, cfg.License.ValidFreshFor)
	assert.Equal(t, DefaultInvalidFresh, cfg.License.InvalidFresh)
	assert.Equal(t, DefaultLicenseGrace, cfg.License.GracePeriod)
	assert.Equal(t, DefaultTenantSuffixes, cfg.License.TenantSuffixes)
}

func TestLoadConfigFileWithEnvExpansion(t *testing.T) {
	t.Setenv("TEST_LICENSE_ENDPOINT", "https://licensing.internal/api/validate")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9090
search:
  row_limit: 250
  cache_ttl: 2m
license:
  endpoint: ${TEST_LICENSE_ENDPOINT}
  invalid_fresh_for: 30m
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 250, cfg.Search.RowLimit)
	assert.Equal(t, "https://licensing.internal/api/validate", cfg.License.Endpoint)
	// Unset fields still pick up defaults.
	assert.Equal(t, DefaultRemoteTimeout, cfg.Search.Timeout)
	assert.Equal(t, DefaultLicenseProduct, cfg.License.Product)
}

func TestConfigValidateRejections(t *testing.T) {
	base := func() *AppConfig {
		cfg := &AppConfig{}
		cfg.ApplyDefaults()
		return cfg
	}

	cfg := base()
	cfg.Port = -1
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Search.RowLimit = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.License.Endpoint = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.License.InvalidFresh = cfg.License.ValidFreshFor + 1
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.License.GracePeriod = cfg.License.ValidFreshFor - 1
	require.Error(t, cfg.Validate())
}

func TestValidateRecords(t *testing.T) {
	good := []SiteRecord{
		{ID: "a", Title: "Alpha", URL: "https://x/sites/a"},
		{ID: "b", Title: "Beta", URL: "https://x/sites/b"},
	}
	require.NoError(t, ValidateRecords(good))

	require.Error(t, ValidateRecords([]SiteRecord{{Title: "no id", URL: "https://x"}}))
	require.Error(t, ValidateRecords([]SiteRecord{{ID: "a", Title: "no url"}}))
}

func TestCachedLicenseStatusValidate(t *testing.T) {
	good := CachedLicenseStatus{
		Response: LicenseStatus{Valid: false, Reason: ReasonSubscriptionExpired},
		CachedAt: 1700000000,
		TenantID: "contoso",
	}
	require.NoError(t, good.Validate())

	bad := good
	bad.TenantID = ""
	require.Error(t, bad.Validate())

	bad = good
	bad.CachedAt = 0
	require.Error(t, bad.Validate())

	bad = good
	bad.Response.Reason = "quantum_flux"
	require.Error(t, bad.Validate())
}

func TestLicenseReasonKnown(t *testing.T) {
	for _, r := range []LicenseReason{
		ReasonNone, ReasonTenantNotRegistered, ReasonSubscriptionExpired,
		ReasonSubscriptionCanceled, ReasonSubscriptionInactive,
		ReasonMissingTenantID, ReasonInvalidTenantID,
		ReasonRateLimitExceeded, ReasonServerError,
	} {
		assert.True(t, r.Known(), string(r))
	}
	assert.False(t, LicenseReason("quantum_flux").Known())
}

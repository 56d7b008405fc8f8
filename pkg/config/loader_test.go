package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquafarm/platform/pkg/config"
)

type resolverSettings struct {
	Headers       []string `env:"RESOLVER_HEADERS" envSeparator:"," envDefault:"X-Tenant-ID,X-Tenant"`
	DefaultTenant string   `env:"RESOLVER_DEFAULT_TENANT" envDefault:"default"`
	Strict        bool     `env:"RESOLVER_STRICT" envDefault:"false"`
}

type cacheSettings struct {
	TTL           time.Duration `env:"CACHE_SETTINGS_TTL" envDefault:"5m"`
	LookupTimeout time.Duration `env:"CACHE_SETTINGS_LOOKUP_TIMEOUT" envDefault:"5s"`
	MetricsPeriod time.Duration `env:"CACHE_SETTINGS_METRICS_PERIOD" envDefault:"1m"`
}

type storageSettings struct {
	DSN string `env:"STORAGE_SETTINGS_DSN,required"`
}

type singletonSettings struct {
	DefaultTenant string `env:"SINGLETON_DEFAULT_TENANT" envDefault:"default"`
}

type farmSettings struct {
	Name string `env:"FARM_SETTINGS_NAME" envDefault:"farm"`
}

type hatcherySettings struct {
	Name string `env:"HATCHERY_SETTINGS_NAME" envDefault:"hatchery"`
}

func TestLoad_Success(t *testing.T) {
	t.Setenv("RESOLVER_HEADERS", "X-Farm-Org,X-Tenant-ID")
	t.Setenv("RESOLVER_DEFAULT_TENANT", "demo-farm")
	t.Setenv("RESOLVER_STRICT", "true")

	var cfg resolverSettings
	err := config.Load(&cfg)

	require.NoError(t, err, "Load should not return an error with valid environment variables")
	assert.Equal(t, []string{"X-Farm-Org", "X-Tenant-ID"}, cfg.Headers)
	assert.Equal(t, "demo-farm", cfg.DefaultTenant)
	assert.True(t, cfg.Strict)
}

func TestLoad_DefaultValues(t *testing.T) {
	// Clean environment variables to ensure defaults are used
	os.Unsetenv("CACHE_SETTINGS_TTL")
	os.Unsetenv("CACHE_SETTINGS_LOOKUP_TIMEOUT")
	os.Unsetenv("CACHE_SETTINGS_METRICS_PERIOD")

	var cfg cacheSettings
	err := config.Load(&cfg)

	require.NoError(t, err, "Load should not return an error when using default values")
	assert.Equal(t, 5*time.Minute, cfg.TTL)
	assert.Equal(t, 5*time.Second, cfg.LookupTimeout)
	assert.Equal(t, time.Minute, cfg.MetricsPeriod)
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("STORAGE_SETTINGS_DSN")

	var cfg storageSettings
	err := config.Load(&cfg)

	require.Error(t, err, "Load should return an error when a required value is missing")
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_Singleton(t *testing.T) {
	t.Setenv("SINGLETON_DEFAULT_TENANT", "first-farm")

	var first singletonSettings
	err := config.Load(&first)
	require.NoError(t, err, "First load should not return an error")

	// Change environment variable to verify caching behavior
	t.Setenv("SINGLETON_DEFAULT_TENANT", "second-farm")

	var second singletonSettings
	err = config.Load(&second)
	require.NoError(t, err, "Second load should not return an error")

	// Both configs carry the first value: one parse per type.
	assert.Equal(t, first.DefaultTenant, second.DefaultTenant)
	assert.Equal(t, "first-farm", second.DefaultTenant,
		"Second config should have the first value due to caching")
}

func TestLoad_DifferentTypes(t *testing.T) {
	t.Setenv("FARM_SETTINGS_NAME", "tilapia-east")
	t.Setenv("HATCHERY_SETTINGS_NAME", "fry-north")

	var farm farmSettings
	err := config.Load(&farm)
	require.NoError(t, err, "Loading first config type should not error")

	var hatchery hatcherySettings
	err = config.Load(&hatchery)
	require.NoError(t, err, "Loading second config type should not error")

	assert.Equal(t, "tilapia-east", farm.Name, "First config should have its own value")
	assert.Equal(t, "fry-north", hatchery.Name, "Second config should have its own value")
}

func TestLoad_NilPointer(t *testing.T) {
	var cfg *resolverSettings = nil
	err := config.Load(cfg)

	require.Error(t, err, "Load should return an error when given a nil pointer")
	assert.ErrorIs(t, err, config.ErrNilPointer)
}

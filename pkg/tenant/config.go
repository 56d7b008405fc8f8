package tenant

import "time"

// Config carries the environment-driven settings for the tenant layer.
type Config struct {
	Headers        []string      `env:"TENANT_HEADERS" envSeparator:"," envDefault:"X-Tenant-ID,X-Tenant,Tenant-ID"` // Headers probed for a tenant key, highest priority first.
	DefaultTenant  string        `env:"DEFAULT_TENANT_CODE" envDefault:"default"`                                    // DefaultTenant is the fallback tenant code; empty disables the fallback.
	Strict         bool          `env:"TENANT_STRICT" envDefault:"false"`                                            // Strict rejects non-public requests without a resolvable tenant identity.
	CacheTTL       time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`                                            // CacheTTL for directory entries; values below 1s fall back to the default.
	LookupTimeout  time.Duration `env:"TENANT_LOOKUP_TIMEOUT" envDefault:"5s"`                                       // LookupTimeout bounds the storage query behind a cache miss.
	MetricsPeriod  time.Duration `env:"TENANT_CACHE_METRICS_PERIOD" envDefault:"1m"`                                 // MetricsPeriod between cache stats exports; floor is 5s.
	RequireActive  bool          `env:"TENANT_REQUIRE_ACTIVE" envDefault:"true"`                                     // RequireActive rejects suspended and deleted tenants.
	DefaultName    string        `env:"DEFAULT_TENANT_NAME" envDefault:"Default Tenant"`                             // DefaultName is used when the default tenant is created at startup.
}

// DirectoryOptions derives directory options from the config. A TTL
// below MinTTL would effectively disable caching, so it falls back to
// DefaultTTL instead.
func (c Config) DirectoryOptions() []DirectoryOption {
	ttl := c.CacheTTL
	if ttl < MinTTL {
		ttl = DefaultTTL
	}
	return []DirectoryOption{
		WithTTL(ttl),
		WithLookupTimeout(c.LookupTimeout),
	}
}

// MiddlewareOptions derives middleware options from the config.
func (c Config) MiddlewareOptions() []Option {
	return []Option{
		WithDefaultTenant(c.DefaultTenant),
		WithStrictMode(c.Strict),
		WithRequireActive(c.RequireActive),
	}
}

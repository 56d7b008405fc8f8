package tenant_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aquafarm/platform/pkg/tenant"
)

func TestConfig_DirectoryOptions(t *testing.T) {
	t.Parallel()

	t.Run("configured ttl applied", func(t *testing.T) {
		t.Parallel()

		cfg := tenant.Config{CacheTTL: 90 * time.Second, LookupTimeout: time.Second}
		dir := tenant.NewDirectory(&fakeProvider{}, cfg.DirectoryOptions()...)
		defer dir.Close()

		assert.Equal(t, 90*time.Second, dir.TTL())
	})

	t.Run("sub-second ttl falls back to default", func(t *testing.T) {
		t.Parallel()

		cfg := tenant.Config{CacheTTL: 10 * time.Millisecond}
		dir := tenant.NewDirectory(&fakeProvider{}, cfg.DirectoryOptions()...)
		defer dir.Close()

		assert.Equal(t, tenant.DefaultTTL, dir.TTL(), "a near-zero ttl would disable caching")
	})
}

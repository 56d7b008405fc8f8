package logger_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aquafarm/platform/pkg/logger"
)

func TestError(t *testing.T) {
	t.Parallel()

	t.Run("nil error yields empty attr", func(t *testing.T) {
		t.Parallel()
		assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
	})

	t.Run("non-nil error", func(t *testing.T) {
		t.Parallel()
		attr := logger.Error(errors.New("boom"))
		assert.Equal(t, "error", attr.Key)
	})
}

func TestErrors(t *testing.T) {
	t.Parallel()

	t.Run("all nil yields empty attr", func(t *testing.T) {
		t.Parallel()
		assert.True(t, logger.Errors(nil, nil).Equal(slog.Attr{}))
	})

	t.Run("nil errors are skipped", func(t *testing.T) {
		t.Parallel()
		attr := logger.Errors(nil, errors.New("boom"), nil)
		assert.Equal(t, "errors", attr.Key)
		assert.Len(t, attr.Value.Group(), 1)
	})
}

func TestDomainAttrs(t *testing.T) {
	t.Parallel()

	t.Run("tenant id", func(t *testing.T) {
		t.Parallel()
		assert.True(t, logger.TenantID(nil).Equal(slog.Attr{}))
		assert.Equal(t, "tenant_id", logger.TenantID("t-1").Key)
	})

	t.Run("tenant code", func(t *testing.T) {
		t.Parallel()
		attr := logger.TenantCode("acme")
		assert.Equal(t, "tenant_code", attr.Key)
		assert.Equal(t, "acme", attr.Value.String())
	})

	t.Run("request id", func(t *testing.T) {
		t.Parallel()
		assert.True(t, logger.RequestID(nil).Equal(slog.Attr{}))
		assert.Equal(t, "request_id", logger.RequestID("r-1").Key)
	})

	t.Run("group", func(t *testing.T) {
		t.Parallel()
		attr := logger.Group("cache", logger.CacheKey("code:acme"), logger.Event("hit"))
		assert.Equal(t, "cache", attr.Key)
		assert.Len(t, attr.Value.Group(), 2)
	})
}

package tenants

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/aquafarm/platform/pkg/tenant"
)

// InvalidationChannel is the redis pub/sub channel carrying tenant
// cache invalidation keys.
const InvalidationChannel = "tenant:invalidate"

// Events broadcasts and receives tenant cache invalidations across
// instances through redis pub/sub. Delivery is best-effort: a missed
// message only delays convergence until the directory TTL expires.
type Events struct {
	client redis.UniversalClient
	log    *slog.Logger
}

// NewEvents creates the invalidation event bus.
func NewEvents(client redis.UniversalClient, log *slog.Logger) *Events {
	return &Events{client: client, log: log}
}

// PublishInvalidation implements Publisher.
func (e *Events) PublishInvalidation(ctx context.Context, key string) error {
	return e.client.Publish(ctx, InvalidationChannel, key).Err()
}

// Listen applies remote invalidations to the local directory until the
// context is canceled. Run it in its own goroutine per instance.
func (e *Events) Listen(ctx context.Context, directory *tenant.Directory) error {
	sub := e.client.Subscribe(ctx, InvalidationChannel)
	defer func() {
		_ = sub.Close()
	}()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			removed := directory.Invalidate(msg.Payload)
			if removed > 0 && e.log != nil {
				e.log.DebugContext(ctx, "applied remote tenant invalidation",
					slog.String("key", msg.Payload),
					slog.Int("removed", removed),
				)
			}
		}
	}
}

package future

import (
	"context"

	"github.com/amp-labs/stateful/logger"
)

// LogErrors attaches an error logger to fut and drops it. This is the
// fire-and-forget form for futures produced elsewhere.
func LogErrors[T any](ctx context.Context, fut *Future[T], msg string) {
	fut.OnError(func(err error) {
		logger.Get(ctx).Error(msg, "error", err)
	})
}

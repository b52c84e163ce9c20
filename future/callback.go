package future

import (
	"runtime/debug"

	"github.com/amp-labs/stateful/logger"
)

// invokeCallback runs a user callback on its own goroutine so it never blocks
// fulfillment. Panics are recovered and logged with their stack.
func invokeCallback[T any](kind string, callback func(T), value T) {
	if callback == nil {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Get().Error("panic encountered in future."+kind+" callback",
					"error", panicError(r, debug.Stack()))
			}
		}()

		callback(value)
	}()
}

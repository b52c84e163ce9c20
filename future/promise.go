package future

// Promise is the write-only side of an asynchronous computation.
//
// Only the first call to Success, Failure or Complete takes effect; later
// calls are ignored. Fulfillment is safe from any goroutine and unblocks every
// waiter of the associated future.
type Promise[T any] struct {
	future *Future[T]
}

// fulfill stores the result, closes the ready channel and dispatches the
// callbacks collected so far. The mutex is held across the close so that a
// concurrent registration either lands in the collected slices or observes
// the closed channel.
func (p *Promise[T]) fulfill(result Result[T]) {
	p.future.once.Do(func() {
		p.future.result = result

		p.future.mu.Lock()

		close(p.future.resultReady)
		p.future.completed.Store(true)

		successCallbacks := p.future.successCallbacks
		errorCallbacks := p.future.errorCallbacks
		resultCallbacks := p.future.resultCallbacks

		p.future.successCallbacks = nil
		p.future.errorCallbacks = nil
		p.future.resultCallbacks = nil

		p.future.mu.Unlock()

		for _, callback := range resultCallbacks {
			invokeCallback("OnResult", callback, result)
		}

		if result.Error == nil {
			for _, callback := range successCallbacks {
				invokeCallback("OnSuccess", callback, result.Value)
			}
		} else {
			for _, callback := range errorCallbacks {
				invokeCallback("OnError", callback, result.Error)
			}
		}
	})
}

// Success fulfills the promise with a value.
func (p *Promise[T]) Success(value T) {
	p.fulfill(Result[T]{Value: value})
}

// Failure fulfills the promise with an error.
func (p *Promise[T]) Failure(err error) {
	var zero T

	p.fulfill(Result[T]{Value: zero, Error: err})
}

// Complete fulfills the promise from a Go-style (value, error) pair.
func (p *Promise[T]) Complete(value T, err error) {
	if err != nil {
		p.Failure(err)
	} else {
		p.Success(value)
	}
}

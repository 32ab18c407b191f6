package query

import "context"

// Future is the awaitable form of a builder execution.
type Future struct {
	done chan struct{}
	res  *Result
	err  error
}

// Async starts executing the builder and returns immediately.
//
// The pipeline still runs exactly once; [Future.Wait] blocks until it is done.
func (b *Builder) Async(ctx context.Context) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.res, f.err = b.Execute(ctx)
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until execution completes and returns its outcome.
func (f *Future) Wait() (*Result, error) {
	<-f.done
	return f.res, f.err
}

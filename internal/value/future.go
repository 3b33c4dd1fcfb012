package value

import (
	"context"
	"sync"

	"github.com/nikandfor/errors"
)

var ErrNoFutures = errors.New("select over no futures")

// Future is a deferred computation, such as the call of an async function.
// It runs at most once, the first time it is awaited, and every waiter
// observes the same output.
type Future struct {
	once sync.Once
	done chan struct{}
	run  func(ctx context.Context) (Value, error)

	out Value
	err error
}

func NewFuture(run func(ctx context.Context) (Value, error)) *Future {
	return &Future{done: make(chan struct{}), run: run}
}

// Ready returns a future that is already complete.
func Ready(v Value) *Future {
	f := &Future{done: make(chan struct{}), out: v}
	f.once.Do(func() {})
	close(f.done)
	return f
}

// Await runs the future if it has not been started and waits for its
// output.
func (f *Future) Await(ctx context.Context) (Value, error) {
	f.once.Do(func() {
		go func() {
			defer close(f.done)
			f.out, f.err = f.run(ctx)
		}()
	})

	select {
	case <-f.done:
		return f.out, f.err
	case <-ctx.Done():
		return Value{}, ctx.Err()
	}
}

// Select awaits all futures concurrently and returns the output and index
// of the first one to complete.
func Select(ctx context.Context, fs []*Future) (Value, int, error) {
	if len(fs) == 0 {
		return Value{}, -1, ErrNoFutures
	}

	type result struct {
		index int
		out   Value
		err   error
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan result, len(fs))
	for i, f := range fs {
		go func(i int, f *Future) {
			out, err := f.Await(ctx)
			ch <- result{i, out, err}
		}(i, f)
	}

	select {
	case r := <-ch:
		return r.out, r.index, r.err
	case <-ctx.Done():
		return Value{}, -1, ctx.Err()
	}
}

// Join awaits all futures and returns their outputs in order.
func Join(ctx context.Context, fs []*Future) ([]Value, error) {
	outs := make([]Value, len(fs))

	var wg sync.WaitGroup
	errs := make([]error, len(fs))

	for i, f := range fs {
		wg.Add(1)
		go func(i int, f *Future) {
			defer wg.Done()
			outs[i], errs[i] = f.Await(ctx)
		}(i, f)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, errors.Wrap(err, "future %d", i)
		}
	}

	return outs, nil
}

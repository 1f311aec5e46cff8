package progression

import (
	"context"
	"errors"
	"sync"
)

// Flush is a handle on a background persistence write.
type Flush struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newFlush() *Flush { return &Flush{done: make(chan struct{})} }

func completedFlush(err error) *Flush {
	f := newFlush()
	f.complete(err)
	return f
}

func (f *Flush) complete(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done is closed once the write finished.
func (f *Flush) Done() <-chan struct{} { return f.done }

// Err returns the write error. It is only meaningful after Done is closed.
func (f *Flush) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Wait blocks until the write finished or ctx ends.
func (f *Flush) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// joinFlushes returns a handle that completes when all parts completed.
func joinFlushes(parts ...*Flush) *Flush {
	switch len(parts) {
	case 0:
		return completedFlush(nil)
	case 1:
		return parts[0]
	}
	out := newFlush()
	go func() {
		var errs []error
		for _, p := range parts {
			<-p.done
			if p.err != nil {
				errs = append(errs, p.err)
			}
		}
		out.complete(errors.Join(errs...))
	}()
	return out
}

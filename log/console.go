package log

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
)

// DefaultConsoleBuffer is the number of pending writes a console holds
// before it starts dropping output.
const DefaultConsoleBuffer = 256

// Console is an io.Writer that never blocks its caller. Writes are copied
// into a bounded queue and drained to the destination by a background
// goroutine; when the queue is full the write is dropped and counted. The
// destination can be swapped at any time with Redirect.
type Console struct {
	queue   chan consoleItem
	done    chan struct{}
	dropped atomic.Uint64
	written atomic.Uint64

	mu        sync.Mutex
	dest      io.Writer
	closeOnce sync.Once
	onDrop    func()
}

type consoleItem struct {
	data  []byte
	flush chan struct{}
}

// ConsoleOption configures NewConsole.
type ConsoleOption func(*Console)

// WithDropHook is called for every dropped write.
func WithDropHook(fn func()) ConsoleOption {
	return func(c *Console) {
		c.onDrop = fn
	}
}

// NewConsole starts a console writing to dest with room for buffer pending
// writes. A non-positive buffer uses DefaultConsoleBuffer.
func NewConsole(dest io.Writer, buffer int, opts ...ConsoleOption) *Console {
	if buffer <= 0 {
		buffer = DefaultConsoleBuffer
	}
	if dest == nil {
		dest = io.Discard
	}
	c := &Console{
		queue: make(chan consoleItem, buffer),
		done:  make(chan struct{}),
		dest:  dest,
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.run()
	return c
}

// Write implements io.Writer. It always reports success.
func (c *Console) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	select {
	case <-c.done:
		c.drop()
		return len(p), nil
	default:
	}

	item := consoleItem{data: append([]byte(nil), p...)}
	select {
	case c.queue <- item:
	default:
		c.drop()
	}
	return len(p), nil
}

func (c *Console) drop() {
	c.dropped.Add(1)
	if c.onDrop != nil {
		c.onDrop()
	}
}

// Redirect replaces the destination. Pending writes go to the new one.
func (c *Console) Redirect(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	c.mu.Lock()
	c.dest = w
	c.mu.Unlock()
}

// Flush waits until every write queued before the call has reached the
// destination, or ctx is done.
func (c *Console) Flush(ctx context.Context) error {
	marker := consoleItem{flush: make(chan struct{})}
	select {
	case c.queue <- marker:
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-marker.flush:
		return nil
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains pending writes and stops the console. Later writes are dropped.
func (c *Console) Close() error {
	c.closeOnce.Do(func() {
		_ = c.Flush(context.Background())
		close(c.done)
	})
	return nil
}

// Dropped returns the number of writes discarded because the queue was full
// or the console was closed.
func (c *Console) Dropped() uint64 {
	return c.dropped.Load()
}

// Written returns the number of bytes delivered to destinations.
func (c *Console) Written() uint64 {
	return c.written.Load()
}

func (c *Console) run() {
	for {
		select {
		case <-c.done:
			return
		case item := <-c.queue:
			if item.flush != nil {
				close(item.flush)
				continue
			}
			c.mu.Lock()
			n, _ := c.dest.Write(item.data)
			c.mu.Unlock()
			c.written.Add(uint64(n))
		}
	}
}

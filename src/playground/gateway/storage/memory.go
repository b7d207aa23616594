package storage

import (
	"context"
	"sync"

	perrors "github.com/uber/mzn-playground/src/playground/internal/errors"
)

type memoryWrite struct {
	origin uint64
	key    string
	value  string
}

type memoryListener struct {
	context uint64
	fn      func(string)
}

// Memory is an in-process storage area shared by any number of contexts. A write from
// one context is delivered to listeners of the other contexts on a dispatcher goroutine.
type Memory struct {
	mu        sync.Mutex
	values    map[string]string
	listeners map[string]map[uint64]memoryListener
	nextID    uint64
	queue     []memoryWrite
	signal    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// MemoryContext is one context's view of a Memory area.
type MemoryContext struct {
	area *Memory
	id   uint64
}

var _ Backend = (*MemoryContext)(nil)

// NewMemory creates an empty storage area and starts its dispatcher.
func NewMemory() *Memory {
	m := &Memory{
		values:    make(map[string]string),
		listeners: make(map[string]map[uint64]memoryListener),
		signal:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	m.wg.Add(1)
	go m.dispatch()
	return m
}

// Context returns a new context attached to the area.
func (m *Memory) Context() *MemoryContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return &MemoryContext{area: m, id: m.nextID}
}

// Close stops the dispatcher. Writes that have not been delivered yet are dropped.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()
	return nil
}

func (m *Memory) dispatch() {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case <-m.signal:
		}

		for {
			m.mu.Lock()
			if len(m.queue) == 0 {
				m.mu.Unlock()
				break
			}
			w := m.queue[0]
			m.queue = m.queue[1:]
			var fns []func(string)
			for _, l := range m.listeners[w.key] {
				if l.context != w.origin {
					fns = append(fns, l.fn)
				}
			}
			m.mu.Unlock()

			select {
			case <-m.done:
				return
			default:
			}
			for _, fn := range fns {
				fn(w.value)
			}
		}
	}
}

// Read implements Backend.
func (c *MemoryContext) Read(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, perrors.EmptyStorageKeyError
	}
	c.area.mu.Lock()
	defer c.area.mu.Unlock()
	v, ok := c.area.values[key]
	return v, ok, nil
}

// Write implements Backend.
func (c *MemoryContext) Write(_ context.Context, key string, value string) error {
	if key == "" {
		return perrors.EmptyStorageKeyError
	}
	c.area.mu.Lock()
	c.area.values[key] = value
	c.area.queue = append(c.area.queue, memoryWrite{origin: c.id, key: key, value: value})
	c.area.mu.Unlock()

	select {
	case c.area.signal <- struct{}{}:
	default:
	}
	return nil
}

// OnExternalWrite implements Backend.
func (c *MemoryContext) OnExternalWrite(key string, fn func(string)) (func(), error) {
	if key == "" {
		return nil, perrors.EmptyStorageKeyError
	}
	c.area.mu.Lock()
	defer c.area.mu.Unlock()
	c.area.nextID++
	id := c.area.nextID
	if c.area.listeners[key] == nil {
		c.area.listeners[key] = make(map[uint64]memoryListener)
	}
	c.area.listeners[key][id] = memoryListener{context: c.id, fn: fn}

	return func() {
		c.area.mu.Lock()
		defer c.area.mu.Unlock()
		delete(c.area.listeners[key], id)
	}, nil
}

package store

import "sync"

type subscriber[S any] struct {
	id int
	fn func(S)
}

// broadcaster delivers state copies to subscribers in the order the states
// were published. The owning store publishes under its own lock and drains
// after releasing it. Whichever caller finds the queue idle delivers every
// queued state, so listeners never run concurrently and a listener that
// changes the store only queues its state behind the one being delivered.
type broadcaster[S any] struct {
	mu       sync.Mutex
	subs     []subscriber[S]
	nextID   int
	queue    []S
	draining bool
}

func (b *broadcaster[S]) subscribe(fn func(S)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscriber[S]{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			kept := make([]subscriber[S], 0, len(b.subs))
			for _, s := range b.subs {
				if s.id != id {
					kept = append(kept, s)
				}
			}
			b.subs = kept
		})
	}
}

// publish queues state. The caller must hold the owning store's lock.
func (b *broadcaster[S]) publish(state S) {
	b.mu.Lock()
	if len(b.subs) > 0 {
		b.queue = append(b.queue, state)
	}
	b.mu.Unlock()
}

// drain delivers queued states unless another caller is already doing so.
func (b *broadcaster[S]) drain() {
	b.mu.Lock()
	if b.draining {
		b.mu.Unlock()
		return
	}
	b.draining = true
	finished := false
	defer func() {
		// A panicking listener leaves the lock released.
		if !finished {
			b.mu.Lock()
			b.draining = false
			b.mu.Unlock()
		}
	}()

	for len(b.queue) > 0 {
		state := b.queue[0]
		b.queue = b.queue[1:]
		subs := append([]subscriber[S](nil), b.subs...)
		b.mu.Unlock()

		for _, s := range subs {
			s.fn(state)
		}
		b.mu.Lock()
	}
	b.draining = false
	finished = true
	b.mu.Unlock()
}

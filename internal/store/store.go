// Package store keeps observable, in-memory collections of catalog entities
// in step with the REST service.
//
// A store holds one ordered collection, one form draft and one loading flag.
// Mutations reach the collection only after the service confirms them: create
// appends the returned entity, update replaces the matching entry with the
// returned entity, and delete removes the entry once the request succeeds.
// Each state transition runs under the store's mutex; network calls run
// outside it, so two concurrent operations both proceed and the final state
// follows the order their responses arrive in. Subscribers receive a
// Snapshot after every transition, in the order the transitions happened;
// delivery may finish on another goroutine that is already delivering.
package store

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/catalog/internal/transport"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

// Entity is a record with a stable identifier.
type Entity interface {
	EntityID() types.ID
}

// Backend is the resource service a store submits drafts to.
type Backend[E Entity, D any] interface {
	Create(ctx context.Context, draft D) (E, error)
	Update(ctx context.Context, id types.ID, draft D) (E, error)
	Delete(ctx context.Context, id types.ID) error
}

// Snapshot is a copy of a store's state at one instant.
type Snapshot[E Entity, D any] struct {
	Items   []E
	Draft   D
	Loading bool
	Err     error // outcome of the last operation; nil after a success
}

// Listener is called after every state transition.
type Listener[E Entity, D any] func(Snapshot[E, D])

// Options carries the collaborators shared by every store.
type Options struct {
	Notifier Notifier
	Log      *logrus.Entry
}

func (o Options) notifier() Notifier {
	if o.Notifier == nil {
		return discardNotifier
	}
	return o.Notifier
}

func (o Options) log() *logrus.Entry {
	if o.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return o.Log
}

// naming drives the notice texts, e.g. "Product created successfully".
type naming struct {
	title  string // "Product"
	single string // "product"
	plural string // "products"
}

// Collection is the reconciliation state machine shared by the entity
// stores. It is exported through the concrete store types.
type Collection[E Entity, D any] struct {
	backend  Backend[E, D]
	empty    func() D
	set      func(*D, string, any) error
	fromItem func(E) D
	prepare  func(draft D, creating bool) D
	names    naming
	notifier Notifier
	log      *logrus.Entry

	mu      sync.Mutex
	items   []E
	draft   D
	loading bool
	err     error
	subs    broadcaster[Snapshot[E, D]]
}

type collectionConfig[E Entity, D any] struct {
	backend  Backend[E, D]
	empty    func() D
	set      func(*D, string, any) error
	fromItem func(E) D
	prepare  func(D, bool) D
	names    naming
}

func newCollection[E Entity, D any](cfg collectionConfig[E, D], opts Options) *Collection[E, D] {
	return &Collection[E, D]{
		backend:  cfg.backend,
		empty:    cfg.empty,
		set:      cfg.set,
		fromItem: cfg.fromItem,
		prepare:  cfg.prepare,
		names:    cfg.names,
		notifier: opts.notifier(),
		log:      opts.log().WithField("store", cfg.names.plural),
		items:    []E{},
		draft:    cfg.empty(),
	}
}

// Snapshot returns a copy of the current state.
func (c *Collection[E, D]) Snapshot() Snapshot[E, D] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Items returns a copy of the collection in insertion order.
func (c *Collection[E, D]) Items() []E {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]E(nil), c.items...)
}

// Draft returns a copy of the form draft.
func (c *Collection[E, D]) Draft() D {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Loading reports whether any operation on the store is in flight. It is
// advisory: it is cleared by whichever operation finishes first.
func (c *Collection[E, D]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Find returns the entry with id.
func (c *Collection[E, D]) Find(id types.ID) (E, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.items[i], true
	}
	var zero E
	return zero, false
}

// Subscribe registers fn and returns a function that removes it.
func (c *Collection[E, D]) Subscribe(fn Listener[E, D]) (unsubscribe func()) {
	return c.subs.subscribe(fn)
}

// SetFormField assigns one draft field by its JSON key. It does no I/O and
// no validation beyond type coercion.
func (c *Collection[E, D]) SetFormField(key string, value any) error {
	var err error
	c.transition(func() {
		err = c.set(&c.draft, key, value)
	})
	return err
}

// UpdateForm edits the draft in place.
func (c *Collection[E, D]) UpdateForm(fn func(*D)) {
	c.transition(func() { fn(&c.draft) })
}

// ResetForm restores the empty draft.
func (c *Collection[E, D]) ResetForm() {
	c.transition(func() { c.draft = c.empty() })
}

// Edit fills the draft from the entry with id. It reports false, leaving the
// draft alone, when the entry is not in the collection.
func (c *Collection[E, D]) Edit(id types.ID) bool {
	found := false
	c.transition(func() {
		if i := c.indexLocked(id); i >= 0 {
			c.draft = c.fromItem(c.items[i])
			found = true
		}
	})
	return found
}

// EditFrom fills the draft from e.
func (c *Collection[E, D]) EditFrom(e E) {
	c.transition(func() { c.draft = c.fromItem(e) })
}

// fetch runs list and replaces the collection with its result. On failure
// the collection is kept and a generic notice is sent.
func (c *Collection[E, D]) fetch(ctx context.Context, list func(context.Context) ([]E, error)) error {
	c.begin()
	items, err := list(ctx)
	c.transition(func() {
		c.loading = false
		c.err = err
		if err == nil {
			c.items = dedup(items)
		}
	})
	if err != nil {
		c.log.WithError(err).Debug("fetch failed")
		c.notifier.Notify(Notice{Level: LevelError, Message: "Failed to load " + c.names.plural})
		return err
	}
	c.log.WithField("count", len(items)).Debug("fetched")
	return nil
}

// Create submits the draft. On success the returned entity is appended (or
// replaces an entry with the same ID) and the draft is reset; on failure the
// draft is left for correction.
func (c *Collection[E, D]) Create(ctx context.Context) error {
	_, err := c.CreateEntity(ctx)
	return err
}

// CreateEntity is Create returning the entity the service stored.
func (c *Collection[E, D]) CreateEntity(ctx context.Context) (E, error) {
	draft := c.begin()
	if c.prepare != nil {
		draft = c.prepare(draft, true)
	}
	created, err := c.backend.Create(ctx, draft)
	c.transition(func() {
		c.loading = false
		c.err = err
		if err != nil {
			return
		}
		if i := c.indexLocked(created.EntityID()); i >= 0 {
			c.items = replaceAt(c.items, i, created)
		} else {
			c.items = append(c.items, created)
		}
		c.draft = c.empty()
	})
	return created, c.report(err, "create", "created", created.EntityID())
}

// Update submits the draft against id. On success the first entry with id
// is replaced by the returned entity; an id missing from the collection
// leaves the collection as is. On failure nothing local changes.
func (c *Collection[E, D]) Update(ctx context.Context, id types.ID) error {
	draft := c.begin()
	if c.prepare != nil {
		draft = c.prepare(draft, false)
	}
	updated, err := c.backend.Update(ctx, id, draft)
	c.transition(func() {
		c.loading = false
		c.err = err
		if err != nil {
			return
		}
		if i := c.indexLocked(id); i >= 0 {
			c.items = replaceAt(c.items, i, updated)
		}
		c.draft = c.empty()
	})
	return c.report(err, "update", "updated", id)
}

// Delete removes id on the service and then locally. The entry stays in the
// collection while the request is in flight and on failure.
func (c *Collection[E, D]) Delete(ctx context.Context, id types.ID) error {
	c.begin()
	err := c.backend.Delete(ctx, id)
	c.transition(func() {
		c.loading = false
		c.err = err
		if err != nil {
			return
		}
		kept := make([]E, 0, len(c.items))
		for _, item := range c.items {
			if item.EntityID() != id {
				kept = append(kept, item)
			}
		}
		c.items = kept
	})
	return c.report(err, "delete", "deleted", id)
}

// report sends the outcome notice for a mutating operation and returns err.
func (c *Collection[E, D]) report(err error, verb, past string, id types.ID) error {
	log := c.log.WithFields(logrus.Fields{"op": verb, "id": id})
	if err != nil {
		msg := transport.ServerMessage(err)
		if msg == "" {
			msg = "Failed to " + verb + " " + c.names.single
		}
		log.WithError(err).Debug("operation failed")
		c.notifier.Notify(Notice{Level: LevelError, Message: msg})
		return err
	}
	log.Debug("operation succeeded")
	c.notifier.Notify(Notice{Level: LevelSuccess, Message: c.names.title + " " + past + " successfully"})
	return nil
}

// begin raises the loading flag and returns the draft to submit.
func (c *Collection[E, D]) begin() D {
	var draft D
	c.transition(func() {
		c.loading = true
		draft = c.draft
	})
	return draft
}

// transition applies fn under the lock and then notifies subscribers.
func (c *Collection[E, D]) transition(fn func()) {
	c.mu.Lock()
	fn()
	c.subs.publish(c.snapshotLocked())
	c.mu.Unlock()
	c.subs.drain()
}

func (c *Collection[E, D]) snapshotLocked() Snapshot[E, D] {
	return Snapshot[E, D]{
		Items:   append([]E(nil), c.items...),
		Draft:   c.draft,
		Loading: c.loading,
		Err:     c.err,
	}
}

func (c *Collection[E, D]) indexLocked(id types.ID) int {
	for i, item := range c.items {
		if item.EntityID() == id {
			return i
		}
	}
	return -1
}

// dedup keeps the first occurrence of every ID.
func dedup[E Entity](items []E) []E {
	seen := make(map[types.ID]bool, len(items))
	out := make([]E, 0, len(items))
	for _, item := range items {
		id := item.EntityID()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, item)
	}
	return out
}

// replaceAt puts e at index i and drops any other entry carrying e's ID.
func replaceAt[E Entity](items []E, i int, e E) []E {
	id := e.EntityID()
	out := make([]E, 0, len(items))
	for j, item := range items {
		switch {
		case j == i:
			out = append(out, e)
		case item.EntityID() == id:
		default:
			out = append(out, item)
		}
	}
	return out
}

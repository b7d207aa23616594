// Package document hosts a live text document that carries per-field state kept in
// sync with edits, independent of any editor widget.
package document

import (
	"sync"
	"unicode/utf8"

	"github.com/gofrs/uuid"
	"go.lsp.dev/uri"
)

// Effect is an opaque command dispatched alongside a transaction. Fields ignore
// effects they do not recognise.
type Effect interface{}

// Field is state attached to a document. Remap runs for every transaction with
// changes, then Reduce runs once for each effect in dispatch order.
type Field interface {
	// Key uniquely identifies the field within a document.
	Key() string
	// Init returns the initial state of the field.
	Init() interface{}
	// Reduce returns the state that results from applying effect to state.
	Reduce(state interface{}, effect Effect) interface{}
	// Remap returns state with all positions mapped through changes.
	Remap(state interface{}, changes ChangeSet) interface{}
}

// Bounded is implemented by fields whose state holds positions. Bound runs under the
// document lock after a transaction's effects are reduced and keeps state within length.
type Bounded interface {
	Bound(state interface{}, length int) interface{}
}

// Transaction groups changes, newly attached fields and effects into one update.
type Transaction struct {
	Changes      ChangeSet
	AppendFields []Field
	Effects      []Effect
}

// Update describes a transaction that has been applied to a document.
type Update struct {
	Document   *Document
	Changes    ChangeSet
	Effects    []Effect
	Text       string
	Version    int32
	DocChanged bool
}

// Listener is notified once per dispatched transaction.
type Listener func(Update)

type fieldSlot struct {
	field Field
	state interface{}
}

type listenerEntry struct {
	id uint64
	fn Listener
}

// Document is a live text document.
type Document struct {
	id  uuid.UUID
	uri uri.URI

	mu        sync.RWMutex
	text      string
	length    int
	version   int32
	fields    map[string]*fieldSlot
	order     []string
	listeners []listenerEntry
	nextID    uint64
}

// New creates a document identified by docURI holding text.
func New(docURI uri.URI, text string) *Document {
	return &Document{
		id:     uuid.Must(uuid.NewV4()),
		uri:    docURI,
		text:   text,
		length: utf8.RuneCountInString(text),
		fields: make(map[string]*fieldSlot),
	}
}

// ID returns the unique id of this document instance.
func (d *Document) ID() uuid.UUID {
	return d.id
}

// URI returns the document URI.
func (d *Document) URI() uri.URI {
	return d.uri
}

// Text returns the current text.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

// Len returns the current length in characters.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.length
}

// Version is incremented by every transaction that changes the text.
func (d *Document) Version() int32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// HasField reports whether a field with the given key is attached.
func (d *Document) HasField(key string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.fields[key]
	return ok
}

// Field returns the state of the field with the given key.
func (d *Document) Field(key string) (interface{}, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	slot, ok := d.fields[key]
	if !ok {
		return nil, false
	}
	return slot.state, true
}

// OnUpdate registers a listener and returns a function that removes it.
func (d *Document) OnUpdate(fn Listener) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.listeners = append(d.listeners, listenerEntry{id: id, fn: fn})
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, l := range d.listeners {
			if l.id == id {
				d.listeners = append(d.listeners[:i:i], d.listeners[i+1:]...)
				return
			}
		}
	}
}

// Dispatch applies a transaction atomically. Listeners observe a single update.
func (d *Document) Dispatch(tr Transaction) error {
	d.mu.Lock()

	if err := tr.Changes.Validate(d.length); err != nil {
		d.mu.Unlock()
		return err
	}
	changes := tr.Changes.Sorted()
	docChanged := !changes.Empty()

	if docChanged {
		d.text = changes.Apply(d.text)
		d.length = utf8.RuneCountInString(d.text)
		d.version++
		for _, key := range d.order {
			slot := d.fields[key]
			slot.state = slot.field.Remap(slot.state, changes)
		}
	}

	for _, f := range tr.AppendFields {
		if _, ok := d.fields[f.Key()]; ok {
			continue
		}
		d.fields[f.Key()] = &fieldSlot{field: f, state: f.Init()}
		d.order = append(d.order, f.Key())
	}

	for _, e := range tr.Effects {
		for _, key := range d.order {
			slot := d.fields[key]
			slot.state = slot.field.Reduce(slot.state, e)
		}
	}
	if len(tr.Effects) > 0 {
		for _, key := range d.order {
			slot := d.fields[key]
			if b, ok := slot.field.(Bounded); ok {
				slot.state = b.Bound(slot.state, d.length)
			}
		}
	}

	u := Update{
		Document:   d,
		Changes:    changes,
		Effects:    tr.Effects,
		Text:       d.text,
		Version:    d.version,
		DocChanged: docChanged,
	}
	listeners := make([]listenerEntry, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.Unlock()

	for _, l := range listeners {
		l.fn(u)
	}
	return nil
}

// ReplaceText replaces the whole text, deriving the minimal changes from a diff so
// that field state is remapped rather than discarded.
func (d *Document) ReplaceText(text string) error {
	return d.Dispatch(Transaction{Changes: Diff(d.Text(), text)})
}

// Edit is a convenience for dispatching a single change.
func (d *Document) Edit(from, to int, insert string) error {
	return d.Dispatch(Transaction{Changes: ChangeSet{{From: from, To: to, Insert: insert}}})
}

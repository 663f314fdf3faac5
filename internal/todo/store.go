// Package todo holds the todo list state and keeps a persistent mirror of it.
//
// The Store is the only owner of the list. Every change produces a new list
// value which is serialized in full and handed to the persistence policy;
// writes happen on a background goroutine and never block the caller.
// Presentation code reads through Items/Editing or Subscribe.
package todo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/idilsaglam/tada/internal/ids"
	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/store"
)

// DefaultKey is the slot key the list lives under.
const DefaultKey = "todos"

// ErrAlreadyLoaded is returned by a second call to Load.
var ErrAlreadyLoaded = errors.New("todo list already loaded")

// Op names the storage operation that failed.
type Op string

const (
	OpLoad Op = "load"
	OpSave Op = "save"
)

// Snapshot is the state handed to subscribers.
type Snapshot struct {
	Items   []model.Item
	Editing *model.Item // nil when no edit session is open
}

type Option func(*Store)

func WithKey(key string) Option { return func(s *Store) { s.key = key } }

func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.log = l } }

func WithIDs(g ids.Generator) Option { return func(s *Store) { s.ids = g } }

func WithPolicy(p Policy) Option { return func(s *Store) { s.policy = p } }

// WithErrorHandler registers a hook called after a storage failure is logged.
func WithErrorHandler(fn func(op Op, err error)) Option {
	return func(s *Store) { s.onErr = fn }
}

type Store struct {
	slot   store.Slot
	key    string
	log    *zap.Logger
	ids    ids.Generator
	policy Policy
	onErr  func(Op, error)
	w      *writer

	emitMu sync.Mutex // orders subscriber notifications
	mu     sync.Mutex
	items  []model.Item
	edit   *model.Item
	loaded bool
	subs   map[int]func(Snapshot)
	nextID int
}

// New returns an empty store mirrored into slot. Call Load once, and Close
// when done so pending writes reach the slot.
func New(slot store.Slot, opts ...Option) *Store {
	s := &Store{
		slot:   slot,
		key:    DefaultKey,
		log:    zap.NewNop(),
		ids:    ids.NewMonotonic(time.Now),
		policy: Immediate(),
		items:  []model.Item{},
		subs:   make(map[int]func(Snapshot)),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With(zap.String("key", s.key))
	s.w = newWriter(s.policy, s.write)
	return s
}

// Load reads the persisted list. An absent slot leaves the list empty. A read
// or decode failure is reported and leaves the list as it was. The loaded
// list replaces whatever is in memory.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return ErrAlreadyLoaded
	}
	s.loaded = true
	s.mu.Unlock()

	b, ok, err := s.slot.Get(ctx, s.key)
	if err != nil {
		err = fmt.Errorf("read slot: %w", err)
		s.report(OpLoad, err)
		return err
	}
	if !ok {
		s.log.Debug("no persisted list")
		return nil
	}
	items, err := store.Decode(b)
	if err != nil {
		err = fmt.Errorf("decode slot: %w", err)
		s.report(OpLoad, err)
		return err
	}

	seen := make(map[int64]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			s.log.Warn("duplicate id in persisted list", zap.Int64("id", it.ID))
		}
		seen[it.ID] = struct{}{}
		if o, ok := s.ids.(ids.Observer); ok {
			o.Observe(it.ID)
		}
	}
	s.log.Debug("loaded list", zap.Int("items", len(items)))

	s.apply(func() (bool, bool) {
		s.items = items
		return true, false
	})
	return nil
}

// Add appends a new item unless text is blank. The text is stored as given.
func (s *Store) Add(text string) (model.Item, bool) {
	if strings.TrimSpace(text) == "" {
		return model.Item{}, false
	}
	it := model.Item{ID: s.ids.Next(), Text: text}
	s.apply(func() (bool, bool) {
		s.items = append(model.Clone(s.items), it)
		return true, false
	})
	return it, true
}

// Toggle flips Completed on the item with id.
func (s *Store) Toggle(id int64) bool {
	var ok bool
	s.apply(func() (bool, bool) {
		i := model.Index(s.items, id)
		if i < 0 {
			return false, false
		}
		next := model.Clone(s.items)
		next[i] = next[i].Toggled()
		s.items, ok = next, true
		return true, false
	})
	return ok
}

// Remove deletes the item with id, closing its edit session if open.
func (s *Store) Remove(id int64) bool {
	var ok bool
	s.apply(func() (bool, bool) {
		i := model.Index(s.items, id)
		if i < 0 {
			return false, false
		}
		next := make([]model.Item, 0, len(s.items)-1)
		next = append(next, s.items[:i]...)
		next = append(next, s.items[i+1:]...)
		s.items, ok = next, true

		if s.edit != nil && s.edit.ID == id {
			s.edit = nil
			return true, true
		}
		return true, false
	})
	return ok
}

// Restore puts a previously removed item back at index (clamped). It refuses
// items whose id is already present.
func (s *Store) Restore(index int, it model.Item) bool {
	var ok bool
	s.apply(func() (bool, bool) {
		if model.Index(s.items, it.ID) >= 0 {
			return false, false
		}
		index = min(max(index, 0), len(s.items))
		next := make([]model.Item, 0, len(s.items)+1)
		next = append(next, s.items[:index]...)
		next = append(next, it)
		next = append(next, s.items[index:]...)
		s.items, ok = next, true
		return true, false
	})
	if ok {
		if o, isObs := s.ids.(ids.Observer); isObs {
			o.Observe(it.ID)
		}
	}
	return ok
}

// StartEdit opens the edit session on a copy of the item with id. It
// replaces any session already open.
func (s *Store) StartEdit(id int64) bool {
	var ok bool
	s.apply(func() (bool, bool) {
		i := model.Index(s.items, id)
		if i < 0 {
			return false, false
		}
		draft := s.items[i]
		s.edit, ok = &draft, true
		return false, true
	})
	return ok
}

// SetDraft changes the text of the item being edited.
func (s *Store) SetDraft(text string) bool {
	var ok bool
	s.apply(func() (bool, bool) {
		if s.edit == nil {
			return false, false
		}
		draft := *s.edit
		draft.Text = text
		s.edit, ok = &draft, true
		return false, true
	})
	return ok
}

// Editing returns the draft of the open edit session.
func (s *Store) Editing() (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edit == nil {
		return model.Item{}, false
	}
	return *s.edit, true
}

// SaveEdit replaces the item with edited.ID by value and closes the session.
// Without an open session it does nothing. The text is not validated.
func (s *Store) SaveEdit(edited model.Item) bool {
	var ok bool
	s.apply(func() (bool, bool) {
		if s.edit == nil {
			return false, false
		}
		s.edit, ok = nil, true
		i := model.Index(s.items, edited.ID)
		if i < 0 || s.items[i] == edited {
			return false, true
		}
		next := model.Clone(s.items)
		next[i] = edited
		s.items = next
		return true, true
	})
	return ok
}

// CommitEdit saves the current draft.
func (s *Store) CommitEdit() bool {
	draft, ok := s.Editing()
	if !ok {
		return false
	}
	return s.SaveEdit(draft)
}

// CancelEdit closes the edit session without touching the list.
func (s *Store) CancelEdit() {
	s.apply(func() (bool, bool) {
		if s.edit == nil {
			return false, false
		}
		s.edit = nil
		return false, true
	})
}

// Items returns a copy of the list.
func (s *Store) Items() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Clone(s.items)
}

// Get returns the item with id.
func (s *Store) Get(id int64) (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := model.Index(s.items, id); i >= 0 {
		return s.items[i], true
	}
	return model.Item{}, false
}

func (s *Store) Stats() (done, pending int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn runs on the mutating goroutine and must not call mutating methods.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Persist serializes the whole list and hands it to the policy.
func (s *Store) Persist() {
	s.persist(s.Items())
}

// Flush writes anything pending and returns the first write failure since
// the previous Flush.
func (s *Store) Flush(ctx context.Context) error {
	return s.w.Flush(ctx)
}

// Close flushes and stops the writer. It does not close the slot.
func (s *Store) Close(ctx context.Context) error {
	return s.w.Close(ctx)
}

// apply runs fn under the state lock. fn reports whether it changed the list
// and whether it changed the edit session.
func (s *Store) apply(fn func() (listChanged, editChanged bool)) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	listChanged, editChanged := fn()
	if !listChanged && !editChanged {
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	if listChanged {
		s.persist(snap.Items)
	}
	for _, fn := range subs {
		fn(snap)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{Items: model.Clone(s.items)}
	if s.edit != nil {
		draft := *s.edit
		snap.Editing = &draft
	}
	return snap
}

func (s *Store) persist(items []model.Item) {
	b, err := store.Encode(items)
	if err != nil {
		s.report(OpSave, err)
		return
	}
	s.w.schedule(b)
}

func (s *Store) write(b []byte) error {
	if err := s.slot.Set(context.Background(), s.key, b); err != nil {
		err = fmt.Errorf("write slot: %w", err)
		s.report(OpSave, err)
		return err
	}
	s.log.Debug("persisted list", zap.Int("bytes", len(b)))
	return nil
}

func (s *Store) report(op Op, err error) {
	s.log.Error("storage operation failed", zap.String("op", string(op)), zap.Error(err))
	if s.onErr != nil {
		s.onErr(op, err)
	}
}

package monitor

import "sync"

// Listener observes a Set. Callbacks run on the goroutine of the backend
// that published the change, after the Set's lock has been released.
type Listener interface {
	MonitorAdded(*Record)
	MonitorRemoved(*Record)
	MonitorsChanged()
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Added   func(*Record)
	Removed func(*Record)
	Changed func()
}

func (l ListenerFuncs) MonitorAdded(r *Record) {
	if l.Added != nil {
		l.Added(r)
	}
}

func (l ListenerFuncs) MonitorRemoved(r *Record) {
	if l.Removed != nil {
		l.Removed(r)
	}
}

func (l ListenerFuncs) MonitorsChanged() {
	if l.Changed != nil {
		l.Changed()
	}
}

// Set is the published, ordered collection of finalized records.
//
// Records live in an arena addressed by Key; the order is a list of keys.
// Removing a record invalidates its key and nothing else, so a caller
// walking an earlier Current() slice is never disturbed.
type Set struct {
	mu      sync.RWMutex
	nextKey Key
	arena   map[Key]*Record
	order   []Key

	lmu       sync.Mutex
	nextSub   int
	listeners map[int]Listener
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{
		arena:     make(map[Key]*Record),
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers l and returns a function that removes it.
func (s *Set) Subscribe(l Listener) (cancel func()) {
	s.lmu.Lock()
	s.nextSub++
	id := s.nextSub
	s.listeners[id] = l
	s.lmu.Unlock()

	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

// Current returns the records in publication order.
func (s *Set) Current() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Record, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.arena[k])
	}
	return out
}

// Len returns the number of published records.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Get resolves a key. It fails once the record has been removed.
func (s *Set) Get(k Key) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.arena[k]
	return r, ok
}

// Contains reports whether r is currently published.
func (s *Set) Contains(r *Record) bool {
	got, ok := s.Get(r.Key())
	return ok && got == r
}

// ByConnector finds the published record on a port.
func (s *Set) ByConnector(connector string) (*Record, bool) {
	for _, r := range s.Current() {
		if r.Connector() == connector {
			return r, true
		}
	}
	return nil, false
}

// ByIdentifier finds the published record with a stable identifier.
func (s *Set) ByIdentifier(id string) (*Record, bool) {
	for _, r := range s.Current() {
		if r.Identifier() == id {
			return r, true
		}
	}
	return nil, false
}

// Primary returns the primary record. Backends are the only authority on
// this, so it may be missing even when the set is not empty.
func (s *Set) Primary() (*Record, bool) {
	for _, r := range s.Current() {
		if r.Primary() {
			return r, true
		}
	}
	return nil, false
}

// At returns the record whose logical geometry contains the point.
func (s *Set) At(x, y int) (*Record, bool) {
	for _, r := range s.Current() {
		if r.Logical().Contains(x, y) {
			return r, true
		}
	}
	return nil, false
}

// ApplyRefresh makes list the authoritative sequence. Records in added get
// a key if they have none yet. Removed records lose their arena slot.
// Listeners then see every removal, every addition and finally one
// MonitorsChanged.
func (s *Set) ApplyRefresh(list, added, removed []*Record) {
	s.mu.Lock()
	for _, r := range removed {
		if k := r.Key(); s.arena[k] == r {
			delete(s.arena, k)
		}
	}
	order := make([]Key, 0, len(list))
	for _, r := range list {
		k := r.Key()
		if k == 0 || s.arena[k] != r {
			s.nextKey++
			k = s.nextKey
			r.setKey(k)
			s.arena[k] = r
		}
		order = append(order, k)
	}
	s.order = order
	s.mu.Unlock()

	listeners := s.snapshotListeners()
	for _, r := range removed {
		for _, l := range listeners {
			l.MonitorRemoved(r)
		}
	}
	for _, r := range added {
		for _, l := range listeners {
			l.MonitorAdded(r)
		}
	}
	for _, l := range listeners {
		l.MonitorsChanged()
	}
}

// NotifyChanged tells listeners that published records were updated in
// place. Backends call it once after a batch of updates.
func (s *Set) NotifyChanged() {
	for _, l := range s.snapshotListeners() {
		l.MonitorsChanged()
	}
}

func (s *Set) snapshotListeners() []Listener {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	out := make([]Listener, 0, len(s.listeners))
	for id := 1; id <= s.nextSub; id++ {
		if l, ok := s.listeners[id]; ok {
			out = append(out, l)
		}
	}
	return out
}

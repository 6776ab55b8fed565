// Package monitor holds the backend-neutral monitor records, their stable
// identifiers and the set that publishes them to collaborators.
package monitor

import "sync"

// Key indexes a Record inside a Set. Keys are never reused within a Set.
type Key uint64

// Attributes is everything about a monitor that may change while its
// identity does not. It is replaced as a whole so readers never see a mix
// of two updates.
type Attributes struct {
	Description string `yaml:"description"`

	Make   string `yaml:"make,omitempty"`
	Model  string `yaml:"model,omitempty"`
	Serial string `yaml:"serial,omitempty"`

	RefreshMHz      uint32  `yaml:"refresh_mhz"`
	Scale           int     `yaml:"scale"`
	FractionalScale float64 `yaml:"fractional_scale"`

	Physical Rect `yaml:"physical"`
	Logical  Rect `yaml:"logical"`
	Workarea Rect `yaml:"workarea"`
	SizeMM   Size `yaml:"size_mm"`

	Subpixel  Subpixel  `yaml:"subpixel"`
	Transform Transform `yaml:"transform"`
	Primary   bool      `yaml:"primary"`
}

// Normalize enforces the invariants every published record carries.
func (a *Attributes) Normalize() {
	if a.Scale < 1 {
		a.Scale = 1
	}
	if a.FractionalScale < 1 {
		a.FractionalScale = float64(a.Scale)
	}
	// The workarea is taken as given: an empty one is a real answer when
	// the reserved area misses the monitor entirely.
	a.Workarea = a.Logical.Intersect(a.Workarea)
}

// Record is one physical display, or the synthetic stand-in used when the
// backend cannot enumerate displays. Identifier and connector are fixed for
// the lifetime of the record; the attributes are swapped atomically by the
// backend that owns it.
type Record struct {
	identifier string
	connector  string

	mu     sync.RWMutex
	key    Key
	native uint32
	attrs  Attributes
}

// NewRecord builds a finalized record. The identifier is derived from the
// hardware metadata in attrs, and the description defaults to the
// connector-qualified hardware name when attrs has none.
func NewRecord(connector string, native uint32, attrs Attributes) *Record {
	if attrs.Description == "" {
		attrs.Description = BuildDescription(attrs.Make, attrs.Model, attrs.Serial, connector)
	}
	attrs.Normalize()
	return &Record{
		identifier: BuildIdentifier(attrs.Make, attrs.Model, attrs.Serial, connector),
		connector:  connector,
		native:     native,
		attrs:      attrs,
	}
}

func (r *Record) Identifier() string { return r.identifier }
func (r *Record) Connector() string  { return r.connector }

// Key returns the arena key assigned when the record was first published,
// or zero before that.
func (r *Record) Key() Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.key
}

// Native returns the backend handle for toolkit interop: the RandR output
// XID on X11, the registry global name on Wayland.
func (r *Record) Native() uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.native
}

// Attributes returns a copy of the current attributes.
func (r *Record) Attributes() Attributes {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.attrs
}

func (r *Record) Description() string { return r.Attributes().Description }
func (r *Record) Make() string        { return r.Attributes().Make }
func (r *Record) Model() string       { return r.Attributes().Model }
func (r *Record) Serial() string      { return r.Attributes().Serial }
func (r *Record) RefreshMHz() uint32  { return r.Attributes().RefreshMHz }
func (r *Record) Scale() int          { return r.Attributes().Scale }
func (r *Record) FractionalScale() float64 {
	return r.Attributes().FractionalScale
}
func (r *Record) Physical() Rect       { return r.Attributes().Physical }
func (r *Record) Logical() Rect        { return r.Attributes().Logical }
func (r *Record) Workarea() Rect       { return r.Attributes().Workarea }
func (r *Record) SizeMM() Size         { return r.Attributes().SizeMM }
func (r *Record) Subpixel() Subpixel   { return r.Attributes().Subpixel }
func (r *Record) Transform() Transform { return r.Attributes().Transform }
func (r *Record) Primary() bool        { return r.Attributes().Primary }

// Update swaps in new attributes and reports whether anything changed.
// The description is kept when attrs carries none.
func (r *Record) Update(attrs Attributes) bool {
	if attrs.Description == "" {
		attrs.Description = BuildDescription(attrs.Make, attrs.Model, attrs.Serial, r.connector)
	}
	attrs.Normalize()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attrs == attrs {
		return false
	}
	r.attrs = attrs
	return true
}

// Rebind points the record at a new native handle, used when a backend
// re-advertises the same display under a new object.
func (r *Record) Rebind(native uint32) {
	r.mu.Lock()
	r.native = native
	r.mu.Unlock()
}

// SetWorkarea replaces only the usable area, clamped to the logical
// geometry. It reports whether the value changed.
func (r *Record) SetWorkarea(area Rect) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	area = r.attrs.Logical.Intersect(area)
	if r.attrs.Workarea == area {
		return false
	}
	r.attrs.Workarea = area
	return true
}

// SetPrimary flips the primary flag, reporting whether it changed.
func (r *Record) SetPrimary(primary bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attrs.Primary == primary {
		return false
	}
	r.attrs.Primary = primary
	return true
}

func (r *Record) setKey(k Key) {
	r.mu.Lock()
	r.key = k
	r.mu.Unlock()
}

package x11

import (
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/FyshOS/screens/monitor"
)

const (
	fakeRoot  xproto.Window = 0x100
	fakeOwner xproto.Window = 0x200
)

// fakeServer answers the engine from in-memory state. Tests mutate it
// through the helper methods, which take the lock.
type fakeServer struct {
	mu sync.Mutex

	major, minor uint32
	versionErr   error

	outputs  []fakeOutput
	primary  string
	queryErr error
	queries  atomic.Int32

	atoms map[string]xproto.Atom
	owner xproto.Window
	props map[xproto.Atom][]byte

	workareaRaw []uint
	desktops    int
	current     int

	events chan xgb.Event
	closed atomic.Bool
}

type fakeOutput struct {
	name     string
	rect     monitor.Rect
	rotation uint16
	edid     []byte
	off      bool
}

func newFakeServer(outputs ...fakeOutput) *fakeServer {
	return &fakeServer{
		major:   1,
		minor:   5,
		outputs: outputs,
		atoms:   map[string]xproto.Atom{},
		props:   map[xproto.Atom][]byte{},
		events:  make(chan xgb.Event, 16),
	}
}

func (f *fakeServer) root() xproto.Window { return fakeRoot }
func (f *fakeServer) screenNumber() int   { return 0 }

func (f *fakeServer) screen() (monitor.Rect, monitor.Size) {
	return monitor.Rect{Width: 3200, Height: 1080}, monitor.Size{Width: 846, Height: 285}
}

func (f *fakeServer) randrVersion() (uint32, uint32, error) {
	return f.major, f.minor, f.versionErr
}

func (f *fakeServer) selectRandrInput() error { return nil }

func (f *fakeServer) query() (*State, error) {
	f.queries.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}

	s := &State{}
	for i, o := range f.outputs {
		id := randr.Output(i + 1)
		if o.name == f.primary {
			s.primary = id
		}
		out := Output{id: id, Name: o.name, Connected: !o.off, MmWidth: 527, MmHeight: 296, EDID: o.edid}
		if !o.off {
			mode := Mode{
				id: randr.Mode(i + 1), Width: uint16(o.rect.Width), Height: uint16(o.rect.Height),
				DotClock: 148500000, HTotal: 2200, VTotal: 1125,
			}
			s.modes = append(s.modes, mode)
			s.controllers = append(s.controllers, Controller{
				id: randr.Crtc(i + 1), X: int16(o.rect.X), Y: int16(o.rect.Y),
				Width: uint16(o.rect.Width), Height: uint16(o.rect.Height), Rotation: o.rotation,
			})
		}
		s.outputs = append(s.outputs, out)
	}
	for i := range s.controllers {
		s.controllers[i].Mode = &s.modes[i]
	}
	for i := range s.outputs {
		if s.outputs[i].Connected {
			s.outputs[i].Controller = s.controller(randr.Crtc(i + 1))
		}
	}
	return s, nil
}

func (f *fakeServer) atom(name string) (xproto.Atom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.atoms[name]; ok {
		return a, nil
	}
	a := xproto.Atom(len(f.atoms) + 1)
	f.atoms[name] = a
	return a, nil
}

func (f *fakeServer) listen(xproto.Window, ...int) error { return nil }

func (f *fakeServer) selectionOwner(xproto.Atom) (xproto.Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owner, nil
}

func (f *fakeServer) property(win xproto.Window, atom xproto.Atom) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.props[atom]; ok && win == f.owner {
		return v, nil
	}
	return nil, errors.New("no such property")
}

func (f *fakeServer) workarea() ([]uint, int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.workareaRaw == nil {
		return nil, 0, 0, errors.New("no _NET_WORKAREA")
	}
	return f.workareaRaw, f.desktops, f.current, nil
}

func (f *fakeServer) waitForEvent() (xgb.Event, error) {
	ev, ok := <-f.events
	if !ok {
		return nil, errClosed
	}
	return ev, nil
}

func (f *fakeServer) close() {
	if f.closed.CompareAndSwap(false, true) {
		close(f.events)
	}
}

func (f *fakeServer) setOutputs(outputs ...fakeOutput) {
	f.mu.Lock()
	f.outputs = outputs
	f.mu.Unlock()
}

func (f *fakeServer) setScale(scale int32) {
	a, _ := f.atom(settingsProperty)
	f.mu.Lock()
	f.owner = fakeOwner
	f.props[a] = settingsBlob(scale)
	f.mu.Unlock()
}

func (f *fakeServer) setWorkarea(raw []uint, desktops, current int) {
	f.mu.Lock()
	f.workareaRaw, f.desktops, f.current = raw, desktops, current
	f.mu.Unlock()
}

func (f *fakeServer) atomFor(name string) xproto.Atom {
	a, _ := f.atom(name)
	return a
}

// testEDID is a base block carrying only the vendor, product and numeric
// serial.
func testEDID(pnp string, product uint16, serial uint32) []byte {
	b := make([]byte, 128)
	copy(b, []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00})
	v := uint16(pnp[0]-'A'+1)<<10 | uint16(pnp[1]-'A'+1)<<5 | uint16(pnp[2]-'A'+1)
	binary.BigEndian.PutUint16(b[8:], v)
	binary.LittleEndian.PutUint16(b[10:], product)
	binary.LittleEndian.PutUint32(b[12:], serial)
	return b
}

// settingsBlob is a little endian settings property holding only the
// window scaling factor.
func settingsBlob(scale int32) []byte {
	name := "Gdk/WindowScalingFactor"
	b := make([]byte, 12, 64)
	binary.LittleEndian.PutUint32(b[4:], 1)
	binary.LittleEndian.PutUint32(b[8:], 1)
	b = append(b, 0, 0)
	b = binary.LittleEndian.AppendUint16(b, uint16(len(name)))
	b = append(b, name...)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	b = binary.LittleEndian.AppendUint32(b, 0)
	b = binary.LittleEndian.AppendUint32(b, uint32(scale))
	return b
}

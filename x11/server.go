package x11

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/FyshOS/screens/monitor"
)

// server is everything the engine asks of the X server. The real one is
// xconn; tests substitute a fake.
//
// Every method traps protocol errors: an error return means "no data" and
// the caller carries on with what it has.
type server interface {
	root() xproto.Window
	screenNumber() int
	// screen is the root window size in pixels and millimetres.
	screen() (monitor.Rect, monitor.Size)

	// randrVersion initialises RandR and returns its version.
	randrVersion() (major, minor uint32, err error)
	selectRandrInput() error
	query() (*State, error)

	atom(name string) (xproto.Atom, error)
	listen(win xproto.Window, masks ...int) error
	selectionOwner(selection xproto.Atom) (xproto.Window, error)
	property(win xproto.Window, atom xproto.Atom) ([]byte, error)

	// workarea returns the raw _NET_WORKAREA cardinals, the desktop count
	// (0 when unknown) and the current desktop.
	workarea() (raw []uint, desktops, current int, err error)

	waitForEvent() (xgb.Event, error)
	close()
}

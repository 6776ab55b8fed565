package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
	"github.com/rs/zerolog"

	"github.com/FyshOS/screens/monitor"
)

// edidProperty is the RandR output property carrying the EDID blob.
const edidProperty = "EDID"

// edidLongs is how much of the property to fetch, in 32 bit units: the base
// block plus three extension blocks.
const edidLongs = 128

var errClosed = errors.New("x11: connection closed")

type xconn struct {
	xu  *xgbutil.XUtil
	log zerolog.Logger
}

func dial(display string, log zerolog.Logger) (*xconn, error) {
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("connect to X server: %w", err)
	}
	return &xconn{xu: xu, log: log}, nil
}

func (c *xconn) conn() *xgb.Conn { return c.xu.Conn() }

func (c *xconn) root() xproto.Window { return c.xu.RootWin() }

func (c *xconn) screenNumber() int { return c.conn().DefaultScreen }

func (c *xconn) screen() (monitor.Rect, monitor.Size) {
	s := c.xu.Screen()
	return monitor.Rect{Width: int(s.WidthInPixels), Height: int(s.HeightInPixels)},
		monitor.Size{Width: int(s.WidthInMillimeters), Height: int(s.HeightInMillimeters)}
}

func (c *xconn) randrVersion() (uint32, uint32, error) {
	if err := randr.Init(c.conn()); err != nil {
		return 0, 0, err
	}
	reply, err := randr.QueryVersion(c.conn(), 1, 3).Reply()
	if err != nil {
		return 0, 0, err
	}
	return reply.MajorVersion, reply.MinorVersion, nil
}

func (c *xconn) selectRandrInput() error {
	return randr.SelectInputChecked(c.conn(), c.root(),
		randr.NotifyMaskScreenChange|
			randr.NotifyMaskCrtcChange|
			randr.NotifyMaskOutputChange|
			randr.NotifyMaskOutputProperty).Check()
}

// query enumerates the current RandR configuration. Only a failure of the
// resources request itself is an error; per-CRTC and per-output failures
// drop that item.
func (c *xconn) query() (*State, error) {
	resources, err := randr.GetScreenResourcesCurrent(c.conn(), c.root()).Reply()
	if err != nil {
		return nil, err
	}

	state := &State{}
	if reply, err := randr.GetOutputPrimary(c.conn(), c.root()).Reply(); err == nil {
		state.primary = reply.Output
	} else {
		c.trap("GetOutputPrimary", err)
	}

	for _, mode := range resources.Modes {
		state.modes = append(state.modes, Mode{
			id:       randr.Mode(mode.Id),
			Width:    mode.Width,
			Height:   mode.Height,
			DotClock: mode.DotClock,
			HTotal:   mode.Htotal,
			VTotal:   mode.Vtotal,
		})
	}

	for _, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(c.conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			c.trap("GetCrtcInfo", err)
			continue
		}
		state.controllers = append(state.controllers, Controller{
			id:       crtc,
			Mode:     state.mode(info.Mode),
			X:        info.X,
			Y:        info.Y,
			Width:    info.Width,
			Height:   info.Height,
			Rotation: info.Rotation,
		})
	}

	for _, out := range resources.Outputs {
		info, err := randr.GetOutputInfo(c.conn(), out, resources.ConfigTimestamp).Reply()
		if err != nil {
			c.trap("GetOutputInfo", err)
			continue
		}

		output := Output{
			id:        out,
			Name:      string(info.Name),
			Connected: info.Connection == randr.ConnectionConnected,
			MmWidth:   info.MmWidth,
			MmHeight:  info.MmHeight,
			Subpixel:  info.SubpixelOrder,
		}
		if info.Crtc != 0 {
			output.Controller = state.controller(info.Crtc)
		}
		if output.active() {
			output.EDID = c.edid(out)
		}
		state.outputs = append(state.outputs, output)
	}
	return state, nil
}

func (c *xconn) edid(out randr.Output) []byte {
	atom, err := c.atom(edidProperty)
	if err != nil {
		return nil
	}
	reply, err := randr.GetOutputProperty(c.conn(), out, atom, xproto.AtomAny,
		0, edidLongs, false, false).Reply()
	if err != nil {
		c.trap("GetOutputProperty", err)
		return nil
	}
	return reply.Data
}

func (c *xconn) atom(name string) (xproto.Atom, error) {
	a, err := xprop.Atm(c.xu, name)
	if err != nil {
		c.trap("InternAtom "+name, err)
	}
	return a, err
}

func (c *xconn) listen(win xproto.Window, masks ...int) error {
	err := xwindow.New(c.xu, win).Listen(masks...)
	if err != nil {
		c.trap("ChangeWindowAttributes", err)
	}
	return err
}

func (c *xconn) selectionOwner(selection xproto.Atom) (xproto.Window, error) {
	reply, err := xproto.GetSelectionOwner(c.conn(), selection).Reply()
	if err != nil {
		c.trap("GetSelectionOwner", err)
		return 0, err
	}
	return reply.Owner, nil
}

func (c *xconn) property(win xproto.Window, atom xproto.Atom) ([]byte, error) {
	reply, err := xproto.GetProperty(c.conn(), false, win, atom,
		xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil {
		c.trap("GetProperty", err)
		return nil, err
	}
	if reply.Format == 0 {
		return nil, fmt.Errorf("no property %d on window %x", atom, win)
	}
	return reply.Value, nil
}

func (c *xconn) workarea() ([]uint, int, int, error) {
	raw, err := xprop.PropValNums(xprop.GetProperty(c.xu, c.root(), "_NET_WORKAREA"))
	if err != nil {
		return nil, 0, 0, err
	}
	desktops, err := ewmh.NumberOfDesktopsGet(c.xu)
	if err != nil {
		desktops = 0
	}
	current, err := ewmh.CurrentDesktopGet(c.xu)
	if err != nil {
		current = 0
	}
	return raw, int(desktops), int(current), nil
}

func (c *xconn) waitForEvent() (xgb.Event, error) {
	ev, xerr := c.conn().WaitForEvent()
	if ev == nil && xerr == nil {
		return nil, errClosed
	}
	if xerr != nil {
		return nil, xerr
	}
	return ev, nil
}

func (c *xconn) close() {
	c.conn().Close()
}

// trap logs a failed request. The request is then treated as having
// returned nothing.
func (c *xconn) trap(request string, err error) {
	c.log.Debug().Err(err).Str("request", request).Msg("X request failed")
}

package x11

import "github.com/BurntSushi/xgb/randr"

// State is one enumeration of the RandR configuration, taken with
// GetScreenResourcesCurrent.
type State struct {
	controllers []Controller
	outputs     []Output
	modes       []Mode

	primary randr.Output
}

type Controller struct {
	id randr.Crtc

	Mode          *Mode
	X, Y          int16
	Width, Height uint16
	Rotation      uint16
}

type Mode struct {
	id randr.Mode

	Width, Height  uint16
	DotClock       uint32
	HTotal, VTotal uint16
}

// RefreshMHz is the vertical refresh in millihertz, or 0 when the timings
// are unknown.
func (m *Mode) RefreshMHz() uint32 {
	if m == nil || m.HTotal == 0 || m.VTotal == 0 {
		return 0
	}
	return uint32(uint64(m.DotClock) * 1000 / (uint64(m.HTotal) * uint64(m.VTotal)))
}

type Output struct {
	id randr.Output

	Name       string
	Connected  bool
	Controller *Controller
	MmWidth    uint32
	MmHeight   uint32
	Subpixel   byte
	EDID       []byte
}

// active reports whether the output is lit: connected, driven by a CRTC and
// that CRTC has a mode.
func (o *Output) active() bool {
	return o.Connected && o.Controller != nil && o.Controller.Mode != nil &&
		o.Controller.Width > 0 && o.Controller.Height > 0
}

func (s *State) mode(id randr.Mode) *Mode {
	for i := range s.modes {
		if s.modes[i].id == id {
			return &s.modes[i]
		}
	}
	return nil
}

func (s *State) controller(id randr.Crtc) *Controller {
	for i := range s.controllers {
		if s.controllers[i].id == id {
			return &s.controllers[i]
		}
	}
	return nil
}

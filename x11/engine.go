// Package x11 discovers monitors through the RandR extension and keeps a
// monitor.Set in step with the X server.
package x11

import (
	"context"
	"errors"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/rs/zerolog"

	"github.com/FyshOS/screens/config"
	"github.com/FyshOS/screens/edid"
	"github.com/FyshOS/screens/logger"
	"github.com/FyshOS/screens/monitor"
	"github.com/FyshOS/screens/workarea"
	"github.com/FyshOS/screens/xsettings"
)

// Name is the backend name reported by Engine.Name.
const Name = "x11"

// fallbackConnector names the single monitor made up when RandR cannot be
// used.
const fallbackConnector = "default"

var workareaAtoms = []string{"_NET_WORKAREA", "_NET_CURRENT_DESKTOP", "_NET_NUMBER_OF_DESKTOPS"}

// Engine is the X11 monitor backend. All of its state is owned by the
// goroutine calling Start and then Run.
type Engine struct {
	srv      server
	log      zerolog.Logger
	set      *monitor.Set
	debounce time.Duration
	scale    *xsettings.Scale

	// fallback is set for the session when RandR is missing or too old.
	fallback bool
	screen   monitor.Rect
	screenMM monitor.Size

	settingsSelection xproto.Atom
	settingsProperty  xproto.Atom
	manager           xproto.Atom
	owner             xproto.Window
	noOwnerLogged     bool

	watched map[xproto.Atom]bool
	table   workarea.Table
}

// New connects to the X server named by $DISPLAY.
func New(log zerolog.Logger, cfg config.Config) (*Engine, error) {
	log = logger.Component(log, Name)
	srv, err := dial("", log)
	if err != nil {
		return nil, err
	}
	return newEngine(srv, log, cfg), nil
}

func newEngine(srv server, log zerolog.Logger, cfg config.Config) *Engine {
	return &Engine{
		srv:      srv,
		log:      log,
		set:      monitor.NewSet(),
		debounce: cfg.RefreshDebounce,
		scale:    xsettings.NewScale(cfg.ScaleEnv),
		watched:  map[xproto.Atom]bool{},
	}
}

var _ monitor.Backend = (*Engine)(nil)

func (e *Engine) Name() string { return Name }

func (e *Engine) Monitors() *monitor.Set { return e.set }

// Scale is the current desktop scale.
func (e *Engine) Scale() int { return e.scale.Value() }

// Settings reads and decodes the whole settings property of the current
// manager.
func (e *Engine) Settings() (*xsettings.Settings, error) {
	if e.owner == 0 {
		return nil, errors.New("no settings manager")
	}
	blob, err := e.srv.property(e.owner, e.settingsProperty)
	if err != nil {
		return nil, err
	}
	return xsettings.Parse(blob)
}

// Start checks RandR, subscribes to the root window and publishes the
// initial topology.
func (e *Engine) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.screen, e.screenMM = e.srv.screen()

	major, minor, err := e.srv.randrVersion()
	switch {
	case err != nil:
		e.log.Warn().Err(err).Msg("RandR unavailable, using one monitor for the whole screen")
		e.fallback = true
	case major < 1 || (major == 1 && minor < 3):
		e.log.Warn().Uint32("major", major).Uint32("minor", minor).
			Msg("RandR older than 1.3, using one monitor for the whole screen")
		e.fallback = true
	default:
		if err := e.srv.selectRandrInput(); err != nil {
			e.log.Warn().Err(err).Msg("could not select RandR events, topology will not update")
		}
	}

	if err := e.srv.listen(e.srv.root(), xproto.EventMaskPropertyChange, xproto.EventMaskStructureNotify); err != nil {
		e.log.Warn().Err(err).Msg("could not watch the root window")
	}
	for _, name := range workareaAtoms {
		if a, err := e.srv.atom(name); err == nil {
			e.watched[a] = true
		}
	}

	e.initSettings()
	e.loadWorkarea()
	e.refresh()
	return nil
}

// Run handles X events until ctx is done or the connection drops.
// Topology notifications are coalesced: the first one arms a timer and
// those arriving before it fires are absorbed.
func (e *Engine) Run(ctx context.Context) error {
	events := make(chan xgb.Event)
	errs := make(chan error, 1)
	go e.read(ctx, events, errs)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errs:
			return err
		case ev := <-events:
			if !e.handleEvent(ev) || fire != nil {
				continue
			}
			if e.debounce <= 0 {
				e.refresh()
				continue
			}
			timer = time.NewTimer(e.debounce)
			fire = timer.C
		case <-fire:
			timer, fire = nil, nil
			e.refresh()
		}
	}
}

func (e *Engine) read(ctx context.Context, events chan<- xgb.Event, errs chan<- error) {
	for {
		ev, err := e.srv.waitForEvent()
		if errors.Is(err, errClosed) {
			errs <- err
			return
		}
		if err != nil {
			e.log.Debug().Err(err).Msg("X error")
			continue
		}

		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) Close() error {
	e.srv.close()
	return nil
}

// handleEvent reacts to one X event and reports whether a topology refresh
// is needed.
func (e *Engine) handleEvent(ev xgb.Event) bool {
	switch ev := ev.(type) {
	case randr.ScreenChangeNotifyEvent:
		if ev.Root == e.srv.root() {
			e.screen.Width, e.screen.Height = int(ev.Width), int(ev.Height)
			e.screenMM = monitor.Size{Width: int(ev.Mwidth), Height: int(ev.Mheight)}
		}
		return !e.fallback
	case randr.NotifyEvent:
		return !e.fallback
	case xproto.PropertyNotifyEvent:
		switch {
		case e.owner != 0 && ev.Window == e.owner && ev.Atom == e.settingsProperty:
			return e.reloadScale()
		case ev.Window == e.srv.root() && e.watched[ev.Atom]:
			e.updateWorkarea()
		}
	case xproto.ClientMessageEvent:
		if e.isManagerMessage(ev) {
			return e.acquireSettingsOwner()
		}
	case xproto.DestroyNotifyEvent:
		if e.owner != 0 && ev.Window == e.owner {
			e.log.Debug().Msg("settings manager went away")
			e.owner = 0
		}
	}
	return false
}

func (e *Engine) loadWorkarea() {
	raw, desktops, current, err := e.srv.workarea()
	if err != nil {
		// No window manager publishing it: nothing is reserved.
		e.table = workarea.Table{}
		return
	}
	table, err := workarea.Parse(raw, desktops, current, e.screen)
	if err != nil {
		e.log.Warn().Err(err).Msg("ignoring _NET_WORKAREA")
	}
	e.table = table
}

// workareas is the table in the logical pixels of the current scale.
func (e *Engine) workareas() workarea.Table {
	return e.table.Scaled(e.scale.Value())
}

func (e *Engine) updateWorkarea() {
	e.loadWorkarea()
	if workarea.Recompute(e.workareas(), e.set.Current()) {
		e.set.NotifyChanged()
	}
}

// candidate is an enumerated output before it is matched against the
// published records.
type candidate struct {
	connector string
	native    uint32
	attrs     monitor.Attributes
}

func (e *Engine) refresh() {
	var found []candidate
	if e.fallback {
		found = []candidate{e.fallbackCandidate()}
	} else {
		state, err := e.srv.query()
		if err != nil {
			e.log.Warn().Err(err).Msg("RandR query failed, keeping previous monitors")
			return
		}
		found = e.candidates(state)
	}
	choosePrimary(found)
	e.publish(found)
}

func (e *Engine) fallbackCandidate() candidate {
	scale := e.scale.Value()
	attrs := monitor.Attributes{
		Scale:    scale,
		Physical: e.screen,
		Logical:  e.screen.Scaled(scale),
		SizeMM:   e.screenMM,
		Primary:  true,
	}
	attrs.Workarea = e.workareas().Apply(attrs.Logical)
	return candidate{connector: fallbackConnector, attrs: attrs}
}

func (e *Engine) candidates(state *State) []candidate {
	scale := e.scale.Value()
	table := e.workareas()

	var found []candidate
	for i := range state.outputs {
		out := &state.outputs[i]
		if !out.active() {
			continue
		}
		crtc := out.Controller

		attrs := monitor.Attributes{
			RefreshMHz: crtc.Mode.RefreshMHz(),
			Scale:      scale,
			Physical: monitor.Rect{
				X: int(crtc.X), Y: int(crtc.Y),
				Width: int(crtc.Width), Height: int(crtc.Height),
			},
			SizeMM:    monitor.Size{Width: int(out.MmWidth), Height: int(out.MmHeight)},
			Subpixel:  subpixel(out.Subpixel),
			Transform: transform(crtc.Rotation),
			Primary:   out.id != 0 && out.id == state.primary,
		}
		attrs.Logical = attrs.Physical.Scaled(scale)
		attrs.Workarea = table.Apply(attrs.Logical)

		if len(out.EDID) > 0 {
			info, err := edid.Parse(out.EDID)
			if err != nil {
				e.log.Debug().Err(err).Str("output", out.Name).Msg("ignoring EDID")
			} else {
				attrs.Make, attrs.Model, attrs.Serial = info.Manufacturer, info.Model, info.Serial
			}
		}

		found = append(found, candidate{connector: out.Name, native: uint32(out.id), attrs: attrs})
	}
	return found
}

// choosePrimary leaves the server's choice alone. Without one, the
// top-most, then left-most, then largest output becomes primary.
func choosePrimary(found []candidate) {
	best := -1
	for i := range found {
		if found[i].attrs.Primary {
			return
		}
		if best < 0 || before(found[i].attrs.Physical, found[best].attrs.Physical) {
			best = i
		}
	}
	if best >= 0 {
		found[best].attrs.Primary = true
	}
}

func before(a, b monitor.Rect) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Width*a.Height > b.Width*b.Height
}

// publish matches the enumeration against the published records. A record
// survives when its connector is unchanged and the candidate is the same
// monitor; anything else is a removal and an addition.
func (e *Engine) publish(found []candidate) {
	previous := e.set.Current()
	byConnector := make(map[string]*monitor.Record, len(previous))
	for _, r := range previous {
		byConnector[r.Connector()] = r
	}

	var list, added, removed []*monitor.Record
	kept := map[*monitor.Record]bool{}
	changed := false
	for _, c := range found {
		id := monitor.BuildIdentifier(c.attrs.Make, c.attrs.Model, c.attrs.Serial, c.connector)
		if old, ok := byConnector[c.connector]; ok && !kept[old] && sameMonitor(old, &c, id) {
			old.Rebind(c.native)
			if old.Update(c.attrs) {
				changed = true
			}
			kept[old] = true
			list = append(list, old)
			continue
		}

		r := monitor.NewRecord(c.connector, c.native, c.attrs)
		list = append(list, r)
		added = append(added, r)
	}
	for _, r := range previous {
		if !kept[r] {
			removed = append(removed, r)
		}
	}

	switch {
	case len(added) > 0 || len(removed) > 0 || reordered(previous, list):
		for _, r := range removed {
			e.log.Info().Str("connector", r.Connector()).Str("id", r.Identifier()).Msg("monitor removed")
		}
		for _, r := range added {
			e.log.Info().Str("connector", r.Connector()).Str("description", r.Description()).Msg("monitor added")
		}
		e.set.ApplyRefresh(list, added, removed)
	case changed:
		e.set.NotifyChanged()
	}
}

// sameMonitor reports whether candidate c is old again. A candidate without
// any hardware metadata looks exactly like a failed EDID read, so it is
// taken to be the monitor already on the connector and inherits its
// metadata. A different non-empty identity is a different monitor.
func sameMonitor(old *monitor.Record, c *candidate, id string) bool {
	if old.Identifier() == id {
		return true
	}
	a := &c.attrs
	if a.Make != "" || a.Model != "" || a.Serial != "" {
		return false
	}
	a.Make, a.Model, a.Serial = old.Make(), old.Model(), old.Serial()
	return true
}

func reordered(previous, list []*monitor.Record) bool {
	if len(previous) != len(list) {
		return true
	}
	for i := range list {
		if previous[i] != list[i] {
			return true
		}
	}
	return false
}

// Package wayland discovers monitors from wl_output globals, refined by
// xdg-output when the compositor offers it.
//
// Output events are gathered into a staging entry per registry global and
// the monitor is published only once the entry is complete. This file holds
// that bookkeeping and knows nothing about the wire; client.go feeds it.
package wayland

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/FyshOS/screens/monitor"
)

// Name is the backend name reported by Engine.Name.
const Name = "wayland"

// modeCurrent is the wl_output mode flag marking the mode in use.
const modeCurrent = 0x1

// protocol creates and destroys the per-output protocol objects.
type protocol interface {
	// watchLogical creates the xdg-output object for an output.
	watchLogical(global uint32) error
	// release destroys every object created for an output.
	release(global uint32)
}

type geometry struct {
	X, Y                          int
	PhysicalWidth, PhysicalHeight int
	Subpixel                      monitor.Subpixel
	Make, Model                   string
	Transform                     monitor.Transform
}

// staging is everything known about one wl_output global.
type staging struct {
	global  uint32
	version uint32

	geometry      geometry
	width, height int
	refreshMHz    uint32
	scale         int
	name          string
	description   string

	logicalPos         bool
	logicalX, logicalY int
	logicalSize        bool
	logicalW, logicalH int
	xdgName            string
	xdgDescription     string

	watched bool
	dones   int
	xdgDone bool

	// record is set once the output has been published.
	record *monitor.Record
}

// Engine is the Wayland monitor backend.
type Engine struct {
	log   zerolog.Logger
	set   *monitor.Set
	proto protocol
	wl    *session

	managerVersion  uint32
	noManagerLogged bool
	outputs         map[uint32]*staging
	roundtrips      int
}

func newEngine(proto protocol, log zerolog.Logger) *Engine {
	return &Engine{
		log:     log,
		set:     monitor.NewSet(),
		proto:   proto,
		outputs: map[uint32]*staging{},
	}
}

func (e *Engine) Name() string { return Name }

func (e *Engine) Monitors() *monitor.Set { return e.set }

func (e *Engine) beginRoundtrip() { e.roundtrips++ }

func (e *Engine) endRoundtrip() {
	if e.roundtrips > 0 {
		e.roundtrips--
	}
}

// settled reports whether every round-trip issued so far has completed.
func (e *Engine) settled() bool { return e.roundtrips == 0 }

func (e *Engine) outputAdded(global, version uint32) {
	o := &staging{global: global, version: version, scale: 1}
	e.outputs[global] = o
	if e.managerVersion > 0 {
		e.watch(o)
	}
}

func (e *Engine) managerBound(version uint32) {
	e.managerVersion = version
	for _, o := range e.outputs {
		e.watch(o)
	}
}

// noManager is called once the initial globals are known and no xdg-output
// manager was among them.
func (e *Engine) noManager() {
	if e.managerVersion == 0 && !e.noManagerLogged {
		e.log.Info().Msg("compositor has no xdg-output, logical geometry is derived from the scale")
		e.noManagerLogged = true
	}
}

func (e *Engine) watch(o *staging) {
	if o.watched {
		return
	}
	if err := e.proto.watchLogical(o.global); err != nil {
		e.log.Warn().Err(err).Uint32("global", o.global).Msg("could not create xdg-output")
		return
	}
	o.watched = true
}

func (e *Engine) output(global uint32) *staging {
	o, ok := e.outputs[global]
	if !ok {
		e.log.Debug().Uint32("global", global).Msg("event for unknown output")
	}
	return o
}

func (e *Engine) outputGeometry(global uint32, g geometry) {
	if o := e.output(global); o != nil {
		o.geometry = g
	}
}

func (e *Engine) outputMode(global uint32, flags uint32, width, height, refresh int) {
	o := e.output(global)
	if o == nil || flags&modeCurrent == 0 {
		return
	}
	o.width, o.height = width, height
	if refresh > 0 {
		o.refreshMHz = uint32(refresh)
	}
}

func (e *Engine) outputScale(global uint32, factor int) {
	if o := e.output(global); o != nil {
		o.scale = max(factor, 1)
	}
}

func (e *Engine) outputName(global uint32, name string) {
	if o := e.output(global); o != nil {
		o.name = name
	}
}

func (e *Engine) outputDescription(global uint32, description string) {
	if o := e.output(global); o != nil {
		o.description = description
	}
}

func (e *Engine) outputDone(global uint32) {
	if o := e.output(global); o != nil {
		o.dones++
		e.settle(o)
	}
}

func (e *Engine) xdgLogicalPosition(global uint32, x, y int) {
	if o := e.output(global); o != nil {
		o.logicalPos, o.logicalX, o.logicalY = true, x, y
	}
}

func (e *Engine) xdgLogicalSize(global uint32, width, height int) {
	if o := e.output(global); o != nil {
		o.logicalSize, o.logicalW, o.logicalH = true, width, height
	}
}

func (e *Engine) xdgName(global uint32, name string) {
	if o := e.output(global); o != nil {
		o.xdgName = name
	}
}

func (e *Engine) xdgDescription(global uint32, description string) {
	if o := e.output(global); o != nil {
		o.xdgDescription = description
	}
}

func (e *Engine) xdgDone(global uint32) {
	if o := e.output(global); o != nil {
		o.xdgDone = true
		e.settle(o)
	}
}

// ready is the finalization rule. With an xdg-output manager of version 3
// or later the xdg data is followed by a second wl_output.done; older
// managers send their own done. An output without an xdg-output object
// gets neither, so it is treated as if there were no manager.
func (e *Engine) ready(o *staging) bool {
	switch {
	case o.dones == 0:
		return false
	case e.managerVersion == 0, !o.watched, o.xdgDone:
		return true
	}
	return e.managerVersion >= 3 && o.dones >= 2
}

func (e *Engine) settle(o *staging) {
	if o.record != nil {
		if o.record.Update(o.attributes()) {
			e.set.NotifyChanged()
		}
		return
	}
	if e.ready(o) {
		e.finalize(o)
	}
}

func (e *Engine) finalize(o *staging) {
	connector := o.connector()
	attrs := o.attributes()
	id := monitor.BuildIdentifier(attrs.Make, attrs.Model, attrs.Serial, connector)

	current := e.set.Current()
	for i, old := range current {
		if old.Connector() != connector {
			continue
		}
		if prev := e.owner(old); prev != nil {
			prev.record = nil
		}
		if old.Identifier() == id {
			old.Rebind(o.global)
			o.record = old
			attrs.Primary = old.Primary()
			old.Update(attrs)
			e.set.NotifyChanged()
			return
		}

		r := monitor.NewRecord(connector, o.global, attrs)
		o.record = r
		list := append(append([]*monitor.Record{}, current[:i]...), r)
		list = append(list, current[i+1:]...)
		e.log.Info().Str("connector", connector).Str("description", r.Description()).Msg("monitor replaced")
		e.apply(list, []*monitor.Record{r}, []*monitor.Record{old})
		return
	}

	r := monitor.NewRecord(connector, o.global, attrs)
	o.record = r
	e.log.Info().Str("connector", connector).Str("description", r.Description()).Msg("monitor added")
	e.apply(append(current, r), []*monitor.Record{r}, nil)
}

// owner finds the staging entry publishing r.
func (e *Engine) owner(r *monitor.Record) *staging {
	for _, o := range e.outputs {
		if o.record == r {
			return o
		}
	}
	return nil
}

func (e *Engine) outputRemoved(global uint32) {
	o, ok := e.outputs[global]
	if !ok {
		return
	}
	delete(e.outputs, global)
	e.proto.release(global)

	if o.record == nil {
		e.log.Debug().Uint32("global", global).Msg("output withdrawn before it was complete")
		return
	}

	var list []*monitor.Record
	for _, r := range e.set.Current() {
		if r != o.record {
			list = append(list, r)
		}
	}
	e.log.Info().Str("connector", o.record.Connector()).Msg("monitor removed")
	e.apply(list, nil, []*monitor.Record{o.record})
}

// apply publishes a new list. Wayland has no primary output, so the first
// monitor is marked primary.
func (e *Engine) apply(list, added, removed []*monitor.Record) {
	for i, r := range list {
		r.SetPrimary(i == 0)
	}
	e.set.ApplyRefresh(list, added, removed)
}

func (o *staging) connector() string {
	switch {
	case o.xdgName != "":
		return o.xdgName
	case o.name != "":
		return o.name
	}
	return fmt.Sprintf("WL-%d", o.global)
}

func (o *staging) attributes() monitor.Attributes {
	g := o.geometry
	width, height := o.width, o.height
	if g.Transform.Swapped() {
		width, height = height, width
	}

	attrs := monitor.Attributes{
		Make:       g.Make,
		Model:      g.Model,
		RefreshMHz: o.refreshMHz,
		Scale:      o.scale,
		Physical:   monitor.Rect{X: g.X, Y: g.Y, Width: width, Height: height},
		SizeMM:     monitor.Size{Width: g.PhysicalWidth, Height: g.PhysicalHeight},
		Subpixel:   g.Subpixel,
		Transform:  g.Transform,
	}
	if o.record != nil {
		attrs.Primary = o.record.Primary()
	}

	attrs.Logical = attrs.Physical.Scaled(o.scale)
	if o.logicalPos {
		attrs.Logical.X, attrs.Logical.Y = o.logicalX, o.logicalY
	}
	if o.logicalSize && o.logicalW > 0 && o.logicalH > 0 {
		attrs.Logical.Width, attrs.Logical.Height = o.logicalW, o.logicalH
		attrs.FractionalScale = float64(width) / float64(o.logicalW)
	}
	// Compositors keep reserved areas to themselves.
	attrs.Workarea = attrs.Logical

	attrs.Description = o.xdgDescription
	if attrs.Description == "" {
		attrs.Description = o.description
	}
	attrs.Serial = serialFromDescription(attrs.Description, g.Make, g.Model, o.connector())
	return attrs
}

// serialFromDescription recovers the serial from a description formatted
// "<make> <model> <serial> (<connector>)", as wlroots compositors do.
func serialFromDescription(description, manufacturer, model, connector string) string {
	if description == "" || manufacturer == "" || model == "" {
		return ""
	}
	offset := len(manufacturer) + len(model) + 2
	if offset >= len(description) {
		return ""
	}
	end := strings.Index(description[offset:], " ("+connector)
	if end <= 0 {
		return ""
	}
	return strings.TrimSpace(description[offset : offset+end])
}

package wayland

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	xdg "github.com/rajveermalviya/go-wayland/wayland/unstable/xdg-output-v1"
	"github.com/rs/zerolog"

	"github.com/FyshOS/screens/logger"
	"github.com/FyshOS/screens/monitor"
)

const (
	outputInterface  = "wl_output"
	managerInterface = "zxdg_output_manager_v1"

	// wl_output 4 adds name and description; 3 adds release.
	maxOutputVersion  = 4
	releaseVersion    = 3
	maxManagerVersion = 3
)

// session owns the connection and the protocol objects, forwarding their
// events into the engine.
type session struct {
	e *Engine

	display  *client.Display
	ctx      *client.Context
	registry *client.Registry
	manager  *xdg.OutputManager
	// managerName is the registry global of the bound manager.
	managerName uint32

	outputs  map[uint32]*client.Output
	// versions of the bound outputs; release needs 3.
	versions map[uint32]uint32
	logical  map[uint32]*xdg.Output

	closeOnce sync.Once
}

// New connects to the compositor named by $WAYLAND_DISPLAY.
func New(log zerolog.Logger) (*Engine, error) {
	display, err := client.Connect("")
	if err != nil {
		return nil, fmt.Errorf("connect to compositor: %w", err)
	}
	return attach(display, logger.Component(log, Name)), nil
}

// attach builds an engine on an established connection.
func attach(display *client.Display, log zerolog.Logger) *Engine {
	s := &session{
		display:  display,
		ctx:      display.Context(),
		outputs:  map[uint32]*client.Output{},
		versions: map[uint32]uint32{},
		logical:  map[uint32]*xdg.Output{},
	}
	e := newEngine(s, log)
	e.wl = s
	s.e = e
	return e
}

var _ monitor.Backend = (*Engine)(nil)

// Start binds the outputs and dispatches until every round-trip issued
// during discovery has completed, so the initial topology is complete when
// it returns.
func (e *Engine) Start(ctx context.Context) error {
	s := e.wl
	registry, err := s.display.GetRegistry()
	if err != nil {
		return fmt.Errorf("get registry: %w", err)
	}
	s.registry = registry
	registry.SetGlobalHandler(s.global)
	registry.SetGlobalRemoveHandler(func(ev client.RegistryGlobalRemoveEvent) {
		s.globalRemoved(ev.Name)
	})

	if err := s.roundtrip(e.noManager); err != nil {
		return err
	}

	for !e.settled() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.ctx.Dispatch(); err != nil {
			return fmt.Errorf("dispatch: %w", err)
		}
	}
	return nil
}

// Run dispatches compositor events until ctx is done or the connection
// fails.
func (e *Engine) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { e.wl.close() })
	defer stop()

	for {
		if err := e.wl.ctx.Dispatch(); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("dispatch: %w", err)
		}
	}
}

func (e *Engine) Close() error {
	return e.wl.close()
}

func (s *session) close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.ctx.Close()
	})
	return err
}

// roundtrip issues a sync request; then runs once the compositor has
// answered it.
func (s *session) roundtrip(then func()) error {
	cb, err := s.display.Sync()
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	s.e.beginRoundtrip()
	cb.SetDoneHandler(func(client.CallbackDoneEvent) {
		s.e.endRoundtrip()
		if then != nil {
			then()
		}
	})
	return nil
}

func (s *session) global(ev client.RegistryGlobalEvent) {
	switch ev.Interface {
	case outputInterface:
		s.bindOutput(ev.Name, min(ev.Version, maxOutputVersion))
	case managerInterface:
		if s.manager != nil {
			return
		}
		version := min(ev.Version, maxManagerVersion)
		manager := xdg.NewOutputManager(s.ctx)
		if err := s.registry.Bind(ev.Name, ev.Interface, version, manager); err != nil {
			s.e.log.Warn().Err(err).Msg("could not bind xdg-output manager")
			return
		}
		s.manager, s.managerName = manager, ev.Name
		s.e.managerBound(version)
		s.sync()
	}
}

func (s *session) sync() {
	if err := s.roundtrip(nil); err != nil {
		s.e.log.Warn().Err(err).Msg("round-trip failed")
	}
}

func (s *session) bindOutput(name, version uint32) {
	output := client.NewOutput(s.ctx)
	e := s.e

	output.SetGeometryHandler(func(ev client.OutputGeometryEvent) {
		e.outputGeometry(name, geometry{
			X:              int(ev.X),
			Y:              int(ev.Y),
			PhysicalWidth:  int(ev.PhysicalWidth),
			PhysicalHeight: int(ev.PhysicalHeight),
			Subpixel:       monitor.Subpixel(ev.Subpixel),
			Make:           ev.Make,
			Model:          ev.Model,
			Transform:      monitor.Transform(ev.Transform),
		})
	})
	output.SetModeHandler(func(ev client.OutputModeEvent) {
		e.outputMode(name, ev.Flags, int(ev.Width), int(ev.Height), int(ev.Refresh))
	})
	output.SetScaleHandler(func(ev client.OutputScaleEvent) {
		e.outputScale(name, int(ev.Factor))
	})
	output.SetNameHandler(func(ev client.OutputNameEvent) {
		e.outputName(name, ev.Name)
	})
	output.SetDescriptionHandler(func(ev client.OutputDescriptionEvent) {
		e.outputDescription(name, ev.Description)
	})
	output.SetDoneHandler(func(client.OutputDoneEvent) {
		e.outputDone(name)
	})

	if err := s.registry.Bind(name, outputInterface, version, output); err != nil {
		e.log.Warn().Err(err).Uint32("global", name).Msg("could not bind output")
		return
	}
	s.outputs[name] = output
	s.versions[name] = version
	e.outputAdded(name, version)
	s.sync()
}

// watchLogical creates the xdg-output object of an output.
func (s *session) watchLogical(name uint32) error {
	output, ok := s.outputs[name]
	if !ok || s.manager == nil {
		return errors.New("no output or manager")
	}
	logical, err := s.manager.GetXdgOutput(output)
	if err != nil {
		return err
	}
	e := s.e
	logical.SetLogicalPositionHandler(func(ev xdg.OutputLogicalPositionEvent) {
		e.xdgLogicalPosition(name, int(ev.X), int(ev.Y))
	})
	logical.SetLogicalSizeHandler(func(ev xdg.OutputLogicalSizeEvent) {
		e.xdgLogicalSize(name, int(ev.Width), int(ev.Height))
	})
	logical.SetNameHandler(func(ev xdg.OutputNameEvent) {
		e.xdgName(name, ev.Name)
	})
	logical.SetDescriptionHandler(func(ev xdg.OutputDescriptionEvent) {
		e.xdgDescription(name, ev.Description)
	})
	logical.SetDoneHandler(func(xdg.OutputDoneEvent) {
		e.xdgDone(name)
	})
	s.logical[name] = logical
	s.sync()
	return nil
}

func (s *session) globalRemoved(name uint32) {
	if s.manager != nil && name == s.managerName {
		s.e.log.Info().Msg("xdg-output manager withdrawn")
		return
	}
	s.e.outputRemoved(name)
}

func (s *session) release(name uint32) {
	if logical, ok := s.logical[name]; ok {
		if err := logical.Destroy(); err != nil {
			s.e.log.Debug().Err(err).Msg("destroy xdg-output")
		}
		delete(s.logical, name)
	}
	if output, ok := s.outputs[name]; ok && s.versions[name] >= releaseVersion {
		if err := output.Release(); err != nil {
			s.e.log.Debug().Err(err).Msg("release output")
		}
	}
	delete(s.outputs, name)
	delete(s.versions, name)
}

package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
)

const (
	settingsProperty = "_XSETTINGS_SETTINGS"
	managerMessage   = "MANAGER"
)

func (e *Engine) initSettings() {
	var err error
	if e.settingsSelection, err = e.srv.atom(fmt.Sprintf("_XSETTINGS_S%d", e.srv.screenNumber())); err != nil {
		return
	}
	if e.settingsProperty, err = e.srv.atom(settingsProperty); err != nil {
		return
	}
	if e.manager, err = e.srv.atom(managerMessage); err != nil {
		return
	}
	e.acquireSettingsOwner()
}

// acquireSettingsOwner finds the window owning the settings selection and
// watches it. It reports whether the scale changed as a result.
func (e *Engine) acquireSettingsOwner() bool {
	if e.settingsSelection == 0 {
		return false
	}
	owner, err := e.srv.selectionOwner(e.settingsSelection)
	if err != nil || owner == 0 {
		if !e.noOwnerLogged {
			e.log.Info().Msg("no settings manager running, scale stays at last known value")
			e.noOwnerLogged = true
		}
		e.owner = 0
		return false
	}
	if err := e.srv.listen(owner, xproto.EventMaskPropertyChange, xproto.EventMaskStructureNotify); err != nil {
		// Gone between the query and the listen; its MANAGER broadcast will follow.
		e.owner = 0
		return false
	}
	e.owner = owner
	e.log.Debug().Uint32("window", uint32(owner)).Msg("watching settings manager")
	return e.reloadScale()
}

// reloadScale re-reads the settings property. It reports whether the scale
// changed.
func (e *Engine) reloadScale() bool {
	if e.scale.Overridden() || e.owner == 0 {
		return false
	}
	blob, err := e.srv.property(e.owner, e.settingsProperty)
	if err != nil {
		return false
	}
	changed, err := e.scale.Update(blob)
	if err != nil {
		e.log.Debug().Err(err).Msg("ignoring settings property")
		return false
	}
	if changed {
		e.log.Info().Int("scale", e.scale.Value()).Msg("scale changed")
	}
	return changed
}

func (e *Engine) isManagerMessage(ev xproto.ClientMessageEvent) bool {
	return e.manager != 0 && ev.Type == e.manager && ev.Format == 32 &&
		len(ev.Data.Data32) > 1 && xproto.Atom(ev.Data.Data32[1]) == e.settingsSelection
}

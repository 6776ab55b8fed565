// Package workarea computes the part of each monitor that is not reserved
// by panels and docks on the active workspace.
package workarea

import (
	"errors"
	"fmt"

	"github.com/FyshOS/screens/monitor"
)

var ErrMalformed = errors.New("workarea: malformed property")

// Table is the per-workspace reserved-area table of the root window.
type Table struct {
	Areas   []monitor.Rect
	Current int
}

// Fallback is one workspace spanning the whole screen.
func Fallback(screen monitor.Rect) Table {
	return Table{Areas: []monitor.Rect{screen}}
}

// Parse builds a table from the raw _NET_WORKAREA cardinals. desktops is
// _NET_NUMBER_OF_DESKTOPS, or 0 when unknown. Anything unexpected returns
// the full-screen fallback together with an error saying what was wrong.
func Parse(raw []uint, desktops, current int, screen monitor.Rect) (Table, error) {
	switch {
	case len(raw) == 0:
		return Fallback(screen), fmt.Errorf("%w: empty", ErrMalformed)
	case len(raw)%4 != 0:
		return Fallback(screen), fmt.Errorf("%w: %d values is not a multiple of 4", ErrMalformed, len(raw))
	case desktops > 0 && len(raw) != desktops*4:
		return Fallback(screen), fmt.Errorf("%w: %d values for %d desktops", ErrMalformed, len(raw), desktops)
	}

	t := Table{Areas: make([]monitor.Rect, len(raw)/4), Current: current}
	for i := range t.Areas {
		t.Areas[i] = monitor.Rect{
			X:      int(int32(raw[i*4])),
			Y:      int(int32(raw[i*4+1])),
			Width:  int(raw[i*4+2]),
			Height: int(raw[i*4+3]),
		}
	}
	return t, nil
}

// Active is the reserved area of the current workspace, with the index
// clamped into range.
func (t Table) Active() monitor.Rect {
	if len(t.Areas) == 0 {
		return monitor.Rect{}
	}
	i := min(max(t.Current, 0), len(t.Areas)-1)
	return t.Areas[i]
}

// Apply returns logical ∩ active workspace area. With an empty table the
// whole logical rect is usable.
func (t Table) Apply(logical monitor.Rect) monitor.Rect {
	if len(t.Areas) == 0 {
		return logical
	}
	return logical.Intersect(t.Active())
}

// Recompute sets every record's workarea from the table and reports
// whether any of them changed. It never notifies; the caller flushes one
// change notification once all records are updated.
func Recompute(t Table, records []*monitor.Record) bool {
	changed := false
	for _, r := range records {
		if r.SetWorkarea(t.Apply(r.Logical())) {
			changed = true
		}
	}
	return changed
}

// Scaled divides every area by div, converting device pixels into the
// logical pixels of a screen scaled by div.
func (t Table) Scaled(div int) Table {
	if div <= 1 {
		return t
	}
	out := Table{Areas: make([]monitor.Rect, len(t.Areas)), Current: t.Current}
	for i, a := range t.Areas {
		out.Areas[i] = a.Scaled(div)
	}
	return out
}

package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []string
}

func (r *recorder) MonitorAdded(m *Record)   { r.events = append(r.events, "added "+m.Connector()) }
func (r *recorder) MonitorRemoved(m *Record) { r.events = append(r.events, "removed "+m.Connector()) }
func (r *recorder) MonitorsChanged()         { r.events = append(r.events, "changed") }

func rec(connector string, x int) *Record {
	return NewRecord(connector, 0, Attributes{
		Physical: Rect{X: x, Width: 1920, Height: 1080},
		Logical:  Rect{X: x, Width: 1920, Height: 1080},
		Workarea: Rect{X: x, Width: 1920, Height: 1080},
	})
}

func TestSetApplyRefreshOrdering(t *testing.T) {
	s := NewSet()
	r := &recorder{}
	s.Subscribe(r)

	dp, hdmi := rec("DP-1", 0), rec("HDMI-1", 1920)
	s.ApplyRefresh([]*Record{dp, hdmi}, []*Record{dp, hdmi}, nil)
	assert.Equal(t, []string{"added DP-1", "added HDMI-1", "changed"}, r.events)
	assert.Equal(t, []*Record{dp, hdmi}, s.Current())

	r.events = nil
	vga := rec("VGA-1", 3840)
	s.ApplyRefresh([]*Record{dp, vga}, []*Record{vga}, []*Record{hdmi})
	assert.Equal(t, []string{"removed HDMI-1", "added VGA-1", "changed"}, r.events)
	assert.Equal(t, []*Record{dp, vga}, s.Current())
}

func TestSetKeysAreStable(t *testing.T) {
	s := NewSet()
	dp, hdmi := rec("DP-1", 0), rec("HDMI-1", 1920)
	s.ApplyRefresh([]*Record{dp, hdmi}, []*Record{dp, hdmi}, nil)

	k := dp.Key()
	require.NotZero(t, k)
	s.ApplyRefresh([]*Record{hdmi, dp}, nil, nil)
	assert.Equal(t, k, dp.Key())

	hk := hdmi.Key()
	s.ApplyRefresh([]*Record{dp}, nil, []*Record{hdmi})
	_, ok := s.Get(hk)
	assert.False(t, ok)
	assert.False(t, s.Contains(hdmi))

	got, ok := s.Get(k)
	require.True(t, ok)
	assert.Same(t, dp, got)
}

func TestSetCurrentSnapshotSurvivesRemoval(t *testing.T) {
	s := NewSet()
	dp, hdmi := rec("DP-1", 0), rec("HDMI-1", 1920)
	s.ApplyRefresh([]*Record{dp, hdmi}, []*Record{dp, hdmi}, nil)

	snapshot := s.Current()
	s.ApplyRefresh(nil, nil, []*Record{dp, hdmi})
	assert.Len(t, snapshot, 2)
	assert.Equal(t, 0, s.Len())
}

func TestSetLookups(t *testing.T) {
	s := NewSet()
	dp, hdmi := rec("DP-1", 0), rec("HDMI-1", 1920)
	hdmi.SetPrimary(true)
	s.ApplyRefresh([]*Record{dp, hdmi}, []*Record{dp, hdmi}, nil)

	got, ok := s.ByConnector("HDMI-1")
	require.True(t, ok)
	assert.Same(t, hdmi, got)

	got, ok = s.ByIdentifier(dp.Identifier())
	require.True(t, ok)
	assert.Same(t, dp, got)

	got, ok = s.Primary()
	require.True(t, ok)
	assert.Same(t, hdmi, got)

	got, ok = s.At(2000, 10)
	require.True(t, ok)
	assert.Same(t, hdmi, got)

	_, ok = s.At(5000, 10)
	assert.False(t, ok)
}

func TestSetUnsubscribe(t *testing.T) {
	s := NewSet()
	calls := 0
	cancel := s.Subscribe(ListenerFuncs{Changed: func() { calls++ }})
	s.NotifyChanged()
	cancel()
	s.NotifyChanged()
	assert.Equal(t, 1, calls)
}

func TestRecordUpdate(t *testing.T) {
	r := rec("DP-1", 0)
	id := r.Identifier()

	a := r.Attributes()
	a.Description = ""
	a.Make, a.Model = "DEL", "U2415"
	a.Scale = 0
	assert.True(t, r.Update(a))
	assert.Equal(t, "DEL U2415 (DP-1)", r.Description())
	assert.Equal(t, 1, r.Scale())
	assert.Equal(t, id, r.Identifier(), "identifier is fixed for the record's lifetime")
	assert.False(t, r.Update(r.Attributes()))
}

func TestRecordWorkareaClamped(t *testing.T) {
	r := rec("DP-1", 0)
	r.SetWorkarea(Rect{X: -100, Y: 30, Width: 5000, Height: 5000})
	assert.Equal(t, Rect{Y: 30, Width: 1920, Height: 1050}, r.Workarea())
	assert.True(t, r.Workarea().Within(r.Logical()))
}

func TestRecordEmptyWorkareaKept(t *testing.T) {
	r := rec("DP-1", 0)
	assert.True(t, r.SetWorkarea(Rect{X: 1920, Width: 1280, Height: 1024}))
	assert.Equal(t, Rect{}, r.Workarea())

	assert.False(t, r.Update(r.Attributes()), "an empty workarea survives an update")
	assert.Equal(t, Rect{}, r.Workarea())

	fresh := NewRecord("HDMI-1", 0, Attributes{Logical: Rect{X: 1920, Width: 1280, Height: 1024}})
	assert.Equal(t, Rect{X: 1920}, fresh.Workarea())
}

func TestRectScaled(t *testing.T) {
	assert.Equal(t, Rect{X: 960, Y: 0, Width: 1280, Height: 720}, Rect{X: 1920, Width: 2560, Height: 1440}.Scaled(2))
	assert.Equal(t, Rect{X: -961, Width: 960, Height: 341}, Rect{X: -1921, Width: 1921, Height: 683}.Scaled(2))
	assert.Equal(t, Rect{X: 5, Width: 7}, Rect{X: 5, Width: 7}.Scaled(1))
}

func TestRectIntersect(t *testing.T) {
	a := Rect{Width: 1920, Height: 1080}
	assert.Equal(t, Rect{Y: 30, Width: 1920, Height: 1050}, a.Intersect(Rect{Y: 30, Width: 3840, Height: 1050}))
	empty := a.Intersect(Rect{X: 1920, Width: 10, Height: 10})
	assert.True(t, empty.Empty())
	assert.True(t, empty.Within(a))
}

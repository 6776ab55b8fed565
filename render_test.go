package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/FyshOS/screens/monitor"
	"github.com/FyshOS/screens/xsettings"
)

func sampleRecords() []*monitor.Record {
	return []*monitor.Record{
		monitor.NewRecord("DP-1", 65, monitor.Attributes{
			Make: "DEL", Model: "DELL U2720Q", Serial: "7KB0T13",
			RefreshMHz: 59997, Scale: 2,
			Physical:  monitor.Rect{Width: 3840, Height: 2160},
			Logical:   monitor.Rect{Width: 1920, Height: 1080},
			Workarea:  monitor.Rect{Width: 1920, Height: 1080},
			Transform: monitor.Transform90,
			Primary:   true,
		}),
		monitor.NewRecord("HDMI-1", 66, monitor.Attributes{
			Physical: monitor.Rect{X: 3840, Width: 1280, Height: 1024},
			Logical:  monitor.Rect{X: 1920, Width: 1280, Height: 1024},
			Workarea: monitor.Rect{X: 1920, Width: 1280, Height: 1024},
		}),
	}
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderYAML(&buf, sampleRecords()))

	var got []map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "DP-1", got[0]["connector"])
	assert.Equal(t, "DEL DELL U2720Q 7KB0T13 (DP-1)", got[0]["description"])
	assert.Equal(t, "90", got[0]["transform"])
	assert.Equal(t, "unknown", got[0]["subpixel"])
	assert.Equal(t, true, got[0]["primary"])
	assert.Equal(t, 59997, got[0]["refresh_mhz"])
	assert.Equal(t, map[string]interface{}{"x": 0, "y": 0, "width": 1920, "height": 1080}, got[0]["workarea"])
	assert.Equal(t, "HDMI-1", got[1]["description"])
	assert.NotContains(t, got[1], "make")
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderTable(&buf, sampleRecords()))
	out := buf.String()
	assert.Contains(t, out, "DP-1")
	assert.Contains(t, out, "HDMI-1")
	assert.Contains(t, out, "3840x2160+0+0")
	assert.Contains(t, out, "60.00 Hz")
	assert.Contains(t, out, "CONNECTOR")
}

func TestFormatScale(t *testing.T) {
	assert.Equal(t, "2", formatScale(monitor.Attributes{Scale: 2, FractionalScale: 2}))
	assert.Equal(t, "2 (1.50)", formatScale(monitor.Attributes{Scale: 2, FractionalScale: 1.5}))
	assert.Equal(t, "-", formatRefresh(0))
}

func TestRenderSettings(t *testing.T) {
	var buf bytes.Buffer
	err := renderSettings(&buf, &xsettings.Settings{
		Serial: 4,
		Entries: []xsettings.Setting{
			{Name: "Net/ThemeName", Type: xsettings.TypeString, String: "Adwaita"},
			{Name: "Gdk/WindowScalingFactor", Type: xsettings.TypeInteger, Int: 2},
		},
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "serial 4")
	assert.Contains(t, out, "Adwaita")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Gdk/")), bytes.Index(buf.Bytes(), []byte("Net/")))
}

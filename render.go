package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/FyshOS/screens/monitor"
	"github.com/FyshOS/screens/xsettings"
)

const (
	colorHeader = "#bd93f9"
	colorBorder = "#6272a4"
	colorMark   = "#50fa7b"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorHeader)).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	markStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMark)).Padding(0, 1)
)

// monitorView is the yaml shape of one record.
type monitorView struct {
	Connector          string `yaml:"connector"`
	Identifier         string `yaml:"identifier"`
	Native             uint32 `yaml:"native"`
	monitor.Attributes `yaml:",inline"`
}

func renderYAML(w io.Writer, records []*monitor.Record) error {
	views := make([]monitorView, 0, len(records))
	for _, r := range records {
		views = append(views, monitorView{
			Connector:  r.Connector(),
			Identifier: r.Identifier(),
			Native:     r.Native(),
			Attributes: r.Attributes(),
		})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(views); err != nil {
		return err
	}
	return enc.Close()
}

func renderTable(w io.Writer, records []*monitor.Record) error {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(colorBorder))).
		Headers("", "CONNECTOR", "DESCRIPTION", "PHYSICAL", "LOGICAL", "WORKAREA", "SCALE", "REFRESH", "TRANSFORM").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return markStyle
			}
			return cellStyle
		})

	for _, r := range records {
		a := r.Attributes()
		mark := ""
		if a.Primary {
			mark = "*"
		}
		t.Row(mark, r.Connector(), a.Description,
			a.Physical.String(), a.Logical.String(), a.Workarea.String(),
			formatScale(a), formatRefresh(a.RefreshMHz), a.Transform.String())
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func formatScale(a monitor.Attributes) string {
	if a.FractionalScale != float64(a.Scale) {
		return fmt.Sprintf("%d (%.2f)", a.Scale, a.FractionalScale)
	}
	return strconv.Itoa(a.Scale)
}

func formatRefresh(mhz uint32) string {
	if mhz == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f Hz", float64(mhz)/1000)
}

func renderSettings(w io.Writer, settings *xsettings.Settings) error {
	entries := append([]xsettings.Setting(nil), settings.Entries...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(colorBorder))).
		Headers("NAME", "TYPE", "VALUE").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, s := range entries {
		t.Row(s.Name, s.Type.String(), fmt.Sprint(s.Value()))
	}

	_, err := fmt.Fprintf(w, "serial %d\n%s\n", settings.Serial, t.Render())
	return err
}

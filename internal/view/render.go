// Package view draws the upload workflow in a terminal.
package view

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/eqviz-cli/internal/parser"
	"github.com/KaramelBytes/eqviz-cli/internal/result"
	"github.com/KaramelBytes/eqviz-cli/internal/upload"
	"github.com/KaramelBytes/eqviz-cli/internal/utils"
	"github.com/charmbracelet/lipgloss"
)

const (
	chartTitle   = "Equipment Distribution"
	summaryTitle = "Data Summary"
	defaultWidth = 72
	minBarWidth  = 10
)

var (
	accent    = lipgloss.Color("#2E8B57")
	muted     = lipgloss.Color("#8CA1AE")
	errorText = lipgloss.Color("#FF6B6B")
)

// Model is everything the view needs for one frame.
type Model struct {
	State upload.State
	// Preview is nil when nothing is selected or the file is not readable as CSV.
	Preview       *parser.Preview
	Shape         result.Shape
	SubmitEnabled bool
	ReportURL     string
}

// BuildModel derives the presentation data from a controller snapshot.
func BuildModel(s upload.State, reportURL string) Model {
	var preview *parser.Preview
	if s.File != nil {
		if p, err := parser.PreviewCSV(s.File.Name, s.File.Content); err == nil && len(p.Columns) > 0 {
			preview = p
		}
	}
	return Model{
		State:         s,
		Preview:       preview,
		Shape:         result.ShapeOf(s.Result),
		SubmitEnabled: SubmitEnabled(s),
		ReportURL:     reportURL,
	}
}

// SubmitEnabled is false while loading or when nothing is selected.
func SubmitEnabled(s upload.State) bool {
	return s.File != nil && s.Phase != upload.Loading
}

// Renderer writes frames. The zero value renders plain text at the default width.
type Renderer struct {
	Width int
	Color bool

	header, sub, status, errBox, title, bar, label, value lipgloss.Style
}

// NewRenderer returns a renderer; color enables lipgloss styling.
func NewRenderer(width int, color bool) *Renderer {
	r := &Renderer{Width: width, Color: color}
	if width <= 0 {
		r.Width = defaultWidth
	}
	if color {
		r.header = lipgloss.NewStyle().Bold(true).Foreground(accent)
		r.sub = lipgloss.NewStyle().Foreground(muted)
		r.status = lipgloss.NewStyle().Italic(true).Foreground(muted)
		r.errBox = lipgloss.NewStyle().Foreground(errorText).Border(lipgloss.RoundedBorder()).BorderForeground(errorText).Padding(0, 1)
		r.title = lipgloss.NewStyle().Bold(true).Underline(true)
		r.bar = lipgloss.NewStyle().Foreground(accent)
		r.label = lipgloss.NewStyle().Foreground(muted)
		r.value = lipgloss.NewStyle().Bold(true)
	}
	return r
}

func (r *Renderer) width() int {
	if r.Width <= 0 {
		return defaultWidth
	}
	return r.Width
}

// Render writes one full frame for m.
func (r *Renderer) Render(w io.Writer, m Model) error {
	var sb strings.Builder
	sb.WriteString(r.header.Render("Analytics Dashboard"))
	sb.WriteString("\n")
	sb.WriteString(r.sub.Render("Upload your CSV data to visualize equipment stats."))
	sb.WriteString("\n\n")

	r.writeUploadCard(&sb, m)

	if m.State.Phase == upload.Succeeded {
		switch m.Shape.Kind {
		case result.ShapeDistribution:
			r.writeChart(&sb, m.Shape.Series)
			r.writeSummary(&sb, m.Shape.Rows, m.Shape.Text)
		case result.ShapeScalarOnly:
			r.writeSummary(&sb, m.Shape.Rows, "")
		case result.ShapeRaw:
			r.writeSummary(&sb, nil, m.Shape.Text)
		}
		if m.ReportURL != "" {
			sb.WriteString("\n")
			sb.WriteString(r.title.Render("Report"))
			sb.WriteString("\n")
			sb.WriteString(fmt.Sprintf("Download PDF Report: %s\n", m.ReportURL))
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func (r *Renderer) writeUploadCard(sb *strings.Builder, m Model) {
	if f := m.State.File; f != nil {
		if p := m.Preview; p != nil {
			sb.WriteString(fmt.Sprintf("Selected: %s (%s, %d rows, %d columns)\n", f.Name, utils.HumanBytes(f.Size()), p.Rows, len(p.Columns)))
		} else {
			sb.WriteString(fmt.Sprintf("Selected: %s (%s)\n", f.Name, utils.HumanBytes(f.Size())))
		}
	} else {
		sb.WriteString("No file selected. Choose a CSV file to upload.\n")
	}
	switch {
	case m.State.Phase == upload.Loading:
		sb.WriteString(r.status.Render("Processing..."))
	case m.SubmitEnabled:
		sb.WriteString("[ Analyze Data ]")
	default:
		sb.WriteString(r.sub.Render("[ Analyze Data ] (disabled)"))
	}
	sb.WriteString("\n")
	if m.State.Phase == upload.Failed && m.State.Err != nil {
		sb.WriteString(r.errBox.Render("✗ " + m.State.ErrorMessage()))
		sb.WriteString("\n")
	}
}

func (r *Renderer) writeChart(sb *strings.Builder, series result.ChartSeries) {
	sb.WriteString("\n")
	sb.WriteString(r.title.Render(chartTitle))
	sb.WriteString("\n")
	if len(series) == 0 {
		sb.WriteString(r.sub.Render("(no categories)"))
		sb.WriteString("\n")
		return
	}
	labelW, countW := 0, 0
	counts := make([]string, len(series))
	for i, p := range series {
		labelW = max(labelW, lipgloss.Width(p.Label))
		counts[i] = formatCount(p.Count)
		countW = max(countW, len(counts[i]))
	}
	barW := max(r.width()-labelW-countW-3, minBarWidth)
	peak := series.Max()
	for i, p := range series {
		n := 0
		if peak > 0 && p.Count > 0 {
			n = int(math.Round(p.Count / peak * float64(barW)))
		}
		sb.WriteString(padRight(p.Label, labelW))
		sb.WriteString(" ")
		sb.WriteString(r.bar.Render(strings.Repeat("█", n)))
		sb.WriteString(strings.Repeat(" ", barW-n+1))
		sb.WriteString(counts[i])
		sb.WriteString("\n")
	}
}

func (r *Renderer) writeSummary(sb *strings.Builder, rows []result.Row, dump string) {
	sb.WriteString("\n")
	sb.WriteString(r.title.Render(summaryTitle))
	sb.WriteString("\n")
	labelW := 0
	for _, row := range rows {
		labelW = max(labelW, lipgloss.Width(row.Label))
	}
	for _, row := range rows {
		sb.WriteString(r.label.Render(padRight(row.Label, labelW)))
		sb.WriteString("  ")
		sb.WriteString(r.value.Render(row.Value))
		sb.WriteString("\n")
	}
	if dump != "" {
		sb.WriteString(dump)
		sb.WriteString("\n")
	}
}

func padRight(s string, w int) string {
	if d := w - lipgloss.Width(s); d > 0 {
		return s + strings.Repeat(" ", d)
	}
	return s
}

func formatCount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

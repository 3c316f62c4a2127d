// SPDX-License-Identifier: MIT

// Package tui renders the terminal front ends: the live equalizer and tuner
// display, and the input device picker.
package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sandcore/frequatuner/internal/analysis"
	"github.com/sandcore/frequatuner/internal/config"
	"github.com/sandcore/frequatuner/internal/pitch"
)

// FrameSource is the engine as seen by the display.
type FrameSource interface {
	Latest() *analysis.Frame
	Mode() analysis.Mode
	ToggleMode()
}

// needleHalfWidth is the number of cells between the centre of the cents
// scale and either end, which sit at ±50 cents.
const needleHalfWidth = 20

var (
	modeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#5A56E0")).
			Padding(0, 1)

	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	inTune     = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065")).Bold(true)
	outOfTune  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E0565A")).Bold(true)
	noteStyle  = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Width(9).Align(lipgloss.Right)
)

type displayKeys struct {
	Toggle key.Binding
	Quit   key.Binding
}

var defaultKeys = displayKeys{
	Toggle: key.NewBinding(key.WithKeys("m", " ", "space"), key.WithHelp("m/space", "switch mode")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

type tickMsg time.Time

// Display is the bubbletea model of the live view. It polls the source at
// the configured frame interval and repaints only when a new frame arrived.
type Display struct {
	source   FrameSource
	rows     int
	columns  int
	interval time.Duration
	edges    []float64
	keys     displayKeys

	frame   *analysis.Frame
	lastSeq uint64
	note    *pitch.Note // last note painted, held while the tuner is silent
}

// NewDisplay creates the model. edges, when given, are the bin edges of
// the equalizer including both guard intervals and label each row with
// its lower frequency. Edges carried by a frame take precedence.
func NewDisplay(source FrameSource, cfg config.DisplayConfig, edges []float64) Display {
	interval := cfg.FrameInterval
	if interval <= 0 {
		interval = config.DefaultFrameInterval
	}
	if len(edges) != cfg.Rows+3 {
		edges = nil
	}
	return Display{
		source:   source,
		rows:     cfg.Rows,
		columns:  cfg.Columns,
		interval: interval,
		edges:    edges,
		keys:     defaultKeys,
	}
}

func (d Display) tick() tea.Cmd {
	return tea.Tick(d.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the frame timer.
func (d Display) Init() tea.Cmd { return d.tick() }

// Update handles key presses and frame ticks.
func (d Display) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, d.keys.Quit):
			return d, tea.Quit
		case key.Matches(msg, d.keys.Toggle):
			d.source.ToggleMode()
		}

	case tickMsg:
		d.poll()
		return d, d.tick()
	}
	return d, nil
}

func (d *Display) poll() {
	f := d.source.Latest()
	if f == nil || f.Seq == d.lastSeq {
		return
	}
	d.frame = f
	d.lastSeq = f.Seq
	if f.Note != nil {
		d.note = f.Note
	}
}

// View renders the current frame.
func (d Display) View() string {
	mode := d.source.Mode()

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("frequatuner"))
	sb.WriteString(" ")
	sb.WriteString(modeStyle.Render(mode.String()))
	sb.WriteString("\n\n")

	if mode == analysis.Tuner {
		sb.WriteString(d.renderTuner())
	} else {
		sb.WriteString(d.renderEqualizer())
	}

	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render(d.helpLine()))
	return sb.String()
}

func (d Display) helpLine() string {
	parts := make([]string, 0, 2)
	for _, b := range []key.Binding{d.keys.Toggle, d.keys.Quit} {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

func (d Display) renderEqualizer() string {
	var bins []float64
	edges := d.edges
	if d.frame != nil && d.frame.Mode == analysis.Equalizer {
		bins = d.frame.Bins
		if len(d.frame.Edges) == d.rows+3 {
			edges = d.frame.Edges
		}
	}

	var sb strings.Builder
	for row := range d.rows {
		v := 0.0
		if row < len(bins) {
			v = bins[row]
		}
		if edges != nil {
			sb.WriteString(labelStyle.Render(formatHz(edges[row+1])))
			sb.WriteString(" ")
		}
		n := BarCells(v, d.columns)
		sb.WriteString(barStyle.Render(strings.Repeat("█", n)))
		sb.WriteString(dimStyle.Render(strings.Repeat("·", d.columns-n)))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (d Display) renderTuner() string {
	if d.note == nil {
		return dimStyle.Render("listening...") + "\n"
	}
	n := d.note

	style := outOfTune
	if n.InTune {
		style = inTune
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "   %s   %s   %s\n\n",
		dimStyle.Render(n.PreviousName),
		style.Render(fmt.Sprintf("%s%d", n.Name, n.Octave)),
		dimStyle.Render(n.NextName),
	)
	fmt.Fprintf(&sb, "%s  %s\n",
		noteStyle.Render(fmt.Sprintf("%7.2f Hz", n.ActualFrequency)),
		dimStyle.Render(fmt.Sprintf("target %.2f Hz", n.NoteFrequency)),
	)
	fmt.Fprintf(&sb, "%s\n", style.Render(fmt.Sprintf("%+6.1f cents", n.CentsOffset)))
	sb.WriteString(Needle(n.CentsOffset))
	sb.WriteString("\n")
	return sb.String()
}

// BarCells returns the number of lit cells for a normalized magnitude,
// rounding up so any energy lights at least one cell.
func BarCells(v float64, columns int) int {
	if columns <= 0 || !(v > 0) {
		return 0
	}
	return min(columns, int(math.Ceil(v*float64(columns))))
}

// Needle draws a cents scale from -50 to +50 with a marker at cents.
func Needle(cents float64) string {
	width := 2*needleHalfWidth + 1
	pos := needleHalfWidth + int(math.Round(cents/50*needleHalfWidth))
	pos = max(0, min(width-1, pos))

	scale := []rune(strings.Repeat("-", width))
	scale[needleHalfWidth] = '|'
	scale[pos] = '▲'
	return "-50 " + string(scale) + " +50"
}

func formatHz(f float64) string {
	if f >= 1000 {
		return fmt.Sprintf("%.1fk", f/1000)
	}
	return fmt.Sprintf("%.0f", f)
}

// Run shows the display until the user quits or ctx is cancelled.
func Run(ctx context.Context, source FrameSource, cfg config.DisplayConfig, edges []float64) error {
	p := tea.NewProgram(NewDisplay(source, cfg, edges), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

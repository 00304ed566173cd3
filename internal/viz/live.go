package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"go.uber.org/zap"

	"github.com/san-kum/crosstrack/internal/control"
	"github.com/san-kum/crosstrack/internal/dynamo"
	"github.com/san-kum/crosstrack/internal/trace"
	"github.com/san-kum/crosstrack/internal/vmath"
)

const (
	width           = 72
	height          = 24
	historyCapacity = 600
	chartWidth      = 40
	targetStep      = 10.0
	frameRate       = 60
)

// World is the plane the canvas shows, in loop units.
var World = vmath.V2(1080, 720)

var gainNames = []string{"kp", "ki", "kd"}

type TickMsg time.Time

// Model is the live host: it owns the loop between ticks and moves the
// target from the keyboard.
type Model struct {
	loop     *dynamo.Loop
	rec      *trace.Recorder
	target   vmath.Vec2
	dt       float64
	last     dynamo.Snapshot
	canvas   *Canvas
	trail    []vmath.Vec2
	running  bool
	axis     dynamo.Axis
	selected int
	theme    Theme
	st       styles
	status   string
	showHelp bool
	log      *zap.Logger
}

// NewModel wraps loop for interactive use. The target starts on the array.
func NewModel(loop *dynamo.Loop, dt float64, log *zap.Logger) Model {
	if log == nil {
		log = zap.NewNop()
	}
	if dt <= 0 {
		dt = 1.0 / frameRate
	}
	return Model{
		loop:    loop,
		rec:     trace.NewRecorder(historyCapacity),
		target:  loop.Position(),
		dt:      dt,
		last:    loop.Snapshot(),
		canvas:  NewCanvas(width, height),
		trail:   make([]vmath.Vec2, 0, 100),
		running: true,
		axis:    dynamo.AxisBoth,
		theme:   ThemePaper,
		st:      newStyles(ThemePaper),
		log:     log,
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the loop.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case ".":
			if !m.running {
				m.step()
			}
		case "r":
			m.reset()
		case "tab":
			m.selected = (m.selected + 1) % len(gainNames)
		case "a":
			m.axis = (m.axis + 1) % 3
		case "+", "=":
			m.nudge(control.GainStep)
		case "-", "_":
			m.nudge(-control.GainStep)
		case "up", "k":
			m.moveTarget(0, -targetStep)
		case "down", "j":
			m.moveTarget(0, targetStep)
		case "left", "h":
			m.moveTarget(-targetStep, 0)
		case "right", "l":
			m.moveTarget(targetStep, 0)
		case "t":
			m.theme = NextTheme(m.theme)
			m.st = newStyles(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) moveTarget(dx, dy float64) {
	p := m.target.Add(vmath.V2(dx, dy))
	p.X = math.Max(0, math.Min(World.X, p.X))
	p.Y = math.Max(0, math.Min(World.Y, p.Y))
	m.target = p
}

func (m *Model) nudge(delta float64) {
	name := gainNames[m.selected]
	if err := m.loop.Nudge(m.axis, name, delta); err != nil {
		m.status = err.Error()
		return
	}
	m.status = ""
}

func (m *Model) step() {
	snap, err := m.loop.Tick(m.target, m.dt)
	if err != nil {
		m.status = err.Error()
		m.log.Warn("tick rejected", zap.Error(err))
		return
	}
	if !snap.IsValid() {
		m.running = false
		m.status = "array diverged, press r to reset"
		m.log.Warn("loop diverged", zap.Int("tick", snap.Tick))
	}
	m.last = snap
	m.rec.OnTick(snap)

	m.trail = append(m.trail, snap.Position)
	if len(m.trail) > 100 {
		m.trail = m.trail[1:]
	}
}

// reset returns the array to its start. Gains and target are kept.
func (m *Model) reset() {
	m.loop.Reset()
	m.rec.Reset()
	m.trail = m.trail[:0]
	m.last = m.loop.Snapshot()
	m.status = ""
	m.running = true
}

// Snapshot is the state after the latest tick.
func (m Model) Snapshot() dynamo.Snapshot { return m.last }
func (m Model) Target() vmath.Vec2         { return m.target }
func (m Model) Running() bool              { return m.running }

// project maps loop coordinates to canvas sub-pixels.
func (m *Model) project(p vmath.Vec2) (int, int) {
	cw, ch := m.canvas.PixelSize()
	x := p.X / World.X * float64(cw-1)
	y := p.Y / World.Y * float64(ch-1)
	return int(math.Round(x)), int(math.Round(y))
}

func (m *Model) draw() {
	m.canvas.Clear()

	for _, p := range m.trail {
		x, y := m.project(p)
		m.canvas.Set(x, y)
	}

	cx, cy := m.project(m.loop.Position())
	for _, s := range m.loop.Sensors() {
		sx, sy := m.project(s)
		m.canvas.DrawLine(cx, cy, sx, sy)
		m.canvas.DrawCircle(sx, sy, 1)
	}

	tx, ty := m.project(m.target)
	m.canvas.DrawCircle(tx, ty, 3)
	m.canvas.DrawLine(tx-5, ty, tx+5, ty)
	m.canvas.DrawLine(tx, ty-5, tx, ty+5)
}

func (m Model) chart(name, caption string) string {
	s, err := m.rec.Series(name)
	if err != nil || s.Len() < 2 {
		return ""
	}
	lo, hi := s.Bounds()
	graph := asciigraph.Plot(s.Tail(chartWidth*4),
		asciigraph.Height(4),
		asciigraph.Width(chartWidth),
		asciigraph.Caption(fmt.Sprintf("%s  [%.0f, %.0f]", caption, lo, hi)))
	return m.st.graph.Render(graph)
}

// View renders the canvas and the stats panel.
func (m Model) View() string {
	m.draw()
	canvasView := m.st.canvas.Render(m.canvas.String())

	snap := m.last
	var s strings.Builder
	s.WriteString(m.st.header.Render("CROSSTRACK") + "\n")
	if m.running {
		s.WriteString("RUNNING\n")
	} else {
		s.WriteString(m.st.paused.Render("PAUSED") + "\n")
	}

	row := func(label, value string) {
		s.WriteString(m.st.label.Render(label) + m.st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", snap.Time))
	row("Position", snap.Position.String())
	row("Target", m.target.String())
	row("Distance", fmt.Sprintf("%.2f", m.target.Sub(snap.Position).Len()))
	row("Error", fmt.Sprintf("x %+.3f  y %+.3f", snap.ErrorX, snap.ErrorY))
	row("Output", fmt.Sprintf("x %+.3f  y %+.3f", snap.OutputX, snap.OutputY))
	row("Scale", fmt.Sprintf("%.2f", snap.Scale))
	row("Readings", fmt.Sprintf("%.3f %.3f %.3f %.3f", snap.Readings[0], snap.Readings[1], snap.Readings[2], snap.Readings[3]))

	s.WriteString(fmt.Sprintf("\nGAINS (axis: %s)\n", m.axis))
	gx, gy := m.loop.Gains(dynamo.AxisX), m.loop.Gains(dynamo.AxisY)
	vals := [][2]float64{{gx.P, gy.P}, {gx.I, gy.I}, {gx.D, gy.D}}
	for i, name := range gainNames {
		line := fmt.Sprintf("%-4s x %.2f  y %.2f", name, vals[i][0], vals[i][1])
		if i == m.selected {
			s.WriteString(m.st.active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + m.st.label.UnsetWidth().Render(line) + "\n")
		}
	}

	if m.status != "" {
		s.WriteString("\n" + m.st.warn.Render(m.status) + "\n")
	}
	s.WriteString(m.st.help.Render("SP:Pause R:Reset Q:Quit ?:Help\nTab:Gain A:Axis +/-:Tune hjkl:Target"))

	statsView := m.st.stats.Render(s.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)

	charts := lipgloss.JoinHorizontal(lipgloss.Top, m.chart(trace.ErrorX, "error x"), "  ", m.chart(trace.ErrorY, "error y"))
	view := lipgloss.JoinVertical(lipgloss.Left, mainView, charts)

	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Arrows/hjkl - Move target           ║
║  Tab         - Select kp / ki / kd   ║
║  A           - Select axis           ║
║  + / -       - Nudge gain by 0.01    ║
║  Space       - Pause/Resume          ║
║  .           - Step while paused     ║
║  R           - Reset array           ║
║  T           - Cycle themes          ║
║  Q           - Quit                  ║
║  ?           - Toggle this help      ║
╚══════════════════════════════════════╝
` + "\n\n" + view
	}
	return view
}

// Run starts the interactive program and blocks until it exits.
func Run(loop *dynamo.Loop, dt float64, log *zap.Logger) error {
	p := tea.NewProgram(NewModel(loop, dt, log), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

package viz

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/crosstrack/internal/dynamo"
	"github.com/san-kum/crosstrack/internal/vmath"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	loop, err := dynamo.NewLoop(dynamo.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return NewModel(loop, 1.0/60, nil)
}

func press(m Model, keys ...tea.KeyMsg) Model {
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(Model)
	}
	return m
}

func runeKey(r rune) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}} }

func TestCanvas(t *testing.T) {
	c := NewCanvas(4, 2)
	if w, h := c.PixelSize(); w != 8 || h != 8 {
		t.Fatalf("pixel size %dx%d", w, h)
	}

	c.Set(3, 5)
	if !c.IsSet(3, 5) || c.IsSet(2, 5) {
		t.Error("Set/IsSet mismatch")
	}
	c.Set(-1, 0)
	c.Set(100, 100)

	c.DrawLine(0, 0, 7, 0)
	for x := 0; x < 8; x++ {
		if !c.IsSet(x, 0) {
			t.Errorf("line pixel %d not set", x)
		}
	}

	c.Clear()
	c.DrawCircle(4, 4, 3)
	if c.IsSet(4, 4) {
		t.Error("circle should not fill its center")
	}
	if !c.IsSet(4, 2) && !c.IsSet(4, 1) {
		t.Error("circle top not drawn")
	}
	if lines := strings.Count(c.String(), "\n"); lines != 2 {
		t.Errorf("rows = %d, want 2", lines)
	}
}

func TestNextTheme(t *testing.T) {
	th := ThemePaper
	for range Themes {
		th = NextTheme(th)
	}
	if th.Name != ThemePaper.Name {
		t.Errorf("cycling all themes should wrap, got %s", th.Name)
	}
	if GetTheme("missing").Name != ThemePaper.Name {
		t.Error("unknown theme should fall back to paper")
	}
}

func TestModelTicks(t *testing.T) {
	m := newTestModel(t)
	if m.Target() != vmath.V2(540, 360) {
		t.Fatalf("target should start on the array, got %v", m.Target())
	}

	m = press(m, runeKey('l'), runeKey('j'))
	if m.Target() != vmath.V2(550, 370) {
		t.Errorf("target = %v, want (550, 370)", m.Target())
	}

	next, cmd := m.Update(TickMsg{})
	m = next.(Model)
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
	if m.Snapshot().Tick != 1 {
		t.Errorf("tick = %d, want 1", m.Snapshot().Tick)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeySpace})
	if m.Running() {
		t.Fatal("space should pause")
	}
	next, _ = m.Update(TickMsg{})
	m = next.(Model)
	if m.Snapshot().Tick != 1 {
		t.Error("paused model should not tick")
	}

	m = press(m, runeKey('.'))
	if m.Snapshot().Tick != 2 {
		t.Error("'.' should single step while paused")
	}

	m = press(m, runeKey('r'))
	if m.Snapshot().Tick != 0 || !m.Running() {
		t.Error("reset should restart from tick 0")
	}
	if m.Target() != vmath.V2(550, 370) {
		t.Error("reset should keep the target")
	}
}

func TestModelTuning(t *testing.T) {
	m := newTestModel(t)

	m = press(m, runeKey('+'))
	if p := m.loop.Gains(dynamo.AxisX).P; p < 0.2599 || p > 0.2601 {
		t.Errorf("kp x = %v, want 0.26", p)
	}
	if p := m.loop.Gains(dynamo.AxisY).P; p < 0.2599 || p > 0.2601 {
		t.Errorf("kp y = %v, want 0.26", p)
	}

	// select ki on the x axis only
	m = press(m, tea.KeyMsg{Type: tea.KeyTab}, runeKey('a'))
	for i := 0; i < 20; i++ {
		m = press(m, runeKey('-'))
	}
	if m.loop.Gains(dynamo.AxisX).I != 0 {
		t.Errorf("ki x = %v, want clamped to 0", m.loop.Gains(dynamo.AxisX).I)
	}
	if m.loop.Gains(dynamo.AxisY).I != 0.1 {
		t.Errorf("ki y = %v, want untouched 0.1", m.loop.Gains(dynamo.AxisY).I)
	}
}

func TestModelView(t *testing.T) {
	m := newTestModel(t)
	m = press(m, runeKey('l'))
	for i := 0; i < 5; i++ {
		next, _ := m.Update(TickMsg{})
		m = next.(Model)
	}

	view := m.View()
	for _, want := range []string{"CROSSTRACK", "kp", "ki", "kd", "RUNNING"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m = press(m, runeKey('?'))
	if !strings.Contains(m.View(), "KEYBOARD SHORTCUTS") {
		t.Error("help overlay not shown")
	}
}

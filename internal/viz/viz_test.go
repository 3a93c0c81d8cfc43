package viz

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang/geo/r3"

	"github.com/san-kum/reach/internal/dynamo"
	"github.com/san-kum/reach/internal/reach"
)

func TestCanvasSetAndBounds(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	c.Set(-1, 0)
	c.Set(4, 0)

	if !c.IsSet(0, 0) || !c.IsSet(3, 3) {
		t.Error("expected set pixels to be lit")
	}
	if c.IsSet(1, 0) {
		t.Error("expected (1,0) to be dark")
	}
	if got := c.Grid[0][0]; got != blank|0x1 {
		t.Errorf("expected %U, got %U", rune(blank|0x1), got)
	}
	if got := c.Grid[0][1]; got != blank|0x80 {
		t.Errorf("expected %U, got %U", rune(blank|0x80), got)
	}

	c.Clear()
	if c.IsSet(0, 0) {
		t.Error("expected clear canvas")
	}
}

func TestDrawLineEndpoints(t *testing.T) {
	c := NewCanvas(10, 5)
	c.DrawLine(1, 2, 17, 13)
	if !c.IsSet(1, 2) || !c.IsSet(17, 13) {
		t.Error("expected both endpoints lit")
	}
}

func TestViewportProject(t *testing.T) {
	c := NewCanvas(10, 5) // 20 x 20 sub-pixels
	v := Viewport{MinX: -1, MaxX: 1, MinY: -1, MaxY: 1}

	tests := []struct {
		x, y   float64
		px, py int
	}{
		{-1, 1, 0, 0},
		{1, -1, 19, 19},
		{0, 0, 10, 10},
	}
	for _, tt := range tests {
		px, py := v.Project(c, tt.x, tt.y)
		if px != tt.px || py != tt.py {
			t.Errorf("Project(%v, %v) = (%d, %d), want (%d, %d)", tt.x, tt.y, px, py, tt.px, tt.py)
		}
	}
}

func scene() Scene {
	return Scene{
		Base:    r3.Vector{Z: 0.1},
		Radius:  0.37,
		Targets: []r3.Vector{{X: 0.27, Z: 0.35}, {X: -0.27, Z: 0.35}},
		Dwell:   200,
	}
}

func TestModelObservesSteps(t *testing.T) {
	m := NewModel(scene(), nil)
	var tm tea.Model = m
	for i := 0; i < 5; i++ {
		tm, _ = tm.Update(StepMsg(dynamo.Sample{
			Iteration: i,
			EE:        r3.Vector{Z: 0.47},
			Target:    r3.Vector{X: 0.27, Z: 0.35},
			Distance:  0.3 - float64(i)*0.01,
			U:         dynamo.Control{1},
			AtTarget:  i,
		}))
	}
	tm, _ = tm.Update(TickMsg{})

	got := tm.(Model)
	if len(got.distances) != 5 {
		t.Fatalf("expected 5 distances, got %d", len(got.distances))
	}
	view := got.View()
	for _, want := range []string{"REACH", "RUNNING", "Distance", "1 / 2"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModelDone(t *testing.T) {
	m := NewModel(scene(), nil)
	tm, _ := m.Update(DoneMsg{State: &reach.LoopState{Done: true}})
	got := tm.(Model)
	if !strings.Contains(got.View(), "ALL TARGETS REACHED") {
		t.Error("expected completion banner")
	}
	st, err := got.Result()
	if err != nil || st == nil || !st.Done {
		t.Errorf("unexpected result %v, %v", st, err)
	}
}

func TestModelQuitCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewModel(scene(), cancel)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if ctx.Err() == nil {
		t.Error("expected run context to be canceled")
	}
}

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func TestModelRecordsGIF(t *testing.T) {
	var buf bytes.Buffer
	m := NewModel(scene(), nil).WithGIF(func() (io.WriteCloser, error) {
		return nopCloser{&buf}, nil
	})
	g := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("g")}

	var tm tea.Model = m
	tm, _ = tm.Update(g)
	tm, _ = tm.Update(TickMsg{})
	tm, _ = tm.Update(TickMsg{})
	tm.Update(g)

	if !bytes.HasPrefix(buf.Bytes(), []byte("GIF8")) {
		t.Error("expected a GIF to be written")
	}
}

func TestThemeCycle(t *testing.T) {
	th := Themes[0]
	for range Themes {
		th = NextTheme(th)
	}
	if th.Name != Themes[0].Name {
		t.Errorf("expected to wrap to %s, got %s", Themes[0].Name, th.Name)
	}
	if GetTheme("nope").Name != Themes[0].Name {
		t.Error("expected fallback theme")
	}
}

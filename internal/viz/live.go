package viz

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/golang/geo/r3"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/reach/internal/dynamo"
	"github.com/san-kum/reach/internal/reach"
)

const (
	canvasWidth     = 48
	canvasHeight    = 24
	historyCapacity = 600
	trailCapacity   = 400
)

type TickMsg time.Time

// StepMsg carries one driver iteration into the program.
type StepMsg dynamo.Sample

// DoneMsg is sent once the driver returns.
type DoneMsg struct {
	State *reach.LoopState
	Err   error
}

// Scene is the fixed geometry drawn under the moving arm.
type Scene struct {
	Base    r3.Vector
	Radius  float64
	Targets []r3.Vector // normalized
	Dwell   int
}

// Model is the live view of a single run.
type Model struct {
	scene  Scene
	view   Viewport
	canvas *Canvas
	theme  Theme
	st     styles
	cancel context.CancelFunc

	last      dynamo.Sample
	have      bool
	trail     []r3.Vector
	distances []float64

	frozen   bool
	showHelp bool
	done     bool
	result   *reach.LoopState
	err      error

	recording bool
	frames    []*image.Paletted
	gifOut    func() (io.WriteCloser, error)
}

// NewModel builds the view. cancel stops the driver when the user quits.
func NewModel(scene Scene, cancel context.CancelFunc) Model {
	margin := scene.Radius * 0.2
	half := scene.Radius + margin
	return Model{
		scene: scene,
		view: Viewport{
			MinX: scene.Base.X - half, MaxX: scene.Base.X + half,
			MinY: scene.Base.Z - half, MaxY: scene.Base.Z + half,
		},
		canvas:    NewCanvas(canvasWidth, canvasHeight),
		theme:     Themes[0],
		st:        newStyles(Themes[0]),
		cancel:    cancel,
		trail:     make([]r3.Vector, 0, trailCapacity),
		distances: make([]float64, 0, historyCapacity),
	}
}

// WithTheme selects a named theme.
func (m Model) WithTheme(name string) Model {
	m.theme = GetTheme(name)
	m.st = newStyles(m.theme)
	return m
}

// WithGIF sets where G recordings are written.
func (m Model) WithGIF(open func() (io.WriteCloser, error)) Model {
	m.gifOut = open
	return m
}

func (m Model) Canvas() *Canvas { return m.canvas }

func (m Model) Result() (*reach.LoopState, error) { return m.result, m.err }

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case " ":
			m.frozen = !m.frozen
		case "t":
			m.theme = NextTheme(m.theme)
			m.st = newStyles(m.theme)
		case "g":
			if m.recording {
				m.saveGIF()
				m.recording = false
				m.frames = nil
			} else {
				m.recording = true
				m.frames = make([]*image.Paletted, 0)
			}
		case "?":
			m.showHelp = !m.showHelp
		}
	case StepMsg:
		m.observe(dynamo.Sample(msg))
	case DoneMsg:
		m.done = true
		m.result = msg.State
		m.err = msg.Err
		m.draw()
	case TickMsg:
		if !m.frozen {
			m.draw()
			if m.recording {
				m.captureFrame()
			}
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) observe(s dynamo.Sample) {
	m.last = s
	m.have = true
	m.trail = append(m.trail, s.EE)
	if len(m.trail) > trailCapacity {
		m.trail = m.trail[1:]
	}
	m.distances = append(m.distances, s.Distance)
	if len(m.distances) > historyCapacity {
		m.distances = m.distances[1:]
	}
}

func (m *Model) draw() {
	c, v := m.canvas, m.view
	c.Clear()

	bx, by := v.Project(c, m.scene.Base.X, m.scene.Base.Z)
	c.DrawCircle(bx, by, v.Scale(c, m.scene.Radius), 72)
	c.DrawDisc(bx, by, 1)

	for _, tgt := range m.scene.Targets {
		tx, ty := v.Project(c, tgt.X, tgt.Z)
		c.DrawCircle(tx, ty, 3, 12)
	}
	for _, p := range m.trail {
		c.Set(v.Project(c, p.X, p.Z))
	}
	if !m.have {
		return
	}

	tx, ty := v.Project(c, m.last.Target.X, m.last.Target.Z)
	c.DrawDisc(tx, ty, 2)
	ex, ey := v.Project(c, m.last.EE.X, m.last.EE.Z)
	c.DrawLine(bx, by, ex, ey)
	c.DrawDisc(ex, ey, 1)
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(m.st.header.Render("REACH") + "\n")

	switch {
	case m.done && m.err != nil:
		s.WriteString(m.st.bad.Render("STOPPED: "+m.err.Error()) + "\n\n")
	case m.done:
		s.WriteString(m.st.ok.Render("ALL TARGETS REACHED") + "\n\n")
	case m.frozen:
		s.WriteString(m.st.warn.Render("FROZEN") + "\n\n")
	default:
		s.WriteString(m.st.ok.Render("RUNNING") + "\n\n")
	}

	if len(m.distances) > 1 {
		chart := asciigraph.Plot(m.distances, asciigraph.Height(5), asciigraph.Width(32), asciigraph.Caption("distance to target"))
		s.WriteString(m.st.graph.Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(m.st.label.Render(label) + m.st.value.Render(value) + "\n")
	}
	idx := m.last.TargetIndex
	if m.done && m.err == nil {
		idx = len(m.scene.Targets)
	}
	row("Target", fmt.Sprintf("%d / %d", min(idx+1, len(m.scene.Targets)), len(m.scene.Targets)))
	row("Time", fmt.Sprintf("%.3fs", m.last.Time))
	row("Iteration", fmt.Sprintf("%d", m.last.Iteration))
	row("Distance", fmt.Sprintf("%.4f", m.last.Distance))
	row("EE", fmt.Sprintf("[%.3f %.3f %.3f]", m.last.EE.X, m.last.EE.Y, m.last.EE.Z))
	if len(m.last.U) > 0 {
		row("Force", fmt.Sprintf("%.3f", m.last.U[0]))
	}
	dwell := 0.0
	if m.scene.Dwell > 0 {
		dwell = float64(m.last.AtTarget) / float64(m.scene.Dwell)
	}
	row("Dwell", ProgressBar(dwell, 20, m.theme)+fmt.Sprintf(" %d", m.last.AtTarget))
	if m.recording {
		row("Recording", m.st.bad.Render(fmt.Sprintf("%d frames", len(m.frames))))
	}

	s.WriteString(m.st.help.Render("SP:Freeze T:Theme G:Record ?:Help Q:Quit"))

	canvasView := m.st.canvas.Render(m.st.arm.Render(m.canvas.String()))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, m.st.stats.Render(s.String()))
	if m.showHelp {
		help := "Space  freeze the display\nT      cycle themes (" + strings.Join(ThemeNames(), ", ") + ")\nG      start/stop GIF recording\n?      toggle this help\nQ      stop the run and quit"
		return BoxWithTitle("KEYS", help, 44, m.theme) + "\n\n" + mainView
	}
	return mainView
}

// Forward returns an observer that sends every n-th sample to p. It
// blocks while the program is busy.
func Forward(p *tea.Program, every int) dynamo.Observer {
	if every < 1 {
		every = 1
	}
	return dynamo.ObserverFunc(func(s dynamo.Sample) {
		if s.Iteration%every == 0 {
			p.Send(StepMsg(s))
		}
	})
}

// Pace returns an observer that sleeps so simulated time advances at
// speed times wall-clock time. speed <= 0 disables pacing.
func Pace(speed float64) dynamo.Observer {
	var start time.Time
	return dynamo.ObserverFunc(func(s dynamo.Sample) {
		if speed <= 0 {
			return
		}
		if start.IsZero() {
			start = time.Now()
		}
		want := time.Duration(s.Time / speed * float64(time.Second))
		if ahead := want - time.Since(start); ahead > time.Millisecond {
			time.Sleep(ahead)
		}
	})
}

func (m *Model) captureFrame() {
	charW, charH := 8, 16
	img := image.NewPaletted(image.Rect(0, 0, m.canvas.Width*charW, m.canvas.Height*charH), color.Palette{color.Black, color.White})
	dotW, dotH := charW/2, charH/4
	for y := 0; y < m.canvas.Height*4; y++ {
		for x := 0; x < m.canvas.Width*2; x++ {
			if !m.canvas.IsSet(x, y) {
				continue
			}
			for py := 0; py < dotH; py++ {
				for px := 0; px < dotW; px++ {
					img.SetColorIndex(x*dotW+px, y*dotH+py, 1)
				}
			}
		}
	}
	m.frames = append(m.frames, img)
}

func (m *Model) saveGIF() {
	if len(m.frames) == 0 || m.gifOut == nil {
		return
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range m.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 3)
	}
	f, err := m.gifOut()
	if err != nil {
		return
	}
	defer f.Close()
	gif.EncodeAll(f, &anim)
}

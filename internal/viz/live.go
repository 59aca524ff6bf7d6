package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/powerchain/internal/powerchain"
	"github.com/san-kum/powerchain/internal/sim"
)

const (
	width           = 60
	height          = 20
	historyCapacity = 600
	speedStep       = 5.0
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model steps a network at 60 Hz and draws it.
type Model struct {
	net        *powerchain.Network
	name       string
	controller sim.Controller
	observers  []sim.Observer

	t, dt    float64
	step     int
	running  bool
	selected int
	showHelp bool

	canvas  *Canvas
	history map[string][]float64
}

type ModelOption func(*Model)

// WithController runs ctrl before every tick.
func WithController(ctrl sim.Controller) ModelOption {
	return func(m *Model) {
		if ctrl != nil {
			m.controller = ctrl
		}
	}
}

// WithObserver is notified after every tick.
func WithObserver(o sim.Observer) ModelOption {
	return func(m *Model) { m.observers = append(m.observers, o) }
}

func NewModel(net *powerchain.Network, name string, dt float64, opts ...ModelOption) Model {
	net.Activate()
	m := Model{
		net:        net,
		name:       name,
		controller: sim.NewNone(),
		dt:         dt,
		running:    true,
		canvas:     NewCanvas(width, height),
		history:    make(map[string][]float64),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.record()
	return m
}

func (m Model) Init() tea.Cmd { return tick() }

// Update handles input events and steps the network.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "tab":
			m.cycle(1)
		case "shift+tab":
			m.cycle(-1)
		case "up", "k":
			m.adjustSpeed(speedStep)
		case "down", "j":
			m.adjustSpeed(-speedStep)
		case "e":
			if n := m.Selected(); n != nil {
				n.Enable()
			}
		case "u":
			if n := m.Selected(); n != nil {
				n.RequestUpdate()
			}
		case "l":
			if n := m.Selected(); n != nil {
				n.SetLiveUpdate(!n.LiveUpdate())
			}
		case "n":
			if !m.running {
				m.advance()
			}
		case "t":
			NextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

// Selected is the part under the cursor, or nil for an empty network.
func (m Model) Selected() *powerchain.Node {
	nodes := m.net.Nodes()
	if len(nodes) == 0 {
		return nil
	}
	return nodes[m.selected%len(nodes)]
}

func (m *Model) cycle(dir int) {
	n := m.net.Len()
	if n == 0 {
		return
	}
	m.selected = ((m.selected+dir)%n + n) % n
}

func (m *Model) adjustSpeed(delta float64) {
	n := m.Selected()
	if n == nil || !n.IsMotor() {
		return
	}
	n.SetSpeed(n.Speed() + delta)
	n.RequestUpdate()
}

func (m *Model) advance() {
	m.controller.Apply(m.net, m.step, m.t)
	m.net.Tick(m.dt)
	m.t += m.dt
	for _, o := range m.observers {
		o.OnTick(m.net, m.step, m.t)
	}
	m.step++
	m.record()
}

func (m *Model) record() {
	for _, n := range m.net.Nodes() {
		h := append(m.history[n.Name()], n.RPM())
		if len(h) > historyCapacity {
			h = h[1:]
		}
		m.history[n.Name()] = h
	}
}

// View renders the TUI interface.
func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(fg(CurrentTheme.Gear).Render(m.canvas.String()))

	var s strings.Builder
	s.WriteString(titleStyle().Render(strings.ToUpper(m.name)) + "\n")
	status := fg(CurrentTheme.Running).Bold(true).Render("RUNNING")
	if !m.running {
		status = fg(CurrentTheme.Paused).Bold(true).Render("PAUSED")
	}
	stats := m.net.Stats()
	s.WriteString(fmt.Sprintf("%s  t=%.2fs  passes=%d  conflicts=%d\n\n", status, m.t, stats.Passes, stats.Conflicts))

	peak := 1.0
	for _, n := range m.net.Nodes() {
		peak = math.Max(peak, math.Abs(n.RPM()))
	}

	sel := m.Selected()
	for _, n := range m.net.Nodes() {
		marker := "  "
		name := fg(kindColor(n)).Render(fmt.Sprintf("%-10s", n.Name()))
		if n == sel {
			marker = fg(CurrentTheme.Selected).Bold(true).Render("▸ ")
		}
		s.WriteString(fmt.Sprintf("%s%s %-5s %8.2f %s %s\n",
			marker, name, n.Kind().String(), n.RPM(), SpeedBar(n.RPM(), peak, 8), StatusBadge(n)))
	}

	if sel != nil {
		if h := m.history[sel.Name()]; len(h) > 1 {
			chart := asciigraph.Plot(h, asciigraph.Height(5), asciigraph.Width(40), asciigraph.Caption(sel.Name()+" rpm"))
			s.WriteString(graphStyle.Render(fg(CurrentTheme.Graph).Render(chart)) + "\n")
		}
		if sel.IsMotor() {
			s.WriteString(labelStyle.Render("Source") + fmt.Sprintf("%.1f rpm", sel.Speed()) + "\n")
		}
	}

	s.WriteString(helpStyle().Render(Separator(40) + "\nSP:Pause Tab:Select ↑↓:Speed Q:Quit\nE:Enable U:Update L:Live T:Theme ?:Help"))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return helpOverlay + "\n\n" + mainView
	}
	return mainView
}

const helpOverlay = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  N        - Single step when paused  ║
║  Tab      - Select next part         ║
║  Up/K     - Motor speed +5 rpm       ║
║  Down/J   - Motor speed -5 rpm       ║
║  E        - Re-enable selected part  ║
║  U        - One-shot update (motor)  ║
║  L        - Toggle live mode (motor) ║
║  T        - Cycle themes             ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`

type point struct{ x, y int }

func (m *Model) layout() map[*powerchain.Node]point { return layout(m.net, m.canvas) }

// layout places parts in columns by drive depth from the motors.
func layout(net *powerchain.Network, c *Canvas) map[*powerchain.Node]point {
	nodes := net.Nodes()
	depth := make(map[*powerchain.Node]int, len(nodes))

	queue := make([]*powerchain.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.IsMotor() || len(net.Drivers(n)) == 0 {
			depth[n] = 0
			queue = append(queue, n)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, o := range n.Outputs() {
			if _, seen := depth[o]; seen {
				continue
			}
			depth[o] = depth[n] + 1
			queue = append(queue, o)
		}
	}

	columns := make(map[int][]*powerchain.Node)
	maxDepth := 0
	for _, n := range nodes {
		d, ok := depth[n]
		if !ok {
			d = 0
		}
		columns[d] = append(columns[d], n)
		if d > maxDepth {
			maxDepth = d
		}
	}

	cw, ch := c.PixelSize()
	colWidth := cw / (maxDepth + 1)
	pos := make(map[*powerchain.Node]point, len(nodes))
	for d, col := range columns {
		rowHeight := ch / len(col)
		for i, n := range col {
			pos[n] = point{x: d*colWidth + colWidth/2, y: i*rowHeight + rowHeight/2}
		}
	}
	return pos
}

func radiusOf(n *powerchain.Node) int {
	switch n.Kind() {
	case powerchain.KindGear:
		r := 4 + n.Teeth()/4
		if r > 12 {
			r = 12
		}
		return r
	case powerchain.KindWormGear:
		return 5
	default:
		return 3
	}
}

func (m *Model) draw() { Render(m.net, m.canvas) }

// Render draws the current state of net onto c: each part as a circle with
// spokes at its angle, motors ringed and disabled parts crossed out.
func Render(net *powerchain.Network, c *Canvas) {
	c.Clear()
	pos := layout(net, c)

	for _, n := range net.Nodes() {
		from := pos[n]
		for _, o := range n.Outputs() {
			to, ok := pos[o]
			if !ok {
				continue
			}
			drawEdge(c, from, radiusOf(n), to, radiusOf(o))
		}
	}

	for _, n := range net.Nodes() {
		p := pos[n]
		r := radiusOf(n)
		switch n.Kind() {
		case powerchain.KindGear:
			c.DrawCircle(p.x, p.y, r)
			for k := 0; k < 3; k++ {
				c.DrawSpoke(p.x, p.y, r, n.Angle()+float64(k)*120)
			}
		case powerchain.KindWormGear:
			c.DrawCircle(p.x, p.y, r)
			c.DrawSpoke(p.x, p.y, r, n.Angle())
			c.DrawSpoke(p.x, p.y, r, n.Angle()+180)
		default:
			c.DrawCircle(p.x, p.y, r)
			c.DrawSpoke(p.x, p.y, r+2, n.Angle())
		}
		if n.IsMotor() {
			c.DrawCircle(p.x, p.y, r+2)
		}
		if !n.Enabled() {
			c.DrawCross(p.x, p.y, r+1)
		}
	}
}

// drawEdge joins two parts rim to rim.
func drawEdge(c *Canvas, a point, ra int, b point, rb int) {
	dx, dy := float64(b.x-a.x), float64(b.y-a.y)
	dist := math.Hypot(dx, dy)
	if dist <= float64(ra+rb) {
		return
	}
	ux, uy := dx/dist, dy/dist
	x0 := a.x + int(math.Round(ux*float64(ra+1)))
	y0 := a.y + int(math.Round(uy*float64(ra+1)))
	x1 := b.x - int(math.Round(ux*float64(rb+1)))
	y1 := b.y - int(math.Round(uy*float64(rb+1)))
	c.DrawLine(x0, y0, x1, y1)
}

// RunLive starts the live view in the alternate screen.
func RunLive(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

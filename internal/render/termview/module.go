package termview

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/alfredjeanlab/atlasgraph/internal/focus"
	"github.com/alfredjeanlab/atlasgraph/internal/render"
	"github.com/alfredjeanlab/atlasgraph/internal/style"
)

// ErrSurface is returned when the module is asked to draw on a surface it
// does not own.
var ErrSurface = errors.New("termview: unsupported surface")

// Module constructs terminal renderers. The zero value is ready to use.
type Module struct {
	Palette *style.Palette
}

// New implements render.Module.
func (m Module) New(s render.Surface, nodes []focus.NodeRecord, rels []focus.RelRecord) (render.Renderer, error) {
	ts, ok := s.(*Surface)
	if !ok {
		return nil, ErrSurface
	}
	lr := lipgloss.NewRenderer(ts.out)
	if !ts.Color() {
		lr.SetColorProfile(termenv.Ascii)
	}
	r := &Renderer{
		surface: ts,
		styles:  lr,
		palette: m.Palette,
		width:   ts.Size().Width,
	}
	r.set(nodes, rels)
	return r, nil
}

// Renderer draws one adjacency listing per frame: every node followed by its
// outgoing relationships.
type Renderer struct {
	mu        sync.Mutex
	surface   *Surface
	styles    *lipgloss.Renderer
	palette   *style.Palette
	nodes     []focus.NodeRecord
	rels      []focus.RelRecord
	captions  map[string]string
	width     int
	frames    int
	destroyed bool
}

func (r *Renderer) set(nodes []focus.NodeRecord, rels []focus.RelRecord) {
	r.nodes, r.rels = nodes, rels
	r.captions = make(map[string]string, len(nodes))
	for _, n := range nodes {
		r.captions[n.ID] = n.Caption
	}
}

// FitView draws the whole graph at the current width.
func (r *Renderer) FitView() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drawLocked()
}

// Resize picks up the surface width. The next fit redraws.
func (r *Renderer) Resize() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return nil
	}
	r.width = r.surface.Size().Width
	return nil
}

// Update restyles in place and redraws.
func (r *Renderer) Update(nodes []focus.NodeRecord, rels []focus.RelRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set(nodes, rels)
	return r.drawLocked()
}

// Destroy stops all further drawing.
func (r *Renderer) Destroy() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyed = true
	return nil
}

// Frames returns how many frames were drawn.
func (r *Renderer) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

func (r *Renderer) drawLocked() error {
	if r.destroyed {
		return nil
	}
	frame := r.frame()
	if r.surface.tty {
		frame = "\x1b[H" + frame
	}
	if err := r.surface.write(frame); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	r.frames++
	return nil
}

// Frame renders the current listing without writing it.
func (r *Renderer) Frame() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame()
}

func (r *Renderer) frame() string {
	var b strings.Builder
	header := r.styles.NewStyle().Bold(true)
	b.WriteString(r.fit(header.Render(fmt.Sprintf("Nodes (%d) / Edges (%d)", len(r.nodes), len(r.rels)))))
	b.WriteByte('\n')

	outgoing := make(map[string][]focus.RelRecord, len(r.nodes))
	for _, rel := range r.rels {
		outgoing[rel.From] = append(outgoing[rel.From], rel)
	}

	for _, n := range r.nodes {
		b.WriteString(r.fit(r.nodeLine(n)))
		b.WriteByte('\n')
		for _, rel := range outgoing[n.ID] {
			b.WriteString(r.fit(r.relLine(rel)))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (r *Renderer) nodeLine(n focus.NodeRecord) string {
	st := r.styles.NewStyle().Foreground(lipgloss.Color(n.Color))
	marker := "○"
	switch {
	case n.Size >= style.NodeSelectedRadius:
		marker = "◉"
		st = st.Bold(true)
	case n.Size >= style.NodeHoverRadius:
		marker = "●"
	}
	if n.Opacity < 1 {
		st = st.Faint(true)
	}
	if n.Hovered {
		st = st.Underline(true)
	}

	kind := ""
	if len(n.Labels) > 0 {
		kind = r.palette.TypeLabel(n.Labels[0])
	}
	muted := r.styles.NewStyle().Faint(true)
	return st.Render(marker+" "+n.Caption) + " " + muted.Render(kind)
}

func (r *Renderer) relLine(rel focus.RelRecord) string {
	st := r.styles.NewStyle().Foreground(lipgloss.Color(rel.Color))
	if rel.Width >= style.EdgeSelectedWidth {
		st = st.Bold(true)
	}
	if rel.Opacity < 1 {
		st = st.Faint(true)
	}
	target := r.captions[rel.To]
	if target == "" {
		target = rel.To
	}
	return "    " + st.Render("└─ "+rel.Type+" → ") + target
}

// fit truncates a line to the surface width.
func (r *Renderer) fit(line string) string {
	if r.width <= 0 {
		return line
	}
	return r.styles.NewStyle().MaxWidth(r.width).Render(line)
}

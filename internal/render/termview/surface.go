// Package termview renders a focused graph as a styled adjacency listing on
// a terminal.
package termview

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/alfredjeanlab/atlasgraph/internal/render"
)

// ErrNotTerminal is returned by Probe when the output is not a terminal and
// drawing was not forced.
var ErrNotTerminal = errors.New("termview: output is not a terminal")

const (
	defaultWidth  = 80
	defaultHeight = 24
)

// Surface is a render.Surface over an io.Writer. Terminals do not deliver
// pointer events, so registered pointer handlers are only reached through
// Dispatch.
type Surface struct {
	render.Listeners

	mu    sync.Mutex
	out   io.Writer
	fd    int
	tty   bool
	force bool
	size  render.Size
}

// Option configures a Surface.
type Option func(*Surface)

// WithForce draws even when the output is not a terminal.
func WithForce(force bool) Option {
	return func(s *Surface) { s.force = force }
}

// WithSize fixes the initial size instead of querying the terminal.
func WithSize(sz render.Size) Option {
	return func(s *Surface) { s.size = sz }
}

// NewSurface returns a surface writing to out.
func NewSurface(out io.Writer, opts ...Option) *Surface {
	s := &Surface{out: out, fd: -1}
	if f, ok := out.(*os.File); ok {
		s.fd = int(f.Fd())
		s.tty = term.IsTerminal(s.fd)
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.size == (render.Size{}) {
		s.size = s.querySize()
	}
	return s
}

func (s *Surface) querySize() render.Size {
	if s.tty {
		if w, h, err := term.GetSize(s.fd); err == nil && w > 0 {
			return render.Size{Width: w, Height: h}
		}
	}
	return render.Size{Width: defaultWidth, Height: defaultHeight}
}

func (s *Surface) Ready() bool { return s.out != nil }

// Probe succeeds on a terminal, or anywhere when drawing is forced.
func (s *Surface) Probe() error {
	if s.tty || s.force {
		return nil
	}
	return ErrNotTerminal
}

// Clear erases the screen on a terminal. Plain writers keep their content.
func (s *Surface) Clear() {
	if !s.tty {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.out, "\x1b[2J\x1b[H")
}

// Size returns the last known surface size.
func (s *Surface) Size() render.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// SetSize records a new size and notifies resize observers when it changed.
func (s *Surface) SetSize(sz render.Size) {
	s.mu.Lock()
	changed := sz != s.size
	s.size = sz
	s.mu.Unlock()
	if changed {
		s.NotifyResize(sz)
	}
}

// Color reports whether styled output should carry colour.
func (s *Surface) Color() bool { return s.tty }

// Watch tracks terminal size changes until ctx is done.
func (s *Surface) Watch(ctx context.Context) {
	if !s.tty {
		return
	}
	watchResize(ctx, func() { s.SetSize(s.querySize()) })
}

func (s *Surface) write(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.out, frame)
	return err
}

package render

import "sync"

// Listeners is a registry of pointer and resize handlers for Surface
// implementations. Handlers are invoked without the registry lock held, so
// they may register or remove handlers themselves.
type Listeners struct {
	mu      sync.Mutex
	next    int
	pointer map[EventKind]map[int]func(PointerEvent)
	resize  map[int]func(Size)
}

// Listen registers fn for events of kind.
func (l *Listeners) Listen(kind EventKind, fn func(PointerEvent)) (remove func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pointer == nil {
		l.pointer = make(map[EventKind]map[int]func(PointerEvent))
	}
	if l.pointer[kind] == nil {
		l.pointer[kind] = make(map[int]func(PointerEvent))
	}
	l.next++
	id := l.next
	l.pointer[kind][id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.pointer[kind], id)
	}
}

// OnResize registers fn for size changes.
func (l *Listeners) OnResize(fn func(Size)) (stop func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.resize == nil {
		l.resize = make(map[int]func(Size))
	}
	l.next++
	id := l.next
	l.resize[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.resize, id)
	}
}

// Dispatch delivers evt to the handlers registered for its kind and reports
// how many received it.
func (l *Listeners) Dispatch(evt PointerEvent) int {
	l.mu.Lock()
	fns := make([]func(PointerEvent), 0, len(l.pointer[evt.Kind]))
	for _, fn := range l.pointer[evt.Kind] {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn(evt)
	}
	return len(fns)
}

// NotifyResize delivers sz to every resize handler.
func (l *Listeners) NotifyResize(sz Size) {
	l.mu.Lock()
	fns := make([]func(Size), 0, len(l.resize))
	for _, fn := range l.resize {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn(sz)
	}
}

// Count returns the number of registered pointer handlers.
func (l *Listeners) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.pointer {
		n += len(m)
	}
	return n
}

// Observed reports whether any resize handler is registered.
func (l *Listeners) Observed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.resize) > 0
}

//go:build windows

package termview

import "context"

// Windows consoles have no SIGWINCH; the initial size is kept.
func watchResize(context.Context, func()) {}

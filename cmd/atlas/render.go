package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/alfredjeanlab/atlasgraph/internal/explorer"
	"github.com/alfredjeanlab/atlasgraph/internal/model"
	"github.com/alfredjeanlab/atlasgraph/internal/render"
	"github.com/alfredjeanlab/atlasgraph/internal/render/termview"
	"github.com/alfredjeanlab/atlasgraph/internal/style"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const reloadDebounce = 100 * time.Millisecond

var renderCmd = &cobra.Command{
	Use:     "render <file>",
	Short:   "Draw a payload file in the terminal",
	GroupID: "local",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		selectID, _ := cmd.Flags().GetString("select")
		edgeFlag, _ := cmd.Flags().GetString("edge")
		watch, _ := cmd.Flags().GetBool("watch")
		force, _ := cmd.Flags().GetBool("force")
		styleFile, _ := cmd.Flags().GetString("style")

		if selectID != "" && edgeFlag != "" {
			return fmt.Errorf("--select and --edge are mutually exclusive")
		}
		var focusEdge *model.EdgeKey
		if edgeFlag != "" {
			key, ok := model.ParseEdgeKey(edgeFlag)
			if !ok {
				return fmt.Errorf("invalid --edge %q (want SOURCE,TARGET,TYPE)", edgeFlag)
			}
			focusEdge = &key
		}

		palette := style.DefaultPalette()
		if styleFile != "" {
			var err error
			if palette, err = style.LoadPalette(styleFile); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		r := newTermRender(ctx, out, palette, force)
		defer r.close()

		show := func() error {
			v, err := readPayload(path)
			if err != nil {
				return err
			}
			return r.show(v, selectID, focusEdge)
		}
		if err := show(); err != nil {
			return err
		}
		if !watch {
			return nil
		}
		return watchFile(ctx, path, func() {
			if err := show(); err != nil {
				warn("reload failed: %v", err)
			}
		})
	},
}

func init() {
	renderCmd.Flags().String("select", "", "select the node with this id")
	renderCmd.Flags().String("edge", "", "focus the edge SOURCE,TARGET,TYPE")
	renderCmd.Flags().Bool("watch", false, "redraw when the file changes")
	renderCmd.Flags().Bool("force", false, "draw even when output is not a terminal")
	renderCmd.Flags().String("style", os.Getenv("ATLAS_STYLE_FILE"), "TOML palette overrides")
}

// deferredSpawn queues renderer acquisitions until flush, so that only the
// last cycle of a load followed by a selection is drawn.
type deferredSpawn struct {
	mu  sync.Mutex
	fns []func()
}

func (d *deferredSpawn) spawn(fn func()) {
	d.mu.Lock()
	d.fns = append(d.fns, fn)
	d.mu.Unlock()
}

func (d *deferredSpawn) flush() {
	for {
		d.mu.Lock()
		if len(d.fns) == 0 {
			d.mu.Unlock()
			return
		}
		fn := d.fns[0]
		d.fns = d.fns[1:]
		d.mu.Unlock()
		fn()
	}
}

// termRender drives one explorer on a terminal surface.
type termRender struct {
	out      io.Writer
	explorer *explorer.Explorer
	pending  *deferredSpawn
	hinted   bool
}

func newTermRender(ctx context.Context, out io.Writer, palette *style.Palette, force bool) *termRender {
	target := out
	if jsonOutput {
		// The snapshot is the output; frames are still built.
		target, force = io.Discard, true
	}
	surface := termview.NewSurface(target, termview.WithForce(force))
	go surface.Watch(ctx)

	pending := &deferredSpawn{}
	e := explorer.New(ctx, explorer.Options{
		Surface:  surface,
		Loader:   render.Static(termview.Module{Palette: palette}),
		Palette:  palette,
		Spawn:    pending.spawn,
		Schedule: func(fn func()) { fn() },
	})
	return &termRender{out: out, explorer: e, pending: pending}
}

// show loads payload, applies the requested focus and writes the panel below
// the drawn graph.
func (t *termRender) show(payload any, selectID string, edge *model.EdgeKey) error {
	t.explorer.Load(payload)
	switch {
	case selectID != "":
		if !t.explorer.SelectNode(selectID) {
			t.pending.flush()
			return fmt.Errorf("no node %q in payload", selectID)
		}
	case edge != nil:
		if !t.explorer.SelectEdgeByKey(*edge) {
			t.pending.flush()
			return fmt.Errorf("no edge %s in payload", edge)
		}
	}
	t.pending.flush()

	snap := t.explorer.Snapshot()
	if jsonOutput {
		return printJSON(t.out, snap)
	}
	if snap.ErrorKind == render.KindCapability && !t.hinted {
		t.hinted = true
		warn("output is not a terminal; use --force to draw anyway")
	}
	fmt.Fprintln(t.out)
	return printSnapshot(t.out, &snap)
}

func (t *termRender) close() { t.explorer.Close() }

// watchFile calls reload after path changes, debounced, until ctx is done.
// The parent directory is watched so editors that replace the file are seen.
func watchFile(ctx context.Context, path string, reload func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	debounce := time.NewTimer(reloadDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(reloadDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				debounce.Reset(reloadDebounce)
				continue
			}
			warn("watch error: %v", err)
		case <-debounce.C:
			reload()
		}
	}
}

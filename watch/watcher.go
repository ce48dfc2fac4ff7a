// Package watch triggers rebuilds when project style sources change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"kfcss/config"
)

// Watcher observes configured directories recursively. Changes matching
// configured patterns are coalesced: after debounce window passes without
// further changes single rebuild is requested, at most one rebuild runs at
// a time and changes arriving while it runs cause exactly one more.
type Watcher struct {
	base     string
	roots    []string
	outDir   string
	patterns []string
	debounce time.Duration
	log      *zap.Logger
}

func New(conf *config.WatchConfig, layout *config.Layout, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	for _, p := range conf.Patterns {
		if err := checkPattern(p); err != nil {
			return nil, fmt.Errorf("bad watch pattern %q: %w", p, err)
		}
	}

	w := &Watcher{
		base:     layout.Abs("."),
		outDir:   layout.OutDir,
		patterns: conf.Patterns,
		debounce: conf.Debounce,
		log:      log.Named("watch"),
	}
	paths := conf.Paths
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		w.roots = append(w.roots, layout.Abs(p))
	}
	return w, nil
}

// Matches reports whether change of the named file should trigger rebuild.
func (w *Watcher) Matches(name string) bool {
	if w.inOutDir(name) {
		return false
	}
	rel, err := filepath.Rel(w.base, name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return false
	}
	for _, p := range w.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// checkPattern validates every path component of the pattern, matching
// alone reports malformed components only when it reaches them.
func checkPattern(pattern string) error {
	for comp := range strings.SplitSeq(pattern, "/") {
		if comp == "**" {
			continue
		}
		if _, err := path.Match(comp, ""); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) inOutDir(name string) bool {
	if len(w.outDir) == 0 {
		return false
	}
	rel, err := filepath.Rel(w.outDir, name)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Run watches until context is done calling rebuild for every coalesced
// batch of changes. Rebuild errors are logged and watching continues.
func (w *Watcher) Run(ctx context.Context, rebuild func(context.Context) error) (err error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create file watcher: %w", err)
	}
	defer func() {
		err = multierr.Append(err, fsw.Close())
	}()

	var watched int
	for _, root := range w.roots {
		n, err := w.addTree(fsw, root)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				w.log.Warn("Watch path does not exist, ignoring", zap.String("path", root))
				continue
			}
			return err
		}
		watched += n
	}
	if watched == 0 {
		return fmt.Errorf("nothing to watch in %s", strings.Join(w.roots, ", "))
	}
	w.log.Info("Watching for changes", zap.Strings("paths", w.roots), zap.Strings("patterns", w.patterns), zap.Int("directories", watched))

	trigger := make(chan struct{}, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range trigger {
			if ctx.Err() != nil {
				return
			}
			start := time.Now()
			if err := rebuild(ctx); err != nil {
				w.log.Error("Rebuild failed", zap.Error(err))
				continue
			}
			w.log.Debug("Rebuild completed", zap.Duration("elapsed", time.Since(start)))
		}
	}()
	defer func() {
		close(trigger)
		wg.Wait()
	}()

	request := func() {
		select {
		case trigger <- struct{}{}:
		default:
			// rebuild already pending
		}
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			request()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("File watcher error", zap.Error(err))
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.handle(fsw, ev) {
				continue
			}
			if w.debounce <= 0 {
				request()
				continue
			}
			timer.Reset(w.debounce)
		}
	}
}

// handle processes single event and reports whether it is relevant.
func (w *Watcher) handle(fsw *fsnotify.Watcher, ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod || w.inOutDir(ev.Name) {
		return false
	}
	if ev.Has(fsnotify.Create) {
		if n, err := w.addTree(fsw, ev.Name); err == nil && n > 0 {
			w.log.Debug("Watching new directory", zap.String("path", ev.Name), zap.Int("directories", n))
			// files may have been created before watch was added
			return true
		}
	}
	if !w.Matches(ev.Name) {
		return false
	}
	w.log.Debug("Change detected", zap.String("path", ev.Name), zap.Stringer("op", ev.Op))
	return true
}

// addTree adds root and all directories under it, output directory
// excluded. Returns number of directories added, zero when root is a file.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) (int, error) {
	var n int
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.inOutDir(p) {
			return filepath.SkipDir
		}
		if err := fsw.Add(p); err != nil {
			return fmt.Errorf("unable to watch '%s': %w", p, err)
		}
		n++
		return nil
	})
	return n, err
}

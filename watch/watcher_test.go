package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"kfcss/config"
)

func testLayout(t *testing.T) *config.Layout {
	t.Helper()
	root := t.TempDir()
	for _, d := range []string{"src/components", "dist"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0755); err != nil {
			t.Fatal(err)
		}
	}
	return &config.Layout{
		Root:           root,
		BaseDir:        ".",
		Entry:          filepath.Join(root, "src", "main.scss"),
		OutDir:         filepath.Join(root, "dist"),
		BasePath:       filepath.Join(root, "dist", "kf.css"),
		ResponsivePath: filepath.Join(root, "dist", "kf-responsive.css"),
	}
}

func testConfig(debounce time.Duration) *config.WatchConfig {
	return &config.WatchConfig{
		Paths:    []string{"."},
		Patterns: []string{"**/*.scss", "**/*.css"},
		Debounce: debounce,
	}
}

func TestMatches(t *testing.T) {
	l := testLayout(t)
	w, err := New(testConfig(0), l, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		want bool
	}{
		{"src/main.scss", true},
		{"src/components/_button.scss", true},
		{"theme.css", true},
		{"src/notes.txt", false},
		{"src/main.scss~", false},
		{"dist/kf.css", false},
		{"dist/kf-responsive.css", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := w.Matches(filepath.Join(l.Root, filepath.FromSlash(tt.path))); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}

	if w.Matches(filepath.Join(filepath.Dir(l.Root), "elsewhere.scss")) {
		t.Error("Matches() accepted file outside of base directory")
	}
}

func TestNewBadPattern(t *testing.T) {
	conf := testConfig(0)
	for _, p := range []string{"[unterminated", "src/**/[bad"} {
		conf.Patterns = []string{p}
		if _, err := New(conf, testLayout(t), nil); err == nil {
			t.Errorf("New(%q) expected error for bad pattern", p)
		}
	}
}

type counter struct {
	n     atomic.Int32
	calls chan struct{}
}

func newCounter() *counter {
	return &counter{calls: make(chan struct{}, 64)}
}

func (c *counter) rebuild(context.Context) error {
	c.n.Add(1)
	c.calls <- struct{}{}
	return nil
}

func (c *counter) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.calls:
	case <-time.After(5 * time.Second):
		t.Fatal("rebuild was not triggered")
	}
}

// settle drops rebuilds caused by the same burst of events.
func (c *counter) settle() {
	for {
		select {
		case <-c.calls:
		case <-time.After(100 * time.Millisecond):
			return
		}
	}
}

func (c *counter) none(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case <-c.calls:
		t.Fatal("unexpected rebuild")
	case <-time.After(d):
	}
}

func startWatcher(t *testing.T, l *config.Layout, conf *config.WatchConfig, rebuild func(context.Context) error) {
	t.Helper()
	w, err := New(conf, l, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, rebuild) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Run() did not return after cancellation")
		}
	})
	// let watcher register directories
	time.Sleep(100 * time.Millisecond)
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRunTriggers(t *testing.T) {
	l := testLayout(t)
	c := newCounter()
	startWatcher(t, l, testConfig(20*time.Millisecond), c.rebuild)

	write(t, filepath.Join(l.Root, "src", "main.scss"), ".a { x: 1; }")
	c.wait(t)
	c.settle()

	// outputs and unrelated files are ignored
	write(t, filepath.Join(l.Root, "dist", "kf-responsive.css"), "generated")
	write(t, filepath.Join(l.Root, "src", "notes.txt"), "text")
	c.none(t, 300*time.Millisecond)

	// directories created later are watched too
	nested := filepath.Join(l.Root, "src", "components", "forms")
	if err := os.Mkdir(nested, 0755); err != nil {
		t.Fatal(err)
	}
	c.wait(t)
	c.settle()
	write(t, filepath.Join(nested, "_input.scss"), ".b { y: 2; }")
	c.wait(t)
}

func TestRunCoalesces(t *testing.T) {
	l := testLayout(t)
	c := newCounter()
	startWatcher(t, l, testConfig(300*time.Millisecond), c.rebuild)

	for i := range 10 {
		write(t, filepath.Join(l.Root, "src", "main.scss"), ".a { x: "+string(rune('0'+i))+"; }")
		time.Sleep(5 * time.Millisecond)
	}
	c.wait(t)
	c.none(t, 600*time.Millisecond)
	if n := c.n.Load(); n != 1 {
		t.Errorf("rebuilds = %d, want 1", n)
	}
}

func TestRunSingleRebuildInFlight(t *testing.T) {
	l := testLayout(t)

	var running, maxRunning atomic.Int32
	calls := make(chan struct{}, 64)
	rebuild := func(context.Context) error {
		n := running.Add(1)
		for {
			m := maxRunning.Load()
			if n <= m || maxRunning.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(200 * time.Millisecond)
		running.Add(-1)
		calls <- struct{}{}
		return nil
	}
	startWatcher(t, l, testConfig(0), rebuild)

	for i := range 5 {
		write(t, filepath.Join(l.Root, "src", "main.scss"), string(rune('a'+i)))
		time.Sleep(30 * time.Millisecond)
	}

	deadline := time.After(5 * time.Second)
	var got int
	for got < 2 {
		select {
		case <-calls:
			got++
		case <-deadline:
			t.Fatalf("got %d rebuilds, want at least 2", got)
		}
	}
	if m := maxRunning.Load(); m != 1 {
		t.Errorf("concurrent rebuilds = %d, want 1", m)
	}
}

func TestRunNothingToWatch(t *testing.T) {
	l := testLayout(t)
	conf := testConfig(0)
	conf.Paths = []string{"missing"}
	w, err := New(conf, l, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Run(context.Background(), func(context.Context) error { return nil }); err == nil {
		t.Fatal("Run() expected error when no path exists")
	}
}

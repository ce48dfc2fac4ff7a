// Package build drives the pipeline: compile style sources, expand result
// into responsive stylesheet and store both.
package build

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kfcss/config"
	"kfcss/css"
	"kfcss/utils/debug"
)

// Result describes single pipeline run.
type Result struct {
	ID             string // Unique build identifier
	BasePath       string // Where compiled base stylesheet was written, empty if not written
	ResponsivePath string // Where responsive stylesheet was written
	Output         []byte // Responsive stylesheet
	Breakpoints    []css.Breakpoint
	Counts         []int // Expanded rules per breakpoint
	Rules          []css.Rule
	Skipped        []css.Skipped
	Elapsed        time.Duration
}

// Builder runs full pipeline for the project. It is safe to call Build
// concurrently, writes of the outputs are serialized and the last one wins.
type Builder struct {
	compiler Compiler
	layout   *config.Layout
	bps      []css.Breakpoint
	surveyor *css.Surveyor
	rpt      *config.Report
	log      *zap.Logger

	mu sync.Mutex
}

func NewBuilder(compiler Compiler, layout *config.Layout, bps []css.Breakpoint, rpt *config.Report, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{
		compiler: compiler,
		layout:   layout,
		bps:      bps,
		surveyor: css.NewSurveyor(log),
		rpt:      rpt,
		log:      log,
	}
}

// Build compiles entry point, writes base stylesheet and its responsive
// variant. Nothing is written unless both are ready.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()

	base, err := b.compiler.Compile(ctx, b.layout.Entry)
	if err != nil {
		return nil, fmt.Errorf("unable to compile '%s': %w", b.layout.Entry, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := generate(base, b.bps, b.surveyor, b.layout.Entry)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.layout.BasePath != b.layout.Entry {
		if err := writeFile(b.layout.BasePath, base); err != nil {
			return nil, err
		}
		res.BasePath = b.layout.BasePath
	}
	if err := writeFile(b.layout.ResponsivePath, res.Output); err != nil {
		return nil, err
	}
	res.ResponsivePath = b.layout.ResponsivePath
	res.Elapsed = time.Since(start)

	b.report(res)
	b.log.Debug("Build completed", zap.String("id", res.ID), zap.Int("bytes", len(res.Output)), zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

func (b *Builder) report(res *Result) {
	if b.rpt == nil {
		return
	}
	b.rpt.StoreData("builds/"+res.ID+"/responsive.css", res.Output)
	b.rpt.StoreData("builds/"+res.ID+"/build.txt", dumpResult(res, b.layout.Entry))
}

// Mirror expands existing stylesheet without compilation.
func Mirror(input, output string, bps []css.Breakpoint, rpt *config.Report, log *zap.Logger) (*Result, error) {
	start := time.Now()
	if log == nil {
		log = zap.NewNop()
	}

	base, err := readInput(input)
	if err != nil {
		return nil, err
	}
	if err := rpt.StoreCopy("input.css", input); err != nil {
		log.Debug("Unable to store input in report", zap.Error(err))
	}

	res := generate(base, bps, css.NewSurveyor(log), input)
	if err := writeFile(output, res.Output); err != nil {
		return nil, err
	}
	res.ResponsivePath = output
	res.Elapsed = time.Since(start)

	rpt.StoreData("build.txt", dumpResult(res, input))
	return res, nil
}

func generate(base []byte, bps []css.Breakpoint, surveyor *css.Surveyor, source string) *Result {
	g := css.Expand(base, bps)
	return &Result{
		ID:          uuid.NewString(),
		Output:      g.Bytes(),
		Breakpoints: bps,
		Counts:      g.Counts(),
		Rules:       g.Rules,
		Skipped:     surveyor.Survey(base, source),
	}
}

// dumpResult describes build for the debug report.
func dumpResult(res *Result, source string) []byte {
	tw := debug.NewTreeWriter()
	tw.Line(0, "build %s", res.ID)
	tw.Field(1, "source", source)
	tw.Field(1, "destination", res.ResponsivePath)
	tw.Line(1, "breakpoints: %d", len(res.Breakpoints))
	for i, bp := range res.Breakpoints {
		tw.Line(2, "%s: %d rules", bp, res.Counts[i])
	}
	tw.Line(1, "rules: %d", len(res.Rules))
	for _, r := range res.Rules {
		tw.Line(2, "%d %s", r.Line, r.Selector)
		tw.Field(3, "body", r.Body)
	}
	tw.Line(1, "skipped: %d", len(res.Skipped))
	for _, sk := range res.Skipped {
		tw.Field(2, string(sk.Kind), sk.Text)
	}
	return tw.Bytes()
}

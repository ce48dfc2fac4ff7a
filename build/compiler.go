package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"
	"go.uber.org/zap"

	"kfcss/config"
)

// ErrInputNotFound is returned when source stylesheet or style entry point
// does not exist.
var ErrInputNotFound = errors.New("input file not found")

// Compiler turns style entry point into flat stylesheet text.
type Compiler interface {
	Compile(ctx context.Context, entry string) ([]byte, error)
}

// NewCompiler selects compiler according to configuration: without external
// command entry point is expected to be CSS already.
func NewCompiler(conf *config.CompilerConfig, layout *config.Layout, log *zap.Logger) (Compiler, error) {
	if len(conf.Command) == 0 {
		return FileCompiler{}, nil
	}
	return NewCommandCompiler(conf, layout.OutDir, log)
}

// FileCompiler reads entry point as is.
type FileCompiler struct{}

func (FileCompiler) Compile(ctx context.Context, entry string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return readInput(entry)
}

// CommandCompiler runs external compiler and takes its standard output.
type CommandCompiler struct {
	command string
	args    []*template.Template
	outDir  string
	timeout time.Duration
	log     *zap.Logger
}

// argValues are available to compiler argument templates.
type argValues struct {
	Entry  string
	OutDir string
}

func NewCommandCompiler(conf *config.CompilerConfig, outDir string, log *zap.Logger) (*CommandCompiler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &CommandCompiler{
		command: conf.Command,
		outDir:  outDir,
		timeout: conf.Timeout,
		log:     log.Named("compiler"),
	}
	for i, arg := range conf.Args {
		tmpl, err := template.New(fmt.Sprintf("arg%d", i)).
			Delims(config.CompilerArgsLeftDelim, config.CompilerArgsRightDelim).
			Funcs(sprig.FuncMap()).
			Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("bad compiler argument %d (%q): %w", i, arg, err)
		}
		c.args = append(c.args, tmpl)
	}
	return c, nil
}

// Args expands argument templates for the entry point.
func (c *CommandCompiler) Args(entry string) ([]string, error) {
	values := argValues{Entry: entry, OutDir: c.outDir}
	args := make([]string, 0, len(c.args))
	for _, tmpl := range c.args {
		var buf strings.Builder
		if err := tmpl.Execute(&buf, values); err != nil {
			return nil, fmt.Errorf("unable to expand compiler argument %s: %w", tmpl.Name(), err)
		}
		args = append(args, buf.String())
	}
	return args, nil
}

func (c *CommandCompiler) Compile(ctx context.Context, entry string) ([]byte, error) {
	if _, err := os.Stat(entry); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, entry)
		}
		return nil, err
	}

	args, err := c.Args(entry)
	if err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.command, args...)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	c.log.Debug("Compiling", zap.String("command", c.command), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); len(msg) > 0 {
			return nil, fmt.Errorf("style compiler failed: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("style compiler failed: %w", err)
	}
	if stderr.Len() > 0 {
		c.log.Warn("Style compiler reported", zap.String("stderr", strings.TrimSpace(stderr.String())))
	}
	return stdout.Bytes(), nil
}

func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("unable to read input: %w", err)
	}
	return data, nil
}

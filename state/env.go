// Package state defines shared program state.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"

	"kfcss/config"
	"kfcss/css"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place. It is filled
// once before any command runs and is read-only afterwards.
type LocalEnv struct {
	Cfg    *config.Config
	Rpt    *config.Report
	Log    *zap.Logger
	Layout *config.Layout

	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &LocalEnv{start: time.Now()})
}

// Breakpoints returns configured breakpoints or defaults when configuration
// is not loaded.
func (e *LocalEnv) Breakpoints() []css.Breakpoint {
	if e.Cfg == nil {
		return css.DefaultBreakpoints()
	}
	return e.Cfg.BreakpointList()
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}

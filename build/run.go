package build

import (
	"context"
	"path/filepath"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"kfcss/state"
)

// RunMirror expands existing stylesheet: "mirror [INPUT [OUTPUT]]".
func RunMirror(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("mirror")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		src = env.Cfg.Mirror.Input
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}
	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		dst = env.Cfg.Mirror.Output
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many arguments", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	log.Info("Reading CSS", zap.String("source", src))
	res, err := Mirror(src, dst, env.Breakpoints(), env.Rpt, log)
	if err != nil {
		return err
	}
	logResult(log, res)
	return nil
}

// Run performs single full build of the project.
func Run(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("build")

	compiler, err := NewCompiler(&env.Cfg.Compiler, env.Layout, log)
	if err != nil {
		return err
	}
	if cmd.Args().Len() > 0 {
		log.Warn("Malformed command line, unexpected arguments", zap.Strings("ignoring", cmd.Args().Slice()))
	}

	log.Info("Processing starting", zap.String("entry", env.Layout.Entry), zap.String("destination", env.Layout.OutDir))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	res, err := NewBuilder(compiler, env.Layout, env.Breakpoints(), env.Rpt, log).Build(ctx)
	if err != nil {
		return err
	}
	logResult(log, res)
	return nil
}

func logResult(log *zap.Logger, res *Result) {
	for i, bp := range res.Breakpoints {
		log.Info("Included classes", zap.String("prefix", bp.Prefix+":"), zap.String("min-width", bp.MinWidth), zap.Int("count", res.Counts[i]))
	}
	for _, s := range res.Skipped {
		log.Debug("Not expanded", zap.String("kind", string(s.Kind)), zap.String("text", s.Text))
	}
	if res.BasePath != "" {
		log.Info("Wrote base stylesheet", zap.String("destination", res.BasePath))
	}
	log.Info("Wrote responsive variants", zap.String("destination", res.ResponsivePath), zap.Duration("elapsed", res.Elapsed))
}

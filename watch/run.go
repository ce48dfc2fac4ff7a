package watch

import (
	"context"
	"path/filepath"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kfcss/build"
	"kfcss/livereload"
	"kfcss/state"
)

// Run builds project once and keeps rebuilding it on changes, live reload
// clients are notified about every outcome.
func Run(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("watch")

	serverConf := env.Cfg.Server
	if listen := cmd.String("listen"); len(listen) > 0 {
		serverConf.Listen = listen
	}

	compiler, err := build.NewCompiler(&env.Cfg.Compiler, env.Layout, log)
	if err != nil {
		return err
	}
	builder := build.NewBuilder(compiler, env.Layout, env.Breakpoints(), env.Rpt, log)

	watcher, err := New(&env.Cfg.Watch, env.Layout, log)
	if err != nil {
		return err
	}

	var srv *livereload.Server
	if !cmd.Bool("no-server") {
		if srv, err = livereload.NewServer(&serverConf, filepath.Base(env.Layout.ResponsivePath), log); err != nil {
			return err
		}
	}

	rebuild := func(ctx context.Context) error {
		res, err := builder.Build(ctx)
		if err != nil {
			if srv != nil {
				srv.PublishError(err)
			}
			return err
		}
		log.Info("Rebuilt", zap.String("id", res.ID), zap.Ints("counts", res.Counts), zap.Duration("elapsed", res.Elapsed))
		if srv != nil {
			srv.Publish(res.ID, res.Output)
		}
		return nil
	}

	// Initial build failure is not fatal, sources may be fixed while we watch.
	if err := rebuild(ctx); err != nil {
		log.Error("Initial build failed", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	if srv != nil {
		g.Go(func() error {
			return srv.ListenAndServe(gctx)
		})
	}
	g.Go(func() error {
		return watcher.Run(gctx, rebuild)
	})
	return g.Wait()
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"kfcss/build"
	"kfcss/config"
	"kfcss/css"
	"kfcss/misc"
	"kfcss/state"
	"kfcss/watch"
)

// initializeAppContext prepares application context before command execution but
// after command line has been parsed
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		// nothing to do, just return
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)

	configFile := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		if env.Rpt, err = env.Cfg.Reporting.Prepare(); err != nil {
			return ctx, fmt.Errorf("unable to prepare debug reporter: %w", err)
		}
		// save complete processed configuration if external configuration was provided
		if len(configFile) > 0 {
			if data, err := config.Dump(env.Cfg); err == nil {
				env.Rpt.StoreData(fmt.Sprintf("config/%s", filepath.Base(configFile)), data)
			}
		}
	}
	if env.Log, err = env.Cfg.Logging.Prepare(env.Rpt); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", misc.GetVersion()), zap.String("runtime", runtime.Version()), zap.String("hash", misc.GetGitHash()))

	if env.Layout, err = config.ResolveLayout(".", &env.Cfg.Project); err != nil {
		return ctx, fmt.Errorf("unable to resolve project layout: %w", err)
	}
	env.Log.Debug("Project layout",
		zap.String("root", env.Layout.Root),
		zap.String("base", env.Layout.BaseDir),
		zap.String("entry", env.Layout.Entry),
		zap.String("out", env.Layout.OutDir))

	if env.Rpt != nil {
		env.Log.Info("Creating debug report", zap.String("location", env.Rpt.Name()))
	}
	if len(configFile) == 0 && env.Log != nil {
		env.Log.Info("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	}

	// close logging
	env.RestoreStdLog()

	// log is synced now and result can be used in report if necessary, errors
	// must be reported directly to stderr from now on
	if env.Rpt != nil {
		if er := env.Rpt.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close debug report: %w", er))
		}
	}
	// reporting is closed now - remove empty panic file if any
	if env.Cfg != nil && len(env.Cfg.Logging.FileLogger.Destination) > 0 {
		debug.SetCrashOutput(nil, debug.CrashOptions{})
		fname := env.Cfg.Logging.PanicLogName()
		if fi, er := os.Stat(fname); er == nil && fi.Size() == 0 {
			if er := os.Remove(fname); er != nil {
				err = multierr.Append(err, fmt.Errorf("unable to remove empty panic log file '%s': %w", fname, er))
			}
		}
	}
	return
}

// Errors from subcommands are regular errors, urfave/cli exit codes are not
// used. Exit code is set at the end of main.
var errWasHandled bool

// this is called before appContext is destroyed, so we have a chance to
// properly log any error from subcommand
func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {

	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	// do nothing special, error is reported either by exitErrHandler or on
	// exit directly to stderr.
	return err
}

func subcommandNotFoundHandler(ctx context.Context, _ *cli.Command, name string) {
	if log := state.EnvFromContext(ctx).Log; log != nil {
		log.Warn("Unknown command, nothing to do", zap.String("command", name))
	}
}

func main() {

	// watch runs until interrupted, shut it down gracefully
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "generates breakpoint prefixed variants of utility class stylesheet",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes program behavior to help troubleshooting, produces report archive"},
		},
		Commands: []*cli.Command{
			{
				Name:         "mirror",
				Usage:        "Appends responsive variants of utility classes to existing stylesheet",
				OnUsageError: usageErrorHandler,
				Action:       build.RunMirror,
				ArgsUsage:    "[INPUT [OUTPUT]]",
				CustomHelpTemplate: fmt.Sprintf(`%s
INPUT:
    stylesheet with utility classes, if absent - "mirror.input" from configuration

OUTPUT:
    file to write complete responsive stylesheet to, if absent - "mirror.output" from configuration

Every top level rule consisting of a single class selector (optionally with
pseudo classes) is repeated for each configured breakpoint inside media query
with breakpoint prefix added to the class name ("m:p-4").
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "build",
				Usage:        "Compiles project styles and generates responsive stylesheet",
				OnUsageError: usageErrorHandler,
				Action:       build.Run,
			},
			{
				Name:         "watch",
				Usage:        "Builds project and rebuilds it on every change notifying live reload clients",
				OnUsageError: usageErrorHandler,
				Action:       watch.Run,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Usage: "live reload server `ADDRESS` (host:port), overrides configuration"},
					&cli.BoolFlag{Name: "no-server", Usage: "do not start live reload server, only rebuild"},
				},
				CustomHelpTemplate: fmt.Sprintf(`%s
Live reload server endpoints:
    /livereload                 websocket, JSON notifications about builds
    /livereload.js              client script swapping stylesheet links on update
    /<responsive name>[?v=ID]   current (or cached by build id) responsive stylesheet
    /@id/<virtual id>           same as current responsive stylesheet
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "classes",
				Usage:        "Prints class string combining base classes with breakpoint prefixed ones",
				OnUsageError: usageErrorHandler,
				Action:       outputClasses,
				ArgsUsage:    "BASE [PREFIX=CLASSES ...]",
				CustomHelpTemplate: fmt.Sprintf(`%s
Example:
    classes "p-4 text-center" "m=p-6" "l=p-8 text-left"
    p-4 text-center m:p-6 l:p-8 l:text-left
`, cli.CommandHelpTemplate),
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values which is composition of
default values and values specified in configuration file. To see default
configuration embedded into the program use --default flag.
`, cli.CommandHelpTemplate),
			},
		},
	}

	var err error
	// NOTE: os.Exit is called at the end of main to set exit code, make sure
	// there are no other deffered functions after that
	defer func() {
		stop()
		if err != nil {
			// It may happen that log is either not set yet (argument parsing) or already closed,
			// report errors to stderr directly
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

func outputClasses(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return fmt.Errorf("base classes are not specified")
	}

	variants := make([]css.Variant, 0, cmd.Args().Len()-1)
	for _, arg := range cmd.Args().Slice()[1:] {
		v, err := css.ParseVariant(arg)
		if err != nil {
			return err
		}
		variants = append(variants, v)
	}

	if _, err := fmt.Fprintln(os.Stdout, css.Classes(cmd.Args().First(), variants...)); err != nil {
		return fmt.Errorf("unable to write classes: %w", err)
	}
	return nil
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)

	out := os.Stdout
	if len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()

	}

	if cmd.Bool("default") {
		state = "default"
		data, err = config.Prepare()
	} else {
		state = "actual"
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Info("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	_, err = out.Write(data)
	if err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}

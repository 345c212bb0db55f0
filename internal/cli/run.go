package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/dshills/keyframe/internal/config"
	"github.com/dshills/keyframe/internal/dispatcher"
	"github.com/dshills/keyframe/internal/logging"
	"github.com/dshills/keyframe/internal/middleware"
	"github.com/dshills/keyframe/internal/render"
	"github.com/dshills/keyframe/internal/replay"
	"github.com/dshills/keyframe/internal/script"
	"github.com/dshills/keyframe/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Script  string
	Events  string
	Config  string
	Init    string
	Watch   bool
	Screen  bool
	Trace   bool
	Metrics bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run Lua handlers against a stream of events",
		Long: `Load Lua event handlers, replay an event stream through the dispatcher
and print the final store as JSON.

Each event line is a JSON array ["id", args...] or an object
{"event": [...], "flush": true, "sync": true}. Use --events - to read
from stdin.

Example:
  keyframe run --script handlers.lua --events events.jsonl
  keyframe run --script handlers.lua --init '{"counter":0}' --watch`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Script, "script", "s", "", "path to the Lua handler script (required)")
	cmd.Flags().StringVarP(&opts.Events, "events", "e", "", "event lines to replay, or - for stdin")
	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "TOML or YAML config file")
	cmd.Flags().StringVar(&opts.Init, "init", "{}", "initial store JSON")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "reload the script on change until interrupted")
	cmd.Flags().BoolVar(&opts.Screen, "screen", false, "draw the store on the terminal when events request a flush")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "trace handlers and log spans at debug level")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "log dispatcher metrics on exit")
	_ = cmd.MarkFlagRequired("script")

	return cmd
}

func loadConfig(opts *RunOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	cfg, err := config.ApplyEnv(cfg)
	if err != nil {
		return cfg, err
	}
	if opts.RootOptions != nil && opts.Verbose {
		cfg = cfg.WithLogLevel("debug")
	}
	if opts.Metrics {
		cfg = cfg.WithMetrics()
	}
	return cfg, cfg.Validate()
}

// crashLog collects queued-path handler failures.
type crashLog struct {
	mu     sync.Mutex
	errors []error
}

func (c *crashLog) add(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, err)
}

func (c *crashLog) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors)
}

func runScript(cmd *cobra.Command, opts *RunOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	log := logging.New(cfg.Logger(cmd.ErrOrStderr()))

	doc, err := store.NewDoc(opts.Init)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --init document", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var flusher render.Flusher = render.Nop
	closeScreen := func() {}
	if opts.Screen {
		screen, err := tcell.NewScreen()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open screen", err)
		}
		if err := screen.Init(); err != nil {
			return WrapExitError(ExitCommandError, "failed to initialize screen", err)
		}
		closeScreen = sync.OnceFunc(screen.Fini)
		defer closeScreen()
		flusher = render.NewScreenFlusher(screen, render.DrawText(doc.String))
	}

	crashes := &crashLog{}
	d := dispatcher.New(doc, cfg.Dispatcher(),
		dispatcher.WithLoggers(logging.FromLogger(log)),
		dispatcher.WithFlusher(flusher),
		dispatcher.WithErrorHandler(func(err error) {
			log.Error("%v", err)
			crashes.add(err)
		}),
	)

	engineOpts := []script.Option{script.WithLogger(log.WithComponent("script"))}
	if opts.Trace {
		tracer, shutdown := newTracer(log)
		defer func() { _ = shutdown(context.Background()) }()
		engineOpts = append(engineOpts, script.WithMiddleware(middleware.Trace(tracer)))
	}

	engine, err := script.New(d, opts.Script, engineOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create script engine", err)
	}
	defer func() { _ = engine.Close(context.Background()) }()

	if err := d.Start(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to start dispatcher", err)
	}
	defer func() { _ = d.Stop(context.Background()) }()

	if err := engine.Load(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to load script", err)
	}
	log.Debug("loaded %s: %d handlers", opts.Script, len(d.Handlers()))

	var failures []error
	if opts.Events != "" {
		res, err := replayEvents(ctx, cmd, opts.Events, d)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to replay events", err)
		}
		log.Debug("replayed %d queued and %d sync events", res.Dispatched, res.Synced)
		for _, err := range res.Failures {
			log.Error("%v", err)
		}
		failures = res.Failures
	}
	if err := d.WaitIdle(ctx); err != nil {
		return WrapExitError(ExitFailure, "interrupted before the queue drained", err)
	}

	if opts.Watch {
		if err := watch(ctx, engine, log); err != nil {
			return WrapExitError(ExitCommandError, "failed to watch script", err)
		}
	}

	closeScreen()
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), doc.String()); err != nil {
		return err
	}

	if m := d.Metrics(); m != nil {
		s := m.Snapshot()
		log.WithFields(map[string]any{
			"handled": s.TotalHandled,
			"errors":  s.TotalErrors,
			"panics":  s.TotalPanics,
			"dropped": s.TotalDropped,
			"purged":  s.TotalPurged,
			"avg":     s.AverageDuration,
		}).Info("dispatcher metrics")
	}

	if n := len(failures) + crashes.len(); n > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d handler failures", n))
	}
	return nil
}

func replayEvents(ctx context.Context, cmd *cobra.Command, path string, d *dispatcher.Dispatcher) (replay.Result, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return replay.Result{}, err
		}
		defer f.Close()
		r = f
	}
	return replay.Play(ctx, r, d)
}

// watch reloads the script on change until ctx is done.
func watch(ctx context.Context, engine *script.Engine, log *logging.Logger) error {
	w, err := script.Watch(ctx, engine, script.WithReloadHandler(func(err error) {
		if err != nil {
			log.Error("reload failed: %v", err)
			return
		}
		log.Info("reloaded %s", engine.Path())
	}))
	if err != nil {
		return err
	}
	defer w.Close()

	log.Info("watching %s, press Ctrl-C to stop", engine.Path())
	<-ctx.Done()
	return nil
}

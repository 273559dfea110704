package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/nathoo/voicequest/cli"
	"github.com/nathoo/voicequest/config"
	"github.com/nathoo/voicequest/engine"
	"github.com/nathoo/voicequest/errutil"
	"github.com/nathoo/voicequest/loader"
	"github.com/nathoo/voicequest/logging"
	"github.com/nathoo/voicequest/nlu"
	"github.com/nathoo/voicequest/tui"
	"github.com/nathoo/voicequest/types"
)

// playOptions holds the play flags that are not part of the config file.
type playOptions struct {
	script  string
	trace   bool
	resume  string
	saveDir string
}

// NewPlayCmd creates the play subcommand.
func NewPlayCmd() *cobra.Command {
	opts := &playOptions{}

	cmd := &cobra.Command{
		Use:   "play [game-dir]",
		Short: "Play a game",
		Long: `Load a game directory and play it in the terminal UI or on the
console. Type what you would say; an empty line is silence.

Settings come from the built-in defaults, then the --config file, then
the flags given on the command line.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := cmd.Flags().Set("game", args[0]); err != nil {
					return err
				}
			}
			return runPlay(cmd.Context(), cmd, opts)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().StringVar(&opts.script, "script", "", "read input lines from a file (implies --ui cli)")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "print every processed event (cli)")
	cmd.Flags().StringVar(&opts.resume, "resume", "", "resume from a saved session")
	cmd.Flags().StringVar(&opts.saveDir, "save-dir", "", "directory for saved sessions (default: ~/.voicequest/saves)")

	return cmd
}

// player is everything a driver needs to run a session.
type player struct {
	cfg     *config.Config
	opts    *playOptions
	content *loader.Content
	interp  nlu.Interpreter
	metrics *engine.Metrics
	logger  *slog.Logger
}

func runPlay(ctx context.Context, cmd *cobra.Command, opts *playOptions) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if opts.script != "" {
		cfg.UI = config.UIConsole
	}
	if opts.saveDir == "" {
		opts.saveDir = cli.DefaultSaveDir()
	}

	logOut, closeLog, err := logWriter(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.Setup("voicequest", version, cfg.Log.Format, level, logOut)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	content, err := loader.Load(cfg.Game)
	if err != nil {
		errutil.LogError(logger, "loading game", err)
		return err
	}
	for _, w := range content.Warnings {
		logger.Warn("game content", "warning", w)
	}
	if cfg.Restart != "" {
		content.Game.RestartPolicy = types.RestartPolicy(cfg.Restart)
	}

	interp, err := newInterpreter(cfg, content.Game, logger)
	if err != nil {
		errutil.LogError(logger, "creating interpreter", err)
		return err
	}

	reg := prometheus.NewRegistry()
	metrics := engine.NewMetrics(reg)
	if cfg.Metrics.Addr != "" {
		srv, err := startMetricsServer(cfg.Metrics.Addr, reg, logger)
		if err != nil {
			errutil.LogError(logger, "starting metrics server", err)
			return err
		}
		defer srv.stop()
	}

	logger.Info("starting session",
		"game", content.Game.Title,
		"ui", cfg.UI,
		"nlu", cfg.NLU.Mode,
	)

	p := &player{cfg: cfg, opts: opts, content: content, interp: interp, metrics: metrics, logger: logger}
	if cfg.UI == config.UIConsole {
		err = p.console(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	} else {
		err = p.terminal(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		errutil.LogError(logger, "session ended", err)
		return err
	}
	return nil
}

func (p *player) console(ctx context.Context, in io.Reader, out io.Writer) error {
	c := cli.New(p.interp)
	c.In = in
	c.Out = out
	c.Logger = p.logger
	c.Trace = p.opts.trace
	c.SaveDir = p.opts.saveDir

	if p.opts.script != "" {
		f, err := os.Open(p.opts.script)
		if err != nil {
			return oops.Code("SCRIPT_FAILED").With("script", p.opts.script).Wrap(err)
		}
		defer f.Close()
		c.In = f
		c.EchoInput = true
	}

	e := p.newEngine(c, c)
	if err := p.resume(ctx, e); err != nil {
		return err
	}

	g := p.content.Game
	fmt.Fprintf(out, "%s v%s by %s\n\n", g.Title, g.Version, g.Author)
	return c.Run(ctx, e)
}

func (p *player) terminal(ctx context.Context) error {
	d := tui.NewDriver()
	e := p.newEngine(d, d)
	if err := p.resume(ctx, e); err != nil {
		return err
	}
	return tui.Run(ctx, e, d, tui.Config{
		NLU:           p.interp,
		Logger:        p.logger,
		ListenTimeout: p.cfg.Listen.Timeout,
		SaveDir:       p.opts.saveDir,
	})
}

func (p *player) newEngine(speech engine.Speech, presenter engine.Presenter) *engine.Engine {
	return engine.New(p.content.Graph, p.content.Game, speech,
		engine.WithPresenter(presenter),
		engine.WithLogger(p.logger),
		engine.WithMetrics(p.metrics),
	)
}

func (p *player) resume(ctx context.Context, e *engine.Engine) error {
	if p.opts.resume == "" {
		return nil
	}
	if _, err := cli.LoadSnapshot(ctx, p.opts.saveDir, p.opts.resume, e); err != nil {
		errutil.LogError(p.logger, "resuming session", err)
		return err
	}
	return nil
}

// newInterpreter builds the interpreter cfg selects.
func newInterpreter(cfg *config.Config, game *types.GameDef, logger *slog.Logger) (nlu.Interpreter, error) {
	if cfg.NLU.Mode == config.NLURemote {
		return nlu.NewRemote(cfg.RemoteConfig(), logger), nil
	}
	k, err := nlu.NewKeyword(game.Lexicon)
	if err != nil {
		return nil, err
	}
	return k, nil
}

// logWriter opens the configured log file. Without one, the console
// logs to stderr and the terminal UI discards logs, since it owns the
// screen.
func logWriter(cfg *config.Config, stderr io.Writer) (io.Writer, func(), error) {
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, oops.Code("CONFIG_INVALID").With("log_file", cfg.Log.File).Wrap(err)
		}
		return f, func() { _ = f.Close() }, nil
	}
	if cfg.UI == config.UITerminal {
		return io.Discard, func() {}, nil
	}
	return stderr, func() {}, nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/sync/errgroup"

	"stickduel/arena/internal/config"
	"stickduel/arena/internal/events"
	grpcapi "stickduel/arena/internal/grpc"
	httpapi "stickduel/arena/internal/http"
	"stickduel/arena/internal/input"
	"stickduel/arena/internal/logging"
	"stickduel/arena/internal/match"
	"stickduel/arena/internal/rng"
	"stickduel/arena/internal/simulation"
	"stickduel/arena/internal/spectator"
	"stickduel/arena/internal/terminal"
)

const (
	shutdownGrace     = 5 * time.Second
	apiRateWindow     = time.Second
	apiRateLimit      = 20
	healthPollPeriod  = 250 * time.Millisecond
	readHeaderTimeout = 5 * time.Second
)

var errListenersPending = errors.New("listeners not bound yet")

// options are the command line switches.
type options struct {
	headless   bool
	autopilot  bool
	mode       string
	configPath string
	issueToken string
	tokenTTL   time.Duration
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("arena", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.BoolVar(&opts.headless, "headless", false, "run without the terminal front-end and mirror logs to stderr")
	fs.BoolVar(&opts.autopilot, "autopilot", false, "let an agent fight as player one")
	fs.StringVar(&opts.mode, "mode", "", "start this mode immediately (2p, cpu, survival)")
	fs.StringVar(&opts.configPath, "config", "", "TOML file layered under ARENA_* environment variables")
	fs.StringVar(&opts.issueToken, "issue-token", "", "print a spectator token for this subscriber and exit")
	fs.DurationVar(&opts.tokenTTL, "token-ttl", 24*time.Hour, "lifetime of tokens printed by -issue-token")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	//1.- Reject bad modes before anything is allocated.
	if opts.mode != "" {
		if _, err := match.ParseMode(opts.mode); err != nil {
			return options{}, err
		}
	}
	return opts, nil
}

// app owns every long-lived component of the arena process.
type app struct {
	cfg      *config.Config
	opts     options
	logger   *logging.Logger
	stream   *events.Stream
	session  *match.Session
	monitor  *simulation.TickMonitor
	hub      *spectator.Hub
	health   *grpcapi.HealthReporter
	frontend *terminal.Frontend
	keys     *input.Gate

	bound    atomic.Bool
	httpAddr atomic.Value
	grpcAddr atomic.Value
	ready    chan struct{}
}

func newApp(cfg *config.Config, opts options, logger *logging.Logger) (*app, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.L()
	}
	a := &app{
		cfg:     cfg,
		opts:    opts,
		logger:  logger,
		stream:  events.NewStream(events.Config{Retain: cfg.EventRetention}),
		monitor: simulation.NewTickMonitor(cfg.TickInterval()),
		health:  grpcapi.NewHealthReporter(logger),
		ready:   make(chan struct{}),
	}

	//1.- Build the match behind its session, attaching the terminal sinks unless headless.
	random := rng.NewSeeded(cfg.Seed)
	controllerCfg := match.ControllerConfig{
		Random:           random,
		Events:           a.stream,
		Logger:           logger,
		CountdownSeconds: cfg.CountdownSeconds,
		Autopilot:        opts.autopilot,
	}
	if !opts.headless {
		a.keys = input.NewGate(input.DefaultConfig(), logger.With(logging.String("component", "input")))
		a.frontend = terminal.NewFrontend(terminal.WithInputGate(a.keys))
		controllerCfg.UI = a.frontend
		controllerCfg.Render = a.frontend
	}
	session, err := match.NewSession(controllerCfg)
	if err != nil {
		return nil, fmt.Errorf("create match session: %w", err)
	}
	a.session = session
	logger.Info("match session created",
		logging.String("match_id", session.ID()),
		logging.Uint64("seed", random.Seed()),
		logging.Bool("headless", opts.headless),
		logging.Bool("autopilot", opts.autopilot),
	)

	//2.- Spectators share the stream, are throttled by a sliding window and need a token
	// when a secret is configured.
	hubCfg := spectator.Config{
		Stream:       a.stream,
		Limiter:      httpapi.NewSlidingWindowLimiter(cfg.SpectatorWindow, cfg.SpectatorBurst, time.Now),
		Buffer:       cfg.SpectatorBuffer,
		PingInterval: cfg.PingInterval,
		Logger:       logger,
	}
	if cfg.SpectatorSecret != "" {
		authenticator, err := spectator.NewTokenAuthenticator(cfg.SpectatorSecret)
		if err != nil {
			return nil, fmt.Errorf("spectator auth: %w", err)
		}
		hubCfg.Authenticator = authenticator
	}
	a.hub = spectator.NewHub(hubCfg)

	//3.- A mode given on the command line skips the menu.
	if opts.mode != "" {
		if err := session.SelectModeName(opts.mode); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// StartupError reports whether the network listeners are up.
func (a *app) StartupError() error {
	if !a.bound.Load() {
		return errListenersPending
	}
	return nil
}

// Uptime reports how long the match session has existed.
func (a *app) Uptime() time.Duration {
	return a.session.Uptime()
}

func (a *app) handler() http.Handler {
	mux := http.NewServeMux()
	handlers := httpapi.NewHandlerSet(httpapi.Options{
		Logger:      a.logger,
		Readiness:   a,
		Match:       a.session,
		Ticks:       a.monitor.Snapshot,
		Spectators:  a.hub,
		Events:      a.stream.LastSequence,
		InputDrops:  a.keys.Metrics().Snapshot,
		RateLimiter: httpapi.NewSlidingWindowLimiter(apiRateWindow, apiRateLimit, time.Now),
	})
	handlers.Register(mux)
	mux.Handle(spectator.Path, a.hub)
	registerControlDocEndpoints(mux)
	return logging.HTTPTraceMiddleware(a.logger)(mux)
}

func (a *app) matchStatus() match.Status {
	return a.session.Snapshot().Status
}

// run serves until ctx ends, the player quits, or a component fails. A nil screen runs
// headless.
func (a *app) run(ctx context.Context, screen tcell.Screen) error {
	//1.- Bind both listeners up front so address problems fail fast.
	httpLis, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen http %s: %w", a.cfg.HTTPAddr, err)
	}
	grpcLis, err := net.Listen("tcp", a.cfg.GRPCAddr)
	if err != nil {
		httpLis.Close()
		return fmt.Errorf("listen grpc %s: %w", a.cfg.GRPCAddr, err)
	}
	a.httpAddr.Store(httpLis.Addr().String())
	a.grpcAddr.Store(grpcLis.Addr().String())
	a.logger.Info("arena listening",
		logging.String("http", listenerURL("http", httpLis.Addr().String())),
		logging.String("spectate", listenerURL("ws", httpLis.Addr().String())+spectator.Path),
		logging.String("grpc", listenerURL("grpc", grpcLis.Addr().String())),
	)

	group, ctx := errgroup.WithContext(ctx)

	//2.- The fixed-step loop is the only thing that advances match time.
	loop := simulation.NewLoop(float64(a.cfg.TickRate), a.session.Step,
		simulation.WithTickMonitor(a.monitor),
		simulation.WithLoopLogger(a.logger),
	)
	group.Go(func() error { return ignoreCanceled(loop.Run(ctx)) })

	//3.- HTTP ops endpoints and the spectator feed.
	server := &http.Server{Handler: a.handler(), ReadHeaderTimeout: readHeaderTimeout}
	group.Go(func() error {
		if err := server.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	//4.- gRPC health follows the match status.
	grpcServer := grpcapi.NewServer(grpcapi.ServerConfig{
		SharedSecret: a.cfg.GRPCSharedSecret,
		Health:       a.health,
		Logger:       a.logger,
	})
	group.Go(func() error { return grpcapi.Serve(ctx, grpcServer, grpcLis, a.logger) })
	group.Go(func() error {
		err := a.health.Watch(ctx, a.matchStatus, healthPollPeriod)
		a.health.Shutdown()
		return ignoreCanceled(err)
	})

	//5.- The terminal owns the foreground when present.
	if screen != nil && a.frontend != nil {
		group.Go(func() error { return a.frontend.Run(ctx, screen, a.session, a.logger) })
	}

	a.bound.Store(true)
	close(a.ready)

	err = group.Wait()
	if errors.Is(err, terminal.ErrQuit) {
		a.logger.Info("player quit")
		return nil
	}
	return err
}

// issueSpectatorToken signs a token naming subscriber with the configured secret.
func issueSpectatorToken(cfg *config.Config, subscriber string, ttl time.Duration) (string, error) {
	if cfg == nil || cfg.SpectatorSecret == "" {
		return "", errors.New("ARENA_SPECTATOR_SECRET is not configured")
	}
	authenticator, err := spectator.NewTokenAuthenticator(cfg.SpectatorSecret)
	if err != nil {
		return "", err
	}
	return authenticator.Verifier().Issue(subscriber, ttl)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "arena: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "arena: load config: %v\n", err)
		os.Exit(1)
	}
	if opts.issueToken != "" {
		token, err := issueSpectatorToken(cfg, opts.issueToken, opts.tokenTTL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "arena: issue token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	//1.- Logs always go to the rotated file; stderr only mirrors them when no screen is drawn.
	var mirror io.Writer
	if opts.headless {
		mirror = os.Stderr
	}
	logger, err := logging.New(cfg.Logging, mirror)
	if err != nil {
		fmt.Fprintf(os.Stderr, "arena: init logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, opts, logger)
	if err != nil {
		logger.Fatal("startup failed", logging.Error(err))
	}

	var screen tcell.Screen
	if !opts.headless {
		screen, err = terminal.OpenScreen()
		if err != nil {
			logger.Fatal("open terminal", logging.Error(err))
		}
	}
	err = a.run(ctx, screen)
	if screen != nil {
		screen.Fini()
	}
	if err != nil {
		logger.Error("arena stopped", logging.Error(err))
		os.Exit(1)
	}
	logger.Info("arena stopped")
}

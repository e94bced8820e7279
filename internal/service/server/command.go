package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/oshokin/installer-endpoint/internal/api/grpc/health"
	"github.com/oshokin/installer-endpoint/internal/api/http/ratelimit"
	"github.com/oshokin/installer-endpoint/internal/config"
	"github.com/oshokin/installer-endpoint/internal/logger"
	repository "github.com/oshokin/installer-endpoint/internal/repository/script"
)

// Options controls the installer-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress overrides the configured HTTP listen address.
	ListenAddress string
	// ScriptDir overrides the configured script directory.
	ScriptDir string
	// ScriptName overrides the configured script file name.
	ScriptName string
	// LogLevel overrides the configured log level.
	LogLevel string
}

// rateWindow is the window RateLimit is expressed in.
const rateWindow = time.Minute

// Run starts the HTTP endpoint and blocks until ctx is canceled or a listener fails.
// Configuration is loaded first, then command line options are applied on top.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "installer-server")

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	repo := repository.NewFileRepository(cfg.ScriptPath())

	// A missing script is not fatal: it may be deployed after startup.
	exists, err := repo.Exists(ctx)
	if err != nil {
		logger.WarnKV(ctx, "Unable to check script", "path", repo.Path(), "error", err)
	} else if !exists {
		logger.WarnKV(ctx, "Script is missing, requests will get 404 until it appears", "path", repo.Path())
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit > 0 {
		limiter = ratelimit.NewLimiter(cfg.RateLimit, rateWindow, cfg.RateBurst)
		defer limiter.Close()
	}

	// Setup TCP listener for the HTTP endpoint.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddress, err)
	}

	httpServer := &http.Server{
		Handler:           newRouter(cfg.Route, repo, limiter),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	healthServer := health.NewServer(repo)
	healthServer.Refresh(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(runCtx)

	if cfg.HealthAddress != "" {
		if err = serveHealth(groupCtx, group, &lc, cfg.HealthAddress, healthServer); err != nil {
			_ = lis.Close()
			return err
		}
	}

	// The watcher only logs and pushes status to Watch streams;
	// health checks look at the script on their own.
	var watchDone <-chan struct{}

	if cfg.Watch {
		watchDone, err = watchScript(groupCtx, repo.Path(), func(ctx context.Context) {
			healthServer.Refresh(ctx)
		})
		if err != nil {
			_ = lis.Close()

			// Stop the health server if it was started.
			cancel()
			_ = group.Wait()

			return fmt.Errorf("watch script: %w", err)
		}
	}

	logger.InfoKV(ctx, "Installer server listening",
		"listen_address", lis.Addr().String(),
		"route", cfg.Route,
		"script", repo.Path(),
		"rate_limit", cfg.RateLimit,
		"health_address", cfg.HealthAddress,
		"watch", cfg.Watch,
	)

	group.Go(func() error {
		if err := httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}

		return nil
	})

	// Shutdown starts when ctx is canceled or any serve loop fails.
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down HTTP server")

		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}

		return nil
	})

	err = group.Wait()

	// groupCtx is canceled once Wait returns, so the watcher is stopping.
	if watchDone != nil {
		<-watchDone
	}

	if err != nil {
		return err
	}

	logger.Info(ctx, "HTTP server stopped")

	return nil
}

// serveHealth starts the gRPC health server on address inside group.
// It stops gracefully once ctx is done.
func serveHealth(
	ctx context.Context,
	group *errgroup.Group,
	lc *net.ListenConfig,
	address string,
	healthServer *health.Server,
) error {
	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen health on %s: %w", address, err)
	}

	grpcServer := grpc.NewServer()
	healthServer.Register(grpcServer)

	logger.InfoKV(ctx, "Health server listening", "health_address", lis.Addr().String())

	group.Go(func() error {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC health: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		grpcServer.GracefulStop()

		return nil
	})

	return nil
}

// loadConfig reads settings and applies command line overrides on top.
func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.ListenAddress != "" {
		cfg.ListenAddress = opts.ListenAddress
	}

	if opts.ScriptDir != "" {
		cfg.ScriptDir = opts.ScriptDir
	}

	if opts.ScriptName != "" {
		cfg.ScriptName = opts.ScriptName
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

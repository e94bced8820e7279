package checker

import (
	"context"
	"errors"
	"fmt"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/installer-endpoint/internal/api/grpc/health"
	"github.com/oshokin/installer-endpoint/internal/config"
	"github.com/oshokin/installer-endpoint/internal/logger"
	"github.com/oshokin/installer-endpoint/internal/service/common"
)

// Options controls a single health check.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// HealthAddress provides an optional health address override.
	HealthAddress string
}

var (
	// ErrNotServing is returned when the server reports anything but SERVING.
	ErrNotServing = errors.New("installer is not serving")
	// errNoHealthAddress indicates that neither config nor arguments name a health address.
	errNoHealthAddress = errors.New("no health address configured")
)

// Run performs one health check and returns ErrNotServing unless the script is served.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "installer-check")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	address := cfg.HealthAddress
	if opts.HealthAddress != "" {
		address = opts.HealthAddress
	}

	if address == "" {
		return errNoHealthAddress
	}

	client, err := common.Dial(ctx, address, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	defer func() {
		_ = client.Close()
	}()

	status, err := client.Check(ctx, health.ServiceName)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Installer health", "address", address, "status", status.String())

	if status != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", ErrNotServing, status)
	}

	return nil
}

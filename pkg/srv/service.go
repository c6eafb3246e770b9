package srv

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/sandevgo/glance/pkg/log"
)

// ExitRuntimeFault is the process exit code for an unrecoverable
// fault inside a running service.
const ExitRuntimeFault = 2

type Service interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// StartServices launches every service on its own goroutine. A
// service returning after shutdown began is a clean exit; any other
// error terminates the process with ExitRuntimeFault.
func StartServices(ctx context.Context, services []Service) {
	logger := log.FromCtx(ctx)
	for _, service := range services {
		go func(service Service) {
			err := service.Start(ctx)
			if err == nil || errors.Is(err, context.Canceled) {
				return
			}
			logger.Error().Err(err).Msgf("%T failed", service)
			os.Exit(ExitRuntimeFault)
		}(service)
	}
}

// ShutdownServices blocks until ctx is cancelled, then shuts every
// service down in reverse start order within the grace period.
func ShutdownServices(ctx context.Context, services []Service, grace time.Duration) {
	<-ctx.Done()

	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Shutdown(sctx); err != nil {
			log.FromCtx(ctx).Error().Err(err).Msgf("%T failed to shutdown", services[i])
		}
	}
}

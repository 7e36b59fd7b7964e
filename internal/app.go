package internal

import (
	"context"
	"crewboard/internal/controllers"
	"crewboard/internal/presence"
	"crewboard/internal/providers"
	"crewboard/internal/services"
	"crewboard/internal/statistic/interfaces"
	"crewboard/internal/structures"
	"fmt"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

type App struct {
	WebServer *http.Server

	conf      *structures.Config
	logger    providers.Logger
	presence  presence.ClientInterface
	views     services.ViewModelServiceInterface
	scheduler interfaces.SchedulerInterface
}

// NewHandler assembles the HTTP surface. API routes are instrumented and,
// except for streams, compressed.
func NewHandler(healthController *controllers.HealthController, conf *structures.Config, router providers.RouterProviderInterface, metrics providers.MetricsProviderInterface) http.Handler {
	// Inner mux: API routes
	apiMux := http.NewServeMux()
	for _, route := range router.GetRoutes() {
		handler := route.Handler
		if !route.Streaming {
			handler = providers.CompressionMiddleware(conf.WebServer.Compression, handler)
		}
		apiMux.Handle(route.Url, handler)
	}

	// Wrap API routes with metrics middleware
	instrumentedAPI := providers.MetricsMiddleware(metrics, apiMux)

	// Outer mux: infrastructure + instrumented API
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthController.Health)
	if conf.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", instrumentedAPI)
	return mux
}

func NewApp(handler http.Handler, client presence.ClientInterface, views services.ViewModelServiceInterface, scheduler interfaces.SchedulerInterface, conf *structures.Config, logger providers.Logger) *App {
	return &App{
		WebServer: &http.Server{
			Addr:         conf.WebServer.Host + ":" + strconv.Itoa(conf.WebServer.Port),
			Handler:      handler,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		conf:      conf,
		logger:    logger,
		presence:  client,
		views:     views,
		scheduler: scheduler,
	}
}

// Run serves until SIGINT/SIGTERM or a server error, then shuts everything
// down in reverse order.
func (app *App) Run() error {
	logger := app.logger
	logger.Infof(providers.TypeApp, "Starting %s", app.conf.AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.presence.Start(ctx)

	mounted := make(chan struct{})
	go func() {
		defer close(mounted)
		app.views.Mount(ctx)
	}()

	app.scheduler.Init()

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof(providers.TypeApp, "Listening HTTP clients on %s:%d", app.conf.WebServer.Host, app.conf.WebServer.Port)
		if err := app.WebServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var runErr error
	select {
	case <-stop:
		logger.Infof(providers.TypeApp, "Shutdown signal received")
	case err := <-serverErr:
		runErr = fmt.Errorf("server error: %w", err)
	}

	app.scheduler.Stop()

	// Teardown closes the event streams, which would otherwise hold Shutdown.
	cancel()
	<-mounted
	app.views.Teardown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := app.WebServer.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	app.presence.Stop()

	if runErr != nil {
		return runErr
	}
	logger.Infof(providers.TypeApp, "gracefully stopped")
	return nil
}

package internal

import (
	"context"
	"errors"
	"fmt"
	"gitviewer/internal/controllers"
	"gitviewer/internal/providers"
	"gitviewer/internal/storage/interfaces"
	"gitviewer/internal/structures"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	WebServer *http.Server
	conf      *structures.Config
	logger    providers.Logger
	store     interfaces.ViewStoreInterface
}

// NewHandler assembles the HTTP surface: request ids on everything, metrics
// on the API routes only.
func NewHandler(router providers.RouterProviderInterface, healthController *controllers.HealthController, conf *structures.Config, metrics providers.MetricsProviderInterface) http.Handler {
	apiMux := http.NewServeMux()
	for _, route := range router.GetRoutes() {
		apiMux.Handle(route.Url, route.Handler)
	}

	// The metrics middleware must sit directly on apiMux to see r.Pattern.
	instrumentedAPI := providers.MetricsMiddleware(metrics, apiMux)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthController.Health)
	if conf.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", instrumentedAPI)

	return providers.RequestIDMiddleware(mux)
}

func NewApp(healthController *controllers.HealthController, conf *structures.Config, logger providers.Logger, router providers.RouterProviderInterface, metrics providers.MetricsProviderInterface, store interfaces.ViewStoreInterface) *App {
	return &App{
		WebServer: &http.Server{
			Addr:         conf.WebServer.Host + ":" + strconv.Itoa(conf.WebServer.Port),
			Handler:      NewHandler(router, healthController, conf, metrics),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		conf:   conf,
		logger: logger,
		store:  store,
	}
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests and
// releases the store and log files.
func (app *App) Run() error {
	app.logger.Infof(providers.TypeApp, "Starting %s with %s storage", app.conf.AppName, app.conf.Storage.Driver)

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Infof(providers.TypeApp, "Listening HTTP clients on %s", app.WebServer.Addr)
		if err := app.WebServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		app.logger.Infof(providers.TypeApp, "Shutdown signal received")
	case err := <-serverErr:
		app.close()
		return fmt.Errorf("server error: %w", err)
	}

	return app.Shutdown()
}

func (app *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := app.WebServer.Shutdown(ctx)
	if err != nil {
		app.logger.Errorf(providers.TypeApp, "Server shutdown: %v", err)
	} else {
		app.logger.Infof(providers.TypeApp, "gracefully stopped")
	}
	app.close()
	return err
}

func (app *App) close() {
	if err := app.store.Close(); err != nil {
		app.logger.Errorf(providers.TypeStorage, "Closing view store: %v", err)
	}
	app.logger.Close()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"syscall"

	"github.com/bassista/atlas/internal/api/middleware"
	"github.com/bassista/atlas/internal/api/route"
	"github.com/bassista/atlas/internal/app"
	"github.com/bassista/atlas/internal/config"
	"github.com/bassista/atlas/internal/logger"
	"github.com/enrichman/httpgrace"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with background refreshes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(opts.cfg)
		},
	}
}

func runServe(cfg *config.Config) error {
	log := logger.WithComponent("main")

	a, err := app.Build(cfg)
	if err != nil {
		return fmt.Errorf("cannot init app: %w", err)
	}
	defer func() {
		if err := a.Shutdown(); err != nil {
			log.WithError(err).Error("Shutdown finished with errors")
		}
	}()

	if err := a.Start(); err != nil {
		return err
	}

	gin.SetMode(cfg.Misc.GinMode)
	gin.DefaultWriter = logger.Logger.Writer()
	gin.DefaultErrorWriter = logger.Logger.Writer()

	srv := createGraceHttpServer(a.BaseCtx, "main-server", cfg.Server, newEngine(a), a.StopStreams)
	log.Infof("App will run on port: %d", cfg.Server.Port)

	if err := srv.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newEngine(a *app.App) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.HoneybadgerMiddleware(a.Config.Misc.HoneybadgerAPIKey, a.Config.Misc.Environment, logger.WithComponent("honeybadger")))
	r.Use(middleware.CORSMiddleware(a.Config.Server.CORSAllowedOrigins))
	route.SetupRoutes(r, a)
	return r
}

// createGraceHttpServer builds the graceful server. beforeShutdown runs when a
// signal arrives, before the server waits for in-flight handlers.
func createGraceHttpServer(ctx context.Context, name string, serverConfig config.ServerConfig, r *gin.Engine, beforeShutdown func()) *httpgrace.Server {
	slogLogger := slog.New(slog.NewTextHandler(logger.Logger.Writer(), nil))

	srv := httpgrace.NewServer(r,
		httpgrace.WithTimeout(serverConfig.ShutDownTimeout),
		httpgrace.WithSignals(syscall.SIGTERM, syscall.SIGINT),
		httpgrace.WithLogger(slogLogger),
		httpgrace.WithBeforeShutdown(func() {
			logger.WithComponent("http").Infof("Shutting down %s server....", name)
			if beforeShutdown != nil {
				beforeShutdown()
			}
		}),
		httpgrace.WithServerOptions(
			httpgrace.WithReadTimeout(serverConfig.ReadTimeout),
			httpgrace.WithWriteTimeout(serverConfig.WriteTimeout),
			httpgrace.WithIdleTimeout(serverConfig.IdleTimeout),
			func(srv *http.Server) {
				srv.BaseContext = func(_ net.Listener) context.Context {
					return ctx
				}
			},
			func(srv *http.Server) {
				srv.ErrorLog = log.New(logger.Logger.Writer(), fmt.Sprintf("[%s] ", name), log.LstdFlags)
			},
		),
	)
	return srv
}

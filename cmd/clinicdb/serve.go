package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/consultorio/clinicdb/internal/domain/consultation"
	"github.com/consultorio/clinicdb/internal/domain/patient"
	"github.com/consultorio/clinicdb/internal/platform/db"
	"github.com/consultorio/clinicdb/internal/platform/middleware"
	"github.com/consultorio/clinicdb/internal/store"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the read-only query API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, st, logger, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			e := newServer(st, logger)

			go func() {
				addr := ":" + cfg.Port
				logger.Info().Str("addr", addr).Str("driver", st.Driver).Msg("starting server")
				if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server error")
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := e.Shutdown(shutdownCtx); err != nil {
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
}

func newServer(st *store.Store, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))

	e.GET("/health", db.HealthHandler(st))

	apiV1 := e.Group("/api/v1")
	patient.NewHandler(patient.NewService(st.Patients)).RegisterRoutes(apiV1)
	consultation.NewHandler(consultation.NewService(st.Consultations)).RegisterRoutes(apiV1)

	return e
}

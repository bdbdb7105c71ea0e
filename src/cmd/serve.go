package cmd

import (
	"RainMatrix/src/handlers"
	"RainMatrix/src/jobs"
	"RainMatrix/src/render"
	"RainMatrix/src/service"
	"RainMatrix/src/token"
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the rain matrix HTTP server.

Startup fails if the configuration is invalid, the page cache cannot be
opened or the page template cannot be parsed.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "0.0.0.0:8000", "listen address")
	serveCmd.Flags().Int("workers", 2, "concurrent forecast fetches per request")
	serveCmd.Flags().String("template", "src/templates/matrix.html", "page template")
	_ = v.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("workers", serveCmd.Flags().Lookup("workers"))
	_ = v.BindPFlag("template", serveCmd.Flags().Lookup("template"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	renderer, err := render.LoadTemplate(cfg.TemplatePath)
	if err != nil {
		return err
	}

	cache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer cache.Close()

	pruner, err := jobs.NewPruner(cache, cfg.Cache.PruneEvery)
	if err != nil {
		return err
	}
	pruner.RunOnce()
	pruner.Start()
	defer pruner.Stop()

	svc := service.New(service.Config{
		PlacesFile: cfg.PlacesFile,
		Defaults: service.Defaults{
			TZ:      cfg.Defaults.TZ,
			Country: cfg.Defaults.Country,
			Model:   cfg.Defaults.Model,
		},
		FutureDaysAllowed: cfg.FutureDays,
		Workers:           cfg.Workers,
	}, cache, newForecastClient(cfg), renderer)

	auth := token.NewAuthenticator(cfg.Auth.SigningKey, cfg.AdminUsers())
	if !auth.Enabled() {
		log.Warn("RAIN_AUTH_SIGNING_KEY or RAIN_AUTH_ADMIN_HASH not set, cache admin endpoints are disabled")
	}

	h := &handlers.Handler{
		Service:        svc,
		Cache:          cache,
		Index:          newPlaceIndex(ctx, cfg),
		DefaultCountry: cfg.Defaults.Country,
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handlers.NewRouter(h, auth, cfg.RequestTimeout),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":    cfg.Addr,
			"workers": cfg.Workers,
			"places":  cfg.PlacesFile,
		}).Info("server started")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

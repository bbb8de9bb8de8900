package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	appcontainer "livefeed/internal/application/container"
	"livefeed/internal/infrastructure/config"
	infracontainer "livefeed/internal/infrastructure/container"
	"livefeed/internal/infrastructure/logger"
	"livefeed/internal/interfaces/console"
	"livefeed/internal/interfaces/httpapi"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	tail := flag.Bool("tail", false, "print every price update to stdout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = config.Default()
	} else if err != nil {
		logger.Setup("info")
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.Setup(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := infracontainer.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init infrastructure failed")
	}
	defer infra.Close()

	app := appcontainer.New(appcontainer.Deps{
		Store:           infra.StrategyStore(),
		Discovery:       infra.Pyth(),
		Prices:          infra.Pyth(),
		Tokens:          infra.Dexscreener(),
		HubObserver:     infra.Metrics(),
		RefreshObserver: infra.Metrics(),
	})
	defer app.Close()

	if *tail {
		sub := app.PriceHub().Subscribe(console.NewSink(os.Stdout))
		defer app.PriceHub().Unsubscribe(sub)
	}

	app.Refresher().Start(cfg.RefreshInterval())

	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Prices:      app.PriceService(),
			Strategies:  app.StrategyRepository(),
			Tokens:      app.TokenService(),
			PriceHub:    app.PriceHub(),
			StrategyHub: app.StrategyHub(),
			Metrics:     infra.Metrics().Handler(),
			Observer:    infra.Metrics(),
		}),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info().
		Str("config", *configPath).
		Str("addr", cfg.HTTP.Addr).
		Strs("storage", cfg.Storage.Drivers).
		Dur("refresh_interval", cfg.RefreshInterval()).
		Msg("livefeed started")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server exited")
		}
	}

	// hubs close first so open streams return before Shutdown waits on them
	app.Refresher().Stop()
	app.PriceHub().Close()
	app.StrategyHub().Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	log.Info().Msg("livefeed stopped")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	rest "github.com/danilovkiri/dk-go-paydesk/internal/api/rest/v1"
	"github.com/danilovkiri/dk-go-paydesk/internal/config"
	"github.com/danilovkiri/dk-go-paydesk/internal/logger"
	"golang.org/x/sync/errgroup"
)

func main() {
	log := logger.InitLog()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// get configuration
	cfg, err := config.NewConfiguration()
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}
	cfg.ParseFlags()

	// initialize server
	server, closeStorage, err := rest.InitServer(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}
	defer func() {
		if err := closeStorage(); err != nil {
			log.Error().Err(err).Msg("storage closing failed")
		}
	}()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Msg("server start attempted")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	// graceful shutdown on signal or server failure
	g.Go(func() error {
		<-gCtx.Done()
		log.Info().Msg("server shutdown attempted")
		ctxTO, cancelTO := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelTO()
		return server.Shutdown(ctxTO)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return
	}
	log.Info().Msg("server shutdown succeeded")
}

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/api/rest"
	"github.com/danilovkiri/dk-go-donations/internal/config"
	"github.com/danilovkiri/dk-go-donations/internal/logger"
	"github.com/joho/godotenv"
)

func main() {
	wg := &sync.WaitGroup{}

	// a missing .env is fine, the environment may be set by other means
	envErr := godotenv.Load()

	// get configuration
	cfg, err := config.NewConfiguration()
	if err != nil {
		logger.InitLog("").Fatal().Err(err).Msg("reading configuration failed")
	}
	if err = cfg.ParseFlags(flag.CommandLine, os.Args[1:]); err != nil {
		logger.InitLog("").Fatal().Err(err).Msg("parsing flags failed")
	}

	log := logger.InitLog(cfg.LogConfig.Level)
	if envErr != nil {
		log.Debug().Err(envErr).Msg(".env file was not loaded")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// initialize server
	server, err := rest.InitServer(ctx, cfg, log, wg)
	if err != nil {
		log.Fatal().Err(err).Msg("server initialization failed")
	}

	// set a listener for graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-done
		log.Info().Msg("server shutdown attempted")
		ctxTO, cancelTO := context.WithTimeout(ctx, 5*time.Second)
		defer cancelTO()
		if err := server.Shutdown(ctxTO); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
		cancel()
	}()

	// start up the server
	log.Info().Str("address", cfg.ServerConfig.ServerAddress).Str("env", cfg.ServerConfig.Environment).Msg("server start attempted")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
	wg.Wait()
	log.Info().Msg("server shutdown succeeded")
}

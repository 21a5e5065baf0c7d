package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/danilovkiri/dk-go-donations/internal/authoritymock"
	"github.com/danilovkiri/dk-go-donations/internal/client/openpayments"
	"github.com/danilovkiri/dk-go-donations/internal/logger"
	"github.com/joho/godotenv"
)

type ServerConfig struct {
	ServerAddress  string `env:"MOCK_RUN_ADDRESS"`
	BaseURL        string `env:"MOCK_BASE_URL"`
	AssetCode      string `env:"MOCK_ASSET_CODE" envDefault:"USD"`
	AssetScale     int32  `env:"MOCK_ASSET_SCALE" envDefault:"2"`
	AutoApprove    bool   `env:"MOCK_AUTO_APPROVE"`
	FailPercent    int    `env:"MOCK_FAIL_PERCENT"`
	PrivateKeyPath string `env:"OPEN_PAYMENTS_PRIVATE_KEY_PATH"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
}

func NewServerConfig() (*ServerConfig, error) {
	cfg := ServerConfig{}
	err := env.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func (c *ServerConfig) ParseFlags() {
	a := flag.String("a", ":7070", "Server address")
	approve := flag.Bool("approve", false, "Approve interactive grants without user interaction")
	fail := flag.Int("fail", 0, "Percentage of resource server calls answered with 500")
	flag.Parse()
	if isFlagPassed("a") || c.ServerAddress == "" {
		c.ServerAddress = *a
	}
	if isFlagPassed("approve") {
		c.AutoApprove = *approve
	}
	if isFlagPassed("fail") {
		c.FailPercent = *fail
	}
}

func main() {
	_ = godotenv.Load()
	cfg, err := NewServerConfig()
	if err != nil {
		logger.InitLog("").Fatal().Err(err).Msg("reading configuration failed")
	}
	cfg.ParseFlags()
	log := logger.InitLog(cfg.LogLevel)

	opts := authoritymock.Options{
		BaseURL:     cfg.BaseURL,
		AssetCode:   cfg.AssetCode,
		AssetScale:  cfg.AssetScale,
		AutoApprove: cfg.AutoApprove,
		FailPercent: cfg.FailPercent,
	}
	// with the client key at hand signatures are verified, otherwise only their presence is checked
	if cfg.PrivateKeyPath != "" {
		signer, err := openpayments.LoadSigner(cfg.PrivateKeyPath, "")
		if err != nil {
			log.Fatal().Err(err).Msg("loading client key failed")
		}
		opts.PublicKey = signer.PublicKey()
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           authoritymock.New(opts, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		done := make(chan os.Signal, 1)
		signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		<-done
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("mock shutdown failed")
		}
	}()

	log.Info().Str("address", cfg.ServerAddress).Bool("auto_approve", cfg.AutoApprove).Msg("payment authority mock started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("mock server failed")
	}
}

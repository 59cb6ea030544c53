package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"portfolio_tracker/internal/app/service"
	"portfolio_tracker/internal/app/session"
	dexscreener "portfolio_tracker/internal/client"
	"portfolio_tracker/internal/infrastructure/configloader"
	"portfolio_tracker/internal/infrastructure/console"
	"portfolio_tracker/internal/infrastructure/metrics"
	chainclient "portfolio_tracker/internal/infrastructure/network/client"
	networkdefinition "portfolio_tracker/internal/infrastructure/network/definition"
	"portfolio_tracker/internal/infrastructure/network/transport"
	"portfolio_tracker/internal/infrastructure/restapi"
	"portfolio_tracker/internal/infrastructure/store"
	"portfolio_tracker/internal/infrastructure/tokenloader"
	"portfolio_tracker/internal/infrastructure/walletloader"
	"portfolio_tracker/internal/pkg/logger"
)

var globals struct {
	configPath string
	dataPath   string
	logLevel   string
}

// app holds everything a subcommand needs, wired from the configuration.
type app struct {
	cfg       *configloader.Config
	zap       *zap.Logger
	metrics   *metrics.Metrics
	transport *transport.TransportImpl
	engine    *service.PortfolioServiceImpl
	session   *session.Session
}

func setup() (*app, error) {
	cfg, err := configloader.Load(globals.configPath)
	if err != nil {
		return nil, err
	}
	if globals.dataPath != "" {
		cfg.Store.Path = globals.dataPath
	}
	if globals.logLevel != "" {
		cfg.Logging.Level = globals.logLevel
	}

	zapLogger, err := logger.Init(logger.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	zapLogger.Info("Configuration loaded", zap.String("config", globals.configPath), zap.String("data", cfg.Store.Path))

	m := metrics.New()
	tr := transport.New(transport.Options{
		RequestTimeout: cfg.Transport.RequestTimeout(),
		MaxRetries:     cfg.Transport.MaxRetries,
		BackoffBase:    cfg.Transport.BackoffBase(),
		RatePerSecond:  cfg.Transport.RatePerSecond,
		Burst:          cfg.Transport.Burst,
		ClientIdle:     cfg.Transport.ClientIdle(),
	}, zapLogger, m)

	adapters := chainclient.NewDefaultRegistry(tr, logger.Named("ChainAdapter"))
	dexClient := dexscreener.NewDEXScreenerClient(tr, cfg.Price.BaseURL, cfg.Price.RequestTimeout(), zapLogger, cfg.Price.MaxTokensPerRequest)
	prices := service.NewTokenPriceService(dexClient, logger.Named("TokenPriceService"), cfg.Price, m)
	engine := service.NewPortfolioService(adapters, prices, logger.Named("PortfolioService"), cfg.Engine, m)

	con := console.New(os.Stdin, os.Stdout, cfg.Session.Prompt)
	importLog := logger.Named("Import")
	sess := session.New(session.Deps{
		Console:   con,
		Store:     store.New(cfg.Store, logger.Named("Store")),
		Engine:    engine,
		Adapters:  adapters,
		Prices:    prices,
		Passwords: console.NewPasswordSource(cfg.Store.PasswordEnv, con),
		Tokens:    tokenloader.NewTokenLoader(importLog.Info, importLog.Warn),
		Accounts:  walletloader.NewAccountFileLoader(importLog.Info),
		Logger:    logger.Named("Session"),
		Catalog:   networkdefinition.DefaultChains(),
		Config:    cfg.Session,
		Path:      cfg.Store.Path,
	})

	return &app{cfg: cfg, zap: zapLogger, metrics: m, transport: tr, engine: engine, session: sess}, nil
}

// serveStatus starts the local status server when configured. The returned func stops it.
func (a *app) serveStatus(ctx context.Context) func() {
	if a.cfg.Status.ListenAddr == "" {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	router := restapi.SetupRouter(restapi.NewPortfolioHandler(a.engine), a.metrics.Registry, a.cfg.Status.CORSOrigins, a.zap)
	server := restapi.NewServer(a.cfg.Status.ListenAddr, router, a.zap)
	go func() {
		defer close(done)
		if err := server.Run(ctx); err != nil {
			a.zap.Error("Status server stopped", zap.Error(err))
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (a *app) close() {
	a.transport.Close()
	logger.Sync()
}

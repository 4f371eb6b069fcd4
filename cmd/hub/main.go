package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/heodongun/DongunCoinHub/internal/auth"
	"github.com/heodongun/DongunCoinHub/internal/config"
	"github.com/heodongun/DongunCoinHub/internal/engine"
	"github.com/heodongun/DongunCoinHub/internal/events"
	"github.com/heodongun/DongunCoinHub/internal/external"
	"github.com/heodongun/DongunCoinHub/internal/handlers"
	"github.com/heodongun/DongunCoinHub/internal/health"
	"github.com/heodongun/DongunCoinHub/internal/logging"
	"github.com/heodongun/DongunCoinHub/internal/metrics"
	"github.com/heodongun/DongunCoinHub/internal/pricing"
	"github.com/heodongun/DongunCoinHub/internal/rate"
	"github.com/heodongun/DongunCoinHub/internal/storage"
	"github.com/heodongun/DongunCoinHub/internal/workers"
	"github.com/heodongun/DongunCoinHub/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.App.LogLevel, cfg.App.ServiceName, cfg.App.Env)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)

	engineMetrics := engine.NewMetrics()
	engineMetrics.Register(registry)

	ready := health.NewState()

	ctx := context.Background()
	pool, err := storage.Connect(ctx, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name, cfg.DB.User, cfg.DB.Password, cfg.DB.SSLMode)
	if err != nil {
		logger.Error("db connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := storage.Migrate(ctx, pool); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}

	store := storage.New(pool, logger)

	var publisher events.Publisher
	if cfg.Kafka.Enabled {
		producerMetrics := events.NewProducerMetrics(registry)
		producer, err := events.NewSyncProducer(cfg.Kafka.Brokers, logger, producerMetrics)
		if err != nil {
			logger.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		publisher = producer
	}

	quoteSource := external.NewCoinGeckoClient(cfg.Pricing.QuoteBaseURL, cfg.Pricing.VsCurrency)
	gateway := pricing.NewGateway(quoteSource, store, cfg.Pricing.CacheTTL, logger)

	chainClient := external.NewWeb3Client(cfg.Chain.RPCURL, cfg.Chain.ContractAddress)
	etherscan := external.NewEtherscanClient(cfg.Chain.EtherscanBaseURL, cfg.Chain.EtherscanAPIKey)

	settlement := engine.NewSettlement(store, gateway, publisher, cfg.Kafka.Topics.TradesExecuted, engineMetrics, logger)
	custody := engine.NewCustody(store, chainClient, publisher,
		cfg.Kafka.Topics.WithdrawalsCompleted, cfg.Kafka.Topics.WithdrawalsFailed,
		engine.CustodyConfig{
			MinConfirmations: cfg.Chain.MinConfirmations,
			ConfirmWait:      cfg.Chain.ConfirmWait,
			ConfirmPoll:      cfg.Chain.ConfirmPoll,
		}, engineMetrics, logger)
	valuation := engine.NewValuation(store, gateway, logger)

	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	loginLimiter := rate.NewMemory(10, time.Minute)

	hub := ws.NewHub(logger)

	router := handlers.NewRouter(handlers.RouterDeps{
		Logger:    logger,
		Registry:  registry,
		Health:    ready,
		Issuer:    issuer,
		Auth:      handlers.NewAuthHandler(store, issuer, loginLimiter, logger),
		Trade:     handlers.NewTradeHandler(settlement, store, logger),
		Account:   handlers.NewAccountHandler(valuation, logger),
		Market:    handlers.NewMarketHandler(store, gateway, logger),
		NFT:       handlers.NewNFTHandler(custody, store, logger),
		Onchain:   handlers.NewOnchainHandler(store, logger),
		Watchlist: handlers.NewWatchlistHandler(store, logger),
		Tickers:   hub.Handler(),
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.App.HTTP.Host, cfg.App.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.App.HTTP.ReadTimeout,
		WriteTimeout: cfg.App.HTTP.WriteTimeout,
		IdleTimeout:  cfg.App.HTTP.IdleTimeout,
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	runner := workers.NewRunner(logger)
	priceCollector := workers.NewPriceCollector(store, quoteSource, hub, logger)
	chainCollector := workers.NewChainCollector(store, etherscan, cfg.Chain.Name, logger)
	withdrawalDrainer := workers.NewWithdrawalDrainer(store, custody, logger)

	runner.Start(workerCtx, "price_collector", cfg.Workers.PriceInterval, priceCollector.Run)
	runner.Start(workerCtx, "chain_collector", cfg.Workers.ChainInterval, chainCollector.Run)
	runner.Start(workerCtx, "withdrawal_drainer", cfg.Workers.WithdrawalInterval, withdrawalDrainer.Run)

	ready.SetReady(true)

	go func() {
		logger.Info("http server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutdown started")
	ready.SetReady(false)
	workerCancel()

	shutdownCtx, cancelTimeout := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelTimeout()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	runner.Wait()
	logger.Info("shutdown complete")
}

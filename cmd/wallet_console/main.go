package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"wallet_console/internal/app/provider"
	"wallet_console/internal/app/service"
	"wallet_console/internal/infrastructure/configloader"
	evmclient "wallet_console/internal/infrastructure/network/client"
	networkdefinition "wallet_console/internal/infrastructure/network/definition"
	"wallet_console/internal/infrastructure/restapi"
	"wallet_console/internal/infrastructure/walletbridge"
	"wallet_console/internal/pkg/logger"
	"wallet_console/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

func main() {
	// Configuration is loaded before zap exists, so the loader reports through logrus.
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	cfgPath := configloader.PathFromEnv()
	cfg, err := configloader.Load(cfgPath)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.Init(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		logrus.Fatalf("Failed to initialize zap logger: %v", err)
	}
	defer zapLogger.Sync() //nolint:errcheck // flushes buffer, if any
	appLogger := logger.NewSlogAdapter()
	appLogger.Info("Configuration loaded", "path", cfgPath, "network", cfg.Chain.Identifier)

	if cfg.Logging.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Metrics.Enabled {
		metrics.MustRegisterMetrics(prometheus.DefaultRegisterer)
	}

	networkProvider := networkdefinition.NewNetworkDefinitionProvider(logger.Named("NetworkDefinitionProvider"))
	netDef, err := networkProvider.Resolve(cfg.Chain.Identifier, cfg.Chain.ChainID, cfg.Chain.NativeSymbol, cfg.Chain.RPCURL, cfg.Chain.FallbackRPCURLs)
	if err != nil {
		logger.Fatal("Failed to resolve network definition", "error", err)
	}
	appLogger.Info("Network selected", "name", netDef.Name, "chain_id", netDef.ChainID, "native_symbol", netDef.NativeSymbol)

	registry, err := provider.NewAssetRegistry(cfg.Assets, cfg.AssetsFile, netDef, logger.Named("AssetRegistry"))
	if err != nil {
		logger.Fatal("Failed to build asset registry", "error", err)
	}

	chain := evmclient.NewEVMClientProvider(netDef, evmclient.ProviderConfig{
		ConnectionTimeout: time.Duration(cfg.Chain.ConnectTimeoutSeconds) * time.Second,
		RPCCallTimeout:    time.Duration(cfg.Chain.RPCCallTimeoutSeconds) * time.Second,
		RateLimit:         cfg.Chain.RateLimit,
		BurstLimit:        cfg.Chain.BurstLimit,
	}, logger.Named("EVMClientProvider"))
	defer chain.Close()

	bridge := walletbridge.New(walletbridge.Config{
		RPCURL:          cfg.WalletBridge.RPCURL,
		EventsURL:       cfg.WalletBridge.EventsURL,
		RequestTimeout:  time.Duration(cfg.WalletBridge.RequestTimeoutMillis) * time.Millisecond,
		ApprovalTimeout: time.Duration(cfg.WalletBridge.ApprovalTimeoutSeconds) * time.Second,
		ReconnectDelay:  time.Duration(cfg.WalletBridge.ReconnectDelaySeconds) * time.Second,
	}, zapLogger)
	defer bridge.Close()

	aggregator := service.NewBalanceAggregator(chain, registry, netDef.NativeSymbol, logger.Named("BalanceAggregator"), cfg.Aggregator.MaxConcurrentQueries)
	submitter := service.NewTransferSubmitter(chain, bridge, aggregator, logger.Named("TransferSubmitter"))
	transferLog := service.NewTransferLog(
		time.Duration(cfg.TransferLog.TTLMinutes)*time.Minute,
		time.Duration(cfg.TransferLog.CleanupIntervalMinutes)*time.Minute,
	)
	session := service.NewSessionController(bridge, aggregator, submitter, transferLog, logger.Named("SessionController"))
	appLogger.Info("Services initialized", "assets", len(registry.Entries()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := session.Run(ctx); err != nil {
			appLogger.Error("Session controller stopped", "error", err)
		}
	}()
	if cfg.WalletBridge.EventsURL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bridge.Listen(ctx); err != nil {
				appLogger.Error("Wallet event listener stopped", "error", err)
			}
		}()
	}

	routerOpts := restapi.RouterOptions{
		AllowOrigins: cfg.Server.AllowOrigins,
		EnablePprof:  cfg.Server.EnablePprof,
		Logger:       zapLogger,
	}
	if cfg.Metrics.Enabled {
		routerOpts.MetricsPath = cfg.Metrics.Path
		routerOpts.MetricsHandler = promhttp.Handler()
		appLogger.Info("Prometheus metrics endpoint enabled", "path", cfg.Metrics.Path)
	}
	router := restapi.SetupRouter(restapi.NewSessionHandler(session, logger.Named("SessionHandler")), routerOpts)

	srv := &http.Server{
		Addr:         net.JoinHostPort("", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		zapLogger.Info(fmt.Sprintf("Server starting on port %s", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	wg.Wait()

	zapLogger.Info("Server exiting")
}

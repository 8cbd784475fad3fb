package daemon

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/config"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/config/di"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/messenger"
	"go.uber.org/zap"
)

const (
	flushInterval   = 5 * time.Second
	shutdownTimeout = 15 * time.Second
)

var container *di.Container

func Execute() {
	initialize()
	defer func() {
		if err := container.Delete(); err != nil {
			zap.L().With(zap.Error(err)).Error("Daemon: Failed to close services")
		}
		_ = zap.L().Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx, config.Get(), container); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Daemon: Stopped with error")
	}
}

func initialize() {
	config.Init()

	var err error
	container, err = di.NewContainer(config.Get())
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Daemon: Failed to build container")
	}

	zap.L().Info("Marketplace daemon started")
}

// Run serves the API until ctx is done. Notifications are indexed and queued when configured.
func Run(ctx context.Context, cfg *config.Config, container *di.Container) error {
	if _, err := container.GetMarketplace(); err != nil {
		return err
	}

	events := container.GetEventManager()
	indexerDone := make(chan struct{})
	indexerCtx, stopIndexer := context.WithCancel(context.Background())
	defer stopIndexer()

	if cfg.ElasticSearch.Enabled {
		elastic, err := container.GetElastic()
		if err != nil {
			return err
		}
		if err := elastic.InstallMappings(ctx); err != nil {
			return err
		}

		marketplaceIndexer := container.GetMarketplaceIndexer()
		marketplaceIndexer.Subscribe(events)
		go func() {
			marketplaceIndexer.Run(indexerCtx, flushInterval)
			close(indexerDone)
		}()
	} else {
		close(indexerDone)
	}

	if cfg.Aws.QueueUrl != "" {
		messageService, err := container.GetMessenger()
		if err != nil {
			return err
		}
		messenger.Publish(events, messageService, messenger.MarketplaceActions)
	}

	server, err := container.GetApiServer()
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Api.Port,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.Api.Timeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Api.Timeout) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		zap.L().Info("Serving marketplace on :" + cfg.Api.Port)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		zap.L().Info("Daemon: Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zap.L().With(zap.Error(err)).Error("Daemon: Failed to shut down http server")
	}

	// drain listeners before the final flush
	events.Close()
	stopIndexer()
	<-indexerDone

	return nil
}

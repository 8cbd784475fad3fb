package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/config"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/config/di"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/indexer"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/messenger"
	"go.uber.org/zap"
)

func main() {
	config.Init()

	container, err := di.NewContainer(config.Get())
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to build container")
	}
	defer container.Delete()

	messageService, err := container.GetMessenger()
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to create messenger")
	}
	elastic, err := container.GetElastic()
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to create elastic client")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := elastic.InstallMappings(ctx); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to install mappings")
	}

	indexer.NewQueueSubscriber(messageService, container.GetMarketplaceIndexer(), messenger.MarketplaceActions, 5*time.Second).Run(ctx)
}

package indexer

import (
	"context"
	"time"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/elastic_search"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/event"
	"go.uber.org/zap"
)

// MarketplaceIndexer buffers marketplace actions and rejections and persists them to the
// search index in batches.
type MarketplaceIndexer interface {
	Subscribe(events *event.Manager)
	IndexAction(action entity.MarketplaceAction)
	IndexRejection(rejection entity.OperationError)
	Flush(ctx context.Context) error
	Run(ctx context.Context, interval time.Duration)
}

type marketplaceIndexer struct {
	elastic elastic_search.Index
}

func NewMarketplaceIndexer(elastic elastic_search.Index) MarketplaceIndexer {
	return marketplaceIndexer{elastic}
}

func (i marketplaceIndexer) Subscribe(events *event.Manager) {
	for _, eventType := range event.ActionEvents {
		events.AddEventListener(eventType, func(msg interface{}) {
			action, ok := msg.(entity.MarketplaceAction)
			if !ok {
				zap.L().With(zap.Any("msg", msg)).Error("MarketplaceIndexer: Unexpected action payload")
				return
			}
			i.IndexAction(action)
		})
	}

	events.AddEventListener(event.OperationRejectedEvent, func(msg interface{}) {
		rejection, ok := msg.(entity.OperationError)
		if !ok {
			zap.L().With(zap.Any("msg", msg)).Error("MarketplaceIndexer: Unexpected rejection payload")
			return
		}
		i.IndexRejection(rejection)
	})
}

func (i marketplaceIndexer) IndexAction(action entity.MarketplaceAction) {
	zap.L().With(
		zap.String("operationId", action.OperationId),
		zap.String("action", string(action.Action)),
		zap.String("collection", action.Collection.String()),
		zap.Uint64("assetId", action.AssetId),
	).Info("MarketplaceIndexer: Index action")

	i.elastic.AddIndexRequest(elastic_search.ActionIndex.Get(), action, elastic_search.ActionCreate)
	i.elastic.BatchPersist(context.Background())
}

func (i marketplaceIndexer) IndexRejection(rejection entity.OperationError) {
	zap.L().With(
		zap.String("operationId", rejection.OperationId),
		zap.String("operation", rejection.Operation),
		zap.String("code", rejection.Code),
	).Info("MarketplaceIndexer: Index rejection")

	i.elastic.AddIndexRequest(elastic_search.RejectionIndex.Get(), rejection, elastic_search.RejectionCreate)
	i.elastic.BatchPersist(context.Background())
}

func (i marketplaceIndexer) Flush(ctx context.Context) error {
	actions, err := i.elastic.Persist(ctx)
	if err != nil {
		zap.L().With(zap.Error(err), zap.Int("actions", actions)).Error("MarketplaceIndexer: Failed to persist")
		return err
	}
	if actions != 0 {
		zap.L().With(zap.Int("actions", actions)).Debug("MarketplaceIndexer: Persisted")
	}

	return nil
}

// Run flushes the buffer every interval until ctx is done, then flushes once more.
func (i marketplaceIndexer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = i.Flush(ctx)
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			_ = i.Flush(flushCtx)
			cancel()
			return
		}
	}
}

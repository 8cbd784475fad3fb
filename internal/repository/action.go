package repository

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/elastic_search"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
	"github.com/olivere/elastic/v7"
)

const DefaultSize = 100

type ActionRepository interface {
	GetActionsForAsset(ctx context.Context, collection entity.Address, assetId uint64, size int) ([]entity.MarketplaceAction, error)
	GetActionsForAccount(ctx context.Context, account entity.Address, size int) ([]entity.MarketplaceAction, error)
	GetRejectionsForCaller(ctx context.Context, caller entity.Address, size int) ([]entity.OperationError, error)
}

type actionRepository struct {
	elastic elastic_search.Index
}

func NewActionRepository(elastic elastic_search.Index) ActionRepository {
	return actionRepository{elastic}
}

// GetActionsForAsset returns the newest actions for the asset, including actions not yet persisted.
func (r actionRepository) GetActionsForAsset(ctx context.Context, collection entity.Address, assetId uint64, size int) ([]entity.MarketplaceAction, error) {
	query := elastic.NewBoolQuery().Must(
		elastic.NewTermQuery("collection", collection.String()),
		elastic.NewTermQuery("assetId", assetId),
	)

	results, err := search(ctx, r.elastic.GetClient().
		Search(elastic_search.ActionIndex.Get()).
		Query(query).
		Sort("time", false).
		Size(sizeOrDefault(size)))

	actions, err := r.findMany(results, err)
	if err != nil {
		return nil, err
	}

	return r.withPending(actions, size, func(a entity.MarketplaceAction) bool {
		return a.Collection == collection && a.AssetId == assetId
	}), nil
}

func (r actionRepository) GetActionsForAccount(ctx context.Context, account entity.Address, size int) ([]entity.MarketplaceAction, error) {
	query := elastic.NewBoolQuery().Should(
		elastic.NewTermQuery("from", account.String()),
		elastic.NewTermQuery("to", account.String()),
	).MinimumNumberShouldMatch(1)

	results, err := search(ctx, r.elastic.GetClient().
		Search(elastic_search.ActionIndex.Get()).
		Query(query).
		Sort("time", false).
		Size(sizeOrDefault(size)))

	actions, err := r.findMany(results, err)
	if err != nil {
		return nil, err
	}

	return r.withPending(actions, size, func(a entity.MarketplaceAction) bool {
		return a.From == account || a.To == account
	}), nil
}

func (r actionRepository) GetRejectionsForCaller(ctx context.Context, caller entity.Address, size int) ([]entity.OperationError, error) {
	results, err := search(ctx, r.elastic.GetClient().
		Search(elastic_search.RejectionIndex.Get()).
		Query(elastic.NewTermQuery("caller", caller.String())).
		Sort("time", false).
		Size(sizeOrDefault(size)))
	if err != nil {
		return nil, err
	}

	rejections := make([]entity.OperationError, 0, len(results.Hits.Hits))
	for _, hit := range results.Hits.Hits {
		var rejection entity.OperationError
		if err := json.Unmarshal(hit.Source, &rejection); err != nil {
			return nil, err
		}
		rejections = append(rejections, rejection)
	}

	return rejections, nil
}

func (r actionRepository) findMany(results *elastic.SearchResult, err error) ([]entity.MarketplaceAction, error) {
	if err != nil {
		return nil, err
	}

	actions := make([]entity.MarketplaceAction, 0, len(results.Hits.Hits))
	for _, hit := range results.Hits.Hits {
		var action entity.MarketplaceAction
		if err := json.Unmarshal(hit.Source, &action); err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}

	return actions, nil
}

// withPending merges buffered actions the index has not received yet, newest first.
func (r actionRepository) withPending(actions []entity.MarketplaceAction, size int, match func(entity.MarketplaceAction) bool) []entity.MarketplaceAction {
	seen := make(map[string]bool, len(actions))
	for _, a := range actions {
		seen[a.Slug()] = true
	}

	for _, req := range r.elastic.GetRequests() {
		action, ok := req.Entity.(entity.MarketplaceAction)
		if !ok || req.Index != elastic_search.ActionIndex.Get() || seen[action.Slug()] || !match(action) {
			continue
		}
		actions = append(actions, action)
	}

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Time.After(actions[j].Time)
	})

	if len(actions) > sizeOrDefault(size) {
		actions = actions[:sizeOrDefault(size)]
	}

	return actions
}

func sizeOrDefault(size int) int {
	if size <= 0 {
		return DefaultSize
	}
	return size
}

package di

import (
	"fmt"
	"time"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/api"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/config"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/custody"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/elastic_search"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/event"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/indexer"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/marketplace"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/messenger"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/repository"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/wallet"
	"github.com/sarulabs/di/v2"
)

func Definitions(cfg *config.Config) []di.Def {
	return []di.Def{
		{
			Name: "event.manager",
			Build: func(ctn di.Container) (interface{}, error) {
				return event.NewManager(), nil
			},
			Close: func(obj interface{}) error {
				obj.(*event.Manager).Close()
				return nil
			},
		},
		{
			Name: "custody.registry",
			Build: func(ctn di.Container) (interface{}, error) {
				registry := custody.NewRegistry()
				if err := registry.LoadGenesis(cfg.Marketplace.GenesisAssets); err != nil {
					return nil, err
				}
				return registry, nil
			},
		},
		{
			Name: "wallet.accounts",
			Build: func(ctn di.Container) (interface{}, error) {
				accounts := wallet.NewAccounts()
				if err := accounts.LoadGenesis(cfg.Marketplace.GenesisBalances); err != nil {
					return nil, err
				}
				return accounts, nil
			},
		},
		{
			Name: "marketplace",
			Build: func(ctn di.Container) (interface{}, error) {
				address, err := entity.ParseAddress(cfg.Marketplace.Address)
				if err != nil {
					return nil, fmt.Errorf("MARKETPLACE_ADDRESS: %w", err)
				}
				operator, err := entity.ParseAddress(cfg.Marketplace.Operator)
				if err != nil {
					return nil, fmt.Errorf("MARKETPLACE_OPERATOR: %w", err)
				}

				return marketplace.New(
					marketplace.Config{
						Address:       address,
						Operator:      operator,
						ListFeeRate:   cfg.Marketplace.ListFeeRate,
						BuyFeeRate:    cfg.Marketplace.BuyFeeRate,
						ForwardBuyFee: cfg.Marketplace.ForwardBuyFee,
						Paused:        cfg.Marketplace.Paused,
						ReentryWait:   time.Duration(cfg.Marketplace.ReentryWaitMs) * time.Millisecond,
					},
					ctn.Get("custody.registry").(*custody.Registry),
					ctn.Get("wallet.accounts").(*wallet.Accounts),
					ctn.Get("event.manager").(*event.Manager),
				)
			},
		},
		{
			Name: "elastic",
			Build: func(ctn di.Container) (interface{}, error) {
				return elastic_search.New(cfg.ElasticSearch, cfg.Aws)
			},
		},
		{
			Name: "action.repo",
			Build: func(ctn di.Container) (interface{}, error) {
				return repository.NewActionRepository(ctn.Get("elastic").(elastic_search.Index)), nil
			},
		},
		{
			Name: "marketplace.indexer",
			Build: func(ctn di.Container) (interface{}, error) {
				return indexer.NewMarketplaceIndexer(ctn.Get("elastic").(elastic_search.Index)), nil
			},
		},
		{
			Name: "messenger",
			Build: func(ctn di.Container) (interface{}, error) {
				client, err := messenger.NewSQSClient(cfg.Aws)
				if err != nil {
					return nil, err
				}
				return messenger.NewMessenger(client, map[messenger.Item]string{
					messenger.MarketplaceActions: cfg.Aws.QueueUrl,
				}), nil
			},
		},
		{
			Name: "api.server",
			Build: func(ctn di.Container) (interface{}, error) {
				var actionRepo repository.ActionRepository
				if cfg.ElasticSearch.Enabled {
					actionRepo = ctn.Get("action.repo").(repository.ActionRepository)
				}

				return api.NewServer(
					ctn.Get("marketplace").(*marketplace.Marketplace),
					ctn.Get("wallet.accounts").(*wallet.Accounts),
					ctn.Get("custody.registry").(*custody.Registry),
					actionRepo,
				), nil
			},
		},
	}
}

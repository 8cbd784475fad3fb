package di

import (
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/api"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/config"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/elastic_search"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/event"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/indexer"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/marketplace"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/messenger"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/repository"
	"github.com/sarulabs/di/v2"
)

// Container gives typed access to the service definitions.
type Container struct {
	ctn di.Container
}

func NewContainer(cfg *config.Config) (*Container, error) {
	builder, err := di.NewBuilder()
	if err != nil {
		return nil, err
	}
	if err := builder.Add(Definitions(cfg)...); err != nil {
		return nil, err
	}

	return &Container{builder.Build()}, nil
}

func (c *Container) GetEventManager() *event.Manager {
	return c.ctn.Get("event.manager").(*event.Manager)
}

func (c *Container) GetMarketplace() (*marketplace.Marketplace, error) {
	m, err := c.ctn.SafeGet("marketplace")
	if err != nil {
		return nil, err
	}
	return m.(*marketplace.Marketplace), nil
}

func (c *Container) GetElastic() (elastic_search.Index, error) {
	e, err := c.ctn.SafeGet("elastic")
	if err != nil {
		return nil, err
	}
	return e.(elastic_search.Index), nil
}

func (c *Container) GetActionRepo() repository.ActionRepository {
	return c.ctn.Get("action.repo").(repository.ActionRepository)
}

func (c *Container) GetMarketplaceIndexer() indexer.MarketplaceIndexer {
	return c.ctn.Get("marketplace.indexer").(indexer.MarketplaceIndexer)
}

func (c *Container) GetMessenger() (messenger.MessageService, error) {
	m, err := c.ctn.SafeGet("messenger")
	if err != nil {
		return nil, err
	}
	return m.(messenger.MessageService), nil
}

func (c *Container) GetApiServer() (api.Server, error) {
	s, err := c.ctn.SafeGet("api.server")
	if err != nil {
		return api.Server{}, err
	}
	return s.(api.Server), nil
}

// Delete closes every built service.
func (c *Container) Delete() error {
	return c.ctn.Delete()
}

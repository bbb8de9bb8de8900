package container

import (
	"livefeed/internal/application/broadcast"
	"livefeed/internal/application/port"
	"livefeed/internal/application/service"
	"livefeed/internal/domain"
)

// Deps 是应用层需要的外部端口
type Deps struct {
	Store     port.StrategyStore
	Discovery port.FeedDiscovery
	Prices    port.PriceSource
	Tokens    port.TokenSearch

	HubObserver     broadcast.Observer
	RefreshObserver service.RefreshObserver
}

// Container 组装应用层服务；服务在首次访问时创建
type Container struct {
	deps Deps

	priceHub    *broadcast.Hub[domain.PriceUpdate]
	strategyHub *broadcast.Hub[[]domain.Strategy]

	resolver     *service.FeedResolver
	priceService *service.PriceService
	refresher    *service.Refresher
	strategies   *service.StrategyRepository
	tokenService *service.TokenService
}

func New(deps Deps) *Container {
	return &Container{
		deps:        deps,
		priceHub:    broadcast.New[domain.PriceUpdate]("prices", broadcast.WithObserver(deps.HubObserver)),
		strategyHub: broadcast.New[[]domain.Strategy]("strategies", broadcast.WithObserver(deps.HubObserver)),
	}
}

func (c *Container) PriceHub() *broadcast.Hub[domain.PriceUpdate] {
	return c.priceHub
}

func (c *Container) StrategyHub() *broadcast.Hub[[]domain.Strategy] {
	return c.strategyHub
}

func (c *Container) FeedResolver() *service.FeedResolver {
	if c.resolver == nil {
		c.resolver = service.NewFeedResolver(c.deps.Discovery)
	}
	return c.resolver
}

func (c *Container) PriceService() *service.PriceService {
	if c.priceService == nil {
		c.priceService = service.NewPriceService(c.FeedResolver(), c.deps.Prices, c.priceHub)
	}
	return c.priceService
}

func (c *Container) Refresher() *service.Refresher {
	if c.refresher == nil {
		c.refresher = service.NewRefresher(c.FeedResolver(), c.PriceService(), c.deps.RefreshObserver)
	}
	return c.refresher
}

func (c *Container) StrategyRepository() *service.StrategyRepository {
	if c.strategies == nil {
		c.strategies = service.NewStrategyRepository(c.deps.Store, c.strategyHub)
	}
	return c.strategies
}

func (c *Container) TokenService() *service.TokenService {
	if c.tokenService == nil {
		c.tokenService = service.NewTokenService(c.deps.Tokens)
	}
	return c.tokenService
}

// Close 停止刷新循环并关闭广播，存储由基础设施容器负责关闭
func (c *Container) Close() error {
	if c.refresher != nil {
		c.refresher.Stop()
	}
	c.priceHub.Close()
	c.strategyHub.Close()
	return nil
}

package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"livefeed/internal/application/port"
	"livefeed/internal/infrastructure/config"
	"livefeed/internal/infrastructure/dexscreener"
	"livefeed/internal/infrastructure/metrics"
	"livefeed/internal/infrastructure/pyth"
	"livefeed/internal/infrastructure/storage"
	"livefeed/internal/infrastructure/storage/composite"
	filestore "livefeed/internal/infrastructure/storage/file"
	postgresrepo "livefeed/internal/infrastructure/storage/postgres"
	redisrepo "livefeed/internal/infrastructure/storage/redis"
	sqliterepo "livefeed/internal/infrastructure/storage/sqlite"
)

// Container 持有所有基础设施依赖（存储、上游客户端、指标）
type Container struct {
	cfg         *config.Config
	metrics     *metrics.Metrics
	store       port.StrategyStore
	redisClient *redis.Client
	pyth        *pyth.Client
	dexscreener *dexscreener.Client
	closeOnce   sync.Once
	closerChain []func() error
}

// New 创建新的容器实例
func New(cfg *config.Config) (*Container, error) {
	c := &Container{
		cfg:         cfg,
		metrics:     metrics.New(),
		closerChain: make([]func() error, 0),
	}

	if err := c.initStorage(); err != nil {
		// 清理已初始化的资源
		_ = c.Close()
		return nil, err
	}

	c.pyth = pyth.New(pyth.Options{
		BaseURL:    cfg.Pyth.BaseURL,
		Timeout:    cfg.PythTimeout(),
		RatePerSec: cfg.Pyth.RatePerSec,
		Burst:      cfg.Pyth.Burst,
		Observer:   c.metrics,
	})
	c.dexscreener = dexscreener.New(cfg.Dexscreener.BaseURL, cfg.DexscreenerTimeout())

	return c, nil
}

// initStorage 按配置顺序初始化存储；第一个为主存储，其余为镜像
func (c *Container) initStorage() error {
	stores := make([]port.StrategyStore, 0, len(c.cfg.Storage.Drivers))
	for _, driver := range c.cfg.Storage.Drivers {
		s, err := c.openStore(driver)
		if err != nil {
			return fmt.Errorf("%s init failed: %w", driver, err)
		}
		stores = append(stores, s)
		c.closerChain = append(c.closerChain, func() error {
			log.Info().Str("driver", driver).Msg("closing strategy store")
			return s.Close()
		})
	}
	if len(stores) == 0 {
		return fmt.Errorf("no storage driver configured")
	}

	if len(stores) == 1 {
		c.store = stores[0]
	} else {
		// closers above already own each store; composite only routes calls
		c.store = composite.New(stores[0], stores[1:]...)
	}
	log.Info().Strs("drivers", c.cfg.Storage.Drivers).Msg("strategy storage initialized")
	return nil
}

func (c *Container) openStore(driver string) (port.StrategyStore, error) {
	switch driver {
	case config.DriverMemory:
		return storage.NewMemoryStore(), nil
	case config.DriverFile:
		return filestore.New(c.cfg.Storage.File.Path)
	case config.DriverSQLite:
		return sqliterepo.New(c.cfg.Storage.SQLite.Path)
	case config.DriverPostgres:
		return postgresrepo.New(c.cfg.Storage.Postgres.DSN)
	case config.DriverRedis:
		if err := c.initRedis(); err != nil {
			return nil, err
		}
		return redisrepo.New(c.redisClient, c.cfg.Storage.Redis.Key), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// initRedis 初始化 Redis 连接
func (c *Container) initRedis() error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.cfg.Storage.Redis.Addr,
		Password: c.cfg.Storage.Redis.Password,
		DB:       c.cfg.Storage.Redis.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	c.redisClient = rdb
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", c.cfg.Storage.Redis.Addr).
		Int("db", c.cfg.Storage.Redis.DB).
		Msg("redis initialized")
	return nil
}

// Config 获取配置
func (c *Container) Config() *config.Config {
	return c.cfg
}

func (c *Container) Metrics() *metrics.Metrics {
	return c.metrics
}

// StrategyStore 获取策略文档存储
func (c *Container) StrategyStore() port.StrategyStore {
	return c.store
}

func (c *Container) Pyth() *pyth.Client {
	return c.pyth
}

func (c *Container) Dexscreener() *dexscreener.Client {
	return c.dexscreener
}

// RedisClient 获取 Redis 客户端（未启用时为 nil）
func (c *Container) RedisClient() *redis.Client {
	return c.redisClient
}

// Close 关闭所有资源（按后进先出顺序）
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for i := len(c.closerChain) - 1; i >= 0; i-- {
			if e := c.closerChain[i](); e != nil {
				log.Error().Err(e).Msg("error closing resource")
				if err == nil {
					err = e
				}
			}
		}
		log.Info().Msg("container closed")
	})
	return err
}

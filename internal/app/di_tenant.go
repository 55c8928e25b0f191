package app

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	tenantHTTP "github.com/allisson/tenantvault/internal/tenant/http"
	tenantRepository "github.com/allisson/tenantvault/internal/tenant/repository"
	"github.com/allisson/tenantvault/internal/tenant/scope"
	tenantUseCase "github.com/allisson/tenantvault/internal/tenant/usecase"
)

// RedisClient returns the Redis client backing the tenant lookup cache, or nil
// when TENANT_CACHE_REDIS_URL is empty.
func (c *Container) RedisClient() (*redis.Client, error) {
	var err error
	c.redisClientInit.Do(func() {
		c.redisClient, err = c.initRedisClient()
		if err != nil {
			c.initErrors["redisClient"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["redisClient"]; exists {
		return nil, storedErr
	}
	return c.redisClient, nil
}

// TenantRepository returns the tenant repository.
func (c *Container) TenantRepository() (tenantUseCase.TenantRepository, error) {
	var err error
	c.tenantRepoInit.Do(func() {
		c.tenantRepo, err = c.initTenantRepository()
		if err != nil {
			c.initErrors["tenantRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tenantRepo"]; exists {
		return nil, storedErr
	}
	return c.tenantRepo, nil
}

// TenantCache returns the tenant lookup cache.
func (c *Container) TenantCache() (tenantRepository.TenantCache, error) {
	var err error
	c.tenantCacheInit.Do(func() {
		c.tenantCache, err = c.initTenantCache()
		if err != nil {
			c.initErrors["tenantCache"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tenantCache"]; exists {
		return nil, storedErr
	}
	return c.tenantCache, nil
}

// TenantLookup returns the cached tenant lookup used by the resolver.
func (c *Container) TenantLookup() (*tenantRepository.CachedLookup, error) {
	var err error
	c.tenantLookupInit.Do(func() {
		c.tenantLookup, err = c.initTenantLookup()
		if err != nil {
			c.initErrors["tenantLookup"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tenantLookup"]; exists {
		return nil, storedErr
	}
	return c.tenantLookup, nil
}

// Resolver returns the tenant context resolver.
func (c *Container) Resolver() (*scope.Resolver, error) {
	var err error
	c.resolverInit.Do(func() {
		c.resolver, err = c.initResolver()
		if err != nil {
			c.initErrors["resolver"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["resolver"]; exists {
		return nil, storedErr
	}
	return c.resolver, nil
}

// Guard returns the tenant boundary guard.
func (c *Container) Guard() (*scope.Guard, error) {
	var err error
	c.guardInit.Do(func() {
		c.guard, err = c.initGuard()
		if err != nil {
			c.initErrors["guard"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["guard"]; exists {
		return nil, storedErr
	}
	return c.guard, nil
}

// TenantUseCase returns the tenant administration use case.
func (c *Container) TenantUseCase() (tenantUseCase.TenantUseCase, error) {
	var err error
	c.tenantUseCaseInit.Do(func() {
		c.tenantUseCase, err = c.initTenantUseCase()
		if err != nil {
			c.initErrors["tenantUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tenantUseCase"]; exists {
		return nil, storedErr
	}
	return c.tenantUseCase, nil
}

// TenantHandler returns the admin tenant HTTP handler.
func (c *Container) TenantHandler() (*tenantHTTP.TenantHandler, error) {
	var err error
	c.tenantHandlerInit.Do(func() {
		c.tenantHandler, err = c.initTenantHandler()
		if err != nil {
			c.initErrors["tenantHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tenantHandler"]; exists {
		return nil, storedErr
	}
	return c.tenantHandler, nil
}

func (c *Container) initRedisClient() (*redis.Client, error) {
	if c.config.TenantCacheRedisURL == "" {
		return nil, nil
	}
	client, err := tenantRepository.ConnectRedis(c.ctx, c.config.TenantCacheRedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// initTenantRepository creates the tenant repository for the configured driver.
func (c *Container) initTenantRepository() (tenantUseCase.TenantRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tenant repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return tenantRepository.NewMySQLTenantRepository(db), nil
	case "postgres":
		return tenantRepository.NewPostgreSQLTenantRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initTenantCache() (tenantRepository.TenantCache, error) {
	client, err := c.RedisClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get redis client for tenant cache: %w", err)
	}
	if client == nil {
		return &tenantRepository.NoOpCache{}, nil
	}
	c.Logger().Info("tenant lookup cache enabled", slog.Duration("ttl", c.config.TenantCacheTTL))
	return tenantRepository.NewRedisCache(client, c.config.TenantCacheTTL), nil
}

func (c *Container) initTenantLookup() (*tenantRepository.CachedLookup, error) {
	repo, err := c.TenantRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant repository for tenant lookup: %w", err)
	}

	cache, err := c.TenantCache()
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant cache for tenant lookup: %w", err)
	}

	return tenantRepository.NewCachedLookup(repo, cache, c.Logger()), nil
}

func (c *Container) initResolver() (*scope.Resolver, error) {
	lookup, err := c.TenantLookup()
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant lookup for resolver: %w", err)
	}

	security, err := c.SecurityMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get security metrics for resolver: %w", err)
	}

	return scope.NewResolver(lookup, c.config.TenantBaseDomain, security, c.Logger()), nil
}

func (c *Container) initGuard() (*scope.Guard, error) {
	security, err := c.SecurityMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get security metrics for guard: %w", err)
	}
	return scope.NewGuard(security, c.Logger()), nil
}

// initTenantUseCase wires provisioning to the key hierarchy so every new tenant
// gets key version 1 at creation time.
func (c *Container) initTenantUseCase() (tenantUseCase.TenantUseCase, error) {
	repo, err := c.TenantRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant repository for tenant use case: %w", err)
	}

	resolver, err := c.Resolver()
	if err != nil {
		return nil, fmt.Errorf("failed to get resolver for tenant use case: %w", err)
	}

	keys, err := c.KeyHierarchyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get key hierarchy use case for tenant use case: %w", err)
	}

	lookup, err := c.TenantLookup()
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant lookup for tenant use case: %w", err)
	}

	return tenantUseCase.NewTenantUseCase(repo, resolver, keys, lookup, c.Logger()), nil
}

func (c *Container) initTenantHandler() (*tenantHTTP.TenantHandler, error) {
	useCase, err := c.TenantUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant use case for tenant handler: %w", err)
	}

	resolver, err := c.Resolver()
	if err != nil {
		return nil, fmt.Errorf("failed to get resolver for tenant handler: %w", err)
	}

	keys, err := c.KeyHierarchyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get key hierarchy use case for tenant handler: %w", err)
	}

	return tenantHTTP.NewTenantHandler(useCase, resolver, keys, c.Logger()), nil
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	tenantDomain "github.com/allisson/tenantvault/internal/tenant/domain"
)

const tenantCachePrefix = "tenantvault:tenant:"

// TenantCache is the interface for tenant caching implementations.
type TenantCache interface {
	// Get retrieves a tenant from cache by key.
	Get(ctx context.Context, key string) (*tenantDomain.Tenant, bool)

	// Set stores a tenant in cache.
	Set(ctx context.Context, key string, tenant *tenantDomain.Tenant) error

	// Delete removes entries from cache.
	Delete(ctx context.Context, keys ...string) error
}

// NoOpCache disables caching.
type NoOpCache struct{}

func (n *NoOpCache) Get(ctx context.Context, key string) (*tenantDomain.Tenant, bool) {
	return nil, false
}

func (n *NoOpCache) Set(ctx context.Context, key string, tenant *tenantDomain.Tenant) error {
	return nil
}

func (n *NoOpCache) Delete(ctx context.Context, keys ...string) error {
	return nil
}

// cachedTenant is the JSON layout stored in Redis.
type cachedTenant struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	RoutingKey string    `json:"routing_key"`
	Plan       string    `json:"plan"`
	IsActive   bool      `json:"is_active"`
	IsAdmin    bool      `json:"is_admin"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RedisCache stores tenants in Redis with a fixed TTL.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCache creates a RedisCache.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached tenant. Misses, Redis errors and undecodable entries are
// all reported as a miss so resolution falls back to the database.
func (r *RedisCache) Get(ctx context.Context, key string) (*tenantDomain.Tenant, bool) {
	data, err := r.client.Get(ctx, tenantCachePrefix+key).Bytes()
	if err != nil {
		return nil, false
	}

	var cached cachedTenant
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}

	return &tenantDomain.Tenant{
		ID:         cached.ID,
		Name:       cached.Name,
		RoutingKey: cached.RoutingKey,
		Plan:       tenantDomain.Plan(cached.Plan),
		IsActive:   cached.IsActive,
		IsAdmin:    cached.IsAdmin,
		CreatedAt:  cached.CreatedAt,
		UpdatedAt:  cached.UpdatedAt,
	}, true
}

// Set stores tenant under key.
func (r *RedisCache) Set(ctx context.Context, key string, tenant *tenantDomain.Tenant) error {
	data, err := json.Marshal(cachedTenant{
		ID:         tenant.ID,
		Name:       tenant.Name,
		RoutingKey: tenant.RoutingKey,
		Plan:       string(tenant.Plan),
		IsActive:   tenant.IsActive,
		IsAdmin:    tenant.IsAdmin,
		CreatedAt:  tenant.CreatedAt,
		UpdatedAt:  tenant.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal tenant: %w", err)
	}
	return r.client.Set(ctx, tenantCachePrefix+key, data, r.ttl).Err()
}

// Delete removes keys from Redis.
func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = tenantCachePrefix + key
	}
	return r.client.Del(ctx, prefixed...).Err()
}

var (
	// ErrFailedToParseRedisURL is returned when TENANT_CACHE_REDIS_URL is invalid.
	ErrFailedToParseRedisURL = errors.New("failed to parse redis connection url")
	// ErrRedisNotReady is returned when Redis does not answer a ping.
	ErrRedisNotReady = errors.New("redis is not ready")
)

// ConnectRedis parses url and pings the server, retrying a few times.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisURL, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for range 3 {
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(time.Second):
		}
	}
	return nil, ErrRedisNotReady
}

// TenantReader is the unscoped read side of a tenant repository.
type TenantReader interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error)
	GetByRoutingKey(ctx context.Context, routingKey string) (*tenantDomain.Tenant, error)
}

// CachedLookup implements scope.TenantLookup on top of a repository and a cache.
// Only found tenants are cached.
type CachedLookup struct {
	repo   TenantReader
	cache  TenantCache
	logger *slog.Logger
}

// NewCachedLookup creates a CachedLookup.
func NewCachedLookup(repo TenantReader, cache TenantCache, logger *slog.Logger) *CachedLookup {
	return &CachedLookup{repo: repo, cache: cache, logger: logger}
}

func routingKeyCacheKey(routingKey string) string {
	return "rk:" + routingKey
}

func idCacheKey(tenantID uuid.UUID) string {
	return "id:" + tenantID.String()
}

// FindByRoutingKey looks up a tenant by routing key.
func (c *CachedLookup) FindByRoutingKey(ctx context.Context, routingKey string) (*tenantDomain.Tenant, error) {
	key := routingKeyCacheKey(routingKey)
	if tenant, ok := c.cache.Get(ctx, key); ok {
		return tenant, nil
	}

	tenant, err := c.repo.GetByRoutingKey(ctx, routingKey)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, tenant)
	return tenant, nil
}

// FindByID looks up a tenant by ID.
func (c *CachedLookup) FindByID(ctx context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error) {
	key := idCacheKey(tenantID)
	if tenant, ok := c.cache.Get(ctx, key); ok {
		return tenant, nil
	}

	tenant, err := c.repo.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, tenant)
	return tenant, nil
}

// Invalidate drops every cache entry of tenant. Called after any status change.
func (c *CachedLookup) Invalidate(ctx context.Context, tenant *tenantDomain.Tenant) error {
	return c.cache.Delete(ctx, routingKeyCacheKey(tenant.RoutingKey), idCacheKey(tenant.ID))
}

func (c *CachedLookup) store(ctx context.Context, key string, tenant *tenantDomain.Tenant) {
	if err := c.cache.Set(ctx, key, tenant); err != nil {
		c.logger.WarnContext(ctx, "failed to cache tenant",
			slog.String("tenant_id", tenant.ID.String()),
			slog.Any("error", err),
		)
	}
}

package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const gatewayCachePrefix = "gateway:deposit-contract:"

// GatewayCache caches the settlement-network deposit contract address per
// chain. The address is read on every deposit but changes rarely, so entries
// carry a TTL instead of explicit invalidation.
type GatewayCache struct {
	ttl time.Duration
}

var (
	getCacheValue = Get
	setCacheValue = Set
)

// NewGatewayCache creates a gateway contract address cache.
func NewGatewayCache(ttl time.Duration) *GatewayCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &GatewayCache{ttl: ttl}
}

// GetDepositContract returns the cached deposit contract address for a chain,
// or "" when the entry is missing or expired.
func (c *GatewayCache) GetDepositContract(ctx context.Context, chain string) (string, error) {
	val, err := getCacheValue(ctx, gatewayCachePrefix+chain)
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// SetDepositContract stores the deposit contract address for a chain.
func (c *GatewayCache) SetDepositContract(ctx context.Context, chain, address string) error {
	return setCacheValue(ctx, gatewayCachePrefix+chain, address, c.ttl)
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/excavator/rental-api/internal/core/domain"
	"github.com/excavator/rental-api/internal/core/ports"
	"github.com/excavator/rental-api/internal/infrastructure/metrics"
)

const defaultIdentityTTL = time.Minute

// cacheClient is the subset of *redis.Client the cache needs.
type cacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// IdentityCache is a read-through cache in front of a CredentialStore for
// FindByID, the lookup the access guard performs on every request.
// Key format: identity:<user_id>
//
// Credential material (password hash, refresh digest) is never written to
// Redis; users returned from a cache hit carry neither. Refresh-token checks
// must therefore go to the backing store directly.
type IdentityCache struct {
	client cacheClient
	store  ports.CredentialStore
	ttl    time.Duration
	log    zerolog.Logger
}

// NewIdentityCache wraps store. A non-positive ttl falls back to one minute,
// which bounds how long an out-of-band role change can go unnoticed.
func NewIdentityCache(client cacheClient, store ports.CredentialStore, ttl time.Duration, log zerolog.Logger) *IdentityCache {
	if ttl <= 0 {
		ttl = defaultIdentityTTL
	}
	return &IdentityCache{client: client, store: store, ttl: ttl, log: log}
}

type cachedIdentity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *IdentityCache) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	return c.store.Create(ctx, user)
}

func (c *IdentityCache) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return c.store.FindByEmail(ctx, email)
}

func (c *IdentityCache) FindByID(ctx context.Context, id string) (*domain.User, error) {
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	switch {
	case err == nil:
		var ci cachedIdentity
		if jsonErr := json.Unmarshal(raw, &ci); jsonErr == nil {
			metrics.IdentityCacheTotal.WithLabelValues("hit").Inc()
			return ci.toDomain(), nil
		}
		c.log.Warn().Str("user_id", id).Msg("discarding undecodable identity cache entry")
		metrics.IdentityCacheTotal.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		metrics.IdentityCacheTotal.WithLabelValues("miss").Inc()
	default:
		c.log.Warn().Err(err).Str("user_id", id).Msg("identity cache read failed, using store")
		metrics.IdentityCacheTotal.WithLabelValues("error").Inc()
	}

	user, err := c.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(fromDomain(user)); err == nil {
		if err := c.client.Set(ctx, c.key(id), payload, c.ttl).Err(); err != nil {
			c.log.Warn().Err(err).Str("user_id", id).Msg("identity cache write failed")
		}
	}
	return user, nil
}

// UpdateRefreshToken writes through to the store and drops the cached entry.
func (c *IdentityCache) UpdateRefreshToken(ctx context.Context, id string, tokenHash *string) error {
	if err := c.store.UpdateRefreshToken(ctx, id, tokenHash); err != nil {
		return err
	}
	if err := c.Invalidate(ctx, id); err != nil {
		c.log.Warn().Err(err).Str("user_id", id).Msg("identity cache invalidation failed")
	}
	return nil
}

// Invalidate removes the cached entry for id.
func (c *IdentityCache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("invalidate identity: %w", err)
	}
	return nil
}

func (c *IdentityCache) key(id string) string {
	return "identity:" + id
}

func fromDomain(u *domain.User) cachedIdentity {
	return cachedIdentity{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (ci cachedIdentity) toDomain() *domain.User {
	return &domain.User{
		ID:        ci.ID,
		Email:     ci.Email,
		Username:  ci.Username,
		Role:      domain.Role(ci.Role),
		CreatedAt: ci.CreatedAt,
		UpdatedAt: ci.UpdatedAt,
	}
}

package backend

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"sales-assistant/internal/common/logger"
	"sales-assistant/internal/common/metrics"
)

const (
	keyProjects = "backend:projects"
	keyLeads    = "backend:leads"
)

// Cache is the key/value store behind CachedGateway.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// CachedGateway caches project and lead reads. Writes go straight to the
// gateway and invalidate the affected list keys. Cache failures fall through
// to the gateway.
type CachedGateway struct {
	Gateway
	cache  Cache
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedGateway(next Gateway, cache Cache, ttl time.Duration, log logger.Logger) *CachedGateway {
	return &CachedGateway{
		Gateway: next,
		cache:   cache,
		ttl:     ttl,
		logger:  log.With(map[string]interface{}{"component": "backend-cache"}),
	}
}

func readThrough[T any](ctx context.Context, g *CachedGateway, key string, load func(context.Context) (T, error)) (T, error) {
	if raw, err := g.cache.Get(ctx, key); err == nil {
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return v, nil
		}
		g.logger.Warn("discarding undecodable cache entry", map[string]interface{}{"key": key})
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	if data, err := json.Marshal(v); err == nil {
		if err := g.cache.Set(ctx, key, string(data), g.ttl); err != nil {
			g.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}
	return v, nil
}

func projectKey(id int64) string {
	return "backend:project:" + strconv.FormatInt(id, 10)
}

func (g *CachedGateway) invalidate(ctx context.Context, keys ...string) {
	if err := g.cache.Del(ctx, keys...); err != nil {
		g.logger.Warn("cache invalidation failed", map[string]interface{}{"keys": keys, "error": err.Error()})
	}
}

func (g *CachedGateway) ListProjects(ctx context.Context) ([]Project, error) {
	return readThrough(ctx, g, keyProjects, g.Gateway.ListProjects)
}

func (g *CachedGateway) GetProject(ctx context.Context, id int64) (*Project, error) {
	return readThrough(ctx, g, projectKey(id), func(ctx context.Context) (*Project, error) {
		return g.Gateway.GetProject(ctx, id)
	})
}

func (g *CachedGateway) CreateProject(ctx context.Context, p Project) (*Project, error) {
	created, err := g.Gateway.CreateProject(ctx, p)
	if err == nil {
		g.invalidate(ctx, keyProjects)
	}
	return created, err
}

func (g *CachedGateway) ListLeads(ctx context.Context) ([]Lead, error) {
	return readThrough(ctx, g, keyLeads, g.Gateway.ListLeads)
}

func (g *CachedGateway) GetLead(ctx context.Context, id int64) (*Lead, error) {
	return readThrough(ctx, g, "backend:lead:"+strconv.FormatInt(id, 10), func(ctx context.Context) (*Lead, error) {
		return g.Gateway.GetLead(ctx, id)
	})
}

func (g *CachedGateway) CreateLead(ctx context.Context, l Lead) (*Lead, error) {
	created, err := g.Gateway.CreateLead(ctx, l)
	if err == nil {
		g.invalidate(ctx, keyLeads)
	}
	return created, err
}

func (g *CachedGateway) AutoConnect(ctx context.Context, projectID int64) (*ConnectResult, error) {
	res, err := g.Gateway.AutoConnect(ctx, projectID)
	if err == nil {
		g.invalidate(ctx, keyProjects, keyLeads, projectKey(projectID))
	}
	return res, err
}

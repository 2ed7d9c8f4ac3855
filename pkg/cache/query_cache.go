package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-rag/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-rag/pkg/logging"
	"github.com/ekaya-inc/ekaya-rag/pkg/metrics"
	"github.com/ekaya-inc/ekaya-rag/pkg/models"
)

// QueryCache is the best-effort answer cache used by the query pipeline.
// Backend and codec failures are logged and degrade to a miss or a no-op.
type QueryCache struct {
	store  Store
	logger *zap.Logger
}

// NewQueryCache wraps a Store.
func NewQueryCache(store Store, logger *zap.Logger) *QueryCache {
	return &QueryCache{store: store, logger: logger.Named("cache")}
}

// Get returns the cached result for the tenant's query. The stored value is
// returned as written; callers decide how to flag it.
func (c *QueryCache) Get(ctx context.Context, tenantID uuid.UUID, query string) (*models.QueryResult, bool) {
	key := Key(tenantID, query)

	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.fail("get", tenantID, query, err)
		return nil, false
	}
	if !ok {
		metrics.CacheOperations.WithLabelValues("get", "miss").Inc()
		return nil, false
	}

	var result models.QueryResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.fail("decode", tenantID, query, err)
		return nil, false
	}
	if result.Sources == nil {
		result.Sources = []models.Source{}
	}

	metrics.CacheOperations.WithLabelValues("get", "hit").Inc()
	return &result, true
}

// Put stores result for the tenant's query with the given TTL.
func (c *QueryCache) Put(ctx context.Context, tenantID uuid.UUID, query string, result *models.QueryResult, ttl time.Duration) {
	data, err := json.Marshal(result)
	if err != nil {
		c.fail("encode", tenantID, query, err)
		return
	}

	if err := c.store.Set(ctx, Key(tenantID, query), data, ttl); err != nil {
		c.fail("set", tenantID, query, err)
		return
	}
	metrics.CacheOperations.WithLabelValues("set", "ok").Inc()
}

func (c *QueryCache) fail(op string, tenantID uuid.UUID, query string, err error) {
	cacheErr := &apperrors.CacheError{Op: op, Err: err}
	label := op
	if op == "decode" {
		label = "get"
	} else if op == "encode" {
		label = "set"
	}
	metrics.CacheOperations.WithLabelValues(label, "error").Inc()
	c.logger.Warn("Cache operation failed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("query", logging.TruncateQuery(query)),
		zap.String("error", logging.SanitizeError(cacheErr)))
}

package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/ekaya-inc/ekaya-rag/pkg/database"
	"github.com/ekaya-inc/ekaya-rag/pkg/memstore"
)

// TenantScoper acquires tenant-scoped storage access.
// WithTenantScope returns the scoped context and a cleanup function (MUST be called).
// InTx runs fn in a single transaction bound to the scope carried by ctx.
type TenantScoper interface {
	WithTenantScope(ctx context.Context, tenantID uuid.UUID) (context.Context, func(), error)
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

var (
	_ TenantScoper = (*database.TenantScopeProvider)(nil)
	_ TenantScoper = (*memstore.Store)(nil)
)

// tenantLimiter caps concurrent work per tenant. A limit of zero disables it.
type tenantLimiter struct {
	limit int64

	mu   sync.Mutex
	sems map[uuid.UUID]*semaphore.Weighted
}

func newTenantLimiter(limit int) *tenantLimiter {
	return &tenantLimiter{
		limit: int64(limit),
		sems:  make(map[uuid.UUID]*semaphore.Weighted),
	}
}

// acquire blocks until the tenant has a free slot or ctx is done.
// The returned release function MUST be called.
func (l *tenantLimiter) acquire(ctx context.Context, tenantID uuid.UUID) (func(), error) {
	if l.limit <= 0 {
		return func() {}, nil
	}

	l.mu.Lock()
	sem, ok := l.sems[tenantID]
	if !ok {
		sem = semaphore.NewWeighted(l.limit)
		l.sems[tenantID] = sem
	}
	l.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}

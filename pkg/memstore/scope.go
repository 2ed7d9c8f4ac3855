package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-rag/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-rag/pkg/models"
)

type scopeKey struct{}

type scope struct {
	tenantID uuid.UUID
	tx       *writes
}

// writes buffers a transaction's inserts until commit.
type writes struct {
	documents []models.Document
	chunks    []models.Chunk
	logs      []models.QueryLogEntry
}

func scopeFrom(ctx context.Context) (*scope, bool) {
	sc, ok := ctx.Value(scopeKey{}).(*scope)
	return sc, ok
}

// WithTenantScope returns a context scoped to tenantID. Rows of other tenants
// are invisible through it.
func (s *Store) WithTenantScope(ctx context.Context, tenantID uuid.UUID) (context.Context, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return context.WithValue(ctx, scopeKey{}, &scope{tenantID: tenantID}), func() {}, nil
}

// InTx stages every write made through ctx inside fn and applies them
// atomically when fn returns nil. Nothing is applied on error or panic.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sc, ok := scopeFrom(ctx)
	if !ok {
		return apperrors.ErrNoTenantScope
	}
	if sc.tx != nil {
		return fn(ctx)
	}

	tx := &writes{}
	txCtx := context.WithValue(ctx, scopeKey{}, &scope{tenantID: sc.tenantID, tx: tx})
	if err := fn(txCtx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(tx)
	return nil
}

// stage records w in the transaction carried by ctx, or applies it at once.
func (s *Store) stage(ctx context.Context, w writes) {
	if sc, ok := scopeFrom(ctx); ok && sc.tx != nil {
		sc.tx.documents = append(sc.tx.documents, w.documents...)
		sc.tx.chunks = append(sc.tx.chunks, w.chunks...)
		sc.tx.logs = append(sc.tx.logs, w.logs...)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(&w)
}

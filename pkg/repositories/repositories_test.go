//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-rag/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-rag/pkg/database"
	"github.com/ekaya-inc/ekaya-rag/pkg/models"
	"github.com/ekaya-inc/ekaya-rag/pkg/testhelpers"
)

// tenantContext returns a context carrying a scope for tenantID.
func tenantContext(t *testing.T, appDB *testhelpers.AppDB, tenantID uuid.UUID) context.Context {
	t.Helper()
	provider := database.NewTenantScopeProvider(appDB.DB)
	ctx, cleanup, err := provider.WithTenantScope(context.Background(), tenantID)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return ctx
}

func TestTenantRepository_Exists(t *testing.T) {
	appDB := testhelpers.GetAppDB(t)
	tenantID := appDB.CreateTenant(t, "acme")
	repo := NewTenantRepository()

	ctx := tenantContext(t, appDB, tenantID)
	exists, err := repo.Exists(ctx, tenantID)
	require.NoError(t, err)
	assert.True(t, exists)

	tenant, err := repo.Get(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "acme", tenant.Name)

	missing := uuid.New()
	otherCtx := tenantContext(t, appDB, missing)
	exists, err = repo.Exists(otherCtx, missing)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.Get(otherCtx, missing)
	assert.ErrorIs(t, err, apperrors.ErrTenantNotFound)
}

func TestTenantRepository_OtherTenantIsInvisible(t *testing.T) {
	appDB := testhelpers.GetAppDB(t)
	tenantA := appDB.CreateTenant(t, "a")
	tenantB := appDB.CreateTenant(t, "b")

	ctx := tenantContext(t, appDB, tenantB)
	exists, err := NewTenantRepository().Exists(ctx, tenantA)
	require.NoError(t, err)
	assert.False(t, exists, "row-level security must hide other tenants")
}

func TestTenantRepository_NoScope(t *testing.T) {
	_, err := NewTenantRepository().Exists(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNoTenantScope)
}

func TestDocumentRepository_CreateAndGet(t *testing.T) {
	appDB := testhelpers.GetAppDB(t)
	tenantID := appDB.CreateTenant(t, "docs")
	repo := NewDocumentRepository()
	ctx := tenantContext(t, appDB, tenantID)

	doc := &models.Document{
		TenantID: tenantID,
		Content:  "Machine learning is a field of AI.",
		Metadata: models.Metadata{"source": "wiki", "pages": float64(3)},
	}
	require.NoError(t, repo.Create(ctx, doc))
	assert.NotEqual(t, uuid.Nil, doc.ID)

	got, err := repo.Get(ctx, tenantID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Content, got.Content)
	assert.Equal(t, doc.Metadata, got.Metadata)
	assert.WithinDuration(t, doc.CreatedAt, got.CreatedAt, time.Second)

	n, err := repo.CountChunks(ctx, tenantID, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	noMeta := &models.Document{TenantID: tenantID, Content: "plain"}
	require.NoError(t, repo.Create(ctx, noMeta))
	got, err = repo.Get(ctx, tenantID, noMeta.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Metadata)

	_, err = repo.Get(ctx, tenantID, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDocumentRepository_CascadeOnTenantDelete(t *testing.T) {
	appDB := testhelpers.GetAppDB(t)
	tenantID := appDB.CreateTenant(t, "cascade")
	ctx := tenantContext(t, appDB, tenantID)

	require.NoError(t, NewDocumentRepository().Create(ctx, &models.Document{TenantID: tenantID, Content: "x"}))
	require.NoError(t, NewQueryLogRepository().Create(ctx, &models.QueryLogEntry{TenantID: tenantID, Query: "q", Response: "r"}))
	require.Equal(t, 1, appDB.CountRows(t, "documents", tenantID))

	_, err := appDB.Admin.Exec(context.Background(), "DELETE FROM tenants WHERE id = $1", tenantID)
	require.NoError(t, err)

	assert.Zero(t, appDB.CountRows(t, "documents", tenantID))
	assert.Zero(t, appDB.CountRows(t, "query_logs", tenantID))
}

func TestQueryLogRepository_CreateAndList(t *testing.T) {
	appDB := testhelpers.GetAppDB(t)
	tenantID := appDB.CreateTenant(t, "logs")
	repo := NewQueryLogRepository()
	ctx := tenantContext(t, appDB, tenantID)

	entry := &models.QueryLogEntry{
		TenantID: tenantID,
		Query:    "What is ML?",
		Response: "Machine learning [Source: d1]",
		SourcesUsed: []models.Source{
			{DocumentID: uuid.NewString(), ChunkText: "Machine learning is...", SimilarityScore: 0.91},
		},
	}
	require.NoError(t, repo.Create(ctx, entry))
	require.NoError(t, repo.Create(ctx, &models.QueryLogEntry{TenantID: tenantID, Query: "again", Response: "r", Cached: true}))

	entries, err := repo.ListRecent(ctx, tenantID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var first *models.QueryLogEntry
	for _, e := range entries {
		if e.ID == entry.ID {
			first = e
		}
	}
	require.NotNil(t, first)
	assert.Equal(t, entry.SourcesUsed, first.SourcesUsed)
	assert.False(t, first.Cached)
}

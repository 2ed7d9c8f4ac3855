// Package vectorindex stores chunk embeddings and answers tenant-scoped
// nearest-neighbor queries.
package vectorindex

import (
	"context"
	"math"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-rag/pkg/models"
)

// Index stores chunk vectors and searches them within one tenant.
//
// Search filters by tenant before ranking, orders by descending cosine
// similarity and breaks ties by ascending chunk creation order. A tenant
// with no chunks yields an empty, non-nil slice.
type Index interface {
	Insert(ctx context.Context, chunk *models.Chunk) error
	Search(ctx context.Context, tenantID uuid.UUID, vector []float32, topK int) ([]models.SearchResult, error)
}

// CosineSimilarity returns 1 - cosine distance of a and b. Zero vectors and
// vectors of different length have similarity 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

package handlers

import (
	"context"
	"errors"

	"github.com/ekaya-inc/ekaya-rag/pkg/models"
	"github.com/ekaya-inc/ekaya-rag/pkg/services"
)

type mockIngestService struct {
	result *models.IngestResult
	err    error
	got    *services.IngestRequest
}

func (m *mockIngestService) Ingest(ctx context.Context, req services.IngestRequest) (*models.IngestResult, error) {
	m.got = &req
	return m.result, m.err
}

type mockQueryService struct {
	result *models.QueryResult
	err    error
	got    *services.QueryRequest
}

func (m *mockQueryService) Query(ctx context.Context, req services.QueryRequest) (*models.QueryResult, error) {
	m.got = &req
	return m.result, m.err
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

var errStorageDown = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")

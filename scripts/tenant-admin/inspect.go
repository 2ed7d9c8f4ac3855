package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-rag/pkg/database"
	"github.com/ekaya-inc/ekaya-rag/pkg/repositories"
)

// scoper acquires a tenant-scoped context, as the service does per request.
type scoper interface {
	WithTenantScope(ctx context.Context, tenantID uuid.UUID) (context.Context, func(), error)
}

// inspector reads one tenant's data through the same repositories the
// service uses, so row-level security applies to everything it prints.
type inspector struct {
	scoper    scoper
	tenants   repositories.TenantRepository
	documents repositories.DocumentRepository
	queryLogs repositories.QueryLogRepository
	out       io.Writer
}

func newPostgresInspector(ctx context.Context) (*inspector, func(), error) {
	db, err := database.NewConnection(ctx, &database.Config{URL: buildConnString(), MaxConnections: 2})
	if err != nil {
		return nil, nil, err
	}
	return &inspector{
		scoper:    database.NewTenantScopeProvider(db),
		tenants:   repositories.NewTenantRepository(),
		documents: repositories.NewDocumentRepository(),
		queryLogs: repositories.NewQueryLogRepository(),
		out:       os.Stdout,
	}, db.Close, nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	limit := fs.Int("logs", 10, "Number of recent query log entries to print")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("show requires exactly one <tenant-id>")
	}
	tenantID, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid tenant id: %w", err)
	}

	in, closeDB, err := newPostgresInspector(ctx)
	if err != nil {
		return err
	}
	defer closeDB()
	return in.showTenant(ctx, tenantID, *limit)
}

func runDocument(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("document requires <tenant-id> <document-id>")
	}
	tenantID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid tenant id: %w", err)
	}
	documentID, err := uuid.Parse(args[1])
	if err != nil {
		return fmt.Errorf("invalid document id: %w", err)
	}

	in, closeDB, err := newPostgresInspector(ctx)
	if err != nil {
		return err
	}
	defer closeDB()
	return in.showDocument(ctx, tenantID, documentID)
}

// showTenant prints the tenant and its most recent query log entries.
func (in *inspector) showTenant(ctx context.Context, tenantID uuid.UUID, logLimit int) error {
	tctx, release, err := in.scoper.WithTenantScope(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("acquire tenant scope: %w", err)
	}
	defer release()

	tenant, err := in.tenants.Get(tctx, tenantID)
	if err != nil {
		return fmt.Errorf("get tenant %s: %w", tenantID, err)
	}
	fmt.Fprintf(in.out, "Tenant %s (%s), created %s\n", tenant.ID, tenant.Name, tenant.CreatedAt.Format("2006-01-02 15:04"))

	entries, err := in.queryLogs.ListRecent(tctx, tenantID, logLimit)
	if err != nil {
		return fmt.Errorf("list query logs: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(in.out, "  No queries logged")
		return nil
	}
	fmt.Fprintf(in.out, "Recent queries (%d):\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(in.out, "  %s  cached=%-5t  sources=%d  %s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.Cached, len(e.SourcesUsed), truncate(e.Query, 60))
	}
	return nil
}

// showDocument prints one document with its metadata and chunk count.
func (in *inspector) showDocument(ctx context.Context, tenantID, documentID uuid.UUID) error {
	tctx, release, err := in.scoper.WithTenantScope(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("acquire tenant scope: %w", err)
	}
	defer release()

	doc, err := in.documents.Get(tctx, tenantID, documentID)
	if err != nil {
		return fmt.Errorf("get document %s: %w", documentID, err)
	}
	chunks, err := in.documents.CountChunks(tctx, tenantID, documentID)
	if err != nil {
		return fmt.Errorf("count chunks: %w", err)
	}

	metadata := "null"
	if doc.Metadata != nil {
		data, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		metadata = string(data)
	}

	fmt.Fprintf(in.out, "Document %s\n", doc.ID)
	fmt.Fprintf(in.out, "  created:  %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(in.out, "  chunks:   %d\n", chunks)
	fmt.Fprintf(in.out, "  metadata: %s\n", metadata)
	fmt.Fprintf(in.out, "  content:  %s\n", truncate(doc.Content, 200))
	return nil
}

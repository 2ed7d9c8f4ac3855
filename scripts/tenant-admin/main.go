// tenant-admin provisions, inspects and removes tenants. The RAG service never creates
// tenants itself; every ingest or query for an unknown tenant is rejected.
//
// Usage:
//
//	go run ./scripts/tenant-admin create [-id <uuid>] <name>
//	go run ./scripts/tenant-admin list
//	go run ./scripts/tenant-admin delete [-dry-run=false] <tenant-id>
//	go run ./scripts/tenant-admin show [-logs N] <tenant-id>
//	go run ./scripts/tenant-admin document <tenant-id> <document-id>
//
// Database connection: Uses standard PG* environment variables. create, delete,
// show and document scope themselves to the tenant they touch, so row-level
// security applies as usual. list spans tenants and needs a BYPASSRLS role.
//
// delete defaults to a dry run that reports what would be removed. Deleting a
// tenant cascades to its documents, chunks and query logs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx := context.Background()
	var err error
	switch os.Args[1] {
	case "create", "list", "delete":
		err = withConn(ctx, func(conn *pgx.Conn) error {
			switch os.Args[1] {
			case "create":
				return runCreate(ctx, conn, os.Args[2:])
			case "list":
				return runList(ctx, conn)
			default:
				return runDelete(ctx, conn, os.Args[2:])
			}
		})
	case "show":
		err = runShow(ctx, os.Args[2:])
	case "document":
		err = runDocument(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func withConn(ctx context.Context, fn func(conn *pgx.Conn) error) error {
	conn, err := pgx.Connect(ctx, buildConnString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close(ctx)
	return fn(conn)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [flags]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\nCommands:\n")
	fmt.Fprintf(os.Stderr, "  create [-id <uuid>] <name>           Provision a tenant\n")
	fmt.Fprintf(os.Stderr, "  list                                 List tenants with document counts\n")
	fmt.Fprintf(os.Stderr, "  delete [-dry-run=false] <tenant-id>  Remove a tenant and all of its data\n")
	fmt.Fprintf(os.Stderr, "  show [-logs N] <tenant-id>           Show a tenant and its recent queries\n")
	fmt.Fprintf(os.Stderr, "  document <tenant-id> <document-id>   Show a document and its chunk count\n")
}

func runCreate(ctx context.Context, conn *pgx.Conn, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	idFlag := fs.String("id", "", "Tenant UUID (generated when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("create requires exactly one <name>")
	}

	id := uuid.New()
	if *idFlag != "" {
		parsed, err := uuid.Parse(*idFlag)
		if err != nil {
			return fmt.Errorf("invalid tenant id: %w", err)
		}
		id = parsed
	}

	err := inTenant(ctx, conn, id, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, "INSERT INTO tenants (id, name) VALUES ($1, $2)", id, fs.Arg(0))
		return err
	})
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	fmt.Printf("Created tenant %s (%s)\n", id, fs.Arg(0))
	return nil
}

func runList(ctx context.Context, conn *pgx.Conn) error {
	rows, err := conn.Query(ctx, `
		SELECT t.id, t.name, t.created_at,
		       (SELECT COUNT(*) FROM documents d WHERE d.tenant_id = t.id)
		FROM tenants t
		ORDER BY t.created_at`)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var count int
	for rows.Next() {
		var (
			id        uuid.UUID
			name      string
			createdAt time.Time
			documents int
		)
		if err := rows.Scan(&id, &name, &createdAt, &documents); err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		count++
		fmt.Printf("  %s  %-30s  %5d documents  created %s\n", id, truncate(name, 30), documents, createdAt.Format("2006-01-02"))
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows iteration failed: %w", err)
	}
	if count == 0 {
		fmt.Println("  No tenants")
	}
	return nil
}

func runDelete(ctx context.Context, conn *pgx.Conn, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", true, "Show what would be deleted without actually deleting")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("delete requires exactly one <tenant-id>")
	}
	tenantID, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid tenant id: %w", err)
	}

	return inTenant(ctx, conn, tenantID, func(tx pgx.Tx) error {
		var name string
		var documents, chunks, logs int
		err := tx.QueryRow(ctx, `
			SELECT t.name,
			       (SELECT COUNT(*) FROM documents WHERE tenant_id = t.id),
			       (SELECT COUNT(*) FROM document_chunks WHERE tenant_id = t.id),
			       (SELECT COUNT(*) FROM query_logs WHERE tenant_id = t.id)
			FROM tenants t WHERE t.id = $1`, tenantID).Scan(&name, &documents, &chunks, &logs)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("tenant %s not found", tenantID)
		}
		if err != nil {
			return fmt.Errorf("inspect tenant: %w", err)
		}

		fmt.Printf("Tenant %s (%s): %d documents, %d chunks, %d query logs\n", tenantID, name, documents, chunks, logs)
		if *dryRun {
			fmt.Println("DRY RUN - no changes made")
			fmt.Println("Run with -dry-run=false to actually delete the tenant")
			return nil
		}

		if _, err := tx.Exec(ctx, "DELETE FROM tenants WHERE id = $1", tenantID); err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}
		fmt.Printf("Deleted tenant %s\n", tenantID)
		return nil
	})
}

// inTenant runs fn in a transaction scoped to one tenant.
func inTenant(ctx context.Context, conn *pgx.Conn, tenantID uuid.UUID, fn func(pgx.Tx) error) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SELECT set_config('app.current_tenant_id', $1, true)", tenantID.String()); err != nil {
		return fmt.Errorf("set tenant scope: %w", err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func buildConnString() string {
	host := getEnvOrDefault("PGHOST", "localhost")
	port := getEnvOrDefault("PGPORT", "5432")
	user := getEnvOrDefault("PGUSER", "rag")
	password := os.Getenv("PGPASSWORD")
	dbname := getEnvOrDefault("PGDATABASE", "rag_system")
	sslmode := getEnvOrDefault("PGSSLMODE", "disable")

	connStr := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		host, port, user, dbname, sslmode)
	if password != "" {
		connStr += fmt.Sprintf(" password=%s", password)
	}
	return connStr
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

package snapshot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/taxonomy-import/internal/core"
)

// DBTX is the subset of pgx used by PostgresSource. *pgxpool.Pool,
// *pgx.Conn and pgx.Tx all satisfy it.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
}

const createEntitiesTable = `CREATE TABLE IF NOT EXISTS taxonomy_entities (
	urn        TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const selectEntities = `SELECT urn, payload FROM taxonomy_entities ORDER BY urn`

// PostgresSource reads a snapshot cached in the taxonomy_entities table.
// Each payload holds one entity in the GraphQL shape.
type PostgresSource struct {
	DB DBTX
}

// NewPostgresSource creates a PostgresSource.
func NewPostgresSource(db DBTX) *PostgresSource {
	return &PostgresSource{DB: db}
}

// EnsureSchema creates the cache table if it does not exist.
func (s *PostgresSource) EnsureSchema(ctx context.Context) error {
	if _, err := s.DB.Exec(ctx, createEntitiesTable); err != nil {
		return fmt.Errorf("create taxonomy_entities: %w", err)
	}
	return nil
}

// Load implements Source.
func (s *PostgresSource) Load(ctx context.Context) (core.Snapshot, error) {
	rows, err := s.DB.Query(ctx, selectEntities)
	if err != nil {
		return nil, fmt.Errorf("snapshot unavailable: %w", err)
	}
	defer rows.Close()

	snap := make(core.Snapshot)
	malformed := 0
	for rows.Next() {
		var (
			urn     string
			payload []byte
		)
		if err := rows.Scan(&urn, &payload); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		e, err := DecodeEntity(payload)
		if err != nil {
			slog.Warn("malformed snapshot entity skipped", "urn", urn, "error", err)
			malformed++
			continue
		}
		// The row key is authoritative over the payload.
		e.URN = urn
		snap[urn] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot unavailable: %w", err)
	}

	if malformed > 0 {
		slog.Warn("malformed snapshot entities skipped", "source", "postgres", "skipped", malformed)
	}
	slog.Debug("snapshot loaded", "source", "postgres", "entities", len(snap))
	return snap, nil
}

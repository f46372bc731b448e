package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"asic-advisor/internal/domain"
)

// pgQuerier is satisfied by *pgxpool.Pool and *pgx.Conn.
type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads a dataset from a Postgres-compatible table (CockroachDB
// works too) with a JSON "payload" column and an "id" ordering column.
type PostgresSource struct {
	db    pgQuerier
	query string
}

// NewPostgresSource creates a new PostgresSource for table.
func NewPostgresSource(db pgQuerier, table string) (*PostgresSource, error) {
	if db == nil {
		return nil, errors.New("repository: db must not be nil")
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	ident := pgx.Identifier(strings.Split(table, ".")).Sanitize()
	return &PostgresSource{
		db:    db,
		query: "SELECT payload FROM " + ident + " ORDER BY id",
	}, nil
}

// Records selects every payload in id order.
func (p *PostgresSource) Records(ctx context.Context) ([]domain.Record, error) {
	rows, err := p.db.Query(ctx, p.query)
	if err != nil {
		return nil, fmt.Errorf("repository: Records query: %w", err)
	}
	defer rows.Close()

	records := make([]domain.Record, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("repository: Records scan: %w", err)
		}
		if !json.Valid(payload) {
			return nil, errors.New("repository: Records: payload is not valid JSON")
		}
		records = append(records, domain.Record(payload))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: Records rows: %w", err)
	}
	return records, nil
}

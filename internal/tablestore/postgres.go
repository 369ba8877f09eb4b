package tablestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores each logical table as a relation with a jsonb payload
// column, preserving insertion order through a bigserial row index:
//
//	CREATE TABLE pr_master (row_idx BIGSERIAL PRIMARY KEY, data JSONB NOT NULL);
//
// Relations are provisioned out of band; an undefined relation surfaces as
// ErrMissingTable so callers can tell an absent table from an empty one.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pgx pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func relationName(table string) (string, error) {
	name := strings.ToLower(table)
	if !identPattern.MatchString(name) {
		return "", fmt.Errorf("tablestore: invalid table name %q", table)
	}
	return name, nil
}

// Rows implements Store.
func (p *Postgres) Rows(ctx context.Context, table string) ([]Row, error) {
	rel, err := relationName(table)
	if err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, fmt.Sprintf(`SELECT data FROM %s ORDER BY row_idx`, rel))
	if err != nil {
		return nil, p.mapError(table, err)
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, p.mapError(table, err)
		}
		var row Row
		if err := json.Unmarshal(data, &row); err != nil {
			return nil, fmt.Errorf("tablestore: decode row in %s: %w", table, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, p.mapError(table, err)
	}
	if out == nil {
		out = []Row{}
	}
	return out, nil
}

// Append implements Store.
func (p *Postgres) Append(ctx context.Context, table string, row Row) error {
	rel, err := relationName(table)
	if err != nil {
		return err
	}
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("tablestore: encode row for %s: %w", table, err)
	}
	if _, err := p.pool.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (data) VALUES ($1)`, rel), data); err != nil {
		return p.mapError(table, err)
	}
	return nil
}

// UpdateCell implements Store.
func (p *Postgres) UpdateCell(ctx context.Context, table string, rowIndex int, column string, value any) error {
	rel, err := relationName(table)
	if err != nil {
		return err
	}
	cell, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("tablestore: encode cell for %s.%s: %w", table, column, err)
	}
	query := fmt.Sprintf(`UPDATE %s SET data = jsonb_set(data, $1, $2::jsonb, true)
		WHERE row_idx = (SELECT row_idx FROM %s ORDER BY row_idx OFFSET $3 LIMIT 1)`, rel, rel)
	tag, err := p.pool.Exec(ctx, query, []string{column}, cell, rowIndex)
	if err != nil {
		return p.mapError(table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tablestore: row %d out of range for %s", rowIndex, table)
	}
	return nil
}

func (p *Postgres) mapError(table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "42P01" {
			return fmt.Errorf("%w: %s", ErrMissingTable, table)
		}
		return fmt.Errorf("tablestore: %s: %w", table, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, table, err)
}

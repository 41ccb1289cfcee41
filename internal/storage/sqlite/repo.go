// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql. Batches go in as prepared INSERTs inside one transaction;
// SQLite has no dedicated bulk-load API, but a transaction per batch keeps
// throughput acceptable for the feed's volume and gives the batch its
// all-or-nothing semantics for free.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"vendas/internal/normalize"
	"vendas/internal/report"
	"vendas/internal/storage"
)

// Config holds SQLite repository configuration.
type Config struct {
	// DSN is a SQLite file path or URI, e.g. "anp_2024.db" or
	// "file:anp_2024.db?cache=shared".
	DSN string

	// Table is the destination table name.
	Table string
}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens a SQLite connection using the provided DSN and returns
// a Repository plus a close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, nil, fmt.Errorf("sqlite: table must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	closeFn := func() { db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// Replace drops and recreates the destination table, discarding every row
// from any prior run. DROP+CREATE rather than DELETE keeps the operation
// cheap and also heals a schema left behind by older versions.
func (r *Repository) Replace(ctx context.Context) error {
	drop := fmt.Sprintf("DROP TABLE IF EXISTS %s", r.cfg.Table)
	if _, err := r.db.ExecContext(ctx, drop); err != nil {
		return fmt.Errorf("sqlite: drop table: %w", err)
	}

	create := fmt.Sprintf(`CREATE TABLE %s (
		regiao      TEXT,
		uf          TEXT,
		municipio   TEXT,
		bairro      TEXT,
		posto_nome  TEXT,
		cnpj        TEXT,
		bandeira    TEXT,
		produto     TEXT,
		valor_venda REAL,
		data_coleta TEXT
	)`, r.cfg.Table)
	if _, err := r.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("sqlite: create table: %w", err)
	}
	return nil
}

// InsertBatch inserts recs inside a single transaction using a prepared
// statement. Either the whole batch commits or none of it does.
func (r *Repository) InsertBatch(ctx context.Context, recs []normalize.Record) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(storage.Columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	stmtSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		r.cfg.Table,
		strings.Join(storage.Columns, ", "),
		strings.Join(placeholders, ", "),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, rec := range recs {
		if _, err := stmt.ExecContext(ctx,
			rec.Regiao, rec.UF, rec.Municipio, rec.Bairro, rec.PostoNome,
			rec.CNPJ, rec.Bandeira, rec.Produto, rec.ValorVenda,
			rec.DataColeta.Format("2006-01-02"),
		); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("sqlite: insert: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}

// ProductSummary implements report.Querier.
func (r *Repository) ProductSummary(ctx context.Context) ([]report.ProductLine, error) {
	q := fmt.Sprintf(`
		SELECT produto, COUNT(*),
		       ROUND(MIN(valor_venda), 2),
		       ROUND(AVG(valor_venda), 2),
		       ROUND(MAX(valor_venda), 2)
		FROM %s
		GROUP BY produto
		ORDER BY produto`, r.cfg.Table)

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite: product summary: %w", err)
	}
	defer rows.Close()

	var out []report.ProductLine
	for rows.Next() {
		var l report.ProductLine
		if err := rows.Scan(&l.Produto, &l.Count, &l.Min, &l.Avg, &l.Max); err != nil {
			return nil, fmt.Errorf("sqlite: product summary scan: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// RegionSummary implements report.Querier.
func (r *Repository) RegionSummary(ctx context.Context) ([]report.RegionLine, error) {
	q := fmt.Sprintf(`
		SELECT regiao, produto,
		       COUNT(DISTINCT cnpj),
		       ROUND(AVG(valor_venda), 2)
		FROM %s
		GROUP BY regiao, produto
		ORDER BY regiao, produto`, r.cfg.Table)

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite: region summary: %w", err)
	}
	defer rows.Close()

	var out []report.RegionLine
	for rows.Next() {
		var l report.RegionLine
		if err := rows.Scan(&l.Regiao, &l.Produto, &l.Stations, &l.Avg); err != nil {
			return nil, fmt.Errorf("sqlite: region summary scan: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// TopStatesByProduct implements report.Querier.
func (r *Repository) TopStatesByProduct(ctx context.Context, produto string, limit int) ([]report.StateLine, error) {
	q := fmt.Sprintf(`
		SELECT uf, ROUND(AVG(valor_venda), 2) AS media
		FROM %s
		WHERE produto = ?
		GROUP BY uf
		ORDER BY media DESC, uf
		LIMIT ?`, r.cfg.Table)

	rows, err := r.db.QueryContext(ctx, q, produto, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: state ranking: %w", err)
	}
	defer rows.Close()

	var out []report.StateLine
	for rows.Next() {
		var l report.StateLine
		if err := rows.Scan(&l.UF, &l.Avg); err != nil {
			return nil, fmt.Errorf("sqlite: state ranking scan: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

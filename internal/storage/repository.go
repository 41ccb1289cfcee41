// Package storage contains the storage-agnostic repository contract and the
// backend factory. Concrete engines register themselves at init time via
// Register; callers select one by kind and never import a driver directly.
package storage

import (
	"context"
	"fmt"
	"sync"

	"vendas/internal/normalize"
	"vendas/internal/report"
)

// Columns enumerates the destination columns of the vendas_combustivel
// table, in insert order. Every backend shares this layout.
var Columns = []string{
	"regiao", "uf", "municipio", "bairro", "posto_nome",
	"cnpj", "bandeira", "produto", "valor_venda", "data_coleta",
}

// Config selects and parameterizes a backend.
type Config struct {
	// Kind is a registered backend name ("sqlite", "postgres").
	Kind string

	// DSN is backend-specific: a file path or URI for sqlite, a pgx
	// connection string for postgres.
	DSN string

	// Table is the destination table name.
	Table string
}

// Repository is the storage surface the pipeline writes through and the
// reports read through.
//
// Replace must leave the table present and empty, discarding all rows from
// any prior run; it is issued exactly once per run, before the first insert.
// InsertBatch persists one batch transactionally: either every record of the
// batch becomes visible or none does.
type Repository interface {
	Replace(ctx context.Context) error
	InsertBatch(ctx context.Context, recs []normalize.Record) (int64, error)
	report.Querier
	Close()
}

// Factory constructs a Repository from Config.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for a storage kind. It is
// called from backend packages' init functions.
func Register(kind string, fn Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = fn
}

// New opens a Repository for cfg.Kind. The kind must have been registered,
// typically by blank-importing vendas/internal/storage/all.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	fn, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: no backend registered for kind %q", cfg.Kind)
	}
	return fn(ctx, cfg)
}

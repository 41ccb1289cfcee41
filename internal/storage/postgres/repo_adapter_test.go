package postgres

import (
	"context"
	"errors"
	"testing"

	"vendas/internal/storage"
)

func TestFactoryRegistration(t *testing.T) {
	var gotCfg Config
	closed := false

	prev := newRepository
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return &Repository{cfg: cfg}, func() { closed = true }, nil
	}
	t.Cleanup(func() { newRepository = prev })

	repo, err := storage.New(t.Context(), storage.Config{
		Kind:  "postgres",
		DSN:   "postgres://user@localhost/vendas",
		Table: "vendas_combustivel",
	})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}

	if gotCfg.DSN != "postgres://user@localhost/vendas" || gotCfg.Table != "vendas_combustivel" {
		t.Fatalf("factory config = %+v", gotCfg)
	}

	repo.Close()
	if !closed {
		t.Fatal("Close did not run the cleanup function")
	}
}

func TestFactoryPropagatesOpenError(t *testing.T) {
	boom := errors.New("connection refused")

	prev := newRepository
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		return nil, nil, boom
	}
	t.Cleanup(func() { newRepository = prev })

	if _, err := storage.New(t.Context(), storage.Config{Kind: "postgres"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped open error", err)
	}
}

package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/zeebo/xxh3"

	"vendas/internal/normalize"
	"vendas/internal/parser/csv"
	"vendas/internal/storage"
)

// BatchResult reports what one batch contributed to the run: rows persisted,
// rows rejected, and the rejection tally by reason.
type BatchResult struct {
	Loaded   int64
	Rejected int64
	Reasons  map[normalize.Reason]int64
}

// Loader normalizes one batch at a time and persists the survivors as a
// single transactional insert. Raw records are never mutated and rejections
// are never retried.
type Loader struct {
	repo storage.Repository
	norm *normalize.Normalizer

	// fp accumulates a content fingerprint of every persisted record, in
	// insert order. Two runs over identical input produce the same value,
	// which makes before/after comparisons cheap.
	fp *xxh3.Hasher

	staging []normalize.Record // reused across batches
}

// NewLoader returns a Loader writing through repo with the run's normalizer.
func NewLoader(repo storage.Repository, norm *normalize.Normalizer) *Loader {
	return &Loader{repo: repo, norm: norm, fp: xxh3.New()}
}

// Load processes one batch. A failed insert is returned as an error and is
// fatal to the run: it signals store unavailability, not bad data. The
// result tallies are valid even when an error is returned.
func (l *Loader) Load(ctx context.Context, b *csv.Batch) (BatchResult, error) {
	res := BatchResult{Reasons: map[normalize.Reason]int64{}}

	l.staging = l.staging[:0]
	for _, raw := range b.Records {
		rec, rej := l.norm.Normalize(raw)
		if rej != nil {
			res.Rejected++
			res.Reasons[rej.Reason]++
			continue
		}
		l.staging = append(l.staging, rec)
	}

	n, err := l.repo.InsertBatch(ctx, l.staging)
	if err != nil {
		return res, fmt.Errorf("batch %d: %w", b.Seq, err)
	}
	res.Loaded = n

	for i := range l.staging {
		l.hashRecord(&l.staging[i])
	}
	return res, nil
}

// Fingerprint returns the running content hash over all records persisted so
// far.
func (l *Loader) Fingerprint() uint64 { return l.fp.Sum64() }

func (l *Loader) hashRecord(r *normalize.Record) {
	for _, s := range []string{
		r.Regiao, r.UF, r.Municipio, r.Bairro, r.PostoNome,
		r.CNPJ, r.Bandeira, r.Produto,
		strconv.FormatFloat(r.ValorVenda, 'f', -1, 64),
		r.DataColeta.Format("2006-01-02"),
	} {
		l.fp.WriteString(s)
		l.fp.WriteString("\x1f")
	}
	l.fp.WriteString("\n")
}

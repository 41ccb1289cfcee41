package report

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeQuerier struct {
	products []ProductLine
	regions  []RegionLine
	states   []StateLine

	productsErr error
	regionsErr  error
	statesErr   error

	gotProduto string
	gotLimit   int
}

func (f *fakeQuerier) ProductSummary(ctx context.Context) ([]ProductLine, error) {
	return f.products, f.productsErr
}

func (f *fakeQuerier) RegionSummary(ctx context.Context) ([]RegionLine, error) {
	return f.regions, f.regionsErr
}

func (f *fakeQuerier) TopStatesByProduct(ctx context.Context, produto string, limit int) ([]StateLine, error) {
	f.gotProduto, f.gotLimit = produto, limit
	return f.states, f.statesErr
}

func TestPrint(t *testing.T) {
	t.Parallel()

	q := &fakeQuerier{
		products: []ProductLine{
			{Produto: "ETANOL", Count: 3, Min: 3.99, Avg: 4.10, Max: 4.25},
			{Produto: "GASOLINA", Count: 5, Min: 5.49, Avg: 5.79, Max: 6.15},
		},
		regions: []RegionLine{
			{Regiao: "Sudeste", Produto: "GASOLINA", Stations: 4, Avg: 5.85},
		},
		states: []StateLine{
			{UF: "RJ", Avg: 6.10},
			{UF: "SP", Avg: 5.90},
		},
	}

	var buf bytes.Buffer
	if err := Print(t.Context(), &buf, q); err != nil {
		t.Fatalf("Print: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"RESUMO DE PRECOS (R$ / Litro)",
		"ANALISE REGIONAL",
		"TOP 5 ESTADOS MAIS CAROS - GASOLINA",
		"GASOLINA",
		"Sudeste",
		"RJ",
		"6.10",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	// The ranking query receives the package's fixed product and limit.
	if q.gotProduto != GasolinaProduto || q.gotLimit != TopStatesLimit {
		t.Fatalf("ranking queried with (%q, %d), want (%q, %d)",
			q.gotProduto, q.gotLimit, GasolinaProduto, TopStatesLimit)
	}

	// Sections come out in a fixed order.
	resumo := strings.Index(out, "RESUMO DE PRECOS")
	regional := strings.Index(out, "ANALISE REGIONAL")
	top := strings.Index(out, "TOP 5 ESTADOS")
	if !(resumo < regional && regional < top) {
		t.Fatalf("sections out of order: %d %d %d", resumo, regional, top)
	}
}

func TestPrint_EmptyTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Print(t.Context(), &buf, &fakeQuerier{}); err != nil {
		t.Fatalf("Print: %v", err)
	}
	if !strings.Contains(buf.String(), "RESUMO DE PRECOS") {
		t.Fatalf("headers missing for empty table:\n%s", buf.String())
	}
}

func TestPrint_QueryErrorsPropagate(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	cases := []struct {
		name string
		q    *fakeQuerier
	}{
		{"product summary", &fakeQuerier{productsErr: boom}},
		{"region summary", &fakeQuerier{regionsErr: boom}},
		{"state ranking", &fakeQuerier{statesErr: boom}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := Print(t.Context(), &bytes.Buffer{}, tc.q)
			if !errors.Is(err, boom) {
				t.Fatalf("err = %v, want wrapped boom", err)
			}
		})
	}
}

// Package report renders the three management reports produced at the end of
// a successful run. The queries themselves live behind the Querier interface
// so that each storage backend can express them in its own SQL; this package
// only shapes and prints the results.
package report

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
)

// GasolinaProduto is the product used for the state ranking report.
const GasolinaProduto = "GASOLINA"

// TopStatesLimit is the size of the state ranking.
const TopStatesLimit = 5

// ProductLine is one row of the per-product price summary.
type ProductLine struct {
	Produto string
	Count   int64
	Min     float64
	Avg     float64
	Max     float64
}

// RegionLine is one row of the regional analysis: sample count, distinct
// stations, and average price for a (region, product) pair.
type RegionLine struct {
	Regiao   string
	Produto  string
	Stations int64
	Avg      float64
}

// StateLine is one row of the state ranking.
type StateLine struct {
	UF  string
	Avg float64
}

// Querier is the aggregation surface a storage backend must provide. All
// three queries read the final table only; they are pure aggregations with
// no side effects.
type Querier interface {
	ProductSummary(ctx context.Context) ([]ProductLine, error)
	RegionSummary(ctx context.Context) ([]RegionLine, error)
	TopStatesByProduct(ctx context.Context, produto string, limit int) ([]StateLine, error)
}

// Print runs the three reports against q and writes them to w. Output is
// deterministic for a given table state: every query carries a total ORDER BY.
func Print(ctx context.Context, w io.Writer, q Querier) error {
	products, err := q.ProductSummary(ctx)
	if err != nil {
		return fmt.Errorf("report: product summary: %w", err)
	}
	printHeader(w, "RESUMO DE PRECOS (R$ / Litro)")
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "produto\tqtd_amostras\tmin\tmedia\tmax")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\n", p.Produto, p.Count, p.Min, p.Avg, p.Max)
	}
	tw.Flush()

	regions, err := q.RegionSummary(ctx)
	if err != nil {
		return fmt.Errorf("report: region summary: %w", err)
	}
	printHeader(w, "ANALISE REGIONAL")
	tw = newTabWriter(w)
	fmt.Fprintln(tw, "regiao\tproduto\tqtd_postos\tpreco_medio")
	for _, r := range regions {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\n", r.Regiao, r.Produto, r.Stations, r.Avg)
	}
	tw.Flush()

	states, err := q.TopStatesByProduct(ctx, GasolinaProduto, TopStatesLimit)
	if err != nil {
		return fmt.Errorf("report: state ranking: %w", err)
	}
	printHeader(w, fmt.Sprintf("TOP %d ESTADOS MAIS CAROS - %s", TopStatesLimit, GasolinaProduto))
	tw = newTabWriter(w)
	fmt.Fprintln(tw, "uf\tmedia")
	for _, s := range states {
		fmt.Fprintf(tw, "%s\t%.2f\n", s.UF, s.Avg)
	}
	tw.Flush()

	return nil
}

func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=======================================================")
	fmt.Fprintln(w, "   "+title)
	fmt.Fprintln(w, "=======================================================")
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

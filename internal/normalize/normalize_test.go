package normalize

import (
	"io"
	"strings"
	"testing"
	"time"

	"vendas/internal/config"
	"vendas/internal/parser/csv"
)

const header = "regiao;uf;municipio;bairro;posto_nome;cnpj;bandeira;produto;valor_venda;data_coleta"

// newNormalizer builds a Normalizer plus one raw record from a single data
// line, going through the real reader so header binding is exercised too.
func newNormalizer(t *testing.T, line string) (*Normalizer, csv.RawRecord) {
	t.Helper()

	input := header + "\n" + line + "\n"
	r, err := csv.NewReader(io.NopCloser(strings.NewReader(input)), config.Options{"comma": ";"}, 10)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	b, err := r.Next(t.Context())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(b.Records) != 1 {
		t.Fatalf("records = %d, want 1 (bad lines = %d)", len(b.Records), b.BadLines)
	}
	return New(r.Header()), b.Records[0]
}

func TestNormalize_ValidRecord(t *testing.T) {
	t.Parallel()

	n, raw := newNormalizer(t,
		"Sudeste;SP;São Paulo;Centro;Posto X;12.345.678/0001-99;Shell;Gasolina;5,79;01/03/2024")

	rec, rej := n.Normalize(raw)
	if rej != nil {
		t.Fatalf("Normalize rejected: %v", rej)
	}
	if rec.ValorVenda != 5.79 {
		t.Fatalf("ValorVenda = %v, want 5.79", rec.ValorVenda)
	}
	if want := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC); !rec.DataColeta.Equal(want) {
		t.Fatalf("DataColeta = %v, want %v", rec.DataColeta, want)
	}
	if rec.Produto != "GASOLINA" {
		t.Fatalf("Produto = %q, want canonical GASOLINA", rec.Produto)
	}
	if rec.Regiao != "Sudeste" || rec.UF != "SP" || rec.Municipio != "São Paulo" {
		t.Fatalf("text fields = %q/%q/%q", rec.Regiao, rec.UF, rec.Municipio)
	}
	if rec.CNPJ != "12.345.678/0001-99" {
		t.Fatalf("CNPJ = %q", rec.CNPJ)
	}
}

func TestNormalize_Rejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		line   string
		field  string
		reason Reason
	}{
		{
			"non-numeric price",
			"Sudeste;SP;Campinas;Centro;Posto X;12.345.678/0001-99;Shell;Gasolina;abc;01/03/2024",
			"valor_venda", BadDecimal,
		},
		{
			"zero price",
			"Sudeste;SP;Campinas;Centro;Posto X;12.345.678/0001-99;Shell;Gasolina;0,00;01/03/2024",
			"valor_venda", BadDecimal,
		},
		{
			"negative price",
			"Sudeste;SP;Campinas;Centro;Posto X;12.345.678/0001-99;Shell;Gasolina;-5,79;01/03/2024",
			"valor_venda", BadDecimal,
		},
		{
			"NaN price",
			"Sudeste;SP;Campinas;Centro;Posto X;12.345.678/0001-99;Shell;Gasolina;NaN;01/03/2024",
			"valor_venda", BadDecimal,
		},
		{
			"infinite price",
			"Sudeste;SP;Campinas;Centro;Posto X;12.345.678/0001-99;Shell;Gasolina;+Inf;01/03/2024",
			"valor_venda", BadDecimal,
		},
		{
			"calendar-invalid date",
			"Sudeste;SP;Campinas;Centro;Posto X;12.345.678/0001-99;Shell;Gasolina;5,79;31/04/2024",
			"data_coleta", BadDate,
		},
		{
			"wrong date order",
			"Sudeste;SP;Campinas;Centro;Posto X;12.345.678/0001-99;Shell;Gasolina;5,79;2024-03-01",
			"data_coleta", BadDate,
		},
		{
			"cnpj missing punctuation",
			"Sudeste;SP;Campinas;Centro;Posto X;12345678000199;Shell;Gasolina;5,79;01/03/2024",
			"cnpj", BadTaxID,
		},
		{
			"cnpj too short",
			"Sudeste;SP;Campinas;Centro;Posto X;12.345.678/0001-9;Shell;Gasolina;5,79;01/03/2024",
			"cnpj", BadTaxID,
		},
		{
			"missing produto",
			"Sudeste;SP;Campinas;Centro;Posto X;12.345.678/0001-99;Shell;;5,79;01/03/2024",
			"produto", MissingMandatoryField,
		},
		{
			"whitespace-only price",
			"Sudeste;SP;Campinas;Centro;Posto X;12.345.678/0001-99;Shell;Gasolina;   ;01/03/2024",
			"valor_venda", MissingMandatoryField,
		},
		{
			"missing date",
			"Sudeste;SP;Campinas;Centro;Posto X;12.345.678/0001-99;Shell;Gasolina;5,79;",
			"data_coleta", MissingMandatoryField,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			n, raw := newNormalizer(t, tc.line)
			rec, rej := n.Normalize(raw)
			if rej == nil {
				t.Fatalf("Normalize accepted %q, want rejection", tc.line)
			}
			if rej.Field != tc.field || rej.Reason != tc.reason {
				t.Fatalf("rejection = %v, want %s(%s)", rej, tc.reason, tc.field)
			}
			if rec != (Record{}) {
				t.Fatalf("rejected input produced a non-zero record: %+v", rec)
			}
		})
	}
}

// Optional text fields that are empty after trimming are preserved as empty,
// never rejected.
func TestNormalize_OptionalEmptyFieldsPreserved(t *testing.T) {
	t.Parallel()

	n, raw := newNormalizer(t, ";;;;;12.345.678/0001-99;;Etanol;4,19;15/06/2024")
	rec, rej := n.Normalize(raw)
	if rej != nil {
		t.Fatalf("Normalize rejected: %v", rej)
	}
	if rec.Regiao != "" || rec.UF != "" || rec.Municipio != "" || rec.Bairro != "" ||
		rec.PostoNome != "" || rec.Bandeira != "" {
		t.Fatalf("optional fields not preserved as empty: %+v", rec)
	}
	if rec.Produto != "ETANOL" || rec.ValorVenda != 4.19 {
		t.Fatalf("mandatory fields = %q/%v", rec.Produto, rec.ValorVenda)
	}
}

// For every input exactly one of {record, rejection} is produced, and the
// outcome is stable across repeated calls.
func TestNormalize_TotalAndDeterministic(t *testing.T) {
	t.Parallel()

	lines := []string{
		"Sudeste;SP;São Paulo;Centro;Posto X;12.345.678/0001-99;Shell;Gasolina;5,79;01/03/2024",
		"Sul;PR;Curitiba;;Posto Y;98.765.432/0001-10;Ipiranga;Diesel S10;6,10;28/02/2024",
		"Sudeste;SP;Campinas;Centro;Posto X;bad;Shell;Gasolina;5,79;01/03/2024",
		"Norte;AM;Manaus;Centro;Posto Z;11.222.333/0001-44;Vibra;Gasolina;zz;01/03/2024",
	}

	for _, line := range lines {
		n, raw := newNormalizer(t, line)

		rec1, rej1 := n.Normalize(raw)
		rec2, rej2 := n.Normalize(raw)

		if rej1 != nil && rec1 != (Record{}) {
			t.Fatalf("line %q: both outcomes produced (rec=%+v rej=%v)", line, rec1, rej1)
		}
		if rec1 != rec2 {
			t.Fatalf("line %q: records differ across calls", line)
		}
		if (rej1 == nil) != (rej2 == nil) {
			t.Fatalf("line %q: rejection outcome differs across calls", line)
		}
		if rej1 != nil && *rej1 != *rej2 {
			t.Fatalf("line %q: rejections differ across calls: %v vs %v", line, rej1, rej2)
		}
	}
}

// Package normalize converts raw feed records into typed fuel-price records.
//
// Normalization is total: every input yields exactly one of a valid Record
// or a Rejection, never both and never a panic. Row-level defects are values
// so that they compose into per-batch and per-run tallies without
// exception-style control flow. The functions here are deterministic and
// side-effect free.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"vendas/internal/parser/csv"
)

// Reason classifies why a record was rejected.
type Reason string

const (
	BadDecimal            Reason = "bad_decimal"
	BadDate               Reason = "bad_date"
	BadTaxID              Reason = "bad_tax_id"
	MissingMandatoryField Reason = "missing_mandatory_field"
)

// Reasons lists every rejection kind in a stable order, for summaries.
var Reasons = []Reason{BadDecimal, BadDate, BadTaxID, MissingMandatoryField}

// Rejection describes a single rejected record: which field failed and why.
// Rejections are final; malformed source data is not recoverable without
// human correction upstream.
type Rejection struct {
	Field  string
	Reason Reason
}

func (r Rejection) String() string {
	return string(r.Reason) + "(" + r.Field + ")"
}

// Record is one fully typed fuel-price sample. Every field is present and
// type-valid; records that cannot satisfy this do not exist (they are
// rejected upstream as a Rejection).
type Record struct {
	Regiao     string
	UF         string
	Municipio  string
	Bairro     string
	PostoNome  string
	CNPJ       string
	Bandeira   string
	Produto    string
	ValorVenda float64
	DataColeta time.Time
}

// DateLayout is the feed's day/month/year date convention.
const DateLayout = "02/01/2006"

// cnpjRe matches the fixed CNPJ registration format NN.NNN.NNN/NNNN-NN.
var cnpjRe = regexp.MustCompile(`^\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}$`)

// mandatory fields must be non-empty after trimming; the remaining text
// fields are preserved as empty strings when the source leaves them blank.
var mandatory = map[string]bool{
	"cnpj":        true,
	"produto":     true,
	"valor_venda": true,
	"data_coleta": true,
}

// Normalizer binds the run's header so field lookup by name stays O(1) per
// record.
type Normalizer struct {
	h *csv.Header
}

// New returns a Normalizer for records bound to h.
func New(h *csv.Header) *Normalizer { return &Normalizer{h: h} }

// Normalize converts one raw record. On success the second return is nil;
// on failure the Record is the zero value and the Rejection names the first
// offending field. Exactly one of the two outcomes occurs for every input.
func (n *Normalizer) Normalize(raw csv.RawRecord) (Record, *Rejection) {
	var rec Record

	get := func(name string) string {
		v, _ := n.h.Value(raw, name)
		return strings.TrimSpace(v)
	}

	// Mandatory presence first: a blank mandatory cell is a missing field,
	// not a malformed value.
	for _, name := range []string{"cnpj", "produto", "valor_venda", "data_coleta"} {
		if get(name) == "" {
			return Record{}, &Rejection{Field: name, Reason: MissingMandatoryField}
		}
	}

	cnpj := get("cnpj")
	if !cnpjRe.MatchString(cnpj) {
		return Record{}, &Rejection{Field: "cnpj", Reason: BadTaxID}
	}

	valor, ok := parseDecimal(get("valor_venda"))
	if !ok {
		return Record{}, &Rejection{Field: "valor_venda", Reason: BadDecimal}
	}

	data, err := time.Parse(DateLayout, get("data_coleta"))
	if err != nil {
		return Record{}, &Rejection{Field: "data_coleta", Reason: BadDate}
	}

	rec.Regiao = get("regiao")
	rec.UF = get("uf")
	rec.Municipio = get("municipio")
	rec.Bairro = get("bairro")
	rec.PostoNome = get("posto_nome")
	rec.Bandeira = get("bandeira")
	rec.CNPJ = cnpj
	rec.Produto = strings.ToUpper(get("produto"))
	rec.ValorVenda = valor
	rec.DataColeta = data
	return rec, nil
}

// parseDecimal parses the feed's comma-decimal convention ("5,79") into a
// float64. Values that do not parse, or parse as zero or negative, are
// rejected: a fuel price of zero is always a data defect. ParseFloat also
// accepts "NaN" and "Inf" spellings, and NaN slips past a <= 0 comparison,
// so both are rejected explicitly; either would corrupt every report
// aggregate.
func parseDecimal(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}

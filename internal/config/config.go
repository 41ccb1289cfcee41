// Package config defines the JSON-serializable configuration model for the
// fuel-price ETL. It is intentionally small and explicit so that pipelines
// can be loaded from disk (or assembled from flags) and passed through the
// program without additional glue code.
//
// Example (trimmed):
//
//	{
//	  "job":     "vendas_combustivel",
//	  "source":  { "kind": "http", "http": { "url": "https://..." } },
//	  "parser":  { "kind": "csv", "options": { "comma": ";", "encoding": "utf-8" } },
//	  "storage": { "kind": "sqlite", "db": { "dsn": "anp_2024.db", "table": "vendas_combustivel" } },
//	  "runtime": { "batch_size": 5000 }
//	}
package config

import "encoding/json"

// Pipeline describes one full ETL run in JSON. It is the top-level object
// decoded from a pipeline file.
type Pipeline struct {
	// Job names the run for logs and metrics labels.
	Job string `json:"job"`

	// Source describes where the raw CSV bytes come from.
	Source Source `json:"source"`

	// Parser configures how raw bytes are split into records.
	Parser Parser `json:"parser"`

	// Storage describes the destination table and engine.
	Storage Storage `json:"storage"`

	// Runtime holds batching knobs.
	Runtime Runtime `json:"runtime"`
}

// Source identifies the data source. Current kinds: "file", "http".
type Source struct {
	Kind string     `json:"kind"`
	File SourceFile `json:"file"`
	HTTP SourceHTTP `json:"http"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	Path string `json:"path"`
}

// SourceHTTP holds configuration for the "http" source kind. The ANP portal
// rejects clients without a browser-like User-Agent, so the header is
// configurable and defaulted.
type SourceHTTP struct {
	URL       string `json:"url"`
	UserAgent string `json:"user_agent"`
}

// Parser selects how to parse the raw source into records. Current kind: "csv".
type Parser struct {
	Kind string `json:"kind"`

	// Options is a free-form map interpreted by the parser. For CSV the
	// recognized keys are:
	//   comma (string, first rune), encoding ("utf-8"|"latin1"),
	//   trim_space (bool), header_map (object, source header -> column)
	Options Options `json:"options"`
}

// Storage selects the sink used to persist normalized records.
type Storage struct {
	// Kind selects the storage implementation: "sqlite" or "postgres".
	Kind string `json:"kind"`

	DB DBConfig `json:"db"`
}

// DBConfig configures the DB sink.
type DBConfig struct {
	// DSN is the sqlite file path (or URI) for "sqlite", or a pgx connection
	// string for "postgres".
	DSN string `json:"dsn"`

	// Table is the destination table name.
	Table string `json:"table"`
}

// Runtime holds batching configuration for a run.
type Runtime struct {
	// BatchSize is the number of raw records per batch. Defaults to 5000.
	BatchSize int `json:"batch_size"`
}

// Defaults used when flags and config files leave fields unset. They mirror
// the published ANP 2024 gasoline/ethanol feed.
const (
	DefaultSourceURL = "https://www.gov.br/anp/pt-br/centrais-de-conteudo/dados-abertos/arquivos/shpc/dsan/2024/precos-gasolina-etanol-01.csv"
	DefaultUserAgent = "Mozilla/5.0"
	DefaultDBPath    = "anp_2024.db"
	DefaultTable     = "vendas_combustivel"
	DefaultBatchSize = 5000
)

// Default returns the canonical pipeline for the ANP feed: semicolon-delimited
// UTF-8 CSV over HTTP, loaded into a local sqlite file in batches of 5000.
// Header names from the feed are mapped onto the destination column names.
func Default() Pipeline {
	return Pipeline{
		Job: "vendas_combustivel",
		Source: Source{
			Kind: "http",
			HTTP: SourceHTTP{URL: DefaultSourceURL, UserAgent: DefaultUserAgent},
		},
		Parser: Parser{
			Kind: "csv",
			Options: Options{
				"comma":      ";",
				"encoding":   "utf-8",
				"trim_space": true,
				"header_map": map[string]any{
					"Regiao - Sigla":  "regiao",
					"Estado - Sigla":  "uf",
					"Municipio":       "municipio",
					"Bairro":          "bairro",
					"Revenda":         "posto_nome",
					"CNPJ da Revenda": "cnpj",
					"Bandeira":        "bandeira",
					"Produto":         "produto",
					"Valor de Venda":  "valor_venda",
					"Data da Coleta":  "data_coleta",
				},
			},
		},
		Storage: Storage{
			Kind: "sqlite",
			DB:   DBConfig{DSN: DefaultDBPath, Table: DefaultTable},
		},
		Runtime: Runtime{BatchSize: DefaultBatchSize},
	}
}

// Options is a small helper to fetch typed values from arbitrary JSON maps
// without introducing a configuration library. It performs only minimal type
// coercion and returns the provided default when a key is absent or of an
// unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. Used for single-character parser settings such as the
// CSV delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored. Returns an empty
// map when the key is missing or the value is not an object.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		switch m := v.(type) {
		case map[string]any:
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		case map[string]string:
			for k, vv := range m {
				res[k] = vv
			}
		}
	}
	return res
}

// UnmarshalJSON implements json.Unmarshaler so that a missing or null
// "options" object decodes to a non-nil, empty Options map. This removes the
// need to nil-check Options at call sites.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}

// Package datasource defines the byte-stream boundary between the pipeline
// and the outside world. Everything downstream of a Source sees only an
// io.ReadCloser.
package datasource

import (
	"context"
	"io"
)

// Source produces the raw CSV byte stream for one run. Opening consumes no
// input; the stream is read exactly once per run.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

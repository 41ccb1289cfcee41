// Package pipeline sequences the run: open the source, replace the target
// table, stream batches through normalization into storage, and finally
// produce the reports.
//
// The run is a state machine (Start → Replacing → Streaming → Reporting →
// Done, with Aborted reachable on any fatal store or source failure). The
// replace happens exactly once, before the first batch commits; batches are
// read, normalized, and loaded strictly one at a time, so peak memory is
// bounded by the batch size no matter how large the feed is. Run counters
// are a plain value owned here and returned in the Summary, never shared.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"vendas/internal/config"
	"vendas/internal/datasource"
	"vendas/internal/datasource/file"
	"vendas/internal/datasource/httpds"
	"vendas/internal/metrics"
	"vendas/internal/normalize"
	csvparser "vendas/internal/parser/csv"
	"vendas/internal/report"
	"vendas/internal/storage"
)

// State is one phase of a run.
type State int

const (
	StateStart State = iota
	StateReplacing
	StateStreaming
	StateReporting
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateReplacing:
		return "replacing"
	case StateStreaming:
		return "streaming"
	case StateReporting:
		return "reporting"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Counters accumulates row accounting for one run. It is reset at run start
// and returned by value in the Summary.
//
// Invariant: RowsRead == RowsLoaded + RowsRejected, and RowsRejected equals
// BadLines plus the sum over ByReason.
type Counters struct {
	RowsRead     int64
	RowsLoaded   int64
	RowsRejected int64
	BadLines     int64
	Batches      int64
	ByReason     map[normalize.Reason]int64
}

func newCounters() Counters {
	return Counters{ByReason: map[normalize.Reason]int64{}}
}

func (c *Counters) addBatch(b *csvparser.Batch, res BatchResult) {
	c.Batches++
	c.RowsRead += int64(len(b.Records)) + int64(b.BadLines)
	c.RowsLoaded += res.Loaded
	c.RowsRejected += res.Rejected + int64(b.BadLines)
	c.BadLines += int64(b.BadLines)
	for reason, n := range res.Reasons {
		c.ByReason[reason] += n
	}
}

// Summary is the terminal outcome of a run.
type Summary struct {
	State       State
	Counters    Counters
	Fingerprint uint64
	Elapsed     time.Duration
}

// Print writes the per-run summary in the fixed key=value form used by the
// CLI at both Done and Aborted.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w,
		"run %s: read=%d loaded=%d rejected=%d bad_lines=%d batches=%d elapsed=%s fingerprint=%016x\n",
		s.State,
		s.Counters.RowsRead,
		s.Counters.RowsLoaded,
		s.Counters.RowsRejected,
		s.Counters.BadLines,
		s.Counters.Batches,
		s.Elapsed.Truncate(time.Millisecond),
		s.Fingerprint,
	)
	for _, reason := range normalize.Reasons {
		if n := s.Counters.ByReason[reason]; n > 0 {
			fmt.Fprintf(w, "  rejected %s=%d\n", reason, n)
		}
	}
}

// Function variables used to introduce test seams. In production these point
// to the real implementations.
var (
	newRepositoryFn = storage.New
	openSourceFn    = openSource
)

// Run executes one full load: replace, stream, report. Reports are written
// to out. On a fatal failure the returned Summary carries StateAborted and
// whatever counters had accumulated; the error describes the cause.
//
// The pipeline is the sole writer of the target table for the duration of
// the run. Readers querying mid-run may observe an empty or partially
// loaded table; completion is signaled by this function returning.
func Run(ctx context.Context, spec config.Pipeline, out io.Writer) (Summary, error) {
	start := time.Now()
	c := newCounters()

	abort := func(err error) (Summary, error) {
		return Summary{
			State:    StateAborted,
			Counters: c,
			Elapsed:  time.Since(start),
		}, err
	}

	batchSize := spec.Runtime.BatchSize
	if batchSize <= 0 {
		batchSize = config.DefaultBatchSize
	}

	// Start: open the input stream and bind the header. Failure here aborts
	// before any table mutation.
	src, err := openSourceFn(ctx, spec)
	if err != nil {
		return abort(fmt.Errorf("open source: %w", err))
	}
	// NewReader closes src itself when construction fails.
	rd, err := csvparser.NewReader(src, spec.Parser.Options, batchSize)
	if err != nil {
		return abort(fmt.Errorf("read header: %w", err))
	}
	defer rd.Close()

	repo, err := newRepositoryFn(ctx, storage.Config{
		Kind:  spec.Storage.Kind,
		DSN:   spec.Storage.DB.DSN,
		Table: spec.Storage.DB.Table,
	})
	if err != nil {
		return abort(fmt.Errorf("open storage: %w", err))
	}
	defer repo.Close()

	// Replacing: the full replace is issued once, before any batch commits.
	log.Printf("state=%s table=%s", StateReplacing, spec.Storage.DB.Table)
	replaceStart := time.Now()
	err = repo.Replace(ctx)
	metrics.RecordStep(spec.Job, "replace", err, time.Since(replaceStart))
	if err != nil {
		return abort(fmt.Errorf("replace table: %w", err))
	}

	// Streaming: one batch is fully normalized and loaded before the next
	// is read.
	log.Printf("state=%s batch_size=%d", StateStreaming, batchSize)
	loader := NewLoader(repo, normalize.New(rd.Header()))
	streamStart := time.Now()

	for {
		b, err := rd.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			metrics.RecordStep(spec.Job, "stream", err, time.Since(streamStart))
			return abort(fmt.Errorf("read batch: %w", err))
		}

		res, err := loader.Load(ctx, b)
		if err != nil {
			c.addBatch(b, res)
			metrics.RecordStep(spec.Job, "stream", err, time.Since(streamStart))
			return abort(fmt.Errorf("load: %w", err))
		}
		c.addBatch(b, res)

		log.Printf(
			"batch=%d loaded=%d rejected=%d total_loaded=%d elapsed=%s",
			b.Seq, res.Loaded, res.Rejected+int64(b.BadLines), c.RowsLoaded,
			time.Since(start).Truncate(time.Millisecond),
		)
	}
	metrics.RecordStep(spec.Job, "stream", nil, time.Since(streamStart))
	metrics.RecordRows(spec.Job, "read", c.RowsRead)
	metrics.RecordRows(spec.Job, "loaded", c.RowsLoaded)
	metrics.RecordRows(spec.Job, "rejected", c.RowsRejected)
	metrics.RecordRows(spec.Job, "bad_lines", c.BadLines)
	metrics.RecordRows(spec.Job, "batches", c.Batches)

	// Reporting: only after the stream is exhausted, so the queries see the
	// final table.
	log.Printf("state=%s", StateReporting)
	reportStart := time.Now()
	err = report.Print(ctx, out, repo)
	metrics.RecordStep(spec.Job, "report", err, time.Since(reportStart))
	if err != nil {
		return abort(err)
	}

	return Summary{
		State:       StateDone,
		Counters:    c,
		Fingerprint: loader.Fingerprint(),
		Elapsed:     time.Since(start),
	}, nil
}

// openSource builds the byte stream for the configured source kind.
func openSource(ctx context.Context, spec config.Pipeline) (io.ReadCloser, error) {
	var src datasource.Source
	switch spec.Source.Kind {
	case "file":
		src = file.NewLocal(spec.Source.File.Path)
	case "http":
		ua := spec.Source.HTTP.UserAgent
		if ua == "" {
			ua = config.DefaultUserAgent
		}
		client := httpds.NewClient(httpds.Config{UserAgent: ua})
		src = httpds.NewSource(client, spec.Source.HTTP.URL)
	default:
		return nil, fmt.Errorf("unsupported source.kind=%q", spec.Source.Kind)
	}
	return src.Open(ctx)
}

// Package csv turns the raw feed byte stream into fixed-size batches of raw
// records bound to the header's column names.
//
// The reader is strictly streaming: it holds at most one batch of records in
// memory, regardless of stream length. It consumes its stream and is not
// restartable; a new run opens a fresh stream and a fresh Reader.
package csv

import (
	"context"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"vendas/internal/config"
)

const utf8BOM = "\uFEFF"

// RawRecord is one data line split into cells, aligned to the source column
// order fixed by the header. Cells are plain text; typing happens in the
// normalizer.
type RawRecord []string

// Header binds column names to source positions for the duration of a run.
// Names are matched, not positions: the same column set in a different order
// produces an equivalent Header.
type Header struct {
	names []string
	index map[string]int
}

// Width returns the number of source columns.
func (h *Header) Width() int { return len(h.names) }

// Names returns the canonical column names in source order.
func (h *Header) Names() []string { return h.names }

// Value looks up the cell for the named column in rec. The second return is
// false when the column is absent from the source header.
func (h *Header) Value(rec RawRecord, name string) (string, bool) {
	i, ok := h.index[name]
	if !ok || i >= len(rec) {
		return "", ok
	}
	return rec[i], true
}

// Batch is an ordered slice of up to batchSize raw records, plus the count
// of structurally broken lines (wrong field count, unparseable quoting)
// encountered while assembling it. Broken lines never reach the normalizer.
type Batch struct {
	Seq      int
	Records  []RawRecord
	BadLines int
}

// Reader produces Batches from a delimited text stream. It reads the header
// line once at construction and then splits data lines against it.
type Reader struct {
	src    io.ReadCloser
	cr     *stdcsv.Reader
	header *Header
	trim   bool

	batchSize int
	seq       int
	line      int // 1-based physical line counter, header included
	done      bool
}

// NewReader wraps src in a Reader. The header line is consumed immediately;
// a stream that ends before any header yields a reader that is already
// exhausted (an empty feed is a valid, zero-row run).
//
// Recognized options: comma (default ';'), encoding ("utf-8" or "latin1"),
// trim_space (default true), header_map (source header -> canonical name).
// Headers not covered by header_map fall back to lowercased text with
// spaces replaced by underscores, so feeds that already carry canonical
// names bind without any mapping.
func NewReader(src io.ReadCloser, opt config.Options, batchSize int) (*Reader, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("csv: batch size must be > 0, got %d", batchSize)
	}

	dec, err := decodeReader(src, opt.String("encoding", "utf-8"))
	if err != nil {
		src.Close()
		return nil, err
	}

	cr := stdcsv.NewReader(dec)
	cr.Comma = opt.Rune("comma", ';')
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1 // width is enforced per line against the header

	r := &Reader{
		src:       src,
		cr:        cr,
		trim:      opt.Bool("trim_space", true),
		batchSize: batchSize,
	}

	if err := r.readHeader(opt.StringMap("header_map")); err != nil {
		src.Close()
		return nil, err
	}
	return r, nil
}

// Header returns the column binding parsed from the first line. For an empty
// stream it is a zero-width header.
func (r *Reader) Header() *Header { return r.header }

// Close closes the underlying stream.
func (r *Reader) Close() error { return r.src.Close() }

func (r *Reader) readHeader(headerMap map[string]string) error {
	r.header = &Header{index: map[string]int{}}

	r.line++
	hdr, err := r.cr.Read()
	if errors.Is(err, io.EOF) {
		r.done = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("csv: read header: %w", err)
	}

	for i, h := range hdr {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		if mapped, ok := headerMap[h]; ok {
			h = mapped
		} else {
			h = strings.ReplaceAll(strings.ToLower(h), " ", "_")
		}
		r.header.names = append(r.header.names, h)
		r.header.index[h] = i
	}
	return nil
}

// Next assembles and returns the next Batch. It returns io.EOF once the
// stream is exhausted and every record has been handed out. The final batch
// may be shorter than the batch size; a trailing batch that contains only
// broken lines is still returned so their count reaches the run totals.
func (r *Reader) Next(ctx context.Context) (*Batch, error) {
	if r.done {
		return nil, io.EOF
	}

	b := &Batch{Seq: r.seq}

	for len(b.Records) < r.batchSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		r.line++
		rec, err := r.cr.Read()
		if errors.Is(err, io.EOF) {
			r.done = true
			break
		}
		if err != nil {
			// Unparseable line (quoting etc.): structural reject.
			b.BadLines++
			continue
		}
		if len(rec) != r.header.Width() {
			b.BadLines++
			continue
		}

		// cr reuses its record buffer; copy cells out.
		row := make(RawRecord, len(rec))
		for i, v := range rec {
			if r.trim && hasEdgeSpace(v) {
				v = strings.TrimSpace(v)
			}
			row[i] = v
		}
		b.Records = append(b.Records, row)
	}

	if r.done && len(b.Records) == 0 && b.BadLines == 0 {
		return nil, io.EOF
	}
	r.seq++
	return b, nil
}

// decodeReader wraps src for the configured source encoding. The ANP portal
// has shipped both UTF-8 and ISO-8859-1 files over the years.
func decodeReader(src io.Reader, encoding string) (io.Reader, error) {
	switch encoding {
	case "", "utf-8", "utf8":
		return src, nil
	case "latin1", "iso-8859-1":
		return transform.NewReader(src, charmap.ISO8859_1.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("csv: unsupported encoding %q", encoding)
	}
}

// hasEdgeSpace reports whether s starts or ends with ASCII whitespace,
// letting the hot loop skip TrimSpace for already-clean cells.
func hasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case ' ', '\t', '\r', '\n':
		return true
	}
	switch s[len(s)-1] {
	case ' ', '\t', '\r', '\n':
		return true
	}
	return false
}

// Package batch drives the ingest → normalize → validate → render →
// pack pipeline for uploaded workbooks, and the same normalize+render
// step for single records.
package batch

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"invitegen/internal/event"
	"invitegen/internal/metrics"
	"invitegen/internal/render"
	"invitegen/internal/xlsx"
)

// ErrFieldsMissing rejects a single-record input with any required
// field empty.
var ErrFieldsMissing = errors.New("required fields missing")

// SchemaError rejects a whole batch whose first row does not satisfy
// the column contract. Missing preserves contract order.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// RowError records a row-local render failure. Failed rows do not
// abort the batch; they are reported alongside the archive.
type RowError struct {
	Row int // zero-based data row index
	Err error
}

// Document is one rendered invitation with its derived filename.
type Document struct {
	Name    string
	Content string
}

// Input is the single-record request body. The field set is closed;
// the HTTP layer rejects unknown fields before this type is filled.
type Input struct {
	City    string `json:"city"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Address string `json:"address"`
	Speaker string `json:"speaker"`
	Gender  string `json:"gender"`
}

// Result is the outcome of one batch: the packed archive plus per-row
// diagnostics. An archive with zero entries is a valid outcome.
type Result struct {
	ArchiveName string
	Data        []byte
	Total       int
	Rendered    int
	Skipped     []int // zero-based indices of silently skipped rows
	RowErrors   []RowError
}

// Pipeline wires the renderer and counters into the batch and
// single-record paths.
type Pipeline struct {
	renderer *render.Renderer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New wires a pipeline. A nil metrics or logger falls back to a
// private instance so callers without observability still work.
func New(renderer *render.Renderer, m *metrics.Metrics, logger *slog.Logger) *Pipeline {
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{renderer: renderer, metrics: m, logger: logger}
}

// ProcessWorkbook runs the whole batch. The column contract is checked
// once, against the first row, before any row work; a violation
// rejects the batch with SchemaError and no archive. After that, bad
// rows never abort the batch: rows with missing fields are skipped
// silently, rows whose render fails are collected in RowErrors.
func (p *Pipeline) ProcessWorkbook(ctx context.Context, r io.ReaderAt, size int64) (*Result, error) {
	rows, err := xlsx.Parse(r, size)
	if err != nil {
		return nil, err
	}

	if missing := event.MissingColumns(xlsx.Headers(rows[0])); len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	res := &Result{Total: len(rows)}
	staged := newStage()
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := event.FromRow(row)
		if !rec.Usable() {
			res.Skipped = append(res.Skipped, i)
			p.metrics.RowsSkipped.Inc()
			p.logger.Debug("row skipped", "row", i)
			continue
		}
		markup, err := p.renderer.Render(rec)
		if err != nil {
			res.RowErrors = append(res.RowErrors, RowError{Row: i, Err: err})
			p.metrics.RowsFailed.Inc()
			p.logger.Error("row render failed", "row", i, "error", err)
			continue
		}
		staged.put(event.DocumentName(rec.City, rec.Date, rec.Time), markup)
		res.Rendered++
		p.metrics.RowsRendered.Inc()
	}

	data, err := staged.pack()
	if err != nil {
		return nil, fmt.Errorf("pack archive: %w", err)
	}
	res.Data = data
	res.ArchiveName = fmt.Sprintf("invites-%d.zip", time.Now().UnixMilli())
	p.logger.Info("batch processed",
		"rows", res.Total,
		"rendered", res.Rendered,
		"skipped", len(res.Skipped),
		"failed", len(res.RowErrors))
	return res, nil
}

// GenerateOne is the single-record path: fail fast on missing fields,
// then the same normalize+render step the batch uses.
func (p *Pipeline) GenerateOne(in Input) (Document, error) {
	rec := event.Record{
		City:    in.City,
		Date:    event.NormalizeDate(in.Date),
		Time:    in.Time,
		Address: in.Address,
		Speaker: in.Speaker,
		Gender:  event.NormalizeGender(in.Gender),
	}
	if !rec.Usable() {
		return Document{}, ErrFieldsMissing
	}
	markup, err := p.renderer.Render(rec)
	if err != nil {
		return Document{}, err
	}
	return Document{
		Name:    event.DocumentName(rec.City, rec.Date, rec.Time),
		Content: markup,
	}, nil
}

// stage accumulates rendered documents before packing. A repeated
// filename overwrites the earlier content but keeps its original
// position, so identical city+date+time tuples collapse to the last
// row's document.
type stage struct {
	order  []string
	byName map[string]string
}

func newStage() *stage {
	return &stage{byName: make(map[string]string)}
}

func (s *stage) put(name, content string) {
	if _, ok := s.byName[name]; !ok {
		s.order = append(s.order, name)
	}
	s.byName[name] = content
}

func (s *stage) pack() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range s.order {
		w, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := io.WriteString(w, s.byName[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

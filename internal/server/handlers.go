package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"runtime/debug"
	"strings"

	"invitegen/internal/audit"
	"invitegen/internal/batch"
	"invitegen/internal/config"
	"invitegen/internal/xlsx"
)

// uploadField is the fixed multipart field name of the batch endpoint.
const uploadField = "file"

// User-facing messages, verbatim from the tool this service replaces.
const (
	msgFileMissing  = "Файл не найден"
	msgNoData       = "Файл не содержит данных"
	msgMissingCols  = "Отсутствуют обязательные столбцы: "
	msgBadBody      = "Некорректное тело запроса"
	msgFillAll      = "Заполните все поля"
	msgBatchFailed  = "Ошибка обработки XLSX файла"
	msgSingleFailed = "Ошибка генерации файла"
)

// handleGenerateBatch accepts a multipart spreadsheet and responds
// with a zip of rendered invitations. Contract violations (missing
// file, missing columns, empty sheet) are 400 with {error}; decode and
// render problems are 500 with diagnostic detail.
func (s *Server) handleGenerateBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	file, _, err := r.FormFile(uploadField)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, msgFileMissing)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.metrics.BatchesTotal.WithLabelValues("failed").Inc()
		s.writeInternal(w, msgBatchFailed, err)
		return
	}

	res, err := s.pipeline.ProcessWorkbook(r.Context(), bytes.NewReader(data), int64(len(data)))
	if err != nil {
		s.rejectBatch(w, r, err)
		return
	}

	s.metrics.BatchesTotal.WithLabelValues("ok").Inc()
	s.audit.Record(r.Context(), audit.Event{
		Kind:         "batch",
		Filename:     res.ArchiveName,
		RowsTotal:    res.Total,
		RowsRendered: res.Rendered,
		RowsSkipped:  len(res.Skipped),
		Success:      true,
	})

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+res.ArchiveName+`"`)
	w.Write(res.Data)
}

func (s *Server) rejectBatch(w http.ResponseWriter, r *http.Request, err error) {
	var se *batch.SchemaError
	switch {
	case errors.As(err, &se):
		s.metrics.BatchesTotal.WithLabelValues("rejected").Inc()
		s.audit.Record(r.Context(), audit.Event{Kind: "batch", Detail: se.Error()})
		s.writeError(w, http.StatusBadRequest, msgMissingCols+strings.Join(se.Missing, ", "))
	case errors.Is(err, xlsx.ErrNoData):
		s.metrics.BatchesTotal.WithLabelValues("rejected").Inc()
		s.audit.Record(r.Context(), audit.Event{Kind: "batch", Detail: err.Error()})
		s.writeError(w, http.StatusBadRequest, msgNoData)
	default:
		// malformed container or unclassified failure
		s.metrics.BatchesTotal.WithLabelValues("failed").Inc()
		s.audit.Record(r.Context(), audit.Event{Kind: "batch", Detail: err.Error()})
		s.writeInternal(w, msgBatchFailed, err)
	}
}

// handleGenerateOne renders one record from a JSON body. The field set
// is closed: unknown fields reject the request before any work.
func (s *Server) handleGenerateOne(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxUpload))
	dec.DisallowUnknownFields()
	var in batch.Input
	if err := dec.Decode(&in); err != nil {
		s.metrics.SinglesTotal.WithLabelValues(s.mode, "invalid").Inc()
		s.writeError(w, http.StatusBadRequest, msgBadBody)
		return
	}

	doc, err := s.pipeline.GenerateOne(in)
	if err != nil {
		if errors.Is(err, batch.ErrFieldsMissing) {
			s.metrics.SinglesTotal.WithLabelValues(s.mode, "invalid").Inc()
			s.writeError(w, http.StatusBadRequest, msgFillAll)
			return
		}
		s.metrics.SinglesTotal.WithLabelValues(s.mode, "failed").Inc()
		s.audit.Record(r.Context(), audit.Event{Kind: "single", Detail: err.Error()})
		s.writeInternal(w, msgSingleFailed, err)
		return
	}

	if s.mode == config.ModeLink && s.store != nil {
		url, err := s.store.Publish(doc.Name, doc.Content)
		if err != nil {
			s.metrics.SinglesTotal.WithLabelValues(s.mode, "failed").Inc()
			s.writeInternal(w, msgSingleFailed, err)
			return
		}
		s.metrics.SinglesTotal.WithLabelValues(s.mode, "ok").Inc()
		s.audit.Record(r.Context(), audit.Event{Kind: "single", Filename: doc.Name, Success: true})
		s.writeJSON(w, http.StatusOK, map[string]string{"url": url})
		return
	}

	s.metrics.SinglesTotal.WithLabelValues(s.mode, "ok").Inc()
	s.audit.Record(r.Context(), audit.Event{Kind: "single", Filename: doc.Name, Success: true})
	// plain quoting: %q would Go-escape non-ASCII runes left by the
	// transliteration fallback
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Name+`"`)
	io.WriteString(w, doc.Content)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}

// writeInternal includes the error detail and a stack trace in the
// body. This service is an internal tool; the diagnostic payload is
// intentional and must not leak into a public deployment.
func (s *Server) writeInternal(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "error", err)
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   msg,
		"details": err.Error(),
		"stack":   string(debug.Stack()),
	})
}

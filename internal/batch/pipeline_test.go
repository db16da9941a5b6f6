package batch

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/unidoc/unioffice/spreadsheet"

	"invitegen/internal/event"
	"invitegen/internal/metrics"
	"invitegen/internal/render"
	"invitegen/internal/xlsx"
)

var testHeaders = []string{"Город", "Дата", "Время проведения", "Адрес проведения", "ФИО Спикера", "Гендер"}

func buildWorkbook(t *testing.T, rows [][]string) *bytes.Reader {
	t.Helper()
	wb := spreadsheet.New()
	sheet := wb.AddSheet()
	for _, cells := range rows {
		row := sheet.AddRow()
		for _, v := range cells {
			cell := row.AddCell()
			if v != "" {
				cell.SetString(v)
			}
		}
	}
	var buf bytes.Buffer
	if err := wb.Save(&buf); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	path := filepath.Join(t.TempDir(), "event-template.html")
	tmpl := `<p>{{.Speaker}}, {{.Gender}}</p><p>{{.Date}} {{.Time}} {{.Address}}</p>`
	if err := os.WriteFile(path, []byte(tmpl), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	r, err := render.NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	return New(r, metrics.New(), nil)
}

func readArchive(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	out := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		out[f.Name] = string(b)
	}
	return out
}

func TestProcessWorkbook(t *testing.T) {
	p := newTestPipeline(t)
	r := buildWorkbook(t, [][]string{
		testHeaders,
		{"Москва", "07.04.2025", "15:45-18:25", "ул. Ленина 1", "Иванов Иван", "м"},
		{"Казань", "2025-09-01", "10:00", "ул. Баумана 5", "Иванова Анна", "ж"},
	})

	res, err := p.ProcessWorkbook(context.Background(), r, r.Size())
	if err != nil {
		t.Fatalf("ProcessWorkbook: %v", err)
	}
	if res.Rendered != 2 || len(res.Skipped) != 0 || len(res.RowErrors) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.HasPrefix(res.ArchiveName, "invites-") || !strings.HasSuffix(res.ArchiveName, ".zip") {
		t.Errorf("archive name %q", res.ArchiveName)
	}

	entries := readArchive(t, res.Data)
	masc, ok := entries["moskva-07-04-2025-1545-1825.html"]
	if !ok {
		t.Fatalf("missing expected entry, have %v", keys(entries))
	}
	if !strings.Contains(masc, string(event.GenderMasculine)) {
		t.Errorf("masculine token missing:\n%s", masc)
	}
	fem, ok := entries["kazan-01-09-2025-1000.html"]
	if !ok {
		t.Fatalf("missing normalized-date entry, have %v", keys(entries))
	}
	if !strings.Contains(fem, string(event.GenderFeminine)) {
		t.Errorf("feminine token missing:\n%s", fem)
	}
}

func TestProcessWorkbookSchemaViolation(t *testing.T) {
	p := newTestPipeline(t)
	r := buildWorkbook(t, [][]string{
		{"Город", "Дата", "Время проведения", "Адрес проведения", "ФИО Спикера"},
		{"Москва", "07.04.2025", "15:45", "ул. Ленина 1", "Иванов Иван"},
	})

	_, err := p.ProcessWorkbook(context.Background(), r, r.Size())
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want SchemaError", err)
	}
	if len(se.Missing) != 1 || se.Missing[0] != "Гендер" {
		t.Errorf("Missing = %v, want [Гендер]", se.Missing)
	}
}

func TestProcessWorkbookSkipsUnusableRows(t *testing.T) {
	p := newTestPipeline(t)
	r := buildWorkbook(t, [][]string{
		testHeaders,
		{"Москва", "07.04.2025", "15:45", "ул. Ленина 1", "Иванов Иван", "м"},
		{"Казань", "08.04.2025", "10:00", "ул. Баумана 5", "", "ж"},
		{"Тверь", "09.04.2025", "11:00", "ул. Советская 2", "Петров Петр", "м"},
	})

	res, err := p.ProcessWorkbook(context.Background(), r, r.Size())
	if err != nil {
		t.Fatalf("ProcessWorkbook: %v", err)
	}
	if res.Rendered != 2 {
		t.Errorf("Rendered = %d, want 2", res.Rendered)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != 1 {
		t.Errorf("Skipped = %v, want [1]", res.Skipped)
	}
	entries := readArchive(t, res.Data)
	if len(entries) != 2 {
		t.Errorf("archive has %d entries, want 2: %v", len(entries), keys(entries))
	}
}

func TestProcessWorkbookCollisionLastWins(t *testing.T) {
	p := newTestPipeline(t)
	r := buildWorkbook(t, [][]string{
		testHeaders,
		{"Москва", "07.04.2025", "15:45", "ул. Ленина 1", "Иванов Иван", "м"},
		{"Москва", "07.04.2025", "15:45", "ул. Ленина 1", "Сидоров Семен", "м"},
	})

	res, err := p.ProcessWorkbook(context.Background(), r, r.Size())
	if err != nil {
		t.Fatalf("ProcessWorkbook: %v", err)
	}
	entries := readArchive(t, res.Data)
	if len(entries) != 1 {
		t.Fatalf("archive has %d entries, want 1", len(entries))
	}
	content := entries["moskva-07-04-2025-1545.html"]
	if !strings.Contains(content, "Сидоров Семен") {
		t.Errorf("later row must win the collision:\n%s", content)
	}
}

func TestProcessWorkbookAllRowsSkipped(t *testing.T) {
	p := newTestPipeline(t)
	r := buildWorkbook(t, [][]string{
		testHeaders,
		{"Москва", "07.04.2025", "", "ул. Ленина 1", "Иванов Иван", "м"},
	})

	res, err := p.ProcessWorkbook(context.Background(), r, r.Size())
	if err != nil {
		t.Fatalf("empty outcome is not a pipeline error, got %v", err)
	}
	if res.Rendered != 0 || len(res.Skipped) != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
	if entries := readArchive(t, res.Data); len(entries) != 0 {
		t.Errorf("archive must be empty, got %v", keys(entries))
	}
}

func TestProcessWorkbookRenderFailureIsRowLocal(t *testing.T) {
	// .Speaker is a string, so evaluating a field on it fails at
	// execute time for the one row that takes the branch.
	path := filepath.Join(t.TempDir(), "event-template.html")
	tmpl := `{{if eq .Speaker "Сбойный Спикер"}}{{.Speaker.Explode}}{{end}}<p>{{.Speaker}}</p>`
	if err := os.WriteFile(path, []byte(tmpl), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	renderer, err := render.NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	p := New(renderer, metrics.New(), nil)

	r := buildWorkbook(t, [][]string{
		testHeaders,
		{"Москва", "07.04.2025", "15:45", "ул. Ленина 1", "Иванов Иван", "м"},
		{"Казань", "08.04.2025", "10:00", "ул. Баумана 5", "Сбойный Спикер", "м"},
		{"Тверь", "09.04.2025", "11:00", "ул. Советская 2", "Петров Петр", "м"},
	})

	res, err := p.ProcessWorkbook(context.Background(), r, r.Size())
	if err != nil {
		t.Fatalf("a failing row must not abort the batch, got %v", err)
	}
	if res.Rendered != 2 {
		t.Errorf("Rendered = %d, want 2", res.Rendered)
	}
	if len(res.RowErrors) != 1 || res.RowErrors[0].Row != 1 {
		t.Fatalf("RowErrors = %+v, want one entry for row 1", res.RowErrors)
	}
	var re *render.Error
	if !errors.As(res.RowErrors[0].Err, &re) {
		t.Errorf("row error = %v, want render.Error", res.RowErrors[0].Err)
	}
	if len(res.Skipped) != 0 {
		t.Errorf("Skipped = %v, want none", res.Skipped)
	}
	entries := readArchive(t, res.Data)
	if len(entries) != 2 {
		t.Errorf("archive has %d entries, want 2: %v", len(entries), keys(entries))
	}
	if _, ok := entries["kazan-08-04-2025-1000.html"]; ok {
		t.Error("failed row must not reach the archive")
	}
}

func TestPipelineNilMetrics(t *testing.T) {
	p := New(newTestPipeline(t).renderer, nil, nil)

	r := buildWorkbook(t, [][]string{
		testHeaders,
		{"Москва", "07.04.2025", "15:45", "ул. Ленина 1", "Иванов Иван", "м"},
	})
	res, err := p.ProcessWorkbook(context.Background(), r, r.Size())
	if err != nil {
		t.Fatalf("ProcessWorkbook without metrics: %v", err)
	}
	if res.Rendered != 1 {
		t.Errorf("Rendered = %d, want 1", res.Rendered)
	}
}

func TestGenerateOne(t *testing.T) {
	p := newTestPipeline(t)
	doc, err := p.GenerateOne(Input{
		City:    "Москва",
		Date:    "2025-04-07",
		Time:    "15:45-18:25",
		Address: "ул. Ленина 1",
		Speaker: "Иванова Анна",
		Gender:  "ж",
	})
	if err != nil {
		t.Fatalf("GenerateOne: %v", err)
	}
	if doc.Name != "moskva-07-04-2025-1545-1825.html" {
		t.Errorf("Name = %q", doc.Name)
	}
	if !strings.Contains(doc.Content, "07.04.2025") {
		t.Errorf("date not normalized:\n%s", doc.Content)
	}
	if !strings.Contains(doc.Content, string(event.GenderFeminine)) {
		t.Errorf("feminine token missing:\n%s", doc.Content)
	}
}

func TestGenerateOneMissingFields(t *testing.T) {
	p := newTestPipeline(t)
	_, err := p.GenerateOne(Input{City: "Москва", Date: "2025-04-07"})
	if !errors.Is(err, ErrFieldsMissing) {
		t.Fatalf("got %v, want ErrFieldsMissing", err)
	}
}

func TestProcessWorkbookDecodeFailure(t *testing.T) {
	p := newTestPipeline(t)
	junk := strings.NewReader("not a workbook at all")
	_, err := p.ProcessWorkbook(context.Background(), junk, junk.Size())
	var de *xlsx.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("got %v, want DecodeError", err)
	}
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

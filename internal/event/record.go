// Package event holds the invitation record model and the pure
// normalization and validation rules applied to spreadsheet rows and
// form submissions before rendering.
package event

import "strings"

// Gender selects the grammatical agreement token used by the
// invitation template.
type Gender string

const (
	GenderMasculine Gender = "имеющий"
	GenderFeminine  Gender = "имеющая"
)

// RawRow is one decoded spreadsheet data row, keyed by the header
// label exactly as it appears in the sheet. Cells absent in the source
// row are absent from the map.
type RawRow map[string]string

// Record is a normalized invitation event ready for rendering.
type Record struct {
	City    string
	Date    string // canonical DD.MM.YYYY display form
	Time    string // free-form, e.g. "15:45-18:25"
	Address string
	Speaker string
	Gender  Gender
}

// Usable reports whether the record carries every field the template
// needs. Unusable rows are skipped, not reported; callers must not
// turn this into an error.
func (r Record) Usable() bool {
	return r.City != "" && r.Date != "" && r.Time != "" && r.Address != "" && r.Speaker != ""
}

// FromRow builds a Record from a raw spreadsheet row. Field lookup
// uses the same substring rule as the header contract check, so a
// decorated header like "Город проведения" still resolves.
func FromRow(row RawRow) Record {
	return Record{
		City:    row.lookup(colCity),
		Date:    NormalizeDate(row.lookup(colDate)),
		Time:    row.lookup(colTime),
		Address: row.lookup(colAddress),
		Speaker: row.lookup(colSpeaker),
		Gender:  NormalizeGender(row.lookup(colGender)),
	}
}

// lookup prefers the exact header label and falls back to the first
// header containing it.
func (r RawRow) lookup(label string) string {
	if v, ok := r[label]; ok {
		return v
	}
	for h, v := range r {
		if strings.Contains(h, label) {
			return v
		}
	}
	return ""
}

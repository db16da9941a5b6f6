// Package render binds normalized records to the invitation template.
// The template is an external, versioned file; this package does not
// interpret its contents.
package render

import (
	"fmt"
	"html/template"
	"strings"

	"invitegen/internal/event"
)

// Error wraps a failure of the template engine, propagated without
// interpretation.
type Error struct {
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("render template: %v", e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Renderer executes the invitation template against event records.
type Renderer struct {
	tmpl *template.Template
}

// NewFromFile parses the template once; the file is not re-read per
// request, so template upgrades need a restart.
func NewFromFile(path string) (*Renderer, error) {
	tmpl, err := template.ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", path, err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// view is the fixed five-value contract the template is written
// against.
type view struct {
	Date    string
	Time    string
	Address string
	Speaker string
	Gender  string
}

// Render produces the invitation markup for one record.
func (r *Renderer) Render(rec event.Record) (string, error) {
	var b strings.Builder
	err := r.tmpl.Execute(&b, view{
		Date:    rec.Date,
		Time:    rec.Time,
		Address: rec.Address,
		Speaker: rec.Speaker,
		Gender:  string(rec.Gender),
	})
	if err != nil {
		return "", &Error{Err: err}
	}
	return b.String(), nil
}

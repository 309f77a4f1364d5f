// Package view holds the public HTML templates.
package view

import (
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.html
var files embed.FS

const dateLayout = "Jan 2, 2006"

// FuncMap is shared by every template.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"date": func(t time.Time) string {
			return t.Format(dateLayout)
		},
		// ISO 8601，用于 OpenGraph 时间标签
		"iso": func(t time.Time) string {
			return t.UTC().Format(time.RFC3339)
		},
		"year": func() int {
			return time.Now().Year()
		},
	}
}

// Templates parses the embedded templates. Page templates are addressed by
// file name, e.g. "home.html".
func Templates() (*template.Template, error) {
	return template.New("").Funcs(FuncMap()).ParseFS(files, "templates/*.html")
}

// Package web holds the server-rendered pages: the approval form and the
// generic message page for token errors and confirmations.
package web

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/*.html.tmpl
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html.tmpl"))

// Render executes a named page template.
func Render(w io.Writer, name string, data interface{}) error {
	return templates.ExecuteTemplate(w, name, data)
}

// Page names.
const (
	ApprovalPage = "approval.html.tmpl"
	MessagePage  = "message.html.tmpl"
)

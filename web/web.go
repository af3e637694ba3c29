package web

import "embed"

// Templates holds the embedded web/templates directory.
// Renderers parse it via template.ParseFS(Templates, "templates/*.html").
//
//go:embed templates/*.html
var Templates embed.FS

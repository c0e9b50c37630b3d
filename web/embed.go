package web

import "embed"

// TemplatesFS embeds the report page templates. Every page is
// self-contained: styling and behavior are inlined, no external assets.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

package web

import "embed"

// TemplatesFS embeds the HTML templates used for rendered report
// downloads.
//go:embed templates/*.html
var TemplatesFS embed.FS

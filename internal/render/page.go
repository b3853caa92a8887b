package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"chronicle/reorder/internal/document"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    html, body { margin: 0; padding: 0; }
    body { font-family: Arial, sans-serif; line-height: 1.6; }
    [data-editor] { width: {{.Width}}px; margin-left: {{.Left}}px; padding: 0; }
    [data-editor] > * { margin: 0 0 8px 0; }
    [data-editor] ul, [data-editor] ol { padding-left: 24px; }
    li > p { margin: 0; }
  </style>
</head>
<body>
  <div data-editor>
{{.Body}}  </div>
</body>
</html>`))

// PageOptions controls the measurement page geometry.
type PageOptions struct {
	Title string
	Left  float64
	Width float64
}

// Page renders a standalone page whose [data-editor] element is the editor.
func Page(doc *document.Document, opts PageOptions) (string, error) {
	if opts.Width <= 0 {
		opts.Width = 720
	}
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, struct {
		Title string
		Left  float64
		Width float64
		Body  template.HTML
	}{
		Title: opts.Title,
		Left:  opts.Left,
		Width: opts.Width,
		Body:  template.HTML(HTML(doc)),
	})
	if err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}
	return buf.String(), nil
}

// DataURL encodes a page for direct navigation.
func DataURL(page string) string {
	return "data:text/html;charset=utf-8," + percentEncodeForDataURL(page)
}

// percentEncodeForDataURL encodes a string for use in a data URL
// Unlike url.QueryEscape, this properly encodes spaces as %20 for data URLs
func percentEncodeForDataURL(s string) string {
	var result strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '-', r == '_', r == '.', r == '~':
			result.WriteRune(r)
		default:
			for _, b := range []byte(string(r)) {
				fmt.Fprintf(&result, "%%%02X", b)
			}
		}
	}
	return result.String()
}

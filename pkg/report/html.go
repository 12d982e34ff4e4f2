package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/papercomputeco/judgebench/pkg/aggregator"
)

var page = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, -apple-system, "Segoe UI", Roboto, sans-serif; margin: 20px; background-color: #f9f9f9; color: #333; }
h1, h2 { color: #1a1a1a; border-bottom: 1px solid #eee; padding-bottom: 5px; }
table { border-collapse: collapse; width: 100%; margin-bottom: 20px; background-color: #fff; box-shadow: 0 1px 3px rgba(0,0,0,0.1); }
th, td { border: 1px solid #ddd; padding: 10px; text-align: left; vertical-align: top; }
th { background-color: #f2f2f2; }
tr:nth-child(even) { background-color: #f9f9f9; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// markdown renders GFM tables. The default renderer omits raw HTML.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithXHTML()),
)

// HTML renders the report as a standalone HTML page.
func HTML(summary aggregator.Summary, entries []aggregator.Entry) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(summary, entries)), &body); err != nil {
		return nil, fmt.Errorf("rendering report markdown: %w", err)
	}

	var out bytes.Buffer
	err := page.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{
		Title: "LLM Benchmark Report",
		Body:  template.HTML(body.String()), //nolint:gosec // goldmark omits raw HTML by default
	})
	if err != nil {
		return nil, fmt.Errorf("rendering report page: %w", err)
	}

	return out.Bytes(), nil
}

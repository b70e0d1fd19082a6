package export

import (
	htmltemplate "html/template"
	"io"
	"strings"
	texttemplate "text/template"

	"github.com/legacylink/legacylink/pkg/errors"
)

// Format names an export document type.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts "html"/"htm" and "markdown"/"md".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "html", "htm":
		return FormatHTML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "invalid export format: %q (must be one of: html, markdown)", s)
}

// Extension returns the file extension for f, with the dot.
func (f Format) Extension() string {
	if f == FormatMarkdown {
		return ".md"
	}
	return ".html"
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatMarkdown {
		return "text/markdown; charset=utf-8"
	}
	return "text/html; charset=utf-8"
}

// Write renders book in format f.
func Write(w io.Writer, f Format, book Book) error {
	switch f {
	case FormatHTML:
		return HTML(w, book)
	case FormatMarkdown:
		return Markdown(w, book)
	}
	return errors.New(errors.ErrCodeInvalidFormat, "invalid export format: %q", f)
}

var funcs = map[string]any{
	"join": func(s []string) string { return strings.Join(s, ", ") },
}

var htmlTmpl = htmltemplate.Must(htmltemplate.New("book").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Georgia, serif; max-width: 46em; margin: 2em auto; color: #222; }
h1 { border-bottom: 2px solid #8a6d3b; }
h2 { color: #8a6d3b; margin-top: 2em; }
.member { border-left: 3px solid #ddd; padding-left: 1em; margin: 1.5em 0; }
.member.deceased { border-color: #999; }
.member img { max-width: 8em; float: right; }
.meta { color: #666; font-size: 0.9em; }
dt { font-weight: bold; float: left; width: 6em; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">{{.Members}} members, {{.Living}} living{{if .Focus}}. Relations are shown relative to {{.Focus}}{{end}}.</p>
{{range .Chapters}}
<section>
<h2>{{.Title}}</h2>
{{range .Entries}}
<article class="member{{if .Deceased}} deceased{{end}}" id="{{.ID}}">
{{if .Photo}}<img src="{{.Photo}}" alt="{{.Name}}">{{end}}
<h3>{{.Name}}{{if .Lifespan}} <span class="meta">({{.Lifespan}})</span>{{end}}</h3>
{{if .Relation}}<p class="meta">{{.Relation}}</p>{{end}}
{{if .Biography}}<p>{{.Biography}}</p>{{end}}
<dl>
{{if .Parents}}<dt>Parents</dt><dd>{{join .Parents}}</dd>{{end}}
{{if .Spouses}}<dt>Spouses</dt><dd>{{join .Spouses}}</dd>{{end}}
{{if .Siblings}}<dt>Siblings</dt><dd>{{join .Siblings}}</dd>{{end}}
{{if .Children}}<dt>Children</dt><dd>{{join .Children}}</dd>{{end}}
</dl>
</article>
{{end}}
</section>
{{end}}
</body>
</html>
`))

var markdownTmpl = texttemplate.Must(texttemplate.New("book").Funcs(funcs).Parse(`# {{.Title}}

{{.Members}} members, {{.Living}} living{{if .Focus}}. Relations are shown relative to {{.Focus}}{{end}}.
{{range .Chapters}}
## {{.Title}}
{{range .Entries}}
### {{.Name}}{{if .Lifespan}} ({{.Lifespan}}){{end}}
{{if .Relation}}
_{{.Relation}}_
{{end}}{{if .Biography}}
{{.Biography}}
{{end}}
{{if .Parents}}- **Parents:** {{join .Parents}}
{{end}}{{if .Spouses}}- **Spouses:** {{join .Spouses}}
{{end}}{{if .Siblings}}- **Siblings:** {{join .Siblings}}
{{end}}{{if .Children}}- **Children:** {{join .Children}}
{{end}}{{end}}{{end}}`))

// HTML writes book as a standalone HTML page. Member text is escaped.
func HTML(w io.Writer, book Book) error {
	if err := htmlTmpl.Execute(w, book); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "render html")
	}
	return nil
}

// Markdown writes book as a Markdown document.
func Markdown(w io.Writer, book Book) error {
	if err := markdownTmpl.Execute(w, book); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "render markdown")
	}
	return nil
}

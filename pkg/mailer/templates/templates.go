// Package templates renders the embedded email and archive layouts.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	htmpl "html/template"
	"strings"
	texttpl "text/template"

	jsoniter "github.com/json-iterator/go"
)

//go:embed *.tmpl
var FS embed.FS

// Message is the one layout every outgoing email is rendered with.
const Message = "message"

// EmailData defines standard fields for email templates.
type EmailData struct {
	Name    string `json:"Name"`
	Email   string `json:"Email"`
	Subject string `json:"Subject"`
	// Content is trusted HTML; PlainContent is its text rendition.
	Content      string `json:"Content"`
	PlainContent string `json:"PlainContent"`

	AppName        string `json:"AppName"`
	CompanyName    string `json:"CompanyName"`
	CompanyAddress string `json:"CompanyAddress"`
	LogoURL        string `json:"LogoURL"`
	SupportURL     string `json:"SupportURL"`
	UnsubscribeURL string `json:"UnsubscribeURL"`

	SentAt string `json:"SentAt"`
}

var dataJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// ToMap flattens EmailData into the shape an EmailJob carries, so queued and
// inline deliveries render from identical data.
func ToMap(d EmailData) map[string]any {
	b, _ := dataJSON.Marshal(d)
	var m map[string]any
	_ = dataJSON.Unmarshal(b, &m)
	return m
}

// orDefault backs {{ .Value | default "Fallback" }}. Missing keys and blank
// strings take the fallback.
func orDefault(fallback, value any) any {
	if value == nil {
		return fallback
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return fallback
	}
	return value
}

var (
	textSet = texttpl.Must(texttpl.New("").
		Funcs(texttpl.FuncMap{"default": orDefault}).
		ParseFS(FS, "*.subject.tmpl", "*.text.tmpl"))

	htmlSet = htmpl.Must(htmpl.New("").
		Funcs(htmpl.FuncMap{
			"default": orDefault,
			"trusted": func(v any) htmpl.HTML { return htmpl.HTML(fmt.Sprint(v)) },
		}).
		ParseFS(FS, "*.html.tmpl"))
)

func execText(name string, data any) (string, error) {
	if textSet.Lookup(name) == nil {
		return "", fmt.Errorf("template %q not found", name)
	}
	var buf bytes.Buffer
	if err := textSet.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("exec %q: %w", name, err)
	}
	return buf.String(), nil
}

func execHTML(name string, data any) (string, error) {
	if htmlSet.Lookup(name) == nil {
		return "", fmt.Errorf("template %q not found", name)
	}
	var buf bytes.Buffer
	if err := htmlSet.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("exec %q: %w", name, err)
	}
	return buf.String(), nil
}

// Render produces the subject, text and HTML bodies of layout name from
// <name>.subject.tmpl, <name>.text.tmpl and <name>.html.tmpl.
func Render(name string, data any) (subject, text, html string, err error) {
	if subject, err = execText(name+".subject.tmpl", data); err != nil {
		return "", "", "", err
	}
	if text, err = execText(name+".text.tmpl", data); err != nil {
		return "", "", "", err
	}
	if html, err = execHTML(name+".html.tmpl", data); err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(subject), text, html, nil
}

// RenderHTML renders <name>.html.tmpl alone.
func RenderHTML(name string, data any) (string, error) {
	return execHTML(name+".html.tmpl", data)
}

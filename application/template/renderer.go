// Package template renders machine descriptions that carry text/template
// placeholders, so one description can serve several test machines.
package template

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/reglet-dev/acpica-osl/domain/ports"
)

const pageSize = 0x1000

// Option tunes a Renderer.
type Option func(*Renderer)

// WithStrict controls what a placeholder naming an absent value does.
// Strict renderers (the default) fail; lenient ones print "<no value>".
func WithStrict(enabled bool) Option {
	return func(r *Renderer) {
		r.strict = enabled
	}
}

// Renderer expands machine description templates. Values are reachable as
// {{.values.key}}; the helpers are:
//
//	hex      integer as 0x-prefixed hex, the way addresses are written
//	upper    upper-cased string, for table signatures
//	pages    integer rounded up to a whole 4 KiB page
//	default  fallback for a nil or empty value: {{default 2 .values.n}}
type Renderer struct {
	strict bool
}

// NewRenderer returns a Renderer as a ports.TemplateEngine.
func NewRenderer(opts ...Option) ports.TemplateEngine {
	r := &Renderer{strict: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var funcs = template.FuncMap{
	"hex":   func(v any) string { return fmt.Sprintf("%#x", v) },
	"upper": strings.ToUpper,
	"pages": pages,
	"default": func(fallback, v any) any {
		if v == nil {
			return fallback
		}
		if s, ok := v.(string); ok && s == "" {
			return fallback
		}
		return v
	},
}

func (r *Renderer) Render(raw []byte, values map[string]interface{}) ([]byte, error) {
	tmpl := template.New("machine").Funcs(funcs)
	if r.strict {
		tmpl = tmpl.Option("missingkey=error")
	}

	tmpl, err := tmpl.Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse machine template: %w", err)
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, map[string]interface{}{"values": values}); err != nil {
		return nil, fmt.Errorf("failed to execute machine template: %w", err)
	}
	return out.Bytes(), nil
}

func pages(v any) (uint64, error) {
	var n uint64
	switch x := v.(type) {
	case int:
		if x < 0 {
			return 0, fmt.Errorf("pages: negative size %d", x)
		}
		n = uint64(x)
	case int64:
		if x < 0 {
			return 0, fmt.Errorf("pages: negative size %d", x)
		}
		n = uint64(x)
	case uint64:
		n = x
	case uint32:
		n = uint64(x)
	default:
		return 0, fmt.Errorf("pages: %T is not an integer", v)
	}
	return (n + pageSize - 1) &^ (pageSize - 1), nil
}

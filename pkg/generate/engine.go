package generate

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"github.com/flosch/pongo2/v6"
)

//go:embed templates/*.tpl
var builtinTemplates embed.FS

// Engine renders the XML artifact templates. Templates resolve from the
// embedded set by default; WithFS swaps in an external template tree.
type Engine struct {
	fsys    fs.FS
	baseDir string
	set     *pongo2.TemplateSet
	cache   map[string]*pongo2.Template
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithFS overrides the template source.
func WithFS(fsys fs.FS) EngineOption {
	return func(e *Engine) {
		if fsys != nil {
			e.fsys = fsys
		}
	}
}

// WithBaseDir sets the directory prefix templates are resolved under.
func WithBaseDir(dir string) EngineOption {
	return func(e *Engine) { e.baseDir = dir }
}

// NewEngine returns an Engine with defaults applied.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{cache: map[string]*pongo2.Template{}}
	for _, opt := range opts {
		opt(e)
	}
	if e.fsys == nil {
		e.fsys = builtinTemplates
		e.baseDir = "templates"
	}
	e.set = pongo2.NewSet("procgen", pongo2.NewFSLoader(e.fsys))
	return e
}

// Render executes the named template against data.
func (e *Engine) Render(name string, data map[string]any) (string, error) {
	tpl, err := e.template(name)
	if err != nil {
		return "", err
	}
	ctx, err := convertToContext(data)
	if err != nil {
		return "", fmt.Errorf("generate: build context for %s: %w", name, err)
	}
	out, err := tpl.Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("generate: render %s: %w", name, err)
	}
	return out, nil
}

func (e *Engine) template(name string) (*pongo2.Template, error) {
	if tpl, ok := e.cache[name]; ok {
		return tpl, nil
	}
	path := name
	if e.baseDir != "" {
		path = e.baseDir + "/" + name
	}
	tpl, err := e.set.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("generate: load template %s: %w", name, err)
	}
	e.cache[name] = tpl
	return tpl, nil
}

// convertToContext flattens arbitrary values through a JSON round trip so
// templates see plain maps and slices regardless of the source types.
func convertToContext(data map[string]any) (pongo2.Context, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, err
	}
	return pongo2.Context(out), nil
}

// xmlEscape escapes the five XML metacharacters.
func xmlEscape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}

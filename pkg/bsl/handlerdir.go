package bsl

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/itdeo/go-procgen/internal/model"
)

// LoadHandlerDir reads one <HandlerName>.bsl file per bound handler from dir
// and splits the combined source. A file that already carries an annotation
// or opener passes verbatim; a bare body is wrapped into the event's
// canonical signature. Missing required handlers become warnings so the
// injector falls back to stubs.
func LoadHandlerDir(dir string, form *model.Form) (*SplitResult, error) {
	c := &dirCollector{dir: dir, seen: map[string]struct{}{}}

	for _, binding := range form.Events {
		sig, known := FormEventSignatures[binding.Event]
		if !known {
			continue
		}
		c.collect(binding.Handler, sig, true)
		if sig.ServerCall != "" {
			c.collect(sig.ServerCall, serverSignature(""), false)
		}
	}

	var walk func(els []*model.FormElement)
	walk = func(els []*model.FormElement) {
		for _, el := range els {
			for _, binding := range el.Events {
				sig, known := ElementEventSignatures[binding.Event]
				if !known {
					continue
				}
				c.collect(binding.Handler, sig, true)
				if sig.ServerCallSuffix != "" {
					c.collect(binding.Handler+sig.ServerCallSuffix, serverSignature(""), false)
				}
			}
			walk(el.Children)
		}
	}
	walk(form.Elements)
	walk(form.AutoCommandBar)

	for _, cmd := range form.Commands {
		if cmd.LongOperation {
			c.collect(cmd.Name+"НаСервере", serverSignature("Параметры, АдресРезультата"), true)
			c.collect(cmd.Name+"ПроверкаПередЗапуском", commandSignature(""), false)
			c.collect(cmd.Name+"ОбработкаРезультата", commandSignature("Результат"), false)
			continue
		}
		c.collect(cmd.Action, commandSignature("Команда"), true)
		c.collect(cmd.Action+"НаСервере", serverSignature(""), false)
	}

	res := Split(strings.Join(c.sources, "\n\n"))
	res.Warnings = append(c.warnings, res.Warnings...)
	return res, nil
}

type dirCollector struct {
	dir      string
	seen     map[string]struct{}
	sources  []string
	warnings []string
}

// collect reads <name>.bsl once; required names missing from the directory
// produce a warning, optional companions stay silent.
func (c *dirCollector) collect(name string, sig EventSignature, required bool) {
	if _, dup := c.seen[name]; dup {
		return
	}
	c.seen[name] = struct{}{}

	payload, err := os.ReadFile(filepath.Join(c.dir, name+".bsl"))
	if err != nil {
		if required {
			c.warnings = append(c.warnings, fmt.Sprintf("handler file %s.bsl not found in %s", name, c.dir))
		}
		return
	}
	code := strings.TrimRight(string(normalizeSource(payload)), "\n")
	if strings.TrimSpace(code) == "" {
		return
	}
	if HasSignature(code) {
		c.sources = append(c.sources, code)
		return
	}
	c.sources = append(c.sources, FormatHandler(sig, name, indentBody(code)))
}

func normalizeSource(payload []byte) []byte {
	payload = bytes.TrimPrefix(payload, utf8BOM)
	return bytes.ReplaceAll(payload, []byte("\r\n"), []byte("\n"))
}

// indentBody shifts a bare handler body one tab right to sit inside the
// generated procedure.
func indentBody(code string) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = "\t" + line
		}
	}
	return strings.Join(lines, "\n")
}

func serverSignature(params string) EventSignature {
	return EventSignature{Directive: "&НаСервере", Params: params}
}

func commandSignature(params string) EventSignature {
	return EventSignature{Directive: "&НаКлиенте", Params: params}
}

package validate

import (
	"strings"

	"github.com/itdeo/go-procgen/internal/model"
	"github.com/itdeo/go-procgen/pkg/bsl"
)

// ValidateHandlers cross-checks a form's bindings against its split handler
// source: referenced procedures should exist, carry a directive line and
// close properly. Missing procedures stay warnings (the injector stubs
// them); an unterminated procedure is an error.
func (v *Validator) ValidateHandlers(form *model.Form, split *bsl.SplitResult) *Result {
	res := &Result{}
	if split == nil {
		return res
	}

	for _, w := range split.Warnings {
		if strings.Contains(w, "no closing keyword") {
			res.errorf("form %s: %s", form.Name, w)
		} else {
			res.warnf("form %s: %s", form.Name, w)
		}
	}

	check := func(owner, handler string) {
		proc, ok := split.Procedures.Get(handler)
		if !ok {
			res.warnf("%s: handler %s not found in handler source", owner, handler)
			return
		}
		if len(proc.Directives) == 0 {
			res.warnf("%s: handler %s has no compilation directive", owner, handler)
		}
	}

	for _, e := range form.Events {
		check("form "+form.Name, e.Handler)
	}
	var walk func(els []*model.FormElement)
	walk = func(els []*model.FormElement) {
		for _, el := range els {
			for _, e := range el.Events {
				check("form "+form.Name+" element "+el.Name, e.Handler)
			}
			walk(el.Children)
		}
	}
	walk(form.Elements)
	walk(form.AutoCommandBar)

	return res
}

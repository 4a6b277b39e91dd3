package sync

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// RefTarget classifies what a pending delete points at.
type RefTarget string

const (
	RefAttribute RefTarget = "attribute"
	RefCommand   RefTarget = "command"
	RefElement   RefTarget = "element"
	RefForm      RefTarget = "form"
)

// Word boundaries by hand: regexp's \b is ASCII-only and misfires on
// Cyrillic identifiers.
const (
	wordStart = `(?:^|[^\p{L}\p{N}_])`
	wordEnd   = `(?:[^\p{L}\p{N}_]|$)`
)

// RefChecker scans the declarative document and the handler source for
// references to an entity about to be deleted. A non-empty citation list
// blocks the delete unless the caller forces it.
type RefChecker struct {
	doc      *yaml.Node
	handlers string
}

// NewRefChecker binds a checker to the document and the handler source
// text.
func NewRefChecker(doc *yaml.Node, handlers string) *RefChecker {
	return &RefChecker{doc: doc, handlers: handlers}
}

// Check returns human-readable citations of every reference to name.
func (c *RefChecker) Check(target RefTarget, name string) []string {
	var refs []string
	switch target {
	case RefAttribute:
		refs = append(refs, c.yamlFieldRefs("attribute", name)...)
		refs = append(refs, c.handlerRefs(name,
			`(?:Объект|Object)\.`+regexp.QuoteMeta(name)+wordEnd)...)
	case RefCommand:
		refs = append(refs, c.yamlFieldRefs("command", name)...)
		refs = append(refs, c.handlerRefs(name, wordStart+regexp.QuoteMeta(name)+wordEnd)...)
	case RefElement:
		refs = append(refs, c.handlerRefs(name,
			`(?:Элементы|Items|Elements)\.`+regexp.QuoteMeta(name)+wordEnd)...)
		refs = append(refs, c.handlerRefs(name, `"`+regexp.QuoteMeta(name)+`"`)...)
	case RefForm:
		if c.isDefaultForm(name) {
			refs = append(refs, fmt.Sprintf("form %s is the default form", name))
		}
		refs = append(refs, c.handlerRefs(name,
			`(?:ОткрытьФорму|OpenForm)\([^)]*"`+regexp.QuoteMeta(name)+`"`)...)
	}
	return dedupe(refs)
}

// yamlFieldRefs walks every form element tree looking for fields bound to
// name.
func (c *RefChecker) yamlFieldRefs(field, name string) []string {
	root, err := documentRoot(c.doc)
	if err != nil {
		return nil
	}
	forms := mappingValue(root, "forms")
	if forms == nil || forms.Kind != yaml.SequenceNode {
		return nil
	}
	var refs []string
	for _, form := range forms.Content {
		form = deref(form)
		formName := itemName(form)
		var walk func(seq *yaml.Node)
		walk = func(seq *yaml.Node) {
			if seq == nil || seq.Kind != yaml.SequenceNode {
				return
			}
			for _, item := range seq.Content {
				item = deref(item)
				if v := mappingValue(item, field); v != nil && v.Value == name {
					refs = append(refs, fmt.Sprintf(
						"form %s: element %s references %s %q", formName, itemName(item), field, name))
				}
				walk(mappingValue(item, "children"))
			}
		}
		walk(mappingValue(form, "elements"))
		walk(mappingValue(form, "auto_command_bar"))
	}
	return refs
}

// handlerRefs scans the handler source line by line with the pattern and
// cites matches with line numbers. Comment-only lines still count: a
// commented reference usually means intent, and the author should decide.
func (c *RefChecker) handlerRefs(name, pattern string) []string {
	if c.handlers == "" {
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	var refs []string
	for i, line := range strings.Split(c.handlers, "\n") {
		if re.MatchString(line) {
			refs = append(refs, fmt.Sprintf(
				"handlers line %d: %s", i+1, strings.TrimSpace(line)))
		}
	}
	return refs
}

func (c *RefChecker) isDefaultForm(name string) bool {
	root, err := documentRoot(c.doc)
	if err != nil {
		return false
	}
	forms := mappingValue(root, "forms")
	if forms == nil {
		return false
	}
	for _, form := range forms.Content {
		form = deref(form)
		if itemName(form) != name {
			continue
		}
		if v := mappingValue(form, "default"); v != nil && v.Value == "true" {
			return true
		}
	}
	return false
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

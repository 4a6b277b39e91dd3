package bsl

import (
	"fmt"
	"regexp"
	"strings"
)

// Patcher rewrites handler source files on the reverse path. Patches are
// textual: the file keeps its comments and formatting outside the touched
// procedure.
type Patcher struct{}

// NewPatcher returns a Patcher.
func NewPatcher() *Patcher { return &Patcher{} }

var lastEndRegionRe = regexp.MustCompile(`(?m)^#(?:КонецОбласти|EndRegion)[ \t]*$`)

// Add inserts a procedure. With regions present the procedure goes in
// front of the last region closer; otherwise it is appended.
func (p *Patcher) Add(src, procedure string) string {
	procedure = strings.TrimRight(procedure, "\n")
	locs := lastEndRegionRe.FindAllStringIndex(src, -1)
	if len(locs) == 0 {
		if src != "" && !strings.HasSuffix(src, "\n") {
			src += "\n"
		}
		return src + "\n" + procedure + "\n"
	}
	last := locs[len(locs)-1]
	return src[:last[0]] + procedure + "\n\n" + src[last[0]:]
}

// Modify replaces the named procedure. The procedure is located by its
// signature first; when the pattern cannot pin it down, oldExact is
// substituted verbatim as a fallback.
func (p *Patcher) Modify(src, name, replacement, oldExact string) (string, error) {
	replacement = strings.TrimRight(replacement, "\n")
	if loc := findProcedure(src, name); loc != nil {
		return src[:loc[0]] + replacement + src[loc[1]:], nil
	}
	if oldExact != "" {
		oldExact = strings.TrimRight(oldExact, "\n")
		if idx := strings.Index(src, oldExact); idx >= 0 {
			return src[:idx] + replacement + src[idx+len(oldExact):], nil
		}
	}
	return "", fmt.Errorf("bsl: procedure %s not found in source", name)
}

// Delete removes the named procedure together with its annotation lines.
func (p *Patcher) Delete(src, name string) (string, error) {
	loc := findProcedure(src, name)
	if loc == nil {
		return "", fmt.Errorf("bsl: procedure %s not found in source", name)
	}
	before := src[:loc[0]]
	after := src[loc[1]:]
	// Collapse the blank line the removal leaves behind.
	after = strings.TrimPrefix(after, "\n")
	return before + after, nil
}

// findProcedure locates the full text span of a procedure: leading
// annotation lines, opener, body and closer.
func findProcedure(src, name string) []int {
	pattern := fmt.Sprintf(
		`(?ms)^(?:&[^\n]*\n)*[ \t]*(?:(?:Асинх|Async)[ \t]+)?(?:Процедура|Функция|Procedure|Function)[ \t]+%s[ \t]*\(.*?^[ \t]*(?:КонецПроцедуры|КонецФункции|EndProcedure|EndFunction)[^\n]*`,
		regexp.QuoteMeta(name))
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	return re.FindStringIndex(src)
}

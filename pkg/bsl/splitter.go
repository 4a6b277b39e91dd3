// Package bsl understands the handler language the compiler weaves into
// modules: it splits handler sources into procedures, wraps them with event
// signatures, assembles form and object modules, and diffs and patches
// procedure bodies on the reverse path.
package bsl

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Procedure is one parsed procedure or function.
type Procedure struct {
	Name       string
	Directives []string // annotation lines, with the leading &
	Keyword    string   // opener keyword as written
	Params     string
	Body       string // inner lines between opener and closer
	Full       string // complete source text
	IsFunction bool
}

// ProcedureSet preserves declaration order on top of name lookup.
type ProcedureSet struct {
	names  []string
	byName map[string]*Procedure
}

// NewProcedureSet returns an empty set.
func NewProcedureSet() *ProcedureSet {
	return &ProcedureSet{byName: map[string]*Procedure{}}
}

// Add inserts a procedure; a duplicate name replaces the previous body
// (last write wins) and reports the collision.
func (s *ProcedureSet) Add(p *Procedure) (replaced bool) {
	if _, ok := s.byName[p.Name]; ok {
		s.byName[p.Name] = p
		return true
	}
	s.names = append(s.names, p.Name)
	s.byName[p.Name] = p
	return false
}

// Get looks a procedure up by name.
func (s *ProcedureSet) Get(name string) (*Procedure, bool) {
	p, ok := s.byName[name]
	return p, ok
}

// Names returns procedure names in declaration order.
func (s *ProcedureSet) Names() []string {
	return append([]string(nil), s.names...)
}

// Len reports the number of procedures.
func (s *ProcedureSet) Len() int { return len(s.names) }

// SplitResult is the outcome of splitting one handler source.
type SplitResult struct {
	Preamble      string
	Procedures    *ProcedureSet
	Documentation string
	ObjectModule  string
	Warnings      []string
}

var (
	openerRe = regexp.MustCompile(`^\s*(?:(?i:Асинх|Async)\s+)?(Процедура|Функция|Procedure|Function)\s+([\p{L}_][\p{L}\p{N}_]*)\s*\(([^)]*)\)`)
	closerRe = regexp.MustCompile(`^\s*(КонецПроцедуры|КонецФункции|EndProcedure|EndFunction)(?:[^\p{L}\p{N}_]|$)`)

	documentationRegionRe = regexp.MustCompile(`(?is)#(?:Область|Region)[ \t]+(?:Документация|Documentation)[ \t]*\n(.*?)\n#(?:КонецОбласти|EndRegion)`)
	objectModuleRegionRe  = regexp.MustCompile(`(?is)(?:^|\n)#(?:Область|Region)[ \t]+(?:МодульОбъекта|МодульОб'?єкта|ObjectModule)[ \t]*\n(.*?)\n#(?:КонецОбласти|EndRegion)`)
)

// SplitFile reads and splits a handler source file.
func SplitFile(path string) (*SplitResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bsl: read %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	return Split(strings.ReplaceAll(string(data), "\r\n", "\n")), nil
}

// Split parses a handler source. The two conventional regions are lifted
// out first; the remainder is scanned for procedures. Content before the
// first procedure, minus trailing blank, comment and separator lines, is
// the preamble.
func Split(src string) *SplitResult {
	res := &SplitResult{Procedures: NewProcedureSet()}

	if m := documentationRegionRe.FindStringSubmatchIndex(src); m != nil {
		res.Documentation = strings.TrimSpace(src[m[2]:m[3]])
		src = src[:m[0]] + src[m[1]:]
	}
	if m := objectModuleRegionRe.FindStringSubmatchIndex(src); m != nil {
		res.ObjectModule = strings.TrimSpace(src[m[2]:m[3]])
		src = src[:m[0]] + src[m[1]:]
	}

	lines := strings.Split(src, "\n")

	var (
		preambleEnd = -1 // index of first procedure-related line
		directives  []string
		current     *Procedure
		bodyLines   []string
		fullLines   []string
		depth       int
	)

	flushDirectives := func() {
		directives = directives[:0]
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if current == nil {
			if strings.HasPrefix(trimmed, "&") {
				directives = append(directives, trimmed)
				continue
			}
			m := openerRe.FindStringSubmatch(line)
			if m == nil || strings.HasPrefix(trimmed, "//") {
				// Not a procedure start: any stashed directives belonged to
				// nothing and fold back into the preamble.
				flushDirectives()
				continue
			}
			if preambleEnd == -1 {
				preambleEnd = i - len(directives)
			}
			current = &Procedure{
				Name:       m[2],
				Keyword:    m[1],
				Params:     m[3],
				Directives: append([]string(nil), directives...),
				IsFunction: strings.EqualFold(m[1], "Функция") || strings.EqualFold(m[1], "Function"),
			}
			fullLines = append(fullLines[:0], directives...)
			fullLines = append(fullLines, strings.TrimRight(line, " \t"))
			bodyLines = bodyLines[:0]
			depth = 1
			flushDirectives()
			continue
		}

		if !strings.HasPrefix(trimmed, "//") {
			if openerRe.MatchString(line) {
				depth++
			} else if closerRe.MatchString(line) {
				depth--
			}
		}
		if depth == 0 {
			fullLines = append(fullLines, trimmed)
			current.Body = strings.Join(bodyLines, "\n")
			current.Full = strings.Join(fullLines, "\n")
			if res.Procedures.Add(current) {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("duplicate procedure %s, keeping the later definition", current.Name))
			}
			current = nil
			continue
		}
		bodyLines = append(bodyLines, line)
		fullLines = append(fullLines, line)
	}

	if current != nil {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("procedure %s has no closing keyword", current.Name))
	}

	if preambleEnd == -1 {
		preambleEnd = len(lines)
	}
	res.Preamble = trimPreamble(lines[:preambleEnd])
	return res
}

// trimPreamble drops trailing blank lines, comment lines and "====" style
// separators so that leftover decoration above the first procedure does not
// count as a module prefix.
func trimPreamble(lines []string) string {
	end := len(lines)
	for end > 0 {
		t := strings.TrimSpace(lines[end-1])
		if t == "" || strings.HasPrefix(t, "//") || strings.Trim(t, "=-") == "" {
			end--
			continue
		}
		break
	}
	return strings.Join(lines[:end], "\n")
}

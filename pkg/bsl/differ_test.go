package bsl

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func kinds(changes []Change) []string {
	var out []string
	for _, c := range changes {
		out = append(out, string(c.Kind)+":"+c.Name)
	}
	return out
}

func TestDiffModulesCommentOnlyChangeIsNoise(t *testing.T) {
	oldSrc := "Процедура Тест()\n\tА = 1;\nКонецПроцедуры\n"
	newSrc := "Процедура Тест()\n\t// пояснение\n\tА  =  1;\nКонецПроцедуры\n"
	if changes := DiffModules(oldSrc, newSrc); len(changes) != 0 {
		t.Errorf("comment and whitespace edits detected as changes: %v", kinds(changes))
	}
}

func TestDiffModulesKinds(t *testing.T) {
	oldSrc := `Процедура Старая()
КонецПроцедуры

Процедура Общая()
	А = 1;
КонецПроцедуры
`
	newSrc := `Процедура Общая()
	А = 2;
КонецПроцедуры

Процедура Новая()
КонецПроцедуры
`
	changes := DiffModules(oldSrc, newSrc)
	want := []string{
		"procedure_deleted:Старая",
		"procedure_modified:Общая",
		"procedure_added:Новая",
	}
	if diff := cmp.Diff(want, kinds(changes)); diff != "" {
		t.Errorf("change kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffModulesRegions(t *testing.T) {
	oldSrc := "#Область Старое\n#КонецОбласти\n"
	newSrc := "#Область Новое\n#КонецОбласти\n"
	changes := DiffModules(oldSrc, newSrc)
	want := []Change{
		{Kind: RegionDeleted, Name: "Старое"},
		{Kind: RegionAdded, Name: "Новое"},
	}
	if diff := cmp.Diff(want, changes, cmpopts.IgnoreFields(Change{}, "OldBody", "NewBody")); diff != "" {
		t.Errorf("region changes mismatch (-want +got):\n%s", diff)
	}
}

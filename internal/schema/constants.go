package schema

// PlatformVersions maps a platform release to the metadata format version
// written into the root descriptor.
var PlatformVersions = map[string]string{
	"8.3.23": "2.10",
	"8.3.24": "2.10",
	"8.3.25": "2.11",
	"8.3.26": "2.18",
	"8.3.27": "2.18",
}

// Languages is the default multilingual expansion order.
var Languages = []string{"ru", "uk", "en"}

// StdPictures is the whitelist of standard picture references accepted for
// commands and picture decorations.
var StdPictures = map[string]struct{}{
	"StdPicture.AccumulationRegister":          {},
	"StdPicture.ActiveUsers":                   {},
	"StdPicture.AddToFavorites":                {},
	"StdPicture.AppearanceExclamationMarkIcon": {},
	"StdPicture.Attach":                        {},
	"StdPicture.Attribute":                     {},
	"StdPicture.Back":                          {},
	"StdPicture.BusinessProcessStart":          {},
	"StdPicture.CancelSearch":                  {},
	"StdPicture.Catalog":                       {},
	"StdPicture.Change":                        {},
	"StdPicture.ChangeListItem":                {},
	"StdPicture.CheckAll":                      {},
	"StdPicture.CheckSyntax":                   {},
	"StdPicture.ChooseValue":                   {},
	"StdPicture.ClearFilter":                   {},
	"StdPicture.CloneListItem":                 {},
	"StdPicture.CloneObject":                   {},
	"StdPicture.Close":                         {},
	"StdPicture.CollapseAll":                   {},
	"StdPicture.CreateFolder":                  {},
	"StdPicture.CreateListItem":                {},
	"StdPicture.CustomizeForm":                 {},
	"StdPicture.Delete":                        {},
	"StdPicture.DeleteDirectly":                {},
	"StdPicture.DeleteListItem":                {},
	"StdPicture.Document":                      {},
	"StdPicture.ExecuteTask":                   {},
	"StdPicture.ExpandAll":                     {},
	"StdPicture.Filter":                        {},
	"StdPicture.FilterByUse":                   {},
	"StdPicture.Find":                          {},
	"StdPicture.Forward":                       {},
	"StdPicture.GenerateReport":                {},
	"StdPicture.Help":                          {},
	"StdPicture.InputFieldCalculator":          {},
	"StdPicture.InputFieldCalendar":            {},
	"StdPicture.InputFieldClear":               {},
	"StdPicture.InputFieldOpen":                {},
	"StdPicture.InputFieldSelect":              {},
	"StdPicture.ListSettings":                  {},
	"StdPicture.MarkToDelete":                  {},
	"StdPicture.MoveDown":                      {},
	"StdPicture.MoveUp":                        {},
	"StdPicture.OpenFile":                      {},
	"StdPicture.Post":                          {},
	"StdPicture.Print":                         {},
	"StdPicture.PrintImmediately":              {},
	"StdPicture.Properties":                    {},
	"StdPicture.Refresh":                       {},
	"StdPicture.Reply":                         {},
	"StdPicture.Report":                        {},
	"StdPicture.SaveFile":                      {},
	"StdPicture.SetDate":                       {},
	"StdPicture.Stop":                          {},
	"StdPicture.UncheckAll":                    {},
	"StdPicture.UndoPosting":                   {},
	"StdPicture.Write":                         {},
}

// ReservedKeywords are host-language keywords handler names must not shadow.
var ReservedKeywords = map[string]struct{}{
	"Процедура": {}, "Функция": {}, "КонецПроцедуры": {}, "КонецФункции": {},
	"Procedure": {}, "Function": {}, "EndProcedure": {}, "EndFunction": {},
	"Если": {}, "Тогда": {}, "Иначе": {}, "ИначеЕсли": {}, "КонецЕсли": {},
	"If": {}, "Then": {}, "Else": {}, "ElsIf": {}, "EndIf": {},
	"Для": {}, "Каждого": {}, "Из": {}, "По": {}, "Цикл": {}, "КонецЦикла": {}, "Пока": {},
	"For": {}, "Each": {}, "In": {}, "To": {}, "Do": {}, "While": {}, "EndDo": {},
	"Попытка": {}, "Исключение": {}, "КонецПопытки": {}, "ВызватьИсключение": {},
	"Try": {}, "Except": {}, "EndTry": {}, "Raise": {},
	"Прервать": {}, "Продолжить": {}, "Возврат": {},
	"Break": {}, "Continue": {}, "Return": {},
	"Новый": {}, "Неопределено": {}, "Истина": {}, "Ложь": {}, "NULL": {},
	"New": {}, "Undefined": {}, "True": {}, "False": {},
	"Экспорт": {}, "Export": {}, "Знач": {}, "Val": {},
	"И": {}, "Или": {}, "Не": {}, "And": {}, "Or": {}, "Not": {},
}

// FormBuiltinMethods are managed-form methods a handler name must not
// collide with.
var FormBuiltinMethods = map[string]struct{}{
	"Закрыть": {}, "Close": {},
	"Открыть": {}, "Open": {},
	"ОткрытьМодально": {}, "OpenModal": {},
	"Модифицированность": {}, "Modified": {},
	"ПолучитьФорму": {}, "GetForm": {},
	"Активизировать": {}, "Activate": {},
	"ОбновитьОтображениеДанных": {}, "RefreshDataRepresentation": {},
	"ПоказатьЗначение": {}, "ShowValue": {},
	"ПоказатьВводЧисла": {}, "ShowInputNumber": {},
	"ПоказатьВводДаты": {}, "ShowInputDate": {},
	"ПоказатьВводСтроки": {}, "ShowInputString": {},
	"УстановитьВидимость": {}, "SetVisible": {},
	"УстановитьДоступность": {}, "SetEnabled": {},
}

// ReservedMetadataNames are built-in metadata collection names that cannot
// be used for processor-level objects.
var ReservedMetadataNames = map[string]struct{}{
	"Справочники": {}, "Catalogs": {},
	"Документы": {}, "Documents": {},
	"Отчеты": {}, "Reports": {},
	"Обработки": {}, "DataProcessors": {},
	"РегистрыСведений": {}, "InformationRegisters": {},
	"РегистрыНакопления": {}, "AccumulationRegisters": {},
	"Перечисления": {}, "Enums": {},
	"Константы": {}, "Constants": {},
	"ПланыВидовХарактеристик": {}, "ChartsOfCharacteristicTypes": {},
	"ПланыСчетов": {}, "ChartsOfAccounts": {},
}

package bsl

import (
	"fmt"
	"strings"
)

// EventSignature is the canonical wrapper contract for one platform event.
type EventSignature struct {
	Directive string
	Params    string

	// ServerCall names a fixed server companion procedure; the client
	// handler becomes a thin call-through to it.
	ServerCall string

	// ServerCallSuffix derives the companion name from the handler name
	// instead of fixing it.
	ServerCallSuffix string
}

// FormEventSignatures maps form-level event names to their contracts.
var FormEventSignatures = map[string]EventSignature{
	"ПриСозданииНаСервере": {Directive: "&НаСервере", Params: "Отказ, СтандартнаяОбработка"},
	"ПриОткрытии":          {Directive: "&НаКлиенте", Params: "Отказ", ServerCall: "ПриОткрытииНаСервере"},
	"ПриЗакрытии":          {Directive: "&НаКлиенте", Params: "ЗавершениеРаботы"},
	"ПередЗакрытием":       {Directive: "&НаКлиенте", Params: "Отказ, ЗавершениеРаботы, ТекстПредупреждения, СтандартнаяОбработка"},
	"ПриПовторномОткрытии": {Directive: "&НаКлиенте", Params: ""},
	"ОбработкаОповещения":  {Directive: "&НаКлиенте", Params: "ИмяСобытия, Параметр, Источник"},
	"ПередЗагрузкойДанныхИзНастроекНаСервере": {Directive: "&НаСервере", Params: "Настройки, СтандартнаяОбработка"},
	"ПриЗагрузкеДанныхИзНастроекНаСервере":    {Directive: "&НаСервере", Params: "Настройки"},
	"ПриСохраненииДанныхВНастройкахНаСервере": {Directive: "&НаСервере", Params: "Настройки"},
	"ОбработкаВыбора":                         {Directive: "&НаКлиенте", Params: "ВыбранноеЗначение, ИсточникВыбора"},
}

// ElementEventSignatures maps element-level event names to their contracts.
var ElementEventSignatures = map[string]EventSignature{
	"ПриИзменении":            {Directive: "&НаКлиенте", Params: "Элемент", ServerCallSuffix: "НаСервере"},
	"НачалоВыбора":            {Directive: "&НаКлиенте", Params: "Элемент, ДанныеВыбора, СтандартнаяОбработка"},
	"ОбработкаВыбора":         {Directive: "&НаКлиенте", Params: "Элемент, ВыбранноеЗначение, СтандартнаяОбработка"},
	"АвтоПодбор":              {Directive: "&НаКлиенте", Params: "Элемент, Текст, ДанныеВыбора, ПараметрыПолученияДанных, Ожидание, СтандартнаяОбработка"},
	"Нажатие":                 {Directive: "&НаКлиенте", Params: "Элемент"},
	"Выбор":                   {Directive: "&НаКлиенте", Params: "Элемент, ВыбраннаяСтрока, Поле, СтандартнаяОбработка"},
	"ПриАктивизацииСтроки":    {Directive: "&НаКлиенте", Params: "Элемент"},
	"ПередНачаломДобавления":  {Directive: "&НаКлиенте", Params: "Элемент, Отказ, Копирование, Родитель, Группа, Параметр"},
	"ПередНачаломИзменения":   {Directive: "&НаКлиенте", Params: "Элемент, Отказ"},
	"ПередУдалением":          {Directive: "&НаКлиенте", Params: "Элемент, Отказ"},
	"ПриОкончанииРедактирования": {Directive: "&НаКлиенте", Params: "Элемент, НоваяСтрока, ОтменаРедактирования", ServerCallSuffix: "НаСервере"},
	"ОкончаниеВводаТекста":    {Directive: "&НаКлиенте", Params: "Элемент, Текст, ДанныеВыбора, Параметры, СтандартнаяОбработка"},
	"ПриСменеСтраницы":        {Directive: "&НаКлиенте", Params: "Элемент, ТекущаяСтраница"},
}

const handlerStub = "// Вставить содержимое обработчика."

// FormatHandler renders a procedure with the event's canonical signature.
func FormatHandler(sig EventSignature, name, body string) string {
	if body == "" {
		body = "\t" + handlerStub
	}
	return fmt.Sprintf("%s\nПроцедура %s(%s)\n%s\nКонецПроцедуры", sig.Directive, name, sig.Params, body)
}

// FormatServerCall renders a client handler that forwards to its server
// companion.
func FormatServerCall(clientName, params, serverName string) string {
	return fmt.Sprintf("&НаКлиенте\nПроцедура %s(%s)\n\t%s();\nКонецПроцедуры", clientName, params, serverName)
}

// FormatServerStub renders an empty server companion.
func FormatServerStub(serverName string) string {
	return fmt.Sprintf("&НаСервере\nПроцедура %s()\n\t%s\nКонецПроцедуры", serverName, handlerStub)
}

// FormatCommandStub renders a placeholder command handler.
func FormatCommandStub(name string) string {
	return fmt.Sprintf("&НаКлиенте\nПроцедура %s(Команда)\n\t%s\nКонецПроцедуры", name, handlerStub)
}

// HasSignature reports whether handler code already carries its own
// annotation or opener and must be emitted verbatim.
func HasSignature(code string) bool {
	t := strings.TrimSpace(code)
	for _, prefix := range []string{"&", "Процедура", "Функция", "Procedure", "Function", "Асинх", "Async"} {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

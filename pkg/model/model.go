// Package model re-exports the processor model so downstream consumers do
// not import internal packages directly.
package model

import "github.com/itdeo/go-procgen/internal/model"

type (
	Processor             = model.Processor
	Attribute             = model.Attribute
	TabularSection        = model.TabularSection
	Column                = model.Column
	Form                  = model.Form
	FormElement           = model.FormElement
	FormAttribute         = model.FormAttribute
	ValueTableAttribute   = model.ValueTableAttribute
	DynamicListAttribute  = model.DynamicListAttribute
	FormParameter         = model.FormParameter
	Command               = model.Command
	LongOperationSettings = model.LongOperationSettings
	Template              = model.Template
	TemplateAssets        = model.TemplateAssets
	ValidationConfig      = model.ValidationConfig
	ConditionalAppearance = model.ConditionalAppearance
	AppearanceFilter      = model.AppearanceFilter
	LocalizedString       = model.LocalizedString
	EventBinding          = model.EventBinding
	HelperProcedure       = model.HelperProcedure
)

// NewProcessor mints a processor with fresh stable identifiers.
func NewProcessor(name string) *Processor { return model.NewProcessor(name) }

// Minimal returns a one-attribute starter processor.
func Minimal(name, platformVersion string) *Processor {
	return model.Minimal(name, platformVersion)
}

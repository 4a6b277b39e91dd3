package config

import (
	"encoding/json"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// documentSchema is the published shape of a configuration document. The
// root is closed: unknown top-level keys are rejected outright. Nested
// objects stay open because element properties are schema-table driven.
var documentSchema = buildDocumentSchema()

func buildDocumentSchema() *openapi3.Schema {
	anyValue := openapi3.NewSchema()

	named := func(required ...string) *openapi3.Schema {
		s := openapi3.NewObjectSchema()
		s.Required = required
		s.WithProperty("name", openapi3.NewStringSchema())
		s.WithAnyAdditionalProperties()
		return s
	}

	processor := openapi3.NewObjectSchema()
	processor.Required = []string{"name"}
	processor.WithProperty("name", openapi3.NewStringSchema())
	processor.WithProperty("platform_version", openapi3.NewStringSchema())
	processor.WithProperty("comment", openapi3.NewStringSchema())
	processor.WithAnyAdditionalProperties()

	attribute := named("name", "type")
	attribute.WithProperty("type", openapi3.NewStringSchema())

	root := openapi3.NewObjectSchema()
	root.Required = []string{"processor"}
	root.WithProperty("processor", processor)
	root.WithProperty("languages", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema()))
	root.WithProperty("attributes", openapi3.NewArraySchema().WithItems(attribute))
	root.WithProperty("tabular_sections", openapi3.NewArraySchema().WithItems(named("name")))
	root.WithProperty("forms", openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema().WithAnyAdditionalProperties()))
	root.WithProperty("templates", openapi3.NewArraySchema().WithItems(named("name")))
	root.WithProperty("object_module", openapi3.NewObjectSchema().WithAnyAdditionalProperties())
	root.WithProperty("validation", openapi3.NewObjectSchema().WithAnyAdditionalProperties())
	root.WithProperty("tests", anyValue)

	closed := false
	root.AdditionalProperties = openapi3.AdditionalProperties{Has: &closed}
	return root
}

// validateDocument checks the raw document against the published schema
// before any semantic parsing happens. The node tree is flattened through a
// JSON round trip so the validator sees plain values.
func validateDocument(root *yaml.Node) error {
	flat := decodeAny(root)
	payload, err := json.Marshal(flat)
	if err != nil {
		return malformedf("document not representable: %v", err)
	}
	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return malformedf("document not representable: %v", err)
	}
	if err := documentSchema.VisitJSON(value, openapi3.MultiErrors()); err != nil {
		return malformedf("schema violation: %v", err)
	}
	return nil
}

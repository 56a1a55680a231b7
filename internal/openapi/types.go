package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/tools"
)

// paramSchema maps a tool parameter type to a fresh OpenAPI schema.
func paramSchema(t tools.ParamType) *openapi3.Schema {
	switch t {
	case tools.TypeInteger:
		return openapi3.NewIntegerSchema()
	case tools.TypeNumber:
		return openapi3.NewFloat64Schema()
	case tools.TypeBoolean:
		return openapi3.NewBoolSchema()
	case tools.TypeArray:
		return openapi3.NewArraySchema().WithItems(&openapi3.Schema{})
	case tools.TypeObject:
		return openapi3.NewObjectSchema()
	default:
		return openapi3.NewStringSchema()
	}
}

func stringSchema(description string) *openapi3.SchemaRef {
	s := openapi3.NewStringSchema()
	s.Description = description
	return &openapi3.SchemaRef{Value: s}
}

func objectSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: openapi3.NewObjectSchema()}
}

func metaSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"count": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"integer"},
						Format:      "int32",
						Description: "Number of items in this response.",
					},
				},
			},
		},
	}
}

// newResponses returns the success response plus the gateway's standard
// error responses.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil)
	for _, e := range []struct{ code, desc string }{
		{"400", "Bad request or missing account"},
		{"401", "Missing or invalid API key"},
		{"403", "Token lacks the required permission"},
		{"429", "Rate limited"},
		{"500", "Chatwoot unreachable or internal error"},
	} {
		desc := e.desc
		responses.Set(e.code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}
	return responses
}

// Package openapi builds the OpenAPI document describing the gateway: the
// Chatwoot pass-through endpoints from the permission table and the HTTP tool
// endpoints from the tool registry.
package openapi

import (
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/chatwoot"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/permission"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/tools"
)

// PermissionExtension is the operation extension naming the token grant an
// endpoint needs, e.g. "contacts.read".
const PermissionExtension = "x-permission"

// Info describes the generated document.
type Info struct {
	Title       string
	Description string
	Version     string
	BaseURL     string
	// APIKeyHeader is the header carrying the gateway token.
	APIKeyHeader string
}

func (i Info) withDefaults() Info {
	if i.Title == "" {
		i.Title = "Chatwoot MCP Gateway"
	}
	if i.Description == "" {
		i.Description = "Permission-checked gateway to the Chatwoot API."
	}
	if i.Version == "" {
		i.Version = "1.0.0"
	}
	if i.BaseURL == "" {
		i.BaseURL = "/"
	}
	if i.APIKeyHeader == "" {
		i.APIKeyHeader = "X-API-Key"
	}
	return i
}

// Generate returns the document for the given endpoint table and tools.
func Generate(info Info, entries []permission.Entry, toolList []*tools.Tool) *openapi3.T {
	info = info.withDefaults()
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       info.Title,
			Description: info.Description,
			Version:     info.Version,
		},
		Servers: openapi3.Servers{
			{URL: info.BaseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["apiKey"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type: "apiKey",
			In:   "header",
			Name: info.APIKeyHeader,
		},
	}
	doc.Security = openapi3.SecurityRequirements{
		{"apiKey": {}},
	}

	doc.Components.Schemas["ErrorResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error":   stringSchema("Error kind, e.g. forbidden or rate_limited."),
				"message": stringSchema("Human readable detail."),
			},
			Required: []string{"error", "message"},
		},
	}

	doc.Paths = openapi3.NewPaths()
	for _, e := range entries {
		addEndpoint(doc, e)
	}
	addToolPaths(doc, toolList)
	return doc
}

// addEndpoint adds one permission table row as a pass-through operation.
func addEndpoint(doc *openapi3.T, e permission.Entry) {
	path, idParams := templatePath(e.Path)
	item := doc.Paths.Value(path)
	if item == nil {
		item = &openapi3.PathItem{}
		doc.Paths.Set(path, item)
	}

	params := openapi3.Parameters{}
	for _, name := range idParams {
		params = append(params, &openapi3.ParameterRef{
			Value: openapi3.NewPathParameter(name).WithSchema(openapi3.NewIntegerSchema()),
		})
	}
	params = append(params, accountParameter())

	op := &openapi3.Operation{
		Tags:        []string{string(e.Category)},
		Summary:     fmt.Sprintf("%s %s", e.Method, path),
		OperationID: operationID(e.Method, e.Path),
		Parameters:  params,
		Responses:   newResponses("200", "Chatwoot response, relayed verbatim", objectSchema()),
		Extensions: map[string]any{
			PermissionExtension: string(e.Category) + "." + string(e.Action),
		},
	}
	if e.Method == "POST" || e.Method == "PUT" || e.Method == "PATCH" {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithDescription("Forwarded to Chatwoot unchanged").
				WithJSONSchemaRef(objectSchema()),
		}
	}
	item.SetOperation(e.Method, op)
}

// addToolPaths describes GET /tools and one POST /tools/{name} per tool.
func addToolPaths(doc *openapi3.T, toolList []*tools.Tool) {
	doc.Paths.Set("/tools", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"tools"},
			Summary:     "List the tools the caller may invoke",
			OperationID: "list_tools",
			Responses: newResponses("200", "Visible tools", &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type: &openapi3.Types{"object"},
					Properties: openapi3.Schemas{
						"resource": &openapi3.SchemaRef{Value: openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema())},
						"meta":     metaSchema(),
					},
				},
			}),
		},
	})

	for _, t := range toolList {
		op := &openapi3.Operation{
			Tags:        []string{"tools", string(t.Category)},
			Summary:     t.Description,
			OperationID: "invoke_" + t.Name,
			RequestBody: &openapi3.RequestBodyRef{
				Value: openapi3.NewRequestBody().
					WithDescription("Tool arguments").
					WithJSONSchemaRef(argumentsSchema(t)),
			},
			Responses: newResponses("200", "Tool result", &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type: &openapi3.Types{"object"},
					Properties: openapi3.Schemas{
						"success": &openapi3.SchemaRef{Value: openapi3.NewBoolSchema()},
						"data":    objectSchema(),
					},
				},
			}),
			Extensions: map[string]any{
				PermissionExtension: string(t.Category) + "." + string(t.Action),
			},
		}
		doc.Paths.Set("/tools/"+t.Name, &openapi3.PathItem{Post: op})
	}
}

// argumentsSchema describes a tool's argument object.
func argumentsSchema(t *tools.Tool) *openapi3.SchemaRef {
	s := openapi3.NewObjectSchema()
	s.Properties = openapi3.Schemas{}
	for _, p := range t.Params {
		ps := paramSchema(p.Type)
		ps.Description = p.Description
		for _, v := range p.Enum {
			ps.Enum = append(ps.Enum, v)
		}
		s.Properties[p.Name] = &openapi3.SchemaRef{Value: ps}
		if p.Required {
			s.Required = append(s.Required, p.Name)
		}
	}
	if t.Scope == chatwoot.ScopeAccount {
		account := openapi3.NewIntegerSchema().WithMin(1)
		account.Description = "Chatwoot account; defaults to the configured account"
		s.Properties[tools.AccountParam] = &openapi3.SchemaRef{Value: account}
	}
	return &openapi3.SchemaRef{Value: s}
}

func accountParameter() *openapi3.ParameterRef {
	p := openapi3.NewQueryParameter(tools.AccountParam).
		WithSchema(openapi3.NewIntegerSchema().WithMin(1))
	p.Description = "Chatwoot account; may also be sent as X-Account-Id or in the JSON body"
	return &openapi3.ParameterRef{Value: p}
}

// templatePath turns "/conversations/:id/messages/:id" into
// "/conversations/{conversation_id}/messages/{message_id}" and returns the
// parameter names in order.
func templatePath(path string) (string, []string) {
	segments := strings.Split(path, "/")
	var names []string
	seen := map[string]int{}
	for i, seg := range segments {
		if seg != permission.IDPlaceholder {
			continue
		}
		name := "id"
		if i > 0 && segments[i-1] != "" {
			name = singular(segments[i-1]) + "_id"
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		segments[i] = "{" + name + "}"
		names = append(names, name)
	}
	return strings.Join(segments, "/"), names
}

func singular(s string) string {
	switch {
	case strings.HasSuffix(s, "xes"):
		return strings.TrimSuffix(s, "es")
	case strings.HasSuffix(s, "s"):
		return strings.TrimSuffix(s, "s")
	}
	return s
}

// operationID derives a stable id such as "get_contacts_id_labels".
func operationID(method, path string) string {
	var parts []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "":
			continue
		case permission.IDPlaceholder:
			parts = append(parts, "id")
		default:
			parts = append(parts, seg)
		}
	}
	return strings.ToLower(method) + "_" + strings.Join(parts, "_")
}

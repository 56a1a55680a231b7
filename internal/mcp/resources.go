package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/tools"
)

const (
	categoriesURI    = "chatwoot://categories"
	toolsURIPrefix   = "chatwoot://tools/"
	toolsURITemplate = toolsURIPrefix + "{category}"
)

// registerResources adds the catalog resources LLM clients can load into
// their context.
func (s *Server) registerResources() {
	s.server.AddResource(
		mcp.NewResource(
			categoriesURI,
			"Permission Categories",
			mcp.WithResourceDescription(
				"Chatwoot permission categories with the number of tools in each "+
					"and whether the caller may read, write or delete.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleCategoriesResource,
	)

	s.server.AddResourceTemplate(
		mcp.NewResourceTemplate(
			toolsURITemplate,
			"Category Tools",
			mcp.WithTemplateDescription("Tools of one permission category with their arguments."),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleToolsResource,
	)
}

type categoryInfo struct {
	Category model.Category `json:"category"`
	Tools    int            `json:"tools"`
	Access   model.Access   `json:"access"`
}

func (s *Server) handleCategoriesResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	perms, _ := s.permissions(ctx)
	items := make([]categoryInfo, 0, len(model.Categories))
	for _, c := range model.Categories {
		items = append(items, categoryInfo{
			Category: c,
			Tools:    len(s.registry.ByCategory(c)),
			Access:   perms[c],
		})
	}
	return jsonContents(categoriesURI, items)
}

type toolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Action      model.Action   `json:"action"`
	Method      string         `json:"method"`
	Path        string         `json:"path"`
	Params      []tools.Param  `json:"params"`
	Allowed     bool           `json:"allowed"`
	Category    model.Category `json:"category"`
}

func (s *Server) handleToolsResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	category := model.Category(strings.TrimPrefix(uri, toolsURIPrefix))
	if category == "" || string(category) == uri || !category.Valid() {
		return nil, fmt.Errorf("unknown category in %q: expected %s", uri, toolsURITemplate)
	}

	perms, _ := s.permissions(ctx)
	list := s.registry.ByCategory(category)
	items := make([]toolInfo, 0, len(list))
	for _, t := range list {
		items = append(items, toolInfo{
			Name:        t.Name,
			Description: t.Description,
			Action:      t.Action,
			Method:      t.Method,
			Path:        t.Path,
			Params:      t.Params,
			Allowed:     perms.Allows(t.Category, t.Action),
			Category:    t.Category,
		})
	}
	return jsonContents(uri, items)
}

func jsonContents(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

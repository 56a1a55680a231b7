// Package tools holds the catalog of Chatwoot operations exposed to AI
// agents, with the argument schema and permission each one requires.
package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/chatwoot"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
)

// ParamType is the JSON type of a tool argument.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeObject  ParamType = "object"
	TypeArray   ParamType = "array"
)

func (t ParamType) valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeNumber, TypeBoolean, TypeObject, TypeArray:
		return true
	}
	return false
}

// Location says where an argument goes in the downstream request.
type Location string

const (
	InPath  Location = "path"
	InQuery Location = "query"
	InBody  Location = "body"
)

// AccountParam is the implicit argument accepted by every account-scoped
// tool to override the default Chatwoot account.
const AccountParam = "account_id"

// Param declares one tool argument.
type Param struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	In          Location  `json:"in"`
	Required    bool      `json:"required"`
	Description string    `json:"description,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
}

// BuildFunc turns validated arguments into a downstream request. Tools that
// leave Build nil get the generic path/query/body mapping.
type BuildFunc func(args map[string]interface{}) (chatwoot.Request, error)

// Tool is one Chatwoot operation.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    model.Category `json:"category"`
	Action      model.Action   `json:"action"`
	Method      string         `json:"method"`
	Scope       chatwoot.Scope `json:"-"`
	Path        string         `json:"path"`
	Params      []Param        `json:"params"`
	Build       BuildFunc      `json:"-"`
}

// ReadOnly reports whether the tool only reads data.
func (t *Tool) ReadOnly() bool {
	return t.Action == model.ActionRead
}

// Destructive reports whether the tool deletes data.
func (t *Tool) Destructive() bool {
	return t.Action == model.ActionDelete
}

// Doer performs downstream requests. *chatwoot.Client satisfies it.
type Doer interface {
	Do(ctx context.Context, req chatwoot.Request) (*chatwoot.Response, error)
}

var (
	toolNamePattern    = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	placeholderPattern = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)
)

var allowedMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true,
}

// Validate checks the tool definition for internal consistency.
func (t *Tool) Validate() error {
	if !toolNamePattern.MatchString(t.Name) {
		return fmt.Errorf("tool %q: name must be snake_case", t.Name)
	}
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("tool %q: description is required", t.Name)
	}
	if !t.Category.Valid() {
		return fmt.Errorf("tool %q: unknown category %q", t.Name, t.Category)
	}
	if !t.Action.Valid() {
		return fmt.Errorf("tool %q: unknown action %q", t.Name, t.Action)
	}
	if !allowedMethods[t.Method] {
		return fmt.Errorf("tool %q: unsupported method %q", t.Name, t.Method)
	}
	if !strings.HasPrefix(t.Path, "/") {
		return fmt.Errorf("tool %q: path must start with /", t.Name)
	}

	params := make(map[string]Param, len(t.Params))
	for _, p := range t.Params {
		if p.Name == "" {
			return fmt.Errorf("tool %q: parameter without a name", t.Name)
		}
		if _, dup := params[p.Name]; dup {
			return fmt.Errorf("tool %q: duplicate parameter %q", t.Name, p.Name)
		}
		if p.Name == AccountParam && t.Scope == chatwoot.ScopeAccount {
			return fmt.Errorf("tool %q: %q is reserved for account-scoped tools", t.Name, AccountParam)
		}
		if !p.Type.valid() {
			return fmt.Errorf("tool %q: parameter %q has unknown type %q", t.Name, p.Name, p.Type)
		}
		switch p.In {
		case InPath, InQuery, InBody:
		default:
			return fmt.Errorf("tool %q: parameter %q has unknown location %q", t.Name, p.Name, p.In)
		}
		params[p.Name] = p
	}

	inPath := map[string]bool{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(t.Path, -1) {
		name := m[1]
		inPath[name] = true
		p, ok := params[name]
		if !ok {
			return fmt.Errorf("tool %q: path placeholder {%s} has no parameter", t.Name, name)
		}
		if p.In != InPath || !p.Required {
			return fmt.Errorf("tool %q: path placeholder {%s} must be a required path parameter", t.Name, name)
		}
	}
	for _, p := range t.Params {
		if p.In == InPath && !inPath[p.Name] {
			return fmt.Errorf("tool %q: path parameter %q does not appear in %s", t.Name, p.Name, t.Path)
		}
	}
	return nil
}

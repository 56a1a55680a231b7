package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/chatwoot"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
)

var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrInvalidArguments = errors.New("invalid arguments")
)

// Registry is the validated, immutable-after-startup tool table.
type Registry struct {
	tools map[string]*Tool
	names []string
}

// NewRegistry validates and registers every tool, failing on the first
// invalid one.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]*Tool, len(tools))}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register validates t and adds it to the registry.
func (r *Registry) Register(t Tool) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, dup := r.tools[t.Name]; dup {
		return fmt.Errorf("tool %q: already registered", t.Name)
	}
	tool := t
	r.tools[t.Name] = &tool
	r.names = append(r.names, t.Name)
	sort.Strings(r.names)
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.tools)
}

// List returns every tool sorted by name.
func (r *Registry) List() []*Tool {
	out := make([]*Tool, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.tools[n])
	}
	return out
}

// ByCategory returns the tools of one category sorted by name.
func (r *Registry) ByCategory(c model.Category) []*Tool {
	var out []*Tool
	for _, n := range r.names {
		if t := r.tools[n]; t.Category == c {
			out = append(out, t)
		}
	}
	return out
}

// Visible returns the tools whose category and action perms allows.
func (r *Registry) Visible(perms model.Permissions) []*Tool {
	var out []*Tool
	for _, n := range r.names {
		if t := r.tools[n]; perms.Allows(t.Category, t.Action) {
			out = append(out, t)
		}
	}
	return out
}

// Invoke validates args against the named tool, performs the downstream
// call and returns the decoded JSON reply. defaultAccount is used for
// account-scoped tools when args carries no account_id.
func (r *Registry) Invoke(ctx context.Context, client Doer, name string, args map[string]interface{}, defaultAccount int) (interface{}, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	req, err := t.Request(args, defaultAccount)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.JSON()
}

// Request validates args and builds the downstream request without sending
// it.
func (t *Tool) Request(args map[string]interface{}, defaultAccount int) (chatwoot.Request, error) {
	if args == nil {
		args = map[string]interface{}{}
	}
	if err := t.checkArgs(args); err != nil {
		return chatwoot.Request{}, err
	}

	var req chatwoot.Request
	if t.Build != nil {
		built, err := t.Build(args)
		if err != nil {
			return chatwoot.Request{}, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		req = built
	} else {
		req = t.genericRequest(args)
	}
	req.Method = t.Method
	req.Scope = t.Scope

	if t.Scope == chatwoot.ScopeAccount {
		account := defaultAccount
		if v, ok := args[AccountParam]; ok {
			n, ok := asInt(v)
			if !ok {
				return chatwoot.Request{}, fmt.Errorf("%w: %s must be an integer", ErrInvalidArguments, AccountParam)
			}
			account = int(n)
		}
		if account <= 0 {
			return chatwoot.Request{}, fmt.Errorf("%w: %s is required", ErrInvalidArguments, AccountParam)
		}
		req.AccountID = account
	}
	return req, nil
}

func (t *Tool) genericRequest(args map[string]interface{}) chatwoot.Request {
	path := t.Path
	query := url.Values{}
	body := map[string]interface{}{}

	for _, p := range t.Params {
		v, ok := args[p.Name]
		if !ok || v == nil {
			continue
		}
		switch p.In {
		case InPath:
			path = strings.ReplaceAll(path, "{"+p.Name+"}", url.PathEscape(formatScalar(v)))
		case InQuery:
			if list, ok := v.([]interface{}); ok {
				for _, item := range list {
					query.Add(p.Name+"[]", formatScalar(item))
				}
			} else {
				query.Set(p.Name, formatScalar(v))
			}
		case InBody:
			body[p.Name] = v
		}
	}

	req := chatwoot.Request{Path: path}
	if len(query) > 0 {
		req.Query = query
	}
	if len(body) > 0 {
		req.Body = body
	} else if t.Method == "POST" || t.Method == "PUT" || t.Method == "PATCH" {
		req.Body = map[string]interface{}{}
	}
	return req
}

func (t *Tool) checkArgs(args map[string]interface{}) error {
	var problems []string
	for _, p := range t.Params {
		v, ok := args[p.Name]
		if !ok || v == nil {
			if p.Required {
				problems = append(problems, fmt.Sprintf("%s is required", p.Name))
			}
			continue
		}
		if !matchesType(v, p.Type) {
			problems = append(problems, fmt.Sprintf("%s must be %s", p.Name, article(p.Type)))
			continue
		}
		if p.Type == TypeString && p.Required && strings.TrimSpace(v.(string)) == "" {
			problems = append(problems, fmt.Sprintf("%s must not be empty", p.Name))
			continue
		}
		if len(p.Enum) > 0 && !inEnum(v, p.Enum) {
			problems = append(problems, fmt.Sprintf("%s must be one of %s", p.Name, strings.Join(p.Enum, ", ")))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidArguments, strings.Join(problems, "; "))
	}
	return nil
}

func matchesType(v interface{}, t ParamType) bool {
	switch t {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeInteger:
		_, ok := asInt(v)
		return ok
	case TypeNumber:
		switch v.(type) {
		case float64, float32, int, int64, json.Number:
			return true
		}
		return false
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeObject:
		_, ok := v.(map[string]interface{})
		return ok
	case TypeArray:
		_, ok := v.([]interface{})
		return ok
	}
	return false
}

// asInt accepts the integer encodings JSON decoding and Go callers produce.
func asInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func inEnum(v interface{}, enum []string) bool {
	s := formatScalar(v)
	for _, e := range enum {
		if e == s {
			return true
		}
	}
	return false
}

func formatScalar(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if x == math.Trunc(x) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

func article(t ParamType) string {
	switch t {
	case TypeInteger, TypeObject, TypeArray:
		return "an " + string(t)
	default:
		return "a " + string(t)
	}
}

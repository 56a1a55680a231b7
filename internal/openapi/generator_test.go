package openapi

import (
	"encoding/json"
	"testing"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/permission"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/tools"
)

func TestTemplatePath(t *testing.T) {
	tests := []struct {
		in       string
		want     string
		wantArgs []string
	}{
		{"/contacts", "/contacts", nil},
		{"/contacts/:id", "/contacts/{contact_id}", []string{"contact_id"}},
		{"/inboxes/:id", "/inboxes/{inbox_id}", []string{"inbox_id"}},
		{"/conversations/:id/messages/:id", "/conversations/{conversation_id}/messages/{message_id}",
			[]string{"conversation_id", "message_id"}},
		{"/teams/:id/:id", "/teams/{team_id}/{team_id_2}", []string{"team_id", "team_id_2"}},
	}
	for _, tt := range tests {
		got, args := templatePath(tt.in)
		if got != tt.want {
			t.Errorf("templatePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if len(args) != len(tt.wantArgs) {
			t.Errorf("templatePath(%q) args = %v, want %v", tt.in, args, tt.wantArgs)
			continue
		}
		for i := range args {
			if args[i] != tt.wantArgs[i] {
				t.Errorf("templatePath(%q) args[%d] = %q, want %q", tt.in, i, args[i], tt.wantArgs[i])
			}
		}
	}
}

func TestOperationID(t *testing.T) {
	if got := operationID("GET", "/contacts/:id/labels"); got != "get_contacts_id_labels" {
		t.Errorf("operationID = %q", got)
	}
	if got := operationID("POST", "/contacts"); got != "post_contacts" {
		t.Errorf("operationID = %q", got)
	}
}

func TestGenerate_Endpoints(t *testing.T) {
	entries := []permission.Entry{
		{Method: "GET", Path: "/contacts", Mapping: permission.Mapping{Category: model.CategoryContacts, Action: model.ActionRead}},
		{Method: "POST", Path: "/contacts", Mapping: permission.Mapping{Category: model.CategoryContacts, Action: model.ActionWrite}},
		{Method: "DELETE", Path: "/contacts/:id", Mapping: permission.Mapping{Category: model.CategoryContacts, Action: model.ActionDelete}},
	}
	doc := Generate(Info{BaseURL: "http://gw.test"}, entries, nil)

	if doc.OpenAPI != "3.1.0" {
		t.Errorf("OpenAPI = %q", doc.OpenAPI)
	}
	if doc.Servers[0].URL != "http://gw.test" {
		t.Errorf("server URL = %q", doc.Servers[0].URL)
	}
	if doc.Info.Title != "Chatwoot MCP Gateway" {
		t.Errorf("Title = %q", doc.Info.Title)
	}
	if _, ok := doc.Components.SecuritySchemes["apiKey"]; !ok {
		t.Error("apiKey security scheme missing")
	}
	if doc.Components.SecuritySchemes["apiKey"].Value.Name != "X-API-Key" {
		t.Errorf("apiKey header = %q", doc.Components.SecuritySchemes["apiKey"].Value.Name)
	}

	list := doc.Paths.Value("/contacts")
	if list == nil || list.Get == nil || list.Post == nil {
		t.Fatal("/contacts GET and POST expected")
	}
	if got := list.Get.Extensions[PermissionExtension]; got != "contacts.read" {
		t.Errorf("GET /contacts permission = %v", got)
	}
	if list.Get.RequestBody != nil {
		t.Error("GET should have no request body")
	}
	if list.Post.RequestBody == nil {
		t.Error("POST should have a request body")
	}

	item := doc.Paths.Value("/contacts/{contact_id}")
	if item == nil || item.Delete == nil {
		t.Fatal("DELETE /contacts/{contact_id} expected")
	}
	var names []string
	for _, p := range item.Delete.Parameters {
		names = append(names, p.Value.Name+":"+p.Value.In)
	}
	if len(names) != 2 || names[0] != "contact_id:path" || names[1] != "account_id:query" {
		t.Errorf("parameters = %v", names)
	}
	for _, code := range []string{"200", "401", "403", "429", "500"} {
		if item.Delete.Responses.Value(code) == nil {
			t.Errorf("response %s missing", code)
		}
	}
}

func TestGenerate_Tools(t *testing.T) {
	reg := tools.Default()
	doc := Generate(Info{}, nil, reg.List())

	if doc.Paths.Value("/tools") == nil || doc.Paths.Value("/tools").Get == nil {
		t.Fatal("GET /tools missing")
	}
	op := doc.Paths.Value("/tools/send_message")
	if op == nil || op.Post == nil {
		t.Fatal("POST /tools/send_message missing")
	}
	if got := op.Post.Extensions[PermissionExtension]; got != "messages.write" {
		t.Errorf("send_message permission = %v", got)
	}
	schema := op.Post.RequestBody.Value.Content.Get("application/json").Schema.Value
	for _, name := range []string{"conversation_id", "content", "account_id"} {
		if _, ok := schema.Properties[name]; !ok {
			t.Errorf("send_message schema missing %q", name)
		}
	}
	required := map[string]bool{}
	for _, r := range schema.Required {
		required[r] = true
	}
	if !required["conversation_id"] || !required["content"] {
		t.Errorf("required = %v", schema.Required)
	}
	if required["account_id"] {
		t.Error("account_id must stay optional")
	}

	if got := doc.Paths.Len(); got != reg.Len()+1 {
		t.Errorf("paths = %d, want %d", got, reg.Len()+1)
	}
}

func TestGenerate_DefaultTableSerializes(t *testing.T) {
	m := permission.NewMapper(nil)
	doc := Generate(Info{}, m.Entries(), tools.Default().List())

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	paths, ok := out["paths"].(map[string]interface{})
	if !ok || len(paths) == 0 {
		t.Fatal("paths missing from serialized document")
	}
	if _, ok := paths["/conversations/{conversation_id}/messages/{message_id}"]; !ok {
		t.Error("nested message path missing")
	}
}

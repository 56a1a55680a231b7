package permission

import "github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"

func e(method, path string, c model.Category, a model.Action) Entry {
	return Entry{Method: method, Path: path, Mapping: Mapping{Category: c, Action: a}}
}

const (
	read   = model.ActionRead
	write  = model.ActionWrite
	remove = model.ActionDelete
)

// defaultEntries is the curated endpoint table. Paths are relative to the
// gateway root and use ":id" for identifier segments.
var defaultEntries = []Entry{
	// contacts
	e("GET", "/contacts", model.CategoryContacts, read),
	e("POST", "/contacts", model.CategoryContacts, write),
	e("GET", "/contacts/search", model.CategoryContacts, read),
	e("POST", "/contacts/filter", model.CategoryContacts, read),
	e("GET", "/contacts/:id", model.CategoryContacts, read),
	e("PUT", "/contacts/:id", model.CategoryContacts, write),
	e("PATCH", "/contacts/:id", model.CategoryContacts, write),
	e("DELETE", "/contacts/:id", model.CategoryContacts, remove),
	e("GET", "/contacts/:id/conversations", model.CategoryConversations, read),
	e("GET", "/contacts/:id/labels", model.CategoryLabels, read),
	e("POST", "/contacts/:id/labels", model.CategoryLabels, write),

	// conversations
	e("GET", "/conversations", model.CategoryConversations, read),
	e("POST", "/conversations", model.CategoryConversations, write),
	e("GET", "/conversations/meta", model.CategoryConversations, read),
	e("POST", "/conversations/filter", model.CategoryConversations, read),
	e("GET", "/conversations/:id", model.CategoryConversations, read),
	e("PATCH", "/conversations/:id", model.CategoryConversations, write),
	e("POST", "/conversations/:id/toggle_status", model.CategoryConversations, write),
	e("POST", "/conversations/:id/toggle_priority", model.CategoryConversations, write),
	e("POST", "/conversations/:id/assignments", model.CategoryConversations, write),
	e("POST", "/conversations/:id/custom_attributes", model.CategoryConversations, write),
	e("GET", "/conversations/:id/labels", model.CategoryLabels, read),
	e("POST", "/conversations/:id/labels", model.CategoryLabels, write),

	// messages
	e("GET", "/conversations/:id/messages", model.CategoryMessages, read),
	e("POST", "/conversations/:id/messages", model.CategoryMessages, write),
	e("DELETE", "/conversations/:id/messages/:id", model.CategoryMessages, remove),

	// agents
	e("GET", "/agents", model.CategoryAgents, read),
	e("POST", "/agents", model.CategoryAgents, write),
	e("PATCH", "/agents/:id", model.CategoryAgents, write),
	e("DELETE", "/agents/:id", model.CategoryAgents, remove),

	// teams
	e("GET", "/teams", model.CategoryTeams, read),
	e("POST", "/teams", model.CategoryTeams, write),
	e("GET", "/teams/:id", model.CategoryTeams, read),
	e("PATCH", "/teams/:id", model.CategoryTeams, write),
	e("DELETE", "/teams/:id", model.CategoryTeams, remove),
	e("GET", "/teams/:id/team_members", model.CategoryTeams, read),
	e("POST", "/teams/:id/team_members", model.CategoryTeams, write),
	e("DELETE", "/teams/:id/team_members", model.CategoryTeams, remove),

	// inboxes
	e("GET", "/inboxes", model.CategoryInboxes, read),
	e("POST", "/inboxes", model.CategoryInboxes, write),
	e("GET", "/inboxes/:id", model.CategoryInboxes, read),
	e("PATCH", "/inboxes/:id", model.CategoryInboxes, write),
	e("DELETE", "/inboxes/:id", model.CategoryInboxes, remove),

	// labels
	e("GET", "/labels", model.CategoryLabels, read),
	e("POST", "/labels", model.CategoryLabels, write),
	e("GET", "/labels/:id", model.CategoryLabels, read),
	e("PATCH", "/labels/:id", model.CategoryLabels, write),
	e("DELETE", "/labels/:id", model.CategoryLabels, remove),

	// canned responses
	e("GET", "/canned_responses", model.CategoryCannedResponses, read),
	e("POST", "/canned_responses", model.CategoryCannedResponses, write),
	e("PATCH", "/canned_responses/:id", model.CategoryCannedResponses, write),
	e("DELETE", "/canned_responses/:id", model.CategoryCannedResponses, remove),

	// custom attributes
	e("GET", "/custom_attribute_definitions", model.CategoryCustomAttributes, read),
	e("POST", "/custom_attribute_definitions", model.CategoryCustomAttributes, write),
	e("GET", "/custom_attribute_definitions/:id", model.CategoryCustomAttributes, read),
	e("PATCH", "/custom_attribute_definitions/:id", model.CategoryCustomAttributes, write),
	e("DELETE", "/custom_attribute_definitions/:id", model.CategoryCustomAttributes, remove),

	// webhooks
	e("GET", "/webhooks", model.CategoryWebhooks, read),
	e("POST", "/webhooks", model.CategoryWebhooks, write),
	e("PATCH", "/webhooks/:id", model.CategoryWebhooks, write),
	e("DELETE", "/webhooks/:id", model.CategoryWebhooks, remove),

	// automation
	e("GET", "/automation_rules", model.CategoryAutomation, read),
	e("POST", "/automation_rules", model.CategoryAutomation, write),
	e("GET", "/automation_rules/:id", model.CategoryAutomation, read),
	e("PATCH", "/automation_rules/:id", model.CategoryAutomation, write),
	e("DELETE", "/automation_rules/:id", model.CategoryAutomation, remove),

	// reports
	e("GET", "/reports", model.CategoryReports, read),
	e("GET", "/reports/summary", model.CategoryReports, read),
	e("GET", "/reports/agents", model.CategoryReports, read),
	e("GET", "/reports/conversations", model.CategoryReports, read),

	// integrations
	e("GET", "/integrations/apps", model.CategoryIntegrations, read),
	e("POST", "/integrations/hooks", model.CategoryIntegrations, write),
	e("PATCH", "/integrations/hooks/:id", model.CategoryIntegrations, write),
	e("DELETE", "/integrations/hooks/:id", model.CategoryIntegrations, remove),

	// csat
	e("GET", "/csat_survey_responses", model.CategoryCSAT, read),
	e("GET", "/csat_survey_responses/metrics", model.CategoryCSAT, read),

	// specialists
	e("GET", "/specialists", model.CategorySpecialists, read),
	e("POST", "/specialists", model.CategorySpecialists, write),
	e("GET", "/specialists/:id", model.CategorySpecialists, read),
	e("PATCH", "/specialists/:id", model.CategorySpecialists, write),
	e("DELETE", "/specialists/:id", model.CategorySpecialists, remove),

	// appointments
	e("GET", "/appointments", model.CategoryAppointments, read),
	e("POST", "/appointments", model.CategoryAppointments, write),
	e("GET", "/appointments/:id", model.CategoryAppointments, read),
	e("PATCH", "/appointments/:id", model.CategoryAppointments, write),
	e("DELETE", "/appointments/:id", model.CategoryAppointments, remove),
}

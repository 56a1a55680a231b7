package tools

import (
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/chatwoot"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
)

func id(name, desc string) Param {
	return Param{Name: name, Type: TypeInteger, In: InPath, Required: true, Description: desc}
}

func query(name string, t ParamType, desc string) Param {
	return Param{Name: name, Type: t, In: InQuery, Description: desc}
}

func body(name string, t ParamType, desc string) Param {
	return Param{Name: name, Type: t, In: InBody, Description: desc}
}

func required(p Param) Param {
	p.Required = true
	return p
}

func oneOf(p Param, values ...string) Param {
	p.Enum = values
	return p
}

var pageParam = query("page", TypeInteger, "Page number, starting at 1")

// Default returns the full tool catalog. It panics if the built-in catalog is
// inconsistent, which is caught by the package tests.
func Default() *Registry {
	r, err := NewRegistry(catalog()...)
	if err != nil {
		panic(err)
	}
	return r
}

func catalog() []Tool {
	var all []Tool
	all = append(all, contactTools()...)
	all = append(all, conversationTools()...)
	all = append(all, messageTools()...)
	all = append(all, labelTools()...)
	all = append(all, agentTools()...)
	all = append(all, teamTools()...)
	all = append(all, inboxTools()...)
	all = append(all, cannedResponseTools()...)
	all = append(all, customAttributeTools()...)
	all = append(all, webhookTools()...)
	all = append(all, automationTools()...)
	all = append(all, reportTools()...)
	all = append(all, integrationTools()...)
	all = append(all, csatTools()...)
	all = append(all, specialistTools()...)
	all = append(all, appointmentTools()...)
	return all
}

func contactTools() []Tool {
	c := model.CategoryContacts
	return []Tool{
		{Name: "list_contacts", Description: "List contacts in the account, newest first.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/contacts",
			Params: []Param{pageParam, oneOf(query("sort", TypeString, "Sort field"), "name", "email", "phone_number", "last_activity_at", "-name", "-email", "-phone_number", "-last_activity_at")}},
		{Name: "get_contact", Description: "Get a contact by id.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/contacts/{contact_id}",
			Params: []Param{id("contact_id", "Contact id")}},
		{Name: "search_contacts", Description: "Search contacts by name, email, phone number or identifier.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/contacts/search",
			Params: []Param{required(query("q", TypeString, "Search term")), pageParam}},
		{Name: "filter_contacts", Description: "Filter contacts with Chatwoot filter conditions.",
			Category: c, Action: model.ActionRead, Method: "POST", Path: "/contacts/filter",
			Params: []Param{required(body("payload", TypeArray, "Filter conditions: [{attribute_key, filter_operator, values, query_operator}]")), pageParam}},
		{Name: "create_contact", Description: "Create a contact.",
			Category: c, Action: model.ActionWrite, Method: "POST", Path: "/contacts",
			Params: []Param{
				required(body("name", TypeString, "Full name")),
				body("email", TypeString, "Email address"),
				body("phone_number", TypeString, "Phone number in E.164 format"),
				body("identifier", TypeString, "External identifier"),
				body("inbox_id", TypeInteger, "Inbox to associate the contact with"),
				body("custom_attributes", TypeObject, "Custom attribute values"),
			}},
		{Name: "update_contact", Description: "Update a contact's attributes.",
			Category: c, Action: model.ActionWrite, Method: "PUT", Path: "/contacts/{contact_id}",
			Params: []Param{
				id("contact_id", "Contact id"),
				body("name", TypeString, "Full name"),
				body("email", TypeString, "Email address"),
				body("phone_number", TypeString, "Phone number in E.164 format"),
				body("custom_attributes", TypeObject, "Custom attribute values"),
			}},
		{Name: "delete_contact", Description: "Delete a contact permanently.",
			Category: c, Action: model.ActionDelete, Method: "DELETE", Path: "/contacts/{contact_id}",
			Params: []Param{id("contact_id", "Contact id")}},
		{Name: "create_public_contact", Description: "Create a contact through an API inbox's public endpoint.",
			Category: c, Action: model.ActionWrite, Method: "POST", Scope: chatwoot.ScopePublic,
			Path: "/inboxes/{inbox_identifier}/contacts",
			Params: []Param{
				{Name: "inbox_identifier", Type: TypeString, In: InPath, Required: true, Description: "Public inbox identifier"},
				body("name", TypeString, "Full name"),
				body("email", TypeString, "Email address"),
				body("phone_number", TypeString, "Phone number"),
				body("identifier", TypeString, "External identifier"),
			}},
	}
}

func conversationTools() []Tool {
	c := model.CategoryConversations
	status := oneOf(query("status", TypeString, "Conversation status"), "open", "resolved", "pending", "snoozed", "all")
	return []Tool{
		{Name: "list_conversations", Description: "List conversations, optionally filtered by status, assignee or inbox.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/conversations",
			Params: []Param{
				status,
				oneOf(query("assignee_type", TypeString, "Assignee filter"), "me", "unassigned", "all", "assigned"),
				query("inbox_id", TypeInteger, "Only conversations of this inbox"),
				query("team_id", TypeInteger, "Only conversations of this team"),
				query("labels", TypeArray, "Only conversations with these labels"),
				pageParam,
			}},
		{Name: "get_conversation_counts", Description: "Count conversations per assignee type.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/conversations/meta",
			Params: []Param{status, query("inbox_id", TypeInteger, "Inbox filter"), query("team_id", TypeInteger, "Team filter")}},
		{Name: "get_conversation", Description: "Get a conversation by display id.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/conversations/{conversation_id}",
			Params: []Param{id("conversation_id", "Conversation display id")}},
		{Name: "filter_conversations", Description: "Filter conversations with Chatwoot filter conditions.",
			Category: c, Action: model.ActionRead, Method: "POST", Path: "/conversations/filter",
			Params: []Param{required(body("payload", TypeArray, "Filter conditions")), pageParam}},
		{Name: "list_contact_conversations", Description: "List the conversations of a contact.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/contacts/{contact_id}/conversations",
			Params: []Param{id("contact_id", "Contact id")}},
		{Name: "create_conversation", Description: "Start a new conversation with a contact.",
			Category: c, Action: model.ActionWrite, Method: "POST", Path: "/conversations",
			Params: []Param{
				required(body("source_id", TypeString, "Contact inbox source id")),
				required(body("inbox_id", TypeInteger, "Inbox id")),
				body("contact_id", TypeInteger, "Contact id"),
				oneOf(body("status", TypeString, "Initial status"), "open", "resolved", "pending"),
				body("assignee_id", TypeInteger, "Agent to assign"),
				body("team_id", TypeInteger, "Team to assign"),
				body("message", TypeObject, "Initial message: {content}"),
				body("custom_attributes", TypeObject, "Custom attribute values"),
			}},
		{Name: "toggle_conversation_status", Description: "Change the status of a conversation.",
			Category: c, Action: model.ActionWrite, Method: "POST", Path: "/conversations/{conversation_id}/toggle_status",
			Params: []Param{
				id("conversation_id", "Conversation display id"),
				required(oneOf(body("status", TypeString, "New status"), "open", "resolved", "pending", "snoozed")),
				body("snoozed_until", TypeInteger, "Unix timestamp to snooze until"),
			}},
		{Name: "toggle_conversation_priority", Description: "Set the priority of a conversation.",
			Category: c, Action: model.ActionWrite, Method: "POST", Path: "/conversations/{conversation_id}/toggle_priority",
			Params: []Param{
				id("conversation_id", "Conversation display id"),
				required(oneOf(body("priority", TypeString, "Priority"), "urgent", "high", "medium", "low", "none")),
			}},
		{Name: "assign_conversation", Description: "Assign a conversation to an agent and/or team.",
			Category: c, Action: model.ActionWrite, Method: "POST", Path: "/conversations/{conversation_id}/assignments",
			Params: []Param{
				id("conversation_id", "Conversation display id"),
				body("assignee_id", TypeInteger, "Agent id"),
				body("team_id", TypeInteger, "Team id"),
			}},
		{Name: "set_conversation_custom_attributes", Description: "Replace the custom attributes of a conversation.",
			Category: c, Action: model.ActionWrite, Method: "POST", Path: "/conversations/{conversation_id}/custom_attributes",
			Params: []Param{
				id("conversation_id", "Conversation display id"),
				required(body("custom_attributes", TypeObject, "Custom attribute values")),
			}},
	}
}

func messageTools() []Tool {
	c := model.CategoryMessages
	return []Tool{
		{Name: "list_messages", Description: "List the messages of a conversation.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/conversations/{conversation_id}/messages",
			Params: []Param{id("conversation_id", "Conversation display id"), query("before", TypeInteger, "Only messages before this message id")}},
		{Name: "send_message", Description: "Send a message or private note in a conversation.",
			Category: c, Action: model.ActionWrite, Method: "POST", Path: "/conversations/{conversation_id}/messages",
			Params: []Param{
				id("conversation_id", "Conversation display id"),
				required(body("content", TypeString, "Message text")),
				oneOf(body("message_type", TypeString, "Direction"), "outgoing", "incoming"),
				body("private", TypeBoolean, "Send as a private note"),
				body("content_attributes", TypeObject, "Extra content attributes"),
			}},
		{Name: "delete_message", Description: "Delete a message from a conversation.",
			Category: c, Action: model.ActionDelete, Method: "DELETE", Path: "/conversations/{conversation_id}/messages/{message_id}",
			Params: []Param{id("conversation_id", "Conversation display id"), id("message_id", "Message id")}},
	}
}

func labelTools() []Tool {
	c := model.CategoryLabels
	return []Tool{
		{Name: "list_labels", Description: "List the account's labels.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/labels"},
		{Name: "create_label", Description: "Create a label.",
			Category: c, Action: model.ActionWrite, Method: "POST", Path: "/labels",
			Params: []Param{
				required(body("title", TypeString, "Label title")),
				body("description", TypeString, "Description"),
				body("color", TypeString, "Hex color, e.g. #1f93ff"),
				body("show_on_sidebar", TypeBoolean, "Show in the sidebar"),
			}},
		{Name: "update_label", Description: "Update a label.",
			Category: c, Action: model.ActionWrite, Method: "PATCH", Path: "/labels/{label_id}",
			Params: []Param{
				id("label_id", "Label id"),
				body("title", TypeString, "Label title"),
				body("description", TypeString, "Description"),
				body("color", TypeString, "Hex color"),
				body("show_on_sidebar", TypeBoolean, "Show in the sidebar"),
			}},
		{Name: "delete_label", Description: "Delete a label.",
			Category: c, Action: model.ActionDelete, Method: "DELETE", Path: "/labels/{label_id}",
			Params: []Param{id("label_id", "Label id")}},
		{Name: "list_conversation_labels", Description: "List the labels of a conversation.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/conversations/{conversation_id}/labels",
			Params: []Param{id("conversation_id", "Conversation display id")}},
		{Name: "set_conversation_labels", Description: "Replace the labels of a conversation.",
			Category: c, Action: model.ActionWrite, Method: "POST", Path: "/conversations/{conversation_id}/labels",
			Params: []Param{id("conversation_id", "Conversation display id"), required(body("labels", TypeArray, "Label titles"))}},
		{Name: "list_contact_labels", Description: "List the labels of a contact.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/contacts/{contact_id}/labels",
			Params: []Param{id("contact_id", "Contact id")}},
		{Name: "set_contact_labels", Description: "Replace the labels of a contact.",
			Category: c, Action: model.ActionWrite, Method: "POST", Path: "/contacts/{contact_id}/labels",
			Params: []Param{id("contact_id", "Contact id"), required(body("labels", TypeArray, "Label titles"))}},
	}
}

func agentTools() []Tool {
	c := model.CategoryAgents
	role := oneOf(body("role", TypeString, "Agent role"), "agent", "administrator")
	availability := oneOf(body("availability_status", TypeString, "Availability"), "available", "busy", "offline")
	return []Tool{
		{Name: "list_agents", Description: "List the agents of the account.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/agents"},
		{Name: "create_agent", Description: "Invite a new agent to the account.",
			Category: c, Action: model.ActionWrite, Method: "POST", Path: "/agents",
			Params: []Param{
				required(body("name", TypeString, "Agent name")),
				required(body("email", TypeString, "Agent email")),
				required(role),
				availability,
				body("auto_offline", TypeBoolean, "Go offline automatically"),
			}},
		{Name: "update_agent", Description: "Update an agent's role or availability.",
			Category: c, Action: model.ActionWrite, Method: "PATCH", Path: "/agents/{agent_id}",
			Params: []Param{id("agent_id", "Agent id"), role, availability, body("auto_offline", TypeBoolean, "Go offline automatically")}},
		{Name: "delete_agent", Description: "Remove an agent from the account.",
			Category: c, Action: model.ActionDelete, Method: "DELETE", Path: "/agents/{agent_id}",
			Params: []Param{id("agent_id", "Agent id")}},
	}
}

func teamTools() []Tool {
	c := model.CategoryTeams
	return []Tool{
		{Name: "list_teams", Description: "List the teams of the account.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/teams"},
		{Name: "get_team", Description: "Get a team by id.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/teams/{team_id}",
			Params: []Param{id("team_id", "Team id")}},
		{Name: "create_team", Description: "Create a team.",
			Category: c, Action: model.ActionWrite, Method: "POST", Path: "/teams",
			Params: []Param{
				required(body("name", TypeString, "Team name")),
				body("description", TypeString, "Description"),
				body("allow_auto_assign", TypeBoolean, "Auto-assign conversations to members"),
			}},
		{Name: "update_team", Description: "Update a team.",
			Category: c, Action: model.ActionWrite, Method: "PATCH", Path: "/teams/{team_id}",
			Params: []Param{
				id("team_id", "Team id"),
				body("name", TypeString, "Team name"),
				body("description", TypeString, "Description"),
				body("allow_auto_assign", TypeBoolean, "Auto-assign conversations to members"),
			}},
		{Name: "delete_team", Description: "Delete a team.",
			Category: c, Action: model.ActionDelete, Method: "DELETE", Path: "/teams/{team_id}",
			Params: []Param{id("team_id", "Team id")}},
		{Name: "list_team_members", Description: "List the agents in a team.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/teams/{team_id}/team_members",
			Params: []Param{id("team_id", "Team id")}},
		{Name: "add_team_members", Description: "Add agents to a team.",
			Category: c, Action: model.ActionWrite, Method: "POST", Path: "/teams/{team_id}/team_members",
			Params: []Param{id("team_id", "Team id"), required(body("user_ids", TypeArray, "Agent ids"))}},
		{Name: "remove_team_members", Description: "Remove agents from a team.",
			Category: c, Action: model.ActionDelete, Method: "DELETE", Path: "/teams/{team_id}/team_members",
			Params: []Param{id("team_id", "Team id"), required(body("user_ids", TypeArray, "Agent ids"))}},
	}
}

func inboxTools() []Tool {
	c := model.CategoryInboxes
	return []Tool{
		{Name: "list_inboxes", Description: "List the inboxes of the account.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/inboxes"},
		{Name: "get_inbox", Description: "Get an inbox by id.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/inboxes/{inbox_id}",
			Params: []Param{id("inbox_id", "Inbox id")}},
		{Name: "update_inbox", Description: "Update an inbox's settings.",
			Category: c, Action: model.ActionWrite, Method: "PATCH", Path: "/inboxes/{inbox_id}",
			Params: []Param{
				id("inbox_id", "Inbox id"),
				body("name", TypeString, "Inbox name"),
				body("enable_auto_assignment", TypeBoolean, "Auto-assign new conversations"),
				body("greeting_enabled", TypeBoolean, "Send a greeting message"),
				body("greeting_message", TypeString, "Greeting text"),
			}},
	}
}

func cannedResponseTools() []Tool {
	c := model.CategoryCannedResponses
	return []Tool{
		{Name: "list_canned_responses", Description: "List canned responses, optionally matching a search term.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/canned_responses",
			Params: []Param{query("search", TypeString, "Short code or content search")}},
		{Name: "create_canned_response", Description: "Create a canned response.",
			Category: c, Action: model.ActionWrite, Method: "POST", Path: "/canned_responses",
			Params: []Param{required(body("short_code", TypeString, "Short code")), required(body("content", TypeString, "Response text"))}},
		{Name: "update_canned_response", Description: "Update a canned response.",
			Category: c, Action: model.ActionWrite, Method: "PATCH", Path: "/canned_responses/{canned_response_id}",
			Params: []Param{id("canned_response_id", "Canned response id"), body("short_code", TypeString, "Short code"), body("content", TypeString, "Response text")}},
		{Name: "delete_canned_response", Description: "Delete a canned response.",
			Category: c, Action: model.ActionDelete, Method: "DELETE", Path: "/canned_responses/{canned_response_id}",
			Params: []Param{id("canned_response_id", "Canned response id")}},
	}
}

func customAttributeTools() []Tool {
	c := model.CategoryCustomAttributes
	return []Tool{
		{Name: "list_custom_attribute_definitions", Description: "List custom attribute definitions (0 = conversation, 1 = contact).",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/custom_attribute_definitions",
			Params: []Param{oneOf(query("attribute_model", TypeInteger, "0 for conversation, 1 for contact"), "0", "1")}},
		{Name: "create_custom_attribute_definition", Description: "Define a new custom attribute.",
			Category: c, Action: model.ActionWrite, Method: "POST", Path: "/custom_attribute_definitions",
			Params: []Param{
				required(body("attribute_display_name", TypeString, "Display name")),
				required(body("attribute_key", TypeString, "Key")),
				required(body("attribute_display_type", TypeInteger, "Display type (0 text, 1 number, 2 currency, 3 percent, 4 link, 5 date, 6 list, 7 checkbox)")),
				required(oneOf(body("attribute_model", TypeInteger, "0 for conversation, 1 for contact"), "0", "1")),
				body("attribute_description", TypeString, "Description"),
				body("attribute_values", TypeArray, "Allowed values for list attributes"),
			}},
		{Name: "update_custom_attribute_definition", Description: "Update a custom attribute definition.",
			Category: c, Action: model.ActionWrite, Method: "PATCH", Path: "/custom_attribute_definitions/{definition_id}",
			Params: []Param{
				id("definition_id", "Definition id"),
				body("attribute_display_name", TypeString, "Display name"),
				body("attribute_description", TypeString, "Description"),
				body("attribute_values", TypeArray, "Allowed values for list attributes"),
			}},
		{Name: "delete_custom_attribute_definition", Description: "Delete a custom attribute definition.",
			Category: c, Action: model.ActionDelete, Method: "DELETE", Path: "/custom_attribute_definitions/{definition_id}",
			Params: []Param{id("definition_id", "Definition id")}},
	}
}

func webhookTools() []Tool {
	c := model.CategoryWebhooks
	subs := body("subscriptions", TypeArray, "Events, e.g. conversation_created, message_created")
	return []Tool{
		{Name: "list_webhooks", Description: "List the account's webhooks.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/webhooks"},
		{Name: "create_webhook", Description: "Register a webhook.",
			Category: c, Action: model.ActionWrite, Method: "POST", Path: "/webhooks",
			Params: []Param{required(body("url", TypeString, "Target URL")), subs}},
		{Name: "update_webhook", Description: "Update a webhook.",
			Category: c, Action: model.ActionWrite, Method: "PATCH", Path: "/webhooks/{webhook_id}",
			Params: []Param{id("webhook_id", "Webhook id"), body("url", TypeString, "Target URL"), subs}},
		{Name: "delete_webhook", Description: "Delete a webhook.",
			Category: c, Action: model.ActionDelete, Method: "DELETE", Path: "/webhooks/{webhook_id}",
			Params: []Param{id("webhook_id", "Webhook id")}},
	}
}

func automationTools() []Tool {
	c := model.CategoryAutomation
	event := oneOf(body("event_name", TypeString, "Trigger event"),
		"conversation_created", "conversation_updated", "message_created", "conversation_opened")
	return []Tool{
		{Name: "list_automation_rules", Description: "List automation rules.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/automation_rules"},
		{Name: "get_automation_rule", Description: "Get an automation rule by id.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/automation_rules/{rule_id}",
			Params: []Param{id("rule_id", "Rule id")}},
		{Name: "create_automation_rule", Description: "Create an automation rule.",
			Category: c, Action: model.ActionWrite, Method: "POST", Path: "/automation_rules",
			Params: []Param{
				required(body("name", TypeString, "Rule name")),
				required(event),
				required(body("conditions", TypeArray, "Conditions")),
				required(body("actions", TypeArray, "Actions")),
				body("description", TypeString, "Description"),
				body("active", TypeBoolean, "Whether the rule is enabled"),
			}},
		{Name: "update_automation_rule", Description: "Update an automation rule.",
			Category: c, Action: model.ActionWrite, Method: "PATCH", Path: "/automation_rules/{rule_id}",
			Params: []Param{
				id("rule_id", "Rule id"),
				body("name", TypeString, "Rule name"),
				event,
				body("conditions", TypeArray, "Conditions"),
				body("actions", TypeArray, "Actions"),
				body("description", TypeString, "Description"),
				body("active", TypeBoolean, "Whether the rule is enabled"),
			}},
		{Name: "delete_automation_rule", Description: "Delete an automation rule.",
			Category: c, Action: model.ActionDelete, Method: "DELETE", Path: "/automation_rules/{rule_id}",
			Params: []Param{id("rule_id", "Rule id")}},
	}
}

func reportTools() []Tool {
	c := model.CategoryReports
	reportType := required(oneOf(query("type", TypeString, "Report dimension"), "account", "agent", "inbox", "label", "team"))
	since := required(query("since", TypeString, "Start, unix timestamp"))
	until := required(query("until", TypeString, "End, unix timestamp"))
	return []Tool{
		{Name: "get_report_summary", Description: "Summary metrics (conversations, response times) for a period.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/reports/summary",
			Params: []Param{reportType, since, until, query("id", TypeInteger, "Agent, inbox, label or team id")}},
		{Name: "get_report_timeseries", Description: "Time series of one metric for a period.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/reports",
			Params: []Param{
				required(oneOf(query("metric", TypeString, "Metric"),
					"conversations_count", "incoming_messages_count", "outgoing_messages_count",
					"avg_first_response_time", "avg_resolution_time", "resolutions_count")),
				reportType, since, until,
				query("id", TypeInteger, "Agent, inbox, label or team id"),
			}},
		{Name: "get_agent_reports", Description: "Per-agent conversation metrics for a period.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/reports/agents",
			Params: []Param{since, until}},
	}
}

func integrationTools() []Tool {
	c := model.CategoryIntegrations
	return []Tool{
		{Name: "list_integration_apps", Description: "List available integrations and their hooks.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/integrations/apps"},
		{Name: "create_integration_hook", Description: "Enable an integration hook.",
			Category: c, Action: model.ActionWrite, Method: "POST", Path: "/integrations/hooks",
			Params: []Param{
				required(body("app_id", TypeString, "Integration app id, e.g. dialogflow")),
				body("inbox_id", TypeInteger, "Inbox to attach to"),
				body("settings", TypeObject, "Integration specific settings"),
			}},
		{Name: "delete_integration_hook", Description: "Remove an integration hook.",
			Category: c, Action: model.ActionDelete, Method: "DELETE", Path: "/integrations/hooks/{hook_id}",
			Params: []Param{id("hook_id", "Hook id")}},
	}
}

func csatTools() []Tool {
	c := model.CategoryCSAT
	return []Tool{
		{Name: "list_csat_responses", Description: "List customer satisfaction survey responses.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/csat_survey_responses",
			Params: []Param{pageParam, query("since", TypeString, "Start, unix timestamp"), query("until", TypeString, "End, unix timestamp")}},
		{Name: "get_csat_metrics", Description: "Aggregate CSAT metrics for a period.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/csat_survey_responses/metrics",
			Params: []Param{query("since", TypeString, "Start, unix timestamp"), query("until", TypeString, "End, unix timestamp")}},
	}
}

func specialistTools() []Tool {
	c := model.CategorySpecialists
	return []Tool{
		{Name: "list_specialists", Description: "List specialists available for appointments.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/specialists",
			Params: []Param{pageParam}},
		{Name: "get_specialist", Description: "Get a specialist by id.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/specialists/{specialist_id}",
			Params: []Param{id("specialist_id", "Specialist id")}},
		{Name: "create_specialist", Description: "Create a specialist.",
			Category: c, Action: model.ActionWrite, Method: "POST", Path: "/specialists",
			Params: []Param{
				required(body("name", TypeString, "Name")),
				body("email", TypeString, "Email"),
				body("specialty", TypeString, "Specialty"),
				body("working_hours", TypeObject, "Weekly availability"),
			}},
		{Name: "update_specialist", Description: "Update a specialist.",
			Category: c, Action: model.ActionWrite, Method: "PATCH", Path: "/specialists/{specialist_id}",
			Params: []Param{
				id("specialist_id", "Specialist id"),
				body("name", TypeString, "Name"),
				body("email", TypeString, "Email"),
				body("specialty", TypeString, "Specialty"),
				body("working_hours", TypeObject, "Weekly availability"),
			}},
		{Name: "delete_specialist", Description: "Delete a specialist.",
			Category: c, Action: model.ActionDelete, Method: "DELETE", Path: "/specialists/{specialist_id}",
			Params: []Param{id("specialist_id", "Specialist id")}},
	}
}

func appointmentTools() []Tool {
	c := model.CategoryAppointments
	status := oneOf(body("status", TypeString, "Status"), "scheduled", "confirmed", "completed", "cancelled", "no_show")
	return []Tool{
		{Name: "list_appointments", Description: "List appointments, optionally for one day or specialist.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/appointments",
			Params: []Param{pageParam, query("date", TypeString, "Day, YYYY-MM-DD"), query("specialist_id", TypeInteger, "Specialist filter")}},
		{Name: "get_appointment", Description: "Get an appointment by id.",
			Category: c, Action: model.ActionRead, Method: "GET", Path: "/appointments/{appointment_id}",
			Params: []Param{id("appointment_id", "Appointment id")}},
		{Name: "create_appointment", Description: "Book an appointment between a contact and a specialist.",
			Category: c, Action: model.ActionWrite, Method: "POST", Path: "/appointments",
			Params: []Param{
				required(body("contact_id", TypeInteger, "Contact id")),
				required(body("specialist_id", TypeInteger, "Specialist id")),
				required(body("scheduled_at", TypeString, "Start time, RFC 3339")),
				body("duration_minutes", TypeInteger, "Duration in minutes"),
				body("notes", TypeString, "Notes"),
			}},
		{Name: "update_appointment", Description: "Reschedule an appointment or change its status.",
			Category: c, Action: model.ActionWrite, Method: "PATCH", Path: "/appointments/{appointment_id}",
			Params: []Param{
				id("appointment_id", "Appointment id"),
				body("scheduled_at", TypeString, "Start time, RFC 3339"),
				body("duration_minutes", TypeInteger, "Duration in minutes"),
				status,
				body("notes", TypeString, "Notes"),
			}},
		{Name: "cancel_appointment", Description: "Delete an appointment.",
			Category: c, Action: model.ActionDelete, Method: "DELETE", Path: "/appointments/{appointment_id}",
			Params: []Param{id("appointment_id", "Appointment id")}},
	}
}

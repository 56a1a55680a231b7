package model

import (
	"fmt"
	"sort"
)

// Category is a Chatwoot resource kind against which token permissions are
// granted.
type Category string

const (
	CategoryContacts         Category = "contacts"
	CategoryConversations    Category = "conversations"
	CategoryMessages         Category = "messages"
	CategoryAgents           Category = "agents"
	CategoryTeams            Category = "teams"
	CategoryInboxes          Category = "inboxes"
	CategorySpecialists      Category = "specialists"
	CategoryAppointments     Category = "appointments"
	CategoryWebhooks         Category = "webhooks"
	CategoryAutomation       Category = "automation"
	CategoryReports          Category = "reports"
	CategoryLabels           Category = "labels"
	CategoryCannedResponses  Category = "canned_responses"
	CategoryCustomAttributes Category = "custom_attributes"
	CategoryIntegrations     Category = "integrations"
	CategoryCSAT             Category = "csat"
)

// Categories lists every permission category in display order.
var Categories = []Category{
	CategoryContacts,
	CategoryConversations,
	CategoryMessages,
	CategoryAgents,
	CategoryTeams,
	CategoryInboxes,
	CategorySpecialists,
	CategoryAppointments,
	CategoryWebhooks,
	CategoryAutomation,
	CategoryReports,
	CategoryLabels,
	CategoryCannedResponses,
	CategoryCustomAttributes,
	CategoryIntegrations,
	CategoryCSAT,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Action is the kind of access a request needs within a category.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

// Valid reports whether a is read, write or delete.
func (a Action) Valid() bool {
	return a == ActionRead || a == ActionWrite || a == ActionDelete
}

// Access holds the three independent grants for a single category.
type Access struct {
	Read   bool `json:"read"`
	Write  bool `json:"write"`
	Delete bool `json:"delete"`
}

// Allows reports whether the grant covers action.
func (a Access) Allows(action Action) bool {
	switch action {
	case ActionRead:
		return a.Read
	case ActionWrite:
		return a.Write
	case ActionDelete:
		return a.Delete
	default:
		return false
	}
}

// Permissions maps a category to its grants. Missing categories grant nothing.
type Permissions map[Category]Access

// Allows reports whether the permission set grants action on category.
func (p Permissions) Allows(category Category, action Action) bool {
	if p == nil {
		return false
	}
	return p[category].Allows(action)
}

// Validate rejects unknown categories.
func (p Permissions) Validate() error {
	for c := range p {
		if !c.Valid() {
			return fmt.Errorf("unknown permission category %q", c)
		}
	}
	return nil
}

// Granted returns the categories with at least one grant, sorted.
func (p Permissions) Granted() []Category {
	out := make([]Category, 0, len(p))
	for c, a := range p {
		if a.Read || a.Write || a.Delete {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ReadOnly reports whether p grants nothing beyond read.
func (p Permissions) ReadOnly() bool {
	for _, a := range p {
		if a.Write || a.Delete {
			return false
		}
	}
	return true
}

// IsFull reports whether p grants every action on every category.
func (p Permissions) IsFull() bool {
	for _, c := range Categories {
		a := p[c]
		if !a.Read || !a.Write || !a.Delete {
			return false
		}
	}
	return true
}

// FullAccess returns a permission set granting everything on every category.
func FullAccess() Permissions {
	p := make(Permissions, len(Categories))
	for _, c := range Categories {
		p[c] = Access{Read: true, Write: true, Delete: true}
	}
	return p
}

package models

import "time"

// DomainConfig describes one business vertical: the terminology an
// application should use, the roles its users play, and which workflow
// features are switched on. The record is the sole persisted entity.
//
// Invariants:
//   - DomainName is unique across all records regardless of IsActive
//   - DomainName is immutable after creation (updates pin the stored value)
//   - Entities, Workflows, and Terminology are never nil on a persisted record
//   - CreatedAt is set once; UpdatedAt changes on every write
//
// Soft delete flips IsActive to false; the row is never removed outside the
// seed-reload path.
//
// Wire format: top-level fields are camelCase, sub-record fields snake_case.
// Entities and Workflows are stored as JSONB so the two query shapes
// (context type, transaction type, payment flag) can filter on nested fields
// without a relational schema for them.
type DomainConfig struct {
	ID             string         `json:"id,omitempty"`
	DomainName     string         `json:"domainName"`
	DisplayName    string         `json:"displayName"`
	Description    string         `json:"description,omitempty"`
	Entities       *Entities      `json:"entities"`
	Workflows      *Workflows     `json:"workflows"`
	Terminology    *Terminology   `json:"terminology"`
	CustomSettings map[string]any `json:"customSettings,omitempty"`
	IsActive       bool           `json:"isActive"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Entities names the actors and categorical tags of a domain.
type Entities struct {
	UserRoles          []string `json:"user_roles"`
	ContextType        string   `json:"context_type"`
	TransactionType    string   `json:"transaction_type"`
	ResourceType       string   `json:"resource_type,omitempty"`
	SecondaryUserRoles []string `json:"secondary_user_roles,omitempty"`
}

// Workflows holds the ordered transaction lifecycle and feature toggles.
type Workflows struct {
	TransactionStates []string `json:"transaction_states"`
	PaymentRequired   bool     `json:"payment_required"`
	LocationRequired  bool     `json:"location_required"`
	ApprovalWorkflow  bool     `json:"approval_workflow"`
	RatingSystem      bool     `json:"rating_system"`
}

// Terminology maps the generic concepts (user, context, transaction) to the
// words a domain actually uses for them.
type Terminology struct {
	UserPrimary       string `json:"user_primary"`
	UserSecondary     string `json:"user_secondary,omitempty"`
	Context           string `json:"context"`
	Transaction       string `json:"transaction"`
	Resource          string `json:"resource,omitempty"`
	ContextPlural     string `json:"context_plural,omitempty"`
	TransactionPlural string `json:"transaction_plural,omitempty"`
}

// Clone returns a deep copy. Stores hand out clones so callers can mutate
// results without corrupting shared state.
func (c *DomainConfig) Clone() *DomainConfig {
	if c == nil {
		return nil
	}
	out := *c
	if c.Entities != nil {
		e := *c.Entities
		e.UserRoles = append([]string(nil), c.Entities.UserRoles...)
		e.SecondaryUserRoles = append([]string(nil), c.Entities.SecondaryUserRoles...)
		out.Entities = &e
	}
	if c.Workflows != nil {
		w := *c.Workflows
		w.TransactionStates = append([]string(nil), c.Workflows.TransactionStates...)
		out.Workflows = &w
	}
	if c.Terminology != nil {
		t := *c.Terminology
		out.Terminology = &t
	}
	if c.CustomSettings != nil {
		cs := make(map[string]any, len(c.CustomSettings))
		for k, v := range c.CustomSettings {
			cs[k] = v
		}
		out.CustomSettings = cs
	}
	return &out
}

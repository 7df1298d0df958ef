// Package validate checks the structural invariants of a domain
// configuration before it is persisted. The checks are pure: no I/O, no
// mutation of the input, and identical results for identical input, so both
// the HTTP validate endpoint and the seed loader share this single contract.
package validate

import (
	"strings"

	"domainconfig/internal/domainconfig/models"
	dErrors "domainconfig/pkg/domain-errors"
)

// Config returns nil when the record satisfies every structural invariant,
// or a validation error naming the first field that fails.
func Config(c *models.DomainConfig) error {
	if c == nil {
		return dErrors.New(dErrors.CodeValidation, "domain configuration is required")
	}
	if strings.TrimSpace(c.DomainName) == "" {
		return dErrors.New(dErrors.CodeValidation, "domainName is required")
	}
	if c.Entities == nil {
		return dErrors.New(dErrors.CodeValidation, "entities configuration is required")
	}
	if c.Workflows == nil {
		return dErrors.New(dErrors.CodeValidation, "workflows configuration is required")
	}
	if c.Terminology == nil {
		return dErrors.New(dErrors.CodeValidation, "terminology configuration is required")
	}
	if len(c.Entities.UserRoles) == 0 {
		return dErrors.New(dErrors.CodeValidation, "entities.user_roles must not be empty")
	}
	if strings.TrimSpace(c.Entities.ContextType) == "" {
		return dErrors.New(dErrors.CodeValidation, "entities.context_type is required")
	}
	if strings.TrimSpace(c.Entities.TransactionType) == "" {
		return dErrors.New(dErrors.CodeValidation, "entities.transaction_type is required")
	}
	if len(c.Workflows.TransactionStates) == 0 {
		return dErrors.New(dErrors.CodeValidation, "workflows.transaction_states must not be empty")
	}
	if strings.TrimSpace(c.Terminology.UserPrimary) == "" {
		return dErrors.New(dErrors.CodeValidation, "terminology.user_primary is required")
	}
	if strings.TrimSpace(c.Terminology.Context) == "" {
		return dErrors.New(dErrors.CodeValidation, "terminology.context is required")
	}
	if strings.TrimSpace(c.Terminology.Transaction) == "" {
		return dErrors.New(dErrors.CodeValidation, "terminology.transaction is required")
	}
	return nil
}

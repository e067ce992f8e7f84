// Package accesscontrol answers "may this principal do that" in one place.
// Role capabilities live in a static table resolved at init; ownership checks
// compare the principal against an entity's customer and agent links.
//
// A denied read on an entity that exists returns Forbidden, never NotFound:
// leaking existence through error codes is an enumeration channel.
package accesscontrol

import (
	"github.com/google/uuid"

	"covergate/internal/identity/models"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/requestcontext"
)

// Capability names an operation gated by role.
type Capability string

const (
	CapPolicyApplyForOthers Capability = "policy.apply_for_others"
	CapPolicyTransition     Capability = "policy.transition"
	CapPolicyDelete         Capability = "policy.delete"
	CapClaimReview          Capability = "claim.review"
	CapClaimListAll         Capability = "claim.list_all"
	CapUserList             Capability = "user.list"
	CapPaymentConfirmAny    Capability = "payment.confirm_any"
	CapPaymentListAll       Capability = "payment.list_all"
)

var grants = map[Capability]map[models.Role]struct{}{
	CapPolicyApplyForOthers: roles(models.RoleAdmin, models.RoleAgent),
	CapPolicyTransition:     roles(models.RoleAdmin, models.RoleAgent),
	CapPolicyDelete:         roles(models.RoleAdmin),
	CapClaimReview:          roles(models.RoleAdmin),
	CapClaimListAll:         roles(models.RoleAdmin, models.RoleAgent),
	CapUserList:             roles(models.RoleAdmin),
	CapPaymentConfirmAny:    roles(models.RoleAdmin),
	CapPaymentListAll:       roles(models.RoleAdmin, models.RoleAgent),
}

func roles(rs ...models.Role) map[models.Role]struct{} {
	m := make(map[models.Role]struct{}, len(rs))
	for _, r := range rs {
		m[r] = struct{}{}
	}
	return m
}

// Allow returns Forbidden unless the role is in the capability's allow-list.
func Allow(role models.Role, cap Capability) error {
	allowed, ok := grants[cap]
	if !ok {
		return dErrors.New(dErrors.CodeForbidden, "operation not permitted")
	}
	if _, ok := allowed[role]; !ok {
		return dErrors.New(dErrors.CodeForbidden, "operation not permitted")
	}
	return nil
}

// CanReadEntity checks post-fetch ownership: customers see their own
// entities, agents additionally those assigned to them, admins everything.
func CanReadEntity(p requestcontext.Principal, customerID uuid.UUID, agentID *uuid.UUID) error {
	switch models.Role(p.Role) {
	case models.RoleAdmin:
		return nil
	case models.RoleAgent:
		if customerID == p.UserID {
			return nil
		}
		if agentID != nil && *agentID == p.UserID {
			return nil
		}
	case models.RoleCustomer:
		if customerID == p.UserID {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeForbidden, "you do not have access to this resource")
}

// ScopeKind selects the filter a list query applies.
type ScopeKind int

const (
	ScopeAll ScopeKind = iota
	ScopeByCustomer
	ScopeByAgent
)

// Scope is the ownership filter for list operations.
type Scope struct {
	Kind ScopeKind
	ID   uuid.UUID
}

// ListScope maps a principal to the filter its listings must apply.
func ListScope(p requestcontext.Principal) Scope {
	switch models.Role(p.Role) {
	case models.RoleAdmin:
		return Scope{Kind: ScopeAll}
	case models.RoleAgent:
		return Scope{Kind: ScopeByAgent, ID: p.UserID}
	default:
		return Scope{Kind: ScopeByCustomer, ID: p.UserID}
	}
}

package models

import (
	"errors"
	"fmt"
	"strings"
)

// Scope describes how far an AIQueryContext reaches.
type Scope string

const (
	ScopeOrg    Scope = "org"
	ScopeGlobal Scope = "global"
)

var ErrInvalidContext = errors.New("invalid AI query context")

// AIQueryContext is the caller identity the engine trusts for one request.
// Fields are unexported so a context cannot change after construction.
type AIQueryContext struct {
	scope          Scope
	allowedOrgIDs  []string
	canCompareOrgs bool
	userID         string
	userName       string
	activeOrgID    string
}

// NewOrgContext builds a context restricted to a single organization.
func NewOrgContext(userID, userName, orgID string) AIQueryContext {
	return AIQueryContext{
		scope:         ScopeOrg,
		allowedOrgIDs: []string{orgID},
		userID:        userID,
		userName:      userName,
		activeOrgID:   orgID,
	}
}

// NewGlobalContext builds a super-user context that may read and compare every organization.
// activeOrgID may be empty.
func NewGlobalContext(userID, userName, activeOrgID string) AIQueryContext {
	return AIQueryContext{
		scope:          ScopeGlobal,
		canCompareOrgs: true,
		userID:         userID,
		userName:       userName,
		activeOrgID:    activeOrgID,
	}
}

func (c AIQueryContext) Scope() Scope         { return c.scope }
func (c AIQueryContext) CanCompareOrgs() bool { return c.canCompareOrgs }
func (c AIQueryContext) UserID() string       { return c.userID }
func (c AIQueryContext) UserName() string     { return c.userName }
func (c AIQueryContext) ActiveOrgID() string  { return c.activeOrgID }

// AllowedOrgIDs returns a copy of the allowed set, or nil for global contexts.
func (c AIQueryContext) AllowedOrgIDs() []string {
	if c.allowedOrgIDs == nil {
		return nil
	}
	return append([]string(nil), c.allowedOrgIDs...)
}

// Allows reports whether orgID is in the allowed set. It ignores scope.
func (c AIQueryContext) Allows(orgID string) bool {
	for _, id := range c.allowedOrgIDs {
		if id == orgID {
			return true
		}
	}
	return false
}

// Validate checks the scope invariants:
// org scope has exactly one allowed org and no comparison rights,
// global scope has no allowed set and may compare.
func (c AIQueryContext) Validate() error {
	switch c.scope {
	case ScopeOrg:
		if len(c.allowedOrgIDs) != 1 || strings.TrimSpace(c.allowedOrgIDs[0]) == "" {
			return fmt.Errorf("%w: org scope requires exactly one allowed org", ErrInvalidContext)
		}
		if c.canCompareOrgs {
			return fmt.Errorf("%w: org scope cannot compare orgs", ErrInvalidContext)
		}
	case ScopeGlobal:
		if c.allowedOrgIDs != nil {
			return fmt.Errorf("%w: global scope must not restrict orgs", ErrInvalidContext)
		}
		if !c.canCompareOrgs {
			return fmt.Errorf("%w: global scope must be able to compare orgs", ErrInvalidContext)
		}
	default:
		return fmt.Errorf("%w: unknown scope %q", ErrInvalidContext, c.scope)
	}
	return nil
}

// ContextPayload is the wire shape produced by the identity/session service.
type ContextPayload struct {
	Scope          Scope    `json:"scope"`
	AllowedOrgIDs  []string `json:"allowedOrgIds"`
	CanCompareOrgs bool     `json:"canCompareOrgs"`
	UserID         string   `json:"userId"`
	UserName       string   `json:"userName"`
	ActiveOrgID    string   `json:"activeOrgId,omitempty"`
}

// ToContext converts the payload, rejecting anything that breaks the scope invariants.
func (p ContextPayload) ToContext() (AIQueryContext, error) {
	c := AIQueryContext{
		scope:          p.Scope,
		canCompareOrgs: p.CanCompareOrgs,
		userID:         p.UserID,
		userName:       p.UserName,
		activeOrgID:    p.ActiveOrgID,
	}
	if p.AllowedOrgIDs != nil {
		c.allowedOrgIDs = append([]string(nil), p.AllowedOrgIDs...)
	}
	if err := c.Validate(); err != nil {
		return AIQueryContext{}, err
	}
	return c, nil
}

// Payload is the inverse of ContextPayload.ToContext.
func (c AIQueryContext) Payload() ContextPayload {
	return ContextPayload{
		Scope:          c.scope,
		AllowedOrgIDs:  c.AllowedOrgIDs(),
		CanCompareOrgs: c.canCompareOrgs,
		UserID:         c.userID,
		UserName:       c.userName,
		ActiveOrgID:    c.activeOrgID,
	}
}

package core

import "strings"

// Actor is whoever initiates an operation. Roles are opaque strings owned by the host application.
type Actor struct {
	ID    string   `json:"id"`
	Roles []string `json:"roles"`
}

// HasAnyRole reports whether the actor holds at least one of roles.
func (a Actor) HasAnyRole(roles ...string) bool {
	for _, have := range a.Roles {
		for _, want := range roles {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

// TenantContext scopes every core operation to one tenant and names the acting user.
type TenantContext struct {
	TenantID string
	Actor    Actor
}

func (tc TenantContext) validate() error {
	if strings.TrimSpace(tc.TenantID) == "" {
		return ErrTenantRequired
	}
	return nil
}

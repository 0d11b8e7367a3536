// Package acl implements the coarse permission gate: a role table that maps
// role names to the capabilities they grant.
package acl

import (
	"context"
	"sort"

	"github.com/mesh-intelligence/tickets/pkg/types"
)

// Wildcard grants every capability.
const Wildcard = "*"

// Built-in role names.
const (
	RoleAdmin    = "admin"
	RoleUser     = "user"
	RoleObserver = "observer"
)

var _ types.PermissionGate = (*RoleGate)(nil)

// RoleGate grants a capability to an actor when any of the actor's roles
// lists it. Unknown roles grant nothing. RoleGate is immutable and safe for
// concurrent use.
type RoleGate struct {
	roles map[string]map[string]bool
}

// NewRoleGate builds a gate from role name to capability list.
func NewRoleGate(roles map[string][]string) *RoleGate {
	g := &RoleGate{roles: make(map[string]map[string]bool, len(roles))}
	for role, caps := range roles {
		set := make(map[string]bool, len(caps))
		for _, c := range caps {
			set[c] = true
		}
		g.roles[role] = set
	}
	return g
}

// DefaultRoles returns the role table used when configuration names none.
func DefaultRoles() map[string][]string {
	return map[string][]string{
		RoleAdmin: {Wildcard},
		RoleUser: {
			types.CapCreateTicket,
			types.CapModifyTicket,
			types.CapDeleteTicket,
			types.CapGetTickets,
			types.CapCreateTag,
			types.CapCreatePermission,
		},
		RoleObserver: {types.CapGetTickets},
	}
}

// May reports whether actor holds capability through one of its roles. An
// actor without a UUID is never allowed anything.
func (g *RoleGate) May(_ context.Context, actor types.Actor, capability string) (bool, error) {
	if actor.UUID == "" {
		return false, nil
	}
	for _, role := range actor.Roles {
		caps := g.roles[role]
		if caps[Wildcard] || caps[capability] {
			return true, nil
		}
	}
	return false, nil
}

// Capabilities returns the sorted capabilities granted to role.
func (g *RoleGate) Capabilities(role string) []string {
	caps := make([]string, 0, len(g.roles[role]))
	for c := range g.roles[role] {
		caps = append(caps, c)
	}
	sort.Strings(caps)
	return caps
}

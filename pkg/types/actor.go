package types

import "context"

// Capabilities checked by the lifecycle service.
const (
	CapCreateTicket     = "create_ticket"
	CapModifyTicket     = "modify_ticket"
	CapDeleteTicket     = "delete_ticket"
	CapGetTickets       = "get_tickets"
	CapCreateTag        = "create_tag"
	CapCreatePermission = "create_permission"
)

// Actor is the user on whose behalf an operation runs. Every lifecycle
// operation takes the actor explicitly.
type Actor struct {
	UUID  string   `json:"uuid" yaml:"uuid" mapstructure:"uuid"`
	Name  string   `json:"name" yaml:"name" mapstructure:"name"`
	Roles []string `json:"roles" yaml:"roles" mapstructure:"roles"`
}

// PermissionGate makes the coarse, resource-type-scoped authorization
// decision: may actor perform capability at all.
type PermissionGate interface {
	May(ctx context.Context, actor Actor, capability string) (bool, error)
}

// GateFunc adapts a function to PermissionGate.
type GateFunc func(ctx context.Context, actor Actor, capability string) (bool, error)

// May calls f.
func (f GateFunc) May(ctx context.Context, actor Actor, capability string) (bool, error) {
	return f(ctx, actor, capability)
}

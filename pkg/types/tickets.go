package types

import "context"

// Tickets is the ticket lifecycle service. Every method runs in a single
// transaction and either commits all of its effects or none of them.
// External identifiers are ticket UUIDs.
type Tickets interface {
	// Create inserts a new active ticket owned by actor.
	Create(ctx context.Context, actor Actor, req CreateRequest) (*Ticket, error)

	// Modify updates the name and/or comment of an active ticket.
	Modify(ctx context.Context, actor Actor, uuid string, req ModifyRequest) (*Ticket, error)

	// Delete moves an active ticket to the trash, or with ultimate set,
	// destroys it from whichever store holds it. Deleting a trashed ticket
	// without ultimate succeeds and changes nothing.
	Delete(ctx context.Context, actor Actor, uuid string, ultimate bool) error

	// Restore moves a trashed ticket back to the active set.
	Restore(ctx context.Context, actor Actor, uuid string) (*Ticket, error)

	// Copy creates an independent ticket seeded from an existing one.
	Copy(ctx context.Context, actor Actor, req CopyRequest) (*Ticket, error)

	// Get returns the ticket at loc visible to actor.
	Get(ctx context.Context, actor Actor, uuid string, loc Location) (*Ticket, error)

	// List returns the tickets visible to actor that match filter.
	List(ctx context.Context, actor Actor, filter ListFilter) ([]*Ticket, error)

	// Count returns the number of tickets List would return without paging.
	Count(ctx context.Context, actor Actor, filter ListFilter) (int, error)

	// AddTag attaches a tag to an active ticket.
	AddTag(ctx context.Context, actor Actor, uuid, name, value string) (*Tag, error)

	// Tags lists the tags bound to a ticket at loc.
	Tags(ctx context.Context, actor Actor, uuid string, loc Location) ([]*Tag, error)

	// Grant gives subject the capability on an active ticket owned by actor.
	Grant(ctx context.Context, actor Actor, uuid, capability, subject string) (*Permission, error)

	// Permissions lists the permissions bound to a ticket at loc.
	Permissions(ctx context.Context, actor Actor, uuid string, loc Location) ([]*Permission, error)
}

// CreateRequest holds the inputs of Tickets.Create. A nil Comment is
// stored as the empty string.
type CreateRequest struct {
	Name    string
	Comment *string
	Payload TicketPayload
}

// ModifyRequest holds the fields to change; nil fields are left untouched.
type ModifyRequest struct {
	Name    *string
	Comment *string
}

// CopyRequest holds the inputs of Tickets.Copy. A nil Name derives a unique
// name from the source; a nil Comment copies the source comment. From
// selects the store the source is resolved in; empty means active.
type CopyRequest struct {
	SourceUUID string
	Name       *string
	Comment    *string
	From       Location
}

// ListFilter narrows Tickets.List. An empty Location means active. Limit
// zero means no limit.
type ListFilter struct {
	Location Location
	Name     string
	Limit    int
	Offset   int
}

package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ResourceTypeTicket is the resource type recorded on tags and permissions
// that refer to tickets.
const ResourceTypeTicket = "ticket"

// Location names the store that currently holds a ticket.
type Location string

// Ticket locations. A ticket is in exactly one of them.
const (
	LocationActive Location = "active"
	LocationTrash  Location = "trash"
)

// Valid reports whether l is a known location.
func (l Location) Valid() bool {
	return l == LocationActive || l == LocationTrash
}

// Ticket status values carried in the payload.
const (
	StatusOpen        = "open"
	StatusFixed       = "fixed"
	StatusFixVerified = "fix_verified"
	StatusClosed      = "closed"
	StatusOrphaned    = "orphaned"
)

// Ticket is a remediation ticket. ID is assigned by whichever store holds
// the ticket and changes when the ticket moves between stores; UUID is
// stable across trash and restore.
type Ticket struct {
	ID         int64         `json:"id"`
	UUID       string        `json:"uuid"`
	Owner      string        `json:"owner"`
	Name       string        `json:"name"`
	Comment    string        `json:"comment"`
	Location   Location      `json:"location"`
	CreatedAt  time.Time     `json:"created_at"`
	ModifiedAt time.Time     `json:"modified_at"`
	Payload    TicketPayload `json:"payload"`
}

// TicketPayload holds the domain fields of a ticket. The lifecycle
// operations copy it verbatim and never inspect it beyond validation at
// creation.
type TicketPayload struct {
	Task             string     `json:"task,omitempty"`
	Report           string     `json:"report,omitempty"`
	Host             string     `json:"host,omitempty"`
	AffectedLocation string     `json:"affected_location,omitempty"`
	SolutionType     string     `json:"solution_type,omitempty"`
	AssignedTo       string     `json:"assigned_to,omitempty"`
	Status           string     `json:"status,omitempty" validate:"omitempty,oneof=open fixed fix_verified closed orphaned"`
	Severity         float64    `json:"severity" validate:"gte=0,lte=10"`
	SolvedComment    string     `json:"solved_comment,omitempty"`
	ConfirmedResult  string     `json:"confirmed_result,omitempty"`
	ClosedRationale  string     `json:"closed_rationale,omitempty"`
	OpenedAt         *time.Time `json:"opened_at,omitempty"`
	SolvedAt         *time.Time `json:"solved_at,omitempty"`
	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
	OrphanedAt       *time.Time `json:"orphaned_at,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the payload field constraints. It returns an error
// wrapping ErrInvalidPayload that names the first offending field.
func (p TicketPayload) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: %s fails %q", ErrInvalidPayload, fe.Field(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
}

// Package types defines the ticket entity, the lifecycle service interface,
// the collaborator interfaces it consumes (permission gate), configuration,
// and the sentinel errors shared by every backend.
//
// A ticket lives in exactly one of two locations: the active set or the
// trash set. Tickets move between them only through the operations on
// Tickets, each of which runs as one transaction.
package types

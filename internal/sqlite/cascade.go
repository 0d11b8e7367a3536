package sqlite

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/tickets/pkg/types"
)

// CascadeNotifier is told when a resource changes store or is destroyed so
// that it can keep its own references consistent. Every call receives the
// transaction performing the change; the notifier's writes commit or roll
// back with it.
type CascadeNotifier interface {
	// RewriteLocations re-points references from (oldID, oldLoc) to
	// (newID, newLoc).
	RewriteLocations(ctx context.Context, tx *sqlx.Tx, resourceType string,
		oldID int64, oldLoc types.Location, newID int64, newLoc types.Location) error

	// DiscardReferences is called when an active resource is destroyed
	// without passing through the trash.
	DiscardReferences(ctx context.Context, tx *sqlx.Tx, resourceType string, id int64, loc types.Location) error

	// RemoveReferences is called when a trashed resource is destroyed.
	RemoveReferences(ctx context.Context, tx *sqlx.Tx, resourceType string, id int64, loc types.Location) error
}

// cascades fans a notification out to every notifier in order, stopping at
// the first failure.
type cascades []CascadeNotifier

var _ CascadeNotifier = cascades(nil)

func (c cascades) RewriteLocations(ctx context.Context, tx *sqlx.Tx, resourceType string,
	oldID int64, oldLoc types.Location, newID int64, newLoc types.Location) error {
	for _, n := range c {
		if err := n.RewriteLocations(ctx, tx, resourceType, oldID, oldLoc, newID, newLoc); err != nil {
			return asInternal("rewriting references", err)
		}
	}
	return nil
}

func (c cascades) DiscardReferences(ctx context.Context, tx *sqlx.Tx, resourceType string, id int64, loc types.Location) error {
	for _, n := range c {
		if err := n.DiscardReferences(ctx, tx, resourceType, id, loc); err != nil {
			return asInternal("discarding references", err)
		}
	}
	return nil
}

func (c cascades) RemoveReferences(ctx context.Context, tx *sqlx.Tx, resourceType string, id int64, loc types.Location) error {
	for _, n := range c {
		if err := n.RemoveReferences(ctx, tx, resourceType, id, loc); err != nil {
			return asInternal("removing references", err)
		}
	}
	return nil
}

// asInternal marks err as an internal failure unless it already is one.
func asInternal(op string, err error) error {
	if errors.Is(err, types.ErrInternal) {
		return err
	}
	return internalf("%s: %w", op, err)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/tickets/pkg/types"
)

// Get returns the ticket at loc that actor may read. Active tickets are
// readable by their owner and by any actor holding a permission on them;
// trashed tickets only by their owner.
func (s *Service) Get(ctx context.Context, actor types.Actor, ticketID string, loc types.Location) (*types.Ticket, error) {
	var t *types.Ticket
	err := s.backend.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.require(ctx, actor, types.CapGetTickets); err != nil {
			return err
		}
		loc, err := normalizeLocation(loc)
		if err != nil {
			return err
		}
		id, err := resolveVisible(ctx, tx, actor, ticketID, loc)
		if err != nil {
			return err
		}
		t, err = getTicket(ctx, tx, loc, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List returns the tickets at filter.Location visible to actor in creation
// order.
func (s *Service) List(ctx context.Context, actor types.Actor, filter types.ListFilter) ([]*types.Ticket, error) {
	var out []*types.Ticket
	err := s.backend.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.require(ctx, actor, types.CapGetTickets); err != nil {
			return err
		}
		var err error
		if filter.Location, err = normalizeLocation(filter.Location); err != nil {
			return err
		}
		out, err = selectTickets(ctx, tx, actor, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of tickets List would return, ignoring Limit
// and Offset.
func (s *Service) Count(ctx context.Context, actor types.Actor, filter types.ListFilter) (int, error) {
	var n int
	err := s.backend.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.require(ctx, actor, types.CapGetTickets); err != nil {
			return err
		}
		var err error
		if filter.Location, err = normalizeLocation(filter.Location); err != nil {
			return err
		}
		n, err = countTickets(ctx, tx, actor, filter)
		return err
	})
	return n, err
}

// UUIDOf returns the UUID of the active ticket with internal id. It is a
// lookup for callers that already hold an internal id from a trusted source,
// such as a cascade consumer; it applies no actor checks and must not be
// exposed to untrusted input.
func (s *Service) UUIDOf(ctx context.Context, id int64) (string, error) {
	var out string
	err := s.backend.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &out, "SELECT uuid FROM tickets WHERE id = ?", id)
		if errors.Is(err, sql.ErrNoRows) {
			return types.ErrNotFound
		}
		if err != nil {
			return internalf("getting ticket uuid: %w", err)
		}
		return nil
	})
	return out, err
}

// InUse reports whether the in-use predicate holds for the ticket at loc.
func (s *Service) InUse(ctx context.Context, actor types.Actor, ticketID string, loc types.Location) (bool, error) {
	var used bool
	err := s.backend.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.require(ctx, actor, types.CapGetTickets); err != nil {
			return err
		}
		loc, err := normalizeLocation(loc)
		if err != nil {
			return err
		}
		id, err := resolveVisible(ctx, tx, actor, ticketID, loc)
		if err != nil {
			return err
		}
		t, err := getTicket(ctx, tx, loc, id)
		if err != nil {
			return err
		}
		if used, err = s.inUse(ctx, tx, t); err != nil {
			return internalf("checking ticket use: %w", err)
		}
		return nil
	})
	return used, err
}

// Writable reports whether the ticket at loc may be changed. Active tickets
// always are; trashed tickets are writable while nothing uses them.
func (s *Service) Writable(ctx context.Context, actor types.Actor, ticketID string, loc types.Location) (bool, error) {
	used, err := s.InUse(ctx, actor, ticketID, loc)
	if err != nil {
		return false, err
	}
	if loc == types.LocationTrash {
		return !used, nil
	}
	return true, nil
}

// AddTag attaches a name/value tag to an active ticket actor may modify.
func (s *Service) AddTag(ctx context.Context, actor types.Actor, ticketID, name, value string) (*types.Tag, error) {
	var tag *types.Tag
	err := s.backend.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.require(ctx, actor, types.CapCreateTag); err != nil {
			return err
		}
		if name == "" {
			return types.ErrEmptyName
		}
		id, err := resolveWithCapability(ctx, tx, actor, ticketID, types.CapModifyTicket)
		if err != nil {
			return err
		}
		tagUUID, err := s.generateUUID()
		if err != nil {
			return err
		}
		tag = &types.Tag{
			UUID:             tagUUID,
			Owner:            actor.UUID,
			Name:             name,
			Value:            value,
			ResourceType:     types.ResourceTypeTicket,
			Resource:         id,
			ResourceUUID:     ticketID,
			ResourceLocation: types.LocationActive,
			CreatedAt:        s.timestamp(),
		}
		tag.ID, err = s.tags.insert(ctx, tx, tag)
		return err
	})
	s.logOutcome("tag", actor, ticketID, err)
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// Tags lists the tags bound to the ticket at loc.
func (s *Service) Tags(ctx context.Context, actor types.Actor, ticketID string, loc types.Location) ([]*types.Tag, error) {
	var tags []*types.Tag
	err := s.backend.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.require(ctx, actor, types.CapGetTickets); err != nil {
			return err
		}
		loc, err := normalizeLocation(loc)
		if err != nil {
			return err
		}
		id, err := resolveVisible(ctx, tx, actor, ticketID, loc)
		if err != nil {
			return err
		}
		tags, err = s.tags.list(ctx, tx, types.ResourceTypeTicket, id, loc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// Grant gives subject the capability on an active ticket. Only the owner
// may grant; for anyone else the ticket does not exist.
func (s *Service) Grant(ctx context.Context, actor types.Actor, ticketID, capability, subject string) (*types.Permission, error) {
	var perm *types.Permission
	err := s.backend.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.require(ctx, actor, types.CapCreatePermission); err != nil {
			return err
		}
		if !grantable[capability] {
			return fmt.Errorf("%w: capability %q", types.ErrInvalidGrant, capability)
		}
		if subject == "" {
			return fmt.Errorf("%w: subject required", types.ErrInvalidGrant)
		}
		if ticketID == "" {
			return types.ErrInvalidID
		}
		var id int64
		err := tx.GetContext(ctx, &id,
			"SELECT id FROM tickets WHERE uuid = ? AND owner = ?", ticketID, actor.UUID)
		if errors.Is(err, sql.ErrNoRows) {
			return types.ErrNotFound
		}
		if err != nil {
			return internalf("resolving ticket %s: %w", ticketID, err)
		}
		permUUID, err := s.generateUUID()
		if err != nil {
			return err
		}
		perm = &types.Permission{
			UUID:             permUUID,
			Owner:            actor.UUID,
			Name:             capability,
			Subject:          subject,
			ResourceType:     types.ResourceTypeTicket,
			Resource:         id,
			ResourceUUID:     ticketID,
			ResourceLocation: types.LocationActive,
			CreatedAt:        s.timestamp(),
		}
		perm.ID, err = s.perms.insert(ctx, tx, perm)
		return err
	})
	s.logOutcome("grant", actor, ticketID, err)
	if err != nil {
		return nil, err
	}
	return perm, nil
}

// Permissions lists the permissions bound to the ticket at loc.
func (s *Service) Permissions(ctx context.Context, actor types.Actor, ticketID string, loc types.Location) ([]*types.Permission, error) {
	var perms []*types.Permission
	err := s.backend.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.require(ctx, actor, types.CapGetTickets); err != nil {
			return err
		}
		loc, err := normalizeLocation(loc)
		if err != nil {
			return err
		}
		id, err := resolveVisible(ctx, tx, actor, ticketID, loc)
		if err != nil {
			return err
		}
		perms, err = s.perms.list(ctx, tx, types.ResourceTypeTicket, id, loc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return perms, nil
}

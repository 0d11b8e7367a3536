package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/tickets/pkg/types"
)

// Create inserts a new active ticket owned by actor. The name must be
// non-empty and unused among actor's active tickets.
func (s *Service) Create(ctx context.Context, actor types.Actor, req types.CreateRequest) (*types.Ticket, error) {
	var created *types.Ticket
	err := s.backend.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.require(ctx, actor, types.CapCreateTicket); err != nil {
			return err
		}
		if req.Name == "" {
			return types.ErrEmptyName
		}
		if err := req.Payload.Validate(); err != nil {
			return err
		}
		exists, err := nameExists(ctx, tx, actor.UUID, req.Name, 0)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %q", types.ErrNameConflict, req.Name)
		}

		id, err := s.generateUUID()
		if err != nil {
			return err
		}
		now := s.timestamp()
		t := &types.Ticket{
			UUID:       id,
			Owner:      actor.UUID,
			Name:       req.Name,
			Location:   types.LocationActive,
			CreatedAt:  now,
			ModifiedAt: now,
			Payload:    req.Payload,
		}
		if req.Comment != nil {
			t.Comment = *req.Comment
		}
		rowID, err := insertTicket(ctx, tx, types.LocationActive, t)
		if err != nil {
			return err
		}
		created, err = getTicket(ctx, tx, types.LocationActive, rowID)
		return err
	})
	ref := ""
	if created != nil {
		ref = created.UUID
	}
	s.logOutcome("create", actor, ref, err)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Modify changes the name and/or comment of an active ticket actor may
// modify. Both changes apply together or not at all.
func (s *Service) Modify(ctx context.Context, actor types.Actor, ticketID string, req types.ModifyRequest) (*types.Ticket, error) {
	var modified *types.Ticket
	err := s.backend.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.require(ctx, actor, types.CapModifyTicket); err != nil {
			return err
		}
		id, err := resolveWithCapability(ctx, tx, actor, ticketID, types.CapModifyTicket)
		if err != nil {
			return err
		}
		t, err := getTicket(ctx, tx, types.LocationActive, id)
		if err != nil {
			return err
		}
		now := formatTime(s.timestamp())

		if req.Name != nil {
			if *req.Name == "" {
				return types.ErrEmptyName
			}
			exists, err := nameExists(ctx, tx, t.Owner, *req.Name, id)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: %q", types.ErrNameConflict, *req.Name)
			}
			if err := updateTicketField(ctx, tx, id, "name", *req.Name, now); err != nil {
				return err
			}
		}
		if req.Comment != nil {
			if err := updateTicketField(ctx, tx, id, "comment", *req.Comment, now); err != nil {
				return err
			}
		}

		modified, err = getTicket(ctx, tx, types.LocationActive, id)
		return err
	})
	s.logOutcome("modify", actor, ticketID, err)
	if err != nil {
		return nil, err
	}
	return modified, nil
}

// Delete moves an active ticket to the trash, or with ultimate set destroys
// it from whichever store holds it. A trashed ticket deleted without
// ultimate is left as it is.
func (s *Service) Delete(ctx context.Context, actor types.Actor, ticketID string, ultimate bool) error {
	err := s.backend.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.require(ctx, actor, types.CapDeleteTicket); err != nil {
			return err
		}

		id, err := resolveWithCapability(ctx, tx, actor, ticketID, types.CapDeleteTicket)
		if errors.Is(err, types.ErrNotFound) {
			return s.deleteTrashed(ctx, tx, actor, ticketID, ultimate)
		}
		if err != nil {
			return err
		}

		if err := s.checkInUse(ctx, tx, types.LocationActive, id); err != nil {
			return err
		}
		if ultimate {
			if err := s.cascade.DiscardReferences(ctx, tx, types.ResourceTypeTicket, id, types.LocationActive); err != nil {
				return err
			}
		} else {
			trashID, err := moveTicket(ctx, tx, types.LocationActive, types.LocationTrash, id)
			if err != nil {
				return err
			}
			if err := s.cascade.RewriteLocations(ctx, tx, types.ResourceTypeTicket,
				id, types.LocationActive, trashID, types.LocationTrash); err != nil {
				return err
			}
		}
		return eraseTicket(ctx, tx, types.LocationActive, id)
	})
	op := "trash"
	if ultimate {
		op = "delete"
	}
	s.logOutcome(op, actor, ticketID, err)
	return err
}

// deleteTrashed handles Delete for a ticket that is not in the active set.
func (s *Service) deleteTrashed(ctx context.Context, tx *sqlx.Tx, actor types.Actor, ticketID string, ultimate bool) error {
	id, err := resolveInTrash(ctx, tx, actor, ticketID)
	if err != nil {
		return err
	}
	if !ultimate {
		return nil
	}
	if err := s.checkInUse(ctx, tx, types.LocationTrash, id); err != nil {
		return err
	}
	if err := s.cascade.RemoveReferences(ctx, tx, types.ResourceTypeTicket, id, types.LocationTrash); err != nil {
		return err
	}
	return eraseTicket(ctx, tx, types.LocationTrash, id)
}

// Restore moves a trashed ticket owned by actor back to the active set. It
// fails with ErrRestoreConflict when actor already has an active ticket of
// the same name.
func (s *Service) Restore(ctx context.Context, actor types.Actor, ticketID string) (*types.Ticket, error) {
	var restored *types.Ticket
	err := s.backend.withTx(ctx, func(tx *sqlx.Tx) error {
		trashID, err := resolveInTrash(ctx, tx, actor, ticketID)
		if err != nil {
			return err
		}
		t, err := getTicket(ctx, tx, types.LocationTrash, trashID)
		if err != nil {
			return err
		}
		exists, err := nameExists(ctx, tx, actor.UUID, t.Name, 0)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %q", types.ErrRestoreConflict, t.Name)
		}

		id, err := moveTicket(ctx, tx, types.LocationTrash, types.LocationActive, trashID)
		if err != nil {
			return err
		}
		if err := s.cascade.RewriteLocations(ctx, tx, types.ResourceTypeTicket,
			trashID, types.LocationTrash, id, types.LocationActive); err != nil {
			return err
		}
		if err := eraseTicket(ctx, tx, types.LocationTrash, trashID); err != nil {
			return err
		}
		restored, err = getTicket(ctx, tx, types.LocationActive, id)
		return err
	})
	s.logOutcome("restore", actor, ticketID, err)
	if err != nil {
		return nil, err
	}
	return restored, nil
}

// Copy creates a new active ticket owned by actor from an existing one.
// The payload is copied verbatim; tags and permissions are not copied.
func (s *Service) Copy(ctx context.Context, actor types.Actor, req types.CopyRequest) (*types.Ticket, error) {
	var copied *types.Ticket
	err := s.backend.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.require(ctx, actor, types.CapCreateTicket); err != nil {
			return err
		}
		from, err := normalizeLocation(req.From)
		if err != nil {
			return err
		}
		srcID, err := resolveVisible(ctx, tx, actor, req.SourceUUID, from)
		if err != nil {
			return err
		}
		src, err := getTicket(ctx, tx, from, srcID)
		if err != nil {
			return err
		}

		var name string
		if req.Name != nil {
			name = *req.Name
			if name == "" {
				return types.ErrEmptyName
			}
			exists, err := nameExists(ctx, tx, actor.UUID, name, 0)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: %q", types.ErrNameConflict, name)
			}
		} else if name, err = copyName(ctx, tx, actor.UUID, src.Name); err != nil {
			return err
		}

		id, err := s.generateUUID()
		if err != nil {
			return err
		}
		now := s.timestamp()
		t := &types.Ticket{
			UUID:       id,
			Owner:      actor.UUID,
			Name:       name,
			Comment:    src.Comment,
			Location:   types.LocationActive,
			CreatedAt:  now,
			ModifiedAt: now,
			Payload:    src.Payload,
		}
		if req.Comment != nil {
			t.Comment = *req.Comment
		}
		rowID, err := insertTicket(ctx, tx, types.LocationActive, t)
		if err != nil {
			return err
		}
		copied, err = getTicket(ctx, tx, types.LocationActive, rowID)
		return err
	})
	s.logOutcome("copy", actor, req.SourceUUID, err)
	if err != nil {
		return nil, err
	}
	return copied, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/tickets/pkg/types"
)

// ticketTable returns the table that holds tickets at loc.
func ticketTable(loc types.Location) (string, error) {
	switch loc {
	case types.LocationActive:
		return tableTickets, nil
	case types.LocationTrash:
		return tableTicketsTrash, nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrInvalidLocation, loc)
	}
}

// normalizeLocation maps the empty location to active and rejects unknown
// values.
func normalizeLocation(loc types.Location) (types.Location, error) {
	if loc == "" {
		return types.LocationActive, nil
	}
	if !loc.Valid() {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidLocation, loc)
	}
	return loc, nil
}

// insertTicket stores t at loc and returns the id the store assigned.
func insertTicket(ctx context.Context, tx *sqlx.Tx, loc types.Location, t *types.Ticket) (int64, error) {
	table, err := ticketTable(loc)
	if err != nil {
		return 0, err
	}
	cols := strings.Fields(strings.ReplaceAll(ticketColumns, ",", " "))
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (:%s)",
		table, strings.Join(cols, ", "), strings.Join(cols, ", :"))

	res, err := tx.NamedExecContext(ctx, query, newTicketRow(t))
	if err != nil {
		return 0, internalf("inserting ticket: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, internalf("reading ticket id: %w", err)
	}
	return id, nil
}

// getTicket loads the ticket with internal id from loc.
func getTicket(ctx context.Context, tx *sqlx.Tx, loc types.Location, id int64) (*types.Ticket, error) {
	table, err := ticketTable(loc)
	if err != nil {
		return nil, err
	}
	var row ticketRow
	err = tx.GetContext(ctx, &row, fmt.Sprintf("SELECT id, %s FROM %s WHERE id = ?", ticketColumns, table), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, internalf("getting ticket %d: %w", id, err)
	}
	t, err := row.hydrate(loc)
	if err != nil {
		return nil, internalf("%w", err)
	}
	return t, nil
}

// resolveWithCapability finds the active ticket uuid that actor may exercise
// capability on: actor owns it or holds a permission naming the capability.
// Any permission on the ticket allows reading it. A ticket the actor may not
// use is reported exactly like a missing one.
func resolveWithCapability(ctx context.Context, tx *sqlx.Tx, actor types.Actor, uuid, capability string) (int64, error) {
	if uuid == "" {
		return 0, types.ErrInvalidID
	}
	query := `SELECT t.id FROM tickets t
		WHERE t.uuid = ?
		AND (t.owner = ? OR EXISTS (
			SELECT 1 FROM permissions p
			WHERE p.resource_type = ? AND p.resource = t.id AND p.resource_location = ?
			AND p.subject = ?`
	args := []any{uuid, actor.UUID, types.ResourceTypeTicket, string(types.LocationActive), actor.UUID}
	if capability != types.CapGetTickets {
		query += " AND p.name = ?"
		args = append(args, capability)
	}
	query += "))"

	var id int64
	err := tx.GetContext(ctx, &id, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, types.ErrNotFound
	}
	if err != nil {
		return 0, internalf("resolving ticket %s: %w", uuid, err)
	}
	return id, nil
}

// resolveInTrash finds the trashed ticket uuid owned by actor.
func resolveInTrash(ctx context.Context, tx *sqlx.Tx, actor types.Actor, uuid string) (int64, error) {
	if uuid == "" {
		return 0, types.ErrInvalidID
	}
	var id int64
	err := tx.GetContext(ctx, &id,
		"SELECT id FROM tickets_trash WHERE uuid = ? AND owner = ?", uuid, actor.UUID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, types.ErrNotFound
	}
	if err != nil {
		return 0, internalf("resolving trash ticket %s: %w", uuid, err)
	}
	return id, nil
}

// resolveVisible resolves uuid at loc for reading.
func resolveVisible(ctx context.Context, tx *sqlx.Tx, actor types.Actor, uuid string, loc types.Location) (int64, error) {
	if loc == types.LocationTrash {
		return resolveInTrash(ctx, tx, actor, uuid)
	}
	return resolveWithCapability(ctx, tx, actor, uuid, types.CapGetTickets)
}

// nameExists reports whether an active ticket owned by owner is named name,
// ignoring the ticket excludingID. Trashed tickets never count.
func nameExists(ctx context.Context, tx *sqlx.Tx, owner, name string, excludingID int64) (bool, error) {
	var n int
	err := tx.GetContext(ctx, &n,
		"SELECT count(*) FROM tickets WHERE owner = ? AND name = ? AND id != ?",
		owner, name, excludingID)
	if err != nil {
		return false, internalf("checking ticket name: %w", err)
	}
	return n > 0, nil
}

// copyName derives a name for a copy of a ticket named base that is unique
// among owner's active tickets: "base Clone", then "base Clone 2", and so on.
func copyName(ctx context.Context, tx *sqlx.Tx, owner, base string) (string, error) {
	candidate := base + " Clone"
	for n := 2; ; n++ {
		exists, err := nameExists(ctx, tx, owner, candidate, 0)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s Clone %d", base, n)
	}
}

// moveTicket copies the full row id from one store into the other and
// returns the id the destination assigned. The source row is left in place;
// the caller erases it in the same transaction.
func moveTicket(ctx context.Context, tx *sqlx.Tx, from, to types.Location, id int64) (int64, error) {
	src, err := ticketTable(from)
	if err != nil {
		return 0, err
	}
	dst, err := ticketTable(to)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s WHERE id = ?",
			dst, ticketColumns, ticketColumns, src),
		id)
	if err != nil {
		return 0, internalf("copying ticket %d to %s: %w", id, to, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, internalf("copying ticket %d to %s: %w", id, to, err)
	} else if n != 1 {
		return 0, internalf("copying ticket %d to %s: %d rows copied", id, to, n)
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return 0, internalf("reading %s ticket id: %w", to, err)
	}
	return newID, nil
}

// eraseTicket deletes the row id from loc.
func eraseTicket(ctx context.Context, tx *sqlx.Tx, loc types.Location, id int64) error {
	table, err := ticketTable(loc)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id)
	if err != nil {
		return internalf("erasing ticket %d from %s: %w", id, loc, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return internalf("erasing ticket %d from %s: %w", id, loc, err)
	} else if n != 1 {
		return internalf("erasing ticket %d from %s: %d rows erased", id, loc, n)
	}
	return nil
}

// updateTicketField sets one text column and the modification time of an
// active ticket.
func updateTicketField(ctx context.Context, tx *sqlx.Tx, id int64, column, value, modified string) error {
	_, err := tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE tickets SET %s = ?, modification_time = ? WHERE id = ?", column),
		value, modified, id)
	if err != nil {
		return internalf("updating ticket %s: %w", column, err)
	}
	return nil
}

// selectTickets loads the tickets at loc visible to actor, optionally
// filtered by name, in creation order.
func selectTickets(ctx context.Context, tx *sqlx.Tx, actor types.Actor, filter types.ListFilter) ([]*types.Ticket, error) {
	where, args, err := visibleWhere(actor, filter)
	if err != nil {
		return nil, err
	}
	table, _ := ticketTable(filter.Location)
	query := fmt.Sprintf("SELECT id, %s FROM %s t WHERE %s ORDER BY t.creation_time, t.id",
		ticketColumns, table, where)
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	} else if filter.Offset > 0 {
		query += fmt.Sprintf(" LIMIT -1 OFFSET %d", filter.Offset)
	}

	var rows []ticketRow
	if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, internalf("listing tickets: %w", err)
	}
	out := make([]*types.Ticket, 0, len(rows))
	for _, r := range rows {
		t, err := r.hydrate(filter.Location)
		if err != nil {
			return nil, internalf("%w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

// countTickets counts the tickets selectTickets would return without paging.
func countTickets(ctx context.Context, tx *sqlx.Tx, actor types.Actor, filter types.ListFilter) (int, error) {
	where, args, err := visibleWhere(actor, filter)
	if err != nil {
		return 0, err
	}
	table, _ := ticketTable(filter.Location)
	var n int
	if err := tx.GetContext(ctx, &n, fmt.Sprintf("SELECT count(*) FROM %s t WHERE %s", table, where), args...); err != nil {
		return 0, internalf("counting tickets: %w", err)
	}
	return n, nil
}

// visibleWhere builds the predicate for the tickets actor may read at
// filter.Location. Trashed tickets are visible to their owner only.
func visibleWhere(actor types.Actor, filter types.ListFilter) (string, []any, error) {
	if !filter.Location.Valid() {
		return "", nil, fmt.Errorf("%w: %q", types.ErrInvalidLocation, filter.Location)
	}
	var where string
	var args []any
	if filter.Location == types.LocationTrash {
		where = "t.owner = ?"
		args = append(args, actor.UUID)
	} else {
		where = `(t.owner = ? OR EXISTS (
			SELECT 1 FROM permissions p
			WHERE p.resource_type = ? AND p.resource = t.id AND p.resource_location = ?
			AND p.subject = ?))`
		args = append(args, actor.UUID, types.ResourceTypeTicket, string(types.LocationActive), actor.UUID)
	}
	if filter.Name != "" {
		where += " AND t.name = ?"
		args = append(args, filter.Name)
	}
	return where, args, nil
}

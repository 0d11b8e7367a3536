package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/tickets/pkg/types"
)

// permissionsTable stores per-ticket grants. Grants follow their ticket
// into and out of the trash. Destroying an active ticket orphans its grants
// (they are kept but refer to nothing); destroying a trashed ticket deletes
// them.
type permissionsTable struct{}

var _ CascadeNotifier = permissionsTable{}

// grantable lists the capabilities that may be granted on a single ticket.
var grantable = map[string]bool{
	types.CapGetTickets:   true,
	types.CapModifyTicket: true,
	types.CapDeleteTicket: true,
}

func (permissionsTable) insert(ctx context.Context, tx *sqlx.Tx, p *types.Permission) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO permissions
		(uuid, owner, name, subject, resource_type, resource, resource_uuid, resource_location, creation_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UUID, p.Owner, p.Name, p.Subject, p.ResourceType, p.Resource,
		p.ResourceUUID, string(p.ResourceLocation), formatTime(p.CreatedAt))
	if err != nil {
		return 0, internalf("inserting permission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, internalf("reading permission id: %w", err)
	}
	return id, nil
}

func (permissionsTable) list(ctx context.Context, tx *sqlx.Tx, resourceType string, id int64, loc types.Location) ([]*types.Permission, error) {
	var rows []referenceRow
	err := tx.SelectContext(ctx, &rows, `SELECT id, uuid, owner, name, subject, resource_type,
		resource, resource_uuid, resource_location, creation_time
		FROM permissions WHERE resource_type = ? AND resource = ? AND resource_location = ?
		ORDER BY id`, resourceType, id, string(loc))
	if err != nil {
		return nil, internalf("listing permissions: %w", err)
	}
	perms := make([]*types.Permission, 0, len(rows))
	for _, r := range rows {
		p, err := r.permission()
		if err != nil {
			return nil, internalf("%w", err)
		}
		perms = append(perms, p)
	}
	return perms, nil
}

func (permissionsTable) RewriteLocations(ctx context.Context, tx *sqlx.Tx, resourceType string,
	oldID int64, oldLoc types.Location, newID int64, newLoc types.Location) error {
	_, err := tx.ExecContext(ctx, `UPDATE permissions SET resource = ?, resource_location = ?
		WHERE resource_type = ? AND resource = ? AND resource_location = ?`,
		newID, string(newLoc), resourceType, oldID, string(oldLoc))
	return err
}

func (permissionsTable) DiscardReferences(ctx context.Context, tx *sqlx.Tx, resourceType string, id int64, loc types.Location) error {
	_, err := tx.ExecContext(ctx, `UPDATE permissions SET resource = ?, resource_location = ?
		WHERE resource_type = ? AND resource = ? AND resource_location = ?`,
		types.OrphanResource, string(types.LocationActive), resourceType, id, string(loc))
	return err
}

func (permissionsTable) RemoveReferences(ctx context.Context, tx *sqlx.Tx, resourceType string, id int64, loc types.Location) error {
	_, err := tx.ExecContext(ctx,
		"DELETE FROM permissions WHERE resource_type = ? AND resource = ? AND resource_location = ?",
		resourceType, id, string(loc))
	return err
}

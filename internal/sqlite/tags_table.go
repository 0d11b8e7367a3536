package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/tickets/pkg/types"
)

// tagsTable stores tags and keeps them pointing at their resource as it
// moves between stores. A destroyed resource takes its tags with it.
type tagsTable struct{}

var _ CascadeNotifier = tagsTable{}

func (tagsTable) insert(ctx context.Context, tx *sqlx.Tx, tag *types.Tag) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO tags
		(uuid, owner, name, value, resource_type, resource, resource_uuid, resource_location, creation_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tag.UUID, tag.Owner, tag.Name, tag.Value, tag.ResourceType, tag.Resource,
		tag.ResourceUUID, string(tag.ResourceLocation), formatTime(tag.CreatedAt))
	if err != nil {
		return 0, internalf("inserting tag: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, internalf("reading tag id: %w", err)
	}
	return id, nil
}

func (tagsTable) list(ctx context.Context, tx *sqlx.Tx, resourceType string, id int64, loc types.Location) ([]*types.Tag, error) {
	var rows []referenceRow
	err := tx.SelectContext(ctx, &rows, `SELECT id, uuid, owner, name, value, resource_type,
		resource, resource_uuid, resource_location, creation_time
		FROM tags WHERE resource_type = ? AND resource = ? AND resource_location = ?
		ORDER BY id`, resourceType, id, string(loc))
	if err != nil {
		return nil, internalf("listing tags: %w", err)
	}
	tags := make([]*types.Tag, 0, len(rows))
	for _, r := range rows {
		tag, err := r.tag()
		if err != nil {
			return nil, internalf("%w", err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func (tagsTable) RewriteLocations(ctx context.Context, tx *sqlx.Tx, resourceType string,
	oldID int64, oldLoc types.Location, newID int64, newLoc types.Location) error {
	_, err := tx.ExecContext(ctx, `UPDATE tags SET resource = ?, resource_location = ?
		WHERE resource_type = ? AND resource = ? AND resource_location = ?`,
		newID, string(newLoc), resourceType, oldID, string(oldLoc))
	return err
}

func (t tagsTable) DiscardReferences(ctx context.Context, tx *sqlx.Tx, resourceType string, id int64, loc types.Location) error {
	return t.remove(ctx, tx, resourceType, id, loc)
}

func (t tagsTable) RemoveReferences(ctx context.Context, tx *sqlx.Tx, resourceType string, id int64, loc types.Location) error {
	return t.remove(ctx, tx, resourceType, id, loc)
}

func (tagsTable) remove(ctx context.Context, tx *sqlx.Tx, resourceType string, id int64, loc types.Location) error {
	_, err := tx.ExecContext(ctx,
		"DELETE FROM tags WHERE resource_type = ? AND resource = ? AND resource_location = ?",
		resourceType, id, string(loc))
	return err
}

// Tests for the read side and for tags and grants.
package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tickets/internal/acl"
	"github.com/mesh-intelligence/tickets/pkg/types"
)

func names(tickets []*types.Ticket) []string {
	out := make([]string, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.Name)
	}
	return out
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	s, _, _ := setupService(t)

	tk := mustCreate(t, s, alice, "mine")

	got, err := s.Get(ctx, alice, tk.UUID, "")
	require.NoError(t, err)
	assert.Equal(t, types.LocationActive, got.Location)

	_, err = s.Get(ctx, alice, tk.UUID, types.LocationTrash)
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = s.Get(ctx, bob, tk.UUID, types.LocationActive)
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = s.Get(ctx, alice, tk.UUID, "attic")
	assert.ErrorIs(t, err, types.ErrInvalidLocation)

	_, err = s.Get(ctx, mallory, tk.UUID, types.LocationActive)
	assert.ErrorIs(t, err, types.ErrPermissionDenied)

	_, err = s.Grant(ctx, alice, tk.UUID, types.CapDeleteTicket, carol.UUID)
	require.NoError(t, err)
	got, err = s.Get(ctx, carol, tk.UUID, types.LocationActive)
	require.NoError(t, err, "any grant allows reading")
	assert.Equal(t, "mine", got.Name)
}

func TestListAndCount(t *testing.T) {
	ctx := context.Background()
	s, _, clock := setupService(t)

	var ids []string
	for _, n := range []string{"a", "b", "c", "d"} {
		ids = append(ids, mustCreate(t, s, alice, n).UUID)
		clock.Advance(time.Second)
	}
	mustCreate(t, s, bob, "bobs")
	require.NoError(t, s.Delete(ctx, alice, ids[1], false))

	tests := []struct {
		name   string
		actor  types.Actor
		filter types.ListFilter
		want   []string
		count  int
	}{
		{"active in creation order", alice, types.ListFilter{}, []string{"a", "c", "d"}, 3},
		{"trash", alice, types.ListFilter{Location: types.LocationTrash}, []string{"b"}, 1},
		{"by name", alice, types.ListFilter{Name: "c"}, []string{"c"}, 1},
		{"limit", alice, types.ListFilter{Limit: 2}, []string{"a", "c"}, 3},
		{"limit and offset", alice, types.ListFilter{Limit: 1, Offset: 1}, []string{"c"}, 3},
		{"offset only", alice, types.ListFilter{Offset: 2}, []string{"d"}, 3},
		{"other owner sees own tickets only", bob, types.ListFilter{}, []string{"bobs"}, 1},
		{"other owner has empty trash", bob, types.ListFilter{Location: types.LocationTrash}, []string{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.actor, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))

			n, err := s.Count(ctx, tt.actor, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.count, n)
		})
	}

	t.Run("grant makes a ticket visible to the subject", func(t *testing.T) {
		_, err := s.Grant(ctx, alice, ids[0], types.CapGetTickets, bob.UUID)
		require.NoError(t, err)
		got, err := s.List(ctx, bob, types.ListFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "bobs"}, names(got))
	})

	t.Run("unknown location is invalid", func(t *testing.T) {
		_, err := s.List(ctx, alice, types.ListFilter{Location: "attic"})
		assert.ErrorIs(t, err, types.ErrInvalidLocation)
		_, err = s.Count(ctx, alice, types.ListFilter{Location: "attic"})
		assert.ErrorIs(t, err, types.ErrInvalidLocation)
	})

	t.Run("actor without get_tickets is denied", func(t *testing.T) {
		_, err := s.List(ctx, mallory, types.ListFilter{})
		assert.ErrorIs(t, err, types.ErrPermissionDenied)
		_, err = s.Count(ctx, mallory, types.ListFilter{})
		assert.ErrorIs(t, err, types.ErrPermissionDenied)
	})
}

func TestUUIDOf(t *testing.T) {
	ctx := context.Background()
	s, _, _ := setupService(t)

	tk := mustCreate(t, s, alice, "x")
	got, err := s.UUIDOf(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, tk.UUID, got)

	require.NoError(t, s.Delete(ctx, alice, tk.UUID, false))
	_, err = s.UUIDOf(ctx, tk.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestInUseAndWritable(t *testing.T) {
	ctx := context.Background()
	pinned := map[string]bool{}
	s, _, _ := setupService(t, WithInUse(func(_ context.Context, _ sqlx.QueryerContext, tk *types.Ticket) (bool, error) {
		return pinned[tk.UUID], nil
	}))

	used := mustCreate(t, s, alice, "used")
	free := mustCreate(t, s, alice, "free")
	pinned[used.UUID] = true

	inUse, err := s.InUse(ctx, alice, used.UUID, types.LocationActive)
	require.NoError(t, err)
	assert.True(t, inUse)
	inUse, err = s.InUse(ctx, alice, free.UUID, types.LocationActive)
	require.NoError(t, err)
	assert.False(t, inUse)

	w, err := s.Writable(ctx, alice, used.UUID, types.LocationActive)
	require.NoError(t, err)
	assert.True(t, w, "active tickets are always writable")

	require.NoError(t, s.Delete(ctx, alice, free.UUID, false))
	w, err = s.Writable(ctx, alice, free.UUID, types.LocationTrash)
	require.NoError(t, err)
	assert.True(t, w)

	pinned[free.UUID] = true
	w, err = s.Writable(ctx, alice, free.UUID, types.LocationTrash)
	require.NoError(t, err)
	assert.False(t, w)

	_, err = s.InUse(ctx, bob, used.UUID, types.LocationActive)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestReadsRequireGetTickets(t *testing.T) {
	ctx := context.Background()
	s, b, _ := setupService(t)
	tk := mustCreate(t, s, alice, "x")

	writer := acl.NewRoleGate(map[string][]string{
		acl.RoleUser: {types.CapCreateTicket, types.CapModifyTicket, types.CapCreateTag},
	})
	ws := NewService(b, writer)

	_, err := ws.AddTag(ctx, alice, tk.UUID, "env", "prod")
	require.NoError(t, err)

	_, err = ws.Get(ctx, alice, tk.UUID, types.LocationActive)
	assert.ErrorIs(t, err, types.ErrPermissionDenied)
	_, err = ws.InUse(ctx, alice, tk.UUID, types.LocationActive)
	assert.ErrorIs(t, err, types.ErrPermissionDenied)
	_, err = ws.Writable(ctx, alice, tk.UUID, types.LocationActive)
	assert.ErrorIs(t, err, types.ErrPermissionDenied)
	tags, err := ws.Tags(ctx, alice, tk.UUID, types.LocationActive)
	assert.ErrorIs(t, err, types.ErrPermissionDenied)
	assert.Nil(t, tags)
	perms, err := ws.Permissions(ctx, alice, tk.UUID, types.LocationActive)
	assert.ErrorIs(t, err, types.ErrPermissionDenied)
	assert.Nil(t, perms)

	got, err := s.Tags(ctx, alice, tk.UUID, types.LocationActive)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAddTag(t *testing.T) {
	ctx := context.Background()
	s, _, _ := setupService(t)
	tk := mustCreate(t, s, alice, "x")

	tag, err := s.AddTag(ctx, alice, tk.UUID, "env", "prod")
	require.NoError(t, err)
	assert.Equal(t, tk.ID, tag.Resource)
	assert.Equal(t, tk.UUID, tag.ResourceUUID)
	assert.Equal(t, types.LocationActive, tag.ResourceLocation)
	assert.Equal(t, types.ResourceTypeTicket, tag.ResourceType)

	_, err = s.AddTag(ctx, alice, tk.UUID, "", "v")
	assert.ErrorIs(t, err, types.ErrEmptyName)

	_, err = s.AddTag(ctx, bob, tk.UUID, "k", "v")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = s.AddTag(ctx, carol, tk.UUID, "k", "v")
	assert.ErrorIs(t, err, types.ErrPermissionDenied)

	require.NoError(t, s.Delete(ctx, alice, tk.UUID, false))
	_, err = s.AddTag(ctx, alice, tk.UUID, "k", "v")
	assert.ErrorIs(t, err, types.ErrNotFound, "trashed tickets take no new tags")

	tags, err := s.Tags(ctx, alice, tk.UUID, types.LocationTrash)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, tag.UUID, tags[0].UUID)
	assert.Equal(t, types.LocationTrash, tags[0].ResourceLocation)
}

func TestGrant(t *testing.T) {
	ctx := context.Background()
	s, _, _ := setupService(t)
	tk := mustCreate(t, s, alice, "x")

	tests := []struct {
		name       string
		actor      types.Actor
		ticket     string
		capability string
		subject    string
		wantErr    error
	}{
		{"owner grants read", alice, tk.UUID, types.CapGetTickets, bob.UUID, nil},
		{"owner grants modify", alice, tk.UUID, types.CapModifyTicket, bob.UUID, nil},
		{"capability not grantable", alice, tk.UUID, types.CapCreateTicket, bob.UUID, types.ErrInvalidGrant},
		{"unknown capability", alice, tk.UUID, "fly", bob.UUID, types.ErrInvalidGrant},
		{"subject required", alice, tk.UUID, types.CapGetTickets, "", types.ErrInvalidGrant},
		{"empty ticket id", alice, "", types.CapGetTickets, bob.UUID, types.ErrInvalidID},
		{"non-owner cannot grant", bob, tk.UUID, types.CapGetTickets, carol.UUID, types.ErrNotFound},
		{"actor without create_permission", carol, tk.UUID, types.CapGetTickets, bob.UUID, types.ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := s.Grant(ctx, tt.actor, tt.ticket, tt.capability, tt.subject)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.capability, p.Name)
			assert.Equal(t, tt.subject, p.Subject)
			assert.Equal(t, tk.ID, p.Resource)
			assert.False(t, p.Orphaned())
		})
	}

	perms, err := s.Permissions(ctx, alice, tk.UUID, types.LocationActive)
	require.NoError(t, err)
	require.Len(t, perms, 2)
	assert.Equal(t, types.CapGetTickets, perms[0].Name)
	assert.Equal(t, types.CapModifyTicket, perms[1].Name)
}

package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tickets/internal/acl"
	"github.com/mesh-intelligence/tickets/pkg/types"
)

var (
	alice   = types.Actor{UUID: "00000000-0000-7000-8000-00000000a11c", Name: "alice", Roles: []string{acl.RoleUser}}
	bob     = types.Actor{UUID: "00000000-0000-7000-8000-000000000b0b", Name: "bob", Roles: []string{acl.RoleUser}}
	carol   = types.Actor{UUID: "00000000-0000-7000-8000-0000000ca201", Name: "carol", Roles: []string{acl.RoleObserver}}
	mallory = types.Actor{UUID: "00000000-0000-7000-8000-0000000ba11e", Name: "mallory"}
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingNotifier records every cascade call and optionally fails them.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
	fail  error
}

func (r *recordingNotifier) record(call string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	return r.fail
}

func (r *recordingNotifier) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recordingNotifier) RewriteLocations(_ context.Context, _ *sqlx.Tx, _ string,
	_ int64, oldLoc types.Location, _ int64, newLoc types.Location) error {
	return r.record("rewrite " + string(oldLoc) + "->" + string(newLoc))
}

func (r *recordingNotifier) DiscardReferences(_ context.Context, _ *sqlx.Tx, _ string, _ int64, loc types.Location) error {
	return r.record("discard " + string(loc))
}

func (r *recordingNotifier) RemoveReferences(_ context.Context, _ *sqlx.Tx, _ string, _ int64, loc types.Location) error {
	return r.record("remove " + string(loc))
}

// setupBackend attaches a Backend in a temp dir and detaches it on cleanup.
func setupBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}))
	t.Cleanup(func() { b.Detach() })
	return b
}

// setupService returns a service over a fresh backend with the default role
// table, a fake clock, and any extra options.
func setupService(t *testing.T, opts ...Option) (*Service, *Backend, *fakeClock) {
	t.Helper()
	b := setupBackend(t)
	clock := &fakeClock{now: epoch}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	s := NewService(b, acl.NewRoleGate(acl.DefaultRoles()), opts...)
	return s, b, clock
}

func strPtr(s string) *string { return &s }

// mustCreate creates a ticket named name owned by actor.
func mustCreate(t *testing.T, s *Service, actor types.Actor, name string) *types.Ticket {
	t.Helper()
	tk, err := s.Create(context.Background(), actor, types.CreateRequest{Name: name})
	require.NoError(t, err)
	return tk
}

// locationsOf returns the stores holding uuid, checking that the two
// tables never both hold it.
func locationsOf(t *testing.T, b *Backend, uuid string) []types.Location {
	t.Helper()
	var locs []types.Location
	for _, loc := range []types.Location{types.LocationActive, types.LocationTrash} {
		table, err := ticketTable(loc)
		require.NoError(t, err)
		var n int
		require.NoError(t, b.db.Get(&n, "SELECT count(*) FROM "+table+" WHERE uuid = ?", uuid))
		if n > 0 {
			locs = append(locs, loc)
		}
	}
	require.LessOrEqual(t, len(locs), 1, "ticket %s present in both stores", uuid)
	return locs
}

// requireExclusive checks that no uuid is held by both stores.
func requireExclusive(t *testing.T, b *Backend) {
	t.Helper()
	var n int
	require.NoError(t, b.db.Get(&n,
		"SELECT count(*) FROM tickets a JOIN tickets_trash z ON a.uuid = z.uuid"))
	require.Zero(t, n, "a ticket is present in both stores")
}

// rowCount counts rows of table.
func rowCount(t *testing.T, b *Backend, table string) int {
	t.Helper()
	var n int
	require.NoError(t, b.db.Get(&n, "SELECT count(*) FROM "+table))
	return n
}

// snapshot captures every table's rows as text for before/after comparison.
func snapshot(t *testing.T, b *Backend) map[string][]string {
	t.Helper()
	queries := map[string]string{
		tableTickets:      "SELECT id || '|' || uuid || '|' || name || '|' || comment || '|' || modification_time FROM tickets ORDER BY id",
		tableTicketsTrash: "SELECT id || '|' || uuid || '|' || name || '|' || comment || '|' || modification_time FROM tickets_trash ORDER BY id",
		tableTags:         "SELECT uuid || '|' || resource || '|' || resource_location FROM tags ORDER BY id",
		tablePermissions:  "SELECT uuid || '|' || resource || '|' || resource_location FROM permissions ORDER BY id",
	}
	out := make(map[string][]string, len(queries))
	for table, query := range queries {
		var rows []string
		require.NoError(t, b.db.Select(&rows, query))
		out[table] = rows
	}
	return out
}

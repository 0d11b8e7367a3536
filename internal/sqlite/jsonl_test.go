// Tests for JSONL export.
package sqlite

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tickets/pkg/types"
)

// readTickets decodes one ticket per line of path.
func readTickets(t *testing.T, path string) []types.Ticket {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []types.Ticket
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var tk types.Ticket
		require.NoError(t, json.Unmarshal(sc.Bytes(), &tk))
		out = append(out, tk)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	s, _, _ := setupService(t)

	a := mustCreate(t, s, alice, "a")
	b := mustCreate(t, s, alice, "b")
	mustCreate(t, s, bob, "not alice's")
	require.NoError(t, s.Delete(ctx, alice, b.UUID, false))

	dir := filepath.Join(t.TempDir(), "export")
	res, err := s.Export(ctx, alice, dir)
	require.NoError(t, err)
	assert.Equal(t, ExportResult{Active: 1, Trash: 1}, res)

	active := readTickets(t, filepath.Join(dir, ExportActiveFile))
	require.Len(t, active, 1)
	assert.Equal(t, a.UUID, active[0].UUID)
	assert.Equal(t, types.LocationActive, active[0].Location)

	trash := readTickets(t, filepath.Join(dir, ExportTrashFile))
	require.Len(t, trash, 1)
	assert.Equal(t, b.UUID, trash[0].UUID)
	assert.Equal(t, types.LocationTrash, trash[0].Location)
}

func TestExportReplacesPreviousFiles(t *testing.T) {
	ctx := context.Background()
	s, _, _ := setupService(t)
	dir := t.TempDir()

	tk := mustCreate(t, s, alice, "a")
	_, err := s.Export(ctx, alice, dir)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, alice, tk.UUID, true))
	res, err := s.Export(ctx, alice, dir)
	require.NoError(t, err)
	assert.Equal(t, ExportResult{}, res)

	info, err := os.Stat(filepath.Join(dir, ExportActiveFile))
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file %s left behind", e.Name())
	}
}

func TestExportDenied(t *testing.T) {
	s, _, _ := setupService(t)
	dir := filepath.Join(t.TempDir(), "export")

	_, err := s.Export(context.Background(), mallory, dir)
	assert.ErrorIs(t, err, types.ErrPermissionDenied)
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExportKeepsPreviousPairOnFailure(t *testing.T) {
	ctx := context.Background()
	s, _, _ := setupService(t)
	dir := t.TempDir()

	first := mustCreate(t, s, alice, "first")
	_, err := s.Export(ctx, alice, dir)
	require.NoError(t, err)

	trashPath := filepath.Join(dir, ExportTrashFile)
	require.NoError(t, os.Remove(trashPath))
	require.NoError(t, os.MkdirAll(filepath.Join(trashPath, "blocker"), 0o755))

	mustCreate(t, s, alice, "second")
	_, err = s.Export(ctx, alice, dir)
	assert.ErrorIs(t, err, types.ErrInternal)

	active := readTickets(t, filepath.Join(dir, ExportActiveFile))
	require.Len(t, active, 1)
	assert.Equal(t, first.UUID, active[0].UUID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file %s left behind", e.Name())
	}
}

func TestStageJSONL(t *testing.T) {
	dir := t.TempDir()
	tickets := []*types.Ticket{
		{UUID: "u1", Name: "a <b>", Location: types.LocationActive, CreatedAt: epoch, ModifiedAt: epoch},
		{UUID: "u2", Name: "c", Location: types.LocationActive, CreatedAt: epoch, ModifiedAt: epoch},
	}
	path, err := stageJSONL(dir, tickets)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	got := readTickets(t, path)
	require.Len(t, got, 2)
	assert.Equal(t, "a <b>", got[0].Name)
	assert.Equal(t, "u2", got[1].UUID)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "a <b>")
	assert.Equal(t, 2, strings.Count(string(content), "\n"))
}

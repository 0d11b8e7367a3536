package sqlite

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/tickets/pkg/types"
)

// Export file names, one per store.
const (
	ExportActiveFile = "tickets.jsonl"
	ExportTrashFile  = "tickets_trash.jsonl"
)

// ExportResult reports how many tickets each export file holds.
type ExportResult struct {
	Active int `json:"active"`
	Trash  int `json:"trash"`
}

// Export writes the tickets visible to actor as JSONL into dir, one file
// per store. Both stores are read in one transaction so no ticket shows up
// in both files. Both files are staged before either is replaced; a failed
// write leaves the previous pair in place.
func (s *Service) Export(ctx context.Context, actor types.Actor, dir string) (ExportResult, error) {
	var active, trash []*types.Ticket
	err := s.backend.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.require(ctx, actor, types.CapGetTickets); err != nil {
			return err
		}
		var err error
		if active, err = selectTickets(ctx, tx, actor, types.ListFilter{Location: types.LocationActive}); err != nil {
			return err
		}
		trash, err = selectTickets(ctx, tx, actor, types.ListFilter{Location: types.LocationTrash})
		return err
	})
	if err != nil {
		return ExportResult{}, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ExportResult{}, internalf("creating export dir: %w", err)
	}
	files := []struct {
		name    string
		tickets []*types.Ticket
	}{
		{ExportTrashFile, trash},
		{ExportActiveFile, active},
	}
	staged := make([]string, 0, len(files))
	discard := func() {
		for _, p := range staged {
			os.Remove(p)
		}
	}
	for _, f := range files {
		tmp, err := stageJSONL(dir, f.tickets)
		if err != nil {
			discard()
			return ExportResult{}, internalf("staging %s: %w", f.name, err)
		}
		staged = append(staged, tmp)
	}
	for i, f := range files {
		if err := os.Rename(staged[i], filepath.Join(dir, f.name)); err != nil {
			discard()
			return ExportResult{}, internalf("replacing %s: %w", f.name, err)
		}
	}

	res := ExportResult{Active: len(active), Trash: len(trash)}
	s.log.Info().Str("dir", dir).Int("active", res.Active).Int("trash", res.Trash).Msg("tickets exported")
	return res, nil
}

// stageJSONL encodes tickets one per line into a synced temp file in dir
// and returns its path. The caller renames or removes it.
func stageJSONL(dir string, tickets []*types.Ticket) (string, error) {
	f, err := os.CreateTemp(dir, ".export-*.tmp")
	if err != nil {
		return "", err
	}
	path := f.Name()

	buf := bufio.NewWriter(f)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	for _, t := range tickets {
		if err = enc.Encode(t); err != nil {
			err = fmt.Errorf("encoding ticket %s: %w", t.UUID, err)
			break
		}
	}
	if err == nil {
		err = buf.Flush()
	}
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

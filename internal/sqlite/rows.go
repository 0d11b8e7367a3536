package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mesh-intelligence/tickets/pkg/types"
)

// timeLayout is the on-disk format of every timestamp column.
const timeLayout = time.RFC3339

// ticketRow is the column image of a ticket in either store.
type ticketRow struct {
	ID               int64          `db:"id"`
	UUID             string         `db:"uuid"`
	Owner            string         `db:"owner"`
	Name             string         `db:"name"`
	Comment          string         `db:"comment"`
	Task             string         `db:"task"`
	Report           string         `db:"report"`
	Host             string         `db:"host"`
	AffectedLocation string         `db:"affected_location"`
	SolutionType     string         `db:"solution_type"`
	AssignedTo       string         `db:"assigned_to"`
	Status           string         `db:"status"`
	Severity         float64        `db:"severity"`
	SolvedComment    string         `db:"solved_comment"`
	ConfirmedResult  string         `db:"confirmed_result"`
	ClosedRationale  string         `db:"closed_rationale"`
	OpenTime         sql.NullString `db:"open_time"`
	SolvedTime       sql.NullString `db:"solved_time"`
	ConfirmedTime    sql.NullString `db:"confirmed_time"`
	ClosedTime       sql.NullString `db:"closed_time"`
	OrphanedTime     sql.NullString `db:"orphaned_time"`
	CreationTime     string         `db:"creation_time"`
	ModificationTime string         `db:"modification_time"`
}

func newTicketRow(t *types.Ticket) ticketRow {
	p := t.Payload
	return ticketRow{
		ID:               t.ID,
		UUID:             t.UUID,
		Owner:            t.Owner,
		Name:             t.Name,
		Comment:          t.Comment,
		Task:             p.Task,
		Report:           p.Report,
		Host:             p.Host,
		AffectedLocation: p.AffectedLocation,
		SolutionType:     p.SolutionType,
		AssignedTo:       p.AssignedTo,
		Status:           p.Status,
		Severity:         p.Severity,
		SolvedComment:    p.SolvedComment,
		ConfirmedResult:  p.ConfirmedResult,
		ClosedRationale:  p.ClosedRationale,
		OpenTime:         formatNullTime(p.OpenedAt),
		SolvedTime:       formatNullTime(p.SolvedAt),
		ConfirmedTime:    formatNullTime(p.ConfirmedAt),
		ClosedTime:       formatNullTime(p.ClosedAt),
		OrphanedTime:     formatNullTime(p.OrphanedAt),
		CreationTime:     formatTime(t.CreatedAt),
		ModificationTime: formatTime(t.ModifiedAt),
	}
}

// hydrate converts the row to a ticket held at loc.
func (r ticketRow) hydrate(loc types.Location) (*types.Ticket, error) {
	t := &types.Ticket{
		ID:       r.ID,
		UUID:     r.UUID,
		Owner:    r.Owner,
		Name:     r.Name,
		Comment:  r.Comment,
		Location: loc,
		Payload: types.TicketPayload{
			Task:             r.Task,
			Report:           r.Report,
			Host:             r.Host,
			AffectedLocation: r.AffectedLocation,
			SolutionType:     r.SolutionType,
			AssignedTo:       r.AssignedTo,
			Status:           r.Status,
			Severity:         r.Severity,
			SolvedComment:    r.SolvedComment,
			ConfirmedResult:  r.ConfirmedResult,
			ClosedRationale:  r.ClosedRationale,
		},
	}

	var err error
	if t.CreatedAt, err = parseTime(r.CreationTime); err != nil {
		return nil, fmt.Errorf("parsing ticket creation_time: %w", err)
	}
	if t.ModifiedAt, err = parseTime(r.ModificationTime); err != nil {
		return nil, fmt.Errorf("parsing ticket modification_time: %w", err)
	}

	nullable := []struct {
		col string
		src sql.NullString
		dst **time.Time
	}{
		{"open_time", r.OpenTime, &t.Payload.OpenedAt},
		{"solved_time", r.SolvedTime, &t.Payload.SolvedAt},
		{"confirmed_time", r.ConfirmedTime, &t.Payload.ConfirmedAt},
		{"closed_time", r.ClosedTime, &t.Payload.ClosedAt},
		{"orphaned_time", r.OrphanedTime, &t.Payload.OrphanedAt},
	}
	for _, n := range nullable {
		if *n.dst, err = parseNullTime(n.src); err != nil {
			return nil, fmt.Errorf("parsing ticket %s: %w", n.col, err)
		}
	}
	return t, nil
}

// referenceRow is the column image of a tag or permission. Subject and
// Value are only populated for the table that has them.
type referenceRow struct {
	ID               int64  `db:"id"`
	UUID             string `db:"uuid"`
	Owner            string `db:"owner"`
	Name             string `db:"name"`
	Value            string `db:"value"`
	Subject          string `db:"subject"`
	ResourceType     string `db:"resource_type"`
	Resource         int64  `db:"resource"`
	ResourceUUID     string `db:"resource_uuid"`
	ResourceLocation string `db:"resource_location"`
	CreationTime     string `db:"creation_time"`
}

func (r referenceRow) tag() (*types.Tag, error) {
	created, err := parseTime(r.CreationTime)
	if err != nil {
		return nil, fmt.Errorf("parsing tag creation_time: %w", err)
	}
	return &types.Tag{
		ID:               r.ID,
		UUID:             r.UUID,
		Owner:            r.Owner,
		Name:             r.Name,
		Value:            r.Value,
		ResourceType:     r.ResourceType,
		Resource:         r.Resource,
		ResourceUUID:     r.ResourceUUID,
		ResourceLocation: types.Location(r.ResourceLocation),
		CreatedAt:        created,
	}, nil
}

func (r referenceRow) permission() (*types.Permission, error) {
	created, err := parseTime(r.CreationTime)
	if err != nil {
		return nil, fmt.Errorf("parsing permission creation_time: %w", err)
	}
	return &types.Permission{
		ID:               r.ID,
		UUID:             r.UUID,
		Owner:            r.Owner,
		Name:             r.Name,
		Subject:          r.Subject,
		ResourceType:     r.ResourceType,
		Resource:         r.Resource,
		ResourceUUID:     r.ResourceUUID,
		ResourceLocation: types.Location(r.ResourceLocation),
		CreatedAt:        created,
	}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

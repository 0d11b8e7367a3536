package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/tickets/pkg/types"
)

var _ types.Tickets = (*Service)(nil)

// InUseFunc reports whether a ticket is referenced by something that must
// keep it alive. It runs inside the deleting transaction.
type InUseFunc func(ctx context.Context, q sqlx.QueryerContext, t *types.Ticket) (bool, error)

// neverInUse is the default in-use predicate.
func neverInUse(context.Context, sqlx.QueryerContext, *types.Ticket) (bool, error) {
	return false, nil
}

// Service is the ticket lifecycle service over a Backend.
type Service struct {
	backend *Backend
	gate    types.PermissionGate
	cascade cascades
	tags    tagsTable
	perms   permissionsTable
	inUse   InUseFunc
	now     func() time.Time
	newUUID func() (string, error)
	log     zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithUUIDGenerator replaces the UUID source.
func WithUUIDGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.newUUID = gen }
}

// WithInUse installs the in-use predicate consulted before a ticket is
// erased from either store.
func WithInUse(fn InUseFunc) Option {
	return func(s *Service) { s.inUse = fn }
}

// WithCascadeNotifier adds a notifier after the built-in tag and permission
// notifiers.
func WithCascadeNotifier(n CascadeNotifier) Option {
	return func(s *Service) { s.cascade = append(s.cascade, n) }
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService returns the lifecycle service for backend, authorizing every
// operation with gate.
func NewService(backend *Backend, gate types.PermissionGate, opts ...Option) *Service {
	s := &Service{
		backend: backend,
		gate:    gate,
		inUse:   neverInUse,
		now:     time.Now,
		newUUID: newUUID,
		log:     zerolog.Nop(),
	}
	s.cascade = cascades{s.tags, s.perms}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newUUID generates a UUID v7 string.
func newUUID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// timestamp returns the current time at the precision the store keeps.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

func (s *Service) generateUUID() (string, error) {
	id, err := s.newUUID()
	if err != nil {
		return "", internalf("generating uuid: %w", err)
	}
	return id, nil
}

// require asks the gate whether actor may use capability at all.
func (s *Service) require(ctx context.Context, actor types.Actor, capability string) error {
	ok, err := s.gate.May(ctx, actor, capability)
	if err != nil {
		return internalf("checking %s: %w", capability, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrPermissionDenied, capability)
	}
	return nil
}

// checkInUse fails with ErrStillInUse when the in-use predicate holds for
// the ticket id at loc.
func (s *Service) checkInUse(ctx context.Context, tx *sqlx.Tx, loc types.Location, id int64) error {
	t, err := getTicket(ctx, tx, loc, id)
	if err != nil {
		return err
	}
	used, err := s.inUse(ctx, tx, t)
	if err != nil {
		return internalf("checking ticket use: %w", err)
	}
	if used {
		return fmt.Errorf("%w: %s", types.ErrStillInUse, t.UUID)
	}
	return nil
}

// logOutcome records the result of an operation. Internal failures are
// errors; rejections and successes are debug.
func (s *Service) logOutcome(op string, actor types.Actor, ticket string, err error) {
	code := types.CodeOf(err)
	ev := s.log.Debug()
	if code == types.CodeInternalError {
		ev = s.log.Error().Err(err)
	} else if err != nil {
		ev = ev.Str("reason", err.Error())
	}
	ev.Str("op", op).
		Str("actor", actor.UUID).
		Str("ticket", ticket).
		Stringer("result", code).
		Msg("ticket operation")
}

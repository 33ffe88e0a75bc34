// Package roles implements the role registry: a per-principal bitmask of
// custody roles that only the configured administrator may change.
package roles

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/db/models"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/events"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/repository"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/telemetry"
)

const tracerName = "herbledger/services/roles"

// Assignment is the role mask held by one principal.
type Assignment struct {
	Principal string       `json:"principal"`
	Mask      custody.Role `json:"mask"`
	Roles     []string     `json:"roles"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Service is the role registry.
type Service struct {
	repo    repository.RoleRepository
	admin   string
	bus     *events.Bus
	log     zerolog.Logger
	metrics *telemetry.LedgerMetrics
	now     func() time.Time
	mu      *sync.Mutex
}

// NewService constructs a registry administered by admin. The admin is
// normalised like every caller, so a lower-case wallet address matches its
// checksummed spelling.
func NewService(repo repository.RoleRepository, admin string) *Service {
	if canonical, err := custody.NormalizePrincipal(admin); err == nil {
		admin = canonical
	}
	return &Service{
		repo:  repo,
		admin: admin,
		log:   zerolog.Nop(),
		now:   time.Now,
		mu:    &sync.Mutex{},
	}
}

// WithBus publishes role change events to bus.
func (s *Service) WithBus(bus *events.Bus) *Service {
	s.bus = bus
	return s
}

// WithLogger sets the service logger.
func (s *Service) WithLogger(log zerolog.Logger) *Service {
	s.log = log.With().Str("component", "roles").Logger()
	return s
}

// WithMetrics records mutation metrics.
func (s *Service) WithMetrics(m *telemetry.LedgerMetrics) *Service {
	s.metrics = m
	return s
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithWriteLock shares mu with other writers of the event log.
func (s *Service) WithWriteLock(mu *sync.Mutex) *Service {
	s.mu = mu
	return s
}

// Admin returns the administrator principal.
func (s *Service) Admin() string {
	return s.admin
}

// Grant sets role on target. Granting a held role succeeds without change.
func (s *Service) Grant(ctx context.Context, admin, target string, role custody.Role) error {
	return s.apply(ctx, "grant_role", admin, target, role, true)
}

// Revoke clears role on target. Revoking an absent role succeeds without change.
func (s *Service) Revoke(ctx context.Context, admin, target string, role custody.Role) error {
	return s.apply(ctx, "revoke_role", admin, target, role, false)
}

func (s *Service) apply(ctx context.Context, op, admin, target string, role custody.Role, grant bool) (err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "roles."+op,
		attribute.String(telemetry.AttrPrincipal, target),
		attribute.Int(telemetry.AttrRoleMask, int(role)),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = custody.Code(err)
			telemetry.RecordError(span, err)
		}
		s.metrics.RecordOperation(ctx, op, outcome, float64(time.Since(start).Microseconds())/1000)
	}()

	if err := s.RequireAdmin(admin); err != nil {
		return err
	}
	if target == "" {
		return fmt.Errorf("%w: principal is required", custody.ErrInvalidInput)
	}
	if !role.Valid() {
		return fmt.Errorf("%w: role %d", custody.ErrInvalidInput, role)
	}

	kind := events.KindRoleRevoked
	if grant {
		kind = events.KindRoleGranted
	}
	row := &models.LedgerEvent{Kind: string(kind), Writer: s.admin}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.repo.Apply(ctx, repository.RoleChange{
		Principal: target,
		Role:      role,
		Grant:     grant,
		At:        s.now(),
	}, row)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !res.Changed {
		s.log.Debug().Str("principal", target).Str("role", role.String()).Msg("role unchanged")
		return nil
	}

	s.log.Info().
		Str("principal", target).
		Str("before", res.Before.String()).
		Str("after", res.After.String()).
		Msg(string(kind))
	if s.bus != nil {
		s.bus.Publish(events.FromModel(row))
	}
	return nil
}

// RequireAdmin returns ErrUnauthorized unless caller, once normalised, is
// the administrator.
func (s *Service) RequireAdmin(caller string) error {
	if canonical, err := custody.NormalizePrincipal(caller); err == nil {
		caller = canonical
	}
	if s.admin == "" || caller != s.admin {
		return fmt.Errorf("%w: %s is not the administrator", custody.ErrUnauthorized, caller)
	}
	return nil
}

// HasRole reports whether target holds role. Unknown principals hold nothing.
func (s *Service) HasRole(ctx context.Context, target string, role custody.Role) (bool, error) {
	mask, err := s.repo.Get(ctx, target)
	if err != nil {
		return false, fmt.Errorf("has role: %w", err)
	}
	return mask.Has(role), nil
}

// Roles returns the full mask held by target.
func (s *Service) Roles(ctx context.Context, target string) (custody.Role, error) {
	mask, err := s.repo.Get(ctx, target)
	if err != nil {
		return 0, fmt.Errorf("get roles: %w", err)
	}
	return mask, nil
}

// List returns every principal holding at least one role.
func (s *Service) List(ctx context.Context) ([]Assignment, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}

	out := make([]Assignment, 0, len(rows))
	for _, row := range rows {
		mask := custody.Role(row.Mask)
		out = append(out, Assignment{
			Principal: row.Principal,
			Mask:      mask,
			Roles:     mask.Names(),
			UpdatedAt: row.UpdatedAt,
		})
	}
	return out, nil
}

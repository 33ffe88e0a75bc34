// Package ledger implements the staged batch ledger: sequential batch ids,
// four write-once stage slots per batch, and role-gated writes.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/db/models"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/events"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/repository"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/telemetry"
)

const tracerName = "herbledger/services/ledger"

// RoleChecker answers role membership questions.
type RoleChecker interface {
	HasRole(ctx context.Context, principal string, role custody.Role) (bool, error)
}

// BatchCreated is returned by CreateBatch.
type BatchCreated struct {
	BatchID    int64     `json:"batch_id"`
	Reference  string    `json:"reference"`
	ContentID  string    `json:"content_id"`
	Writer     string    `json:"writer"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Service is the batch ledger.
type Service struct {
	batches repository.BatchRepository
	events  repository.EventRepository
	roles   RoleChecker
	bus     *events.Bus
	log     zerolog.Logger
	metrics *telemetry.LedgerMetrics
	now     func() time.Time
	mu      *sync.Mutex
}

// NewService constructs a ledger backed by the given repositories.
func NewService(batches repository.BatchRepository, evs repository.EventRepository, roles RoleChecker) *Service {
	return &Service{
		batches: batches,
		events:  evs,
		roles:   roles,
		log:     zerolog.Nop(),
		now:     time.Now,
		mu:      &sync.Mutex{},
	}
}

// WithBus publishes committed events to bus.
func (s *Service) WithBus(bus *events.Bus) *Service {
	s.bus = bus
	return s
}

// WithLogger sets the service logger.
func (s *Service) WithLogger(log zerolog.Logger) *Service {
	s.log = log.With().Str("component", "ledger").Logger()
	return s
}

// WithMetrics records mutation metrics.
func (s *Service) WithMetrics(m *telemetry.LedgerMetrics) *Service {
	s.metrics = m
	return s
}

// WithClock overrides the time source used for recordedAt.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithWriteLock shares mu with other writers of the event log.
func (s *Service) WithWriteLock(mu *sync.Mutex) *Service {
	s.mu = mu
	return s
}

// CreateBatch allocates the next batch id and records the collector stage.
func (s *Service) CreateBatch(ctx context.Context, caller, reference, contentID string) (created *BatchCreated, err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "ledger.CreateBatch",
		attribute.String(telemetry.AttrPrincipal, caller),
		attribute.String(telemetry.AttrBatchRef, reference),
	)
	defer span.End()
	defer s.observe(ctx, span, "create_batch", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRole(ctx, caller, custody.RoleCollector); err != nil {
		return nil, err
	}
	if contentID == "" {
		return nil, fmt.Errorf("%w: content id is required", custody.ErrInvalidInput)
	}

	now := repository.NormalizeTime(s.now())
	cid, writer := contentID, caller
	batch := &models.Batch{
		Reference: reference,
		CreatedBy: caller,
		CreatedAt: now,
		Collector: models.StageSlot{ContentID: &cid, Writer: &writer, RecordedAt: &now},
	}
	createdEvent := &models.LedgerEvent{Kind: string(events.KindBatchCreated), Writer: caller}
	collectorEvent := &models.LedgerEvent{Kind: string(events.KindCollectorDataAdded), Writer: caller}

	if err := s.batches.Create(ctx, batch, createdEvent, collectorEvent); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	span.SetAttributes(attribute.Int64(telemetry.AttrBatchID, batch.ID))
	s.log.Info().
		Int64("batch_id", batch.ID).
		Str("reference", reference).
		Str("writer", caller).
		Msg("batch created")
	s.publish(createdEvent, collectorEvent)

	return &BatchCreated{
		BatchID:    batch.ID,
		Reference:  reference,
		ContentID:  contentID,
		Writer:     caller,
		RecordedAt: now,
	}, nil
}

// AddStageData records contentID in a later stage slot. Preconditions are
// checked in a fixed order: batch exists, caller holds the stage role,
// predecessor recorded, slot empty, content id present.
func (s *Service) AddStageData(ctx context.Context, caller string, batchID int64, stage custody.Stage, contentID string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "ledger.AddStageData",
		attribute.String(telemetry.AttrPrincipal, caller),
		attribute.Int64(telemetry.AttrBatchID, batchID),
		attribute.String(telemetry.AttrStage, stage.String()),
	)
	defer span.End()
	defer s.observe(ctx, span, "add_stage", time.Now(), &err)

	prev, ok := stage.Previous()
	if !ok {
		return fmt.Errorf("%w: stage %s cannot be added to an existing batch", custody.ErrInvalidInput, stage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch, err := s.batches.Get(ctx, batchID)
	if err != nil {
		return err
	}
	if err := s.requireRole(ctx, caller, stage.RoleBit()); err != nil {
		return err
	}
	if !batch.Slot(prev).IsSet() {
		return fmt.Errorf("%w: batch %d has no %s data", custody.ErrStageOutOfOrder, batchID, prev)
	}
	if batch.Slot(stage).IsSet() {
		return fmt.Errorf("%w: batch %d %s", custody.ErrAlreadyRecorded, batchID, stage)
	}
	if contentID == "" {
		return fmt.Errorf("%w: content id is required", custody.ErrInvalidInput)
	}

	row := &models.LedgerEvent{Kind: string(events.StageKind(stage)), Writer: caller}
	err = s.batches.RecordStage(ctx, repository.StageWrite{
		BatchID:   batchID,
		Stage:     stage,
		ContentID: contentID,
		Writer:    caller,
		At:        s.now(),
	}, row)
	if err != nil {
		if custody.Code(err) != "internal" {
			return err
		}
		return fmt.Errorf("add %s data: %w", stage, err)
	}

	s.log.Info().
		Int64("batch_id", batchID).
		Str("stage", stage.String()).
		Str("writer", caller).
		Str("content_id", contentID).
		Msg("stage recorded")
	s.publish(row)
	return nil
}

// AddMiddlemanData records the middleman stage.
func (s *Service) AddMiddlemanData(ctx context.Context, caller string, batchID int64, contentID string) error {
	return s.AddStageData(ctx, caller, batchID, custody.StageMiddleman, contentID)
}

// AddLabData records the lab stage.
func (s *Service) AddLabData(ctx context.Context, caller string, batchID int64, contentID string) error {
	return s.AddStageData(ctx, caller, batchID, custody.StageLab, contentID)
}

// AddManufacturerData records the manufacturer stage.
func (s *Service) AddManufacturerData(ctx context.Context, caller string, batchID int64, contentID string) error {
	return s.AddStageData(ctx, caller, batchID, custody.StageManufacturer, contentID)
}

func (s *Service) requireRole(ctx context.Context, caller string, role custody.Role) error {
	ok, err := s.roles.HasRole(ctx, caller, role)
	if err != nil {
		return fmt.Errorf("check %s role: %w", role, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s lacks the %s role", custody.ErrUnauthorized, caller, role)
	}
	return nil
}

func (s *Service) publish(rows ...*models.LedgerEvent) {
	if s.bus == nil {
		return
	}
	evs := make([]events.Event, 0, len(rows))
	for _, row := range rows {
		evs = append(evs, events.FromModel(row))
	}
	s.bus.Publish(evs...)
}

func (s *Service) observe(ctx context.Context, span trace.Span, op string, start time.Time, err *error) {
	outcome := "ok"
	if *err != nil {
		outcome = custody.Code(*err)
		telemetry.RecordError(span, *err)
		s.log.Debug().Err(*err).Str("operation", op).Str("outcome", outcome).Msg("ledger call rejected")
	}
	s.metrics.RecordOperation(ctx, op, outcome, float64(time.Since(start).Microseconds())/1000)
}

// Package trail assembles the full custody trail of a batch: the ledger
// record joined with each stage's metadata document from the content store.
package trail

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/content"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/metadata"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/services/ledger"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/telemetry"
)

const tracerName = "herbledger/services/trail"

// RecordReader loads the ledger view of a batch.
type RecordReader interface {
	GetBatchRecord(ctx context.Context, id int64) (*ledger.BatchRecord, error)
}

// Stage is one step of the trail.
type Stage struct {
	Stage       string            `json:"stage"`
	Set         bool              `json:"set"`
	ContentID   string            `json:"content_id,omitempty"`
	Writer      string            `json:"writer,omitempty"`
	RecordedAt  *time.Time        `json:"recorded_at,omitempty"`
	GatewayURL  string            `json:"gateway_url,omitempty"`
	Document    metadata.Document `json:"document,omitempty"`
	Attachments []string          `json:"attachments,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Trail is the assembled custody history of a batch.
type Trail struct {
	BatchID   int64   `json:"batch_id"`
	Reference string  `json:"reference"`
	Status    string  `json:"status"`
	Stages    []Stage `json:"stages"`
}

type decoded struct {
	doc         metadata.Document
	attachments []string
}

// Service assembles trails.
type Service struct {
	records   RecordReader
	store     content.Store
	validator *metadata.Validator
	cache     *lru.Cache[string, decoded]
	gateway   string
	log       zerolog.Logger
}

// NewService constructs a trail assembler with a decoded-document cache of
// cacheSize entries. Content is immutable per id, so entries never go stale.
func NewService(records RecordReader, store content.Store, validator *metadata.Validator, cacheSize int) (*Service, error) {
	cache, err := lru.New[string, decoded](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create trail cache: %w", err)
	}
	return &Service{
		records:   records,
		store:     store,
		validator: validator,
		cache:     cache,
		log:       zerolog.Nop(),
	}, nil
}

// WithGateway sets the HTTP gateway used for stage links.
func (s *Service) WithGateway(base string) *Service {
	s.gateway = base
	return s
}

// WithLogger sets the service logger.
func (s *Service) WithLogger(log zerolog.Logger) *Service {
	s.log = log.With().Str("component", "trail").Logger()
	return s
}

// Assemble builds the trail for batchID. Missing or malformed stage content
// is reported on the stage rather than failing the call.
func (s *Service) Assemble(ctx context.Context, batchID int64) (*Trail, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "trail.Assemble",
		attribute.Int64(telemetry.AttrBatchID, batchID),
	)
	defer span.End()

	record, err := s.records.GetBatchRecord(ctx, batchID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	out := &Trail{
		BatchID:   record.ID,
		Reference: record.Reference,
		Status:    record.Status,
		Stages:    make([]Stage, 0, len(record.Stages)),
	}
	for i, rs := range record.Stages {
		st := Stage{
			Stage:      rs.Stage,
			Set:        rs.Set,
			ContentID:  rs.ContentID,
			Writer:     rs.Writer,
			RecordedAt: rs.RecordedAt,
		}
		if rs.Set {
			st.GatewayURL = content.GatewayURL(s.gateway, rs.ContentID)
			d, err := s.load(ctx, custody.Stages[i], rs.ContentID)
			if err != nil {
				st.Error = err.Error()
				s.log.Debug().Err(err).Int64("batch_id", batchID).Str("stage", rs.Stage).Msg("stage content unavailable")
			} else {
				st.Document = d.doc
				st.Attachments = d.attachments
			}
		}
		out.Stages = append(out.Stages, st)
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, stage custody.Stage, id string) (decoded, error) {
	key := stage.String() + "/" + content.NormalizeCID(id)
	if d, ok := s.cache.Get(key); ok {
		return d, nil
	}

	raw, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return decoded{}, fmt.Errorf("content %s not found", id)
		}
		return decoded{}, err
	}

	doc, attachments, err := s.validator.Inspect(stage, raw)
	if err != nil {
		return decoded{}, err
	}

	d := decoded{doc: doc, attachments: attachments}
	s.cache.Add(key, d)
	return d, nil
}

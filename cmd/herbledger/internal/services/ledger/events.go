package ledger

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/chainhash"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/events"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/repository"
)

const verifyPageSize = 500

// EventQuery narrows an event listing.
type EventQuery struct {
	BatchID  *int64
	Kind     string
	AfterSeq int64
	Limit    int
}

// ChainReport summarises an event chain verification.
type ChainReport struct {
	Events int      `json:"events"`
	Head   string   `json:"head"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Events returns committed events in commit order.
func (s *Service) Events(ctx context.Context, q EventQuery) ([]events.Event, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	rows, err := s.events.List(ctx, repository.EventFilter{
		BatchID:  q.BatchID,
		Kind:     q.Kind,
		AfterSeq: q.AfterSeq,
		Limit:    q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events.FromModels(rows), nil
}

// VerifyEvents recomputes every fingerprint in the chain. The report lists
// each break; the returned error is non-nil only when the log could not be
// read.
func (s *Service) VerifyEvents(ctx context.Context) (*ChainReport, error) {
	report := &ChainReport{Head: chainhash.Genesis}
	var breaks *multierror.Error

	prev := chainhash.Genesis
	var after int64
	for {
		rows, err := s.events.List(ctx, repository.EventFilter{AfterSeq: after, Limit: verifyPageSize})
		if err != nil {
			return nil, fmt.Errorf("verify events: %w", err)
		}
		for i := range rows {
			row := &rows[i]
			if row.PrevFingerprint != prev {
				breaks = multierror.Append(breaks, fmt.Errorf("event %d: links to %s, expected %s",
					row.Seq, chainhash.Short(row.PrevFingerprint), chainhash.Short(prev)))
			}
			if want := chainhash.Link(row.PrevFingerprint, row.ChainPayload()); want != row.Fingerprint {
				breaks = multierror.Append(breaks, fmt.Errorf("event %d: fingerprint mismatch", row.Seq))
			}
			prev = row.Fingerprint
			after = row.Seq
			report.Events++
		}
		if len(rows) < verifyPageSize {
			break
		}
	}

	report.Head = prev
	report.Valid = breaks.ErrorOrNil() == nil
	if breaks != nil {
		for _, e := range breaks.Errors {
			report.Errors = append(report.Errors, e.Error())
		}
		s.log.Warn().Int("breaks", len(breaks.Errors)).Msg("event chain verification failed")
	}
	return report, nil
}

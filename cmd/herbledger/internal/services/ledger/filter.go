package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-bexpr"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
)

// DefaultPageSize applies when ListBatches is called without a limit.
const DefaultPageSize = 100

// evaluatorCache stores compiled filter expressions keyed by source text.
var evaluatorCache = &sync.Map{}

// ListBatches returns summaries matching filter, a go-bexpr expression over
// id, reference, created_by, has_collector, has_middleman, has_lab,
// has_manufacturer, complete and status. An empty filter matches all.
func (s *Service) ListBatches(ctx context.Context, filter string, limit, offset int) ([]BatchSummary, error) {
	eval, err := compileFilter(filter)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	batches, err := s.batches.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	out := make([]BatchSummary, 0)
	skipped := 0
	for i := range batches {
		summary := toSummary(&batches[i])
		if eval != nil {
			ok, err := eval.Evaluate(filterFields(summary, batches[i].CreatedBy))
			if err != nil || !ok {
				continue
			}
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, summary)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func compileFilter(filter string) (*bexpr.Evaluator, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return nil, nil
	}
	if cached, ok := evaluatorCache.Load(filter); ok {
		return cached.(*bexpr.Evaluator), nil
	}

	eval, err := bexpr.CreateEvaluator(filter)
	if err != nil {
		return nil, fmt.Errorf("%w: filter: %v", custody.ErrInvalidInput, err)
	}
	evaluatorCache.Store(filter, eval)
	return eval, nil
}

func filterFields(s BatchSummary, createdBy string) map[string]any {
	status := StatusPartial
	if s.Complete() {
		status = StatusComplete
	}
	return map[string]any{
		"id":               s.ID,
		"reference":        s.Reference,
		"created_by":       createdBy,
		"has_collector":    s.HasCollector,
		"has_middleman":    s.HasMiddleman,
		"has_lab":          s.HasLab,
		"has_manufacturer": s.HasManufacturer,
		"complete":         s.Complete(),
		"status":           status,
	}
}

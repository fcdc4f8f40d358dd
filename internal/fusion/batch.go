// batch.go drains the backlog of unprocessed symptom reports.
package fusion

import (
	"context"

	"github.com/aquasentinel/aquasentinel/internal/errors"
)

// BatchResult summarizes one backlog run.
type BatchResult struct {
	Fused   int
	Skipped int
	Failed  int
}

// FuseBacklog pairs each unprocessed symptom report with the latest water
// report for its district and fuses the pairs, oldest first. Reports whose
// district has no water report yet are skipped and stay unprocessed; a
// failed fusion is counted and the run continues.
func (p *Pipeline) FuseBacklog(ctx context.Context, limit int) (BatchResult, error) {
	var result BatchResult

	pending, err := p.store.UnprocessedSymptomReports(limit)
	if err != nil {
		return result, err
	}

	for i := range pending {
		if err := ctx.Err(); err != nil {
			return result, errors.New(err).
				Component("fusion").
				Category(errors.CategoryCancellation).
				Context("operation", "fuse_backlog").
				Build()
		}

		symptom := &pending[i]
		water, err := p.store.LatestWaterReportForDistrict(symptom.District)
		if err != nil {
			if errors.IsNotFound(err) {
				result.Skipped++
				p.log.Debug("no water report for district, skipping",
					"symptom_id", symptom.ID, "district", symptom.District)
				continue
			}
			return result, err
		}

		if _, err := p.Fuse(ctx, symptom, &water); err != nil {
			result.Failed++
			p.log.Error("fusion failed", "symptom_id", symptom.ID, "error", err)
			continue
		}
		result.Fused++
	}

	return result, nil
}

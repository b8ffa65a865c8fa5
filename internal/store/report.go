package store

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/erazemk/achados/internal/model"
)

// ActivityReport summarises items created at or after since, on campus when
// it is not empty: how many, how many are resolved, and the mean time to
// resolution over the resolved items that carry a resolution time.
func ActivityReport(ctx context.Context, db *sql.DB, since time.Time, period, campus string) (*model.Report, error) {
	items, err := ListItemsCreatedSince(ctx, db, since, campus)
	if err != nil {
		return nil, err
	}

	r := &model.Report{
		Period: period,
		Since:  since.UTC(),
		Campus: campus,
		Total:  len(items),
		ByType: map[string]int{},
	}

	var (
		hours float64
		timed int
	)
	for _, it := range items {
		r.ByType[string(it.Type)]++
		if it.Status != model.ItemStatusResolved {
			continue
		}
		r.Resolved++
		if it.ResolvedAt != nil {
			hours += it.ResolvedAt.Sub(it.CreatedAt).Hours()
			timed++
		}
	}

	if r.Total > 0 {
		r.ResolutionRate = float64(r.Resolved) / float64(r.Total) * 100
	}
	if timed > 0 {
		r.AvgResolutionHours = math.Round(hours/float64(timed)*100) / 100
	}
	return r, nil
}

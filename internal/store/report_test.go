package store

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/erazemk/achados/internal/db"
	"github.com/erazemk/achados/internal/model"
)

func TestActivityReport(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	since := now.Add(-24 * time.Hour)

	CreateItem(ctx, database, "old", newItem("Old", "Gama", "outros", model.ItemTypeLost), ItemIndex{}, now.Add(-48*time.Hour))
	CreateItem(ctx, database, "a", newItem("A", "Gama", "outros", model.ItemTypeLost), ItemIndex{}, now.Add(-10*time.Hour))
	CreateItem(ctx, database, "b", newItem("B", "Gama", "outros", model.ItemTypeFound), ItemIndex{}, now.Add(-6*time.Hour))
	CreateItem(ctx, database, "c", newItem("C", "Gama", "outros", model.ItemTypeFound), ItemIndex{}, now.Add(-5*time.Hour))
	CreateItem(ctx, database, "d", newItem("D", "Asa Sul", "outros", model.ItemTypeLost), ItemIndex{}, now.Add(-3*time.Hour))

	resolved := model.ItemStatusResolved
	UpdateItem(ctx, database, "a", model.ItemPatch{Status: &resolved}, nil, now.Add(-6*time.Hour))
	// Resolved without a recorded time: counted, but not averaged.
	if _, err := database.Exec(`UPDATE items SET status = 'RESOLVED', resolved_at = NULL WHERE id = 'c'`); err != nil {
		t.Fatalf("marking c resolved: %v", err)
	}

	r, err := ActivityReport(ctx, database, since, "last_24h", "")
	if err != nil {
		t.Fatalf("ActivityReport: %v", err)
	}
	if r.Total != 4 || r.Resolved != 2 {
		t.Fatalf("expected total 4, resolved 2, got %+v", r)
	}
	if math.Abs(r.ResolutionRate-50) > 1e-9 {
		t.Errorf("expected resolution rate 50%%, got %v", r.ResolutionRate)
	}
	if math.Abs(r.AvgResolutionHours-4) > 1e-9 {
		t.Errorf("expected 4 hours to resolve, got %v", r.AvgResolutionHours)
	}
	if r.ByType["LOST"] != 2 || r.ByType["FOUND"] != 2 {
		t.Errorf("unexpected breakdown %v", r.ByType)
	}
	if r.Period != "last_24h" || r.Campus != "" {
		t.Errorf("unexpected period/campus %q/%q", r.Period, r.Campus)
	}
}

func TestActivityReportByCampus(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

	CreateItem(ctx, database, "a", newItem("A", "Gama", "outros", model.ItemTypeLost), ItemIndex{}, now.Add(-2*time.Hour))
	CreateItem(ctx, database, "b", newItem("B", "Asa Sul", "outros", model.ItemTypeLost), ItemIndex{}, now.Add(-2*time.Hour))
	CreateItem(ctx, database, "c", newItem("C", "Asa Sul", "outros", model.ItemTypeFound), ItemIndex{}, now.Add(-time.Hour))

	resolved := model.ItemStatusResolved
	UpdateItem(ctx, database, "b", model.ItemPatch{Status: &resolved}, nil, now.Add(-time.Hour+20*time.Minute))

	r, err := ActivityReport(ctx, database, now.Add(-24*time.Hour), "last_24h", "Asa Sul")
	if err != nil {
		t.Fatalf("ActivityReport: %v", err)
	}
	if r.Campus != "Asa Sul" || r.Total != 2 || r.Resolved != 1 {
		t.Fatalf("unexpected report %+v", r)
	}
	if r.AvgResolutionHours != 1.33 {
		t.Errorf("expected 1.33 hours rounded, got %v", r.AvgResolutionHours)
	}
}

func TestActivityReportEmpty(t *testing.T) {
	database := db.NewTestDB(t)

	r, err := ActivityReport(context.Background(), database, time.Now().Add(-time.Hour), "last_24h", "Gama")
	if err != nil {
		t.Fatalf("ActivityReport: %v", err)
	}
	if r.Total != 0 || r.ResolutionRate != 0 || r.AvgResolutionHours != 0 {
		t.Errorf("expected an empty report, got %+v", r)
	}
}

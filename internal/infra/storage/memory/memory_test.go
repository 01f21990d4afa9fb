package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
	"github.com/leadgrid/gatekeeper/internal/infra/storage"
)

func TestBayRepoLifecycle(t *testing.T) {
	repo := NewBayRepo(NewStore())
	ctx := context.Background()

	rec := &domain.FailureRecord{
		ID:          "rec-1",
		Bay:         domain.BayEmailPattern,
		SourceRowID: "row-1",
		Agent:       domain.AgentPattern,
		Reason:      "no pattern",
		Status:      domain.RecordRouted,
		CreatedAt:   time.Now(),
	}
	if err := repo.Add(ctx, rec); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	got, err := repo.Get(ctx, domain.BayEmailPattern, "rec-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.SourceRowID != "row-1" {
		t.Errorf("Unexpected record: %+v", got)
	}

	// Mutating the returned copy does not affect the store.
	got.Status = domain.RecordResolved
	again, _ := repo.Get(ctx, domain.BayEmailPattern, "rec-1")
	if again.Status != domain.RecordRouted {
		t.Error("Expected store isolated from caller mutation")
	}

	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	updated, _ := repo.Get(ctx, domain.BayEmailPattern, "rec-1")
	if updated.Status != domain.RecordResolved {
		t.Errorf("Expected update persisted, got %s", updated.Status)
	}
}

func TestBayRepoMissingRecord(t *testing.T) {
	repo := NewBayRepo(NewStore())
	ctx := context.Background()

	if _, err := repo.Get(ctx, domain.BayEmailPattern, "nope"); !errors.Is(err, storage.ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
	err := repo.Update(ctx, &domain.FailureRecord{ID: "nope", Bay: domain.BayEmailPattern})
	if !errors.Is(err, storage.ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound on update, got %v", err)
	}
}

func TestBayRepoListPreservesOrder(t *testing.T) {
	repo := NewBayRepo(NewStore())
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		repo.Add(ctx, &domain.FailureRecord{ID: id, Bay: domain.BayDOLSync, Status: domain.RecordRouted})
	}

	recs, err := repo.List(ctx, domain.BayDOLSync)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(recs) != 3 || recs[0].ID != "a" || recs[2].ID != "c" {
		t.Errorf("Expected insertion order, got %v", recs)
	}
}

func TestBayRepoCountUnresolved(t *testing.T) {
	repo := NewBayRepo(NewStore())
	ctx := context.Background()

	repo.Add(ctx, &domain.FailureRecord{ID: "a", Bay: domain.BayDOLSync, Status: domain.RecordRouted})
	repo.Add(ctx, &domain.FailureRecord{ID: "b", Bay: domain.BayDOLSync, Status: domain.RecordRepaired})
	repo.Add(ctx, &domain.FailureRecord{ID: "c", Bay: domain.BayDOLSync, Status: domain.RecordResolved})

	n, err := repo.CountUnresolved(ctx, domain.BayDOLSync)
	if err != nil {
		t.Fatalf("CountUnresolved failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 unresolved, got %d", n)
	}
}

func TestCallLogRepoSince(t *testing.T) {
	repo := NewCallLogRepo(NewStore())
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		repo.Append(ctx, &domain.CallEntry{
			Vendor:    domain.VendorHunter,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}

	entries, err := repo.Since(ctx, base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("Since failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(entries))
	}
}

func TestBudgetRepoRoundTrip(t *testing.T) {
	repo := NewBudgetRepo(NewStore())
	ctx := context.Background()

	if b, err := repo.Get(ctx, "acme"); err != nil || b != nil {
		t.Fatalf("Expected nil for unseen company, got %v, %v", b, err)
	}

	saved := &domain.CompanyBudget{CompanyID: "acme", SpentDay: 3.5}
	if err := repo.Save(ctx, saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := repo.Get(ctx, "acme")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.SpentDay != 3.5 {
		t.Errorf("Expected spend persisted, got %f", got.SpentDay)
	}

	repo.Save(ctx, &domain.CompanyBudget{CompanyID: "globex"})
	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 || all[0].CompanyID != "acme" {
		t.Errorf("Expected sorted list of 2, got %v", all)
	}
}

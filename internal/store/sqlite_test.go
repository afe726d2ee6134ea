package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sebastiankruger/steelmill-kpi/internal/card"
	"github.com/sebastiankruger/steelmill-kpi/internal/kpi"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "cards.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cards := []card.Card{
		{ID: "c2", Title: "Tonnage", Type: kpi.MetricTons, Position: 1},
		{ID: "c1", Title: "Coils", Type: kpi.MetricCoils, Position: 0},
		{ID: "c3", Title: "Energy", Type: kpi.MetricEnergy, Position: 2},
	}
	if err := s.SaveCards(ctx, cards); err != nil {
		t.Fatalf("SaveCards() error = %v", err)
	}

	got, err := s.LoadCards(ctx)
	if err != nil {
		t.Fatalf("LoadCards() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("loaded %d cards, want 3", len(got))
	}

	wantOrder := []string{"c1", "c2", "c3"}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("slot %d = %q, want %q", i, got[i].ID, id)
		}
	}

	// Loaded metadata carries a placeholder data point
	for _, c := range got {
		if !c.Data.IsFallback() {
			t.Errorf("card %q loaded with non-placeholder data %+v", c.ID, c.Data)
		}
	}
}

func TestSaveCardsUpsertsByID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveCards(ctx, []card.Card{{ID: "c1", Title: "Old", Type: kpi.MetricCoils, Position: 0}}); err != nil {
		t.Fatalf("SaveCards() error = %v", err)
	}
	if err := s.SaveCards(ctx, []card.Card{{ID: "c1", Title: "New", Type: kpi.MetricCoils, Position: 4}}); err != nil {
		t.Fatalf("SaveCards() second error = %v", err)
	}

	got, err := s.LoadCards(ctx)
	if err != nil {
		t.Fatalf("LoadCards() error = %v", err)
	}
	if len(got) != 1 || got[0].Title != "New" || got[0].Position != 4 {
		t.Errorf("upsert result = %+v, want single card with new title and position", got)
	}
}

func TestDeleteIsSoftAndFiltered(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveCards(ctx, []card.Card{
		{ID: "c1", Title: "Coils", Type: kpi.MetricCoils, Position: 0},
		{ID: "c2", Title: "Tonnage", Type: kpi.MetricTons, Position: 1},
	}); err != nil {
		t.Fatalf("SaveCards() error = %v", err)
	}

	if err := s.DeleteCard(ctx, "c1"); err != nil {
		t.Fatalf("DeleteCard() error = %v", err)
	}

	got, err := s.LoadCards(ctx)
	if err != nil {
		t.Fatalf("LoadCards() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "c2" {
		t.Errorf("after soft delete got %+v, want only c2", got)
	}

	// Saving the card again reactivates the same row
	if err := s.SaveCards(ctx, []card.Card{{ID: "c1", Title: "Coils", Type: kpi.MetricCoils, Position: 2}}); err != nil {
		t.Fatalf("re-save error = %v", err)
	}
	got, _ = s.LoadCards(ctx)
	if len(got) != 2 {
		t.Errorf("after re-save got %d cards, want 2", len(got))
	}
}

func TestUpdateTitleAndPosition(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateCard(ctx, card.Card{ID: "c1", Title: "Coils", Type: kpi.MetricCoils, Position: 0}); err != nil {
		t.Fatalf("CreateCard() error = %v", err)
	}

	if err := s.UpdateCardTitle(ctx, "c1", "Coils per Hour"); err != nil {
		t.Fatalf("UpdateCardTitle() error = %v", err)
	}
	if err := s.UpdateCardPosition(ctx, "c1", 5); err != nil {
		t.Fatalf("UpdateCardPosition() error = %v", err)
	}

	got, err := s.LoadCards(ctx)
	if err != nil {
		t.Fatalf("LoadCards() error = %v", err)
	}
	if len(got) != 1 || got[0].Title != "Coils per Hour" || got[0].Position != 5 {
		t.Errorf("update result = %+v", got)
	}

	if err := s.UpdateCardTitle(ctx, "ghost", "x"); err == nil {
		t.Error("UpdateCardTitle on missing card succeeded, want error")
	}
}

func TestSubscribeToCards(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var notified [][]card.Card
	unsubscribe := s.SubscribeToCards(func(cards []card.Card) {
		notified = append(notified, cards)
	})

	if _, err := s.CreateCard(ctx, card.Card{ID: "c1", Title: "Coils", Type: kpi.MetricCoils, Position: 0}); err != nil {
		t.Fatalf("CreateCard() error = %v", err)
	}
	if len(notified) != 1 || len(notified[0]) != 1 {
		t.Fatalf("after create notified = %v, want one snapshot with one card", notified)
	}

	unsubscribe()

	if err := s.DeleteCard(ctx, "c1"); err != nil {
		t.Fatalf("DeleteCard() error = %v", err)
	}
	if len(notified) != 1 {
		t.Error("subscriber notified after unsubscribe")
	}
}

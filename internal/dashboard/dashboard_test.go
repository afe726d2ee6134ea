package dashboard

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sebastiankruger/steelmill-kpi/internal/card"
	"github.com/sebastiankruger/steelmill-kpi/internal/kpi"
	"github.com/sebastiankruger/steelmill-kpi/internal/store"
)

// fakeStore is an in-memory CardStore with switchable failure modes
type fakeStore struct {
	mu        sync.Mutex
	cards     map[string]card.Card
	failAll   bool
	saveCalls int
	saved     [][]card.Card
}

func newFakeStore() *fakeStore {
	return &fakeStore{cards: make(map[string]card.Card)}
}

var errFakeDown = errors.New("store unavailable")

func (f *fakeStore) SaveCards(ctx context.Context, cards []card.Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	if f.failAll {
		return errFakeDown
	}
	batch := make([]card.Card, len(cards))
	copy(batch, cards)
	f.saved = append(f.saved, batch)
	for _, c := range cards {
		f.cards[c.ID] = c
	}
	return nil
}

func (f *fakeStore) LoadCards(ctx context.Context) ([]card.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errFakeDown
	}
	var out []card.Card
	for _, c := range f.cards {
		c.Data = kpi.FallbackPoint()
		out = append(out, c)
	}
	return card.Renormalize(out), nil
}

func (f *fakeStore) CreateCard(ctx context.Context, c card.Card) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return "", errFakeDown
	}
	f.cards[c.ID] = c
	return c.ID, nil
}

func (f *fakeStore) UpdateCardTitle(ctx context.Context, id, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errFakeDown
	}
	c, ok := f.cards[id]
	if !ok {
		return errors.New("not found")
	}
	c.Title = title
	f.cards[id] = c
	return nil
}

func (f *fakeStore) UpdateCardPosition(ctx context.Context, id string, position int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errFakeDown
	}
	c, ok := f.cards[id]
	if !ok {
		return errors.New("not found")
	}
	c.Position = position
	f.cards[id] = c
	return nil
}

func (f *fakeStore) DeleteCard(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errFakeDown
	}
	delete(f.cards, id)
	return nil
}

func (f *fakeStore) SubscribeToCards(cb func(cards []card.Card)) func() {
	return func() {}
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) setFailAll(fail bool) {
	f.mu.Lock()
	f.failAll = fail
	f.mu.Unlock()
}

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveCalls
}

func testOptions() Options {
	return Options{
		RefreshInterval: time.Hour, // manual ticks only
		ClockInterval:   time.Hour,
		RetryAttempts:   2,
		RetryDelay:      time.Millisecond,
		LocalFallback:   true,
	}
}

func testLocal(t *testing.T) *store.LocalStore {
	t.Helper()
	ls, err := store.OpenLocal(filepath.Join(t.TempDir(), "local.json"))
	if err != nil {
		t.Fatalf("OpenLocal() error = %v", err)
	}
	return ls
}

func TestLoadRegeneratesDataLocally(t *testing.T) {
	fs := newFakeStore()
	fs.cards["c1"] = card.Card{ID: "c1", Title: "Coils", Type: kpi.MetricCoils, Position: 0}
	fs.cards["c2"] = card.Card{ID: "c2", Title: "Energy", Type: kpi.MetricEnergy, Position: 1}

	d := New(testOptions(), fs, testLocal(t))
	defer d.Close()

	got := d.Load(context.Background())
	if len(got) != 2 {
		t.Fatalf("loaded %d cards, want 2", len(got))
	}
	if d.State() != StateSucceeded {
		t.Errorf("state = %s, want succeeded", d.State())
	}
	for _, c := range got {
		if c.Data.IsFallback() {
			t.Errorf("card %q kept placeholder data after load", c.ID)
		}
	}
}

func TestLoadFallsBackToLocalSnapshot(t *testing.T) {
	fs := newFakeStore()
	fs.setFailAll(true)

	local := testLocal(t)
	snapshot := []card.Card{
		{ID: "c1", Title: "Coils", Type: kpi.MetricCoils, Position: 0},
		{ID: "c2", Title: "Tonnage", Type: kpi.MetricTons, Position: 1},
	}
	if err := local.SaveSnapshot(snapshot); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	d := New(testOptions(), fs, local)
	defer d.Close()

	got := d.Load(context.Background())
	if len(got) != 2 {
		t.Fatalf("loaded %d cards, want the 2 snapshot cards", len(got))
	}
	if d.State() != StateFailed {
		t.Errorf("state = %s, want failed", d.State())
	}
	for _, c := range got {
		if c.Data.IsFallback() {
			t.Errorf("card %q has placeholder data, want freshly generated", c.ID)
		}
	}
}

func TestLoadWithoutFallbackReturnsEmpty(t *testing.T) {
	fs := newFakeStore()
	fs.setFailAll(true)

	opts := testOptions()
	opts.LocalFallback = false

	d := New(opts, fs, nil)
	defer d.Close()

	if got := d.Load(context.Background()); len(got) != 0 {
		t.Errorf("loaded %d cards, want empty collection", len(got))
	}
}

func TestOfflineSaveQueuesAndReplays(t *testing.T) {
	fs := newFakeStore()
	local := testLocal(t)

	d := New(testOptions(), fs, local)
	defer d.Close()

	ctx := context.Background()
	d.SetOnline(ctx, false)

	if _, err := d.Create(ctx, "Coils", kpi.MetricCoils); err != nil {
		// Remote create still runs and fails only if the store is down;
		// the fake store stays up, so no error expected here.
		t.Fatalf("Create() error = %v", err)
	}
	if err := d.Save(ctx); err != nil {
		t.Fatalf("Save() offline error = %v", err)
	}

	pending, err := local.PendingChanges()
	if err != nil {
		t.Fatalf("PendingChanges() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Action != store.ActionSave {
		t.Fatalf("queue = %+v, want one save entry", pending)
	}
	if len(pending[0].Cards) != 1 {
		t.Errorf("queued payload has %d cards, want 1", len(pending[0].Cards))
	}

	before := fs.saveCount()
	d.SetOnline(ctx, true)

	if got := fs.saveCount(); got != before+1 {
		t.Errorf("replay made %d save calls, want 1", got-before)
	}
	pending, _ = local.PendingChanges()
	if len(pending) != 0 {
		t.Errorf("queue not cleared after replay: %+v", pending)
	}
}

func TestSaveDropsInvalidCardsButKeepsThemInMemory(t *testing.T) {
	fs := newFakeStore()
	d := New(testOptions(), fs, testLocal(t))
	defer d.Close()

	ctx := context.Background()
	d.replace([]card.Card{
		{ID: "good", Title: "Coils", Type: kpi.MetricCoils, Position: 0},
		{ID: "bad", Title: "", Type: kpi.MetricCoils, Position: 1},
	})

	if err := d.Save(ctx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if len(fs.saved) != 1 || len(fs.saved[0]) != 1 || fs.saved[0][0].ID != "good" {
		t.Errorf("persisted batch = %+v, want only the valid card", fs.saved)
	}
	if len(d.Cards()) != 2 {
		t.Errorf("in-memory collection = %d cards, want invalid card retained", len(d.Cards()))
	}
}

func TestCreateIsOptimisticOnRemoteFailure(t *testing.T) {
	fs := newFakeStore()
	d := New(testOptions(), fs, testLocal(t))
	defer d.Close()

	fs.setFailAll(true)
	c, err := d.Create(context.Background(), "Coils", kpi.MetricCoils)
	if err == nil {
		t.Fatal("Create() with store down succeeded, want surfaced error")
	}

	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Kind != ErrCreateCard {
		t.Errorf("error = %v, want CREATE_CARD_ERROR", err)
	}
	if opErr != nil && opErr.Severity != "medium" {
		t.Errorf("severity = %q, want medium", opErr.Severity)
	}

	// Local state not rolled back
	cards := d.Cards()
	if len(cards) != 1 || cards[0].ID != c.ID {
		t.Errorf("collection = %+v, want the optimistic card retained", cards)
	}
}

func TestDeleteRenormalizesPositions(t *testing.T) {
	fs := newFakeStore()
	d := New(testOptions(), fs, testLocal(t))
	defer d.Close()

	ctx := context.Background()
	d.replace([]card.Card{
		{ID: "a", Title: "A", Type: kpi.MetricCoils, Position: 0},
		{ID: "b", Title: "B", Type: kpi.MetricTons, Position: 1},
		{ID: "c", Title: "C", Type: kpi.MetricYield, Position: 2},
	})

	if err := d.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	cards := d.Cards()
	if len(cards) != 2 {
		t.Fatalf("collection = %d cards, want 2", len(cards))
	}
	for i, want := range []string{"a", "c"} {
		if cards[i].ID != want || cards[i].Position != i {
			t.Errorf("slot %d = %q pos %d, want %q pos %d", i, cards[i].ID, cards[i].Position, want, i)
		}
	}
}

func TestReorderSwapsPair(t *testing.T) {
	fs := newFakeStore()
	d := New(testOptions(), fs, testLocal(t))
	defer d.Close()

	ctx := context.Background()
	d.replace([]card.Card{
		{ID: "a", Title: "A", Type: kpi.MetricCoils, Position: 0},
		{ID: "b", Title: "B", Type: kpi.MetricTons, Position: 1},
		{ID: "c", Title: "C", Type: kpi.MetricYield, Position: 2},
	})
	fs.cards["a"] = card.Card{ID: "a", Position: 0}
	fs.cards["b"] = card.Card{ID: "b", Position: 1}
	fs.cards["c"] = card.Card{ID: "c", Position: 2}

	if err := d.Reorder(ctx, "a", "b"); err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}

	cards := d.Cards()
	positions := map[string]int{}
	for _, c := range cards {
		positions[c.ID] = c.Position
	}
	if positions["a"] != 1 || positions["b"] != 0 || positions["c"] != 2 {
		t.Errorf("positions after swap = %v", positions)
	}
}

func TestRefreshKeepsMetadataAndRegeneratesData(t *testing.T) {
	fs := newFakeStore()
	d := New(testOptions(), fs, testLocal(t))
	defer d.Close()

	d.replace([]card.Card{
		{ID: "a", Title: "Coils", Type: kpi.MetricCoils, Position: 0},
		{ID: "b", Title: "Energy", Type: kpi.MetricEnergy, Position: 1},
	})

	d.Refresh()

	cards := d.Cards()
	if cards[0].Title != "Coils" || cards[0].Position != 0 || cards[1].Title != "Energy" || cards[1].Position != 1 {
		t.Errorf("refresh touched metadata: %+v", cards)
	}

	coils := cards[0].Data
	if coils.Actual < 10 || coils.Actual > 15 {
		t.Errorf("coils actual = %v, want in [10, 15]", coils.Actual)
	}
	energy := cards[1].Data
	if energy.Actual < 0.4 || energy.Actual > 0.8 {
		t.Errorf("energy actual = %v, want in [0.4, 0.8]", energy.Actual)
	}
}

func TestRefreshHookReceivesFreshCollection(t *testing.T) {
	fs := newFakeStore()
	d := New(testOptions(), fs, testLocal(t))
	defer d.Close()

	d.replace([]card.Card{{ID: "a", Title: "Coils", Type: kpi.MetricCoils, Position: 0}})

	var got []card.Card
	d.SetRefreshHook(func(cards []card.Card) { got = cards })
	d.Refresh()

	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("hook received %+v", got)
	}
}

func TestRetryExhaustionSurfacesTypedError(t *testing.T) {
	fs := newFakeStore()
	d := New(testOptions(), fs, testLocal(t))
	defer d.Close()

	ctx := context.Background()
	d.replace([]card.Card{{ID: "a", Title: "Coils", Type: kpi.MetricCoils, Position: 0}})

	fs.setFailAll(true)
	err := d.Save(ctx)
	if err == nil {
		t.Fatal("Save() with store down succeeded, want error")
	}
	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Kind != ErrSaveCards {
		t.Errorf("error = %v, want SAVE_CARDS_ERROR", err)
	}
	if !errors.Is(err, errFakeDown) {
		t.Errorf("error chain lost the cause: %v", err)
	}
	if got := fs.saveCount(); got != 2 {
		t.Errorf("save attempts = %d, want RetryAttempts (2)", got)
	}
}

func TestSetPeriodIgnoresInvalid(t *testing.T) {
	fs := newFakeStore()
	d := New(testOptions(), fs, nil)
	defer d.Close()

	d.SetPeriod(kpi.PeriodWeekly)
	if d.Period() != kpi.PeriodWeekly {
		t.Errorf("period = %s, want weekly", d.Period())
	}
	d.SetPeriod(kpi.Period("hourly"))
	if d.Period() != kpi.PeriodWeekly {
		t.Errorf("invalid period overwrote selection: %s", d.Period())
	}
}

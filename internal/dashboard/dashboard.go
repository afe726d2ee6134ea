package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/steelmill-kpi/internal/analytics"
	"github.com/sebastiankruger/steelmill-kpi/internal/card"
	"github.com/sebastiankruger/steelmill-kpi/internal/kpi"
	"github.com/sebastiankruger/steelmill-kpi/internal/store"
)

// LoadingState tracks the most recent load attempt
type LoadingState string

const (
	StateIdle      LoadingState = "idle"
	StateLoading   LoadingState = "loading"
	StateSucceeded LoadingState = "succeeded"
	StateFailed    LoadingState = "failed"
)

// Options tune the facade's cadences and retry policy
type Options struct {
	RefreshInterval time.Duration // data regeneration cadence
	ClockInterval   time.Duration // display clock cadence
	RetryAttempts   int           // bounded remote retries
	RetryDelay      time.Duration // fixed delay between retries
	LocalFallback   bool          // fall back to the local snapshot on load failure
}

// DefaultOptions returns the stock cadences: 5s data refresh, 1s clock,
// 3 remote attempts with a fixed 1s delay.
func DefaultOptions() Options {
	return Options{
		RefreshInterval: 5 * time.Second,
		ClockInterval:   1 * time.Second,
		RetryAttempts:   3,
		RetryDelay:      1 * time.Second,
		LocalFallback:   true,
	}
}

// Dashboard orchestrates the card collection: generation, refresh cadence,
// optimistic local mutation and best-effort synchronization with the card
// store. Local state is the source of truth; the remote store is an
// eventually-consistent mirror.
type Dashboard struct {
	opts  Options
	cards store.CardStore
	local *store.LocalStore
	gen   *kpi.Generator

	refresher *scheduler
	clock     *scheduler
	closed    chan struct{}
	closeOnce sync.Once
	tracker   *analytics.Client

	mu         sync.RWMutex
	collection []card.Card
	state      LoadingState
	period     kpi.Period
	online     bool
	clockText  string
	onRefresh  func(cards []card.Card)
}

// New creates a facade over the given stores. The local store may be nil
// when fallback is disabled.
func New(opts Options, cards store.CardStore, local *store.LocalStore) *Dashboard {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultOptions().RefreshInterval
	}
	if opts.ClockInterval <= 0 {
		opts.ClockInterval = DefaultOptions().ClockInterval
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = DefaultOptions().RetryAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultOptions().RetryDelay
	}

	return &Dashboard{
		opts:      opts,
		cards:     cards,
		local:     local,
		gen:       kpi.NewGenerator(),
		refresher: newScheduler(opts.RefreshInterval),
		clock:     newScheduler(opts.ClockInterval),
		closed:    make(chan struct{}),
		state:     StateIdle,
		period:    kpi.PeriodDaily,
		online:    true,
		clockText: time.Now().Format("15:04:05"),
	}
}

// Start begins the refresh and clock tickers
func (d *Dashboard) Start() {
	d.refresher.Start(d.Refresh)
	d.clock.Start(d.tickClock)
	log.Info().
		Dur("refresh_interval", d.opts.RefreshInterval).
		Msg("Dashboard schedulers started")
}

// Close tears down both tickers and cancels any pending retry delay
func (d *Dashboard) Close() {
	d.closeOnce.Do(func() {
		close(d.closed)
		d.refresher.Stop()
		d.clock.Stop()
		log.Info().Msg("Dashboard schedulers stopped")
	})
}

// Load populates the collection: remote first, then the local snapshot, then
// empty. Metadata comes from the store; every data point is regenerated
// locally. Load never fails past the facade boundary.
func (d *Dashboard) Load(ctx context.Context) []card.Card {
	d.setState(StateLoading)

	loaded, err := d.cards.LoadCards(ctx)
	if err != nil {
		opErr := newOpError(ErrLoadCards, err)
		log.Warn().Err(opErr).Msg("Remote load failed")

		loaded = nil
		if d.opts.LocalFallback && d.local != nil {
			snapshot, lerr := d.local.LoadSnapshot()
			if lerr != nil {
				log.Warn().Err(lerr).Msg("Local snapshot unreadable, starting empty")
			} else if snapshot != nil {
				log.Info().Int("cards", len(snapshot)).Msg("Loaded cards from local snapshot")
				loaded = snapshot
			}
		}
		d.setState(StateFailed)
	} else {
		d.setState(StateSucceeded)
	}

	fresh := card.Renormalize(loaded)
	for i := range fresh {
		fresh[i].Data = d.gen.Generate(fresh[i].Type)
	}

	d.replace(fresh)
	return d.Cards()
}

// Save validates and persists the collection. Invalid cards are dropped from
// the persisted batch but stay in memory. Offline saves are queued for
// replay on reconnect.
func (d *Dashboard) Save(ctx context.Context) error {
	valid := make([]card.Card, 0, d.count())
	for _, c := range d.Cards() {
		if err := c.Validate(); err != nil {
			log.Warn().Err(err).Str("card", c.ID).Msg("Dropping invalid card from persisted batch")
			continue
		}
		valid = append(valid, c)
	}

	if d.local != nil {
		if err := d.local.SaveSnapshot(valid); err != nil {
			log.Warn().Err(err).Msg("Failed to write local snapshot")
		}
	}

	if !d.Online() {
		if d.local == nil {
			return newOpError(ErrSaveCards, fmt.Errorf("offline and no local store"))
		}
		if err := d.local.EnqueueChange(store.Change{
			Action:    store.ActionSave,
			Cards:     valid,
			Timestamp: time.Now().UTC(),
		}); err != nil {
			return newOpError(ErrSaveCards, err)
		}
		log.Info().Int("cards", len(valid)).Msg("Offline, queued save for replay")
		return nil
	}

	if err := d.withRetry(ctx, "save cards", func(ctx context.Context) error {
		return d.cards.SaveCards(ctx, valid)
	}); err != nil {
		return newOpError(ErrSaveCards, err)
	}
	return nil
}

// Create appends a new card optimistically and mirrors it to the store.
// On remote exhaustion the error is returned but the card stays.
func (d *Dashboard) Create(ctx context.Context, title string, t kpi.MetricType) (card.Card, error) {
	title = strings.TrimSpace(title)
	c := card.New(title, t, d.count())
	if err := c.Validate(); err != nil {
		return card.Card{}, newOpError(ErrCreateCard, err)
	}
	c.Data = d.gen.Generate(t)

	d.mu.Lock()
	next := append(copyCards(d.collection), c)
	d.collection = card.Renormalize(next)
	d.mu.Unlock()

	d.track("create", c.ID, c.Type)

	if err := d.withRetry(ctx, "create card", func(ctx context.Context) error {
		_, err := d.cards.CreateCard(ctx, c)
		return err
	}); err != nil {
		return c, newOpError(ErrCreateCard, err)
	}
	return c, nil
}

// UpdateTitle renames a card optimistically, then mirrors the change
func (d *Dashboard) UpdateTitle(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if len(title) < card.MinTitleLen || len(title) > card.MaxTitleLen {
		return newOpError(ErrUpdateCard, fmt.Errorf("title length %d outside [%d,%d]", len(title), card.MinTitleLen, card.MaxTitleLen))
	}

	d.mu.Lock()
	found := false
	next := copyCards(d.collection)
	for i := range next {
		if next[i].ID == id {
			next[i].Title = title
			found = true
			break
		}
	}
	if found {
		d.collection = next
	}
	d.mu.Unlock()

	if !found {
		return newOpError(ErrUpdateCard, fmt.Errorf("card %s not found", id))
	}

	if err := d.withRetry(ctx, "update card title", func(ctx context.Context) error {
		return d.cards.UpdateCardTitle(ctx, id, title)
	}); err != nil {
		return newOpError(ErrUpdateCard, err)
	}
	return nil
}

// Reorder swaps two cards as an atomic pair, renormalizes, and mirrors both
// new positions to the store
func (d *Dashboard) Reorder(ctx context.Context, idA, idB string) error {
	d.mu.Lock()
	next, err := card.Swap(d.collection, idA, idB)
	if err != nil {
		d.mu.Unlock()
		return newOpError(ErrUpdateCard, err)
	}
	d.collection = next
	positions := make(map[string]int, 2)
	for _, c := range next {
		if c.ID == idA || c.ID == idB {
			positions[c.ID] = c.Position
		}
	}
	d.mu.Unlock()

	for id, pos := range positions {
		id, pos := id, pos
		if err := d.withRetry(ctx, "update card position", func(ctx context.Context) error {
			return d.cards.UpdateCardPosition(ctx, id, pos)
		}); err != nil {
			return newOpError(ErrUpdateCard, err)
		}
	}
	return nil
}

// Delete removes a card optimistically, renormalizes the remaining
// positions, and soft-deletes it at the store
func (d *Dashboard) Delete(ctx context.Context, id string) error {
	d.mu.Lock()
	next, found := card.Remove(d.collection, id)
	if found {
		d.collection = next
	}
	d.mu.Unlock()

	if !found {
		return newOpError(ErrDeleteCard, fmt.Errorf("card %s not found", id))
	}

	d.track("delete", id, "")

	if err := d.withRetry(ctx, "delete card", func(ctx context.Context) error {
		return d.cards.DeleteCard(ctx, id)
	}); err != nil {
		return newOpError(ErrDeleteCard, err)
	}
	return nil
}

// Refresh regenerates every card's data point in place using its own type.
// Title and position are untouched. The collection is replaced wholesale so
// readers never observe a half-refreshed slice.
func (d *Dashboard) Refresh() {
	d.mu.Lock()
	next := copyCards(d.collection)
	for i := range next {
		next[i].Data = d.gen.Generate(next[i].Type)
	}
	d.collection = next
	hook := d.onRefresh
	d.mu.Unlock()

	if hook != nil {
		hook(copyCards(next))
	}
}

// SetRefreshHook registers a callback invoked with the fresh collection
// after every refresh tick (OPC UA export, metrics push)
func (d *Dashboard) SetRefreshHook(fn func(cards []card.Card)) {
	d.mu.Lock()
	d.onRefresh = fn
	d.mu.Unlock()
}

// SetAnalytics attaches a usage-event client. Events are sent best-effort
// in the background and never affect the primary operation.
func (d *Dashboard) SetAnalytics(c *analytics.Client) {
	d.tracker = c
}

func (d *Dashboard) track(action, cardID string, cardType kpi.MetricType) {
	if d.tracker == nil || !d.tracker.Enabled() {
		return
	}
	ev := analytics.Event{
		Action:    action,
		CardID:    cardID,
		CardType:  string(cardType),
		CardCount: d.count(),
		Timestamp: time.Now().UTC(),
	}
	go d.tracker.SendEvent(context.Background(), ev)
}

// SetOnline flips the connectivity flag. Coming back online replays the
// pending offline queue in enqueue order, best-effort.
func (d *Dashboard) SetOnline(ctx context.Context, online bool) {
	d.mu.Lock()
	wasOnline := d.online
	d.online = online
	d.mu.Unlock()

	if online && !wasOnline {
		d.replayPending(ctx)
	}
}

// Online reports the connectivity flag
func (d *Dashboard) Online() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.online
}

// replayPending replays queued offline changes. Only "save" entries have a
// replay path; other action tags are skipped with a warning (known gap, the
// queue shape defines them but no replay semantics exist).
func (d *Dashboard) replayPending(ctx context.Context) {
	if d.local == nil {
		return
	}
	pending, err := d.local.PendingChanges()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read pending changes")
		return
	}
	if len(pending) == 0 {
		return
	}

	log.Info().Int("changes", len(pending)).Msg("Replaying queued offline changes")
	for _, ch := range pending {
		switch ch.Action {
		case store.ActionSave:
			if err := d.withRetry(ctx, "replay save", func(ctx context.Context) error {
				return d.cards.SaveCards(ctx, ch.Cards)
			}); err != nil {
				log.Warn().Err(err).Time("queued_at", ch.Timestamp).Msg("Replay failed, change dropped")
			}
		default:
			log.Warn().Str("action", ch.Action).Msg("No replay path for queued action, skipping")
		}
	}

	if err := d.local.ClearPendingChanges(); err != nil {
		log.Warn().Err(err).Msg("Failed to clear pending changes")
	}
}

// Cards returns a copy of the current collection ordered by position
func (d *Dashboard) Cards() []card.Card {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return copyCards(d.collection)
}

// State returns the current loading state
func (d *Dashboard) State() LoadingState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Period returns the currently selected display period
func (d *Dashboard) Period() kpi.Period {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.period
}

// SetPeriod selects the display period. Invalid periods are ignored.
func (d *Dashboard) SetPeriod(p kpi.Period) {
	if !p.IsValid() {
		return
	}
	d.mu.Lock()
	d.period = p
	d.mu.Unlock()
}

// ClockText returns the display clock string updated by the 1s ticker
func (d *Dashboard) ClockText() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.clockText
}

func (d *Dashboard) tickClock() {
	d.mu.Lock()
	d.clockText = time.Now().Format("15:04:05")
	d.mu.Unlock()
}

// withRetry runs fn up to RetryAttempts times with a fixed delay between
// attempts. Retries are sequential; the delay is cancelled by context
// cancellation or facade teardown.
func (d *Dashboard) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= d.opts.RetryAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		log.Warn().
			Err(err).
			Str("op", op).
			Int("attempt", attempt).
			Int("max_attempts", d.opts.RetryAttempts).
			Msg("Remote operation failed")

		if attempt == d.opts.RetryAttempts {
			break
		}

		timer := time.NewTimer(d.opts.RetryDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-d.closed:
			timer.Stop()
			return fmt.Errorf("%s: dashboard closed during retry", op)
		}
	}
	return err
}

func (d *Dashboard) setState(s LoadingState) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

func (d *Dashboard) replace(cards []card.Card) {
	d.mu.Lock()
	d.collection = cards
	d.mu.Unlock()
}

func (d *Dashboard) count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.collection)
}

func copyCards(cards []card.Card) []card.Card {
	out := make([]card.Card, len(cards))
	copy(out, cards)
	return out
}

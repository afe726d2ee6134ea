package card

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sebastiankruger/steelmill-kpi/internal/kpi"
)

// Title length bounds after trimming
const (
	MinTitleLen = 1
	MaxTitleLen = 50
)

// Card is one dashboard tile: a titled KPI of a fixed metric type at a dense
// position within the collection, holding the latest simulated snapshot.
// Data is replaced wholesale on each refresh tick, never partially mutated.
type Card struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Type     kpi.MetricType `json:"type"`
	Position int            `json:"position"`
	Data     kpi.DataPoint  `json:"data"`
}

// New creates a card with a fresh ID and a zeroed placeholder data point.
// The caller assigns the position and generates the first snapshot.
func New(title string, t kpi.MetricType, position int) Card {
	return Card{
		ID:       NewID(),
		Title:    strings.TrimSpace(title),
		Type:     t,
		Position: position,
		Data:     kpi.FallbackPoint(),
	}
}

// NewID mints a card ID from the creation timestamp and a random suffix
func NewID() string {
	return fmt.Sprintf("card-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// Validate checks the invariants a card must satisfy before persistence
func (c Card) Validate() error {
	title := strings.TrimSpace(c.Title)
	if len(title) < MinTitleLen || len(title) > MaxTitleLen {
		return fmt.Errorf("card %s: title length %d outside [%d,%d]", c.ID, len(title), MinTitleLen, MaxTitleLen)
	}
	if !c.Type.IsValid() {
		return fmt.Errorf("card %s: unknown metric type %q", c.ID, c.Type)
	}
	if c.Position < 0 {
		return fmt.Errorf("card %s: negative position %d", c.ID, c.Position)
	}
	return nil
}

// Renormalize rewrites positions to a dense 0..n-1 sequence preserving the
// current relative order. Returns a new slice; the input is not mutated.
func Renormalize(cards []Card) []Card {
	out := make([]Card, len(cards))
	copy(out, cards)
	sortByPosition(out)
	for i := range out {
		out[i].Position = i
	}
	return out
}

// Swap exchanges the positions of the cards with the two given IDs as an
// atomic pair swap, then renormalizes. All other cards keep their positions.
func Swap(cards []Card, idA, idB string) ([]Card, error) {
	ia, ib := -1, -1
	for i, c := range cards {
		switch c.ID {
		case idA:
			ia = i
		case idB:
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return nil, fmt.Errorf("swap: card not found (%s, %s)", idA, idB)
	}

	out := make([]Card, len(cards))
	copy(out, cards)
	out[ia].Position, out[ib].Position = out[ib].Position, out[ia].Position
	return Renormalize(out), nil
}

// Remove deletes the card with the given ID and renormalizes the remaining
// positions to 0..n-1
func Remove(cards []Card, id string) ([]Card, bool) {
	out := make([]Card, 0, len(cards))
	found := false
	for _, c := range cards {
		if c.ID == id {
			found = true
			continue
		}
		out = append(out, c)
	}
	if !found {
		return cards, false
	}
	return Renormalize(out), true
}

func sortByPosition(cards []Card) {
	slices.SortStableFunc(cards, func(a, b Card) int {
		return a.Position - b.Position
	})
}

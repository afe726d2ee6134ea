package store

import (
	"context"

	"github.com/sebastiankruger/steelmill-kpi/internal/card"
)

// CardStore is the document-store contract for card metadata. Data points
// are never persisted; they are regenerated locally after every load.
type CardStore interface {
	// SaveCards upserts the metadata of all given cards, merged by ID,
	// marking each active.
	SaveCards(ctx context.Context, cards []card.Card) error

	// LoadCards returns active cards ordered by position ascending.
	LoadCards(ctx context.Context) ([]card.Card, error)

	// CreateCard stores a single new card and returns its ID.
	CreateCard(ctx context.Context, c card.Card) (string, error)

	// UpdateCardTitle changes the title of an existing card.
	UpdateCardTitle(ctx context.Context, id, title string) error

	// UpdateCardPosition changes the position of an existing card.
	UpdateCardPosition(ctx context.Context, id string, position int) error

	// DeleteCard soft-deletes a card by marking it inactive.
	DeleteCard(ctx context.Context, id string) error

	// SubscribeToCards registers a callback invoked with the full active
	// collection after every successful mutation. The returned function
	// unsubscribes.
	SubscribeToCards(cb func(cards []card.Card)) (unsubscribe func())

	// Close releases the underlying resources.
	Close() error
}
